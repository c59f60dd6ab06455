package retrieval

import (
	"crypto/md5" //nolint:gosec // content fingerprint for dedup, not security-sensitive
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/agext/levenshtein"
)

// Context Builder tuning constants, per spec.md §4.8 query step 4 and
// context_builder.py's module-level settings.
const (
	// MaxContextTokens is the hard cap on the final assembled context.
	MaxContextTokens = 8000
	// MinChunkTokens is the quality-score floor a document should clear.
	MinChunkTokens = 100
	// SimilarityThreshold is the SequenceMatcher-equivalent ratio above
	// which two documents are considered duplicates.
	SimilarityThreshold = 0.8
	// DefaultTopK bounds how many documents apply_top_k_limit keeps
	// before dedup/extraction run.
	DefaultTopK = 50
	// TargetTokensPerDoc is extract_most_relevant_parts' per-document
	// budget.
	TargetTokensPerDoc = 400
)

var sentenceSplitPattern = regexp.MustCompile(`(?:[.!?]['"]*)\s+`)
var wordPattern = regexp.MustCompile(`\w+`)
var punctuationPattern = regexp.MustCompile(`[^\w\s]`)
var whitespacePattern = regexp.MustCompile(`\s+`)

// splitIntoSentences breaks text on sentence-ending punctuation followed
// by whitespace, mirroring _split_into_sentences.
func splitIntoSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	parts := sentenceSplitPattern.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// contentHash fingerprints text for fast exact-duplicate detection,
// normalizing whitespace/punctuation/case first so near-identical
// formatting doesn't defeat the hash check, per _calculate_content_hash.
func contentHash(text string) string {
	normalized := strings.ToLower(strings.TrimSpace(text))
	normalized = whitespacePattern.ReplaceAllString(normalized, " ")
	normalized = punctuationPattern.ReplaceAllString(normalized, "")
	sum := md5.Sum([]byte(normalized)) //nolint:gosec
	return fmt.Sprintf("%x", sum)
}

// isSimilar reports whether text1/text2 are near-duplicates, per
// is_similar: very short or very length-mismatched pairs are never
// compared, and otherwise a normalized edit-distance ratio stands in for
// Python's difflib.SequenceMatcher.ratio().
func isSimilar(text1, text2 string, threshold float64) bool {
	if len(text1) < 20 || len(text2) < 20 {
		return false
	}
	shorter, longer := len(text1), len(text2)
	if shorter > longer {
		shorter, longer = longer, shorter
	}
	if float64(shorter)/float64(longer) < 0.3 {
		return false
	}
	return levenshtein.Match(text1, text2, nil) >= threshold
}

// removeDuplicateChunks drops exact (hash) and near (edit-distance)
// duplicates, keeping the first occurrence of each, per
// remove_duplicate_chunks.
func removeDuplicateChunks(docs []Document) []Document {
	unique := make([]Document, 0, len(docs))
	seenHashes := make(map[string]bool, len(docs))

	for _, doc := range docs {
		text := strings.TrimSpace(doc.Text)
		if text == "" {
			continue
		}
		hash := contentHash(text)
		if seenHashes[hash] {
			continue
		}

		duplicate := false
		for _, u := range unique {
			if isSimilar(text, u.Text, SimilarityThreshold) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			unique = append(unique, doc)
			seenHashes[hash] = true
		}
	}
	return unique
}

// documentQualityScore scores doc for retention/ranking purposes, per
// _calculate_document_quality_score: length appropriateness, token-count
// appropriateness, source trust (knowledge base over ticket), recency,
// and optional query-term overlap.
func documentQualityScore(doc Document, query string) float64 {
	var score float64

	length := len(doc.Text)
	switch {
	case length >= 200 && length <= 2000:
		score += 1.0
	case length < 200:
		score += 0.5
	default:
		score += 0.7
	}

	tokenCount := countTokens(doc.Text)
	switch {
	case tokenCount >= MinChunkTokens && float64(tokenCount) <= TargetTokensPerDoc*1.5:
		score += 1.0
	case tokenCount < MinChunkTokens:
		score += 0.3
	default:
		score += 0.8
	}

	if doc.Metadata != nil {
		if source, ok := doc.Metadata["source"].(string); ok {
			lower := strings.ToLower(source)
			switch {
			case strings.Contains(lower, "knowledge"):
				score += 0.5
			case strings.Contains(lower, "ticket"):
				score += 0.3
			}
		}
		if _, ok := doc.Metadata["created_at"]; ok {
			score += 0.2
		}
	}

	if query != "" {
		queryWords := wordSet(strings.ToLower(query))
		docWords := wordSetFromPattern(strings.ToLower(doc.Text))
		common := intersectionSize(queryWords, docWords)
		if common > 0 && len(queryWords) > 0 {
			score += (float64(common) / float64(len(queryWords))) * 2.0
		}
	}

	return score
}

func wordSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(text) {
		set[w] = true
	}
	return set
}

func wordSetFromPattern(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range wordPattern.FindAllString(text, -1) {
		set[w] = true
	}
	return set
}

func intersectionSize(a, b map[string]bool) int {
	n := 0
	for w := range a {
		if b[w] {
			n++
		}
	}
	return n
}

// applyTopKLimit keeps only the topK highest-quality documents while
// preserving their original relative order, per apply_top_k_limit.
func applyTopKLimit(docs []Document, topK int, query string) []Document {
	if topK <= 0 || len(docs) <= topK {
		return docs
	}

	type scored struct {
		doc   Document
		score float64
		index int
	}
	ranked := make([]scored, len(docs))
	for i, d := range docs {
		ranked[i] = scored{doc: d, score: documentQualityScore(d, query), index: i}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	ranked = ranked[:topK]
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].index < ranked[j].index })

	out := make([]Document, len(ranked))
	for i, r := range ranked {
		out[i] = r.doc
	}
	return out
}

// extractMostRelevantParts reduces each document to the subset of its
// sentences most relevant to query, capped at targetTokensPerDoc, per
// extract_most_relevant_parts. A document with no query-relevant
// sentences is dropped entirely, matching the original's behavior.
func extractMostRelevantParts(docs []Document, query string, targetTokensPerDoc int) []Document {
	if query == "" || len(docs) == 0 {
		return docs
	}
	queryWords := wordSet(strings.ToLower(query))
	if len(queryWords) == 0 {
		return docs
	}

	type scoredSentence struct {
		text   string
		score  float64
		tokens int
	}

	out := make([]Document, 0, len(docs))
	for _, doc := range docs {
		if strings.TrimSpace(doc.Text) == "" {
			continue
		}
		sentences := splitIntoSentences(doc.Text)
		if len(sentences) == 0 {
			continue
		}

		var scored []scoredSentence
		for _, s := range sentences {
			words := wordSetFromPattern(strings.ToLower(s))
			common := intersectionSize(queryWords, words)
			if common == 0 {
				continue
			}
			scored = append(scored, scoredSentence{
				text:   s,
				score:  float64(common) / float64(len(queryWords)),
				tokens: countTokens(s),
			})
		}
		if len(scored) == 0 {
			continue
		}
		sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

		originalTokens := countTokens(doc.Text)
		target := targetTokensPerDoc
		if originalTokens < target {
			target = originalTokens
		}

		var selected []string
		current := 0
		for _, s := range scored {
			if current+s.tokens <= target {
				selected = append(selected, s.text)
				current += s.tokens
				continue
			}
			if len(selected) == 0 {
				words := strings.Fields(s.text)
				if s.tokens > 0 && len(words) > 0 {
					wordsPerToken := float64(len(words)) / float64(s.tokens)
					targetWords := int(float64(target) * wordsPerToken)
					if targetWords > 0 && targetWords < len(words) {
						selected = append(selected, strings.Join(words[:targetWords], " "))
					} else if targetWords >= len(words) {
						selected = append(selected, s.text)
					}
				}
			}
			break
		}

		if len(selected) > 0 {
			out = append(out, Document{Text: strings.Join(selected, " "), Metadata: doc.Metadata})
		}
	}
	return out
}

// optimizeContextLength greedily includes documents until maxTokens would
// be exceeded, always keeping at least one document, per
// optimize_context_length.
func optimizeContextLength(docs []Document, maxTokens int) ([]Document, int) {
	out := make([]Document, 0, len(docs))
	total := 0
	for _, doc := range docs {
		tokens := countTokens(doc.Text)
		if total+tokens > maxTokens && len(out) > 0 {
			break
		}
		out = append(out, doc)
		total += tokens
	}
	return out, total
}

// BuildOptions configures Build; zero values fall back to the package
// defaults.
type BuildOptions struct {
	Query                     string
	MaxTokens                 int
	TopK                      int
	EnableRelevanceExtraction bool
}

// Build runs the 4-stage Context Builder pipeline (top-k select, dedup,
// relevance extraction, token cap) and joins the survivors with a blank
// line, per build_optimized_context.
func Build(docs []Document, opts BuildOptions) BuildResult {
	originalCount := len(docs)
	if originalCount == 0 {
		return BuildResult{Metadata: BuildMetadata{QueryProvided: opts.Query != ""}}
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = MaxContextTokens
	}
	topK := opts.TopK
	if topK == 0 {
		topK = DefaultTopK
	}

	filtered := docs
	if topK > 0 {
		filtered = applyTopKLimit(docs, topK, opts.Query)
	}
	afterTopK := len(filtered)

	unique := removeDuplicateChunks(filtered)
	afterDedup := len(unique)

	relevant := unique
	extractionApplied := false
	if opts.EnableRelevanceExtraction && opts.Query != "" && len(unique) > 0 {
		relevant = extractMostRelevantParts(unique, opts.Query, TargetTokensPerDoc)
		extractionApplied = true
	}
	afterExtraction := len(relevant)

	optimized, tokenCount := optimizeContextLength(relevant, maxTokens)

	texts := make([]string, len(optimized))
	for i, d := range optimized {
		texts[i] = d.Text
	}

	return BuildResult{
		Context:   strings.Join(texts, "\n\n"),
		Documents: optimized,
		Metadata: BuildMetadata{
			OriginalCount:              originalCount,
			AfterTopKCount:             afterTopK,
			AfterDeduplicationCount:    afterDedup,
			AfterRelevanceExtraction:   afterExtraction,
			FinalCount:                 len(optimized),
			TokenCount:                 tokenCount,
			QueryProvided:              opts.Query != "",
			RelevanceExtractionApplied: extractionApplied,
		},
	}
}
