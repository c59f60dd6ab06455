package retrieval

import (
	"strings"
	"testing"
)

func TestSplitIntoSentences(t *testing.T) {
	sentences := splitIntoSentences("First sentence. Second sentence! Third one? Done.")
	if len(sentences) != 4 {
		t.Fatalf("expected 4 sentences, got %d: %v", len(sentences), sentences)
	}
}

func TestContentHash_NormalizesFormatting(t *testing.T) {
	a := contentHash("Hello,   World!!!")
	b := contentHash("hello world")
	if a != b {
		t.Fatalf("expected normalized hashes to match: %q vs %q", a, b)
	}
}

func TestIsSimilar(t *testing.T) {
	text1 := "The customer reported a login failure after the password reset email was sent."
	text2 := "The customer reported a login failure after the password reset email was delivered."
	if !isSimilar(text1, text2, SimilarityThreshold) {
		t.Fatal("expected near-duplicate texts to be flagged similar")
	}
	if isSimilar("short", "also short", SimilarityThreshold) {
		t.Fatal("expected short texts to never be compared")
	}
	if isSimilar(text1, "Completely unrelated content about invoice billing cycles and payment terms.", SimilarityThreshold) {
		t.Fatal("expected dissimilar texts to not be flagged similar")
	}
}

func TestRemoveDuplicateChunks(t *testing.T) {
	docs := []Document{
		{Text: "The customer could not log in after resetting their password yesterday."},
		{Text: "The customer could not log in after resetting their password yesterday."}, // exact dup
		{Text: "The customer could not log in after resetting their password just yesterday."}, // near dup
		{Text: "A completely different ticket about billing discrepancies on the monthly invoice."},
	}
	unique := removeDuplicateChunks(docs)
	if len(unique) != 2 {
		t.Fatalf("expected 2 unique documents, got %d", len(unique))
	}
}

func TestDocumentQualityScore_RewardsSourceAndRecency(t *testing.T) {
	base := Document{Text: strings.Repeat("word ", 60)}
	kb := Document{Text: base.Text, Metadata: map[string]interface{}{"source": "knowledge_base", "created_at": "2026-01-01"}}
	ticketOnly := Document{Text: base.Text, Metadata: map[string]interface{}{"source": "ticket"}}

	if documentQualityScore(kb, "") <= documentQualityScore(ticketOnly, "") {
		t.Fatal("expected a knowledge-base source with recency metadata to score higher than a bare ticket")
	}
}

func TestDocumentQualityScore_RewardsQueryOverlap(t *testing.T) {
	doc := Document{Text: "steps to reset a forgotten password for the customer portal account"}
	withOverlap := documentQualityScore(doc, "reset password account")
	withoutOverlap := documentQualityScore(doc, "invoice billing cycle")
	if withOverlap <= withoutOverlap {
		t.Fatal("expected query-term overlap to increase the quality score")
	}
}

func TestApplyTopKLimit_PreservesOriginalOrder(t *testing.T) {
	docs := []Document{
		{Text: strings.Repeat("x", 5)},               // low quality: too short
		{Text: strings.Repeat("word ", 80)},            // high quality: well-sized
		{Text: strings.Repeat("y", 3)},                 // low quality: too short
		{Text: strings.Repeat("word ", 80)},            // high quality: well-sized
	}
	limited := applyTopKLimit(docs, 2, "")
	if len(limited) != 2 {
		t.Fatalf("expected 2 documents after top-k, got %d", len(limited))
	}
	// the two high-quality docs are at original indices 1 and 3; order must
	// be preserved, so index 1's content must come first.
	if limited[0].Text != docs[1].Text || limited[1].Text != docs[3].Text {
		t.Fatal("expected top-k limiting to preserve original relative order")
	}
}

func TestApplyTopKLimit_NoOpWhenUnderLimit(t *testing.T) {
	docs := []Document{{Text: "a"}, {Text: "b"}}
	if limited := applyTopKLimit(docs, 10, ""); len(limited) != 2 {
		t.Fatalf("expected no truncation, got %d", len(limited))
	}
}

func TestExtractMostRelevantParts_KeepsOnlyQueryRelevantSentences(t *testing.T) {
	docs := []Document{
		{Text: "The weather was nice that day. The customer could not reset their password. Unrelated small talk followed."},
	}
	extracted := extractMostRelevantParts(docs, "reset password", TargetTokensPerDoc)
	if len(extracted) != 1 {
		t.Fatalf("expected 1 document to survive, got %d", len(extracted))
	}
	if !strings.Contains(extracted[0].Text, "reset their password") {
		t.Fatalf("expected the password-relevant sentence to be kept, got %q", extracted[0].Text)
	}
}

func TestExtractMostRelevantParts_DropsDocumentsWithNoRelevantSentences(t *testing.T) {
	docs := []Document{{Text: "Totally unrelated content about an invoice dispute and late fees."}}
	extracted := extractMostRelevantParts(docs, "password reset", TargetTokensPerDoc)
	if len(extracted) != 0 {
		t.Fatalf("expected document with no query overlap to be dropped, got %d", len(extracted))
	}
}

func TestExtractMostRelevantParts_NoQueryIsNoOp(t *testing.T) {
	docs := []Document{{Text: "anything at all"}}
	extracted := extractMostRelevantParts(docs, "", TargetTokensPerDoc)
	if len(extracted) != 1 || extracted[0].Text != docs[0].Text {
		t.Fatal("expected a blank query to leave documents untouched")
	}
}

func TestOptimizeContextLength_CapsAtMaxTokensButKeepsAtLeastOne(t *testing.T) {
	big := strings.Repeat("word ", 5000)
	docs := []Document{{Text: big}, {Text: "short trailing doc"}}
	optimized, tokenCount := optimizeContextLength(docs, 10)
	if len(optimized) != 1 {
		t.Fatalf("expected the oversized first document alone, got %d", len(optimized))
	}
	if tokenCount <= 10 {
		t.Fatalf("expected the kept document's token count to exceed maxTokens when it's the only one, got %d", tokenCount)
	}
}

func TestOptimizeContextLength_IncludesMultipleWithinBudget(t *testing.T) {
	docs := []Document{{Text: "one two three four"}, {Text: "five six seven eight"}}
	optimized, _ := optimizeContextLength(docs, 1000)
	if len(optimized) != 2 {
		t.Fatalf("expected both documents to fit within a generous budget, got %d", len(optimized))
	}
}

func TestBuild_FullPipeline(t *testing.T) {
	docs := []Document{
		{Text: "The customer reported being unable to log in after a password reset email was sent.", Metadata: map[string]interface{}{"source": "ticket"}},
		{Text: "The customer reported being unable to log in after a password reset email got sent.", Metadata: map[string]interface{}{"source": "ticket"}}, // near-dup
		{Text: "Knowledge base article: how to resolve login failures following a password reset.", Metadata: map[string]interface{}{"source": "knowledge_base"}},
		{Text: "An unrelated billing dispute ticket about a duplicate charge on the monthly invoice.", Metadata: map[string]interface{}{"source": "ticket"}},
	}
	result := Build(docs, BuildOptions{Query: "password reset login", EnableRelevanceExtraction: true})

	if result.Metadata.OriginalCount != 4 {
		t.Fatalf("expected original count 4, got %d", result.Metadata.OriginalCount)
	}
	if result.Metadata.AfterDeduplicationCount >= result.Metadata.AfterTopKCount {
		t.Fatalf("expected dedup to remove the near-duplicate: top-k=%d dedup=%d", result.Metadata.AfterTopKCount, result.Metadata.AfterDeduplicationCount)
	}
	if !result.Metadata.RelevanceExtractionApplied {
		t.Fatal("expected relevance extraction to run when a query is given")
	}
	if result.Context == "" {
		t.Fatal("expected a non-empty assembled context")
	}
}

func TestBuild_EmptyInput(t *testing.T) {
	result := Build(nil, BuildOptions{Query: "anything"})
	if result.Metadata.OriginalCount != 0 || result.Context != "" {
		t.Fatal("expected an empty result for no input documents")
	}
}

func TestCountTokens_EmptyString(t *testing.T) {
	if countTokens("") != 0 {
		t.Fatal("expected zero tokens for an empty string")
	}
}

func TestCountTokens_NonEmptyIsPositive(t *testing.T) {
	if countTokens("hello world") <= 0 {
		t.Fatal("expected a positive token count for non-empty text")
	}
}
