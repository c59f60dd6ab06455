package retrieval

import (
	"log/slog"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// cl100kEncoding is what text-embedding-3-small/large and the GPT-4
// family use, per context_builder.py's comment on tokenizer choice.
const cl100kEncoding = "cl100k_base"

// approxCharsPerToken is the fallback ratio when the real tokenizer is
// unavailable (offline, or the encoding data can't be fetched), mirroring
// context_builder.py's count_tokens "1 token ≈ 4 characters" heuristic.
const approxCharsPerToken = 4.0

var (
	tokenizerOnce sync.Once
	tokenizer     *tiktoken.Tiktoken
)

func loadTokenizer() {
	enc, err := tiktoken.GetEncoding(cl100kEncoding)
	if err != nil {
		slog.Error("tiktoken encoding load failed, falling back to character-count heuristic", "error", err)
		return
	}
	tokenizer = enc
}

// countTokens returns text's token count, using the real cl100k_base
// tokenizer when available and a character-based estimate otherwise —
// the same graceful degradation context_builder.py's count_tokens
// performs when tiktoken can't be loaded (e.g. no network access to fetch
// its encoding data).
func countTokens(text string) int {
	if text == "" {
		return 0
	}
	tokenizerOnce.Do(loadTokenizer)
	if tokenizer != nil {
		return len(tokenizer.Encode(text, nil, nil))
	}
	n := int(float64(len([]rune(text))) / approxCharsPerToken)
	if n < 1 {
		n = 1
	}
	return n
}
