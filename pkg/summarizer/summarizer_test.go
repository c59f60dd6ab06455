package summarizer

import (
	"context"
	"testing"

	"github.com/codeready-toolchain/tarsy-ingest/pkg/config"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/llm"
)

type fakeProvider struct {
	text string
	err  error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	if f.err != nil {
		return llm.Response{}, f.err
	}
	return llm.Response{Text: f.text, Provider: "fake"}, nil
}

func (f *fakeProvider) Embed(ctx context.Context, model, text string) ([]float32, error) {
	return nil, llm.ErrEmbeddingNotSupported
}

func newTestRouter(p llm.Provider) *llm.Router {
	providers := map[string]*config.LLMProviderConfig{
		"fake": {Type: config.LLMProviderTypeOpenAI, Model: "test-model", Weight: 1, MaxContextTokens: 1000},
	}
	registry := config.NewLLMProviderRegistry(providers)
	return llm.NewRouter(registry, map[string]llm.Provider{"fake": p})
}

const wellFormedSummary = `## 🔍 문제 상황
고객이 로그인 오류를 보고했습니다.
## 🎯 근본 원인
세션 토큰 만료.
## 🔧 해결 과정
토큰을 재발급하고 재로그인 안내.
## 💡 핵심 포인트
1. 세션 만료 확인
2. 재발급 절차 안내
3. 재현 여부 확인
`

func TestSummarizer_Generate_ParsesKeyPoints(t *testing.T) {
	s := New(newTestRouter(&fakeProvider{text: wellFormedSummary}))

	summary, err := s.Generate(context.Background(), Ticket{ID: "T-1", Subject: "login issue", Body: "cannot log in"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(summary.KeyPoints) != 3 {
		t.Fatalf("expected 3 key points, got %d: %v", len(summary.KeyPoints), summary.KeyPoints)
	}
	if summary.RawText != wellFormedSummary {
		t.Fatalf("expected raw text preserved")
	}
}

func TestSummarizer_Generate_PropagatesProviderError(t *testing.T) {
	s := New(newTestRouter(&fakeProvider{err: llm.ErrNoHealthyProvider}))

	_, err := s.Generate(context.Background(), Ticket{ID: "T-1", Subject: "x", Body: "y"})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestBuildContext_CapsHistory(t *testing.T) {
	long := make([]byte, 400)
	for i := range long {
		long[i] = 'x'
	}
	conversations := make([]Conversation, 0, 8)
	for i := 0; i < 8; i++ {
		conversations = append(conversations, Conversation{FromCustomer: i%2 == 0, Body: string(long)})
	}

	ctxText := BuildContext(Ticket{Subject: "s", Body: "b", Conversations: conversations}, defaultHistoryTurns)

	if got := countOccurrences(ctxText, "Customer:") + countOccurrences(ctxText, "Agent:"); got != defaultHistoryTurns {
		t.Fatalf("expected %d turns rendered, got %d", defaultHistoryTurns, got)
	}
}

func countOccurrences(haystack, needle string) int {
	count := 0
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			count++
		}
	}
	return count
}
