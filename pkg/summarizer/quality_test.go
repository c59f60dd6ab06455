package summarizer

import "testing"

func TestEvaluateStructure_AllFourSectionsPresent(t *testing.T) {
	summary := `## 🔍 문제 상황
text
## 🎯 근본 원인
text
## 🔧 해결 과정
text
## 💡 핵심 포인트
1. a`
	if got := evaluateStructure(summary); got != 1.0 {
		t.Fatalf("expected 1.0, got %v", got)
	}
}

func TestEvaluateStructure_PartialSections(t *testing.T) {
	summary := "## 🔍 문제 상황\ntext\n## 💡 핵심 포인트\n1. a"
	got := evaluateStructure(summary)
	if got != 0.5 {
		t.Fatalf("expected 0.5, got %v", got)
	}
}

func TestEvaluateStructure_EnglishMarkersAccepted(t *testing.T) {
	summary := "## Problem Situation\nx\n## Root Cause\nx\n## Resolution Process\nx\n## Key Points\n1. x"
	if got := evaluateStructure(summary); got != 1.0 {
		t.Fatalf("expected 1.0, got %v", got)
	}
}

func TestEvaluateCompletionExtraction_DefaultsToOneWithNoPatterns(t *testing.T) {
	got := evaluateCompletionExtraction("no matching patterns here", "also none")
	if got != 1.0 {
		t.Fatalf("expected 1.0, got %v", got)
	}
}

func TestEvaluateCompletionExtraction_RatioCapped(t *testing.T) {
	original := "resolved"
	summary := "resolved fixed closed"
	got := evaluateCompletionExtraction(original, summary)
	if got != 1.0 {
		t.Fatalf("expected capped 1.0, got %v", got)
	}
}

func TestEvaluateContentFidelity_ClampedRange(t *testing.T) {
	got := evaluateContentFidelity("completely unrelated words here", "totally different content entirely")
	if got < 0.3 || got > 1.0 {
		t.Fatalf("expected value in [0.3, 1.0], got %v", got)
	}
}

func TestEvaluateContentFidelity_EmptyInputsFloor(t *testing.T) {
	if got := evaluateContentFidelity("", ""); got != 0.3 {
		t.Fatalf("expected floor 0.3, got %v", got)
	}
}

func TestEvaluateLanguageQuality_PenalizesErrorIndicators(t *testing.T) {
	got := evaluateLanguageQuality("Error: something went wrong, this is a long enough string to pass length check")
	if got >= 1.0 {
		t.Fatalf("expected penalty applied, got %v", got)
	}
}

func TestEvaluateLanguageQuality_CleanTextScoresOne(t *testing.T) {
	text := "This is a perfectly clean summary with no issues at all in its content, long enough."
	if got := evaluateLanguageQuality(text); got != 1.0 {
		t.Fatalf("expected 1.0, got %v", got)
	}
}

func TestEvaluateLengthAppropriateness_InBand(t *testing.T) {
	text := make([]byte, 500)
	for i := range text {
		text[i] = 'a'
	}
	if got := evaluateLengthAppropriateness(string(text)); got != 1.0 {
		t.Fatalf("expected 1.0, got %v", got)
	}
}

func TestEvaluateLengthAppropriateness_TooShort(t *testing.T) {
	if got := evaluateLengthAppropriateness("short"); got >= 1.0 {
		t.Fatalf("expected penalty for short text, got %v", got)
	}
}

func TestEvaluateLengthAppropriateness_TooLong(t *testing.T) {
	text := make([]byte, 3000)
	for i := range text {
		text[i] = 'a'
	}
	got := evaluateLengthAppropriateness(string(text))
	if got >= 1.0 || got < 0.5 {
		t.Fatalf("expected penalty in [0.5, 1.0), got %v", got)
	}
}

func TestShouldRetry_TrueBelowOverallThreshold(t *testing.T) {
	q := QualityScore{Structure: 1.0, Overall: 0.5}
	if !q.ShouldRetry() {
		t.Fatal("expected retry")
	}
}

func TestShouldRetry_TrueBelowStructureThreshold(t *testing.T) {
	q := QualityScore{Structure: 0.5, Overall: 0.95}
	if !q.ShouldRetry() {
		t.Fatal("expected retry")
	}
}

func TestShouldRetry_FalseWhenBothPass(t *testing.T) {
	q := QualityScore{Structure: 1.0, Overall: 0.95}
	if q.ShouldRetry() {
		t.Fatal("expected no retry")
	}
}

func TestEvaluate_OverallIsWeightedSum(t *testing.T) {
	summary := `## 🔍 문제 상황
resolved
## 🎯 근본 원인
cause
## 🔧 해결 과정
steps
## 💡 핵심 포인트
1. point one
2. point two
`
	q := Evaluate("the customer reported an issue that was resolved after investigation", summary)
	expected := q.Structure*weightStructure + q.Completion*weightCompletion + q.Fidelity*weightFidelity + q.Language*weightLanguage + q.Length*weightLength
	if q.Overall != expected {
		t.Fatalf("expected overall %v, got %v", expected, q.Overall)
	}
}
