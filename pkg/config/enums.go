package config

// LLMProviderType defines supported LLM providers.
type LLMProviderType string

const (
	// LLMProviderTypeGoogle is Google Gemini API
	LLMProviderTypeGoogle LLMProviderType = "google"
	// LLMProviderTypeOpenAI is OpenAI API
	LLMProviderTypeOpenAI LLMProviderType = "openai"
	// LLMProviderTypeAnthropic is Anthropic Claude API
	LLMProviderTypeAnthropic LLMProviderType = "anthropic"
	// LLMProviderTypeXAI is xAI Grok API
	LLMProviderTypeXAI LLMProviderType = "xai"
	// LLMProviderTypeVertexAI is Google Vertex AI
	LLMProviderTypeVertexAI LLMProviderType = "vertexai"
	// LLMProviderTypeGRPC is a self-hosted inference sidecar reached over
	// gRPC, generalizing the teacher's local-inference-sidecar pattern to a
	// fourth, non-HTTP provider kind.
	LLMProviderTypeGRPC LLMProviderType = "grpc"
)

// IsValid checks if the LLM provider type is valid.
func (t LLMProviderType) IsValid() bool {
	switch t {
	case LLMProviderTypeGoogle,
		LLMProviderTypeOpenAI,
		LLMProviderTypeAnthropic,
		LLMProviderTypeXAI,
		LLMProviderTypeVertexAI,
		LLMProviderTypeGRPC:
		return true
	default:
		return false
	}
}

// TaskType classifies which generation task a provider may be selected for.
// The LLM Router uses this to keep cheap/light work off the heavy model pool
// and vice versa.
type TaskType string

const (
	// TaskTypeLight covers query embeddings and short classification calls.
	TaskTypeLight TaskType = "light"
	// TaskTypeHeavy covers structured summary generation.
	TaskTypeHeavy TaskType = "heavy"
)

// IsValid checks if the task type is valid.
func (t TaskType) IsValid() bool {
	return t == TaskTypeLight || t == TaskTypeHeavy
}
