package llm

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/codeready-toolchain/tarsy-ingest/pkg/apperrors"
)

// generateMethod and embedMethod are the full gRPC method paths on the
// self-hosted inference sidecar. The sidecar is expected to accept and
// return google.protobuf.Struct so this client needs no generated stubs of
// its own — structpb.Struct ships pre-compiled in the protobuf-go module
// and stands in for a request/response message defined by a .proto this
// workspace was never given.
const (
	generateMethod = "/tarsy.inference.InferenceService/Generate"
	embedMethod    = "/tarsy.inference.InferenceService/Embed"
)

// GRPCProvider talks to a local inference sidecar over a plain gRPC
// connection, generalizing the teacher's one Gemini-sidecar client into a
// Provider the Router can rank alongside the hosted HTTP providers.
type GRPCProvider struct {
	name string
	conn *grpc.ClientConn
	model string
}

// NewGRPCProvider dials addr (host:port, no scheme) with insecure transport
// credentials, matching the teacher's local-sidecar deployment assumption
// (same pod or a sidecar mesh already terminating TLS upstream).
func NewGRPCProvider(name, addr, model string) (*GRPCProvider, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindLLM, "llm", "dial grpc sidecar", err)
	}
	return &GRPCProvider{name: name, conn: conn, model: model}, nil
}

// Close releases the underlying connection.
func (p *GRPCProvider) Close() error {
	return p.conn.Close()
}

func (p *GRPCProvider) Name() string { return p.name }

// Generate invokes generateMethod with a Struct request payload and decodes
// the Struct response back into a Response.
func (p *GRPCProvider) Generate(ctx context.Context, req Request) (Response, error) {
	start := time.Now()

	in, err := structpb.NewStruct(map[string]interface{}{
		"prompt":        req.Prompt,
		"system_prompt": req.SystemPrompt,
		"max_tokens":    req.MaxTokens,
		"temperature":   float64(req.Temperature),
		"model":         p.model,
	})
	if err != nil {
		return Response{}, apperrors.Wrap(apperrors.KindLLM, "llm", "encode grpc request", err)
	}

	out := &structpb.Struct{}
	if err := p.conn.Invoke(ctx, generateMethod, in, out); err != nil {
		return Response{}, apperrors.Wrap(apperrors.KindLLM, "llm", "grpc sidecar generate", err)
	}

	fields := out.GetFields()
	return Response{
		Text:       fields["text"].GetStringValue(),
		Model:      p.model,
		DurationMs: newDuration(start),
		TokensIn:   int(fields["tokens_in"].GetNumberValue()),
		TokensOut:  int(fields["tokens_out"].GetNumberValue()),
		Provider:   p.name,
	}, nil
}

// Embed invokes embedMethod, decoding a repeated-number "vector" field back
// into a []float32.
func (p *GRPCProvider) Embed(ctx context.Context, model, text string) ([]float32, error) {
	in, err := structpb.NewStruct(map[string]interface{}{
		"model": model,
		"text":  text,
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindLLM, "llm", "encode grpc embed request", err)
	}

	out := &structpb.Struct{}
	if err := p.conn.Invoke(ctx, embedMethod, in, out); err != nil {
		return nil, apperrors.Wrap(apperrors.KindLLM, "llm", "grpc sidecar embed", err)
	}

	values := out.GetFields()["vector"].GetListValue().GetValues()
	vec := make([]float32, len(values))
	for i, v := range values {
		vec[i] = float32(v.GetNumberValue())
	}
	return vec, nil
}
