package slack

import (
	"context"
	"log/slog"
	"time"
)

// ServiceConfig holds the parameters needed to construct a Service.
type ServiceConfig struct {
	Token   string
	Channel string
}

// Service handles Slack notification delivery.
// Nil-safe: all methods are no-ops when service is nil.
type Service struct {
	client *Client
	logger *slog.Logger
}

// NewService creates a new Slack notification service.
// Returns nil if Token or Channel is empty, so callers can construct it
// unconditionally from config and treat a disabled integration as a no-op.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Token == "" || cfg.Channel == "" {
		return nil
	}
	return &Service{
		client: NewClient(cfg.Token, cfg.Channel),
		logger: slog.Default().With("component", "slack-service"),
	}
}

// NewServiceWithClient creates a Service backed by a pre-built Client.
// Useful for testing with a mock API server.
func NewServiceWithClient(client *Client) *Service {
	return &Service{
		client: client,
		logger: slog.Default().With("component", "slack-service"),
	}
}

// NotifyJobCompleted sends a terminal-status ingestion job notification.
// Fail-open: errors are logged, never returned, since a failed Slack post
// must never fail the ingestion job it is reporting on.
func (s *Service) NotifyJobCompleted(ctx context.Context, input JobCompletedInput) {
	if s == nil {
		return
	}

	blocks := BuildJobCompletedMessage(input)
	if err := s.client.PostMessage(ctx, blocks, "", 10*time.Second); err != nil {
		s.logger.Error("Failed to send Slack job notification",
			"job_id", input.JobID,
			"tenant_id", input.TenantID,
			"status", input.Status,
			"error", err)
	}
}

// NotifyPurgeCompleted sends a data-purge operational notification.
// Fail-open: errors are logged, never returned.
func (s *Service) NotifyPurgeCompleted(ctx context.Context, input PurgeCompletedInput) {
	if s == nil {
		return
	}

	blocks := BuildPurgeCompletedMessage(input)
	if err := s.client.PostMessage(ctx, blocks, "", 5*time.Second); err != nil {
		s.logger.Error("Failed to send Slack purge notification",
			"tenant_id", input.TenantID,
			"platform", input.Platform,
			"error", err)
	}
}
