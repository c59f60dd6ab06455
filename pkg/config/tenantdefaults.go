package config

// TenantDefaults holds system-wide defaults applied when a tenant hasn't
// overridden a setting in its own TenantSetting rows (pkg/tenantctx).
type TenantDefaults struct {
	// Platform is the default upstream integration for new tenants.
	Platform string `yaml:"platform,omitempty"`

	// SyncIngestMaxTickets is the safety limit spec.md §5.1 enforces on
	// synchronous (non-job) ingestion requests.
	SyncIngestMaxTickets int `yaml:"sync_ingest_max_tickets,omitempty" validate:"omitempty,min=1"`

	// RawDataChunkSize is validated at load time but is not read by the
	// Ingestion Engine: its raw_data chunk files always flush at 1000
	// records, whatever this field is set to.
	RawDataChunkSize int `yaml:"raw_data_chunk_size,omitempty" validate:"omitempty,min=1"`

	// ConversationMaxTurns and ConversationMaxChars bound the /init flow's
	// smart conversation filter.
	ConversationMaxTurns int `yaml:"conversation_max_turns,omitempty"`
	ConversationMaxChars int `yaml:"conversation_max_chars,omitempty"`
}

// DefaultTenantDefaults returns the built-in tenant defaults.
func DefaultTenantDefaults() *TenantDefaults {
	return &TenantDefaults{
		Platform:             "freshdesk",
		SyncIngestMaxTickets: 100,
		RawDataChunkSize:     1000,
		ConversationMaxTurns: 15,
		ConversationMaxChars: 500,
	}
}
