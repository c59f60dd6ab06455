package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		LLMProviderRegistry: NewLLMProviderRegistry(map[string]*LLMProviderConfig{
			"google-default": {
				Type:             LLMProviderTypeGoogle,
				Model:            "gemini-2.5-flash",
				MaxContextTokens: 100000,
			},
		}),
		Jobs:           DefaultJobConfig(),
		Retention:      DefaultRetentionConfig(),
		Slack:          &SlackConfig{Enabled: false},
		Encryption:     &EncryptionConfig{MasterKeyEnv: "TARSY_INGEST_MASTER_KEY"},
		TenantDefaults: DefaultTenantDefaults(),
	}
}

func TestValidateAll_Valid(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, NewValidator(cfg).ValidateAll())
}

func TestValidateJobs_InvalidWorkerCount(t *testing.T) {
	cfg := validConfig()
	cfg.Jobs.WorkerCount = 0
	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "worker_count")
}

func TestValidateJobs_HeartbeatMustBeLessThanStaleThreshold(t *testing.T) {
	cfg := validConfig()
	cfg.Jobs.HeartbeatInterval = cfg.Jobs.StaleJobThreshold
	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "heartbeat_interval")
}

func TestValidateRetention_ZeroDays(t *testing.T) {
	cfg := validConfig()
	cfg.Retention.SoftDeleteRetentionDays = 0
	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "soft_delete_retention_days")
}

func TestValidateSlack_EnabledWithoutChannel(t *testing.T) {
	cfg := validConfig()
	cfg.Slack.Enabled = true
	cfg.Slack.TokenEnv = "SLACK_BOT_TOKEN"
	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel")
}

func TestValidateDefaults_InvalidSyncLimit(t *testing.T) {
	cfg := validConfig()
	cfg.TenantDefaults.SyncIngestMaxTickets = 0
	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sync_ingest_max_tickets")
}
