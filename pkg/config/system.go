package config

// SlackConfig holds resolved Slack notification settings, used for
// job-completion and purge-data operational notifications.
type SlackConfig struct {
	Enabled  bool   // Whether Slack notifications are sent at all
	TokenEnv string // Env var name containing the bot token (default: "SLACK_BOT_TOKEN")
	Channel  string // Channel to post to
}

// EncryptionConfig holds resolved tenant-secret encryption settings. The
// actual key material lives in a SystemSetting row, generated on first boot
// if absent (pkg/tenantctx); this only names where to find the seed.
type EncryptionConfig struct {
	MasterKeyEnv string // Env var that may override the stored master key, for key rotation
}
