package config

// Config is the top-level configuration
type Config struct {
	Identity  IdentityConfig  `json:"identity"`
	Hub       HubConfig       `json:"hub"`
	Channels  ChannelsConfig  `json:"channels"`
	Cron      CronConfig      `json:"cron"`
	Heartbeat HeartbeatConfig `json:"heartbeat"`
}

// IdentityConfig selects the signing credential. Exactly one of PrivateKey
// and Mnemonic must be set; Fid is always required.
type IdentityConfig struct {
	// PrivateKey is 64 hex characters, optional 0x prefix.
	PrivateKey string `json:"privateKey"`
	// Mnemonic is a 12- or 24-word BIP-39 phrase.
	Mnemonic string `json:"mnemonic"`
	// Fid is the numeric account identifier the bot writes as.
	Fid uint64 `json:"fid"`
}

// HubConfig holds node address and auth, passed through to the hub client.
type HubConfig struct {
	URL    string `json:"url"`
	APIKey string `json:"apiKey"`
}

type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
}

type TelegramConfig struct {
	Token        string   `json:"token"`
	AllowedUsers []string `json:"allowedUsers"`
	// AdminChatID receives heartbeat alerts when set.
	AdminChatID string `json:"adminChatId"`
}

type CronConfig struct {
	StorePath string `json:"storePath"`
}

type HeartbeatConfig struct {
	// IntervalSeconds between hub status polls; 0 uses the default.
	IntervalSeconds int `json:"intervalSeconds"`
}

// DefaultConfig returns a Config with sensible defaults applied.
func DefaultConfig() *Config {
	return &Config{
		Hub: HubConfig{
			URL: "http://localhost:2281",
		},
		Cron: CronConfig{
			StorePath: "~/.castbot/cron.json",
		},
	}
}
