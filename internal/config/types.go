package config

// Config is the root configuration. YAML and JSON are both accepted;
// unknown fields are rejected so typos fail loudly at load time.
type Config struct {
	Logging  LoggingConfig  `json:"logging"`
	Registry RegistryConfig `json:"registry"`
	Storage  StorageConfig  `json:"storage"`
	Engine   EngineConfig   `json:"engine"`
	Schedule ScheduleConfig `json:"schedule"`
	Channels ChannelsConfig `json:"channels"`
}

type LoggingConfig struct {
	Level   string `json:"level,omitempty"`
	Console bool   `json:"console"`
	File    struct {
		Enabled bool   `json:"enabled"`
		Path    string `json:"path,omitempty"`
	} `json:"file,omitempty"`
}

// RegistryConfig controls the record source and the metadata cache.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "720h").
type RegistryConfig struct {
	BaseURL string `json:"base_url,omitempty"`

	// Lookback is the observation window (default "720h" = 30 days).
	Lookback string `json:"lookback,omitempty"`
	// ChunkDays splits the window into per-request sub-ranges (default 7).
	ChunkDays int `json:"chunk_days,omitempty"`
	// MaxInFlight caps simultaneous fetches (default 4).
	MaxInFlight int `json:"max_in_flight,omitempty"`

	// MetaTTL is the metadata cache staleness window (default "6h").
	MetaTTL string `json:"meta_ttl,omitempty"`
}

type StorageConfig struct {
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string
}

// EngineConfig holds dispatch caps. Caps maps channel names to the number
// of concurrently in-flight deliveries for that channel; 1 serializes a
// channel entirely.
type EngineConfig struct {
	Caps       map[string]int `json:"caps,omitempty"`
	DefaultCap int            `json:"default_cap,omitempty"`
}

type ScheduleConfig struct {
	Spec     string `json:"spec,omitempty"`     // cron, default "30 8 * * *"
	Timezone string `json:"timezone,omitempty"` // IANA TZ
}

type ChannelsConfig struct {
	Telegram *TelegramChannelConfig `json:"telegram,omitempty"`
	Webhook  *WebhookChannelConfig  `json:"webhook,omitempty"`
	Shoutrrr *ShoutrrrChannelConfig `json:"shoutrrr,omitempty"`
}

type TelegramChannelConfig struct {
	Token          string `json:"token"`
	PartsPerSecond int    `json:"parts_per_second,omitempty"`
}

type WebhookChannelConfig struct {
	Endpoint     string `json:"endpoint"`
	MessageLimit int    `json:"message_limit,omitempty"`
	Timeout      string `json:"timeout,omitempty"` // Go duration string
}

type ShoutrrrChannelConfig struct {
	Title        string `json:"title,omitempty"`
	Timeout      string `json:"timeout,omitempty"` // Go duration string
	MessageLimit int    `json:"message_limit,omitempty"`
}
