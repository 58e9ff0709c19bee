package config

// Config is the on-disk daemon configuration. JSON and YAML are both
// accepted; YAML is coerced to JSON and decoded strictly, so unknown keys
// fail the load instead of being silently ignored.
type Config struct {
	Logging   LoggingConfig   `json:"logging"`
	Storage   *StorageConfig  `json:"storage,omitempty"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Budget    BudgetConfig    `json:"budget,omitempty"`
	Quota     QuotaConfig     `json:"quota,omitempty"`
	Notify    *NotifyConfig   `json:"notify,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig controls the persistence layer.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./shiftd.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// SchedulerConfig controls the cron trigger service.
type SchedulerConfig struct {
	Enabled bool `json:"enabled"`
	// Tick is the poll interval as a Go duration string. Matching is done
	// per minute window, so a shorter tick only tightens firing latency.
	Tick string `json:"tick,omitempty"`
}

// BudgetConfig tunes run cost estimation.
type BudgetConfig struct {
	// USDPerThousandTokens overrides the default conversion rate when > 0.
	USDPerThousandTokens float64 `json:"usd_per_thousand_tokens,omitempty"`
}

type QuotaConfig struct {
	// MaxPerOwner caps automations per owner. Zero means the default of 20;
	// a negative value disables the quota.
	MaxPerOwner int `json:"max_per_owner,omitempty"`
}

// NotifyConfig controls the async notification pipeline.
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type NotifyConfig struct {
	Enabled       bool   `json:"enabled"`
	WebhookURL    string `json:"webhook_url,omitempty"`
	Workers       int    `json:"workers,omitempty"`
	QueueSize     int    `json:"queue_size,omitempty"`
	RatePerSec    int    `json:"rate_per_sec,omitempty"`
	RetryMax      int    `json:"retry_max,omitempty"`
	RetryBase     string `json:"retry_base,omitempty"`
	RetryMaxDelay string `json:"retry_max_delay,omitempty"`
	SendTimeout   string `json:"send_timeout,omitempty"`
}
