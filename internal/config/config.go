package config

import (
	"fmt"
	"regexp"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Indexer   IndexerConfig   `mapstructure:"indexer"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	CopyTrade CopyTradeConfig `mapstructure:"copytrade"`
	Wallets   WalletsConfig   `mapstructure:"wallets"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// IndexerConfig holds Goldsky subgraph configuration
type IndexerConfig struct {
	SubgraphURL    string        `mapstructure:"subgraph_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	Lookback       int           `mapstructure:"lookback"` // orders fetched per wallet
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// MonitorConfig holds polling and swarm detection configuration
type MonitorConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Retention    time.Duration `mapstructure:"retention"`    // trade window horizon
	SwarmWindow  time.Duration `mapstructure:"swarm_window"` // trailing detection interval
	// MinParticipants is the swarm threshold. By default it counts distinct
	// wallets per group key; set count_distinct_wallets to false to count raw
	// trades instead (the legacy rule, which a single busy wallet can trip).
	MinParticipants      int           `mapstructure:"min_participants"`
	CountDistinctWallets bool          `mapstructure:"count_distinct_wallets"`
	AlertCooldown        time.Duration `mapstructure:"alert_cooldown"`
}

// CopyTradeConfig holds copy-trade sizing configuration
type CopyTradeConfig struct {
	Balance float64 `mapstructure:"balance"` // operator bankroll, USD
	Percent float64 `mapstructure:"percent"` // fraction of each whale trade to copy, 0.1–10.0
}

// WalletsConfig holds the tracked whale wallet presets
type WalletsConfig struct {
	Mode   string   `mapstructure:"mode"`   // "all" or "sports"
	Sports []string `mapstructure:"sports"` // sports specialist preset
	Extra  []string `mapstructure:"extra"`  // additional wallets, included in "all"
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// DashboardConfig holds the read-only web dashboard configuration
type DashboardConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	ListenAddr   string        `mapstructure:"listen_addr"`
	MaxTrades    int           `mapstructure:"max_trades"` // display cap for the trade feed
	PushInterval time.Duration `mapstructure:"push_interval"`
}

// StorageConfig holds storage configuration
type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// walletPattern matches a well-formed EVM address.
var walletPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	setDefaults(v)

	v.SetEnvPrefix("SWARMWATCH")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Indexer defaults
	v.SetDefault("indexer.subgraph_url", "https://api.goldsky.com/api/public/project_cl6mb8i9h0003e201j6li0diw/subgraphs/polymarket-subgraph/0.0.6/gn")
	v.SetDefault("indexer.timeout", "10s")
	v.SetDefault("indexer.lookback", 10)
	v.SetDefault("indexer.max_retries", 3)
	v.SetDefault("indexer.retry_delay_base", "1s")

	// Monitor defaults
	v.SetDefault("monitor.poll_interval", "10s")
	v.SetDefault("monitor.retention", "1h")
	v.SetDefault("monitor.swarm_window", "15m")
	v.SetDefault("monitor.min_participants", 3)
	v.SetDefault("monitor.count_distinct_wallets", true)
	v.SetDefault("monitor.alert_cooldown", "1h")

	// Copy-trade defaults
	v.SetDefault("copytrade.balance", 15000.0)
	v.SetDefault("copytrade.percent", 2.0)

	// Wallet defaults
	v.SetDefault("wallets.mode", "all")

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Dashboard defaults
	v.SetDefault("dashboard.enabled", true)
	v.SetDefault("dashboard.listen_addr", ":8080")
	v.SetDefault("dashboard.max_trades", 50)
	v.SetDefault("dashboard.push_interval", "2s")

	// Storage defaults
	v.SetDefault("storage.db_path", "./data/swarmwatch.db")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate Indexer config
	if c.Indexer.SubgraphURL == "" {
		return fmt.Errorf("indexer.subgraph_url is required")
	}
	if c.Indexer.Timeout < 1*time.Second || c.Indexer.Timeout > 60*time.Second {
		return fmt.Errorf("indexer.timeout must be between 1s and 60s")
	}
	if c.Indexer.Lookback < 1 || c.Indexer.Lookback > 100 {
		return fmt.Errorf("indexer.lookback must be between 1 and 100")
	}
	if c.Indexer.MaxRetries < 1 {
		return fmt.Errorf("indexer.max_retries must be at least 1")
	}

	// Validate Monitor config
	if c.Monitor.PollInterval < 1*time.Second {
		return fmt.Errorf("monitor.poll_interval must be at least 1 second")
	}
	if c.Monitor.SwarmWindow < 1*time.Minute {
		return fmt.Errorf("monitor.swarm_window must be at least 1 minute")
	}
	if c.Monitor.Retention < c.Monitor.SwarmWindow {
		return fmt.Errorf("monitor.retention must be at least monitor.swarm_window")
	}
	if c.Monitor.MinParticipants < 2 {
		return fmt.Errorf("monitor.min_participants must be at least 2")
	}
	if c.Monitor.AlertCooldown < 1*time.Minute {
		return fmt.Errorf("monitor.alert_cooldown must be at least 1 minute")
	}

	// Validate copy-trade config
	if c.CopyTrade.Balance < 1000 || c.CopyTrade.Balance > 500000 {
		return fmt.Errorf("copytrade.balance must be between 1000 and 500000")
	}
	if c.CopyTrade.Percent < 0.1 || c.CopyTrade.Percent > 10.0 {
		return fmt.Errorf("copytrade.percent must be between 0.1 and 10.0")
	}

	// Validate wallet config
	if c.Wallets.Mode != "all" && c.Wallets.Mode != "sports" {
		return fmt.Errorf("wallets.mode must be one of: all, sports")
	}
	active := c.ActiveWallets()
	if len(active) == 0 {
		return fmt.Errorf("wallet set must contain at least one address")
	}
	for _, w := range active {
		if !walletPattern.MatchString(w) {
			return fmt.Errorf("malformed wallet address: %s", w)
		}
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	// Validate Dashboard config
	if c.Dashboard.Enabled {
		if c.Dashboard.ListenAddr == "" {
			return fmt.Errorf("dashboard.listen_addr is required when dashboard is enabled")
		}
		if c.Dashboard.MaxTrades < 1 {
			return fmt.Errorf("dashboard.max_trades must be at least 1")
		}
		if c.Dashboard.PushInterval < 100*time.Millisecond {
			return fmt.Errorf("dashboard.push_interval must be at least 100ms")
		}
	}

	// Validate Storage config
	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

// ActiveWallets returns the effective wallet set for the configured mode, in
// configuration order: the sports preset for "sports", the sports preset plus
// extras for "all". Wallets are queried in exactly this order each cycle.
func (c *Config) ActiveWallets() []string {
	wallets := make([]string, 0, len(c.Wallets.Sports)+len(c.Wallets.Extra))
	wallets = append(wallets, c.Wallets.Sports...)
	if c.Wallets.Mode == "all" {
		wallets = append(wallets, c.Wallets.Extra...)
	}
	return wallets
}

// CopyFraction returns the configured copy percentage as a fraction.
func (c *Config) CopyFraction() float64 {
	return c.CopyTrade.Percent / 100.0
}
