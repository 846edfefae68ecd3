package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// initConfig sets up the config loader with defaults, env binding, and
// config file.
func initConfig(configPath string) (*viper.Viper, error) {
	v := viper.New()

	setDefaults(v)

	// Uses CTWARDEN_ prefix: CTWARDEN_CERTSTREAM_URL -> certstream.url
	v.SetEnvPrefix("CTWARDEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return v, nil
}

// setDefaults configures every default named in spec.md §6 plus the
// EXPANSION block (SPEC_FULL.md §6).
func setDefaults(v *viper.Viper) {
	v.SetDefault("certstream.url", "wss://certstream.calidog.io")
	v.SetDefault("certstream.exclusions", []string{})

	v.SetDefault("apis", []APISource{})
	v.SetDefault("wildcards_update_interval", "24h")

	v.SetDefault("http.ports", []PortSpec{{Protocol: "https", Port: 443}, {Protocol: "http", Port: 80}})
	v.SetDefault("http.timeout", "5s")

	v.SetDefault("fingerprinter.url", "")
	v.SetDefault("fingerprinter.api_key", "")
	v.SetDefault("fingerprinter.callback_urls", []string{})

	v.SetDefault("discord.messages_webhook", "")
	v.SetDefault("discord.logs_webhook", "")
	v.SetDefault("discord.stats_interval", "3h")
	v.SetDefault("discord.username", "ctwarden")

	v.SetDefault("logging.level", "INFO")
	v.SetDefault("logging.console_colors", true)

	v.SetDefault("shutdown.timeout", "30s")

	v.SetDefault("concurrency.min", 10)
	v.SetDefault("concurrency.max", 50)

	v.SetDefault("database.path", "ctwarden.db")
	v.SetDefault("database.retry_interval", "3h")
	v.SetDefault("database.max_retries", 10)

	v.SetDefault("pipeline.queue_max", 50000)
	v.SetDefault("pipeline.queue_overflow", "drop")
	v.SetDefault("pipeline.drop_self_wildcard", true)

	v.SetDefault("resolver.upstream", "1.1.1.1:53")
	v.SetDefault("resolver.timeout", "2s")
	v.SetDefault("resolver.try_aaaa", false)
	v.SetDefault("resolver.max_qps", 500)

	v.SetDefault("dedup.max_entries", 100000)
	v.SetDefault("dedup.window", "10m")

	v.SetDefault("secrets.vault_addr", "")
	v.SetDefault("secrets.vault_token", "")
	v.SetDefault("secrets.vault_path", "")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen_addr", "127.0.0.1:9090")

	v.SetDefault("api.enabled", false)
	v.SetDefault("api.host", "127.0.0.1")
	v.SetDefault("api.port", 8090)
}

// loadFromSource loads configuration from file and environment.
func loadFromSource(configPath string) (*Config, error) {
	v, err := initConfig(configPath)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}

	loadCertstreamConfig(v, cfg)
	if err := loadAPIsConfig(v, cfg); err != nil {
		return nil, err
	}
	cfg.WildcardsUpdateIntv = v.GetDuration("wildcards_update_interval")
	loadHTTPConfig(v, cfg)
	loadFingerprinterConfig(v, cfg)
	loadDiscordConfig(v, cfg)
	loadLoggingConfig(v, cfg)
	cfg.Shutdown.Timeout = v.GetDuration("shutdown.timeout")
	loadConcurrencyConfig(v, cfg)
	loadDatabaseConfig(v, cfg)
	loadPipelineConfig(v, cfg)
	loadResolverConfig(v, cfg)
	loadDedupConfig(v, cfg)
	loadSecretsConfig(v, cfg)
	loadMetricsConfig(v, cfg)
	loadAPIServerConfig(v, cfg)

	if err := normalizeConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadCertstreamConfig(v *viper.Viper, cfg *Config) {
	cfg.Certstream.URL = v.GetString("certstream.url")
	cfg.Certstream.Exclusions = getStringSliceOrSplit(v, "certstream.exclusions")
}

func loadAPIsConfig(v *viper.Viper, cfg *Config) error {
	if err := v.UnmarshalKey("apis", &cfg.APIs); err != nil {
		return fmt.Errorf("apis: %w", err)
	}
	return nil
}

func loadHTTPConfig(v *viper.Viper, cfg *Config) {
	if err := v.UnmarshalKey("http.ports", &cfg.HTTP.Ports); err != nil || len(cfg.HTTP.Ports) == 0 {
		cfg.HTTP.Ports = []PortSpec{{Protocol: "https", Port: 443}, {Protocol: "http", Port: 80}}
	}
	cfg.HTTP.Timeout = v.GetDuration("http.timeout")
}

func loadFingerprinterConfig(v *viper.Viper, cfg *Config) {
	cfg.Fingerprinter.URL = v.GetString("fingerprinter.url")
	cfg.Fingerprinter.APIKey = v.GetString("fingerprinter.api_key")
	cfg.Fingerprinter.CallbackURLs = getStringSliceOrSplit(v, "fingerprinter.callback_urls")
}

func loadDiscordConfig(v *viper.Viper, cfg *Config) {
	cfg.Discord.MessagesWebhook = v.GetString("discord.messages_webhook")
	cfg.Discord.LogsWebhook = v.GetString("discord.logs_webhook")
	cfg.Discord.StatsInterval = v.GetDuration("discord.stats_interval")
	cfg.Discord.Username = v.GetString("discord.username")
}

func loadLoggingConfig(v *viper.Viper, cfg *Config) {
	cfg.Logging.Level = strings.ToUpper(v.GetString("logging.level"))
	cfg.Logging.ConsoleColors = v.GetBool("logging.console_colors")
}

func loadConcurrencyConfig(v *viper.Viper, cfg *Config) {
	cfg.Concurrency.Min = v.GetInt("concurrency.min")
	cfg.Concurrency.Max = v.GetInt("concurrency.max")
}

func loadDatabaseConfig(v *viper.Viper, cfg *Config) {
	cfg.Database.Path = v.GetString("database.path")
	cfg.Database.RetryInterval = v.GetDuration("database.retry_interval")
	cfg.Database.MaxRetries = v.GetInt("database.max_retries")
}

func loadPipelineConfig(v *viper.Viper, cfg *Config) {
	cfg.Pipeline.QueueMax = v.GetInt("pipeline.queue_max")
	cfg.Pipeline.QueueOverflow = strings.ToLower(v.GetString("pipeline.queue_overflow"))
	cfg.Pipeline.DropSelfWildcard = v.GetBool("pipeline.drop_self_wildcard")
}

func loadResolverConfig(v *viper.Viper, cfg *Config) {
	cfg.Resolver.Upstream = v.GetString("resolver.upstream")
	cfg.Resolver.Timeout = v.GetDuration("resolver.timeout")
	cfg.Resolver.TryAAAA = v.GetBool("resolver.try_aaaa")
	cfg.Resolver.MaxQPS = v.GetInt("resolver.max_qps")
}

func loadDedupConfig(v *viper.Viper, cfg *Config) {
	cfg.Dedup.MaxEntries = v.GetInt("dedup.max_entries")
	cfg.Dedup.Window = v.GetDuration("dedup.window")
}

func loadSecretsConfig(v *viper.Viper, cfg *Config) {
	cfg.Secrets.VaultAddr = v.GetString("secrets.vault_addr")
	cfg.Secrets.VaultToken = v.GetString("secrets.vault_token")
	cfg.Secrets.VaultPath = v.GetString("secrets.vault_path")
}

func loadMetricsConfig(v *viper.Viper, cfg *Config) {
	cfg.Metrics.Enabled = v.GetBool("metrics.enabled")
	cfg.Metrics.ListenAddr = v.GetString("metrics.listen_addr")
}

func loadAPIServerConfig(v *viper.Viper, cfg *Config) {
	cfg.API.Enabled = v.GetBool("api.enabled")
	cfg.API.Host = v.GetString("api.host")
	cfg.API.Port = v.GetInt("api.port")
}

// getStringSliceOrSplit handles both slice and comma-separated string
// values, which env-var overrides frequently arrive as.
func getStringSliceOrSplit(v *viper.Viper, key string) []string {
	if slice := v.GetStringSlice(key); len(slice) > 0 {
		result := make([]string, 0, len(slice))
		for _, s := range slice {
			if s = strings.TrimSpace(s); s != "" {
				result = append(result, s)
			}
		}
		return result
	}
	if s := v.GetString(key); s != "" {
		parts := strings.Split(s, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				result = append(result, p)
			}
		}
		return result
	}
	return nil
}

// normalizeConfig validates and normalizes the configuration, returning a
// ConfigError-equivalent fatal error on anything that would leave the
// pipeline unable to start (spec.md §7: ConfigError is fatal, exit 1).
func normalizeConfig(cfg *Config) error {
	if strings.TrimSpace(cfg.Certstream.URL) == "" {
		return errors.New("certstream.url must be set")
	}

	if cfg.Concurrency.Min <= 0 {
		cfg.Concurrency.Min = 10
	}
	if cfg.Concurrency.Max < cfg.Concurrency.Min {
		cfg.Concurrency.Max = cfg.Concurrency.Min
	}

	if cfg.Pipeline.QueueOverflow != "drop" && cfg.Pipeline.QueueOverflow != "block" {
		cfg.Pipeline.QueueOverflow = "drop"
	}
	if cfg.Pipeline.QueueMax <= 0 {
		cfg.Pipeline.QueueMax = 50000
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "INFO"
	}

	if cfg.Discord.Username == "" {
		cfg.Discord.Username = "ctwarden"
	}
	if cfg.Discord.StatsInterval <= 0 {
		cfg.Discord.StatsInterval = 3 * time.Hour
	}

	if cfg.Shutdown.Timeout <= 0 {
		cfg.Shutdown.Timeout = 30 * time.Second
	}

	if cfg.Database.MaxRetries < 0 {
		cfg.Database.MaxRetries = 10
	}
	if cfg.Database.RetryInterval <= 0 {
		cfg.Database.RetryInterval = 3 * time.Hour
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "ctwarden.db"
	}

	if cfg.WildcardsUpdateIntv <= 0 {
		cfg.WildcardsUpdateIntv = 24 * time.Hour
	}

	if cfg.API.Enabled {
		if cfg.API.Port <= 0 || cfg.API.Port > 65535 {
			return errors.New("api.port must be 1..65535 when api.enabled is true")
		}
		if cfg.API.Host == "" {
			cfg.API.Host = "127.0.0.1"
		}
	}

	if cfg.Metrics.Enabled && cfg.Metrics.ListenAddr == "" {
		return errors.New("metrics.listen_addr must be set when metrics.enabled is true")
	}

	return nil
}
