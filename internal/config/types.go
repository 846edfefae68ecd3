// Package config loads and validates ctwarden's configuration using
// Viper: YAML file with environment-variable overrides, validated once
// at startup so downstream components can trust the shape.
//
// Environment variables use the CTWARDEN_ prefix and underscore-separated
// keys, e.g. CTWARDEN_CERTSTREAM_URL -> certstream.url.
package config

import (
	"os"
	"strings"
	"time"
)

// CertstreamConfig is the upstream CT WebSocket firehose (spec.md §6).
type CertstreamConfig struct {
	URL        string   `yaml:"url"        mapstructure:"url"`
	Exclusions []string `yaml:"exclusions" mapstructure:"exclusions"`
}

// APISource is one operator-configured wildcard-pattern API (spec.md §6
// "apis[]").
type APISource struct {
	Name    string            `yaml:"name"    mapstructure:"name"`
	URL     string            `yaml:"url"     mapstructure:"url"`
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`
	Enabled bool              `yaml:"enabled" mapstructure:"enabled"`
}

// PortSpec is one {protocol, port} the Prober tries against a resolved
// host (spec.md §6 "http.ports[]").
type PortSpec struct {
	Protocol string `yaml:"protocol" mapstructure:"protocol"`
	Port     int    `yaml:"port"     mapstructure:"port"`
}

// HTTPConfig tunes the Prober.
type HTTPConfig struct {
	Ports   []PortSpec    `yaml:"ports"   mapstructure:"ports"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// FingerprinterConfig is the external fingerprinting service.
type FingerprinterConfig struct {
	URL          string   `yaml:"url"           mapstructure:"url"`
	APIKey       string   `yaml:"api_key"       mapstructure:"api_key"`
	CallbackURLs []string `yaml:"callback_urls" mapstructure:"callback_urls"`
}

// DiscordConfig is the notification webhook pair plus the stats
// reporter's cadence (spec.md §6).
type DiscordConfig struct {
	MessagesWebhook string        `yaml:"messages_webhook" mapstructure:"messages_webhook"`
	LogsWebhook     string        `yaml:"logs_webhook"     mapstructure:"logs_webhook"`
	StatsInterval   time.Duration `yaml:"stats_interval"   mapstructure:"stats_interval"`
	Username        string        `yaml:"username"         mapstructure:"username"`
}

// LoggingConfig controls the slog handler (spec.md §6).
type LoggingConfig struct {
	Level         string `yaml:"level"          mapstructure:"level"`
	ConsoleColors bool   `yaml:"console_colors" mapstructure:"console_colors"`
}

// ShutdownConfig bounds graceful drain on SIGINT/SIGTERM.
type ShutdownConfig struct {
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ConcurrencyConfig bounds the WorkerPool's elastic worker fleet.
type ConcurrencyConfig struct {
	Min int `yaml:"min" mapstructure:"min"`
	Max int `yaml:"max" mapstructure:"max"`
}

// DatabaseConfig tunes persistence and the retry-queue sweep.
type DatabaseConfig struct {
	Path          string        `yaml:"path"           mapstructure:"path"`
	RetryInterval time.Duration `yaml:"retry_interval" mapstructure:"retry_interval"`
	MaxRetries    int           `yaml:"max_retries"    mapstructure:"max_retries"`
}

// PipelineConfig tunes the WorkerPool's queue. QueueOverflow is
// validated to "drop" or "block" but is not passed to the pool, which
// always drops the newest job when its queue is full; "block" has no
// effect.
type PipelineConfig struct {
	QueueMax         int    `yaml:"queue_max"         mapstructure:"queue_max"`
	QueueOverflow    string `yaml:"queue_overflow"    mapstructure:"queue_overflow"` // "drop" or "block"
	DropSelfWildcard bool   `yaml:"drop_self_wildcard" mapstructure:"drop_self_wildcard"`
}

// ResolverConfig tunes the DNS resolver; not named directly in spec.md
// §6's key list but required to construct a resolver.Config.
type ResolverConfig struct {
	Upstream string        `yaml:"upstream" mapstructure:"upstream"`
	Timeout  time.Duration `yaml:"timeout"  mapstructure:"timeout"`
	TryAAAA  bool          `yaml:"try_aaaa" mapstructure:"try_aaaa"`
	MaxQPS   int           `yaml:"max_qps"  mapstructure:"max_qps"`
}

// DedupConfig tunes the Deduplicator.
type DedupConfig struct {
	MaxEntries int           `yaml:"max_entries" mapstructure:"max_entries"`
	Window     time.Duration `yaml:"window"      mapstructure:"window"`
}

// SecretsConfig is the EXPANSION's optional Vault KV binding.
type SecretsConfig struct {
	VaultAddr  string `yaml:"vault_addr"  mapstructure:"vault_addr"`
	VaultToken string `yaml:"vault_token" mapstructure:"vault_token"`
	VaultPath  string `yaml:"vault_path"  mapstructure:"vault_path"`
}

// MetricsConfig is the EXPANSION's optional Prometheus exposition.
type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"     mapstructure:"enabled"`
	ListenAddr string `yaml:"listen_addr" mapstructure:"listen_addr"`
}

// APIConfig is the EXPANSION's read-only health/stats HTTP surface.
type APIConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Host    string `yaml:"host"    mapstructure:"host"`
	Port    int    `yaml:"port"    mapstructure:"port"`
}

// Config is the root configuration structure.
type Config struct {
	Certstream          CertstreamConfig    `yaml:"certstream"          mapstructure:"certstream"`
	APIs                []APISource         `yaml:"apis"                mapstructure:"apis"`
	WildcardsUpdateIntv time.Duration       `yaml:"wildcards_update_interval" mapstructure:"wildcards_update_interval"`
	HTTP                HTTPConfig          `yaml:"http"                mapstructure:"http"`
	Fingerprinter       FingerprinterConfig `yaml:"fingerprinter"       mapstructure:"fingerprinter"`
	Discord             DiscordConfig       `yaml:"discord"             mapstructure:"discord"`
	Logging             LoggingConfig       `yaml:"logging"             mapstructure:"logging"`
	Shutdown            ShutdownConfig      `yaml:"shutdown"            mapstructure:"shutdown"`
	Concurrency         ConcurrencyConfig   `yaml:"concurrency"         mapstructure:"concurrency"`
	Database            DatabaseConfig      `yaml:"database"            mapstructure:"database"`
	Pipeline            PipelineConfig      `yaml:"pipeline"            mapstructure:"pipeline"`
	Resolver            ResolverConfig      `yaml:"resolver"            mapstructure:"resolver"`
	Dedup               DedupConfig         `yaml:"dedup"               mapstructure:"dedup"`
	Secrets             SecretsConfig       `yaml:"secrets"             mapstructure:"secrets"`
	Metrics             MetricsConfig       `yaml:"metrics"             mapstructure:"metrics"`
	API                 APIConfig           `yaml:"api"                 mapstructure:"api"`
}

// ResolveConfigPath determines the config file path from flag or
// environment.
func ResolveConfigPath(flagValue string) string {
	if strings.TrimSpace(flagValue) != "" {
		return flagValue
	}
	if v := strings.TrimSpace(os.Getenv("CTWARDEN_CONFIG")); v != "" {
		return v
	}
	return ""
}

// Load loads configuration from a YAML file with environment variable
// overrides. This is the main entry point for loading configuration.
//
// Configuration priority (highest to lowest):
//  1. Environment variables (CTWARDEN_*)
//  2. Config file values
//  3. Default values
func Load(path string) (*Config, error) {
	return loadFromSource(path)
}
