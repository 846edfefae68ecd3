// Package secrets resolves webhook URLs and the fingerprinter API key
// from HashiCorp Vault KV when configured, falling back to the literal
// config value otherwise.
package secrets

import (
	"fmt"
	"log/slog"

	"github.com/hashicorp/vault/api"
)

// Config points at a Vault KV v2 secret. A zero-value Addr disables
// Vault resolution entirely — Resolver.Get then always returns its
// fallback argument unchanged.
type Config struct {
	Addr  string
	Token string
	Path  string // KV v2 path, e.g. "secret/data/ctwarden"
}

// Resolver resolves a named key out of one Vault secret, caching the
// unwrapped data map for the process lifetime (ctwarden does not rotate
// secrets at runtime; a restart picks up changes).
type Resolver struct {
	logger *slog.Logger
	cfg    Config
	client *api.Client
	data   map[string]interface{}
}

// New builds a Resolver. A Vault client is constructed but not read from
// until the first Get call, so a misconfigured Addr doesn't fail startup.
func New(cfg Config, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resolver{logger: logger, cfg: cfg}
	if cfg.Addr == "" {
		return r
	}

	vc := api.DefaultConfig()
	vc.Address = cfg.Addr
	client, err := api.NewClient(vc)
	if err != nil {
		r.logger.Error("secrets: vault client init failed, falling back to literal config values", "error", err)
		return r
	}
	client.SetToken(cfg.Token)
	r.client = client
	return r
}

// Get returns the string value of key within the configured Vault path,
// or fallback if Vault isn't configured, the read fails, or the key is
// absent. Errors are logged but never fatal — secret material degrading
// to a config-file literal is an acceptable startup posture.
func (r *Resolver) Get(key, fallback string) string {
	if r.client == nil {
		return fallback
	}
	if r.data == nil {
		data, err := r.fetch()
		if err != nil {
			r.logger.Error("secrets: vault read failed, using fallback config value", "path", r.cfg.Path, "error", err)
			r.data = map[string]interface{}{}
		} else {
			r.data = data
		}
	}
	if v, ok := r.data[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func (r *Resolver) fetch() (map[string]interface{}, error) {
	secret, err := r.client.Logical().Read(r.cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("secrets: read %s: %w", r.cfg.Path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("secrets: no data at %s", r.cfg.Path)
	}
	if data, ok := secret.Data["data"].(map[string]interface{}); ok {
		return data, nil // KV v2 envelope
	}
	return secret.Data, nil // KV v1
}
