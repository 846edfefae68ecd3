package secrets

import "testing"

func TestGetWithoutVaultReturnsFallback(t *testing.T) {
	r := New(Config{}, nil)
	if got := r.Get("api_key", "literal-value"); got != "literal-value" {
		t.Fatalf("Get() = %q, want fallback %q", got, "literal-value")
	}
}

func TestGetWithUnreachableVaultFallsBack(t *testing.T) {
	r := New(Config{Addr: "http://127.0.0.1:0", Token: "x", Path: "secret/data/ctwarden"}, nil)
	if got := r.Get("webhook_url", "https://fallback.example/hook"); got != "https://fallback.example/hook" {
		t.Fatalf("Get() = %q, want fallback", got)
	}
}
