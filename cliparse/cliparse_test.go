// cliparse/cliparse_test.go
package cliparse

import (
	"testing"
	"time"
)

var envKeys = []string{
	"PORT", "DATABASE_URL", "DATABASE_TYPE", "MODE", "API_URL", "VOTER_TOKEN_SECRET", "SEED_POLLS",
	"VOTE_FAILURE_RATE", "SOURCE_LATENCY", "REFRESH_INTERVAL", "SEARCH_DEBOUNCE", "PAGE_SIZE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestParseFlags_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := ParseFlags([]string{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 3318 {
		t.Errorf("expected port 3318, got %d", cfg.Port)
	}
	if cfg.DatabaseURL != "" {
		t.Errorf("expected in-memory backend, got %q", cfg.DatabaseURL)
	}
	if cfg.DatabaseType != "sqlite" {
		t.Errorf("expected sqlite, got %q", cfg.DatabaseType)
	}
	if cfg.Mode != ModeServe {
		t.Errorf("expected serve mode, got %q", cfg.Mode)
	}
	if cfg.SeedPolls != 2000 {
		t.Errorf("expected 2000 seed polls, got %d", cfg.SeedPolls)
	}
	if cfg.VoteFailureRate != 0.07 {
		t.Errorf("expected failure rate 0.07, got %v", cfg.VoteFailureRate)
	}
	if cfg.SourceLatency != 200*time.Millisecond {
		t.Errorf("expected 200ms latency, got %v", cfg.SourceLatency)
	}
	if cfg.RefreshInterval != 8*time.Second {
		t.Errorf("expected 8s refresh, got %v", cfg.RefreshInterval)
	}
	if cfg.SearchDebounce != 300*time.Millisecond {
		t.Errorf("expected 300ms debounce, got %v", cfg.SearchDebounce)
	}
	if cfg.PageSize != 20 {
		t.Errorf("expected page size 20, got %d", cfg.PageSize)
	}
}

func TestParseFlags_EnvVars(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("DATABASE_URL", "file:polls.db")
	t.Setenv("MODE", "browse")
	t.Setenv("VOTE_FAILURE_RATE", "0")
	t.Setenv("REFRESH_INTERVAL", "2s")
	t.Setenv("PAGE_SIZE", "50")
	t.Setenv("VOTER_TOKEN_SECRET", "env-secret")

	cfg, err := ParseFlags([]string{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Port)
	}
	if cfg.DatabaseURL != "file:polls.db" {
		t.Errorf("expected database URL from env, got %q", cfg.DatabaseURL)
	}
	if cfg.Mode != ModeBrowse {
		t.Errorf("expected browse mode, got %q", cfg.Mode)
	}
	if cfg.VoteFailureRate != 0 {
		t.Errorf("expected failure rate 0, got %v", cfg.VoteFailureRate)
	}
	if cfg.RefreshInterval != 2*time.Second {
		t.Errorf("expected 2s refresh, got %v", cfg.RefreshInterval)
	}
	if cfg.PageSize != 50 {
		t.Errorf("expected page size 50, got %d", cfg.PageSize)
	}
	if cfg.VoterSecret != "env-secret" {
		t.Errorf("expected voter secret from env, got %q", cfg.VoterSecret)
	}
}

func TestParseFlags_CLIOverridesEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("SEED_POLLS", "10")

	cfg, err := ParseFlags([]string{"-p", "8080", "-d", "file:test.db", "-seed", "0", "-debounce", "50ms"})
	if err != nil {
		t.Fatal(err)
	}

	// CLI should override env
	if cfg.Port != 8080 {
		t.Errorf("CLI should override env: expected 8080, got %d", cfg.Port)
	}
	if cfg.SeedPolls != 0 {
		t.Errorf("CLI should override env: expected 0 seed polls, got %d", cfg.SeedPolls)
	}
	if cfg.SearchDebounce != 50*time.Millisecond {
		t.Errorf("expected 50ms debounce, got %v", cfg.SearchDebounce)
	}
}

func TestParseFlags_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  map[string]string
	}{
		{"bad port env", nil, map[string]string{"PORT": "abc"}},
		{"bad database type", []string{"-t", "mysql"}, nil},
		{"bad mode", []string{"-mode", "desktop"}, nil},
		{"failure rate above one", []string{"-fail-rate", "1.5"}, nil},
		{"bad refresh env", nil, map[string]string{"REFRESH_INTERVAL": "soon"}},
		{"bad page size env", nil, map[string]string{"PAGE_SIZE": "many"}},
		{"unknown flag", []string{"-x"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := ParseFlags(tt.args); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}
