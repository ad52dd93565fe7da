package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Run modes
const (
	ModeServe  = "serve"
	ModeBrowse = "browse"
)

type Config struct {
	Port         int
	DatabaseURL  string // empty selects the in-memory backend
	DatabaseType string
	Mode         string
	APIURL       string // browse target; empty runs against an in-process backend
	VoterSecret  string // signs voter tokens; empty means a per-process secret

	SeedPolls       int
	VoteFailureRate float64
	SourceLatency   time.Duration

	RefreshInterval time.Duration
	SearchDebounce  time.Duration
	PageSize        int
}

// ParseFlags reads flags, falling back to the environment and then to
// defaults. A .env file in the working directory is loaded first if present.
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	// Missing .env is normal outside development.
	_ = godotenv.Load()

	fs := flag.NewFlagSet("moviepolls", flag.ContinueOnError)

	// Network and storage
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL (empty for in-memory)")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	fs.StringVar(&cfg.Mode, "mode", "", "Run mode (serve or browse)")
	fs.StringVar(&cfg.APIURL, "api", "", "API base URL for browse mode")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.VoterSecret, "voter-secret", "", "Voter token signing secret (prefer env)")

	// Simulated catalogue
	fs.IntVar(&cfg.SeedPolls, "seed", -1, "Polls to generate into an empty backend")
	fs.Float64Var(&cfg.VoteFailureRate, "fail-rate", -1, "Simulated vote failure rate (0-1)")
	fs.DurationVar(&cfg.SourceLatency, "latency", -1, "Simulated source latency")

	// Client engine
	fs.DurationVar(&cfg.RefreshInterval, "refresh", 0, "Live refresh interval")
	fs.DurationVar(&cfg.SearchDebounce, "debounce", 0, "Search debounce delay")
	fs.IntVar(&cfg.PageSize, "page-size", 0, "Polls per page")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 3318 // default
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, fmt.Errorf("unsupported database type %q", cfg.DatabaseType)
	}

	if cfg.Mode == "" {
		cfg.Mode = os.Getenv("MODE")
		if cfg.Mode == "" {
			cfg.Mode = ModeServe
		}
	}
	if cfg.Mode != ModeServe && cfg.Mode != ModeBrowse {
		return Config{}, fmt.Errorf("unknown mode %q", cfg.Mode)
	}
	if cfg.APIURL == "" {
		cfg.APIURL = os.Getenv("API_URL")
	}
	if cfg.VoterSecret == "" {
		cfg.VoterSecret = os.Getenv("VOTER_TOKEN_SECRET")
	}

	var err error
	if cfg.SeedPolls < 0 {
		if cfg.SeedPolls, err = envInt("SEED_POLLS", 2000); err != nil {
			return Config{}, err
		}
	}
	if cfg.VoteFailureRate < 0 {
		if cfg.VoteFailureRate, err = envFloat("VOTE_FAILURE_RATE", 0.07); err != nil {
			return Config{}, err
		}
	}
	if cfg.VoteFailureRate > 1 {
		return Config{}, errors.New("vote failure rate must be between 0 and 1")
	}
	if cfg.SourceLatency < 0 {
		if cfg.SourceLatency, err = envDuration("SOURCE_LATENCY", 200*time.Millisecond); err != nil {
			return Config{}, err
		}
	}
	if cfg.RefreshInterval <= 0 {
		if cfg.RefreshInterval, err = envDuration("REFRESH_INTERVAL", 8*time.Second); err != nil {
			return Config{}, err
		}
	}
	if cfg.SearchDebounce <= 0 {
		if cfg.SearchDebounce, err = envDuration("SEARCH_DEBOUNCE", 300*time.Millisecond); err != nil {
			return Config{}, err
		}
	}
	if cfg.PageSize <= 0 {
		if cfg.PageSize, err = envInt("PAGE_SIZE", 20); err != nil {
			return Config{}, err
		}
	}

	return cfg, nil
}

func envInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s env variable", key)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s env variable", key)
	}
	return f, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s env variable", key)
	}
	return d, nil
}
