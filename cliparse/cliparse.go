package cliparse

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// Auth modes
const (
	AuthModeSSO = "sso"
	AuthModeJWT = "jwt"
)

// Database types
const (
	DatabasePostgres = "postgres"
	DatabaseSQLite   = "sqlite"
)

type Config struct {
	Port         int
	DatabaseURL  string
	DatabaseType string

	AuthMode   string
	SSOURL     string
	SSOTimeout time.Duration
	JWTSecret  string

	Timezone   string
	CORSOrigin string
	DevMode    bool

	VoteLimit     int
	VoteWindow    time.Duration
	CreateLimit   int
	CreateWindow  time.Duration
	GeneralLimit  int
	GeneralWindow time.Duration

	// Proxies whose X-Forwarded-For / X-Real-IP headers are believed
	TrustedProxies []netip.Prefix

	// Share pages link to {PublicBaseURL}/share/{id} and redirect to
	// {ShareRedirectURL}/#/polls/{id}
	PublicBaseURL    string
	ShareRedirectURL string

	LogLevel  string
	LogFormat string
}

// Location resolves the configured timezone used for date bucketing.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

// ParseFlags parses CLI flags, falling back to environment variables.
// A .env file in the working directory is loaded first when present; it
// never overrides variables that are already set.
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	fs := pflag.NewFlagSet("quickly-vote", pflag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVarP(&cfg.Port, "port", "p", 0, "Server port")
	fs.StringVarP(&cfg.DatabaseURL, "database-url", "d", "", "Database URL")
	fs.StringVarP(&cfg.DatabaseType, "database-type", "t", "", "Database type (sqlite or postgres)")

	// Identity provider
	fs.StringVar(&cfg.AuthMode, "auth-mode", "", "Identity verification mode (sso or jwt)")
	fs.StringVar(&cfg.SSOURL, "sso-url", "", "SSO service base URL")
	fs.DurationVar(&cfg.SSOTimeout, "sso-timeout", 0, "SSO verify call timeout")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", "", "HS256 secret for jwt mode (prefer env)")

	fs.StringVar(&cfg.Timezone, "timezone", "", "IANA timezone for vote histograms")
	fs.StringVar(&cfg.CORSOrigin, "cors-origin", "", "Allowed CORS origin")
	fs.BoolVar(&cfg.DevMode, "dev", false, "Include internal error detail in responses")

	fs.IntVar(&cfg.VoteLimit, "vote-limit", 0, "Votes allowed per window per client")
	fs.DurationVar(&cfg.VoteWindow, "vote-window", 0, "Vote rate limit window")
	fs.IntVar(&cfg.CreateLimit, "create-limit", 0, "Polls allowed per window per client")
	fs.DurationVar(&cfg.CreateWindow, "create-window", 0, "Poll creation rate limit window")
	fs.IntVar(&cfg.GeneralLimit, "general-limit", 0, "Requests allowed per window per client IP")
	fs.DurationVar(&cfg.GeneralWindow, "general-window", 0, "General rate limit window")
	var proxies []string
	fs.StringSliceVar(&proxies, "trusted-proxies", nil, "Proxy IPs or CIDRs allowed to set forwarding headers")

	fs.StringVar(&cfg.PublicBaseURL, "public-url", "", "Public base URL of this API, used in share pages")
	fs.StringVar(&cfg.ShareRedirectURL, "share-redirect-url", "", "Frontend URL share pages redirect to")

	fs.StringVar(&cfg.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log-format", "", "Log format (text or json)")

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
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = DatabaseSQLite
		}
	}
	if cfg.DatabaseType != DatabaseSQLite && cfg.DatabaseType != DatabasePostgres {
		return Config{}, fmt.Errorf("unsupported database type %q", cfg.DatabaseType)
	}

	cfg.AuthMode = stringOr(cfg.AuthMode, "AUTH_MODE", AuthModeSSO)
	cfg.SSOURL = stringOr(cfg.SSOURL, "SSO_SERVICE_URL", "")
	cfg.JWTSecret = stringOr(cfg.JWTSecret, "JWT_SECRET", "")

	switch cfg.AuthMode {
	case AuthModeSSO:
		if cfg.SSOURL == "" {
			return Config{}, errors.New("SSO_SERVICE_URL required in sso auth mode")
		}
	case AuthModeJWT:
		// Secrets - MUST be provided
		if cfg.JWTSecret == "" {
			return Config{}, errors.New("JWT_SECRET required in jwt auth mode")
		}
	default:
		return Config{}, fmt.Errorf("unsupported auth mode %q", cfg.AuthMode)
	}

	var err error
	if cfg.SSOTimeout, err = durationOr(cfg.SSOTimeout, "SSO_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}

	cfg.Timezone = stringOr(cfg.Timezone, "TIMEZONE", "UTC")
	if _, err := cfg.Location(); err != nil {
		return Config{}, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	cfg.CORSOrigin = stringOr(cfg.CORSOrigin, "CORS_ORIGIN", "*")

	if !cfg.DevMode {
		cfg.DevMode = os.Getenv("DEV_MODE") == "true" || os.Getenv("DEV_MODE") == "1"
	}

	if cfg.VoteLimit, err = intOr(cfg.VoteLimit, "RATE_LIMIT_MAX_REQUESTS", 10); err != nil {
		return Config{}, err
	}
	if cfg.VoteWindow, err = durationOr(cfg.VoteWindow, "RATE_LIMIT_WINDOW", 15*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.CreateLimit, err = intOr(cfg.CreateLimit, "CREATE_POLL_LIMIT", 5); err != nil {
		return Config{}, err
	}
	if cfg.CreateWindow, err = durationOr(cfg.CreateWindow, "CREATE_POLL_WINDOW", time.Hour); err != nil {
		return Config{}, err
	}

	if cfg.GeneralLimit, err = intOr(cfg.GeneralLimit, "GENERAL_RATE_LIMIT", 100); err != nil {
		return Config{}, err
	}
	if cfg.GeneralWindow, err = durationOr(cfg.GeneralWindow, "GENERAL_RATE_WINDOW", 15*time.Minute); err != nil {
		return Config{}, err
	}

	if len(proxies) == 0 {
		if v := os.Getenv("TRUSTED_PROXIES"); v != "" {
			proxies = strings.Split(v, ",")
		}
	}
	if cfg.TrustedProxies, err = parseProxies(proxies); err != nil {
		return Config{}, err
	}

	cfg.PublicBaseURL = strings.TrimRight(stringOr(cfg.PublicBaseURL, "PUBLIC_BASE_URL", ""), "/")
	cfg.ShareRedirectURL = strings.TrimRight(stringOr(cfg.ShareRedirectURL, "SHARE_REDIRECT_URL", "http://localhost:3000"), "/")

	cfg.LogLevel = stringOr(cfg.LogLevel, "LOG_LEVEL", "info")
	cfg.LogFormat = stringOr(cfg.LogFormat, "LOG_FORMAT", "text")

	return cfg, nil
}

func stringOr(current, env, fallback string) string {
	if current != "" {
		return current
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	return fallback
}

func intOr(current int, env string, fallback int) (int, error) {
	if current != 0 {
		return current, nil
	}
	v := os.Getenv(env)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s env variable", env)
	}
	return n, nil
}

func durationOr(current time.Duration, env string, fallback time.Duration) (time.Duration, error) {
	if current != 0 {
		return current, nil
	}
	v := os.Getenv(env)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s env variable", env)
	}
	return d, nil
}

// parseProxies accepts bare addresses and CIDR prefixes.
func parseProxies(list []string) ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	for _, entry := range list {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}
