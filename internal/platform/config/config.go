package config

import (
	"errors"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures everything the process reads from the environment so
// main stays lean. Admin credentials are the only values without a
// development default.
type Server struct {
	Addr   string
	DBPath string

	// Token service
	SigningSecret     string
	SigningAlgorithm  string
	AdminUsername     string
	AdminPasswordHash string
	TokenTTL          time.Duration
	Issuer            string
	Audience          string

	// Idempotency cache
	IdempotencyTTL      time.Duration
	IdempotencyCapacity int

	// Rate limits, per route category
	CommentPerMinute  int
	CommentPerHour    int
	ReactionPerMinute int
	ReactionPerHour   int

	// Proxies whose X-Forwarded-For headers are believed
	TrustedProxies []netip.Prefix
}

// ErrMissingAdminCredentials is returned when the configured admin
// identity is absent. The service refuses to start without one.
var ErrMissingAdminCredentials = errors.New("ADMIN_USERNAME and ADMIN_PASSWORD_HASH must be set")

// FromEnv builds a Server config from environment variables.
func FromEnv() (Server, error) {
	cfg := Server{
		Addr:   envString("INKWELL_ADDR", ":8080"),
		DBPath: envString("INKWELL_DB", "inkwell.db"),

		SigningSecret:     envString("SECRET_KEY", "dev-secret-key-change-in-production"),
		SigningAlgorithm:  envString("ALGORITHM", "HS256"),
		AdminUsername:     os.Getenv("ADMIN_USERNAME"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		TokenTTL:          time.Duration(envInt("ACCESS_TOKEN_EXPIRE_MINUTES", 30)) * time.Minute,
		Issuer:            envString("ISSUER", "inkwell"),
		Audience:          envString("AUDIENCE", "inkwell-api"),

		IdempotencyTTL:      envDuration("INKWELL_IDEMPOTENCY_TTL", time.Hour),
		IdempotencyCapacity: envInt("INKWELL_IDEMPOTENCY_CAPACITY", 100_000),

		CommentPerMinute:  envInt("INKWELL_RL_COMMENT_PER_MIN", 3),
		CommentPerHour:    envInt("INKWELL_RL_COMMENT_PER_HOUR", 20),
		ReactionPerMinute: envInt("INKWELL_RL_REACTION_PER_MIN", 10),
		ReactionPerHour:   envInt("INKWELL_RL_REACTION_PER_HOUR", 100),
	}

	if cfg.AdminUsername == "" || cfg.AdminPasswordHash == "" {
		return Server{}, ErrMissingAdminCredentials
	}

	proxies, err := parsePrefixes(os.Getenv("INKWELL_TRUSTED_PROXIES"))
	if err != nil {
		return Server{}, err
	}
	cfg.TrustedProxies = proxies

	return cfg, nil
}

// parsePrefixes parses a comma-separated list of CIDR prefixes. Bare
// addresses are accepted as single-host prefixes.
func parsePrefixes(raw string) ([]netip.Prefix, error) {
	if raw == "" {
		return nil, nil
	}
	var prefixes []netip.Prefix
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !strings.Contains(part, "/") {
			addr, err := netip.ParseAddr(part)
			if err != nil {
				return nil, err
			}
			prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		prefix, err := netip.ParsePrefix(part)
		if err != nil {
			return nil, err
		}
		prefixes = append(prefixes, prefix)
	}
	return prefixes, nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
