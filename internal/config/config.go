// Package config handles configuration for the API server, layering defaults,
// an optional .env file, MIABE_* environment variables and command-line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "MIABE_"

// Config holds runtime settings for the API server.
type Config struct {
	HTTPAddr    string
	DatabaseDSN string
	AutoMigrate bool
	LogLevel    string

	AuthSecret string
	AuthIssuer string

	ReferrerReward        int64
	RedeemerReward        int64
	ReferralCodeLength    int
	JoinCodeLength        int
	MaxIdentifierAttempts int

	RateBurst      int
	RatePerSecond  int
	AllowedOrigins []string
	TrustedProxies []string

	VideoProviderURL     string
	VideoProviderKey     string
	VideoPollInterval    time.Duration
	VideoMaxPollAttempts int
	VideoSweep           bool

	S3Bucket        string
	S3Region        string
	S3Endpoint      string
	S3AccessKey     string
	S3SecretKey     string
	S3PublicBaseURL string
	S3PresignTTL    time.Duration
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":8080"
	c.LogLevel = "info"
	c.AuthIssuer = ""
	c.ReferrerReward = 50
	c.RedeemerReward = 0
	c.ReferralCodeLength = 6
	c.JoinCodeLength = 8
	c.MaxIdentifierAttempts = 10
	c.RateBurst = 40
	c.RatePerSecond = 20
	c.VideoPollInterval = 5 * time.Second
	c.VideoMaxPollAttempts = 60
	c.S3Region = "us-east-1"
	c.S3PresignTTL = 15 * time.Minute
}

// Load builds a Config from defaults, ./.env, the process environment and args.
func Load(args []string) (*Config, error) {
	return load(args, ".env", os.LookupEnv)
}

func load(args []string, envFile string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	fileVars := map[string]string{}
	if envFile != "" {
		vars, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			fileVars = vars
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("read %s: %w", envFile, err)
		}
	}
	get := func(key string) (string, bool) {
		if v, ok := lookup(envPrefix + key); ok {
			return v, true
		}
		v, ok := fileVars[envPrefix+key]
		return v, ok
	}
	if err := cfg.applyEnv(get); err != nil {
		return nil, err
	}
	if err := cfg.parseFlags(args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(get func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := get(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	var errs []error
	integer := func(key string, dst *int) {
		if v, ok := get(key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	integer64 := func(key string, dst *int64) {
		if v, ok := get(key); ok {
			n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := get(key); ok {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
				return
			}
			*dst = d
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := get(key); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
				return
			}
			*dst = b
		}
	}

	str("HTTP_ADDR", &c.HTTPAddr)
	str("PG_DSN", &c.DatabaseDSN)
	boolean("AUTO_MIGRATE", &c.AutoMigrate)
	str("LOG_LEVEL", &c.LogLevel)
	str("AUTH_SECRET", &c.AuthSecret)
	str("AUTH_ISSUER", &c.AuthIssuer)
	integer64("REFERRAL_REWARD", &c.ReferrerReward)
	integer64("REDEEMER_REWARD", &c.RedeemerReward)
	integer("REFERRAL_CODE_LENGTH", &c.ReferralCodeLength)
	integer("JOIN_CODE_LENGTH", &c.JoinCodeLength)
	integer("IDENTIFIER_ATTEMPTS", &c.MaxIdentifierAttempts)
	integer("RATE_BURST", &c.RateBurst)
	integer("RATE_PER_SECOND", &c.RatePerSecond)
	if v, ok := get("CORS_ORIGINS"); ok {
		c.AllowedOrigins = splitList(v)
	}
	if v, ok := get("TRUSTED_PROXIES"); ok {
		c.TrustedProxies = splitList(v)
	}
	str("VIDEO_PROVIDER_URL", &c.VideoProviderURL)
	str("VIDEO_PROVIDER_KEY", &c.VideoProviderKey)
	duration("VIDEO_POLL_INTERVAL", &c.VideoPollInterval)
	integer("VIDEO_MAX_POLLS", &c.VideoMaxPollAttempts)
	boolean("VIDEO_SWEEP", &c.VideoSweep)
	str("S3_BUCKET", &c.S3Bucket)
	str("S3_REGION", &c.S3Region)
	str("S3_ENDPOINT", &c.S3Endpoint)
	str("S3_ACCESS_KEY", &c.S3AccessKey)
	str("S3_SECRET_KEY", &c.S3SecretKey)
	str("S3_PUBLIC_BASE_URL", &c.S3PublicBaseURL)
	duration("S3_PRESIGN_TTL", &c.S3PresignTTL)

	return errors.Join(errs...)
}

// parseFlags overrides selected fields from command-line flags.
//
//	-addr string     HTTP bind address (e.g. ":8080")
//	-dsn string      PostgreSQL DSN; empty runs on the in-memory store
//	-migrate         apply pending migrations before serving
//	-log-level       debug, info, warn or error
//	-sweep           poll pending video tasks in the background
func (c *Config) parseFlags(args []string) error {
	set := flag.NewFlagSet("miabesite", flag.ContinueOnError)
	set.SetOutput(io.Discard)
	set.StringVar(&c.HTTPAddr, "addr", c.HTTPAddr, "HTTP bind address")
	set.StringVar(&c.DatabaseDSN, "dsn", c.DatabaseDSN, "PostgreSQL DSN")
	set.BoolVar(&c.AutoMigrate, "migrate", c.AutoMigrate, "apply pending migrations before serving")
	set.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level")
	set.BoolVar(&c.VideoSweep, "sweep", c.VideoSweep, "poll pending video tasks in the background")
	return set.Parse(args)
}

// Validate reports settings that would make the server misbehave.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.AuthSecret) == "" {
		errs = append(errs, errors.New(envPrefix+"AUTH_SECRET is required"))
	}
	if c.ReferrerReward < 0 || c.RedeemerReward < 0 {
		errs = append(errs, errors.New("referral rewards must be >= 0"))
	}
	if c.ReferralCodeLength < 4 || c.ReferralCodeLength > 16 {
		errs = append(errs, errors.New("referral code length must be between 4 and 16"))
	}
	if c.JoinCodeLength < 4 || c.JoinCodeLength > 16 {
		errs = append(errs, errors.New("join code length must be between 4 and 16"))
	}
	if c.MaxIdentifierAttempts < 1 {
		errs = append(errs, errors.New("identifier attempts must be >= 1"))
	}
	if c.RateBurst < 1 || c.RatePerSecond < 1 {
		errs = append(errs, errors.New("rate limit must be positive"))
	}
	if c.VideoPollInterval <= 0 || c.VideoMaxPollAttempts < 1 {
		errs = append(errs, errors.New("video polling must be positive"))
	}
	return errors.Join(errs...)
}

// StorageEnabled reports whether presigned uploads can be served.
func (c *Config) StorageEnabled() bool {
	return c.S3Bucket != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

// VideoEnabled reports whether a video provider is configured.
func (c *Config) VideoEnabled() bool {
	return c.VideoProviderURL != ""
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
