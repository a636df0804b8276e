package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins string

	TimeZone       string
	HappyHourStart string
	HappyHourEnd   string

	JWTSecret     string
	AdminPassword string

	// Voting quotas
	DailyVoteQuota          int
	MaxVotesPerAuthorPerDay int
	MinScore                int
	MaxScore                int

	// Lifecycle
	SubmissionsPerDay int
	DailyViewsBudget  int

	// Ranking
	TopN           int
	MinVotesForTop int

	// Credits
	DailyCreditAmount int
	CreditShowsBase   int
	CreditShowsHappy  int
	ReferralCredits   int

	// Notification queue
	NotifyJitterMax    time.Duration
	NotifyMaxAttempts  int
	NotifyBackoffFloor time.Duration
	NotifyBackoffStep  time.Duration
	NotifyBackoffCap   time.Duration
	DispatchInterval   time.Duration
	DispatchBatchSize  int

	// Scheduler cron expressions
	CronArchive  string
	CronFinalize string
	CronCredits  string

	RateLimitVote time.Duration
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),

		TimeZone:       getEnv("APP_TIMEZONE", "Europe/Moscow"),
		HappyHourStart: getEnv("HAPPY_HOUR_START", "15:00"),
		HappyHourEnd:   getEnv("HAPPY_HOUR_END", "16:00"),

		JWTSecret:     getEnv("JWT_SECRET", "12345"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),

		CronArchive:  getEnv("CRON_ARCHIVE", "*/5 * * * *"),
		CronFinalize: getEnv("CRON_FINALIZE", "5 0 * * *"),
		CronCredits:  getEnv("CRON_CREDITS", "10 0 * * *"),
	}

	var err error
	if cfg.DailyVoteQuota, err = parseInt("DAILY_VOTE_QUOTA", 20); err != nil {
		return nil, err
	}
	if cfg.MaxVotesPerAuthorPerDay, err = parseInt("MAX_VOTES_PER_AUTHOR_PER_DAY", 5); err != nil {
		return nil, err
	}
	if cfg.MinScore, err = parseInt("MIN_SCORE", 1); err != nil {
		return nil, err
	}
	if cfg.MaxScore, err = parseInt("MAX_SCORE", 10); err != nil {
		return nil, err
	}
	if cfg.SubmissionsPerDay, err = parseInt("SUBMISSIONS_PER_DAY", 1); err != nil {
		return nil, err
	}
	if cfg.DailyViewsBudget, err = parseInt("DAILY_VIEWS_BUDGET", 100); err != nil {
		return nil, err
	}
	if cfg.TopN, err = parseInt("RESULTS_TOP_N", 10); err != nil {
		return nil, err
	}
	if cfg.MinVotesForTop, err = parseInt("MIN_VOTES_FOR_TOP", 7); err != nil {
		return nil, err
	}
	if cfg.DailyCreditAmount, err = parseInt("DAILY_CREDIT_AMOUNT", 2); err != nil {
		return nil, err
	}
	if cfg.CreditShowsBase, err = parseInt("CREDIT_SHOWS_BASE", 2); err != nil {
		return nil, err
	}
	if cfg.CreditShowsHappy, err = parseInt("CREDIT_SHOWS_HAPPY", 4); err != nil {
		return nil, err
	}
	if cfg.ReferralCredits, err = parseInt("REFERRAL_CREDITS", 2); err != nil {
		return nil, err
	}
	if cfg.NotifyMaxAttempts, err = parseInt("NOTIFY_MAX_ATTEMPTS", 5); err != nil {
		return nil, err
	}
	if cfg.DispatchBatchSize, err = parseInt("DISPATCH_BATCH_SIZE", 50); err != nil {
		return nil, err
	}

	if cfg.NotifyJitterMax, err = parseDuration("NOTIFY_JITTER_MAX", "15m"); err != nil {
		return nil, err
	}
	if cfg.NotifyBackoffFloor, err = parseDuration("NOTIFY_BACKOFF_FLOOR", "30s"); err != nil {
		return nil, err
	}
	if cfg.NotifyBackoffStep, err = parseDuration("NOTIFY_BACKOFF_STEP", "60s"); err != nil {
		return nil, err
	}
	if cfg.NotifyBackoffCap, err = parseDuration("NOTIFY_BACKOFF_CAP", "15m"); err != nil {
		return nil, err
	}
	if cfg.DispatchInterval, err = parseDuration("DISPATCH_INTERVAL", "30s"); err != nil {
		return nil, err
	}
	if cfg.RateLimitVote, err = parseDuration("RATE_LIMIT_VOTE", "1s"); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func parseInt(key string, fallback int) (int, error) {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func parseDuration(key, fallback string) (time.Duration, error) {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
