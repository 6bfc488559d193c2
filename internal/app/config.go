package app

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreFirestore = "firestore"
	StoreMemory    = "memory"
)

type Config struct {
	Port             int
	Env              string
	Store            string
	OtelCollectorUrl string
	OtelSampleRatio  float64
	Firebase         FirebaseConfig
	Redis            RedisConfig
	SMTP             SMTPConfig
	Stripe           StripeConfig
}

type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

type RedisConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	MaxIdleTime  time.Duration
	EventTTL     time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
}

// LoadConfig reads .env (if present) into the environment and parses args. Every flag defaults to
// its environment variable so deployments can use either.
func LoadConfig(args []string) (Config, bool, error) {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, false, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config

	fset := flag.NewFlagSet("api", flag.ContinueOnError)

	fset.IntVar(&cfg.Port, "port", envInt("PORT", 3000), "server port")
	fset.StringVar(&cfg.Env, "env", envString("APP_ENV", "dev"), "Environment (dev|staging|prod)")
	fset.StringVar(&cfg.Store, "store", envString("STORE", StoreFirestore), "Reservation store (firestore|memory)")
	fset.StringVar(&cfg.OtelCollectorUrl, "otel-collector-url", envString("OTEL_COLLECTOR_URL", ""), "OpenTelemetry collector gRPC endpoint")
	fset.Float64Var(&cfg.OtelSampleRatio, "otel-sample-ratio", 1, "Fraction of root traces sampled (0-1)")

	fset.StringVar(&cfg.Firebase.ProjectID, "firebase-project-id", envString("FIREBASE_PROJECT_ID", ""), "Firebase project ID")
	fset.StringVar(&cfg.Firebase.CredentialsFile, "firebase-credentials", envString("GOOGLE_APPLICATION_CREDENTIALS", ""), "Firebase service account file")

	fset.StringVar(&cfg.Redis.URL, "redis-url", envString("REDIS_URL", ""), "Redis address; webhook events are deduplicated in memory when empty")
	fset.IntVar(&cfg.Redis.MaxOpenConns, "redis-max-open-conns", 25, "Redis max open connections")
	fset.IntVar(&cfg.Redis.MaxIdleConns, "redis-max-idle-conns", 10, "Redis max idle connections")
	fset.DurationVar(&cfg.Redis.MaxIdleTime, "redis-max-idle-time", 2*time.Minute, "Redis max idle time for connections")
	fset.DurationVar(&cfg.Redis.EventTTL, "webhook-event-ttl", 72*time.Hour, "How long processed webhook event ids are remembered")

	fset.StringVar(&cfg.SMTP.Host, "smtp-host", envString("SMTP_HOST", "sandbox.smtp.mailtrap.io"), "SMTP host")
	fset.IntVar(&cfg.SMTP.Port, "smtp-port", envInt("SMTP_PORT", 2525), "SMTP port")
	fset.StringVar(&cfg.SMTP.Username, "smtp-username", envString("SMTP_USERNAME", ""), "SMTP username")
	fset.StringVar(&cfg.SMTP.Password, "smtp-password", envString("SMTP_PASSWORD", ""), "SMTP password")
	fset.StringVar(&cfg.SMTP.Sender, "smtp-sender", envString("SMTP_SENDER", "Web1111 <no-reply@web1111.com>"), "SMTP sender")

	fset.StringVar(&cfg.Stripe.SecretKey, "stripe-key", envString("STRIPE_SECRET_KEY", ""), "Stripe secret key")
	fset.StringVar(&cfg.Stripe.WebhookSecret, "stripe-webhook-secret", envString("STRIPE_WEBHOOK_SECRET", ""), "Stripe webhook secret")
	fset.StringVar(&cfg.Stripe.Currency, "stripe-currency", envString("STRIPE_CURRENCY", "usd"), "Charge currency")

	displayVersion := fset.Bool("version", false, "Display version and exit")

	err = fset.Parse(args)
	if err != nil {
		return Config{}, false, err
	}

	if *displayVersion {
		return cfg, true, nil
	}

	return cfg, false, cfg.validate()
}

func (cfg Config) validate() error {
	if cfg.OtelSampleRatio < 0 || cfg.OtelSampleRatio > 1 {
		return errors.New("otel-sample-ratio must be between 0 and 1")
	}

	switch cfg.Store {
	case StoreMemory:
	case StoreFirestore:
		if cfg.Firebase.ProjectID == "" {
			return errors.New("firebase-project-id is required with the firestore store")
		}
		if cfg.Stripe.SecretKey == "" {
			return errors.New("stripe-key is required with the firestore store")
		}
	default:
		return fmt.Errorf("unknown store %q", cfg.Store)
	}

	return nil
}

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}

	return fallback
}

func envInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}

	return n
}
