package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ecommerce-mvp/shop/internal/domain/money"
	"github.com/joho/godotenv"
	"golang.org/x/text/currency"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"

	defaultCORSOrigins = "http://localhost:3000,http://localhost:3001," +
		"https://e-commerce-mvp.vercel.app,https://e-commerce-mvp-uuse.vercel.app"
)

type Config struct {
	ServiceName string
	Env         string
	LogLevel    string
	LogFile     string

	HTTPAddr        string
	ShutdownTimeout time.Duration
	CORSOrigins     []string

	Store           string
	DatabaseURL     string
	CatalogSeedFile string
	Currency        currency.Unit

	JWTSecret string

	NovaPoshtaURL     string
	NovaPoshtaAPIKey  string
	NovaPoshtaTimeout time.Duration

	KafkaBrokers string
	KafkaTopic   string

	PricingConcurrency int
}

// Load reads the environment after merging the given .env files (".env" when none are
// named). Missing files are ignored; variables already set win over file values.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	var errs []error
	cfg := Config{
		ServiceName: getEnv("SERVICE_NAME", "shop"),
		Env:         getEnv("ENV", "dev"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFile:     os.Getenv("LOG_FILE"),

		HTTPAddr:    getEnv("HTTP_ADDR", ":5001"),
		CORSOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", defaultCORSOrigins)),

		Store:           strings.ToLower(getEnv("STORE", StoreMemory)),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		CatalogSeedFile: os.Getenv("CATALOG_SEED_FILE"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		NovaPoshtaURL:    getEnv("NOVA_POSHTA_URL", "https://api.novaposhta.ua/v2.0/json/"),
		NovaPoshtaAPIKey: os.Getenv("NOVA_POSHTA_API_KEY"),

		KafkaBrokers: os.Getenv("KAFKA_BROKERS"),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "shop.orders"),
	}

	var err error
	if cfg.ShutdownTimeout, err = getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		errs = append(errs, err)
	}
	if cfg.NovaPoshtaTimeout, err = getEnvDuration("NOVA_POSHTA_TIMEOUT", 10*time.Second); err != nil {
		errs = append(errs, err)
	}
	if cfg.PricingConcurrency, err = getEnvInt("PRICING_CONCURRENCY", 4); err != nil {
		errs = append(errs, err)
	} else if cfg.PricingConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("PRICING_CONCURRENCY must be greater than zero"))
	}
	if cfg.Currency, err = money.ParseCurrency(getEnv("SHOP_CURRENCY", "UAH")); err != nil {
		errs = append(errs, fmt.Errorf("SHOP_CURRENCY: %w", err))
	}

	if cfg.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch cfg.Store {
	case StoreMemory:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORE=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE must be %q or %q, got %q", StoreMemory, StorePostgres, cfg.Store))
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(csv string) []string {
	out := []string{}
	for _, s := range strings.Split(csv, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
