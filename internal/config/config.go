package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Secrets (from .env)
	DatabaseURL              string
	CredentialsEncryptionKey string
	WebhookURL               string
	BotName                  string

	// Database (used when DATABASE_URL is not set)
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string

	// Venue
	UseTestnet bool

	// Reconciliation
	LookbackDays           int
	DedupToleranceSeconds  int
	ReconcileIntervalHours int

	// Fee tiers: tier name -> performance fee rate (fraction of notional),
	// charged on profitable closes only. Resolved here at startup and
	// passed into the ledger writer; nothing reads an ambient table.
	FeeTiers map[string]float64
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:              envStr("DATABASE_URL", ""),
		CredentialsEncryptionKey: envStr("CREDENTIALS_ENCRYPTION_KEY", ""),
		WebhookURL:               envStr("WEBHOOK_URL", ""),
		BotName:                  envStr("BOT_NAME", "TradeReconciler"),

		DBHost:     envStr("DB_HOST", "localhost"),
		DBPort:     envInt("DB_PORT", 5432),
		DBName:     envStr("DB_NAME", "perpfolio"),
		DBUser:     envStr("DB_USER", ""),
		DBPassword: envStr("DB_PASSWORD", ""),

		UseTestnet: envBool("USE_TESTNET", false),

		LookbackDays:           envInt("LOOKBACK_DAYS", 30),
		DedupToleranceSeconds:  envInt("DEDUP_TOLERANCE_SECONDS", 60),
		ReconcileIntervalHours: envInt("RECONCILE_INTERVAL_HOURS", 24),

		FeeTiers: map[string]float64{
			"standard": envFloat("FEE_RATE_STANDARD", 0.10),
			"pro":      envFloat("FEE_RATE_PRO", 0.05),
			"elite":    envFloat("FEE_RATE_ELITE", 0.025),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string

	if c.DatabaseURL == "" && c.DBUser == "" {
		errs = append(errs, "DATABASE_URL (or DB_USER/DB_PASSWORD) is required")
	}
	if c.LookbackDays <= 0 {
		errs = append(errs, "LOOKBACK_DAYS must be positive")
	}
	if c.DedupToleranceSeconds <= 0 {
		errs = append(errs, "DEDUP_TOLERANCE_SECONDS must be positive")
	}
	for tier, rate := range c.FeeTiers {
		if rate < 0 || rate >= 1 {
			errs = append(errs, fmt.Sprintf("fee rate for tier %q out of range: %v", tier, rate))
		}
	}
	if c.CredentialsEncryptionKey == "" {
		fmt.Println("[WARN] CREDENTIALS_ENCRYPTION_KEY not set, users without a stored wallet address will be skipped")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

func (c *Config) Print() {
	fmt.Println("=== Trade Reconciliation Configuration ===")
	network := "mainnet"
	if c.UseTestnet {
		network = "TESTNET"
	}
	fmt.Printf("Hyperliquid network: %s\n", network)
	fmt.Printf("Lookback window: %d days\n", c.LookbackDays)
	fmt.Printf("Dedup tolerance: %ds\n", c.DedupToleranceSeconds)
	fmt.Println("Fee tiers:")
	for _, tier := range []string{"standard", "pro", "elite"} {
		fmt.Printf("  %-8s %.3f%% of notional on wins\n", tier, c.FeeTiers[tier]*100)
	}
	fmt.Printf("Webhook: %s\n", boolLabel(c.WebhookURL != "", "configured", "not set"))
	fmt.Println("==========================================")
}

func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// --- helpers ---

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(v)
		return v == "true" || v == "1" || v == "yes"
	}
	return fallback
}

func boolLabel(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
