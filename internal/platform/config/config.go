package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage backend selectors.
const (
	StorageFile       = "file"
	StorageRelational = "relational"
	StorageDocument   = "document"
)

// Config holds application configuration.
type Config struct {
	Port         string
	IsProduction bool

	// Storage backend selector plus backend-specific parameters.
	StorageType string
	FileDataDir string

	PostgresHost     string
	PostgresPort     int
	PostgresDatabase string
	PostgresUser     string
	PostgresPassword string
	PostgresTLS      bool

	MongoURI      string
	MongoDatabase string

	CurrenciesFile string
	CacheSize      int

	PayoutAmount   string
	PayoutInterval time.Duration
	PayoutAccounts []string

	RateLimit string
}

// LoadConfig loads configuration from environment variables and a .env file
// if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("STORAGE_TYPE", StorageFile)
	viper.SetDefault("FILE_DATA_DIR", "data")
	viper.SetDefault("PGSQL_HOST", "localhost")
	viper.SetDefault("PGSQL_PORT", 5432)
	viper.SetDefault("PGSQL_DATABASE", "gbank")
	viper.SetDefault("PGSQL_USER", "postgres")
	viper.SetDefault("PGSQL_PASSWORD", "")
	viper.SetDefault("PGSQL_TLS", false)
	viper.SetDefault("MONGODB_URI", "mongodb://localhost:27017")
	viper.SetDefault("MONGODB_DATABASE", "gbank")
	viper.SetDefault("CURRENCIES_FILE", "currencies.yml")
	viper.SetDefault("CACHE_SIZE", 1024)
	viper.SetDefault("PAYOUT_AMOUNT", "0")
	viper.SetDefault("PAYOUT_INTERVAL", "1m")
	viper.SetDefault("PAYOUT_ACCOUNTS", "")
	viper.SetDefault("RATE_LIMIT", "100-M")

	viper.AutomaticEnv()

	cfg := &Config{
		Port:             viper.GetString("PORT"),
		IsProduction:     viper.GetBool("IS_PRODUCTION"),
		StorageType:      strings.ToLower(viper.GetString("STORAGE_TYPE")),
		FileDataDir:      viper.GetString("FILE_DATA_DIR"),
		PostgresHost:     viper.GetString("PGSQL_HOST"),
		PostgresPort:     viper.GetInt("PGSQL_PORT"),
		PostgresDatabase: viper.GetString("PGSQL_DATABASE"),
		PostgresUser:     viper.GetString("PGSQL_USER"),
		PostgresPassword: viper.GetString("PGSQL_PASSWORD"),
		PostgresTLS:      viper.GetBool("PGSQL_TLS"),
		MongoURI:         viper.GetString("MONGODB_URI"),
		MongoDatabase:    viper.GetString("MONGODB_DATABASE"),
		CurrenciesFile:   viper.GetString("CURRENCIES_FILE"),
		CacheSize:        viper.GetInt("CACHE_SIZE"),
		PayoutAmount:     viper.GetString("PAYOUT_AMOUNT"),
		RateLimit:        viper.GetString("RATE_LIMIT"),
	}

	switch cfg.StorageType {
	case StorageFile, StorageRelational, StorageDocument:
	default:
		return nil, fmt.Errorf("invalid STORAGE_TYPE %q (want %s, %s or %s)",
			cfg.StorageType, StorageFile, StorageRelational, StorageDocument)
	}

	payoutIntervalStr := viper.GetString("PAYOUT_INTERVAL")
	payoutInterval, err := time.ParseDuration(payoutIntervalStr)
	if err != nil {
		payoutInterval = time.Minute
		log.Printf("Warning: Invalid value for PAYOUT_INTERVAL ('%s'). Defaulting to %s.\n", payoutIntervalStr, payoutInterval)
	}
	cfg.PayoutInterval = payoutInterval

	if accounts := viper.GetString("PAYOUT_ACCOUNTS"); accounts != "" {
		for _, id := range strings.Split(accounts, ",") {
			if id = strings.TrimSpace(id); id != "" {
				cfg.PayoutAccounts = append(cfg.PayoutAccounts, id)
			}
		}
	}

	return cfg, nil
}
