package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dukerupert/bodycontrol/internal/backup"
	"github.com/dukerupert/bodycontrol/internal/database"
)

type Config struct {
	Port     string
	LogLevel string
	DBDriver string
	DBDSN    string

	// TrustProxy keys the /delay limiter on forwarding headers.
	TrustProxy bool

	BackupEndpoint   string
	BackupBucket     string
	BackupRegion     string
	BackupAccessKey  string
	BackupSecretKey  string
	BackupPassphrase string
	BackupInterval   time.Duration
	BackupRetention  int
}

// Load reads the BODYCONTROL_* environment variables and validates them.
func Load() (*Config, error) {
	c := &Config{
		Port:             getEnv("BODYCONTROL_PORT", "8080"),
		LogLevel:         getEnv("BODYCONTROL_LOG_LEVEL", "info"),
		DBDriver:         getEnv("BODYCONTROL_DB_DRIVER", database.DriverSQLite),
		DBDSN:            getEnv("BODYCONTROL_DB_DSN", "bodycontrol.db"),
		BackupEndpoint:   os.Getenv("BODYCONTROL_BACKUP_S3_ENDPOINT"),
		BackupBucket:     os.Getenv("BODYCONTROL_BACKUP_S3_BUCKET"),
		BackupRegion:     getEnv("BODYCONTROL_BACKUP_S3_REGION", "us-east-1"),
		BackupAccessKey:  os.Getenv("BODYCONTROL_BACKUP_S3_ACCESS_KEY"),
		BackupSecretKey:  os.Getenv("BODYCONTROL_BACKUP_S3_SECRET_KEY"),
		BackupPassphrase: os.Getenv("BODYCONTROL_BACKUP_PASSPHRASE"),
	}

	interval, err := time.ParseDuration(getEnv("BODYCONTROL_BACKUP_INTERVAL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("BODYCONTROL_BACKUP_INTERVAL: %w", err)
	}
	c.BackupInterval = interval

	trustProxy, err := strconv.ParseBool(getEnv("BODYCONTROL_TRUST_PROXY", "false"))
	if err != nil {
		return nil, fmt.Errorf("BODYCONTROL_TRUST_PROXY: %w", err)
	}
	c.TrustProxy = trustProxy

	retention, err := strconv.Atoi(getEnv("BODYCONTROL_BACKUP_RETENTION_DAYS", "30"))
	if err != nil {
		return nil, fmt.Errorf("BODYCONTROL_BACKUP_RETENTION_DAYS: %w", err)
	}
	c.BackupRetention = retention

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	if c.DBDriver != database.DriverSQLite && c.DBDriver != database.DriverPostgres {
		return fmt.Errorf("BODYCONTROL_DB_DRIVER must be %q or %q, got %q", database.DriverSQLite, database.DriverPostgres, c.DBDriver)
	}
	if c.DBDSN == "" {
		return errors.New("BODYCONTROL_DB_DSN is required")
	}
	if c.BackupInterval <= 0 {
		return errors.New("BODYCONTROL_BACKUP_INTERVAL must be positive")
	}
	if c.BackupRetention <= 0 {
		return errors.New("BODYCONTROL_BACKUP_RETENTION_DAYS must be positive")
	}
	return nil
}

// Backup returns the backup manager settings. Backups stay disabled unless
// the bucket, credentials and passphrase are all set.
func (c *Config) Backup() backup.Config {
	return backup.Config{
		S3: backup.S3Config{
			Endpoint:  c.BackupEndpoint,
			Bucket:    c.BackupBucket,
			Region:    c.BackupRegion,
			AccessKey: c.BackupAccessKey,
			SecretKey: c.BackupSecretKey,
		},
		Passphrase:    c.BackupPassphrase,
		Interval:      c.BackupInterval,
		RetentionDays: c.BackupRetention,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
