// Package config provides application configuration through environment variables.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/allisson/go-env"
	validation "github.com/jellydator/validation"
	"github.com/joho/godotenv"

	keymanagerDomain "github.com/allisson/pfbackup/internal/keymanager/domain"
	"github.com/allisson/pfbackup/internal/scheduler"
	customValidation "github.com/allisson/pfbackup/internal/validation"
)

// Config holds all application configuration. The encryption passphrase is deliberately
// absent: it is read by the passphrase source and never copied into Config.
type Config struct {
	// LogLevel is the logging level (e.g., "debug", "info", "warn", "error").
	LogLevel string

	// PassphraseSource selects where the encryption passphrase comes from ("env" or "keyring").
	PassphraseSource string
	// PassphraseEnvVariable is the variable read when PassphraseSource is "env".
	PassphraseEnvVariable string
	// KeyringService is the OS keyring service holding the passphrase.
	KeyringService string
	// KeyringKey is the keyring item holding the passphrase.
	KeyringKey string

	// KEKRecordPath is the file holding the passphrase verification record.
	KEKRecordPath string
	// KDFTimeCost, KDFMemoryCostKiB and KDFParallelism are the Argon2id costs used when a
	// record is bootstrapped. Existing records keep the costs they were created with.
	KDFTimeCost      int
	KDFMemoryCostKiB int
	KDFParallelism   int

	// BackupBucketURL is the gocloud.dev blob URL where artifacts and sidecars are stored.
	BackupBucketURL string
	// BackupSchedule is the run-mode backup interval, e.g. "1d".
	BackupSchedule string

	// PfSenseDomain is the GUI origin, including the scheme.
	PfSenseDomain string
	// PfSenseUsername and PfSensePassword are the GUI credentials.
	PfSenseUsername string
	PfSensePassword string
	// PfSenseInsecureSkipVerify disables TLS verification for self-signed GUI certificates.
	PfSenseInsecureSkipVerify bool
	// PfSenseRequestTimeout bounds every request to the GUI.
	PfSenseRequestTimeout time.Duration
	// PfSenseRetryMax is the number of retries for failed idempotent requests.
	PfSenseRetryMax int
	// LoginRetryInterval paces login attempts in run mode.
	LoginRetryInterval time.Duration

	// MetricsEnabled indicates whether metrics collection is enabled.
	MetricsEnabled bool
	// MetricsNamespace is the namespace for the application metrics.
	MetricsNamespace string
	// MetricsHost is the host address the metrics server binds to.
	MetricsHost string
	// MetricsPort is the port number for the metrics server.
	MetricsPort int
}

// Load loads configuration from environment variables and .env file.
func Load() *Config {
	// Try to load .env file recursively
	loadDotEnv()

	return &Config{
		// Logging
		LogLevel: env.GetString("LOG_LEVEL", "info"),

		// Passphrase
		PassphraseSource:      env.GetString("PASSPHRASE_SOURCE", "env"),
		PassphraseEnvVariable: env.GetString("PASSPHRASE_ENV_VARIABLE", "ENCRYPTION_PASSPHRASE"),
		KeyringService:        env.GetString("KEYRING_SERVICE", "pfbackup"),
		KeyringKey:            env.GetString("KEYRING_KEY", "encryption-passphrase"),

		// Key manager
		KEKRecordPath:    env.GetString("KEK_RECORD_PATH", ".kek-info"),
		KDFTimeCost:      env.GetInt("KDF_TIME_COST", int(keymanagerDomain.DefaultKDFParams.TimeCost)),
		KDFMemoryCostKiB: env.GetInt("KDF_MEMORY_COST_KIB", int(keymanagerDomain.DefaultKDFParams.MemoryCost)),
		KDFParallelism:   env.GetInt("KDF_PARALLELISM", int(keymanagerDomain.DefaultKDFParams.Parallelism)),

		// Storage and schedule
		BackupBucketURL: env.GetString("BACKUP_BUCKET_URL", "file://./Backups?create_dir=true"),
		BackupSchedule:  env.GetString("BACKUP_SCHEDULE", "1d"),

		// pfSense
		PfSenseDomain:             env.GetString("PFSENSE_DOMAIN", ""),
		PfSenseUsername:           env.GetString("PFSENSE_USERNAME", ""),
		PfSensePassword:           env.GetString("PFSENSE_PASSWORD", ""),
		PfSenseInsecureSkipVerify: env.GetBool("PFSENSE_INSECURE_SKIP_VERIFY", false),
		PfSenseRequestTimeout:     env.GetDuration("PFSENSE_REQUEST_TIMEOUT_SECONDS", 300, time.Second),
		PfSenseRetryMax:           env.GetInt("PFSENSE_RETRY_MAX", 3),
		LoginRetryInterval:        env.GetDuration("LOGIN_RETRY_INTERVAL_SECONDS", 5, time.Second),

		// Metrics
		MetricsEnabled:   env.GetBool("METRICS_ENABLED", true),
		MetricsNamespace: env.GetString("METRICS_NAMESPACE", "pfbackup"),
		MetricsHost:      env.GetString("METRICS_HOST", "127.0.0.1"),
		MetricsPort:      env.GetInt("METRICS_PORT", 8081),
	}
}

// KDFParams returns the Argon2id parameters for new records. The values are only
// meaningful after Validate has range-checked them.
func (c *Config) KDFParams() keymanagerDomain.KDFParams {
	return keymanagerDomain.KDFParams{
		TimeCost:    uint32(c.KDFTimeCost),
		MemoryCost:  uint32(c.KDFMemoryCostKiB),
		Parallelism: uint8(c.KDFParallelism),
		KeyLength:   keymanagerDomain.KeySize,
	}
}

// Validate checks the settings every command depends on.
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.PassphraseSource, validation.Required, validation.In("env", "keyring")),
		validation.Field(&c.PassphraseEnvVariable,
			validation.When(c.PassphraseSource == "env", validation.Required)),
		validation.Field(&c.KeyringService,
			validation.When(c.PassphraseSource == "keyring", validation.Required)),
		validation.Field(&c.KeyringKey,
			validation.When(c.PassphraseSource == "keyring", validation.Required)),
		validation.Field(&c.KEKRecordPath, customValidation.NotBlank),
		validation.Field(&c.BackupBucketURL, validation.Required, customValidation.BucketURL),
		validation.Field(&c.KDFTimeCost,
			validation.Min(keymanagerDomain.MinTimeCost), validation.Max(keymanagerDomain.MaxTimeCost)),
		validation.Field(&c.KDFMemoryCostKiB,
			validation.Min(keymanagerDomain.MinMemoryCost), validation.Max(keymanagerDomain.MaxMemoryCost)),
		validation.Field(&c.KDFParallelism,
			validation.Min(keymanagerDomain.MinParallelism), validation.Max(keymanagerDomain.MaxParallelism)),
	)
	if err != nil {
		return customValidation.WrapValidationError(err)
	}
	if err := c.KDFParams().Validate(); err != nil {
		return customValidation.WrapValidationError(err)
	}
	return nil
}

// ValidateFirewall checks the settings needed to talk to pfSense.
func (c *Config) ValidateFirewall() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.PfSenseDomain, validation.Required, customValidation.HTTPURL),
		validation.Field(&c.PfSenseUsername, customValidation.NotBlank),
		validation.Field(&c.PfSensePassword, validation.Required),
		validation.Field(&c.PfSenseRequestTimeout, validation.Min(time.Second)),
		validation.Field(&c.PfSenseRetryMax, validation.Min(0), validation.Max(10)),
		validation.Field(&c.LoginRetryInterval, validation.Min(time.Second)),
	)
	return customValidation.WrapValidationError(err)
}

// ValidateRunMode checks the settings used only by the run command.
func (c *Config) ValidateRunMode() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.BackupSchedule, validation.Required, validation.By(func(value interface{}) error {
			_, err := scheduler.ParseInterval(value.(string))
			return err
		})),
		validation.Field(&c.MetricsNamespace, validation.When(c.MetricsEnabled, customValidation.NotBlank)),
		validation.Field(&c.MetricsPort, validation.When(c.MetricsEnabled, validation.Min(1), validation.Max(65535))),
	)
	return customValidation.WrapValidationError(err)
}

// GetGinMode returns the appropriate Gin mode based on log level.
func (c *Config) GetGinMode() string {
	if c.LogLevel == "debug" {
		return "debug"
	}
	return "release"
}

// loadDotEnv searches for a .env file recursively from the current directory
// up to the root directory and loads it if found.
func loadDotEnv() {
	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	dir := cwd
	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
}
