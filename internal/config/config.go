package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Validation ValidationConfig `mapstructure:"validation"`
	Triage     TriageConfig     `mapstructure:"triage"`
	Workflow   WorkflowConfig   `mapstructure:"workflow"`
	Worker     WorkerConfig     `mapstructure:"worker"`
	Export     ExportConfig     `mapstructure:"export"`
	Logger     LoggerConfig     `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// OpenAIConfig holds the LLM client configuration used by the extraction
// and field-patching adapters.
type OpenAIConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float32       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// ValidationConfig holds the rule catalog parameters.
type ValidationConfig struct {
	Tolerance           float64       `mapstructure:"tolerance"`
	RequiredFields      []string      `mapstructure:"required_fields"`
	MaxLineItems        int           `mapstructure:"max_line_items"`
	TaxRates            []float64     `mapstructure:"tax_rates"`
	POTolerancePct      float64       `mapstructure:"po_tolerance_pct"`
	GRNTolerancePct     float64       `mapstructure:"grn_tolerance_pct"`
	MaxAgeDays          int           `mapstructure:"max_age_days"`
	AmountCeiling       float64       `mapstructure:"amount_ceiling"`
	DuplicateConfidence float64       `mapstructure:"duplicate_confidence"`
	StrictMode          bool          `mapstructure:"strict_mode"`
	DisabledRules       []string      `mapstructure:"disabled_rules"`
	MaxWorkers          int           `mapstructure:"max_workers"`
	LookupTimeout       time.Duration `mapstructure:"lookup_timeout"`
	RulesVersion        string        `mapstructure:"rules_version"`
}

// TriageConfig holds the decision thresholds.
type TriageConfig struct {
	AutoApproveThreshold float64 `mapstructure:"auto_approve_threshold"`
	ValidationThreshold  float64 `mapstructure:"validation_threshold"`
}

// WorkflowConfig holds retry and backoff settings.
type WorkflowConfig struct {
	MaxRetries  int           `mapstructure:"max_retries"`
	BaseBackoff time.Duration `mapstructure:"base_backoff"`
	MaxBackoff  time.Duration `mapstructure:"max_backoff"`
}

// WorkerConfig holds background worker settings.
type WorkerConfig struct {
	PoolSize     int           `mapstructure:"pool_size"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	ClaimBatch   int           `mapstructure:"claim_batch"`
}

// ExportConfig holds payment-proposal staging settings.
type ExportConfig struct {
	OutputDir string `mapstructure:"output_dir"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	viper.SetDefault("database.path", "data/invoice-triage.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	viper.SetDefault("openai.model", "gpt-4o-mini")
	viper.SetDefault("openai.temperature", 0.1)
	viper.SetDefault("openai.max_tokens", 2000)
	viper.SetDefault("openai.timeout", 60*time.Second)

	viper.SetDefault("validation.tolerance", 0.01)
	viper.SetDefault("validation.required_fields", []string{"vendor_name", "invoice_number", "total"})
	viper.SetDefault("validation.max_line_items", 200)
	viper.SetDefault("validation.tax_rates", []float64{0, 5, 10, 13, 20, 25})
	viper.SetDefault("validation.po_tolerance_pct", 5.0)
	viper.SetDefault("validation.grn_tolerance_pct", 10.0)
	viper.SetDefault("validation.max_age_days", 90)
	viper.SetDefault("validation.amount_ceiling", 25000.0)
	viper.SetDefault("validation.duplicate_confidence", 0.90)
	viper.SetDefault("validation.strict_mode", false)
	viper.SetDefault("validation.max_workers", 4)
	viper.SetDefault("validation.lookup_timeout", 5*time.Second)
	viper.SetDefault("validation.rules_version", "v1")

	viper.SetDefault("triage.auto_approve_threshold", 0.90)
	viper.SetDefault("triage.validation_threshold", 0.85)

	viper.SetDefault("workflow.max_retries", 3)
	viper.SetDefault("workflow.base_backoff", time.Second)
	viper.SetDefault("workflow.max_backoff", 30*time.Second)

	viper.SetDefault("worker.pool_size", 4)
	viper.SetDefault("worker.poll_interval", 2*time.Second)
	viper.SetDefault("worker.claim_batch", 8)

	viper.SetDefault("export.output_dir", "staged")

	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	viper.BindEnv("openai.api_key", "OPENAI_API_KEY")
	viper.BindEnv("database.path", "DATABASE_PATH")
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("logger.level", "LOG_LEVEL")
}

// Validate checks configuration consistency
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Validation.Tolerance < 0 {
		return fmt.Errorf("validation.tolerance must not be negative")
	}
	if c.Triage.AutoApproveThreshold <= 0 || c.Triage.AutoApproveThreshold > 1 {
		return fmt.Errorf("triage.auto_approve_threshold must be in (0,1], got %.2f", c.Triage.AutoApproveThreshold)
	}
	if c.Triage.ValidationThreshold <= 0 || c.Triage.ValidationThreshold > 1 {
		return fmt.Errorf("triage.validation_threshold must be in (0,1], got %.2f", c.Triage.ValidationThreshold)
	}
	if c.Triage.AutoApproveThreshold < c.Triage.ValidationThreshold {
		return fmt.Errorf("triage.auto_approve_threshold must not be below triage.validation_threshold")
	}
	if c.Workflow.MaxRetries < 0 {
		return fmt.Errorf("workflow.max_retries must not be negative")
	}
	if c.Worker.PoolSize <= 0 {
		return fmt.Errorf("worker.pool_size must be positive")
	}
	return nil
}
