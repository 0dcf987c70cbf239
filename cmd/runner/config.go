package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/hairizuan-noorazman/desktop-automation/agent"
	"github.com/hairizuan-noorazman/desktop-automation/detect"
)

// Config holds all runner configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Storage  StorageConfig
	Log      LogConfig
	Oracle   OracleConfig
	Driver   DriverConfig
	Webhook  WebhookConfig
	Agent    agent.Config
}

// ServerConfig holds the control API server configuration.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds scenario store configuration.
type DatabaseConfig struct {
	Driver       string
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	Path         string
	MaxOpenConns int
	MaxIdleConns int
}

// StorageConfig holds artifact storage configuration.
type StorageConfig struct {
	Type            string
	BaseDir         string
	S3Bucket        string
	S3Region        string
	S3PresignExpiry time.Duration
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string
}

// OracleConfig holds vision model configuration.
type OracleConfig struct {
	BedrockRegion string
	BedrockModel  string
	MaxTokens     int
	DisplayWidth  int
	DisplayHeight int
}

// DriverConfig holds native driver daemon configuration.
type DriverConfig struct {
	BaseURL string
	Timeout time.Duration
}

// WebhookConfig holds failure notification configuration.
type WebhookConfig struct {
	URL string
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8710)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "desktop-automation.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "root")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.database", "desktop_automation")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.base_dir", "./artifacts")
	v.SetDefault("storage.s3_bucket", "")
	v.SetDefault("storage.s3_region", "us-east-1")
	v.SetDefault("storage.s3_presign_expiry", "15m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("oracle.bedrock_region", "us-east-1")
	v.SetDefault("oracle.bedrock_model", "anthropic.claude-sonnet-4-5")
	v.SetDefault("oracle.max_tokens", 4096)
	v.SetDefault("oracle.display_width", 1280)
	v.SetDefault("oracle.display_height", 800)

	v.SetDefault("driver.base_url", "http://127.0.0.1:8711")
	v.SetDefault("driver.timeout", "30s")

	v.SetDefault("webhook.url", "")

	agentDefaults := agent.DefaultConfig()
	v.SetDefault("agent.max_turns", agentDefaults.MaxTurns)
	v.SetDefault("agent.post_click_delay", agentDefaults.PostClickDelay)
	v.SetDefault("agent.medium_confidence_threshold", agentDefaults.MediumConfidenceThreshold)
	v.SetDefault("agent.mismatch_failure_threshold", agentDefaults.MismatchFailureThreshold)
	v.SetDefault("agent.verification_retries", agentDefaults.VerificationRetries)
	v.SetDefault("agent.verification_retry_delay", agentDefaults.VerificationRetryDelay)
	v.SetDefault("agent.history_trim_threshold", agentDefaults.HistoryTrimThreshold)
	v.SetDefault("agent.history_image_retention", agentDefaults.HistoryImageRetention)
	v.SetDefault("agent.hint_match_threshold", agentDefaults.HintMatchThreshold)
	v.SetDefault("agent.loop_window", agentDefaults.Loop.Window)
	v.SetDefault("agent.loop_threshold", agentDefaults.Loop.Threshold)
	v.SetDefault("agent.stuck_max_unchanged", agentDefaults.Stuck.MaxUnchanged)
	v.SetDefault("agent.stuck_max_same_action", agentDefaults.Stuck.MaxSameAction)
	v.SetDefault("agent.stuck_max_same_action_relaxed", agentDefaults.Stuck.MaxSameActionRelaxed)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config

	config.Server.Host = v.GetString("server.host")
	config.Server.Port = v.GetInt("server.port")
	config.Server.ReadTimeout = v.GetDuration("server.read_timeout")
	config.Server.WriteTimeout = v.GetDuration("server.write_timeout")

	config.Database.Driver = v.GetString("database.driver")
	config.Database.Host = v.GetString("database.host")
	config.Database.Port = v.GetInt("database.port")
	config.Database.User = v.GetString("database.user")
	config.Database.Password = v.GetString("database.password")
	config.Database.Database = v.GetString("database.database")
	config.Database.Path = v.GetString("database.path")
	config.Database.MaxOpenConns = v.GetInt("database.max_open_conns")
	config.Database.MaxIdleConns = v.GetInt("database.max_idle_conns")

	config.Storage.Type = v.GetString("storage.type")
	config.Storage.BaseDir = v.GetString("storage.base_dir")
	config.Storage.S3Bucket = v.GetString("storage.s3_bucket")
	config.Storage.S3Region = v.GetString("storage.s3_region")
	config.Storage.S3PresignExpiry = v.GetDuration("storage.s3_presign_expiry")

	config.Log.Level = v.GetString("log.level")
	config.Log.Format = v.GetString("log.format")

	config.Oracle.BedrockRegion = v.GetString("oracle.bedrock_region")
	config.Oracle.BedrockModel = v.GetString("oracle.bedrock_model")
	config.Oracle.MaxTokens = v.GetInt("oracle.max_tokens")
	config.Oracle.DisplayWidth = v.GetInt("oracle.display_width")
	config.Oracle.DisplayHeight = v.GetInt("oracle.display_height")

	config.Driver.BaseURL = v.GetString("driver.base_url")
	config.Driver.Timeout = v.GetDuration("driver.timeout")

	config.Webhook.URL = v.GetString("webhook.url")

	config.Agent = agent.Config{
		MaxTurns:                  v.GetInt("agent.max_turns"),
		PostClickDelay:            v.GetDuration("agent.post_click_delay"),
		MediumConfidenceThreshold: v.GetInt("agent.medium_confidence_threshold"),
		MismatchFailureThreshold:  v.GetInt("agent.mismatch_failure_threshold"),
		VerificationRetries:       v.GetInt("agent.verification_retries"),
		VerificationRetryDelay:    v.GetDuration("agent.verification_retry_delay"),
		HistoryTrimThreshold:      v.GetInt("agent.history_trim_threshold"),
		HistoryImageRetention:     v.GetInt("agent.history_image_retention"),
		HintMatchThreshold:        v.GetFloat64("agent.hint_match_threshold"),
		Screen:                    detect.DefaultScreenConfig(),
		Loop: detect.LoopConfig{
			Window:    v.GetInt("agent.loop_window"),
			Threshold: v.GetInt("agent.loop_threshold"),
		},
		Stuck: detect.StuckConfig{
			MaxUnchanged:         v.GetInt("agent.stuck_max_unchanged"),
			MaxSameAction:        v.GetInt("agent.stuck_max_same_action"),
			MaxSameActionRelaxed: v.GetInt("agent.stuck_max_same_action_relaxed"),
		},
	}

	return &config, nil
}
