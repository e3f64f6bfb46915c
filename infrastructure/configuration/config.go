package configuration

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"kayzen-ingest/domain/model"
	"kayzen-ingest/infrastructure/logger"

	"github.com/spf13/viper"
)

const (
	DefaultKayzenBaseURL = "https://api.kayzen.io"
	DefaultPort          = 8080
	DefaultRunLockTTL    = 30 * time.Minute

	RunModeServe = "serve"
	RunModeOnce  = "once"
)

type Config struct {
	App      App      `mapstructure:"app"`
	Kayzen   Kayzen   `mapstructure:"kayzen"`
	BigQuery BigQuery `mapstructure:"bigquery"`
	Database Database `mapstructure:"database"`
	Redis    Redis    `mapstructure:"redis"`
	Pubsub   Pubsub   `mapstructure:"pubsub"`
	RunLock  RunLock  `mapstructure:"runLock"`
}

type App struct {
	Port      int    `mapstructure:"port"`
	RunMode   string `mapstructure:"runMode"`
	SecretKey string `mapstructure:"secretKey"`
}

type Kayzen struct {
	BaseURL   string `mapstructure:"baseUrl"`
	APIKey    string `mapstructure:"apiKey"`
	APISecret string `mapstructure:"apiSecret"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
}

type BigQuery struct {
	ProjectID       string `mapstructure:"projectId"`
	DatasetID       string `mapstructure:"datasetId"`
	TableID         string `mapstructure:"tableId"`
	Location        string `mapstructure:"location"`
	CredentialsFile string `mapstructure:"credentialsFile"`
}

// Database configures the optional run-history store. An empty Vendor
// disables it.
type Database struct {
	Vendor   string `mapstructure:"vendor"`
	Name     string `mapstructure:"name"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

type Redis struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type Pubsub struct {
	ProjectID string `mapstructure:"projectId"`
	Topic     string `mapstructure:"topic"`
}

type RunLock struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// envBindings maps config keys to the environment variables that feed them.
var envBindings = map[string]string{
	"app.port":                 "APP_PORT",
	"app.runMode":              "RUN_MODE",
	"app.secretKey":            "SECRET_KEY",
	"kayzen.baseUrl":           "KAYZEN_BASE_URL",
	"kayzen.apiKey":            "KAYZEN_API_KEY",
	"kayzen.apiSecret":         "KAYZEN_API_SECRET",
	"kayzen.username":          "KAYZEN_USERNAME",
	"kayzen.password":          "KAYZEN_PASSWORD",
	"bigquery.projectId":       "GCP_PROJECT_ID",
	"bigquery.datasetId":       "BIGQUERY_DATASET_ID",
	"bigquery.tableId":         "BIGQUERY_TABLE_ID",
	"bigquery.location":        "BIGQUERY_LOCATION",
	"bigquery.credentialsFile": "GOOGLE_APPLICATION_CREDENTIALS",
	"database.vendor":          "DB_VENDOR",
	"database.name":            "DB_NAME",
	"database.host":            "DB_HOST",
	"database.port":            "DB_PORT",
	"database.user":            "DB_USER",
	"database.password":        "DB_PASSWORD",
	"redis.host":               "REDIS_HOST",
	"redis.port":               "REDIS_PORT",
	"redis.username":           "REDIS_USERNAME",
	"redis.password":           "REDIS_PASSWORD",
	"pubsub.projectId":         "PUBSUB_PROJECT_ID",
	"pubsub.topic":             "PUBSUB_TOPIC",
	"runLock.ttl":              "RUN_LOCK_TTL",
}

// Load reads config-{ENV}.json (when present) and the environment, applies
// defaults and validates the result. The environment wins over the file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName(getConfigName())
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("../")
	v.AddConfigPath("../../")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.GetLogger().Debug("Config file not found, using environment only")
		} else {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else {
		logger.GetLogger().WithField("config", v.ConfigFileUsed()).Info("Config file loaded")
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", env, err)
		}
	}
	v.SetDefault("app.port", DefaultPort)
	v.SetDefault("app.runMode", RunModeServe)
	v.SetDefault("kayzen.baseUrl", DefaultKayzenBaseURL)
	v.SetDefault("runLock.ttl", DefaultRunLockTTL)

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	applyFallbacks(&c)

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate fails with a ConfigurationError naming every missing required
// variable.
func (c *Config) Validate() error {
	if err := model.ValidateSettings(c.Credentials(), c.Destination()); err != nil {
		return err
	}
	switch c.App.RunMode {
	case RunModeServe, RunModeOnce:
	default:
		return fmt.Errorf("unsupported RUN_MODE %q", c.App.RunMode)
	}
	return nil
}

func (c *Config) Credentials() model.Credentials {
	return model.Credentials{
		APIKey:    c.Kayzen.APIKey,
		APISecret: c.Kayzen.APISecret,
		Username:  c.Kayzen.Username,
		Password:  c.Kayzen.Password,
	}
}

func (c *Config) Destination() model.TableRef {
	return model.TableRef{
		ProjectID: c.BigQuery.ProjectID,
		DatasetID: c.BigQuery.DatasetID,
		TableID:   c.BigQuery.TableID,
	}
}

func (c *Config) RedisAddr() string {
	if c.Redis.Host == "" {
		return ""
	}
	port := c.Redis.Port
	if port == "" {
		port = "6379"
	}
	return fmt.Sprintf("%s:%s", c.Redis.Host, port)
}

func applyFallbacks(c *Config) {
	// Cloud Run and friends only set PORT.
	if os.Getenv("APP_PORT") == "" {
		if v := os.Getenv("PORT"); v != "" {
			if p, err := strconv.Atoi(v); err == nil && p > 0 {
				c.App.Port = p
			}
		}
	}
	if c.App.Port == 0 {
		c.App.Port = DefaultPort
	}
	c.App.RunMode = strings.ToLower(strings.TrimSpace(c.App.RunMode))
	if c.App.RunMode == "" {
		c.App.RunMode = RunModeServe
	}
	c.Kayzen.BaseURL = strings.TrimRight(c.Kayzen.BaseURL, "/")
	if c.Pubsub.ProjectID == "" {
		c.Pubsub.ProjectID = c.BigQuery.ProjectID
	}
	c.Database.Vendor = strings.ToLower(c.Database.Vendor)
	if c.Database.Vendor == "mssql" && c.Database.Port == "" {
		c.Database.Port = "1433"
	}
	if c.Database.Vendor == "postgres" && c.Database.Port == "" {
		c.Database.Port = "5432"
	}
	if c.RunLock.TTL <= 0 {
		c.RunLock.TTL = DefaultRunLockTTL
	}
}

func getConfigName() string {
	name := "config"
	if env := os.Getenv("ENV"); env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}
