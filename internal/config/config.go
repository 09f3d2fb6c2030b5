package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/joho/godotenv"
)

const (
	// DebugModeEnv is the environment variable for debug mode.
	DebugModeEnv = "DEBUG_MODE"

	// DBHostEnv is the environment variable for database host.
	DBHostEnv = "DB_HOST"

	// DBPortEnv is the environment variable for database port.
	DBPortEnv = "DB_PORT"

	// DBUserEnv is the environment variable for database user.
	DBUserEnv = "DB_USER"

	// DBPassEnv is the environment variable for database password.
	DBPassEnv = "DB_PASS"

	// DBNameEnv is the environment variable for database name.
	DBNameEnv = "DB_NAME"

	// HTTPServerPortEnv is the environment variable for HTTP server port.
	HTTPServerPortEnv = "HTTP_SERVER_PORT"

	// MetricsServerPortEnv is the environment variable for metrics server port.
	MetricsServerPortEnv = "METRICS_SERVER_PORT"

	// EnvFilePath is the environment variable for .env file path (only for local/test environment).
	EnvFilePath = "ENV_PATH"

	// DefaultEnvFilePath is the default path to the .env file.
	DefaultEnvFilePath = ".env"

	// AWSRegionEnv is the environment variable for AWS region.
	AWSRegionEnv = "AWS_REGION"

	// AWSEndpointEnv is the environment variable for AWS endpoint.
	AWSEndpointEnv = "AWS_ENDPOINT"

	// SQSQueueURLEnv is the environment variable for SQS queue URL. Empty disables notifications.
	SQSQueueURLEnv = "SQS_QUEUE_URL"

	// AccessLogEnv enables the HTTP access log.
	AccessLogEnv = "ACCESS_LOG"

	// StorageEnv selects the store backend: postgres or memory.
	StorageEnv = "STORAGE"

	// MicroserviceEnv selects what this process serves. Empty serves everything;
	// "products" serves the orchestrator only; a kind serves that kind only.
	MicroserviceEnv = "MICROSERVICE"

	// BasePathEnv is the URL prefix of every route.
	BasePathEnv = "BASE_PATH"

	// RemoteTimeoutEnv bounds one remote call, in seconds.
	RemoteTimeoutEnv = "REMOTE_TIMEOUT"

	// EndpointEnvPrefix prefixes the base URL variable of each remote kind, e.g. ENDPOINT_PRICE.
	EndpointEnvPrefix = "ENDPOINT_"

	StoragePostgres = "postgres"
	StorageMemory   = "memory"

	DefaultBasePath      = "/api/v2"
	DefaultRemoteTimeout = 10 * time.Second

	// AllInOne is the process name used when every kind is served locally.
	AllInOne = "all-in-one"
)

var (
	// ErrMissingConfig is returned when required configuration values are missing.
	ErrMissingConfig = errors.New("missing config data")

	// ErrInvalidConfig is returned when a configuration value is not recognized.
	ErrInvalidConfig = errors.New("invalid config data")
)

// Config represents the application configuration.
type Config struct {
	DebugMode     bool
	AccessLog     bool
	Storage       string
	Database      DB
	HTTPServer    Server
	MetricsServer Server
	AWS           AWSConfig
	Catalog       Catalog
}

// Catalog describes which kinds this process serves and where the others live.
type Catalog struct {
	Microservice  string
	BasePath      string
	Endpoints     map[model.Kind]string
	RemoteTimeout time.Duration
}

// ServesProducts reports whether this process serves the composite product routes.
func (c Catalog) ServesProducts() bool {
	return c.Microservice == "" || c.Microservice == model.KindProducts.String()
}

// ServedKinds returns the kinds whose stores live in this process.
func (c Catalog) ServedKinds() []model.Kind {
	switch c.Microservice {
	case "":
		return model.Kinds
	case model.KindProducts.String():
		return nil
	default:
		return []model.Kind{model.Kind(c.Microservice)}
	}
}

// RemoteKinds returns the kinds this process calls but does not serve.
func (c Catalog) RemoteKinds() []model.Kind {
	if c.Microservice == "" {
		return nil
	}
	var remote []model.Kind
	for _, kind := range model.Kind(c.Microservice).Dependencies() {
		if kind.String() != c.Microservice {
			remote = append(remote, kind)
		}
	}
	return remote
}

// UserAgent names this process on outbound calls.
func (c Catalog) UserAgent() string {
	if c.Microservice == "" {
		return AllInOne
	}
	return c.Microservice
}

// AWSConfig represents AWS-specific configuration settings.
type AWSConfig struct {
	Region      string
	Endpoint    string
	SQSQueueURL string
}

// DB represents database configuration settings.
type DB struct {
	Host     string
	User     string
	Password string
	Name     string
	Port     string
}

// Server represents server configuration settings.
type Server struct {
	Port string
}

func allNonEmpty(keyValues map[string]string) error {
	for key, value := range keyValues {
		if value == "" {
			slog.Error("configuration validation failed", slog.String("key", key), slog.String("error", "value is empty"))
			return fmt.Errorf("%w for key: %s", ErrMissingConfig, key)
		}
	}
	return nil
}

func allNumbers(keyValues map[string]string) error {
	for key, value := range keyValues {
		_, err := strconv.Atoi(value)
		if err != nil {
			slog.Error("configuration validation failed", slog.String("key", key), slog.String("value", value), slog.String("error", err.Error()))
			return fmt.Errorf("invalid number for key %s: %w", key, err)
		}
	}
	return nil
}

func (c *Config) validate() error {
	if c.Catalog.Microservice != "" {
		if _, err := model.ParseKind(c.Catalog.Microservice); err != nil {
			return fmt.Errorf("%w for key %s: %w", ErrInvalidConfig, MicroserviceEnv, err)
		}
	}

	switch c.Storage {
	case StorageMemory:
	case StoragePostgres:
		// Validate database configuration
		if len(c.Catalog.ServedKinds()) == 0 {
			break
		}
		if err := allNonEmpty(map[string]string{
			DBHostEnv: c.Database.Host,
			DBUserEnv: c.Database.User,
			DBNameEnv: c.Database.Name,
		}); err != nil {
			return fmt.Errorf("database configuration incomplete: %w", err)
		}
		if err := allNumbers(map[string]string{DBPortEnv: c.Database.Port}); err != nil {
			return fmt.Errorf("invalid port number: %w", err)
		}
	default:
		return fmt.Errorf("%w for key %s: %q", ErrInvalidConfig, StorageEnv, c.Storage)
	}

	// Validate server ports
	if err := allNonEmpty(map[string]string{
		HTTPServerPortEnv:    c.HTTPServer.Port,
		MetricsServerPortEnv: c.MetricsServer.Port,
	}); err != nil {
		return fmt.Errorf("server port configuration incomplete: %w", err)
	}

	// Validate port numbers
	if err := allNumbers(map[string]string{
		HTTPServerPortEnv:    c.HTTPServer.Port,
		MetricsServerPortEnv: c.MetricsServer.Port,
	}); err != nil {
		return fmt.Errorf("invalid port number: %w", err)
	}

	// Validate remote endpoints
	endpoints := make(map[string]string)
	for _, kind := range c.Catalog.RemoteKinds() {
		endpoints[endpointEnv(kind)] = c.Catalog.Endpoints[kind]
	}
	if err := allNonEmpty(endpoints); err != nil {
		return fmt.Errorf("endpoint configuration incomplete: %w", err)
	}

	return nil
}

func endpointEnv(kind model.Kind) string {
	return EndpointEnvPrefix + strings.ToUpper(kind.String())
}

func getEnv(name, defaultValue string) string {
	if val := os.Getenv(name); val != "" {
		return val
	}
	return defaultValue
}

func getEnvAsSeconds(name string, defaultValue time.Duration) (time.Duration, error) {
	val := os.Getenv(name)
	if val == "" {
		return defaultValue, nil
	}
	if err := allNumbers(map[string]string{name: val}); err != nil {
		return 0, err
	}
	seconds, _ := strconv.Atoi(val)
	return time.Duration(seconds) * time.Second, nil
}

func getEnvAsBool(name string, defaultValue bool) bool {
	if val, err := strconv.ParseBool(os.Getenv(name)); err == nil {
		return val
	}
	return defaultValue
}

// ApplyEnvFile loads environment variables from the specified .env files.
func ApplyEnvFile(files ...string) error {
	err := godotenv.Load(files...)
	if err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables and validates it.
func LoadFromEnv() (*Config, error) {
	envPath := os.Getenv(EnvFilePath)
	if envPath == "" {
		envPath = DefaultEnvFilePath
	}
	err := ApplyEnvFile(envPath)
	if err != nil {
		// just log the error, maybe all envs are set in another way
		slog.Info("failed to load from .env", slog.Any("err", err))
	}

	timeout, err := getEnvAsSeconds(RemoteTimeoutEnv, DefaultRemoteTimeout)
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	endpoints := make(map[model.Kind]string)
	for _, kind := range model.Kinds {
		if url := os.Getenv(endpointEnv(kind)); url != "" {
			endpoints[kind] = url
		}
	}

	conf := &Config{
		DebugMode: getEnvAsBool(DebugModeEnv, false),
		AccessLog: getEnvAsBool(AccessLogEnv, false),
		Storage:   strings.ToLower(getEnv(StorageEnv, StoragePostgres)),
		Database: DB{
			Host:     os.Getenv(DBHostEnv),
			User:     os.Getenv(DBUserEnv),
			Password: os.Getenv(DBPassEnv),
			Name:     os.Getenv(DBNameEnv),
			Port:     getEnv(DBPortEnv, "5432"),
		},
		HTTPServer: Server{
			Port: os.Getenv(HTTPServerPortEnv),
		},
		MetricsServer: Server{
			Port: os.Getenv(MetricsServerPortEnv),
		},
		AWS: AWSConfig{
			Region:      os.Getenv(AWSRegionEnv),
			Endpoint:    os.Getenv(AWSEndpointEnv),
			SQSQueueURL: os.Getenv(SQSQueueURLEnv),
		},
		Catalog: Catalog{
			Microservice:  strings.ToLower(os.Getenv(MicroserviceEnv)),
			BasePath:      "/" + strings.Trim(getEnv(BasePathEnv, DefaultBasePath), "/"),
			Endpoints:     endpoints,
			RemoteTimeout: timeout,
		},
	}

	if err := conf.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return conf, nil
}
