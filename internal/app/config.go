package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/kelseyhightower/envconfig"
	"github.com/redis/go-redis/v9"

	"github.com/duriyam/operate/internal/platform/cache"
	"github.com/duriyam/operate/internal/shared"
)

// Backend drivers.
const (
	DriverREST     = "rest"
	DriverPostgres = "postgres"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	BackendDriver  string        `envconfig:"BACKEND_DRIVER" default:"rest"`
	BackendURL     string        `envconfig:"BACKEND_URL"`
	BackendAPIKey  string        `envconfig:"BACKEND_API_KEY"`
	BackendTimeout time.Duration `envconfig:"BACKEND_TIMEOUT" default:"10s"`

	PGDSN       string `envconfig:"PG_DSN"`
	SyncCatalog bool   `envconfig:"AUTHZ_SYNC_CATALOG" default:"false"`

	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	QueueDB       int           `envconfig:"QUEUE_REDIS_DB" default:"1"`
	SessionSecret string        `envconfig:"SESSION_SECRET" required:"true"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"720h"`

	CSRFSecret string `envconfig:"CSRF_SECRET" required:"true"`

	AuthzCacheTTL time.Duration `envconfig:"AUTHZ_CACHE_TTL" default:"30s"`
	DriftSchedule string        `envconfig:"AUTHZ_DRIFT_SCHEDULE" default:"*/30 * * * *"`

	WorkerConcurrency int `envconfig:"WORKER_CONCURRENCY" default:"4"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("session secret must be provided")
	}
	if cfg.CSRFSecret == "" {
		return nil, errors.New("csrf secret must be provided")
	}
	cfg.BackendDriver = strings.ToLower(strings.TrimSpace(cfg.BackendDriver))
	return &cfg, nil
}

// ValidateBackend reports a configuration error when the selected driver
// lacks its endpoint, key or DSN. The server then runs in placeholder mode.
func (c *Config) ValidateBackend() error {
	switch c.BackendDriver {
	case DriverREST, "":
		var missing []string
		if strings.TrimSpace(c.BackendURL) == "" {
			missing = append(missing, "BACKEND_URL")
		}
		if strings.TrimSpace(c.BackendAPIKey) == "" {
			missing = append(missing, "BACKEND_API_KEY")
		}
		if len(missing) > 0 {
			return fmt.Errorf("%w: missing %s", shared.ErrConfiguration, strings.Join(missing, ", "))
		}
	case DriverPostgres:
		if strings.TrimSpace(c.PGDSN) == "" {
			return fmt.Errorf("%w: missing PG_DSN", shared.ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown BACKEND_DRIVER %q", shared.ErrConfiguration, c.BackendDriver)
	}
	return nil
}

// Redis returns the connection options for the session and cache database.
func (c *Config) Redis() cache.Options {
	return cache.Options{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB}
}

// Queue returns the asynq connection for the job queues.
func (c *Config) Queue() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.QueueDB}
}

// SessionManager builds the cookie session manager signed with SESSION_SECRET.
func (c *Config) SessionManager(client *redis.Client) *shared.SessionManager {
	return shared.NewSessionManager(client, c.SessionSecret, "operate_session", c.SessionTTL, c.IsProduction())
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
