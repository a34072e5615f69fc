package config

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kelseyhightower/envconfig"
)

type Store string

const (
	StoreMemory   Store = "memory"
	StorePostgres Store = "postgres"
)

type Config struct {
	App struct {
		Name     string `envconfig:"APP_NAME" default:"Condo"`
		Port     int    `envconfig:"PORT" default:"8080"`
		LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	}

	Store Store `envconfig:"STORE" default:"postgres"`

	DB struct {
		Host            string        `envconfig:"DB_HOST" default:"localhost"`
		Port            int           `envconfig:"DB_PORT" default:"5432"`
		User            string        `envconfig:"DB_USER" default:"postgres"`
		Password        string        `envconfig:"DB_PASSWORD" default:""`
		Name            string        `envconfig:"DB_NAME" default:"condo"`
		MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`
		MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
		ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"30m"`
	}

	Server struct {
		Timeout         time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`
	}

	Sweeper struct {
		Schedule string        `envconfig:"SWEEP_SCHEDULE" default:"@every 5m"`
		Timeout  time.Duration `envconfig:"SWEEP_TIMEOUT" default:"1m"`
	}

	Recalc struct {
		Delay   time.Duration `envconfig:"RECALC_DELAY" default:"2s"`
		Timeout time.Duration `envconfig:"RECALC_TIMEOUT" default:"30s"`
	}

	Realtime struct {
		SendBuffer     int           `envconfig:"REALTIME_SEND_BUFFER" default:"32"`
		PingInterval   time.Duration `envconfig:"REALTIME_PING_INTERVAL" default:"30s"`
		WriteTimeout   time.Duration `envconfig:"REALTIME_WRITE_TIMEOUT" default:"10s"`
		AllowedOrigins []string      `envconfig:"ALLOWED_ORIGINS" default:"*"`
	}

	Documents struct {
		RendererURL string        `envconfig:"DOCUMENTS_RENDERER_URL" default:"http://localhost:3000"`
		Token       string        `envconfig:"DOCUMENTS_TOKEN"`
		Root        string        `envconfig:"DOCUMENTS_ROOT" default:"./documents"`
		Timeout     time.Duration `envconfig:"DOCUMENTS_TIMEOUT" default:"30s"`
	}

	Telemetry struct {
		Endpoint    string  `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
		SampleRatio float64 `envconfig:"OTEL_SAMPLE_RATIO" default:"1"`
	}

	Client struct {
		APIURL            string        `envconfig:"CONDO_API_URL" default:"http://localhost:8080"`
		ActorID           uuid.UUID     `envconfig:"CONDO_ACTOR_ID"`
		ActorRole         string        `envconfig:"CONDO_ACTOR_ROLE" default:"building_admin"`
		PollInterval      time.Duration `envconfig:"CONDO_POLL_INTERVAL" default:"15s"`
		SuppressionWindow time.Duration `envconfig:"CONDO_SUPPRESSION_WINDOW" default:"3s"`
		PendingTTL        time.Duration `envconfig:"CONDO_PENDING_TTL" default:"30s"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	switch cfg.Store {
	case StoreMemory, StorePostgres:
	default:
		return nil, fmt.Errorf("failed to process config: unknown store %q", cfg.Store)
	}

	return &cfg, nil
}
