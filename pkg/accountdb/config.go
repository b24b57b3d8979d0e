package accountdb

import "time"

// Config holds PostgreSQL connection settings for the account store.
type Config struct {
	ConnectionString  string        `env:"ACCOUNTDB_CONN_URL,required"`
	MaxOpenConns      int32         `env:"ACCOUNTDB_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns      int32         `env:"ACCOUNTDB_MAX_IDLE_CONNS" envDefault:"5"`
	HealthCheckPeriod time.Duration `env:"ACCOUNTDB_HEALTHCHECK_PERIOD" envDefault:"1m"`
	MaxConnIdleTime   time.Duration `env:"ACCOUNTDB_MAX_CONN_IDLE_TIME" envDefault:"10m"`
	MaxConnLifetime   time.Duration `env:"ACCOUNTDB_MAX_CONN_LIFETIME" envDefault:"30m"`

	RetryAttempts int           `env:"ACCOUNTDB_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval time.Duration `env:"ACCOUNTDB_RETRY_INTERVAL" envDefault:"5s"`
}
