package cqlx

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const (
	DefaultEnvPrefix = "CQLX_"
)

// Config is the environment form of the cluster options.
type Config struct {
	Hosts                    []string      `env:"HOSTS" envSeparator:"," envDefault:"127.0.0.1"`
	Port                     int           `env:"PORT" envDefault:"9042"`
	Keyspace                 string        `env:"KEYSPACE" envDefault:"cqlx"`
	ProtocolVersion          int           `env:"PROTOCOL_VERSION" envDefault:"4"`
	ConnectTimeout           time.Duration `env:"CONNECT_TIMEOUT" envDefault:"5s"`
	RequestTimeout           time.Duration `env:"REQUEST_TIMEOUT" envDefault:"5s"`
	ResolveTimeout           time.Duration `env:"RESOLVE_TIMEOUT" envDefault:"2s"`
	SpeculativeDelay         time.Duration `env:"SPECULATIVE_DELAY" envDefault:"15s"`
	MaxSpeculativeExecutions int           `env:"MAX_SPECULATIVE_EXECUTIONS" envDefault:"2"`
	PrepareWorkers           int           `env:"PREPARE_WORKERS" envDefault:"4"`
	ExecuteWorkers           int           `env:"EXECUTE_WORKERS" envDefault:"4"`
	DispatchQueueSize        int           `env:"DISPATCH_QUEUE_SIZE" envDefault:"256"`
}

// LoadConfig reads .env when present and then the environment variables with the prefix.
func LoadConfig(prefix string) (Config, error) {
	_ = godotenv.Load()

	cfg := Config{}
	err := env.ParseWithOptions(&cfg, env.Options{Prefix: prefix})
	if err != nil {
		return Config{}, errors.WithMessage(err, "parse env config")
	}
	return cfg, nil
}

func (c Config) Options() []Option {
	return []Option{
		Hosts(c.Hosts...),
		Port(c.Port),
		Keyspace(c.Keyspace),
		ProtocolVersion(c.ProtocolVersion),
		ConnectTimeout(c.ConnectTimeout),
		RequestTimeout(c.RequestTimeout),
		ResolveTimeout(c.ResolveTimeout),
		ConstantSpeculativeExecution(c.SpeculativeDelay, c.MaxSpeculativeExecutions),
		WithDispatcherOptions(
			PrepareWorkers(c.PrepareWorkers),
			ExecuteWorkers(c.ExecuteWorkers),
			DispatchQueueSize(c.DispatchQueueSize),
		),
	}
}
