package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v10"
)

// Logging selects the log level, encoder and sink.
type Logging struct {
	// Level is one of debug, info, warn, error or fatal.
	Level string `env:"LOG_LEVEL"`
	// Format is json or console.
	Format string `env:"LOG_FORMAT" envDefault:"json"`
	// Output is stdout, stderr or a file path.
	Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
}

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
		// MaxBodyBytes bounds evaluation request bodies.
		MaxBodyBytes int64 `env:"HTTP_MAX_BODY_BYTES" envDefault:"8388608"`
	}
	Logging   Logging
	Benchmark struct {
		// PresetsFile is a YAML preset list; the built-in presets are used
		// when empty.
		PresetsFile string `env:"BBDOB_PRESETS_FILE"`
		// Workers bounds the goroutines evaluating one population; 0 means
		// GOMAXPROCS.
		Workers int `env:"EVAL_WORKERS" envDefault:"0"`
	}
	NasBench struct {
		// DB is a SQLite store built with `bbdob nasbench import`.
		DB string `env:"NASBENCH_DB"`
		// JSONL is loaded into memory when DB is empty.
		JSONL  string `env:"NASBENCH_JSONL"`
		Epochs int    `env:"NASBENCH_EPOCHS" envDefault:"108"`
	}
}

func Load() (*Config, error) {
	cfg := &Config{}

	// Parse environment variables
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Set default logging level based on environment
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
		if cfg.Environment == "development" {
			cfg.Logging.Level = "debug"
		}
	}

	if cfg.Benchmark.Workers < 0 {
		return nil, fmt.Errorf("EVAL_WORKERS must not be negative, got %d", cfg.Benchmark.Workers)
	}

	// Ensure the store directory exists
	if cfg.NasBench.DB != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.NasBench.DB), 0755); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}
