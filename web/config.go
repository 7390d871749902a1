// Package web serves the browser form for turning a PDF into an audiobook.
package web

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds server tuning read from the environment.
type Config struct {
	MaxUploadMB  int64         `env:"BOOKVOICE_MAX_UPLOAD_MB" envDefault:"200"`
	MaxPending   int           `env:"BOOKVOICE_MAX_PENDING" envDefault:"16"`
	SessionTTL   time.Duration `env:"BOOKVOICE_SESSION_TTL" envDefault:"24h"`
	ReadTimeout  time.Duration `env:"BOOKVOICE_READ_TIMEOUT" envDefault:"5m"`
	WriteTimeout time.Duration `env:"BOOKVOICE_WRITE_TIMEOUT" envDefault:"10m"`
}

// LoadConfig parses Config from the environment.
func LoadConfig() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("error parsing server environment: %w", err)
	}
	if cfg.MaxUploadMB <= 0 {
		return Config{}, fmt.Errorf("BOOKVOICE_MAX_UPLOAD_MB must be positive, got %d", cfg.MaxUploadMB)
	}
	return cfg, nil
}

func (c Config) maxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}
