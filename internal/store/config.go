package store

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Mode     string `yaml:"mode"`     // SIM or LIVE
	Exchange string `yaml:"exchange"` // e.g. NSE
	Product  string `yaml:"product"`  // e.g. MIS (intraday)
	Worker   struct {
		PollIntervalMs int `yaml:"poll_interval_ms"` // exit fill poll cadence
		FillGraceMs    int `yaml:"fill_grace_ms"`    // wait before reading entry price
	} `yaml:"worker"`
	Limits struct {
		MaxQty      int     `yaml:"max_qty"`
		MaxDistance float64 `yaml:"max_distance"`
	} `yaml:"limits"`
	Sim struct {
		TickIntervalMs int     `yaml:"tick_interval_ms"`
		MinSeedPrice   float64 `yaml:"min_seed_price"`
		MaxSeedPrice   float64 `yaml:"max_seed_price"`
	} `yaml:"sim"`
	Dashboard struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"dashboard"`
}

func (c *Config) Validate() error {
	if c.Mode != "SIM" && c.Mode != "LIVE" {
		return fmt.Errorf("invalid mode '%s': must be 'SIM' or 'LIVE'", c.Mode)
	}
	if c.Worker.PollIntervalMs <= 0 {
		return fmt.Errorf("worker.poll_interval_ms must be positive, got %d", c.Worker.PollIntervalMs)
	}
	if c.Worker.FillGraceMs <= 0 {
		return fmt.Errorf("worker.fill_grace_ms must be positive, got %d", c.Worker.FillGraceMs)
	}
	if c.Limits.MaxQty <= 0 {
		return fmt.Errorf("limits.max_qty must be positive, got %d", c.Limits.MaxQty)
	}
	if c.Sim.MinSeedPrice >= c.Sim.MaxSeedPrice {
		return fmt.Errorf("sim.min_seed_price %.2f must be below sim.max_seed_price %.2f",
			c.Sim.MinSeedPrice, c.Sim.MaxSeedPrice)
	}
	return nil
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Worker.PollIntervalMs) * time.Millisecond
}

func (c *Config) FillGrace() time.Duration {
	return time.Duration(c.Worker.FillGraceMs) * time.Millisecond
}

func (c *Config) SimTickInterval() time.Duration {
	return time.Duration(c.Sim.TickIntervalMs) * time.Millisecond
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	if c.Mode == "" {
		c.Mode = "SIM"
	}
	if c.Exchange == "" {
		c.Exchange = "NSE"
	}
	if c.Product == "" {
		c.Product = "MIS"
	}
	if c.Worker.PollIntervalMs == 0 {
		c.Worker.PollIntervalMs = 500
	}
	if c.Worker.FillGraceMs == 0 {
		c.Worker.FillGraceMs = 1000
	}
	if c.Limits.MaxQty == 0 {
		c.Limits.MaxQty = 10000
	}
	if c.Limits.MaxDistance == 0 {
		c.Limits.MaxDistance = 500
	}
	if c.Sim.TickIntervalMs == 0 {
		c.Sim.TickIntervalMs = 500
	}
	if c.Sim.MinSeedPrice == 0 {
		c.Sim.MinSeedPrice = 500
	}
	if c.Sim.MaxSeedPrice == 0 {
		c.Sim.MaxSeedPrice = 3000
	}
	if c.Dashboard.Addr == "" {
		c.Dashboard.Addr = ":8080"
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}
