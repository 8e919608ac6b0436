package devmaster

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/devmasterhq/devmaster/devmaster/database"
	"github.com/pelletier/go-toml/v2"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

type Config struct {
	Log         LogConfig         `toml:"log"`
	Server      ServerConfig      `toml:"server"`
	DB          database.DBConfig `toml:"db"`
	Auth        AuthConfig        `toml:"auth"`
	Energy      EnergyConfig      `toml:"energy"`
	Grader      GraderConfig      `toml:"grader"`
	MercadoPago MercadoPagoConfig `toml:"mercadopago"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	AddSource bool       `toml:"add_source"`
}

type ServerConfig struct {
	Addr           string `toml:"addr"`
	AllowedOrigins string `toml:"allowed_origins"`
}

type AuthConfig struct {
	// JWTSecret verifies bearer tokens minted by the identity provider.
	JWTSecret string `toml:"jwt_secret"`
}

type EnergyConfig struct {
	MaxEnergy int `toml:"max_energy"`
	// RegenIntervalMinutes is the size of one regeneration tick.
	RegenIntervalMinutes int `toml:"regen_interval_minutes"`
	// CronSecret authenticates the external scheduler that triggers
	// batch regeneration.
	CronSecret string `toml:"cron_secret"`
}

type GraderConfig struct {
	TimeoutMS int `toml:"timeout_ms"`
}

func (g GraderConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutMS) * time.Millisecond
}

type MercadoPagoConfig struct {
	AccessToken     string `toml:"access_token"`
	BaseURL         string `toml:"base_url"`
	BackURLBase     string `toml:"back_url_base"`
	NotificationURL string `toml:"notification_url"`
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Energy.MaxEnergy == 0 {
		c.Energy.MaxEnergy = 7
	}
	if c.Energy.RegenIntervalMinutes == 0 {
		c.Energy.RegenIntervalMinutes = 10
	}
	if c.Grader.TimeoutMS == 0 {
		c.Grader.TimeoutMS = 2000
	}
	if c.MercadoPago.BaseURL == "" {
		c.MercadoPago.BaseURL = "https://api.mercadopago.com"
	}
}
