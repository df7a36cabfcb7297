package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr       string   `env:"HTTP_ADDR" envDefault:":8080"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`
	UploadDir      string   `env:"UPLOAD_DIR" envDefault:"uploads"`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`
	DB             DBConfig `envPrefix:"DB_"`
}

type DBConfig struct {
	Driver   string `env:"DRIVER" envDefault:"sqlite"`
	Path     string `env:"PATH" envDefault:"placement.db"`
	Host     string `env:"HOST" envDefault:"localhost"`
	User     string `env:"USER"`
	Password string `env:"PASSWORD"`
	Name     string `env:"NAME" envDefault:"placement"`
	Port     string `env:"PORT" envDefault:"5432"`
	SSLMode  string `env:"SSLMODE" envDefault:"disable"`
}

// DSN is the postgres connection string.
func (c DBConfig) DSN() string {
	return "host=" + c.Host + " user=" + c.User + " password=" + c.Password +
		" dbname=" + c.Name + " port=" + c.Port + " sslmode=" + c.SSLMode
}

// Load reads the given dotenv files (".env" when none are given) into the
// process environment and parses the environment into a Config. Missing
// dotenv files are not an error; variables already set win.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	switch cfg.DB.Driver {
	case "sqlite", "postgres":
	default:
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DB.Driver)
	}
	return cfg, nil
}
