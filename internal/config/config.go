package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

type Config struct {
	Port string `json:"port"`

	// Хранилище: "memory" (по умолчанию) | "postgres" | "sqlite"
	Driver string `json:"driver"`
	DBURL  string `json:"dbUrl"` // DSN для postgres/sqlite

	Catalog    string `json:"catalog"`    // YAML встроенных разделов; пусто - встроенный
	DateLayout string `json:"dateLayout"` // формат дат в списках
	LogLevel   string `json:"logLevel"`
	Dev        bool   `json:"dev"` // консольные логи, gin debug
}

func Default() Config {
	return Config{
		Port:       "8080",
		Driver:     "memory",
		DBURL:      "",
		Catalog:    "",
		DateLayout: "02 Jan 2006",
		LogLevel:   "info",
		Dev:        false,
	}
}

func loadJSON(path string, base Config) (Config, error) {
	c := base
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := json.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func getenv(k, fallback string) string {
	if v, ok := os.LookupEnv(k); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}

func getenvBool(k string, fallback bool) bool {
	if v, ok := os.LookupEnv(k); ok {
		v = strings.TrimSpace(strings.ToLower(v))
		if v == "1" || v == "true" || v == "yes" {
			return true
		}
		if v == "0" || v == "false" || v == "no" {
			return false
		}
	}
	return fallback
}

// Load: умолчания, затем JSON (если файл есть), затем GOVCONNECT_*.
// Флаги командной строки накладывает cmd/server.
func Load(jsonPath string) (Config, error) {
	cfg := Default()

	if jsonPath != "" {
		if st, err := os.Stat(jsonPath); err == nil && !st.IsDir() {
			c2, err := loadJSON(jsonPath, cfg)
			if err != nil {
				return cfg, err
			}
			cfg = c2
		}
	}

	cfg.Port = getenv("GOVCONNECT_PORT", cfg.Port)
	cfg.Driver = getenv("GOVCONNECT_DRIVER", cfg.Driver)
	cfg.DBURL = getenv("GOVCONNECT_DB_URL", cfg.DBURL)
	cfg.Catalog = getenv("GOVCONNECT_CATALOG", cfg.Catalog)
	cfg.DateLayout = getenv("GOVCONNECT_DATE_LAYOUT", cfg.DateLayout)
	cfg.LogLevel = getenv("GOVCONNECT_LOG_LEVEL", cfg.LogLevel)
	cfg.Dev = getenvBool("GOVCONNECT_DEV", cfg.Dev)

	return cfg, nil
}

func (c *Config) Validate() error {
	c.Driver = strings.ToLower(strings.TrimSpace(c.Driver))
	switch c.Driver {
	case "", "memory":
		c.Driver = "memory"
	case "postgres", "sqlite":
		if strings.TrimSpace(c.DBURL) == "" {
			return fmt.Errorf("driver %q requires dbUrl", c.Driver)
		}
	default:
		return fmt.Errorf("unknown driver %q (memory|postgres|sqlite)", c.Driver)
	}
	if strings.TrimSpace(c.Port) == "" {
		return fmt.Errorf("port must not be empty")
	}
	return nil
}

// Addr - адрес для http.Server.
func (c Config) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}
