// Package config provides environment-driven service configuration and the
// card template registry.
package config

import "os"

// Config holds the service configuration.
type Config struct {
	Port            string
	DBPath          string
	TemplateDir     string
	DetectorScript  string
	DetectorModel   string
	DefaultCardType string
}

// Load reads configuration from the environment, falling back to defaults.
func Load() *Config {
	return &Config{
		Port:            getEnv("PORT", "8080"),
		DBPath:          getEnv("DB_PATH", ""),
		TemplateDir:     getEnv("TEMPLATE_DIR", "templates"),
		DetectorScript:  getEnv("DETECTOR_SCRIPT", ""),
		DetectorModel:   getEnv("DETECTOR_MODEL", ""),
		DefaultCardType: getEnv("DEFAULT_CARD_TYPE", "cccd_2025"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
