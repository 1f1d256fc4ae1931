// Package config reads client and gateway settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const DefaultWFSURL = "https://adp.aurin.org.au/geoserver/wfs"

type CacheCfg struct {
	Enabled   bool
	RedisAddr string
	TTL       time.Duration
	OpTimeout time.Duration
}

type Config struct {
	WFSURL          string
	WFSVersion      string
	Username        string
	Password        string
	Addr            string
	LogLevel        string
	LogConsole      bool
	LogSampleN      int
	HTTPTimeout     time.Duration
	CapabilitiesTTL time.Duration
	MetricsEnabled  bool
	Cache           CacheCfg
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func FromEnv() Config {
	return Config{
		WFSURL:          getenv("WFS_URL", DefaultWFSURL),
		WFSVersion:      getenv("WFS_VERSION", "2.0.0"),
		Username:        os.Getenv("WFS_USERNAME"),
		Password:        os.Getenv("WFS_PASSWORD"),
		Addr:            getenv("ADDR", ":8090"),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		LogConsole:      getbool("LOG_CONSOLE", false),
		LogSampleN:      getint("LOG_SAMPLE_N", 0),
		HTTPTimeout:     getduration("HTTP_TIMEOUT", 30*time.Second),
		CapabilitiesTTL: getduration("CAPABILITIES_TTL", 10*time.Minute),
		MetricsEnabled:  getbool("METRICS_ENABLED", true),
		Cache: CacheCfg{
			Enabled:   getbool("CACHE_ENABLED", false),
			RedisAddr: getenv("REDIS_ADDR", "localhost:6379"),
			TTL:       getduration("CACHE_TTL", 5*time.Minute),
			OpTimeout: getduration("CACHE_OP_TIMEOUT", 250*time.Millisecond),
		},
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
