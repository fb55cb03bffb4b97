package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/yosuke-furukawa/json5/encoding/json5"
)

const (
	DirName         = "faw"
	ConfigFileName  = "config.json"
	ProxiesFileName = "proxies.txt"
	OffersFileName  = "offers.json"
	EnvPrefix       = "FAW_"
)

// Config holds search defaults and the addresses of optional backends.
type Config struct {
	DefaultCity          string `json:"default_city"`
	DefaultDistance      int    `json:"default_distance"`
	DefaultMaxOffers     int    `json:"default_max_offers"`
	Database             string `json:"database"`
	RedisURL             string `json:"redis_url"`
	RedisStream          string `json:"redis_stream"`
	MemcacheAddr         string `json:"memcache_addr"`
	BlockCooldownMinutes int    `json:"block_cooldown_minutes"`
	RequestsPerMinute    int    `json:"requests_per_minute"`
	DebugDir             string `json:"debug_dir"`
	LogDir               string `json:"log_dir"`
}

func DefaultConfig() Config {
	return Config{
		DefaultCity:          "",
		DefaultDistance:      0,
		DefaultMaxOffers:     50,
		Database:             "",
		RedisStream:          "faw:offers",
		BlockCooldownMinutes: 15,
		RequestsPerMinute:    20,
		DebugDir:             ".",
	}
}

func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, DirName), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}

func ProxiesPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ProxiesFileName), nil
}

// DatabaseDSN returns the configured database, or the offers file in dir
// when none is set.
func (c Config) DatabaseDSN(dir string) string {
	if db := strings.TrimSpace(c.Database); db != "" {
		return db
	}
	return "file:" + filepath.Join(dir, OffersFileName)
}

// Load reads the config file, if any, and then applies FAW_* environment
// overrides on top.
func Load() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return applyEnv(DefaultConfig()), err
	}
	return LoadFile(path)
}

// LoadFile is Load for an explicit path. A missing file yields defaults.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return applyEnv(cfg), nil
		}
		return cfg, err
	}

	if len(strings.TrimSpace(string(data))) > 0 {
		if err := json5.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	return applyEnv(cfg), nil
}

func applyEnv(cfg Config) Config {
	cfg.DefaultCity = envString(EnvPrefix+"DEFAULT_CITY", cfg.DefaultCity)
	cfg.DefaultDistance = envInt(EnvPrefix+"DEFAULT_DISTANCE", cfg.DefaultDistance)
	cfg.DefaultMaxOffers = envInt(EnvPrefix+"DEFAULT_MAX_OFFERS", cfg.DefaultMaxOffers)
	cfg.Database = envString(EnvPrefix+"DATABASE", envString("DATABASE_URL", cfg.Database))
	cfg.RedisURL = envString(EnvPrefix+"REDIS_URL", cfg.RedisURL)
	cfg.RedisStream = envString(EnvPrefix+"REDIS_STREAM", cfg.RedisStream)
	cfg.MemcacheAddr = envString(EnvPrefix+"MEMCACHE_ADDR", cfg.MemcacheAddr)
	cfg.BlockCooldownMinutes = envInt(EnvPrefix+"BLOCK_COOLDOWN_MINUTES", cfg.BlockCooldownMinutes)
	cfg.RequestsPerMinute = envInt(EnvPrefix+"REQUESTS_PER_MINUTE", cfg.RequestsPerMinute)
	cfg.DebugDir = envString(EnvPrefix+"DEBUG_DIR", cfg.DebugDir)
	cfg.LogDir = envString(EnvPrefix+"LOG_DIR", cfg.LogDir)
	return cfg
}

// InitDir writes default config.json and proxies.txt into dir if they
// don't already exist.
func InitDir(dir string) ([]string, error) {
	var created []string

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return created, err
	}

	configPath := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		if err := writeConfig(configPath, DefaultConfig()); err != nil {
			return created, err
		}
		created = append(created, configPath)
	}

	proxiesPath := filepath.Join(dir, ProxiesFileName)
	if _, err := os.Stat(proxiesPath); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(proxiesPath, []byte(""), 0o644); err != nil {
			return created, err
		}
		created = append(created, proxiesPath)
	}

	return created, nil
}

func writeConfig(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// LoadProxies prefers the flag, then FAW_PROXIES, then the proxies file.
func LoadProxies(flagValue string) ([]string, error) {
	if strings.TrimSpace(flagValue) != "" {
		return splitCSV(flagValue), nil
	}

	if env := strings.TrimSpace(os.Getenv(EnvPrefix + "PROXIES")); env != "" {
		return splitCSV(env), nil
	}

	path, err := ProxiesPath()
	if err != nil {
		return nil, err
	}
	return ReadProxiesFile(path)
}

// ReadProxiesFile reads one proxy URL per line, skipping blanks and # comments.
func ReadProxiesFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var proxies []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		proxies = append(proxies, line)
	}
	return proxies, nil
}

func envString(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func envInt(key string, fallback int) int {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
