package config

import (
	"os"
	"strconv"
	"strings"
)

// Settings are the process settings read from the environment.
type Settings struct {
	ConfigPath string
	Port       int
	LogMode    string
	LogLevel   string
	SnapshotDB string
	CacheSize  int
}

// DefaultPort is used when neither the environment nor the config file sets
// one.
const DefaultPort = 8080

// FromEnv reads Settings. Unset or malformed numbers fall back to defaults.
func FromEnv(defaultCacheSize int) Settings {
	port := Int("SKETCHD_PORT", 0)
	if port == 0 {
		port = Int("PORT", 0)
	}
	return Settings{
		ConfigPath: String("SKETCHD_CONFIG", ""),
		Port:       port,
		LogMode:    String("SKETCHD_LOG_MODE", "dev"),
		LogLevel:   String("SKETCHD_LOG_LEVEL", ""),
		SnapshotDB: String("SKETCHD_SNAPSHOT_DB", ""),
		CacheSize:  Int("SKETCHD_SERIALIZE_CACHE", defaultCacheSize),
	}
}

// ResolvePort picks the environment's port, then the file's, then the
// default.
func (s Settings) ResolvePort(f *File) int {
	switch {
	case s.Port > 0:
		return s.Port
	case f != nil && f.Port > 0:
		return f.Port
	}
	return DefaultPort
}

func String(name, def string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return def
}

func Int(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}
