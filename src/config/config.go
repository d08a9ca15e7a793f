// Package config loads service settings from the environment, reading a
// .env file first when one is present.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	ProjectID       string
	DatabaseID      string
	ElasticURL      string
	ElasticIndex    string
	ListenAddr      string
	SigningKey      []byte
	Users           map[string]string // username -> bcrypt hash
	LogLevel        string
	LogPretty       bool
	CompensateWrite bool
}

// Load reads the configuration. A missing .env file is not an error; a
// malformed one is.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load env file: %w", err)
	}
	return FromEnv()
}

func FromEnv() (Config, error) {
	cfg := Config{
		ProjectID:    os.Getenv("FIRESTORE_PROJECT_ID"),
		DatabaseID:   getEnv("FIRESTORE_DATABASE", "(default)"),
		ElasticURL:   getEnv("ELASTIC_URL", "http://localhost:9200"),
		ElasticIndex: getEnv("ELASTIC_INDEX", "resources"),
		ListenAddr:   getEnv("LISTEN_ADDR", ":8888"),
		SigningKey:   []byte(os.Getenv("MY_SIGNING_KEY")),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
	}

	var errs []error
	if len(cfg.SigningKey) == 0 {
		errs = append(errs, errors.New("MY_SIGNING_KEY environment variable is not set"))
	}

	var err error
	if cfg.LogPretty, err = getBool("LOG_PRETTY"); err != nil {
		errs = append(errs, err)
	}
	if cfg.CompensateWrite, err = getBool("COMPENSATE_FAILED_WRITES"); err != nil {
		errs = append(errs, err)
	}
	if cfg.Users, err = parseUsers(os.Getenv("API_USERS")); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}

// RequireFirestore reports the settings missing for a Firestore-backed store.
func (c Config) RequireFirestore() error {
	if c.ProjectID == "" {
		return errors.New("FIRESTORE_PROJECT_ID environment variable is not set")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getBool(key string) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

// parseUsers reads "name:hash,name:hash". bcrypt hashes contain '$' but no ':' or ','.
func parseUsers(raw string) (map[string]string, error) {
	users := make(map[string]string)
	if strings.TrimSpace(raw) == "" {
		return users, nil
	}
	for _, entry := range strings.Split(raw, ",") {
		name, hash, ok := strings.Cut(strings.TrimSpace(entry), ":")
		if !ok || name == "" || hash == "" {
			return nil, fmt.Errorf("API_USERS: malformed entry %q", entry)
		}
		users[name] = hash
	}
	return users, nil
}
