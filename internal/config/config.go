package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

const (
	secretService     = "clawgram"
	secretAPIKey      = "api_key"
	secretServerToken = "server_token"
	defaultAPITimeout = 15 * time.Second
	defaultDotEnvPath = ".env"
	defaultBaseURL    = "https://clawgram.org"
	defaultPageLimit  = 20
	defaultServerPort = 4100
	defaultRateBurst  = 5
	defaultLogLevel   = "info"
)

type Config struct {
	API     APIConfig
	Server  ServerConfig
	Storage StorageConfig
	Log     LogConfig
	Metrics MetricsConfig
}

type APIConfig struct {
	BaseURL   string
	Key       string
	PageLimit int
	Timeout   string
	RPS       float64 // 0 disables the client-side limiter
	Burst     int
}

type ServerConfig struct {
	Port  int
	Token string
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

type MetricsConfig struct {
	Enabled bool
}

// TimeoutDuration parses Timeout, falling back to 15s when it is empty or
// malformed.
func (c APIConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(c.Timeout))
	if err != nil || d <= 0 {
		return defaultAPITimeout
	}
	return d
}

// SlogLevel maps Level to a slog level. Unknown values mean info.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.Level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func defaults() Config {
	return Config{
		API: APIConfig{
			BaseURL:   defaultBaseURL,
			PageLimit: defaultPageLimit,
			Timeout:   defaultAPITimeout.String(),
			Burst:     defaultRateBurst,
		},
		Server: ServerConfig{
			Port: defaultServerPort,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: defaultLogLevel,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Load reads configuration from the platform-native backend, a .env file in
// the working directory, environment variables, and the platform secret
// store.
//
// On macOS the backend is UserDefaults (domain: com.clawgram.app) and
// secrets fall back to macOS Keychain.
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/clawgram/config.json
// and secrets fall back to $XDG_DATA_HOME/clawgram/secrets.json.
//
// Environment variables (CLAWGRAM_*) override .env values, which override
// backend values. A missing API key is not an error: requests are anonymous.
func Load() (Config, error) {
	dotenv, err := readDotEnv(defaultDotEnvPath)
	if err != nil {
		return Config{}, err
	}
	return loadWith(newPlatformBackend(), keychainStore{}, envLookup(dotenv))
}

// keychain abstracts secret store access for testing.
type keychain interface {
	Get(service, account string) (string, error)
	Set(service, account, value string) error
}

func loadWith(b ConfigBackend, kc keychain, getenv func(string) string) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg, getenv)

	if cfg.API.Key == "" {
		if key, err := kc.Get(secretService, secretAPIKey); err == nil && key != "" {
			cfg.API.Key = key
		}
	}
	if cfg.Server.Token == "" {
		if tok, err := kc.Get(secretService, secretServerToken); err == nil && tok != "" {
			cfg.Server.Token = tok
		}
	}

	if cfg.API.PageLimit <= 0 {
		return Config{}, fmt.Errorf("invalid api.page_limit %d: must be positive", cfg.API.PageLimit)
	}
	if cfg.API.RPS < 0 {
		return Config{}, fmt.Errorf("invalid api.rps %v: must not be negative", cfg.API.RPS)
	}

	return cfg, nil
}

// readDotEnv parses a .env file. A missing file yields no values.
func readDotEnv(path string) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return values, nil
}

// envLookup resolves a variable from the process environment first and the
// .env values second.
func envLookup(dotenv map[string]string) func(string) string {
	return func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return dotenv[key]
	}
}

// GetViewerToken returns the bearer token protecting the viewer API,
// generating and storing one on first use.
func GetViewerToken(cfg Config) (string, error) {
	return viewerToken(cfg, keychainStore{})
}

func viewerToken(cfg Config, kc keychain) (string, error) {
	if cfg.Server.Token != "" {
		return cfg.Server.Token, nil
	}
	tok := uuid.NewString()
	if err := kc.Set(secretService, secretServerToken, tok); err != nil {
		return "", fmt.Errorf("storing viewer token: %w", err)
	}
	return tok, nil
}

// keychainStore reads and writes the platform secret store.
type keychainStore struct{}

func (keychainStore) Get(service, account string) (string, error) {
	out, err := keychainGet(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (keychainStore) Set(service, account, value string) error {
	return keychainSet(service, account, value)
}
