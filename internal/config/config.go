package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config aggregates every setting of the client.
type Config struct {
	Backend BackendConfig
	Store   StoreConfig
	Poll    PollConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	backend, err := loadBackendConfig()
	if err != nil {
		return nil, err
	}

	store, err := loadStoreConfig()
	if err != nil {
		return nil, err
	}

	poll, err := loadPollConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Backend: backend, Store: store, Poll: poll}, nil
}

// BackendConfig describes the remote conversation service.
type BackendConfig struct {
	BaseURL string
}

func loadBackendConfig() (BackendConfig, error) {
	baseURL := strings.TrimSpace(os.Getenv("BACKEND_URL"))
	if baseURL == "" {
		baseURL = "http://localhost:5000"
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return BackendConfig{}, fmt.Errorf("invalid BACKEND_URL value: %q", baseURL)
	}
	return BackendConfig{BaseURL: baseURL}, nil
}

// StoreConfig describes where conversations are persisted.
type StoreConfig struct {
	Path string
}

func loadStoreConfig() (StoreConfig, error) {
	path := strings.TrimSpace(os.Getenv("STORE_PATH"))
	if path != "" {
		return StoreConfig{Path: path}, nil
	}
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		// No resolvable cache dir, keep the store next to the binary.
		return StoreConfig{Path: "timechat.db"}, nil
	}
	return StoreConfig{Path: filepath.Join(cacheDir, "timechat", "timechat.db")}, nil
}

// PollConfig tunes the reply poller.
type PollConfig struct {
	Interval    time.Duration
	MaxAttempts int
	MaxEmpty    int
}

func loadPollConfig() (PollConfig, error) {
	poll := PollConfig{
		Interval:    time.Second,
		MaxAttempts: 15,
		MaxEmpty:    10,
	}

	if raw := strings.TrimSpace(os.Getenv("POLL_INTERVAL_MS")); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil || ms <= 0 {
			return PollConfig{}, fmt.Errorf("invalid POLL_INTERVAL_MS value: %q", raw)
		}
		poll.Interval = time.Duration(ms) * time.Millisecond
	}

	if raw := strings.TrimSpace(os.Getenv("POLL_MAX_ATTEMPTS")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return PollConfig{}, fmt.Errorf("invalid POLL_MAX_ATTEMPTS value: %q", raw)
		}
		poll.MaxAttempts = n
	}

	if raw := strings.TrimSpace(os.Getenv("POLL_MAX_EMPTY")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return PollConfig{}, fmt.Errorf("invalid POLL_MAX_EMPTY value: %q", raw)
		}
		poll.MaxEmpty = n
	}

	return poll, nil
}
