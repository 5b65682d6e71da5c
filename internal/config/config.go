package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all bot configuration. Everything comes from environment
// variables; main loads a .env file first for local runs.
type Config struct {
	Server        string // host:port
	Channel       string
	Nick          string
	Password      string
	AdminName     string
	ExitPhrase    string
	CommandPrefix string

	DataDir     string
	UserDBPath  string
	UserLogSize int
	Stopwords   []string

	ImgurClientID string
	WordcloudFont string
	WordcloudMask string

	MetricsAddr string

	IdleTimeout     time.Duration
	JoinGrace       time.Duration
	CommandInterval time.Duration
	ChunkDelay      time.Duration
	ReloadInterval  time.Duration
}

// Load reads the environment and validates required variables.
// A missing required variable is an error; the caller treats it as fatal.
func Load() (*Config, error) {
	cfg := &Config{
		Server:        os.Getenv("IRC_SERVER"),
		Channel:       os.Getenv("IRC_CHANNEL"),
		Nick:          os.Getenv("BOT_NICK"),
		Password:      os.Getenv("IRC_PASSWORD"),
		AdminName:     os.Getenv("ADMIN_NAME"),
		ExitPhrase:    os.Getenv("EXIT_PHRASE"),
		CommandPrefix: os.Getenv("COMMAND_PREFIX"),
		DataDir:       os.Getenv("DATA_DIR"),
		UserDBPath:    os.Getenv("USER_DB_PATH"),
		ImgurClientID: os.Getenv("IMGUR_CLIENT_ID"),
		WordcloudFont: os.Getenv("WORDCLOUD_FONT"),
		WordcloudMask: os.Getenv("WORDCLOUD_MASK"),
		MetricsAddr:   os.Getenv("METRICS_ADDR"),
	}

	var missing []string
	for _, v := range []struct{ name, value string }{
		{"IRC_SERVER", cfg.Server},
		{"IRC_CHANNEL", cfg.Channel},
		{"BOT_NICK", cfg.Nick},
		{"IRC_PASSWORD", cfg.Password},
		{"ADMIN_NAME", cfg.AdminName},
	} {
		if v.value == "" {
			missing = append(missing, v.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s",
			strings.Join(missing, ", "))
	}

	// Defaults
	if cfg.ExitPhrase == "" {
		cfg.ExitPhrase = "bye BOTNICK"
	}
	cfg.ExitPhrase = strings.Replace(cfg.ExitPhrase, "BOTNICK", cfg.Nick, 1)
	if cfg.CommandPrefix == "" {
		cfg.CommandPrefix = "?"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "./data"
	}
	if cfg.UserDBPath == "" {
		cfg.UserDBPath = filepath.Join(cfg.DataDir, "users.db")
	}

	cfg.UserLogSize = intEnv("USER_LOG_SIZE", 50)
	if cfg.UserLogSize < 1 {
		return nil, fmt.Errorf("USER_LOG_SIZE must be positive, got %d", cfg.UserLogSize)
	}

	if sw := os.Getenv("STOPWORDS"); sw != "" {
		for _, w := range strings.Split(sw, ",") {
			if w = strings.TrimSpace(w); w != "" {
				cfg.Stopwords = append(cfg.Stopwords, strings.ToLower(w))
			}
		}
	}

	cfg.IdleTimeout = durationEnv("IDLE_TIMEOUT", 180*time.Second)
	cfg.JoinGrace = durationEnv("JOIN_GRACE", 10*time.Second)
	cfg.CommandInterval = durationEnv("COMMAND_INTERVAL", 1010*time.Millisecond)
	cfg.ChunkDelay = durationEnv("CHUNK_DELAY", 1250*time.Millisecond)
	cfg.ReloadInterval = durationEnv("RELOAD_INTERVAL", 15*time.Minute)

	return cfg, nil
}

func intEnv(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func durationEnv(name string, def time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
