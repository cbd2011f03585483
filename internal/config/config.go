package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

type AppConfig struct {
	GateBaseURL string
	GateWSURL   string
	GateToken   string

	BotPrefix string
	OwnerID   string

	AvatarBaseURL string

	DataFile    string
	AuthFile    string
	RedisURL    string
	DatabaseURL string

	HealthAddr string

	AllowedChannels []string

	CallTimeoutSec int
	HistoryWindow  int
	PurgeWindow    int
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		AvatarBaseURL:  "https://thumbnails.roblox.com",
		DataFile:       "topplayers_data.json",
		AuthFile:       "authorized_users.json",
		HealthAddr:     ":8080",
		CallTimeoutSec: 10,
		HistoryWindow:  100,
		PurgeWindow:    100,
	}

	cfg.GateBaseURL = strings.TrimSpace(os.Getenv("GATE_BASE_URL"))
	cfg.GateWSURL = strings.TrimSpace(os.Getenv("GATE_WS_URL"))
	cfg.GateToken = strings.TrimSpace(os.Getenv("GATE_TOKEN"))
	cfg.BotPrefix = strings.TrimSpace(os.Getenv("BOT_PREFIX"))
	cfg.OwnerID = strings.TrimSpace(os.Getenv("BOT_OWNER_ID"))

	if v := strings.TrimSpace(os.Getenv("AVATAR_BASE_URL")); v != "" {
		cfg.AvatarBaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("DATA_FILE")); v != "" {
		cfg.DataFile = v
	}
	if v := strings.TrimSpace(os.Getenv("AUTH_FILE")); v != "" {
		cfg.AuthFile = v
	}
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" { // hosting platforms inject PORT
		cfg.HealthAddr = ":" + v
	} else if v := strings.TrimSpace(os.Getenv("HEALTH_ADDR")); v != "" {
		cfg.HealthAddr = v
	}

	if v := strings.TrimSpace(os.Getenv("ALLOWED_CHANNELS")); v != "" {
		for _, p := range strings.Split(v, ",") {
			s := strings.TrimSpace(p)
			if s != "" {
				cfg.AllowedChannels = append(cfg.AllowedChannels, s)
			}
		}
	}

	if v := strings.TrimSpace(os.Getenv("CALL_TIMEOUT_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CallTimeoutSec = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("HISTORY_WINDOW")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HistoryWindow = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("PURGE_WINDOW")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PurgeWindow = n
		}
	}

	if cfg.GateBaseURL == "" {
		return nil, errors.New("GATE_BASE_URL is required")
	}
	if cfg.GateWSURL == "" {
		return nil, errors.New("GATE_WS_URL is required")
	}
	if cfg.BotPrefix == "" {
		return nil, errors.New("BOT_PREFIX is required")
	}
	if cfg.OwnerID == "" {
		return nil, errors.New("BOT_OWNER_ID is required")
	}

	return cfg, nil
}
