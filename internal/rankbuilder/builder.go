package rankbuilder

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/thkleonnobingu-create/rankboard-bot/internal/authz"
	"github.com/thkleonnobingu-create/rankboard-bot/internal/avatarapi"
	"github.com/thkleonnobingu-create/rankboard-bot/internal/config"
	"github.com/thkleonnobingu-create/rankboard-bot/internal/gatefast"
	"github.com/thkleonnobingu-create/rankboard-bot/internal/service/rank"
	"github.com/thkleonnobingu-create/rankboard-bot/internal/store"
)

// Deps is the assembled dependency graph for the bot process.
type Deps struct {
	Store   store.Store
	Gate    *gatefast.Client
	Avatars *avatarapi.Client
	Service *rank.Service
	Authz   *authz.Gate

	closers []func() error
}

// New builds every collaborator from config. Store backend selection:
// DATABASE_URL wins, then REDIS_URL, then the JSON file pair.
func New(cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &Deps{}

	st, err := buildStore(cfg, d)
	if err != nil {
		return nil, err
	}
	d.Store = st

	callTimeout := time.Duration(cfg.CallTimeoutSec) * time.Second
	d.Gate = gatefast.NewClient(cfg.GateBaseURL,
		gatefast.WithTimeout(callTimeout),
		gatefast.WithHeaderProvider(func() map[string]string {
			return map[string]string{"Authorization": "Bot " + cfg.GateToken}
		}),
	)
	d.Avatars = avatarapi.NewClient(cfg.AvatarBaseURL, avatarapi.WithTimeout(callTimeout))

	d.Service = rank.NewService(st, d.Gate, d.Avatars, rank.NewSummaryRenderer(), logger, rank.Config{
		CallTimeout:   callTimeout,
		HistoryWindow: cfg.HistoryWindow,
		PurgeWindow:   cfg.PurgeWindow,
	})
	d.Authz = authz.New(st, cfg.OwnerID)

	return d, nil
}

func buildStore(cfg *config.AppConfig, d *Deps) (store.Store, error) {
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		pg, err := store.NewPGStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
		d.closers = append(d.closers, pg.Close)
		return pg, nil
	}
	if strings.TrimSpace(cfg.RedisURL) != "" {
		opts, err := parseRedisURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		d.closers = append(d.closers, rdb.Close)
		return store.NewRedisStore(rdb), nil
	}
	return store.NewFileStore(cfg.DataFile, cfg.AuthFile), nil
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "6379"
	}
	opts := &redis.Options{Addr: host + ":" + port}
	if u.User != nil {
		if pw, ok := u.User.Password(); ok {
			opts.Password = pw
		}
		opts.Username = u.User.Username()
	}
	if p := strings.Trim(u.Path, "/"); p != "" {
		db, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("bad redis db index: %q", p)
		}
		opts.DB = db
	}
	return opts, nil
}

// Close releases backing connections in reverse construction order.
func (d *Deps) Close() error {
	var firstErr error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
