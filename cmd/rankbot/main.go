package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/thkleonnobingu-create/rankboard-bot/internal/authz"
	"github.com/thkleonnobingu-create/rankboard-bot/internal/board"
	appcfg "github.com/thkleonnobingu-create/rankboard-bot/internal/config"
	"github.com/thkleonnobingu-create/rankboard-bot/internal/gatefast"
	"github.com/thkleonnobingu-create/rankboard-bot/internal/health"
	"github.com/thkleonnobingu-create/rankboard-bot/internal/msgcat"
	"github.com/thkleonnobingu-create/rankboard-bot/internal/obslog"
	"github.com/thkleonnobingu-create/rankboard-bot/internal/rankbuilder"
	"github.com/thkleonnobingu-create/rankboard-bot/internal/service/rank"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()

	catalog, err := msgcat.New(os.Getenv("MESSAGE_DIR"))
	if err != nil {
		logger.Fatal("message catalog init failed", zap.Error(err))
	}

	deps, err := rankbuilder.New(cfg, logger)
	if err != nil {
		logger.Fatal("dependency init failed", zap.Error(err))
	}
	defer func() { _ = deps.Close() }()

	healthSrv := health.NewServer(cfg.HealthAddr)
	go func() {
		if err := healthSrv.ListenAndServe(); err != nil {
			logger.Warn("health server stopped", zap.Error(err))
		}
	}()

	bot := &bot{
		cfg:     cfg,
		gate:    deps.Gate,
		svc:     deps.Service,
		authz:   deps.Authz,
		catalog: catalog,
		logger:  logger,
	}

	ws := gatefast.NewWebSocket(cfg.GateWSURL, 5, time.Second)
	ws.SetHeaderProvider(func() map[string]string {
		return map[string]string{"Authorization": "Bot " + cfg.GateToken}
	})
	ws.OnStateChange(func(state gatefast.WebSocketState) {
		logger.Info("gateway ws state", zap.String("state", string(state)))
	})
	ws.OnMessage(func(msg *gatefast.Message) {
		if msg == nil || strings.TrimSpace(msg.Text) == "" {
			return
		}
		if len(cfg.AllowedChannels) > 0 && !channelAllowed(cfg.AllowedChannels, msg.Channel) {
			return
		}
		if !strings.HasPrefix(strings.TrimSpace(msg.Text), cfg.BotPrefix) {
			return
		}
		// Keep the read loop free
		go bot.handle(msg)
	})

	cctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ws.Connect(cctx); err != nil {
		cancel()
		logger.Fatal("ws connect failed", zap.Error(err))
	}
	cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = ws.Close(shutdownCtx)
	_ = healthSrv.Shutdown(shutdownCtx)
}

func channelAllowed(allowed []string, channel string) bool {
	for _, c := range allowed {
		if c == channel {
			return true
		}
	}
	return false
}

type bot struct {
	cfg     *appcfg.AppConfig
	gate    *gatefast.Client
	svc     *rank.Service
	authz   *authz.Gate
	catalog *msgcat.Catalog
	logger  *zap.Logger
}

func (b *bot) handle(msg *gatefast.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cid := uuid.NewString()
	logger := b.logger.With(zap.String("cid", cid), zap.String("channel", msg.Channel), zap.String("user", msg.UserID))

	raw := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(msg.Text), b.cfg.BotPrefix))
	if raw == "" {
		b.replyKey(ctx, msg.Channel, "help.text", map[string]any{"Prefix": b.cfg.BotPrefix})
		return
	}
	args := splitArgs(raw)
	cmd := strings.ToLower(args[0])
	args = args[1:]

	if cmd == "help" {
		b.replyKey(ctx, msg.Channel, "help.text", map[string]any{"Prefix": b.cfg.BotPrefix})
		return
	}

	sub := authz.Subject{UserID: msg.UserID, Roles: msg.Roles}
	allowed, err := b.authz.IsAuthorized(ctx, msg.Guild, sub)
	if err != nil {
		logger.Error("authorization check failed", zap.Error(err))
		b.replyKey(ctx, msg.Channel, "common.error", nil)
		return
	}
	if !allowed {
		b.replyKey(ctx, msg.Channel, "auth.denied", nil)
		return
	}

	logger.Info("command", zap.String("cmd", cmd), zap.Int("args", len(args)))

	switch cmd {
	case "add":
		b.cmdAdd(ctx, msg, args)
	case "edit":
		b.cmdEdit(ctx, msg, args)
	case "exchange":
		b.cmdExchange(ctx, msg, args)
	case "move":
		b.cmdMove(ctx, msg, args)
	case "remove":
		b.cmdRemove(ctx, msg, args)
	case "run":
		b.cmdRun(ctx, msg)
	case "sync":
		b.cmdSync(ctx, msg)
	case "perm":
		b.cmdPerm(ctx, msg, sub, args)
	default:
		b.replyKey(ctx, msg.Channel, "help.text", map[string]any{"Prefix": b.cfg.BotPrefix})
	}
}

func (b *bot) cmdAdd(ctx context.Context, msg *gatefast.Message, args []string) {
	if len(args) != 7 {
		b.replyKey(ctx, msg.Channel, "add.usage", map[string]any{"Prefix": b.cfg.BotPrefix})
		return
	}
	req := rank.AddRequest{
		Channel:     msg.Channel,
		Rank:        args[0],
		Username:    args[1],
		MentionID:   stripMention(args[2]),
		DisplayName: args[3],
		Stage:       args[4],
		ProfileID:   args[5],
		Country:     args[6],
	}
	if err := b.svc.Add(ctx, req); err != nil {
		b.replyOpErr(ctx, msg.Channel, err, map[string]any{"Value": args[0]})
		return
	}
	b.replyKey(ctx, msg.Channel, "add.ok", nil)
}

func (b *bot) cmdEdit(ctx context.Context, msg *gatefast.Message, args []string) {
	if len(args) < 3 {
		b.replyKey(ctx, msg.Channel, "edit.usage", map[string]any{"Prefix": b.cfg.BotPrefix})
		return
	}
	rankArg, field := args[0], args[1]
	value := strings.Join(args[2:], " ")
	err := b.svc.EditFields(ctx, msg.Channel, rankArg, rank.FieldPatch{Field: field, Value: stripMention(value)})
	switch {
	case errors.Is(err, board.ErrRankNotFound):
		b.replyKey(ctx, msg.Channel, "edit.not_found", map[string]any{"Rank": rankArg})
	case errors.Is(err, board.ErrInvalidRank):
		b.replyKey(ctx, msg.Channel, "common.bad_rank", map[string]any{"Value": rankArg})
	case err != nil && strings.Contains(err.Error(), "unknown field"):
		b.replyKey(ctx, msg.Channel, "edit.unknown_field", map[string]any{"Field": field})
	case err != nil:
		b.replyOpErr(ctx, msg.Channel, err, nil)
	default:
		b.replyKey(ctx, msg.Channel, "edit.ok", map[string]any{"Rank": rankArg})
	}
}

func (b *bot) cmdExchange(ctx context.Context, msg *gatefast.Message, args []string) {
	if len(args) != 2 {
		b.replyKey(ctx, msg.Channel, "exchange.usage", map[string]any{"Prefix": b.cfg.BotPrefix})
		return
	}
	err := b.svc.Exchange(ctx, msg.Channel, args[0], args[1])
	switch {
	case errors.Is(err, board.ErrRankNotFound):
		b.replyKey(ctx, msg.Channel, "exchange.not_found", nil)
	case errors.Is(err, board.ErrInvalidRank):
		b.replyKey(ctx, msg.Channel, "common.bad_rank", map[string]any{"Value": args[0] + " " + args[1]})
	case err != nil:
		b.replyOpErr(ctx, msg.Channel, err, nil)
	default:
		b.replyKey(ctx, msg.Channel, "exchange.ok", map[string]any{"A": args[0], "B": args[1]})
	}
}

func (b *bot) cmdMove(ctx context.Context, msg *gatefast.Message, args []string) {
	if len(args) != 2 {
		b.replyKey(ctx, msg.Channel, "move.usage", map[string]any{"Prefix": b.cfg.BotPrefix})
		return
	}
	err := b.svc.Move(ctx, msg.Channel, args[0], args[1])
	switch {
	case errors.Is(err, board.ErrRankNotFound):
		b.replyKey(ctx, msg.Channel, "move.not_found", nil)
	case errors.Is(err, board.ErrInvalidRank):
		b.replyKey(ctx, msg.Channel, "common.bad_rank", map[string]any{"Value": args[0] + " " + args[1]})
	case err != nil:
		b.replyOpErr(ctx, msg.Channel, err, nil)
	default:
		b.replyKey(ctx, msg.Channel, "move.ok", map[string]any{"From": args[0], "To": args[1]})
	}
}

func (b *bot) cmdRemove(ctx context.Context, msg *gatefast.Message, args []string) {
	if len(args) != 1 {
		b.replyKey(ctx, msg.Channel, "remove.usage", map[string]any{"Prefix": b.cfg.BotPrefix})
		return
	}
	removed, err := b.svc.Remove(ctx, msg.Channel, args[0])
	switch {
	case errors.Is(err, board.ErrInvalidRank):
		b.replyKey(ctx, msg.Channel, "common.bad_rank", map[string]any{"Value": args[0]})
	case err != nil:
		b.replyOpErr(ctx, msg.Channel, err, nil)
	case !removed:
		b.replyKey(ctx, msg.Channel, "remove.absent", map[string]any{"Rank": args[0]})
	default:
		b.replyKey(ctx, msg.Channel, "remove.ok", map[string]any{"Rank": args[0]})
	}
}

func (b *bot) cmdRun(ctx context.Context, msg *gatefast.Message) {
	err := b.svc.Refresh(ctx, msg.Channel)
	var pe *rank.PartialError
	switch {
	case errors.Is(err, rank.ErrNoBoard):
		b.replyKey(ctx, msg.Channel, "common.empty_board", nil)
	case errors.As(err, &pe):
		b.replyKey(ctx, msg.Channel, "run.partial", map[string]any{"Failed": pe.Failed})
	case err != nil:
		b.replyOpErr(ctx, msg.Channel, err, nil)
	default:
		b.replyKey(ctx, msg.Channel, "run.ok", nil)
	}
}

func (b *bot) cmdSync(ctx context.Context, msg *gatefast.Message) {
	count, err := b.svc.Sync(ctx, msg.Channel)
	if err != nil {
		b.replyOpErr(ctx, msg.Channel, err, nil)
		return
	}
	if count == 0 {
		b.replyKey(ctx, msg.Channel, "sync.none", nil)
		return
	}
	b.replyKey(ctx, msg.Channel, "sync.ok", map[string]any{"Count": count})
}

func (b *bot) cmdPerm(ctx context.Context, msg *gatefast.Message, sub authz.Subject, args []string) {
	if !b.authz.IsOwner(sub) {
		b.replyKey(ctx, msg.Channel, "auth.owner_only", nil)
		return
	}
	if len(args) != 3 {
		b.replyKey(ctx, msg.Channel, "perm.usage", map[string]any{"Prefix": b.cfg.BotPrefix})
		return
	}
	action, kind, id := strings.ToLower(args[0]), strings.ToLower(args[1]), stripMention(args[2])

	var err error
	var key string
	switch {
	case action == "grant" && kind == "role":
		err, key = b.authz.GrantRole(ctx, msg.Guild, id), "perm.grant_role"
	case action == "grant" && kind == "user":
		err, key = b.authz.GrantUser(ctx, msg.Guild, id), "perm.grant_user"
	case action == "revoke" && kind == "role":
		err, key = b.authz.RevokeRole(ctx, msg.Guild, id), "perm.revoke_role"
	case action == "revoke" && kind == "user":
		err, key = b.authz.RevokeUser(ctx, msg.Guild, id), "perm.revoke_user"
	default:
		b.replyKey(ctx, msg.Channel, "perm.usage", map[string]any{"Prefix": b.cfg.BotPrefix})
		return
	}
	if err != nil {
		b.replyOpErr(ctx, msg.Channel, err, nil)
		return
	}
	b.replyKey(ctx, msg.Channel, key, map[string]any{"ID": id})
}

func (b *bot) replyOpErr(ctx context.Context, channel string, err error, data map[string]any) {
	var pe *rank.PartialError
	switch {
	case errors.Is(err, board.ErrInvalidRank):
		if data == nil {
			data = map[string]any{"Value": "?"}
		}
		b.replyKey(ctx, channel, "common.bad_rank", data)
	case errors.As(err, &pe):
		b.replyKey(ctx, channel, "run.partial", map[string]any{"Failed": pe.Failed})
	default:
		b.logger.Error("command failed", zap.Error(err))
		b.replyKey(ctx, channel, "common.error", nil)
	}
}

func (b *bot) replyKey(ctx context.Context, channel, key string, data map[string]any) {
	text, err := b.catalog.Render(key, data)
	if err != nil {
		b.logger.Error("render reply failed", zap.String("key", key), zap.Error(err))
		text = "⚠️ Something went wrong."
	}
	if _, err := b.gate.SendText(ctx, channel, text); err != nil {
		b.logger.Warn("reply send failed", zap.String("channel", channel), zap.Error(err))
	}
}

// stripMention reduces "<@123>" / "<@!123>" / "<@&123>" to the bare id.
func stripMention(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "<@") && strings.HasSuffix(s, ">") {
		s = strings.TrimSuffix(strings.TrimPrefix(s, "<@"), ">")
		s = strings.TrimPrefix(s, "!")
		s = strings.TrimPrefix(s, "&")
	}
	return s
}

// splitArgs tokenizes a command line, honoring double-quoted segments so
// display names with spaces survive.
func splitArgs(s string) []string {
	var out []string
	var cur strings.Builder
	inQuote := false
	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
		case r == ' ' && !inQuote:
			if cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}
