package rank

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/thkleonnobingu-create/rankboard-bot/internal/board"
	"github.com/thkleonnobingu-create/rankboard-bot/internal/codec"
	"github.com/thkleonnobingu-create/rankboard-bot/internal/gatefast"
	"github.com/thkleonnobingu-create/rankboard-bot/internal/store"
)

var (
	// ErrNoBoard is returned by operations that need at least one record.
	ErrNoBoard = errors.New("leaderboard is empty")
)

// PartialError reports a refresh that posted some records but not all.
// The store reflects exactly the records that made it out.
type PartialError struct {
	Done   int
	Failed int
	Last   error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("refresh incomplete: %d posted, %d failed: %v", e.Done, e.Failed, e.Last)
}

func (e *PartialError) Unwrap() error { return e.Last }

// ChatGateway is the outbound surface the service drives.
type ChatGateway interface {
	SendEmbed(ctx context.Context, channel string, e gatefast.Embed) (string, error)
	EditEmbed(ctx context.Context, channel, msgID string, e gatefast.Embed) error
	SendImage(ctx context.Context, channel, name string, png []byte) (string, error)
	History(ctx context.Context, channel string, limit int) ([]gatefast.HistoryEntry, error)
	Purge(ctx context.Context, channel string, limit int) (int, error)
}

// AvatarLookup resolves profile ids to headshot URLs.
type AvatarLookup interface {
	Lookup(ctx context.Context, profileID string) (string, error)
	LookupBulk(ctx context.Context, profileIDs []string) (map[string]string, error)
}

type Config struct {
	CallTimeout   time.Duration
	HistoryWindow int
	PurgeWindow   int
}

func (c *Config) applyDefaults() {
	if c.CallTimeout <= 0 {
		c.CallTimeout = 10 * time.Second
	}
	if c.HistoryWindow <= 0 {
		c.HistoryWindow = 100
	}
	if c.PurgeWindow <= 0 {
		c.PurgeWindow = 100
	}
}

// Service owns all leaderboard state transitions for every channel. Every
// mutating operation serializes on a per-channel lock so that a slow refresh
// cannot interleave with a concurrent command on the same channel.
type Service struct {
	store    store.Store
	gate     ChatGateway
	avatars  AvatarLookup
	renderer SummaryRenderer
	logger   *zap.Logger
	cfg      Config

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewService(st store.Store, gate ChatGateway, avatars AvatarLookup, renderer SummaryRenderer, logger *zap.Logger, cfg Config) *Service {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    st,
		gate:     gate,
		avatars:  avatars,
		renderer: renderer,
		logger:   logger,
		cfg:      cfg,
		locks:    make(map[string]*sync.Mutex),
	}
}

func (s *Service) channelLock(channel string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[channel]
	if !ok {
		l = &sync.Mutex{}
		s.locks[channel] = l
	}
	return l
}

// AddRequest carries one new or replacing leaderboard entry.
type AddRequest struct {
	Channel     string
	Rank        string
	Username    string
	MentionID   string
	DisplayName string
	Stage       string
	ProfileID   string
	Country     string
}

// Add places a player at a rank, superseding any existing entry there, and
// re-posts the whole board. Avatar lookup failure degrades to no avatar.
func (s *Service) Add(ctx context.Context, req AddRequest) error {
	rank, err := board.CanonicalRank(req.Rank)
	if err != nil {
		return err
	}

	avatarURL := s.lookupAvatar(ctx, req.ProfileID)

	lock := s.channelLock(req.Channel)
	lock.Lock()
	defer lock.Unlock()

	b, err := s.store.LoadBoard(ctx, req.Channel)
	if err != nil {
		return err
	}
	b.Upsert(rank, board.Content{
		Username:    strings.TrimSpace(req.Username),
		MentionID:   strings.TrimSpace(req.MentionID),
		DisplayName: strings.TrimSpace(req.DisplayName),
		Stage:       board.ParseStage(req.Stage),
		ProfileID:   strings.TrimSpace(req.ProfileID),
		Country:     strings.TrimSpace(req.Country),
		AvatarURL:   avatarURL,
	})
	return s.fullRefresh(ctx, req.Channel, b)
}

// FieldPatch names a single content field to overwrite.
type FieldPatch struct {
	Field string // username, mention, display, stage, profile, country
	Value string
}

// EditFields rewrites one field of the record at rank and edits its message
// in place. Changing the profile id also refreshes the avatar.
func (s *Service) EditFields(ctx context.Context, channel, rank string, patch FieldPatch) error {
	rank, err := board.CanonicalRank(rank)
	if err != nil {
		return err
	}

	lock := s.channelLock(channel)
	lock.Lock()
	defer lock.Unlock()

	b, err := s.store.LoadBoard(ctx, channel)
	if err != nil {
		return err
	}
	p := b.Find(rank)
	if p == nil {
		return board.ErrRankNotFound
	}

	value := strings.TrimSpace(patch.Value)
	switch strings.ToLower(strings.TrimSpace(patch.Field)) {
	case "username":
		p.Username = value
	case "mention":
		p.MentionID = value
	case "display":
		p.DisplayName = value
	case "stage":
		p.Stage = board.ParseStage(value)
	case "profile":
		p.ProfileID = value
		p.AvatarURL = s.lookupAvatar(ctx, value)
	case "country":
		p.Country = value
	default:
		return fmt.Errorf("unknown field %q", patch.Field)
	}
	return s.editInPlace(ctx, channel, b)
}

// Exchange swaps the contents of two occupied ranks and edits both messages
// in place.
func (s *Service) Exchange(ctx context.Context, channel, rankA, rankB string) error {
	a, err := board.CanonicalRank(rankA)
	if err != nil {
		return err
	}
	bRank, err := board.CanonicalRank(rankB)
	if err != nil {
		return err
	}

	lock := s.channelLock(channel)
	lock.Lock()
	defer lock.Unlock()

	b, err := s.store.LoadBoard(ctx, channel)
	if err != nil {
		return err
	}
	if err := b.Exchange(a, bRank); err != nil {
		return err
	}
	return s.editInPlace(ctx, channel, b)
}

// Move shifts the content at src to dst, cascading everything between by one
// slot, and edits the affected messages in place.
func (s *Service) Move(ctx context.Context, channel, src, dst string) error {
	srcRank, err := board.CanonicalRank(src)
	if err != nil {
		return err
	}
	dstRank, err := board.CanonicalRank(dst)
	if err != nil {
		return err
	}

	lock := s.channelLock(channel)
	lock.Lock()
	defer lock.Unlock()

	b, err := s.store.LoadBoard(ctx, channel)
	if err != nil {
		return err
	}
	if err := b.Move(srcRank, dstRank); err != nil {
		return err
	}
	return s.editInPlace(ctx, channel, b)
}

// Remove drops the record at rank, if present, and re-posts the board.
// Removing an absent rank reports false with no side effects.
func (s *Service) Remove(ctx context.Context, channel, rank string) (bool, error) {
	rank, err := board.CanonicalRank(rank)
	if err != nil {
		return false, err
	}

	lock := s.channelLock(channel)
	lock.Lock()
	defer lock.Unlock()

	b, err := s.store.LoadBoard(ctx, channel)
	if err != nil {
		return false, err
	}
	if !b.Remove(rank) {
		return false, nil
	}
	return true, s.fullRefresh(ctx, channel, b)
}

// Refresh re-posts the current board from stored state.
func (s *Service) Refresh(ctx context.Context, channel string) error {
	lock := s.channelLock(channel)
	lock.Lock()
	defer lock.Unlock()

	b, err := s.store.LoadBoard(ctx, channel)
	if err != nil {
		return err
	}
	if len(b.Players) == 0 {
		return ErrNoBoard
	}
	return s.fullRefresh(ctx, channel, b)
}

// Sync rebuilds the board from what is actually visible in the channel.
// Recent history is scanned and every decodable entry becomes a record; if
// nothing decodes the stored board is left untouched. Avatars are refreshed
// in bulk, best-effort, before re-posting.
func (s *Service) Sync(ctx context.Context, channel string) (int, error) {
	lock := s.channelLock(channel)
	lock.Lock()
	defer lock.Unlock()

	entries, err := s.gate.History(ctx, channel, s.cfg.HistoryWindow)
	if err != nil {
		return 0, fmt.Errorf("fetch history: %w", err)
	}

	recovered := board.New()
	for _, entry := range entries {
		if entry.Embed == nil {
			continue
		}
		p, ok := codec.Decode(entry.Embed)
		if !ok {
			continue
		}
		// History is newest first; keep the newest message per rank.
		if recovered.Find(p.Rank) != nil {
			continue
		}
		p.MsgID = entry.MsgID
		recovered.Players = append(recovered.Players, p)
	}
	if len(recovered.Players) == 0 {
		return 0, nil
	}

	s.refreshAvatars(ctx, recovered)

	if err := s.fullRefresh(ctx, channel, recovered); err != nil {
		return len(recovered.Players), err
	}
	return len(recovered.Players), nil
}

// lookupAvatar resolves a headshot URL, degrading to empty on any failure.
func (s *Service) lookupAvatar(ctx context.Context, profileID string) string {
	if strings.TrimSpace(profileID) == "" || s.avatars == nil {
		return ""
	}
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()
	avatarURL, err := s.avatars.Lookup(callCtx, profileID)
	if err != nil {
		s.logger.Warn("avatar lookup failed", zap.String("profile_id", profileID), zap.Error(err))
		return ""
	}
	return avatarURL
}

func (s *Service) refreshAvatars(ctx context.Context, b *board.Board) {
	if s.avatars == nil {
		return
	}
	ids := make([]string, 0, len(b.Players))
	for _, p := range b.Players {
		if p.ProfileID != "" {
			ids = append(ids, p.ProfileID)
		}
	}
	if len(ids) == 0 {
		return
	}
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()
	urls, err := s.avatars.LookupBulk(callCtx, ids)
	if err != nil {
		s.logger.Warn("bulk avatar refresh failed", zap.Error(err))
		return
	}
	for _, p := range b.Players {
		if u, ok := urls[p.ProfileID]; ok {
			p.AvatarURL = u
		}
	}
}

// fullRefresh clears the channel and re-posts every record in rank order.
// Posting is a critical step: the first failure aborts the remaining
// fan-out, but everything that made it out before the failure is kept. The
// board is persisted after each successful post and again at the end, so the
// store never remembers a binding that was not actually created.
func (s *Service) fullRefresh(ctx context.Context, channel string, b *board.Board) error {
	if deleted, err := call(ctx, s.cfg.CallTimeout, func(c context.Context) (int, error) {
		return s.gate.Purge(c, channel, s.cfg.PurgeWindow)
	}); err != nil {
		s.logger.Warn("channel purge failed", zap.String("channel", channel), zap.Error(err))
	} else if deleted > 0 {
		s.logger.Debug("channel purged", zap.String("channel", channel), zap.Int("deleted", deleted))
	}

	// The purge invalidated every prior binding.
	for _, p := range b.Players {
		p.MsgID = ""
	}

	var done, failed int
	var lastErr error
	for _, p := range b.Sorted() {
		msgID, err := call(ctx, s.cfg.CallTimeout, func(c context.Context) (string, error) {
			return s.gate.SendEmbed(c, channel, codec.Encode(p))
		})
		if err != nil {
			failed++
			lastErr = err
			s.logger.Warn("post entry failed, aborting fan-out", zap.String("channel", channel), zap.String("rank", p.Rank), zap.Error(err))
			break
		}
		p.MsgID = msgID
		done++
		if err := s.store.SaveBoard(ctx, channel, b); err != nil {
			s.logger.Warn("incremental save failed", zap.String("channel", channel), zap.Error(err))
		}
	}

	s.updateComposite(ctx, channel, b)

	if err := s.store.SaveBoard(ctx, channel, b); err != nil {
		return fmt.Errorf("save board: %w", err)
	}
	if failed > 0 {
		return &PartialError{Done: done, Failed: failed, Last: lastErr}
	}
	return nil
}

// updateComposite regenerates the summary image for a non-empty board and
// clears its binding for an empty one. Failures are logged, not fatal.
func (s *Service) updateComposite(ctx context.Context, channel string, b *board.Board) {
	if len(b.Players) == 0 {
		b.ImgMsgID = ""
		return
	}
	if s.renderer == nil {
		return
	}
	png, err := s.renderer.RenderPNG(ctx, b.Sorted())
	if err != nil {
		s.logger.Warn("summary render failed", zap.String("channel", channel), zap.Error(err))
		return
	}
	msgID, err := call(ctx, s.cfg.CallTimeout, func(c context.Context) (string, error) {
		return s.gate.SendImage(c, channel, "top_players_summary.png", png)
	})
	if err != nil {
		s.logger.Warn("summary upload failed", zap.String("channel", channel), zap.Error(err))
		return
	}
	b.ImgMsgID = msgID
}

// editInPlace pushes the current content of every bound record into its
// existing message. Individual edit failures are warned and swallowed; the
// composite image is left alone.
func (s *Service) editInPlace(ctx context.Context, channel string, b *board.Board) error {
	for _, p := range b.Sorted() {
		if p.MsgID == "" {
			continue
		}
		embed := codec.Encode(p)
		if _, err := call(ctx, s.cfg.CallTimeout, func(c context.Context) (int, error) {
			return 0, s.gate.EditEmbed(c, channel, p.MsgID, embed)
		}); err != nil {
			s.logger.Warn("edit entry failed", zap.String("channel", channel), zap.String("rank", p.Rank), zap.Error(err))
		}
	}
	if err := s.store.SaveBoard(ctx, channel, b); err != nil {
		return fmt.Errorf("save board: %w", err)
	}
	return nil
}

// call runs one gateway interaction under the configured timeout.
func call[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(callCtx)
}
