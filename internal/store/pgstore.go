package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/thkleonnobingu-create/rankboard-bot/internal/board"
	"github.com/thkleonnobingu-create/rankboard-bot/internal/obslog"
	"go.uber.org/zap"
)

// PGStore persists boards and grants as JSON payload columns in Postgres.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(databaseURL string) (*PGStore, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	s := &PGStore{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PGStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PGStore) ensureSchema(ctx context.Context) error {
	const q = `
      CREATE TABLE IF NOT EXISTS leaderboards (
        channel_id TEXT PRIMARY KEY,
        payload    JSONB NOT NULL,
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
      );
      CREATE TABLE IF NOT EXISTS leaderboard_grants (
        guild_id   TEXT PRIMARY KEY,
        payload    JSONB NOT NULL,
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
      )`
	_, err := s.db.ExecContext(ctx, q)
	return err
}

func (s *PGStore) LoadBoard(ctx context.Context, channel string) (*board.Board, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM leaderboards WHERE channel_id = $1`, channel).Scan(&raw)
	if err == sql.ErrNoRows {
		return board.New(), nil
	}
	if err != nil {
		return nil, err
	}
	b, upgraded, ok := decodeBoardPayload(raw)
	if !ok {
		obslog.L().Warn("board_row_malformed", zap.String("channel", channel))
		return board.New(), nil
	}
	if upgraded {
		if err := s.SaveBoard(ctx, channel, b); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (s *PGStore) SaveBoard(ctx context.Context, channel string, b *board.Board) error {
	raw, err := json.Marshal(b)
	if err != nil {
		return err
	}
	const q = `INSERT INTO leaderboards (channel_id, payload, updated_at)
      VALUES ($1, $2, now())
      ON CONFLICT (channel_id) DO UPDATE SET
        payload = EXCLUDED.payload,
        updated_at = EXCLUDED.updated_at`
	_, err = s.db.ExecContext(ctx, q, channel, raw)
	return err
}

func (s *PGStore) LoadGrants(ctx context.Context, guild string) (*Grants, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM leaderboard_grants WHERE guild_id = $1`, guild).Scan(&raw)
	if err == sql.ErrNoRows {
		return NewGrants(), nil
	}
	if err != nil {
		return nil, err
	}
	var g Grants
	if err := json.Unmarshal(raw, &g); err != nil {
		obslog.L().Warn("grants_row_malformed", zap.String("guild", guild))
		return NewGrants(), nil
	}
	return &g, nil
}

func (s *PGStore) SaveGrants(ctx context.Context, guild string, g *Grants) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return err
	}
	const q = `INSERT INTO leaderboard_grants (guild_id, payload, updated_at)
      VALUES ($1, $2, now())
      ON CONFLICT (guild_id) DO UPDATE SET
        payload = EXCLUDED.payload,
        updated_at = EXCLUDED.updated_at`
	_, err = s.db.ExecContext(ctx, q, guild, raw)
	return err
}
