package store

import (
	"context"
	"encoding/json"

	"github.com/thkleonnobingu-create/rankboard-bot/internal/board"
)

// Grants is the per-guild authorization record: role ids and user ids
// allowed to operate the leaderboard commands.
type Grants struct {
	Roles []string `json:"roles"`
	Users []string `json:"users"`
}

func NewGrants() *Grants {
	return &Grants{Roles: []string{}, Users: []string{}}
}

// Store persists boards keyed by channel and grants keyed by guild.
//
// LoadBoard never fails hard on bad data: an absent or malformed record
// degrades to an empty board, since the leaderboard can be rebuilt from the
// channel itself. Legacy payloads that are a bare player list are upgraded
// to the current shape and re-persisted immediately.
type Store interface {
	LoadBoard(ctx context.Context, channel string) (*board.Board, error)
	SaveBoard(ctx context.Context, channel string, b *board.Board) error
	LoadGrants(ctx context.Context, guild string) (*Grants, error)
	SaveGrants(ctx context.Context, guild string, g *Grants) error
}

// decodeBoardPayload parses a stored board value, upgrading the legacy
// bare-list shape. Returns the board, whether an upgrade happened, and
// whether the payload parsed at all.
func decodeBoardPayload(raw []byte) (b *board.Board, upgraded bool, ok bool) {
	var cur board.Board
	if err := json.Unmarshal(raw, &cur); err == nil {
		if cur.Players == nil {
			cur.Players = []*board.Player{}
		}
		return &cur, false, true
	}
	var legacy []*board.Player
	if err := json.Unmarshal(raw, &legacy); err == nil {
		return &board.Board{Players: legacy}, true, true
	}
	return nil, false, false
}
