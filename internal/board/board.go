package board

import (
	"errors"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrRankNotFound = errors.New("rank not found")
	ErrInvalidRank  = errors.New("invalid rank")
)

// Stage is the tier classification of a ranked player.
type Stage string

const (
	StageLegend Stage = "legend"
	StageMythic Stage = "mythic"
)

// Emoji runs used when a stage is rendered on the board. The runs are not
// distinguishable by inspection, which is why the raw tag also travels in
// the hidden metadata line of each entry.
const (
	glyphsMythic = "<:00:1465285228812701796><:10:1465285247649185944><:20:1465285263667363850><:30:1465285281404944577>"
	glyphsLegend = "<:Legend1:1465293078859612253><:Legend2:1465293093686345883><:Legend3:1465293108529856726><:Legend4:1465293122912125114>"
)

// ParseStage maps a raw tag to a Stage, defaulting to legend.
func ParseStage(s string) Stage {
	if strings.EqualFold(strings.TrimSpace(s), string(StageMythic)) {
		return StageMythic
	}
	return StageLegend
}

func (s Stage) Glyphs() string {
	if s == StageMythic {
		return glyphsMythic
	}
	return glyphsLegend
}

// Content holds every player field that moves when ranks swap. Exchange and
// Move copy the struct wholesale, so adding a field here automatically makes
// it part of the swap.
type Content struct {
	Username    string `json:"username"`
	MentionID   string `json:"mention_id"`
	DisplayName string `json:"displayname"`
	Stage       Stage  `json:"stage"`
	ProfileID   string `json:"profile_id"`
	Country     string `json:"country"`
	AvatarURL   string `json:"avatar_url"`
}

// Player is one leaderboard entry. Rank and MsgID are identity fields
// anchored to the board position; they never participate in swaps.
type Player struct {
	Rank  string `json:"top"`
	MsgID string `json:"msg_id,omitempty"`
	Content
}

// Board is the full record set for one channel plus the message id of the
// composite summary image, if one has been posted.
type Board struct {
	Players  []*Player `json:"players"`
	ImgMsgID string    `json:"img_msg_id,omitempty"`
}

func New() *Board {
	return &Board{Players: []*Player{}}
}

// CanonicalRank normalizes a rank string to its canonical positive-integer
// form so "01" and "1" compare equal everywhere.
func CanonicalRank(s string) (string, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return "", ErrInvalidRank
	}
	return strconv.Itoa(n), nil
}

func rankValue(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

// Sorted returns the players ordered by ascending numeric rank. The slice is
// fresh but the pointers alias the board, so callers may mutate records.
func (b *Board) Sorted() []*Player {
	out := append([]*Player(nil), b.Players...)
	sort.Slice(out, func(i, j int) bool { return rankValue(out[i].Rank) < rankValue(out[j].Rank) })
	return out
}

// Find returns the player at the given canonical rank, or nil.
func (b *Board) Find(rank string) *Player {
	for _, p := range b.Players {
		if p.Rank == rank {
			return p
		}
	}
	return nil
}
