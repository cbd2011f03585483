package codec

import (
	"fmt"
	"strings"

	"github.com/thkleonnobingu-create/rankboard-bot/internal/board"
	"github.com/thkleonnobingu-create/rankboard-bot/internal/gatefast"
)

// Bidirectional mapping between one player record and its external embed.
// Encode is strict; Decode is best-effort per record so a single hand-edited
// or corrupted message never aborts recovery of the rest of the board.

const (
	infoHeader    = "════════ Information ════════"
	countryLabel  = "༒︎ Country: "
	stageLabel    = "༒︎ Stage: "
	mentionLabel  = "༒︎ Mention: "
	usernameOpen  = "`⋆. 𐙚˚࿔ "
	usernameClose = " 𝜗𝜚˚⋆`"
	titleSep      = " - "

	// DecorationURL is the fixed banner image attached to every entry.
	DecorationURL = "https://cdn.discordapp.com/attachments/1327188364885102594/1443075988580995203/fixedbulletlines.gif"

	// hiddenMarker prefixes the invisible metadata line carrying fields the
	// visible layout cannot round-trip (profile id, raw stage tag).
	hiddenMarker = "​"
)

// Encode renders a player record as its structured external body.
func Encode(p *board.Player) gatefast.Embed {
	info := strings.Join([]string{
		countryLabel + p.Country,
		stageLabel + p.Stage.Glyphs(),
		mentionLabel + "<@" + p.MentionID + ">",
		hiddenMarker + p.ProfileID + "|" + string(p.Stage),
	}, "\n")

	return gatefast.Embed{
		Title:        fmt.Sprintf("Rank %s%s%s", p.Rank, titleSep, p.DisplayName),
		Description:  usernameOpen + p.Username + usernameClose,
		Color:        0x000000,
		Fields:       []gatefast.EmbedField{{Name: infoHeader, Value: info}},
		ThumbnailURL: p.AvatarURL,
		ImageURL:     DecorationURL,
	}
}

// Decode reconstructs a player record from an observed embed. Any missing or
// malformed substructure fails this record only; the caller skips it and
// keeps scanning.
func Decode(e *gatefast.Embed) (*board.Player, bool) {
	if e == nil {
		return nil, false
	}
	rank, ok := parseRank(e.Title)
	if !ok {
		return nil, false
	}
	display, ok := parseDisplayName(e.Title)
	if !ok {
		return nil, false
	}
	username, ok := parseUsername(e.Description)
	if !ok {
		return nil, false
	}
	info, ok := infoValue(e)
	if !ok {
		return nil, false
	}
	mention, ok := parseMention(info)
	if !ok {
		return nil, false
	}
	country, ok := parseLabeledLine(info, countryLabel)
	if !ok {
		return nil, false
	}
	profileID, stageTag, ok := parseHiddenMeta(info)
	if !ok {
		return nil, false
	}

	return &board.Player{
		Rank: rank,
		Content: board.Content{
			Username:    username,
			MentionID:   mention,
			DisplayName: display,
			Stage:       board.ParseStage(stageTag),
			ProfileID:   profileID,
			Country:     country,
			AvatarURL:   e.ThumbnailURL,
		},
	}, true
}

// parseRank extracts the first run of digits from the title.
func parseRank(title string) (string, bool) {
	start := -1
	for i, r := range title {
		if r >= '0' && r <= '9' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			return canonical(title[start:i])
		}
	}
	if start >= 0 {
		return canonical(title[start:])
	}
	return "", false
}

func canonical(s string) (string, bool) {
	r, err := board.CanonicalRank(s)
	if err != nil {
		return "", false
	}
	return r, true
}

// parseDisplayName takes everything after the first title separator.
func parseDisplayName(title string) (string, bool) {
	idx := strings.Index(title, titleSep)
	if idx < 0 {
		return "", false
	}
	name := strings.TrimSpace(title[idx+len(titleSep):])
	if name == "" {
		return "", false
	}
	return name, true
}

func parseUsername(desc string) (string, bool) {
	desc = strings.TrimSpace(desc)
	if !strings.HasPrefix(desc, usernameOpen) || !strings.HasSuffix(desc, usernameClose) {
		return "", false
	}
	name := desc[len(usernameOpen) : len(desc)-len(usernameClose)]
	if name == "" {
		return "", false
	}
	return name, true
}

func infoValue(e *gatefast.Embed) (string, bool) {
	for _, f := range e.Fields {
		if f.Name == infoHeader {
			return f.Value, true
		}
	}
	return "", false
}

// parseMention finds the first <@id> reference.
func parseMention(info string) (string, bool) {
	open := strings.Index(info, "<@")
	if open < 0 {
		return "", false
	}
	rest := info[open+2:]
	end := strings.IndexByte(rest, '>')
	if end <= 0 {
		return "", false
	}
	id := strings.TrimPrefix(rest[:end], "!")
	if id == "" {
		return "", false
	}
	return id, true
}

// parseLabeledLine returns the text between a line's label and the next
// line break.
func parseLabeledLine(info, label string) (string, bool) {
	for _, line := range strings.Split(info, "\n") {
		if strings.HasPrefix(line, label) {
			return strings.TrimSpace(strings.TrimPrefix(line, label)), true
		}
	}
	return "", false
}

// parseHiddenMeta decodes the zero-width-marked metadata line.
func parseHiddenMeta(info string) (profileID, stageTag string, ok bool) {
	for _, line := range strings.Split(info, "\n") {
		if !strings.HasPrefix(line, hiddenMarker) {
			continue
		}
		parts := strings.SplitN(strings.TrimPrefix(line, hiddenMarker), "|", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return "", "", false
		}
		return parts[0], parts[1], true
	}
	return "", "", false
}
