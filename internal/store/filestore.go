package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/thkleonnobingu-create/rankboard-bot/internal/board"
	"github.com/thkleonnobingu-create/rankboard-bot/internal/obslog"
	"go.uber.org/zap"
)

// FileStore keeps all boards in one JSON document and all grants in another,
// the canonical on-disk representation. Writes go through a temp file and
// rename so a crash never leaves a half-written document.
type FileStore struct {
	mu        sync.Mutex
	dataFile  string
	authFile  string
}

func NewFileStore(dataFile, authFile string) *FileStore {
	return &FileStore{dataFile: dataFile, authFile: authFile}
}

func (s *FileStore) LoadBoard(ctx context.Context, channel string) (*board.Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, upgraded := s.readBoards()
	if upgraded {
		// persist the legacy-shape upgrade right away
		if err := s.writeJSON(s.dataFile, doc); err != nil {
			return nil, fmt.Errorf("persist upgraded boards: %w", err)
		}
	}
	if raw, ok := doc[channel]; ok {
		b, _, ok := decodeBoardPayload(raw)
		if ok {
			return b, nil
		}
	}
	return board.New(), nil
}

func (s *FileStore) SaveBoard(ctx context.Context, channel string, b *board.Board) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, _ := s.readBoards()
	raw, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal board: %w", err)
	}
	doc[channel] = raw
	return s.writeJSON(s.dataFile, doc)
}

func (s *FileStore) LoadGrants(ctx context.Context, guild string) (*Grants, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.readGrants()
	if g, ok := doc[guild]; ok && g != nil {
		return g, nil
	}
	return NewGrants(), nil
}

func (s *FileStore) SaveGrants(ctx context.Context, guild string, g *Grants) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.readGrants()
	doc[guild] = g
	return s.writeJSON(s.authFile, doc)
}

// readBoards loads the whole boards document, tolerating absence and
// corruption, and reports whether any channel needed a legacy upgrade.
func (s *FileStore) readBoards() (map[string]json.RawMessage, bool) {
	doc := map[string]json.RawMessage{}
	raw, err := os.ReadFile(s.dataFile)
	if err != nil {
		return doc, false
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		obslog.L().Warn("boards_file_malformed", zap.String("file", s.dataFile), zap.Error(err))
		return map[string]json.RawMessage{}, false
	}
	upgraded := false
	for ch, payload := range doc {
		b, up, ok := decodeBoardPayload(payload)
		if !ok {
			obslog.L().Warn("board_entry_malformed", zap.String("channel", ch))
			delete(doc, ch)
			continue
		}
		if up {
			fixed, err := json.Marshal(b)
			if err != nil {
				continue
			}
			doc[ch] = fixed
			upgraded = true
		}
	}
	return doc, upgraded
}

func (s *FileStore) readGrants() map[string]*Grants {
	doc := map[string]*Grants{}
	raw, err := os.ReadFile(s.authFile)
	if err != nil {
		return doc
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		obslog.L().Warn("grants_file_malformed", zap.String("file", s.authFile), zap.Error(err))
		return map[string]*Grants{}
	}
	return doc
}

func (s *FileStore) writeJSON(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
