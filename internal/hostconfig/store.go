package hostconfig

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"hijack-addon/hijack/internal/storage"
)

// Store serves host settings persisted in the database. Lookups hit an
// in-memory copy refreshed by Load; writes go through to the repository.
//
// syncMu serializes Load with Set and Delete so a write cannot land between
// Load's read of the rows and its swap of the map. mu guards values alone.
type Store struct {
	repo storage.SettingRepository

	syncMu sync.Mutex

	mu     sync.RWMutex
	values map[string]any
}

// NewStore returns an empty Store; call Load before use.
func NewStore(repo storage.SettingRepository) *Store {
	return &Store{repo: repo, values: map[string]any{}}
}

func (s *Store) Lookup(name string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[name]
	return v, ok
}

// Load replaces the in-memory copy with the current rows. A row whose value
// is not valid JSON is skipped.
func (s *Store) Load(ctx context.Context) error {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	rows, err := s.repo.List(ctx)
	if err != nil {
		return err
	}

	values := make(map[string]any, len(rows))
	for _, row := range rows {
		var v any
		if err := json.Unmarshal([]byte(row.Value), &v); err != nil {
			log.Warn().Err(err).Str("key", row.Key).Msg("Skipping host setting with invalid value")
			continue
		}
		values[row.Key] = v
	}

	s.mu.Lock()
	s.values = values
	s.mu.Unlock()
	return nil
}

// Set persists value under name.
func (s *Store) Set(ctx context.Context, name string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	if err := s.repo.Upsert(ctx, name, string(raw)); err != nil {
		return err
	}

	// Store the decoded form so Lookup types match what Load would produce.
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}

	s.mu.Lock()
	s.values[name] = decoded
	s.mu.Unlock()
	return nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	if err := s.repo.Delete(ctx, name); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.values, name)
	s.mu.Unlock()
	return nil
}

// Refresh calls Load every interval until ctx is done. Failures are logged
// and the previous values stay in place.
func (s *Store) Refresh(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Load(ctx); err != nil {
				log.Error().Err(err).Msg("Host settings refresh failed")
				continue
			}
			log.Debug().Msg("Host settings refreshed")
		case <-ctx.Done():
			return
		}
	}
}

// ParseValue interprets raw as JSON when it parses, so "true", "3" and
// "null" keep their types; anything else is taken as a plain string.
func ParseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}
