// Package persist stores and rehydrates whole planner states keyed by user.
package persist

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"sync"

	"github.com/peterbourgon/diskv/v3"

	"weekplan/internal/ledger"
)

// ErrNotFound is returned by Load when no state exists for the user.
var ErrNotFound = errors.New("persist: state not found")

// Store is the load-at-start / save-on-change contract the planner uses.
type Store interface {
	Load(ctx context.Context, userID string) (ledger.State, error)
	Save(ctx context.Context, userID string, st ledger.State) error
	Delete(ctx context.Context, userID string) error
}

// stateSchema versions the on-disk document.
const stateSchema = "weekplan.state/v1"

type document struct {
	Schema string       `json:"schema"`
	UserID string       `json:"user_id"`
	State  ledger.State `json:"state"`
}

// DiskStore keeps one JSON document per user under a diskv base path.
type DiskStore struct {
	d *diskv.Diskv
}

// NewDiskStore opens (lazily creating) a store rooted at basePath.
func NewDiskStore(basePath string) *DiskStore {
	return &DiskStore{d: diskv.New(diskv.Options{
		BasePath:     basePath,
		Transform:    shardTransform,
		CacheSizeMax: 1024 * 1024, // 1MB
		FilePerm:     0o600,
		PathPerm:     0o700,
	})}
}

// shardTransform spreads keys over two directory levels taken from the key
// itself, which is already a hex digest.
func shardTransform(key string) []string {
	if len(key) < 4 {
		return []string{}
	}
	return []string{key[0:2], key[2:4]}
}

// userKey hashes the user id so arbitrary ids are safe as file names.
func userKey(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return hex.EncodeToString(sum[:16])
}

func (s *DiskStore) Load(_ context.Context, userID string) (ledger.State, error) {
	val, err := s.d.Read(userKey(userID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ledger.State{}, ErrNotFound
		}
		return ledger.State{}, fmt.Errorf("persist: read state: %w", err)
	}
	var doc document
	if err := json.Unmarshal(val, &doc); err != nil {
		return ledger.State{}, fmt.Errorf("persist: decode state: %w", err)
	}
	if doc.Schema != stateSchema {
		return ledger.State{}, fmt.Errorf("persist: unsupported schema %q", doc.Schema)
	}
	return doc.State, nil
}

func (s *DiskStore) Save(_ context.Context, userID string, st ledger.State) error {
	data, err := json.Marshal(document{Schema: stateSchema, UserID: userID, State: st})
	if err != nil {
		return fmt.Errorf("persist: encode state: %w", err)
	}
	if err := s.d.Write(userKey(userID), data); err != nil {
		return fmt.Errorf("persist: write state: %w", err)
	}
	return nil
}

func (s *DiskStore) Delete(_ context.Context, userID string) error {
	if err := s.d.Erase(userKey(userID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("persist: erase state: %w", err)
	}
	return nil
}

// MemoryStore is an in-process Store for tests and ephemeral runs.
type MemoryStore struct {
	mu     sync.Mutex
	states map[string][]byte
	saves  int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string][]byte)}
}

func (m *MemoryStore) Load(_ context.Context, userID string) (ledger.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.states[userID]
	if !ok {
		return ledger.State{}, ErrNotFound
	}
	var st ledger.State
	if err := json.Unmarshal(data, &st); err != nil {
		return ledger.State{}, err
	}
	return st, nil
}

func (m *MemoryStore) Save(_ context.Context, userID string, st ledger.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[userID] = slices.Clone(data)
	m.saves++
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, userID)
	return nil
}

// Saves reports how many times Save has succeeded.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
