package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const DefaultFileName = ".multiswap-intents.json"

// FileStore keeps intents in a single JSON file, rewritten atomically on
// every change
type FileStore struct {
	filePath string
	mu       sync.Mutex
	intents  map[string]*Intent
}

type fileContents struct {
	Intents map[string]*Intent `json:"intents"`
}

// NewFileStore opens (or lazily creates) the journal file. An empty path
// uses DefaultFileName in the home directory.
func NewFileStore(filePath string) (*FileStore, error) {
	if filePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		filePath = filepath.Join(home, DefaultFileName)
	}

	store := &FileStore{
		filePath: filePath,
		intents:  make(map[string]*Intent),
	}

	// Missing file is fine, it is created on first write
	if err := store.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load intents: %w", err)
	}

	return store, nil
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	var contents fileContents
	if err := json.Unmarshal(data, &contents); err != nil {
		return fmt.Errorf("failed to unmarshal intents: %w", err)
	}
	if contents.Intents != nil {
		s.intents = contents.Intents
	}
	return nil
}

// save must be called with s.mu held
func (s *FileStore) save() error {
	data, err := json.MarshalIndent(fileContents{Intents: s.intents}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal intents: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Write to temporary file first, then rename for atomic write
	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write intents: %w", err)
	}
	if err := os.Rename(tempFile, s.filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func (s *FileStore) Record(_ context.Context, intent *Intent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.intents[intent.ID]; exists {
		return fmt.Errorf("intent '%s' already exists", intent.ID)
	}
	copied := *intent
	s.intents[intent.ID] = &copied
	if err := s.save(); err != nil {
		delete(s.intents, intent.ID)
		return err
	}
	return nil
}

func (s *FileStore) Update(_ context.Context, id string, status Status, txid, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous, exists := s.intents[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	updated := *previous
	updated.Status = status
	if txid != "" {
		updated.TxID = txid
	}
	updated.Error = errMsg
	updated.UpdatedAt = time.Now().UTC()

	s.intents[id] = &updated
	if err := s.save(); err != nil {
		s.intents[id] = previous
		return err
	}
	return nil
}

func (s *FileStore) Get(_ context.Context, id string) (*Intent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	intent, exists := s.intents[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	copied := *intent
	return &copied, nil
}

// List returns every intent, oldest first
func (s *FileStore) List() []*Intent {
	s.mu.Lock()
	defer s.mu.Unlock()

	intents := make([]*Intent, 0, len(s.intents))
	for _, intent := range s.intents {
		copied := *intent
		intents = append(intents, &copied)
	}
	sort.Slice(intents, func(i, j int) bool { return intents[i].CreatedAt.Before(intents[j].CreatedAt) })
	return intents
}

func (s *FileStore) Recent(_ context.Context, limit int) ([]*Intent, error) {
	intents := s.List()
	for i, j := 0, len(intents)-1; i < j; i, j = i+1, j-1 {
		intents[i], intents[j] = intents[j], intents[i]
	}
	if limit > 0 && len(intents) > limit {
		intents = intents[:limit]
	}
	return intents, nil
}

func (s *FileStore) Close() error { return nil }
