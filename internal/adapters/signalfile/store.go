// Package signalfile persists the single-slot trade signal as a JSON file.
// Writes go to a temp file in the same directory followed by a rename, so a
// reader polling the file never observes a partially written record.
package signalfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"paperQuantBot/internal/domain"
	"paperQuantBot/internal/ports"
)

// Store implements the ports.SignalStore interface on the local filesystem.
type Store struct {
	path   string
	logger ports.Logger
}

// Config holds configuration for the signal file store.
type Config struct {
	Path   string
	Logger ports.Logger
}

// NewStore creates a signal file store, ensuring the parent directory exists.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for signal file store")
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("signal file path is required: %w", ports.ErrConfigurationError)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create signal directory '%s': %w", filepath.Dir(cfg.Path), err)
	}
	return &Store{path: cfg.Path, logger: cfg.Logger}, nil
}

// Write atomically replaces the current signal record.
func (s *Store) Write(ctx context.Context, signal *domain.Signal) error {
	data, err := json.MarshalIndent(signal, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal signal: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".signal-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp signal file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp signal file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp signal file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace signal file: %w", err)
	}

	s.logger.Debug(ctx, "Signal written", map[string]interface{}{
		"decision": signal.Decision, "confidence": signal.Confidence, "barTime": signal.Timestamp,
	})
	return nil
}

// Read retrieves the current signal, or nil when none has been written yet.
func (s *Store) Read(ctx context.Context) (*domain.Signal, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil // No signal yet, not an error
		}
		return nil, fmt.Errorf("failed to read signal file: %w", err)
	}

	signal := &domain.Signal{}
	if err := json.Unmarshal(data, signal); err != nil {
		return nil, fmt.Errorf("failed to unmarshal signal file: %w", err)
	}
	return signal, nil
}
