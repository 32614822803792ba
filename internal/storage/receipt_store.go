// Package storage persists receipt files on the local filesystem.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ReceiptStore saves and loads receipt files under a base directory.
// Paths are validated to stay inside the base directory.
type ReceiptStore struct {
	baseDir string
	logger  *zap.Logger
}

// NewReceiptStore creates a receipt store rooted at baseDir
func NewReceiptStore(baseDir string, logger *zap.Logger) (*ReceiptStore, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base dir: %w", err)
	}
	return &ReceiptStore{baseDir: abs, logger: logger}, nil
}

// Save writes a receipt for the given expense and returns its relative
// path within the store.
func (s *ReceiptStore) Save(expenseID int64, filename string, content []byte) (string, error) {
	name := filepath.Base(filename)
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "", fmt.Errorf("invalid receipt filename: %q", filename)
	}

	relPath := filepath.Join(fmt.Sprintf("expense_%d", expenseID), name)
	fullPath := filepath.Join(s.baseDir, relPath)
	if err := s.validatePath(fullPath); err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		s.logger.Error("Failed to create receipt directory",
			zap.String("path", filepath.Dir(fullPath)),
			zap.Error(err))
		return "", fmt.Errorf("failed to create receipt directory: %w", err)
	}

	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		s.logger.Error("Failed to write receipt",
			zap.String("path", fullPath),
			zap.Error(err))
		return "", fmt.Errorf("failed to write receipt: %w", err)
	}

	s.logger.Debug("Receipt saved",
		zap.Int64("expense_id", expenseID),
		zap.String("path", relPath),
		zap.Int("size", len(content)))

	return relPath, nil
}

// Open returns the receipt content stored at relPath
func (s *ReceiptStore) Open(relPath string) ([]byte, error) {
	fullPath := filepath.Join(s.baseDir, relPath)
	if err := s.validatePath(fullPath); err != nil {
		return nil, err
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read receipt: %w", err)
	}
	return content, nil
}

// validatePath rejects paths that escape the base directory
func (s *ReceiptStore) validatePath(fullPath string) error {
	abs, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, s.baseDir+string(filepath.Separator)) {
		return fmt.Errorf("path escapes storage directory: %s", fullPath)
	}
	return nil
}
