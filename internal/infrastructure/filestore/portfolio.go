package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"portfolio-service/internal/application"
	"portfolio-service/internal/domain"
)

type document struct {
	Stocks []domain.Position `json:"stocks"`
}

// PortfolioStore keeps the portfolio as a {"stocks": [...]} JSON document.
// A missing file reads as an empty portfolio; saves replace the file atomically.
type PortfolioStore struct {
	path string
	mu   sync.Mutex
}

var _ application.PortfolioStore = (*PortfolioStore)(nil)

func NewPortfolioStore(path string) *PortfolioStore { return &PortfolioStore{path: path} }

func (s *PortfolioStore) Load(context.Context) ([]domain.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.Position{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read portfolio: %w", err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse portfolio %s: %w", s.path, err)
	}
	if doc.Stocks == nil {
		doc.Stocks = []domain.Position{}
	}
	return doc.Stocks, nil
}

func (s *PortfolioStore) Save(_ context.Context, positions []domain.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if positions == nil {
		positions = []domain.Position{}
	}
	data, err := json.MarshalIndent(document{Stocks: positions}, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create portfolio dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".portfolio-*.json")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
