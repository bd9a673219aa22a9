package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vigildata/vigil/pkg/checkpoint"
)

// FilesystemStore writes one JSON document per run under
// <root>/<run-id>/result.json.
type FilesystemStore struct {
	root string
	log  *slog.Logger
}

func NewFilesystemStore(log *slog.Logger, root string) *FilesystemStore {
	return &FilesystemStore{root: root, log: log}
}

func (s *FilesystemStore) Save(ctx context.Context, res *checkpoint.Result) error {
	dir := filepath.Join(s.root, res.RunID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create results dir: %w", err)
	}

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	path := filepath.Join(dir, "result.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}

	s.log.Info("validation result stored", "path", path)
	return nil
}

// LoadAll reads every stored run result, newest first. Data docs rebuilds
// from this history.
func (s *FilesystemStore) LoadAll() ([]*checkpoint.Result, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list results: %w", err)
	}

	var results []*checkpoint.Result
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.root, e.Name(), "result.json"))
		if err != nil {
			s.log.Warn("skipping unreadable result", "run_id", e.Name(), "error", err)
			continue
		}
		var res checkpoint.Result
		if err := json.Unmarshal(data, &res); err != nil {
			s.log.Warn("skipping malformed result", "run_id", e.Name(), "error", err)
			continue
		}
		results = append(results, &res)
	}

	sort.Slice(results, func(i, j int) bool {
		return strings.Compare(results[i].RunID, results[j].RunID) > 0
	})
	return results, nil
}

func (s *FilesystemStore) Close() error { return nil }
