package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/san-kum/lyapsim/internal/lyapunov"
)

const (
	metadataFile = "metadata.json"
	seriesFile   = "series.csv"
)

// FileStore keeps one directory per run holding metadata.json and series.csv.
type FileStore struct {
	baseDir string
	now     func() time.Time
}

func NewFileStore(baseDir string) *FileStore {
	return &FileStore{baseDir: baseDir, now: time.Now}
}

func (s *FileStore) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) Save(_ context.Context, rec Record) (string, error) {
	runID := NewRunID(string(rec.Params.System))
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := rec.metadata(runID, s.now())
	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, seriesFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteCSV(csvFile, rec.Result.Series); err != nil {
		return "", err
	}
	return runID, nil
}

// List returns every readable run, newest first.
func (s *FileStore) List(_ context.Context) ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.readMeta(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *FileStore) Load(_ context.Context, runID string) (*RunMetadata, error) {
	return s.readMeta(runID)
}

func (s *FileStore) runDir(runID string) (string, error) {
	if runID == "" || runID != filepath.Base(runID) || runID == ".." {
		return "", ErrRunNotFound
	}
	return filepath.Join(s.baseDir, runID), nil
}

func (s *FileStore) readMeta(runID string) (*RunMetadata, error) {
	dir, err := s.runDir(runID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *FileStore) LoadSeries(_ context.Context, runID string) (lyapunov.Series, error) {
	dir, err := s.runDir(runID)
	if err != nil {
		return lyapunov.Series{}, err
	}
	file, err := os.Open(filepath.Join(dir, seriesFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return lyapunov.Series{}, ErrRunNotFound
		}
		return lyapunov.Series{}, err
	}
	defer file.Close()

	return ReadCSV(file)
}
