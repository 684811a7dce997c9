package filtering

import (
	"encoding/json"
	"errors"
	"os"
	"time"

	"github.com/spigell/reswave/internal/reswave"
)

// History is the list of versions already optimized by previous batch runs.
type History struct {
	Items []*HistoryEntry
}

type HistoryEntry struct {
	ID          string
	Filename    string
	OptimizedAt time.Time
}

// LoadHistory reads the history file. A missing or empty file is an empty history.
func LoadHistory(path string) (*History, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return &History{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() == 0 {
		return &History{}, nil
	}

	var history History
	if err := json.NewDecoder(file).Decode(&history); err != nil {
		return nil, err
	}
	return &history, nil
}

// Record appends an entry for the version.
func (h *History) Record(version *reswave.FileVersion, at time.Time) {
	h.Items = append(h.Items, &HistoryEntry{
		ID:          version.ID,
		Filename:    version.Filename,
		OptimizedAt: at.UTC(),
	})
}

func (h *History) IDs() []string {
	ids := make([]string, 0, len(h.Items))
	for _, entry := range h.Items {
		ids = append(ids, entry.ID)
	}
	return ids
}

func (h *History) ToFile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(h)
}
