package filtering

import (
	"context"
	"fmt"
	"strings"

	"github.com/spigell/reswave/internal/reswave"
	"go.uber.org/zap"
)

const ForceFlagSetMsg = "force flag is set"

type historyFilter struct {
	path   string
	reason string
}

// NewHistory creates a filter that removes versions optimized by an earlier run.
func NewHistory() Filter {
	return &historyFilter{}
}

func (f *historyFilter) Name() string { return "history" }

func (f *historyFilter) Disable(reason string) { f.reason = reason }

func (f *historyFilter) IsEnabled() bool { return f.reason == "" }

func (f *historyFilter) Validate(cfg *Config) error {
	f.path = ""
	if cfg != nil {
		f.path = strings.TrimSpace(cfg.HistoryFile)
	}
	return nil
}

func (f *historyFilter) Apply(_ context.Context, deps Deps, v *reswave.Versions) (*reswave.Versions, Step, error) {
	initial := v.Len()
	if f.path == "" {
		return v, Step{Initial: initial, Dropped: 0, Left: v.Len()}, nil
	}

	history, err := LoadHistory(f.path)
	if err != nil {
		return v, Step{}, fmt.Errorf("getting optimized versions from history file: %w", err)
	}

	removed := v.Exclude(history.IDs())
	if deps.Logger != nil && len(removed) > 0 {
		deps.Logger.Info("excluding versions based on history file",
			zap.String("path", f.path),
			zap.Strings("excluded_versions", removed),
			zap.Int("versions_left", v.Len()),
		)
	}

	return v, Step{Initial: initial, Dropped: len(removed), Left: v.Len()}, nil
}

func (f *historyFilter) Status() Status {
	details := map[string]string{}
	if f.path != "" {
		details["path"] = f.path
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
