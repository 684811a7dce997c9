package filtering

import (
	"context"

	"github.com/spigell/reswave/internal/reswave"
	"go.uber.org/zap"
)

type latestFilter struct {
	enabled bool
	reason  string
}

// NewLatest creates a filter that keeps only the newest version of every filename.
func NewLatest() Filter {
	return &latestFilter{enabled: true}
}

func (f *latestFilter) Name() string { return "latest" }

func (f *latestFilter) Disable(reason string) {
	f.enabled = false
	f.reason = reason
}

func (f *latestFilter) IsEnabled() bool { return f.enabled }

func (f *latestFilter) Validate(cfg *Config) error {
	if cfg == nil || !cfg.LatestOnly {
		f.Disable("optimize.latest-only is false")
	}
	return nil
}

func (f *latestFilter) Apply(_ context.Context, deps Deps, v *reswave.Versions) (*reswave.Versions, Step, error) {
	initial := v.Len()

	newest := make(map[string]*reswave.FileVersion)
	for _, version := range v.Items {
		current, ok := newest[version.Filename]
		if !ok || version.VersionNumber > current.VersionNumber {
			newest[version.Filename] = version
		}
	}

	excluded := v.Keep(func(version *reswave.FileVersion) bool {
		return newest[version.Filename] == version
	})
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding superseded versions",
			zap.Strings("excluded_versions", excluded),
			zap.Int("versions_left", v.Len()),
		)
	}

	return v, Step{Initial: initial, Dropped: len(excluded), Left: v.Len()}, nil
}

func (f *latestFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.enabled, Reason: f.reason}
}
