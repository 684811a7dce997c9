package filtering

import (
	"context"

	"github.com/spigell/reswave/internal/reswave"
	"go.uber.org/zap"
)

type perFileFilter struct{}

// NewPerFile creates a filter that keeps one version, the highest numbered, of
// every uploaded file.
func NewPerFile() Filter {
	return &perFileFilter{}
}

func (f *perFileFilter) Name() string { return "per_file" }

func (f *perFileFilter) Disable(string) {}

func (f *perFileFilter) IsEnabled() bool { return true }

func (f *perFileFilter) Validate(*Config) error { return nil }

func (f *perFileFilter) Apply(_ context.Context, deps Deps, v *reswave.Versions) (*reswave.Versions, Step, error) {
	initial := v.Len()

	chosen := make(map[int]*reswave.FileVersion)
	for _, version := range v.Items {
		current, ok := chosen[version.FileIndex]
		if !ok || version.VersionNumber > current.VersionNumber {
			chosen[version.FileIndex] = version
		}
	}

	excluded := v.Keep(func(version *reswave.FileVersion) bool {
		return chosen[version.FileIndex] == version
	})
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding older versions of the same file",
			zap.Strings("excluded_versions", excluded),
			zap.Int("versions_left", v.Len()),
		)
	}

	return v, Step{Initial: initial, Dropped: len(excluded), Left: v.Len()}, nil
}

func (f *perFileFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: true}
}
