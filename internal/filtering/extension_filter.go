package filtering

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/spigell/reswave/internal/reswave"
	"go.uber.org/zap"
)

type extensionFilter struct {
	extensions map[string]struct{}
	listed     []string
	disabled   string
}

// NewExtension creates a filter that keeps versions with a configured file extension.
func NewExtension() Filter {
	return &extensionFilter{}
}

func (f *extensionFilter) Name() string { return "extension" }

func (f *extensionFilter) Disable(reason string) { f.disabled = reason }

func (f *extensionFilter) IsEnabled() bool { return f.disabled == "" }

func (f *extensionFilter) Validate(cfg *Config) error {
	f.extensions = make(map[string]struct{})
	f.listed = nil
	if cfg == nil {
		return nil
	}

	for _, ext := range cfg.Extensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext == "" {
			return errors.New("empty extension in optimize.extensions")
		}
		if _, ok := f.extensions[ext]; ok {
			continue
		}
		f.extensions[ext] = struct{}{}
		f.listed = append(f.listed, ext)
	}
	return nil
}

func (f *extensionFilter) Apply(_ context.Context, deps Deps, v *reswave.Versions) (*reswave.Versions, Step, error) {
	initial := v.Len()
	if len(f.extensions) == 0 {
		return v, Step{Initial: initial, Dropped: 0, Left: v.Len()}, nil
	}

	excluded := v.Keep(func(version *reswave.FileVersion) bool {
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(version.Filename), "."))
		_, ok := f.extensions[ext]
		return ok
	})
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding versions by extension",
			zap.Strings("allowed_extensions", f.listed),
			zap.Strings("excluded_versions", excluded),
			zap.Int("versions_left", v.Len()),
		)
	}

	return v, Step{Initial: initial, Dropped: len(excluded), Left: v.Len()}, nil
}

func (f *extensionFilter) Status() Status {
	details := map[string]string{}
	if len(f.listed) > 0 {
		details["extensions"] = strings.Join(f.listed, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.disabled, Details: details}
}
