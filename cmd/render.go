package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spigell/reswave/internal/optimizer"
	"gopkg.in/yaml.v3"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 2)

	resultStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	metaStyle = lipgloss.NewStyle().
			Faint(true)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#D9383A")).
			Padding(0, 2)
)

// outcome is the rendered result of one optimization invocation.
type outcome struct {
	ResourceID string            `json:"resource_id" yaml:"resource_id"`
	Label      string            `json:"label,omitempty" yaml:"label,omitempty"`
	Result     *optimizer.Result `json:"result,omitempty" yaml:"result,omitempty"`
	Error      string            `json:"error,omitempty" yaml:"error,omitempty"`
	SavedTo    string            `json:"saved_to,omitempty" yaml:"saved_to,omitempty"`

	err error
}

func newOutcome(resourceID, label string, res *optimizer.Result, err error) outcome {
	o := outcome{ResourceID: resourceID, Label: label, Result: res, err: err}
	if err != nil {
		o.Error = err.Error()
	}
	return o
}

func (o outcome) failed() bool {
	return o.err != nil
}

func validateOutput(format string) error {
	switch format {
	case outputText, outputJSON, outputYAML:
		return nil
	default:
		return fmt.Errorf("unknown output format %q: expected %s, %s or %s", format, outputText, outputJSON, outputYAML)
	}
}

// render writes any value in the structured formats. Text output is handled by
// the callers.
func render(w io.Writer, format string, v any) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return validateOutput(format)
	}
}

func renderOutcomes(w io.Writer, format string, outcomes []outcome) error {
	if format != outputText {
		if len(outcomes) == 1 {
			return render(w, format, outcomes[0])
		}
		return render(w, format, outcomes)
	}

	for _, o := range outcomes {
		if _, err := fmt.Fprintln(w, renderOutcomeText(o)); err != nil {
			return err
		}
	}
	return nil
}

func renderOutcomeText(o outcome) string {
	title := o.ResourceID
	if o.Label != "" {
		title = o.Label
	}

	if o.failed() {
		return lipgloss.JoinVertical(lipgloss.Left,
			errorStyle.Render("Optimization failed: "+title),
			errorDetail(o.err),
		)
	}

	lines := []string{headerStyle.Render("Optimized: " + title)}
	if meta := metadataLine(o.Result); meta != "" {
		lines = append(lines, metaStyle.Render(meta))
	}
	if o.SavedTo != "" {
		lines = append(lines, metaStyle.Render("saved to "+o.SavedTo))
	}
	lines = append(lines, resultStyle.Render(o.Result.OptimizedContent))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func metadataLine(res *optimizer.Result) string {
	if res == nil {
		return ""
	}

	parts := []string{fmt.Sprintf("attempts: %d", res.Attempts)}
	if m := res.Metadata; m != nil {
		parts = append(parts,
			fmt.Sprintf("chunks: %d/%d", m.ChunksProcessed, m.TotalChunks),
			fmt.Sprintf("processing: %.0fms", m.ProcessingTime),
			fmt.Sprintf("server retries: %d", m.RetryCount),
		)
	}
	return strings.Join(parts, " | ")
}

func errorDetail(err error) string {
	var exhausted *optimizer.BudgetExhaustedError
	if errors.As(err, &exhausted) {
		return fmt.Sprintf("%s\n%s", err.Error(), metaStyle.Render(fmt.Sprintf("total attempts: %d", exhausted.Attempts)))
	}
	return err.Error()
}
