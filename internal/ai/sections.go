package ai

import (
	"regexp"
	"strings"
)

const (
	// SectionResume holds the whole text when no known header is present.
	SectionResume = "resume"
	// SectionSummary holds lines found before the first header.
	SectionSummary = "summary"
)

var sectionHeader = regexp.MustCompile(`(?i)^\s*(contact|experience|education|skills|projects|awards)\s*:?\s*$`)

type Section struct {
	Name    string
	Content string
}

// ClassifySections groups resume lines under the known section headers, in
// order of first appearance. Repeated headers extend the earlier section.
func ClassifySections(text string) []Section {
	var (
		order   []string
		lines   = make(map[string][]string)
		current = SectionSummary
	)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := sectionHeader.FindStringSubmatch(line); m != nil {
			current = strings.ToLower(m[1])
			if _, ok := lines[current]; !ok {
				lines[current] = nil
				order = append(order, current)
			}
			continue
		}

		if _, ok := lines[current]; !ok {
			order = append(order, current)
		}
		lines[current] = append(lines[current], line)
	}

	if len(order) == 1 && order[0] == SectionSummary {
		return []Section{{Name: SectionResume, Content: strings.Join(lines[SectionSummary], "\n")}}
	}

	sections := make([]Section, 0, len(order))
	for _, name := range order {
		if len(lines[name]) == 0 {
			continue
		}
		sections = append(sections, Section{Name: name, Content: strings.Join(lines[name], "\n")})
	}

	return sections
}

// CleanGenerated tidies model output: whitespace runs collapse, immediately
// repeated words are dropped and empty lines removed.
func CleanGenerated(text string) string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		words := strings.Fields(line)
		if len(words) == 0 {
			continue
		}

		kept := words[:1]
		for _, w := range words[1:] {
			if w == kept[len(kept)-1] {
				continue
			}
			kept = append(kept, w)
		}
		out = append(out, strings.Join(kept, " "))
	}

	return strings.Join(out, "\n")
}

// Assemble joins sections back into a single document.
func Assemble(sections []Section) string {
	blocks := make([]string, 0, len(sections))
	for _, s := range sections {
		blocks = append(blocks, s.Name+"\n"+s.Content)
	}
	return strings.Join(blocks, "\n\n")
}
