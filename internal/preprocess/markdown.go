// Package preprocess turns raw document text into LLM-ready chunk records:
// markdown cleanup, heading-based sectioning and token-budgeted packing.
package preprocess

import (
	"regexp"
	"strings"
)

var (
	imagePattern      = regexp.MustCompile(`!\[.*?\]\(.*?\)`)
	scriptLinkPattern = regexp.MustCompile(`\[.*?\]\(javascript:[^)]+\)`)
	emptyLinkPattern  = regexp.MustCompile(`\[\s*\]\(.*?\)`)
	linkPattern       = regexp.MustCompile(`\[(.*?)\]\(.*?\)`)
	markupPattern     = regexp.MustCompile("[#`\\\\*]+")
	blankRunPattern   = regexp.MustCompile(`\n{2,}`)
)

// Clean strips markdown furniture that carries no prose: images,
// javascript-only and empty links go away, remaining links collapse to
// their text, emphasis punctuation is dropped and blank-line runs are
// squeezed. Heading marker runs at the start of a line survive so Sections
// can still find them.
func Clean(md string) string {
	md = imagePattern.ReplaceAllString(md, "")
	md = scriptLinkPattern.ReplaceAllString(md, "")
	md = emptyLinkPattern.ReplaceAllString(md, "")
	md = linkPattern.ReplaceAllString(md, "$1")

	lines := strings.Split(md, "\n")
	for i, line := range lines {
		lines[i] = cleanLine(line)
	}
	md = strings.Join(lines, "\n")

	md = blankRunPattern.ReplaceAllString(md, "\n\n")
	return strings.TrimSpace(md)
}

// cleanLine strips markup characters, keeping a line-leading heading run
// intact.
func cleanLine(line string) string {
	trimmed := strings.TrimLeft(line, " \t")
	if strings.HasPrefix(trimmed, "#") {
		i := 0
		for i < len(trimmed) && trimmed[i] == '#' {
			i++
		}
		return trimmed[:i] + markupPattern.ReplaceAllString(trimmed[i:], "")
	}
	return markupPattern.ReplaceAllString(line, "")
}

// Section is a heading and the prose lines under it.
type Section struct {
	Title   string
	Content []string
}

// Sections splits cleaned markdown at heading lines. Prose before the
// first heading is dropped, as are headings with nothing under them. When
// no heading yields content the whole document becomes one "General"
// section.
func Sections(md string) []Section {
	var sections []Section
	current := Section{}
	flush := func() {
		if current.Title != "" && len(current.Content) > 0 {
			sections = append(sections, current)
		}
	}

	for _, raw := range strings.Split(md, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			flush()
			current = Section{Title: strings.TrimSpace(strings.TrimLeft(line, "#"))}
			continue
		}
		current.Content = append(current.Content, line)
	}
	flush()

	if len(sections) == 0 {
		return []Section{{Title: "General", Content: strings.Split(md, "\n")}}
	}
	return sections
}
