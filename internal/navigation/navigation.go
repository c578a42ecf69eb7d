// Package navigation derives the highlighted navigation entry from the page scroll offset.
// Everything here is a pure function of its inputs.
package navigation

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// ScrolledThreshold is the offset past which the navbar switches to its solid style.
	ScrolledThreshold = 50

	// activationMargin shifts a section's activation point above its top edge.
	activationMargin = 100

	// scrollMargin leaves room for the fixed navbar when jumping to a section.
	scrollMargin = 80
)

// Section is one anchor on the landing page
type Section struct {
	ID     string
	Label  string
	Top    int
	Height int
}

// DefaultLayout mirrors the order and nominal heights of the rendered page.
var DefaultLayout = []Section{
	{ID: "hero", Label: "Home", Top: 0, Height: 900},
	{ID: "upload", Label: "Upload", Top: 900, Height: 1000},
	{ID: "howto", Label: "How to Use", Top: 1900, Height: 900},
	{ID: "about", Label: "About", Top: 2800, Height: 1100},
}

// ActiveSection returns the first section whose activation window contains offset.
// When no section matches, current is kept.
func ActiveSection(offset int, layout []Section, current string) string {
	for _, s := range layout {
		top := s.Top - activationMargin
		if offset >= top && offset < top+s.Height {
			return s.ID
		}
	}
	return current
}

// Scrolled reports whether the page has scrolled past the navbar threshold
func Scrolled(offset int) bool {
	return offset > ScrolledThreshold
}

// ScrollTarget returns the offset to scroll to when a section is picked from the navbar
func ScrollTarget(layout []Section, id string) (int, bool) {
	for _, s := range layout {
		if s.ID == id {
			return s.Top - scrollMargin, true
		}
	}
	return 0, false
}

// ScrollTargets maps every section id to its ScrollTarget
func ScrollTargets(layout []Section) map[string]int {
	targets := make(map[string]int, len(layout))
	for _, s := range layout {
		targets[s.ID], _ = ScrollTarget(layout, s.ID)
	}
	return targets
}

// ParseLayout reads a measured layout of the form "id:top:height,id:top:height".
// Only ids known to DefaultLayout are accepted. An empty string yields DefaultLayout.
func ParseLayout(raw string) ([]Section, error) {
	if strings.TrimSpace(raw) == "" {
		return DefaultLayout, nil
	}

	var layout []Section
	for _, entry := range strings.Split(raw, ",") {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("malformed layout entry %q", entry)
		}

		known, ok := lookup(parts[0])
		if !ok {
			return nil, fmt.Errorf("unknown section %q", parts[0])
		}

		top, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid top for %q: %w", parts[0], err)
		}
		height, err := strconv.Atoi(parts[2])
		if err != nil || height < 0 {
			return nil, fmt.Errorf("invalid height for %q", parts[0])
		}

		known.Top, known.Height = top, height
		layout = append(layout, known)
	}
	return layout, nil
}

func lookup(id string) (Section, bool) {
	for _, s := range DefaultLayout {
		if s.ID == id {
			return s, true
		}
	}
	return Section{}, false
}
