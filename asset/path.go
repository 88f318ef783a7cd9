package asset

import "strings"

// Path is the parsed form of the asset URI grammar:
// `[source "://"] path [ "#" label ]`. An empty Source selects the
// server's default AssetSource.
type Path struct {
	Source string
	Path   string
	Label  string
}

// ParsePath parses s into a Path. Round-tripping Format(ParsePath(s)) == s
// holds for every well-formed input.
func ParsePath(s string) Path {
	var p Path
	if idx := strings.Index(s, "://"); idx >= 0 {
		p.Source = s[:idx]
		s = s[idx+3:]
	}
	if idx := strings.LastIndex(s, "#"); idx >= 0 {
		p.Label = s[idx+1:]
		s = s[:idx]
	}
	p.Path = s
	return p
}

// Format renders p back into its URI string form.
func (p Path) Format() string {
	var b strings.Builder
	if p.Source != "" {
		b.WriteString(p.Source)
		b.WriteString("://")
	}
	b.WriteString(p.Path)
	if p.Label != "" {
		b.WriteString("#")
		b.WriteString(p.Label)
	}
	return b.String()
}

// WithLabel returns a copy of p naming a different labeled sub-asset.
func (p Path) WithLabel(label string) Path {
	p.Label = label
	return p
}
