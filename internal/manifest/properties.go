package manifest

import "strings"

// Properties is a set of MSBuild properties with case-insensitive names.
// The first definition of a name wins; later ones are ignored.
type Properties struct {
	values map[string]string
}

// NewProperties returns an empty property set.
func NewProperties() *Properties {
	return &Properties{values: make(map[string]string)}
}

// Define records name=value unless name is already defined.
// It reports whether the value was recorded.
func (p *Properties) Define(name, value string) bool {
	key := strings.ToLower(name)
	if _, ok := p.values[key]; ok {
		return false
	}
	p.values[key] = value
	return true
}

// Lookup returns the value of name.
func (p *Properties) Lookup(name string) (string, bool) {
	v, ok := p.values[strings.ToLower(name)]
	return v, ok
}

// Len returns the number of defined properties.
func (p *Properties) Len() int {
	return len(p.values)
}

// Expand replaces every $(Name) reference in s with the value of Name.
//
// Substitution is a single pass: substituted values are not scanned again.
// References to undefined properties, and a "$(" with no closing ")", are
// kept verbatim.
func (p *Properties) Expand(s string) string {
	if !strings.Contains(s, "$(") {
		return s
	}

	var b strings.Builder
	for {
		start := strings.Index(s, "$(")
		if start < 0 {
			break
		}
		end := strings.IndexByte(s[start+2:], ')')
		if end < 0 {
			break
		}
		end += start + 2

		b.WriteString(s[:start])
		if v, ok := p.Lookup(s[start+2 : end]); ok {
			b.WriteString(v)
		} else {
			b.WriteString(s[start : end+1])
		}
		s = s[end+1:]
	}
	b.WriteString(s)

	return b.String()
}
