package stage

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Name identifies a preprocessing stage.
type Name string

const (
	Convert    Name = "convert"
	SkullStrip Name = "skullstrip"
	Axes       Name = "axes"
	PNG        Name = "png"
)

// Names returns every stage in canonical execution order.
func Names() []Name {
	return []Name{Convert, SkullStrip, Axes, PNG}
}

var aliases = map[string]Name{
	"convert":         Convert,
	"conversion":      Convert,
	"dicom2nifti":     Convert,
	"skullstrip":      SkullStrip,
	"skull-strip":     SkullStrip,
	"bet":             SkullStrip,
	"axes":            Axes,
	"axes-correction": Axes,
	"png":             PNG,
	"png-export":      PNG,
}

// ParseNames resolves user-supplied stage names and returns them in canonical
// order without duplicates. An empty input selects every stage.
func ParseNames(values []string) ([]Name, error) {
	if len(values) == 0 {
		return Names(), nil
	}
	selected := make(map[Name]bool, len(values))
	for _, raw := range values {
		for _, part := range strings.Split(raw, ",") {
			key := strings.ToLower(strings.TrimSpace(part))
			if key == "" {
				continue
			}
			name, ok := aliases[key]
			if !ok {
				return nil, fmt.Errorf("unknown stage %q (want convert, skullstrip, axes, or png)", part)
			}
			selected[name] = true
		}
	}
	ordered := make([]Name, 0, len(selected))
	for _, name := range Names() {
		if selected[name] {
			ordered = append(ordered, name)
		}
	}
	if len(ordered) == 0 {
		return Names(), nil
	}
	return ordered, nil
}

var displayWords = map[Name]string{
	Convert:    "dicom conversion",
	SkullStrip: "skull strip",
	Axes:       "axis correction",
}

// Label returns a human readable stage name.
func (n Name) Label() string {
	if n == PNG {
		return "PNG Export"
	}
	words, ok := displayWords[n]
	if !ok {
		words = strings.ReplaceAll(string(n), "_", " ")
	}
	return cases.Title(language.Und).String(words)
}
