// Package render turns an analysis result into text sections and JSON exports.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode"

	"github.com/anime-shed/media-inspector-go/internal/analysis"
	"github.com/anime-shed/media-inspector-go/internal/features"
)

// Section is one labeled block of a rendered result.
type Section struct {
	Key   string   `json:"key"`
	Label string   `json:"label"`
	Items []string `json:"items,omitempty"`
	Text  string   `json:"text,omitempty"`
}

// IsList reports whether the section renders as bullets.
func (s Section) IsList() bool {
	return s.Items != nil
}

// Sections orders the result by the media type's feature order, then any
// other keys alphabetically. Values that are neither a string nor a string
// list are stringified.
func Sections(mt features.MediaType, r analysis.Result) []Section {
	seen := make(map[string]bool, len(r))
	var keys []string
	for _, name := range features.Names(mt) {
		if _, ok := r[name]; ok {
			keys = append(keys, name)
			seen[name] = true
		}
	}
	var extra []string
	for k := range r {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	keys = append(keys, extra...)

	sections := make([]Section, 0, len(keys))
	for _, k := range keys {
		s := Section{Key: k, Label: Label(k)}
		if items, ok := r.List(k); ok {
			s.Items = append([]string{}, items...)
		} else if text, ok := r.String(k); ok {
			s.Text = text
		} else if v := r[k]; v != nil {
			s.Text = fmt.Sprintf("%v", v)
		}
		sections = append(sections, s)
	}
	return sections
}

// Text writes the result as labeled sections: lists as bullets, scalars as
// plain text.
func Text(w io.Writer, mt features.MediaType, r analysis.Result) error {
	sections := Sections(mt, r)
	for i, s := range sections {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%s\n", s.Label); err != nil {
			return err
		}
		if s.IsList() {
			if len(s.Items) == 0 {
				if _, err := io.WriteString(w, "  (none)\n"); err != nil {
					return err
				}
			}
			for _, item := range s.Items {
				if _, err := fmt.Fprintf(w, "  • %s\n", item); err != nil {
					return err
				}
			}
			continue
		}
		if _, err := fmt.Fprintf(w, "  %s\n", s.Text); err != nil {
			return err
		}
	}
	return nil
}

// String is Text into a string.
func String(mt features.MediaType, r analysis.Result) string {
	var b strings.Builder
	_ = Text(&b, mt, r)
	return b.String()
}

// Label turns a feature key such as "speakerDiarization" into "Speaker Diarization".
func Label(key string) string {
	var b strings.Builder
	for i, r := range key {
		if i == 0 {
			b.WriteRune(unicode.ToUpper(r))
			continue
		}
		if unicode.IsUpper(r) {
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ExportJSON encodes a result for download.
func ExportJSON(r analysis.Result) ([]byte, error) {
	if r == nil {
		r = analysis.Result{}
	}
	return json.MarshalIndent(r, "", "  ")
}

// ParseJSON reads back a result written by ExportJSON.
func ParseJSON(data []byte) (analysis.Result, error) {
	var r analysis.Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("invalid result export: %w", err)
	}
	return r, nil
}

// ExportFilename is the download name for a stored analysis.
func ExportFilename(id string) string {
	return fmt.Sprintf("analysis-%s.json", id)
}
