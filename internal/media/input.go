// Package media resolves what a caller wants analyzed: an uploaded file or a
// remote URL, never both.
package media

import (
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Kind tags the active branch of an Input.
type Kind int

const (
	KindNone Kind = iota
	KindFile
	KindURL
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindURL:
		return "url"
	default:
		return "none"
	}
}

// File is an uploaded payload held in memory.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Size returns the payload length in bytes.
func (f *File) Size() int {
	return len(f.Data)
}

// Input is the tagged choice {none, file, url}.
type Input struct {
	kind       Kind
	file       *File
	url        string
	previewURL string
}

func (in Input) Kind() Kind { return in.kind }

// File returns the uploaded file, or nil when the URL branch is active.
func (in Input) File() *File { return in.file }

func (in Input) URL() string { return in.url }

// PreviewURL is the local handle derived from an uploaded file.
func (in Input) PreviewURL() string { return in.previewURL }

func (in Input) IsEmpty() bool { return in.kind == KindNone }

// Describe returns a short human label for history listings.
func (in Input) Describe() string {
	switch in.kind {
	case KindFile:
		if in.file.Name != "" {
			return in.file.Name
		}
		return snippet(string(in.file.Data), 80)
	case KindURL:
		return in.url
	default:
		return ""
	}
}

func snippet(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

// DetectContentType returns the bare MIME type of a file. The declared type wins
// unless it is missing or generic, in which case the content is sniffed.
func DetectContentType(f *File) string {
	declared := normalize(f.ContentType)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if len(f.Data) == 0 {
		return declared
	}
	return normalize(mimetype.Detect(f.Data).String())
}

func normalize(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(contentType)
	}
	return mt
}
