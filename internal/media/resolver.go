package media

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/anime-shed/media-inspector-go/internal/errors"
	"github.com/anime-shed/media-inspector-go/internal/features"
)

var categoryPrefix = map[features.MediaType]string{
	features.Image: "image/",
	features.Video: "video/",
	features.Audio: "audio/",
	features.Text:  "text/",
}

// Resolver holds the input of one analysis flow. Exactly one of file or URL is
// authoritative at analysis time.
type Resolver struct {
	media features.MediaType
	input Input
}

func NewResolver(mt features.MediaType) *Resolver {
	return &Resolver{media: mt}
}

func (r *Resolver) MediaType() features.MediaType { return r.media }

func (r *Resolver) Input() Input { return r.input }

// Accepts reports whether a MIME type belongs to the resolver's media category.
func (r *Resolver) Accepts(contentType string) bool {
	prefix, ok := categoryPrefix[r.media]
	return ok && strings.HasPrefix(contentType, prefix)
}

// SetFile validates the file's MIME category. On mismatch the previous state is
// kept and a validation error is returned; on success any URL is cleared.
func (r *Resolver) SetFile(f File) error {
	if len(f.Data) == 0 {
		return apperrors.NewValidationError(fmt.Sprintf("Please upload a valid %s file", r.media), fmt.Errorf("empty file"))
	}
	contentType := DetectContentType(&f)
	if !r.Accepts(contentType) {
		return apperrors.NewValidationError(
			fmt.Sprintf("Please upload a valid %s file", r.media),
			fmt.Errorf("content type %q does not match %s", contentType, categoryPrefix[r.media]),
		)
	}
	f.ContentType = contentType
	r.input = Input{
		kind:       KindFile,
		file:       &f,
		previewURL: "blob:media-inspector/" + uuid.NewString(),
	}
	return nil
}

// SetText stores inline text as a plain-text file. Only the text flow accepts it.
func (r *Resolver) SetText(text string) error {
	if r.media != features.Text {
		return apperrors.NewValidationError(fmt.Sprintf("inline text is not supported for %s analysis", r.media), nil)
	}
	if strings.TrimSpace(text) == "" {
		r.Clear()
		return nil
	}
	return r.SetFile(File{ContentType: "text/plain", Data: []byte(text)})
}

// SetURL makes the URL authoritative and clears any file. An empty URL resets the input.
func (r *Resolver) SetURL(u string) {
	u = strings.TrimSpace(u)
	if u == "" {
		r.Clear()
		return
	}
	r.input = Input{kind: KindURL, url: u}
}

func (r *Resolver) Clear() {
	r.input = Input{}
}
