package tags

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/dhowden/tag"

	"tunesweep/internal/album"
	"tunesweep/internal/logging"
)

var (
	// ErrUnreadableAttributes marks a tag read that failed; callers fall back
	// to Unknown().
	ErrUnreadableAttributes = errors.New("unreadable attributes")
	// ErrWriteFailed marks a tag write that did not reach storage.
	ErrWriteFailed = errors.New("tag write failed")
	// ErrUnsupportedFormat marks files whose tags cannot be rewritten.
	ErrUnsupportedFormat = errors.New("unsupported tag format")
)

// Field names a cleanable text tag.
type Field string

const (
	FieldTitle  Field = "title"
	FieldArtist Field = "artist"
	FieldAlbum  Field = "album"
)

// Fields lists the cleanable fields in processing order.
var Fields = []Field{FieldTitle, FieldArtist, FieldAlbum}

// Text holds the present text fields of one item.
type Text map[Field]string

// Attributes are the grouping inputs read from an item.
type Attributes struct {
	Album string
	Year  string
}

// Unknown returns the sentinel attribute set.
func Unknown() Attributes {
	return Attributes{Album: album.UnknownAlbum}
}

// Store is the tag collaborator used by the engines.
type Store interface {
	// ReadAttributes always returns a usable set; the error only explains a
	// fallback to Unknown().
	ReadAttributes(path string) (Attributes, error)
	ReadText(path string) (Text, error)
	WriteText(path string, patch Text) error
}

// Files reads and writes tags in place on disk.
type Files struct {
	logger *slog.Logger
}

// NewFiles returns the on-disk Store.
func NewFiles(logger *slog.Logger) *Files {
	return &Files{logger: logging.NewComponentLogger(logger, "tags")}
}

// ReadAttributes reads album and year through the generic tag reader, which
// understands ID3, MP4, FLAC and Ogg containers.
func (f *Files) ReadAttributes(path string) (Attributes, error) {
	file, err := os.Open(path)
	if err != nil {
		return Unknown(), fmt.Errorf("%w: %s: %v", ErrUnreadableAttributes, path, err)
	}
	defer file.Close()

	md, err := tag.ReadFrom(file)
	if err != nil {
		return Unknown(), fmt.Errorf("%w: %s: %v", ErrUnreadableAttributes, path, err)
	}
	attrs := Attributes{Album: strings.TrimSpace(md.Album())}
	if attrs.Album == "" {
		attrs.Album = album.UnknownAlbum
	}
	if year := md.Year(); year > 0 {
		attrs.Year = strconv.Itoa(year)
	}
	return attrs, nil
}

// ReadText returns the present title, artist and album values.
func (f *Files) ReadText(path string) (Text, error) {
	c, err := probe(path)
	if err != nil {
		return nil, err
	}
	text, err := c.read(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s (%s): %v", ErrUnreadableAttributes, path, c.name(), err)
	}
	return text, nil
}

// WriteText applies patch in place. Only fields present in patch change.
func (f *Files) WriteText(path string, patch Text) error {
	if len(patch) == 0 {
		return nil
	}
	c, err := probe(path)
	if err != nil {
		return err
	}
	if err := c.write(path, patch); err != nil {
		return fmt.Errorf("%w: %s (%s): %v", ErrWriteFailed, path, c.name(), err)
	}
	f.logger.Debug("tags written",
		logging.String(logging.FieldPath, path),
		logging.String("format", c.name()),
		logging.Int("fields", len(patch)),
	)
	return nil
}
