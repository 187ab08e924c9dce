package testsupport

import (
	"fmt"
	"os"
	"sync"

	"tunesweep/internal/tags"
)

// TagStore is an in-memory tags.Store keyed by file contents, so tags follow
// a file through renames and moves on disk.
type TagStore struct {
	mu     sync.Mutex
	text   map[string]tags.Text
	attrs  map[string]tags.Attributes
	failed map[string]bool
	writes int
}

// NewTagStore returns an empty store.
func NewTagStore() *TagStore {
	return &TagStore{
		text:   make(map[string]tags.Text),
		attrs:  make(map[string]tags.Attributes),
		failed: make(map[string]bool),
	}
}

// SetAlbum registers album and year for the file whose contents are id.
func (s *TagStore) SetAlbum(id, album, year string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs[id] = tags.Attributes{Album: album, Year: year}
}

// SetText registers text fields for the file whose contents are id.
func (s *TagStore) SetText(id string, text tags.Text) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text[id] = copyText(text)
	if album, ok := text[tags.FieldAlbum]; ok {
		attrs := s.attrs[id]
		attrs.Album = album
		s.attrs[id] = attrs
	}
}

// FailWrites makes every write to id fail.
func (s *TagStore) FailWrites(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed[id] = true
}

// Text returns the current text fields of id.
func (s *TagStore) Text(id string) tags.Text {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyText(s.text[id])
}

// Writes counts successful writes.
func (s *TagStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *TagStore) ReadAttributes(path string) (tags.Attributes, error) {
	id, err := identify(path)
	if err != nil {
		return tags.Unknown(), fmt.Errorf("%w: %v", tags.ErrUnreadableAttributes, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	attrs, ok := s.attrs[id]
	if !ok {
		return tags.Unknown(), fmt.Errorf("%w: %s has no tags", tags.ErrUnreadableAttributes, path)
	}
	if attrs.Album == "" {
		attrs.Album = tags.Unknown().Album
	}
	return attrs, nil
}

func (s *TagStore) ReadText(path string) (tags.Text, error) {
	id, err := identify(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tags.ErrUnreadableAttributes, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyText(s.text[id]), nil
}

func (s *TagStore) WriteText(path string, patch tags.Text) error {
	id, err := identify(path)
	if err != nil {
		return fmt.Errorf("%w: %v", tags.ErrWriteFailed, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed[id] {
		return fmt.Errorf("%w: %s is read-only", tags.ErrWriteFailed, path)
	}
	text := s.text[id]
	if text == nil {
		text = make(tags.Text)
		s.text[id] = text
	}
	for field, value := range patch {
		text[field] = value
		if field == tags.FieldAlbum {
			attrs := s.attrs[id]
			attrs.Album = value
			s.attrs[id] = attrs
		}
	}
	s.writes++
	return nil
}

func identify(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func copyText(text tags.Text) tags.Text {
	out := make(tags.Text, len(text))
	for field, value := range text {
		out[field] = value
	}
	return out
}
