package tags

import "sync"

// Overlay records tag writes in memory instead of touching files. Reads are
// served from the base store and patched with what was written, keyed by
// the backing file so simulated renames keep their tags.
type Overlay struct {
	base    Store
	backing func(string) string

	mu      sync.Mutex
	patches map[string]Text
}

// NewOverlay wraps base. backing maps a simulated path to the file holding
// its bytes; nil means paths are used as-is.
func NewOverlay(base Store, backing func(string) string) *Overlay {
	if backing == nil {
		backing = func(p string) string { return p }
	}
	return &Overlay{base: base, backing: backing, patches: make(map[string]Text)}
}

// ReadAttributes reads through to the backing file, honouring a simulated
// album rewrite.
func (o *Overlay) ReadAttributes(path string) (Attributes, error) {
	file := o.backing(path)
	attrs, err := o.base.ReadAttributes(file)
	o.mu.Lock()
	defer o.mu.Unlock()
	if value, ok := o.patches[file][FieldAlbum]; ok {
		attrs.Album = value
		if attrs.Album == "" {
			attrs.Album = Unknown().Album
		}
	}
	return attrs, err
}

// ReadText returns the backing file's text with simulated writes applied.
func (o *Overlay) ReadText(path string) (Text, error) {
	file := o.backing(path)
	text, err := o.base.ReadText(file)
	if err != nil {
		return nil, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	merged := make(Text, len(text))
	for field, value := range text {
		merged[field] = value
	}
	for field, value := range o.patches[file] {
		merged[field] = value
	}
	return merged, nil
}

// WriteText records patch without writing.
func (o *Overlay) WriteText(path string, patch Text) error {
	file := o.backing(path)
	o.mu.Lock()
	defer o.mu.Unlock()
	existing := o.patches[file]
	if existing == nil {
		existing = make(Text, len(patch))
		o.patches[file] = existing
	}
	for field, value := range patch {
		existing[field] = value
	}
	return nil
}
