package ledger

// PathIndex is the run's override map. It traces a current path back to the
// original path the ledger is keyed by.
type PathIndex struct {
	original map[string]string
}

// NewPathIndex returns an empty index.
func NewPathIndex() *PathIndex {
	return &PathIndex{original: make(map[string]string)}
}

// Record notes that the item at from is now at to.
func (p *PathIndex) Record(from, to string) {
	if from == to {
		return
	}
	origin := p.Original(from)
	delete(p.original, from)
	if to != origin {
		p.original[to] = origin
	}
}

// Original maps a current path back to the path the item started at.
func (p *PathIndex) Original(path string) string {
	if origin, ok := p.original[path]; ok {
		return origin
	}
	return path
}
