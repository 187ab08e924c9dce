package naming

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// MaxSuffix caps the counter probed by Resolve.
const MaxSuffix = 10000

// ErrNoFreeName is returned when every candidate up to MaxSuffix is taken.
var ErrNoFreeName = errors.New("no free name")

// Namespace answers whether a leaf name is taken inside a container.
type Namespace interface {
	Exists(container, name string) bool
}

// ExistsFunc adapts a plain function to Namespace.
type ExistsFunc func(container, name string) bool

// Exists implements Namespace.
func (f ExistsFunc) Exists(container, name string) bool { return f(container, name) }

// Resolve returns desired when it is free in container or already belongs
// to the item (self is the item's current leaf in that container; pass ""
// when the item lives elsewhere). Otherwise it probes "stem (1)ext",
// "stem (2)ext", ... and returns the first free candidate.
func Resolve(ns Namespace, container, desired, self string) (string, error) {
	if desired == self || !ns.Exists(container, desired) {
		return desired, nil
	}

	ext := filepath.Ext(desired)
	stem := strings.TrimSuffix(desired, ext)
	for n := 1; n <= MaxSuffix; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, n, ext)
		if candidate == self || !ns.Exists(container, candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w for %q in %s", ErrNoFreeName, desired, container)
}
