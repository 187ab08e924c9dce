package fsops

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
)

// Overlay layers simulated mutations over a read-only view of the disk.
// Every Rename, Move, CreateContainer and RemoveIfEmpty is recorded in
// memory, and later reads see the recorded state, so a dry run converges the
// same way an applied run would without touching storage.
type Overlay struct {
	base    *OS
	files   map[string]string   // virtual path -> backing path
	vacated map[string]struct{} // backing paths no longer at their original location
	dirs    map[string]struct{} // simulated containers
	removed map[string]struct{} // containers removed by the simulation
}

// NewOverlay returns an empty simulation over the disk.
func NewOverlay() *Overlay {
	return &Overlay{
		base:    NewOS(),
		files:   make(map[string]string),
		vacated: make(map[string]struct{}),
		dirs:    make(map[string]struct{}),
		removed: make(map[string]struct{}),
	}
}

// Exists reports whether dir/name is present in the simulated tree.
func (o *Overlay) Exists(dir, name string) bool {
	return o.exists(filepath.Join(dir, name))
}

func (o *Overlay) exists(path string) bool {
	if _, ok := o.files[path]; ok {
		return true
	}
	if _, ok := o.dirs[path]; ok {
		return true
	}
	if o.hidden(path) {
		return false
	}
	return o.base.Exists(filepath.Dir(path), filepath.Base(path))
}

// hidden reports whether path, or a container above it, was moved away or
// removed by the simulation.
func (o *Overlay) hidden(path string) bool {
	if _, ok := o.vacated[path]; ok {
		return true
	}
	for p := path; ; {
		if _, ok := o.removed[p]; ok {
			return true
		}
		parent := filepath.Dir(p)
		if parent == p {
			return false
		}
		p = parent
	}
}

// ReadDir merges the disk listing of dir with simulated entries.
func (o *Overlay) ReadDir(dir string) ([]Entry, error) {
	seen := make(map[string]struct{})
	var out []Entry

	_, simulated := o.dirs[dir]
	if o.hidden(dir) && !simulated {
		return nil, fmt.Errorf("read %s: %w", dir, fs.ErrNotExist)
	}
	listed, err := o.base.ReadDir(dir)
	if err != nil && !(simulated && errors.Is(err, fs.ErrNotExist)) {
		return nil, err
	}
	for _, entry := range listed {
		path := filepath.Join(dir, entry.Name)
		if o.hidden(path) {
			continue
		}
		if _, moved := o.files[path]; moved {
			continue
		}
		seen[entry.Name] = struct{}{}
		out = append(out, entry)
	}
	for path := range o.files {
		if filepath.Dir(path) != dir {
			continue
		}
		name := filepath.Base(path)
		seen[name] = struct{}{}
		out = append(out, Entry{Name: name})
	}
	for path := range o.dirs {
		if filepath.Dir(path) != dir {
			continue
		}
		name := filepath.Base(path)
		if _, ok := seen[name]; ok {
			continue
		}
		out = append(out, Entry{Name: name, IsDir: true})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Rename records a leaf rename.
func (o *Overlay) Rename(dir, from, to string) error {
	return o.Move(filepath.Join(dir, from), dir, to)
}

// Move records a relocation.
func (o *Overlay) Move(src, destDir, destName string) error {
	dst := filepath.Join(destDir, destName)
	if src == dst {
		return nil
	}
	if !o.exists(src) {
		return fmt.Errorf("move %s: %w", src, fs.ErrNotExist)
	}
	if o.exists(dst) {
		return fmt.Errorf("move %s: %w", dst, fs.ErrExist)
	}
	if !o.exists(destDir) {
		return fmt.Errorf("move into %s: %w", destDir, fs.ErrNotExist)
	}
	backing := o.Backing(src)
	if _, ok := o.files[src]; ok {
		delete(o.files, src)
	} else {
		o.vacated[src] = struct{}{}
	}
	o.files[dst] = backing
	return nil
}

// CreateContainer records a new container unless one is already visible.
func (o *Overlay) CreateContainer(parent, name string) (bool, error) {
	path := filepath.Join(parent, name)
	if o.exists(path) {
		return false, nil
	}
	o.dirs[path] = struct{}{}
	delete(o.removed, path)
	return true, nil
}

// RemoveIfEmpty records the removal of dir when its simulated listing is
// empty.
func (o *Overlay) RemoveIfEmpty(dir string) (bool, error) {
	entries, err := o.ReadDir(dir)
	if err != nil {
		return false, err
	}
	if len(entries) > 0 {
		return false, nil
	}
	delete(o.dirs, dir)
	o.removed[dir] = struct{}{}
	return true, nil
}

// Backing returns the disk file holding the bytes of a simulated path.
func (o *Overlay) Backing(path string) string {
	if backing, ok := o.files[path]; ok {
		return backing
	}
	return path
}
