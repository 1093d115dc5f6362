package vfs

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
)

var (
	ErrAlreadyMounted = errors.New("vfs: mount point already in use")
	ErrNotMounted     = errors.New("vfs: not mounted")
)

// Mounts is a filesystem namespace. Bootstrap returns one instead of mutating global state, so
// every boot (and every test) gets its own.
type Mounts struct {
	mounts map[string]Filesystem
}

func NewMounts() *Mounts {
	return &Mounts{mounts: make(map[string]Filesystem)}
}

func clean(p string) string {
	return path.Clean("/" + p)
}

// Mount opens the existing image of fs and attaches it at mountPoint.
func (m *Mounts) Mount(fs Filesystem, mountPoint string) error {
	mountPoint = clean(mountPoint)
	if _, ok := m.mounts[mountPoint]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyMounted, mountPoint)
	}
	if err := fs.Mount(); err != nil {
		return err
	}
	m.mounts[mountPoint] = fs
	return nil
}

func (m *Mounts) Unmount(mountPoint string) error {
	mountPoint = clean(mountPoint)
	fs, ok := m.mounts[mountPoint]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotMounted, mountPoint)
	}
	delete(m.mounts, mountPoint)
	return fs.Unmount()
}

// Root returns the filesystem mounted at "/", if any.
func (m *Mounts) Root() (Filesystem, bool) {
	fs, ok := m.mounts["/"]
	return fs, ok
}

// MountPoints lists the mount points in sorted order.
func (m *Mounts) MountPoints() []string {
	points := make([]string, 0, len(m.mounts))
	for p := range m.mounts {
		points = append(points, p)
	}
	sort.Strings(points)
	return points
}

// Resolve finds the filesystem holding name by longest mount point prefix and returns the path
// relative to that filesystem's root.
func (m *Mounts) Resolve(name string) (Filesystem, string, error) {
	name = clean(name)
	best := ""
	for p := range m.mounts {
		if p != "/" && name != p && !strings.HasPrefix(name, p+"/") {
			continue
		}
		if len(p) > len(best) {
			best = p
		}
	}
	if best == "" {
		return nil, "", fmt.Errorf("%w: %s", ErrNotMounted, name)
	}
	rel := path.Clean("/" + strings.TrimPrefix(name, best))
	return m.mounts[best], rel, nil
}

func (m *Mounts) OpenFile(name string, flags int) (File, error) {
	fs, rel, err := m.Resolve(name)
	if err != nil {
		return nil, err
	}
	return fs.OpenFile(rel, flags)
}
