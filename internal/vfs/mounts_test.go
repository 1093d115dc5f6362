package vfs

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func formatted() *fakeFS {
	return &fakeFS{formatted: true, files: make(map[string][]byte)}
}

func TestMountsMountOnce(t *testing.T) {
	m := NewMounts()
	require.NoError(t, m.Mount(formatted(), "/"))
	assert.ErrorIs(t, m.Mount(formatted(), "/"), ErrAlreadyMounted)
	assert.Equal(t, []string{"/"}, m.MountPoints())
}

func TestMountsMountFailureLeavesNothing(t *testing.T) {
	m := NewMounts()
	assert.ErrorIs(t, m.Mount(&fakeFS{}, "/"), errNotRecognized)
	_, ok := m.Root()
	assert.False(t, ok)
}

func TestMountsResolve(t *testing.T) {
	root, sd := formatted(), formatted()
	m := NewMounts()
	require.NoError(t, m.Mount(root, "/"))
	require.NoError(t, m.Mount(sd, "/sd"))

	fs, rel, err := m.Resolve("/boot.py")
	require.NoError(t, err)
	assert.Same(t, root, fs)
	assert.Equal(t, "/boot.py", rel)

	fs, rel, err = m.Resolve("/sd/data/log.txt")
	require.NoError(t, err)
	assert.Same(t, sd, fs)
	assert.Equal(t, "/data/log.txt", rel)

	fs, rel, err = m.Resolve("/sdcard")
	require.NoError(t, err)
	assert.Same(t, root, fs)
	assert.Equal(t, "/sdcard", rel)

	fs, rel, err = m.Resolve("/sd")
	require.NoError(t, err)
	assert.Same(t, sd, fs)
	assert.Equal(t, "/", rel)
}

func TestMountsResolveEmpty(t *testing.T) {
	_, err := NewMounts().OpenFile("/boot.py", os.O_RDONLY)
	assert.ErrorIs(t, err, ErrNotMounted)
}

func TestMountsUnmount(t *testing.T) {
	fs := formatted()
	m := NewMounts()
	require.NoError(t, m.Mount(fs, "/"))
	require.NoError(t, m.Unmount("/"))
	assert.False(t, fs.mounted)
	assert.ErrorIs(t, m.Unmount("/"), ErrNotMounted)
}
