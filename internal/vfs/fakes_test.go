package vfs

import (
	"bytes"
	"fmt"
	"os"

	"tinygo.org/x/tinyfs"

	"github.com/ajanata/vfsboot/internal/partition"
)

const fakeSectorSize = 4096

type fakeDevice struct {
	data       []byte
	ioctls     int
	readBlocks int
	readErr    error
}

func newFakeDevice(fill byte, sectors int) *fakeDevice {
	return &fakeDevice{data: bytes.Repeat([]byte{fill}, sectors*fakeSectorSize)}
}

func (d *fakeDevice) ReadAt(buf []byte, off int64) (int, error) {
	return copy(buf, d.data[off:]), nil
}

func (d *fakeDevice) WriteAt(buf []byte, off int64) (int, error) {
	return copy(d.data[off:], buf), nil
}

func (d *fakeDevice) Size() int64           { return int64(len(d.data)) }
func (d *fakeDevice) WriteBlockSize() int64 { return 256 }
func (d *fakeDevice) EraseBlockSize() int64 { return fakeSectorSize }

func (d *fakeDevice) EraseBlocks(start, len int64) error {
	for i := start * fakeSectorSize; i < (start+len)*fakeSectorSize; i++ {
		d.data[i] = 0xFF
	}
	return nil
}

func (d *fakeDevice) Ioctl(op, arg int) (int, error) {
	d.ioctls++
	if op == partition.IoctlBlockSize {
		return fakeSectorSize, nil
	}
	return 0, nil
}

func (d *fakeDevice) ReadBlocks(block uint32, buf []byte) error {
	d.readBlocks++
	if d.readErr != nil {
		return d.readErr
	}
	copy(buf, d.data[int(block)*fakeSectorSize:])
	return nil
}

type fakeFile struct {
	bytes.Buffer
	fs   *fakeFS
	path string
}

func (f *fakeFile) Close() error {
	f.fs.files[f.path] = f.Bytes()
	return nil
}

// fakeFS keeps files in memory. Mount succeeds once formatted, or when
// mountErr is nil and formatted was preset.
type fakeFS struct {
	dev       tinyfs.BlockDevice
	formatted bool
	mounted   bool
	mountErr  error
	formats   int
	mounts    int
	files     map[string][]byte
}

var errNotRecognized = fmt.Errorf("fake: no superblock: %w", ErrNotRecognized)

func (fs *fakeFS) Format() error {
	fs.formats++
	fs.formatted = true
	fs.mountErr = nil
	fs.files = make(map[string][]byte)
	return nil
}

func (fs *fakeFS) Mount() error {
	fs.mounts++
	if fs.mountErr != nil {
		return fs.mountErr
	}
	if !fs.formatted {
		return errNotRecognized
	}
	fs.mounted = true
	return nil
}

func (fs *fakeFS) Unmount() error {
	fs.mounted = false
	return nil
}

func (fs *fakeFS) OpenFile(path string, flags int) (File, error) {
	if fs.files == nil {
		fs.files = make(map[string][]byte)
	}
	return &fakeFile{fs: fs, path: path}, nil
}

func (fs *fakeFS) ReadDir(path string) ([]os.FileInfo, error) {
	return nil, nil
}

// fakeDriver hands out one fakeFS per device, so state survives the
// format-then-mount sequence the way an on-flash image does.
type fakeDriver struct {
	byDev  map[tinyfs.BlockDevice]*fakeFS
	preset func(*fakeFS)
}

func newFakeDriver(preset func(*fakeFS)) *fakeDriver {
	return &fakeDriver{byDev: make(map[tinyfs.BlockDevice]*fakeFS), preset: preset}
}

func (d *fakeDriver) New(dev tinyfs.BlockDevice) Filesystem {
	fs, ok := d.byDev[dev]
	if !ok {
		fs = &fakeFS{dev: dev}
		if d.preset != nil {
			d.preset(fs)
		}
		d.byDev[dev] = fs
	}
	return fs
}

type recorder struct {
	lines []string
}

func (r *recorder) Println(s string) error {
	r.lines = append(r.lines, s)
	return nil
}

func single(dev Device) Locator {
	return LocatorFunc(func(partition.Type, string) []Device {
		if dev == nil {
			return nil
		}
		return []Device{dev}
	})
}
