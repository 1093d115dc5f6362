package vfs

import (
	"errors"
	"fmt"
	"io"
	"os"

	"tinygo.org/x/tinyfs"
	"tinygo.org/x/tinyfs/littlefs"
)

// Device is the raw storage a filesystem is mounted from: a tinyfs block device that also speaks
// the block protocol used to inspect its first sector.
type Device interface {
	tinyfs.BlockDevice
	Ioctl(op, arg int) (int, error)
	ReadBlocks(block uint32, buf []byte) error
}

type File interface {
	io.ReadWriteCloser
}

// Filesystem is a filesystem image on a Device. Format writes a fresh image; Mount opens the
// existing one, failing with an error wrapping ErrNotRecognized when there is none.
type Filesystem interface {
	Format() error
	Mount() error
	Unmount() error
	OpenFile(path string, flags int) (File, error)
	ReadDir(path string) ([]os.FileInfo, error)
}

// NewFilesystemFunc binds a filesystem implementation to a device. It must not touch the device.
type NewFilesystemFunc func(dev tinyfs.BlockDevice) Filesystem

// littlefs error codes (lfs.h) that mean the blocks hold no valid superblock.
const (
	lfsErrCorrupt = -84
	lfsErrInval   = -22
)

// littlefs tuning, sized for 4 KiB erase blocks.
const (
	lfsCacheSize     = 512
	lfsLookaheadSize = 512
	lfsBlockCycles   = 100
)

type littleFS struct {
	*littlefs.LFS
}

// Littlefs is the default NewFilesystemFunc.
func Littlefs(dev tinyfs.BlockDevice) Filesystem {
	lfs := littlefs.New(dev)
	lfs.Configure(&littlefs.Config{
		CacheSize:     lfsCacheSize,
		LookaheadSize: lfsLookaheadSize,
		BlockCycles:   lfsBlockCycles,
	})
	return littleFS{LFS: lfs}
}

// Mount wraps the errors littlefs reports for a missing or unreadable superblock in
// ErrNotRecognized. Device I/O failures pass through unchanged.
func (l littleFS) Mount() error {
	return classifyLittlefs(l.LFS.Mount())
}

func classifyLittlefs(err error) error {
	var lerr littlefs.Error
	if errors.As(err, &lerr) {
		switch int(lerr) {
		case lfsErrCorrupt, lfsErrInval:
			return fmt.Errorf("%w: %v", ErrNotRecognized, err)
		}
	}
	return err
}

func (l littleFS) OpenFile(path string, flags int) (File, error) {
	return l.LFS.OpenFile(path, flags)
}

func (l littleFS) ReadDir(path string) ([]os.FileInfo, error) {
	dir, err := l.LFS.Open(path)
	if err != nil {
		return nil, err
	}
	defer dir.Close()
	return dir.Readdir(0)
}
