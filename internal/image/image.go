// Package image exposes a flash dump stored in a file as a block device, so the boot sequence can
// be run against it on a host.
package image

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/afero"
	"tinygo.org/x/tinyfs"
)

const (
	DefaultEraseBlockSize = 4096
	DefaultWriteBlockSize = 256
)

var ErrOutOfRange = errors.New("image: access out of range")

// assert that Device implements the tinyfs block device interface
var _ tinyfs.BlockDevice = (*Device)(nil)

// Device is a NOR flash image. Erased bytes read back as 0xFF.
type Device struct {
	file       afero.File
	size       int64
	eraseBlock int64
}

// Create makes a new, fully erased image of size bytes at path, replacing any existing file.
func Create(fs afero.Fs, path string, size, eraseBlock int64) (*Device, error) {
	if eraseBlock <= 0 || size <= 0 || size%eraseBlock != 0 {
		return nil, fmt.Errorf("image: size %d is not a multiple of erase block %d", size, eraseBlock)
	}
	f, err := fs.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	d := &Device{file: f, size: size, eraseBlock: eraseBlock}
	if err := d.EraseBlocks(0, size/eraseBlock); err != nil {
		_ = f.Close()
		return nil, err
	}
	return d, nil
}

// Open opens an existing image. Its size must be a whole number of erase blocks.
func Open(fs afero.Fs, path string, eraseBlock int64) (*Device, error) {
	if eraseBlock <= 0 {
		return nil, fmt.Errorf("image: invalid erase block %d", eraseBlock)
	}
	f, err := fs.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to stat: %w", err)
	}
	if info.Size() == 0 || info.Size()%eraseBlock != 0 {
		_ = f.Close()
		return nil, fmt.Errorf("image: %s size %d is not a multiple of erase block %d", path, info.Size(), eraseBlock)
	}
	return &Device{file: f, size: info.Size(), eraseBlock: eraseBlock}, nil
}

func (d *Device) check(off int64, n int) error {
	if d.file == nil {
		return fmt.Errorf("image is not open")
	}
	if off < 0 || off+int64(n) > d.size {
		return fmt.Errorf("%w: %d bytes at %#x", ErrOutOfRange, n, off)
	}
	return nil
}

func (d *Device) ReadAt(buf []byte, off int64) (int, error) {
	if err := d.check(off, len(buf)); err != nil {
		return 0, err
	}
	n, err := d.file.ReadAt(buf, off)
	if n != len(buf) {
		return n, fmt.Errorf("short read: expected %d bytes, got %d: %v", len(buf), n, err)
	}
	return n, nil
}

func (d *Device) WriteAt(buf []byte, off int64) (int, error) {
	if err := d.check(off, len(buf)); err != nil {
		return 0, err
	}
	n, err := d.file.WriteAt(buf, off)
	if err != nil {
		return n, fmt.Errorf("failed to write: %w", err)
	}
	return n, nil
}

func (d *Device) Size() int64 {
	return d.size
}

func (d *Device) WriteBlockSize() int64 {
	return DefaultWriteBlockSize
}

func (d *Device) EraseBlockSize() int64 {
	return d.eraseBlock
}

// EraseBlocks sets len blocks starting at start back to 0xFF.
func (d *Device) EraseBlocks(start, len int64) error {
	if err := d.check(start*d.eraseBlock, int(len*d.eraseBlock)); err != nil {
		return err
	}
	blank := bytes.Repeat([]byte{0xFF}, int(d.eraseBlock))
	for i := start; i < start+len; i++ {
		if _, err := d.file.WriteAt(blank, i*d.eraseBlock); err != nil {
			return fmt.Errorf("failed to erase block %d: %w", i, err)
		}
	}
	return nil
}

func (d *Device) Sync() error {
	if d.file == nil {
		return nil
	}
	return d.file.Sync()
}

// Close should be called when you're done with the Device.
func (d *Device) Close() error {
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}
