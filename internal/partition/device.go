package partition

import (
	"fmt"

	"tinygo.org/x/tinyfs"
)

var _ tinyfs.BlockDevice = (*Partition)(nil)

// Partition is a window onto the parent block device. It is itself a block device, so a
// filesystem can be mounted on it directly.
type Partition struct {
	dev   tinyfs.BlockDevice
	entry Entry
}

func (p *Partition) Type() Type    { return p.entry.Type }
func (p *Partition) Label() string { return p.entry.Label }
func (p *Partition) Offset() int64 { return p.entry.Offset }

func (p *Partition) String() string {
	return fmt.Sprintf("%s/%s@%#x", p.entry.Type, p.entry.Label, p.entry.Offset)
}

func (p *Partition) check(off int64, n int) error {
	if off < 0 || off+int64(n) > p.entry.Size {
		return fmt.Errorf("%w: %d bytes at %#x in %s", ErrOutOfRange, n, off, p)
	}
	return nil
}

func (p *Partition) ReadAt(buf []byte, off int64) (int, error) {
	if err := p.check(off, len(buf)); err != nil {
		return 0, err
	}
	return p.dev.ReadAt(buf, p.entry.Offset+off)
}

func (p *Partition) WriteAt(buf []byte, off int64) (int, error) {
	if err := p.check(off, len(buf)); err != nil {
		return 0, err
	}
	return p.dev.WriteAt(buf, p.entry.Offset+off)
}

func (p *Partition) Size() int64 {
	return p.entry.Size
}

func (p *Partition) WriteBlockSize() int64 {
	return p.dev.WriteBlockSize()
}

func (p *Partition) EraseBlockSize() int64 {
	return p.dev.EraseBlockSize()
}

// EraseBlocks erases len blocks starting at block start, relative to the partition.
func (p *Partition) EraseBlocks(start, len int64) error {
	ebs := p.dev.EraseBlockSize()
	if start < 0 || len < 0 || (start+len)*ebs > p.entry.Size {
		return fmt.Errorf("%w: erase %d blocks at %d in %s", ErrOutOfRange, len, start, p)
	}
	return p.dev.EraseBlocks(p.entry.Offset/ebs+start, len)
}

// Ioctl implements the block protocol control operations.
func (p *Partition) Ioctl(op, arg int) (int, error) {
	switch op {
	case IoctlInit, IoctlDeinit, IoctlSync:
		return 0, nil
	case IoctlBlockCount:
		return int(p.entry.Size / p.dev.EraseBlockSize()), nil
	case IoctlBlockSize:
		return int(p.dev.EraseBlockSize()), nil
	case IoctlBlockErase:
		if err := p.EraseBlocks(int64(arg), 1); err != nil {
			return 0, err
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedIoctl, op)
	}
}

// ReadBlocks fills buf starting at the given erase block.
func (p *Partition) ReadBlocks(block uint32, buf []byte) error {
	n, err := p.ReadAt(buf, int64(block)*p.dev.EraseBlockSize())
	if err != nil {
		return err
	}
	if n != len(buf) {
		return fmt.Errorf("%w: expected %d bytes, got %d", ErrShortRead, len(buf), n)
	}
	return nil
}
