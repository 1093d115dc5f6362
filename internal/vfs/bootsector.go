package vfs

import (
	"fmt"

	"github.com/ajanata/vfsboot/internal/partition"
)

// erased is the value of every byte of erased NOR flash.
const erased = 0xFF

type State uint8

const (
	Unknown State = iota
	Mounted
	NeedsInit
	Corrupted
)

func (s State) String() string {
	switch s {
	case Mounted:
		return "mounted"
	case NeedsInit:
		return "needs init"
	case Corrupted:
		return "corrupted"
	default:
		return "unknown"
	}
}

// CheckBootSector reads the first sector of dev. Fully erased means the device was never
// formatted; anything else means a filesystem was there and can no longer be read. Only the
// first sector is looked at.
func (b *Bootstrapper) CheckBootSector(dev Device) (State, error) {
	size, err := dev.Ioctl(partition.IoctlBlockSize, 0)
	if err != nil {
		return Unknown, fmt.Errorf("query sector size: %w", err)
	}
	if size <= 0 {
		return Unknown, fmt.Errorf("invalid sector size %d", size)
	}

	buf := make([]byte, size)
	if err := dev.ReadBlocks(0, buf); err != nil {
		return Unknown, fmt.Errorf("read boot sector: %w", err)
	}
	for _, v := range buf {
		if v != erased {
			b.println("Boot sector is not blank.")
			return Corrupted, nil
		}
	}
	b.println("Boot sector is blank.")
	return NeedsInit, nil
}
