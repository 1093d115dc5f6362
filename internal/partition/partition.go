// Package partition carves a raw flash block device into labeled partitions and locates them by
// type and label.
package partition

import (
	"errors"
	"fmt"
	"sort"

	"tinygo.org/x/tinyfs"
)

type Type uint8

const (
	TypeApp Type = iota
	TypeData
)

func (t Type) String() string {
	switch t {
	case TypeApp:
		return "app"
	case TypeData:
		return "data"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// Block protocol ioctl operations, numbered the way MicroPython block devices number them.
const (
	IoctlInit       = 1
	IoctlDeinit     = 2
	IoctlSync       = 3
	IoctlBlockCount = 4
	IoctlBlockSize  = 5
	IoctlBlockErase = 6
)

var (
	ErrOutOfRange       = errors.New("partition: access out of range")
	ErrUnsupportedIoctl = errors.New("partition: unsupported ioctl")
	ErrShortRead        = errors.New("partition: short read")
)

// Entry describes one partition. Offset and Size are in bytes and must be multiples of the
// device erase block size.
type Entry struct {
	Type   Type
	Label  string
	Offset int64
	Size   int64
}

// Table is a validated set of partitions on one device.
type Table struct {
	dev        tinyfs.BlockDevice
	partitions []*Partition
}

// NewTable validates entries against dev and builds the table.
func NewTable(dev tinyfs.BlockDevice, entries ...Entry) (*Table, error) {
	ebs := dev.EraseBlockSize()
	if ebs <= 0 {
		return nil, fmt.Errorf("partition: invalid erase block size %d", ebs)
	}

	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })

	t := &Table{dev: dev}
	seen := make(map[Type]map[string]bool)
	for i, e := range sorted {
		switch {
		case e.Size <= 0:
			return nil, fmt.Errorf("partition %q: size must be positive", e.Label)
		case e.Offset < 0 || e.Offset%ebs != 0 || e.Size%ebs != 0:
			return nil, fmt.Errorf("partition %q: offset %#x size %#x not aligned to erase block %#x",
				e.Label, e.Offset, e.Size, ebs)
		case e.Offset+e.Size > dev.Size():
			return nil, fmt.Errorf("partition %q: ends at %#x beyond device size %#x",
				e.Label, e.Offset+e.Size, dev.Size())
		}
		if i > 0 {
			prev := sorted[i-1]
			if prev.Offset+prev.Size > e.Offset {
				return nil, fmt.Errorf("partition %q overlaps %q", e.Label, prev.Label)
			}
		}
		if seen[e.Type] == nil {
			seen[e.Type] = make(map[string]bool)
		}
		if seen[e.Type][e.Label] {
			return nil, fmt.Errorf("partition %q: duplicate %s label", e.Label, e.Type)
		}
		seen[e.Type][e.Label] = true
		t.partitions = append(t.partitions, &Partition{dev: dev, entry: e})
	}
	return t, nil
}

// Find returns the partitions of the given type whose label matches, in offset order. An empty
// label matches every partition of that type.
func (t *Table) Find(typ Type, label string) []*Partition {
	var found []*Partition
	for _, p := range t.partitions {
		if p.entry.Type == typ && (label == "" || p.entry.Label == label) {
			found = append(found, p)
		}
	}
	return found
}

// Partitions returns every partition in offset order.
func (t *Table) Partitions() []*Partition {
	return t.partitions
}
