//go:build tinygo

package main

import (
	"time"

	"tinygo.org/x/tinyfs"

	"github.com/ajanata/vfsboot/internal/console"
	"github.com/ajanata/vfsboot/internal/led"
	"github.com/ajanata/vfsboot/internal/partition"
	"github.com/ajanata/vfsboot/internal/vfs"
)

var (
	// board specific overrides go in a config.go init()
	partitionLabel = vfs.DefaultLabel
	haltInterval   = vfs.DefaultHaltInterval

	// the first MiB of flash is reserved for the firmware image
	vfsOffset int64 = 1 << 20

	// 0 means up to the end of the flash
	vfsSize int64
)

// boot mounts the root filesystem from the vfs partition of flash. LED1 is lit while the
// filesystem is being brought up and LED0 once a root filesystem is mounted.
func boot(leds led.Set, flash tinyfs.BlockDevice, con console.Console, factoryReset bool) (*vfs.Mounts, error) {
	size := vfsSize
	if size == 0 {
		size = flash.Size() - vfsOffset
	}
	table, err := partition.NewTable(flash, partition.Entry{
		Type:   partition.TypeData,
		Label:  partitionLabel,
		Offset: vfsOffset,
		Size:   size,
	})
	if err != nil {
		return nil, err
	}

	b := vfs.New(vfs.Partitions(table))
	b.Label = partitionLabel
	b.Console = con
	b.HaltInterval = haltInterval

	leds.LED1.On()
	var m *vfs.Mounts
	if factoryReset {
		m, err = b.ForceFormat()
	} else {
		m, err = b.Bootstrap()
	}
	leds.LED1.Off()
	if err != nil {
		return nil, err
	}
	if _, ok := m.Root(); ok {
		leds.LED0.On()
	}
	return m, nil
}

func earlyPanic(leds led.Set, err error) {
	leds.Off()
	for i := 0; ; i++ {
		leds.LED2.Toggle()
		time.Sleep(100 * time.Millisecond)
		if i%10 == 0 {
			println(err.Error())
		}
	}
}
