// Package vfs mounts the root filesystem at boot, initializing it on first boot and refusing to
// touch a filesystem that looks corrupted.
package vfs

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ajanata/vfsboot/internal/console"
	"github.com/ajanata/vfsboot/internal/partition"
)

const (
	DefaultLabel        = "vfs"
	DefaultHaltInterval = 15 * time.Second

	BootScriptPath = "/boot.py"
	// BootScript is written on first-time setup. Both lines are comments; nothing runs by default.
	BootScript = "#import webrepl\n#webrepl.start()\n"

	CorruptedMessage = `The filesystem appears to be corrupted. If you had important data there, you
may want to make a flash snapshot to try to recover it. Otherwise, perform
factory reprogramming of the firmware (completely erase flash, followed
by firmware programming).`
)

var (
	ErrNoDevice  = errors.New("vfs: no filesystem partition")
	ErrCorrupted = errors.New("vfs: filesystem corrupted")

	// ErrNotRecognized wraps mount errors that mean the device holds no readable image.
	ErrNotRecognized = errors.New("vfs: filesystem not recognized")
)

func notRecognized(err error) bool {
	return errors.Is(err, ErrNotRecognized)
}

// Locator looks up block devices by partition type and label.
type Locator interface {
	Locate(typ partition.Type, label string) []Device
}

type LocatorFunc func(typ partition.Type, label string) []Device

func (f LocatorFunc) Locate(typ partition.Type, label string) []Device {
	return f(typ, label)
}

// Partitions locates devices in a partition table.
func Partitions(t *partition.Table) Locator {
	return LocatorFunc(func(typ partition.Type, label string) []Device {
		found := t.Find(typ, label)
		devs := make([]Device, len(found))
		for i, p := range found {
			devs[i] = p
		}
		return devs
	})
}

// Bootstrapper brings up the root filesystem. Use New; the zero value is not usable.
type Bootstrapper struct {
	Locator       Locator
	Label         string
	NewFilesystem NewFilesystemFunc
	Console       console.Console
	// Recoverable reports whether a mount error means the image was not recognized, in which
	// case the first sector decides between first-time setup and the corruption halt. Other
	// errors are returned from Bootstrap. Defaults to errors.Is(err, ErrNotRecognized).
	Recoverable  func(err error) bool
	HaltInterval time.Duration

	// OnCorrupted runs when the first sector shows a filesystem that no longer mounts. The
	// default is Halt, which never returns. If it does return, Bootstrap returns ErrCorrupted.
	OnCorrupted func()

	sleep func(time.Duration)
}

func New(loc Locator) *Bootstrapper {
	b := &Bootstrapper{
		Locator:       loc,
		Label:         DefaultLabel,
		NewFilesystem: Littlefs,
		Console:       console.Discard,
		Recoverable:   notRecognized,
		HaltInterval:  DefaultHaltInterval,
		sleep:         time.Sleep,
	}
	b.OnCorrupted = b.Halt
	return b
}

func (b *Bootstrapper) println(s string) {
	_ = b.Console.Println(s)
}

func (b *Bootstrapper) locate() Device {
	devs := b.Locator.Locate(partition.TypeData, b.Label)
	if len(devs) == 0 {
		return nil
	}
	return devs[0]
}

// Bootstrap mounts the root filesystem. With no partition it returns an empty namespace and no
// error. A blank device gets a fresh filesystem and boot script. A corrupted one never returns:
// the bootstrapper halts printing diagnostics.
func (b *Bootstrapper) Bootstrap() (*Mounts, error) {
	b.println("Locating " + b.Label + " partition...")
	dev := b.locate()
	if dev == nil {
		b.println("No " + b.Label + " partition, continuing without a filesystem.")
		return NewMounts(), nil
	}

	state, m, err := b.TryMount(dev)
	if err != nil {
		return nil, err
	}
	switch state {
	case Mounted:
		return m, nil
	case NeedsInit:
		return b.Setup(dev)
	default:
		b.OnCorrupted()
		return nil, ErrCorrupted
	}
}

// ForceFormat erases whatever is on the partition and sets up a fresh filesystem. It skips the
// corruption check, so only call it on an explicit factory reset request.
func (b *Bootstrapper) ForceFormat() (*Mounts, error) {
	dev := b.locate()
	if dev == nil {
		return nil, fmt.Errorf("%w: %q", ErrNoDevice, b.Label)
	}
	b.println("Factory reset requested.")
	return b.Setup(dev)
}

// TryMount attempts to mount the existing image on dev at "/". When the image is not recognized
// the first sector is checked, and the returned state says whether the device needs formatting
// or is corrupted.
func (b *Bootstrapper) TryMount(dev Device) (State, *Mounts, error) {
	b.println("Mounting filesystem...")
	m := NewMounts()
	err := m.Mount(b.NewFilesystem(dev), "/")
	if err == nil {
		b.println("Mount done.")
		return Mounted, m, nil
	}
	if !b.Recoverable(err) {
		return Unknown, nil, fmt.Errorf("mount %s: %w", b.Label, err)
	}
	b.println("Mount failed: " + err.Error())

	state, err := b.CheckBootSector(dev)
	if err != nil {
		return Unknown, nil, err
	}
	return state, nil, nil
}

// Setup formats dev, mounts it at "/" and writes the boot script.
func (b *Bootstrapper) Setup(dev Device) (*Mounts, error) {
	b.println("Performing initial setup...")
	fs := b.NewFilesystem(dev)

	b.println("Making file system...")
	if err := fs.Format(); err != nil {
		return nil, fmt.Errorf("format %s: %w", b.Label, err)
	}

	m := NewMounts()
	if err := m.Mount(fs, "/"); err != nil {
		return nil, fmt.Errorf("mount %s after format: %w", b.Label, err)
	}
	b.println("File system mounted.")

	b.println("Generating scripts...")
	if err := WriteBootScript(fs); err != nil {
		return nil, err
	}
	b.println("Initial setup done.")
	return m, nil
}

// WriteBootScript writes the default boot script to the root of fs.
func WriteBootScript(fs Filesystem) error {
	f, err := fs.OpenFile(BootScriptPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC)
	if err != nil {
		return fmt.Errorf("create %s: %w", BootScriptPath, err)
	}
	if _, err = f.Write([]byte(BootScript)); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", BootScriptPath, err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", BootScriptPath, err)
	}
	return nil
}

// Halt stops boot for good, repeating the corruption diagnostic every HaltInterval. Only a reset
// gets out of it.
func (b *Bootstrapper) Halt() {
	for {
		b.println(CorruptedMessage)
		b.sleep(b.HaltInterval)
	}
}
