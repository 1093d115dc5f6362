// vfsimage runs the board's filesystem bootstrap against a flash image on the host, and lists
// what ends up in the root directory.
package main

import (
	"fmt"
	"os"

	log "github.com/fclairamb/go-log"
	logrus "github.com/fclairamb/go-log/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/ajanata/vfsboot/internal/image"
	"github.com/ajanata/vfsboot/internal/partition"
	"github.com/ajanata/vfsboot/internal/vfs"
)

type logConsole struct {
	logger log.Logger
}

func (c logConsole) Println(s string) error {
	c.logger.Info(s)
	return nil
}

func newRootCmd(fs afero.Fs, logger log.Logger) *cobra.Command {
	opts := options{}
	root := &cobra.Command{
		Use:   "vfsimage",
		Short: "Run the board filesystem bootstrap against a flash image",
		Long: "Mount the vfs partition of a flash image the way the firmware does at boot, " +
			"initializing it when blank, and list its root directory.",
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(fs, logger, opts)
		},
	}

	flags := root.Flags()
	flags.StringVar(&opts.path, "image", "flash.img", "flash image file")
	flags.BoolVar(&opts.create, "create", false, "create a new erased image, replacing any existing file")
	flags.Int64Var(&opts.size, "size", 2<<20, "image size in bytes when creating")
	flags.Int64Var(&opts.offset, "offset", 1<<20, "byte offset of the filesystem partition")
	flags.StringVar(&opts.label, "label", vfs.DefaultLabel, "filesystem partition label")
	flags.Int64Var(&opts.eraseBlock, "erase-block", image.DefaultEraseBlockSize, "flash erase block size")
	flags.BoolVar(&opts.force, "force", false, "format the partition regardless of its contents")
	return root
}

func main() {
	logger := logrus.New()
	if err := newRootCmd(afero.NewOsFs(), logger).Execute(); err != nil {
		logger.Error("vfsimage failed", "err", err)
		os.Exit(1)
	}
}

type options struct {
	path       string
	create     bool
	size       int64
	offset     int64
	label      string
	eraseBlock int64
	force      bool
}

func run(fs afero.Fs, logger log.Logger, opts options) error {
	var dev *image.Device
	var err error
	if opts.create {
		dev, err = image.Create(fs, opts.path, opts.size, opts.eraseBlock)
	} else {
		dev, err = image.Open(fs, opts.path, opts.eraseBlock)
	}
	if err != nil {
		return err
	}
	defer dev.Close()

	table, err := partition.NewTable(dev, partition.Entry{
		Type:   partition.TypeData,
		Label:  opts.label,
		Offset: opts.offset,
		Size:   dev.Size() - opts.offset,
	})
	if err != nil {
		return err
	}

	for _, p := range table.Partitions() {
		logger.Info("partition", "label", p.Label(), "type", p.Type().String(), "offset", p.Offset(), "size", p.Size())
	}

	con := logConsole{logger: logger.With("image", opts.path)}
	b := vfs.New(vfs.Partitions(table))
	b.Label = opts.label
	b.Console = con
	// a host tool reports the corruption once instead of halting
	b.OnCorrupted = func() { _ = con.Println(vfs.CorruptedMessage) }

	var m *vfs.Mounts
	if opts.force {
		m, err = b.ForceFormat()
	} else {
		m, err = b.Bootstrap()
	}
	if err != nil {
		return err
	}

	root, ok := m.Root()
	if !ok {
		return fmt.Errorf("no root filesystem mounted")
	}
	defer m.Unmount("/")

	infos, err := root.ReadDir("/")
	if err != nil {
		return err
	}
	for _, fi := range infos {
		logger.Info("file", "name", fi.Name(), "size", fi.Size(), "dir", fi.IsDir())
	}
	return dev.Sync()
}
