package main

import (
	"bytes"
	"testing"

	log "github.com/fclairamb/go-log"
	"github.com/fclairamb/go-log/noop"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajanata/vfsboot/internal/vfs"
)

func testOptions() options {
	return options{
		path:       "/flash.img",
		size:       64 * 4096,
		offset:     16 * 4096,
		label:      vfs.DefaultLabel,
		eraseBlock: 4096,
	}
}

func nopLogger() log.Logger {
	return noop.NewNoOpLogger()
}

func TestRunCreatesAndReuses(t *testing.T) {
	fs := afero.NewMemMapFs()
	opts := testOptions()
	opts.create = true
	require.NoError(t, run(fs, nopLogger(), opts))

	opts.create = false
	require.NoError(t, run(fs, nopLogger(), opts))
}

func TestRunRefusesCorrupted(t *testing.T) {
	fs := afero.NewMemMapFs()
	opts := testOptions()
	img := bytes.Repeat([]byte{0xFF}, int(opts.size))
	copy(img[opts.offset:], []byte("not a filesystem"))
	require.NoError(t, afero.WriteFile(fs, opts.path, img, 0o644))

	err := run(fs, nopLogger(), opts)
	assert.ErrorIs(t, err, vfs.ErrCorrupted)

	after, err := afero.ReadFile(fs, opts.path)
	require.NoError(t, err)
	assert.Equal(t, img, after)

	opts.force = true
	require.NoError(t, run(fs, nopLogger(), opts))
}

func TestRootCmdFlags(t *testing.T) {
	fs := afero.NewMemMapFs()
	args := []string{"--image", "/flash.img", "--size", "262144", "--offset", "65536", "--erase-block", "4096"}

	cmd := newRootCmd(fs, nopLogger())
	cmd.SetArgs(append(args, "--create"))
	require.NoError(t, cmd.Execute())

	info, err := fs.Stat("/flash.img")
	require.NoError(t, err)
	assert.Equal(t, int64(262144), info.Size())

	cmd = newRootCmd(fs, nopLogger())
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
}

func TestRootCmdCorruptedImage(t *testing.T) {
	fs := afero.NewMemMapFs()
	img := bytes.Repeat([]byte{0xFF}, 64*4096)
	copy(img[16*4096:], []byte("not a filesystem"))
	require.NoError(t, afero.WriteFile(fs, "/flash.img", img, 0o644))

	cmd := newRootCmd(fs, nopLogger())
	cmd.SetArgs([]string{"--image", "/flash.img", "--offset", "65536"})
	assert.ErrorIs(t, cmd.Execute(), vfs.ErrCorrupted)
}
