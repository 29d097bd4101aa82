package bench

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dfHeader = "Filesystem     1K-blocks    Used Available Use% Mounted on\n"

func TestReadUsage(t *testing.T) {
	tests := []struct {
		input string
		mount string
		want  float64
	}{
		{dfHeader + "/dev/loop0 10 2000000 8 20% /mnt\n", "/dev/loop0", 2000000},
		{dfHeader + "/dev/sda1 10 5 5 50% /\n/dev/loop0 10 7 3 70% /mnt\n", "/dev/loop0", 7},
		// several samples are averaged
		{"/dev/loop0 10 100\n/dev/loop0 10 300\n", "/dev/loop0", 200},
		// prefix of another device does not match
		{"/dev/loop01 10 1\n/dev/loop0 10 2\n", "/dev/loop0", 2},
	}
	for _, test := range tests {
		got, err := ReadUsage(strings.NewReader(test.input), test.mount)
		require.NoError(t, err, test.input)
		assert.Equal(t, test.want, got, test.input)
	}
}

func TestReadUsageErrors(t *testing.T) {
	_, err := ReadUsage(strings.NewReader(dfHeader+"/dev/sda1 10 5\n"), "/dev/loop0")
	assert.Error(t, err)
	_, err = ReadUsage(strings.NewReader("/dev/loop0 10 lots\n"), "/dev/loop0")
	assert.Error(t, err)
}

func TestDiffUsage(t *testing.T) {
	cfg := testConfig(t)
	test := bonnieDfTests[0]
	for _, fs := range []FileSystem{Btrfs, Nilfs} {
		writeFile(t, filepath.Join(cfg.fsDir(fs), test.Before), "/dev/loop0 10 2000000\n")
		writeFile(t, filepath.Join(cfg.fsDir(fs), test.After), "/dev/loop0 10 3000000\n")
	}
	// copyfs has no after snapshot
	writeFile(t, filepath.Join(cfg.fsDir(CopyFS), test.Before), "/dev/sda1 10 1\n")

	var logbuf bytes.Buffer
	deltas := DiffUsage(cfg, zerolog.New(&logbuf), test, []FileSystem{NilfsDedup})
	require.Len(t, deltas, 2)
	assert.Equal(t, Btrfs, deltas[0].FileSystem)
	assert.Equal(t, 1.0, deltas[0].GB())
	assert.Equal(t, Nilfs, deltas[1].FileSystem)
	assert.Contains(t, logbuf.String(), "Cannot read df file")
	assert.Contains(t, logbuf.String(), `"fs":"copyfs"`)
}

func TestFioDfTest(t *testing.T) {
	dt := fioDfTest("random_read_test", "read")
	assert.Equal(t, "out/fio/df_before_fio_random_read_test.txt", dt.Before)
	assert.Equal(t, "out/fio/df_after_fio_random_read_test.txt", dt.After)
	assert.Equal(t, "fio_random_read_metadata_size", dt.Name)
}
