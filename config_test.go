package bench

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	cfg, err := LoadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "./output", cfg.OutputDir)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "/dev/loop0", cfg.MountPoint(Btrfs))
	assert.Equal(t, "/dev/sda1", cfg.MountPoint(WaybackFS))
}

func TestLoadConfigOverrides(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("mount-copyfs", "/dev/vdb1")
	v.Set("workers", 8)
	cfg, err := LoadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "/dev/vdb1", cfg.MountPoint(CopyFS))
	assert.Equal(t, 8, cfg.Workers)

	v.Set("workers", 0)
	_, err = LoadConfig(v)
	assert.Error(t, err)
}

func TestReadBenchParams(t *testing.T) {
	file := writeFile(t, filepath.Join(t.TempDir(), "bench.conf"), `# benchmark parameters
SEED=1661
BLOCK_SIZE=4k
FILE_SIZE="4G"
RUN_COUNT=3
`)
	p, err := ReadBenchParams(file)
	require.NoError(t, err)
	assert.Equal(t, BenchParams{Seed: 1661, BlockSize: "4k", FileSize: "4G", RunCount: 3}, p)

	_, err = ReadBenchParams(filepath.Join(t.TempDir(), "missing.conf"))
	assert.Error(t, err)
}

func TestReadFioTests(t *testing.T) {
	file := writeFile(t, filepath.Join(t.TempDir(), "fio.ini"), `[global]
ioengine=libaio
direct=1

[random_write_test]
rw=randwrite
write_bw_log=random_write_test

[random_read_test]
rw=randread
write_bw_log=random_read_test
`)
	tests, err := ReadFioTests(file)
	require.NoError(t, err)
	assert.Equal(t, []string{"random_read_test", "random_write_test"}, tests)
}
