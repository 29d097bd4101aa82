package bench

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/fsdedup/fsbench/chart"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDedupFilename(t *testing.T) {
	tests := []struct {
		name string
		want DedupFile
	}{
		{"df_before_deduplication_dedup_16M.txt", DedupFile{Phase: PhaseBefore, Tool: "dedup", Size: "16M"}},
		{"after_deduplication_duperemove_512K.txt", DedupFile{Phase: PhaseAfter, Tool: "duperemove", Size: "512K"}},
		{"df_after_deduplication_my_tool_1G.log", DedupFile{Phase: PhaseAfter, Tool: "my_tool", Size: "1G"}},
	}
	for _, test := range tests {
		got, err := ParseDedupFilename(test.name)
		require.NoError(t, err, test.name)
		test.want.Path = test.name
		assert.Equal(t, test.want, got, test.name)
	}
}

func TestParseDedupFilenameInvalid(t *testing.T) {
	for _, name := range []string{
		"df_during_deduplication_dedup_16M.txt",
		"df_before_deduplication_dedup_huge.txt",
		"df_before_bonnie.txt",
		"before_deduplication_16M.txt",
	} {
		_, err := ParseDedupFilename(name)
		assert.Error(t, err, name)
	}
}

func TestComputeDedup(t *testing.T) {
	files := []DedupFile{
		{Phase: PhaseAfter, Size: "16M", Used: 250000},
		{Phase: PhaseBefore, Size: "16M", Used: 1000000},
		{Phase: PhaseBefore, Size: "2M", Used: 4000},
		{Phase: PhaseAfter, Size: "2M", Used: 2000},
		{Phase: PhaseBefore, Size: "512K", Used: 100},
	}
	var logbuf bytes.Buffer
	res := ComputeDedup(files, zerolog.New(&logbuf))
	require.Len(t, res, 3)

	// ordered by size
	assert.Equal(t, "512K", res[0].Size)
	assert.Equal(t, "2M", res[1].Size)
	assert.Equal(t, "16M", res[2].Size)

	assert.False(t, res[0].OK)
	assert.Zero(t, res[0].Ratio)
	assert.Equal(t, 0.5, res[0].ExpectedMB)
	assert.Contains(t, logbuf.String(), "Need exactly one before and one after df file")

	r := res[2]
	assert.True(t, r.OK)
	assert.Equal(t, 4.0, r.Ratio)
	assert.Equal(t, 0.75, r.Reduction)
	assert.Equal(t, 750.0, r.ReclaimedMB)
	assert.Equal(t, 16.0, r.ExpectedMB)
}

func TestComputeDedupZeroAfter(t *testing.T) {
	var logbuf bytes.Buffer
	res := ComputeDedup([]DedupFile{
		{Phase: PhaseBefore, Size: "1M", Used: 10},
		{Phase: PhaseAfter, Size: "1M", Used: 0},
	}, zerolog.New(&logbuf))
	require.Len(t, res, 1)
	assert.False(t, res[0].OK)
	assert.Contains(t, logbuf.String(), "Zero space used after deduplication")
}

func TestDedupExtractorFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "df_before_deduplication_dduper_16M.txt"), dfHeader+"/dev/loop0 10 1000000\n")
	writeFile(t, filepath.Join(dir, "df_after_deduplication_dduper_16M.txt"), dfHeader+"/dev/loop0 10 250000\n")
	writeFile(t, filepath.Join(dir, "df_before_deduplication_duperemove_16M.txt"), dfHeader+"/dev/loop0 10 1\n")
	writeFile(t, filepath.Join(dir, "time_dduper.csv"), "size,user,sys,max_memory_kb\n")

	e := DedupExtractor{FileSystem: Btrfs, Tool: "dduper", Prefix: "dduper", Title: "Dduper"}
	files, err := e.Files(dir, "/dev/loop0")
	require.NoError(t, err)
	require.Len(t, files, 2)
	for _, f := range files {
		assert.Equal(t, "dduper", f.Tool)
	}

	writeFile(t, filepath.Join(dir, "df_sideways_deduplication_dduper_16M.txt"), "")
	_, err = e.Files(dir, "/dev/loop0")
	assert.Error(t, err)
}

func TestDedupExtractorCharts(t *testing.T) {
	e := dedupExtractors[0]
	res := []DedupResult{{Size: "16M", Ratio: 4, Reduction: 0.75, ReclaimedMB: 750, ExpectedMB: 16, OK: true}}
	charts := e.Charts(res)
	require.Len(t, charts, 4)
	assert.Equal(t, "dedup/nilfs_dedup_dedup_ratio", charts[0].Key())
	assert.Equal(t, chart.Percent, charts[0].Mode)
	assert.Equal(t, chart.Percent, charts[1].Mode)
	assert.Equal(t, chart.Linear, charts[2].Mode)
	assert.Len(t, charts[3].Series, 2)

	table := e.Table(append(res, DedupResult{Size: "32M", ExpectedMB: 32}))
	assert.Equal(t, []string{"16M", "4.00", "75.0", "750.0", "16.0"}, table.Rows[0])
	assert.Equal(t, []string{"32M", "-", "-", "-", "32.0"}, table.Rows[1])
}

func TestDedupExtractorIgnoresOtherToolsNames(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "df_before_deduplication_duperemove_16M.txt"), dfHeader+"/dev/loop0 10 1000000\n")
	writeFile(t, filepath.Join(dir, "df_after_deduplication_duperemove_16M.txt"), dfHeader+"/dev/loop0 10 500000\n")
	writeFile(t, filepath.Join(dir, "df_during_deduplication_dduper_16M.txt"), dfHeader+"/dev/loop0 10 1\n")

	duperemove := DedupExtractor{FileSystem: Btrfs, Tool: "duperemove", Prefix: "duperemove", Title: "Duperemove"}
	files, err := duperemove.Files(dir, "/dev/loop0")
	require.NoError(t, err)
	assert.Len(t, files, 2)

	dduper := DedupExtractor{FileSystem: Btrfs, Tool: "dduper", Prefix: "dduper", Title: "Dduper"}
	_, err = dduper.Files(dir, "/dev/loop0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid phase "during"`)
}

func TestComputeDedupZeroBefore(t *testing.T) {
	var logbuf bytes.Buffer
	res := ComputeDedup([]DedupFile{
		{Phase: PhaseBefore, Size: "1M", Used: 0},
		{Phase: PhaseAfter, Size: "1M", Used: 10},
	}, zerolog.New(&logbuf))
	require.Len(t, res, 1)
	assert.False(t, res[0].OK)
	assert.Zero(t, res[0].Reduction)
	assert.Contains(t, logbuf.String(), "Zero space used before deduplication")
}

// Groups are ordered by their size in bytes, not by the bare number.
func TestComputeDedupMixedUnitOrder(t *testing.T) {
	files := []DedupFile{
		{Phase: PhaseBefore, Size: "2G", Used: 2},
		{Phase: PhaseAfter, Size: "2G", Used: 1},
		{Phase: PhaseBefore, Size: "512M", Used: 2},
		{Phase: PhaseAfter, Size: "512M", Used: 1},
		{Phase: PhaseBefore, Size: "64K", Used: 2},
		{Phase: PhaseAfter, Size: "64K", Used: 1},
	}
	res := ComputeDedup(files, zerolog.Nop())
	require.Len(t, res, 3)
	assert.Equal(t, "64K", res[0].Size)
	assert.Equal(t, "512M", res[1].Size)
	assert.Equal(t, "2G", res[2].Size)
	assert.Equal(t, 2048.0, res[2].ExpectedMB)
	assert.Equal(t, 0.0625, res[0].ExpectedMB)
}
