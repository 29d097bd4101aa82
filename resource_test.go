package bench

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadResourceUsage(t *testing.T) {
	input := `File_Size,Real,User,Sys,Max_Memory_KB
64M,1:02.50,3.5,1.25,20480
16M,10.0,1.0,0.5,10240
`
	rows, err := ReadResourceUsage(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, ResourceUsage{Size: "16M", Index: 16, Real: 10, User: 1, Sys: 0.5, MaxMemoryMB: 10}, rows[0])
	assert.Equal(t, ResourceUsage{Size: "64M", Index: 64, Real: 62.5, User: 3.5, Sys: 1.25, MaxMemoryMB: 20}, rows[1])
}

func TestReadResourceUsageSizeFromCommand(t *testing.T) {
	input := `command,elapsed,user,system,maxrss
dduper --file /mnt/file_128M.bin,0:05,1,2,1024
dduper --file /mnt/file_8M.bin,0:01,1,2,2048
`
	rows, err := ReadResourceUsage(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "8M", rows[0].Size)
	assert.Equal(t, "128M", rows[1].Size)
	assert.Equal(t, 5.0, rows[1].Real)
	assert.Equal(t, 1.0, rows[1].MaxMemoryMB)
}

func TestReadResourceUsageErrors(t *testing.T) {
	for _, input := range []string{
		"",
		"size,user,sys\n16M,1,1\n",
		"size,user,sys,maxrss\n16M,one,1,1\n",
		"size,user,sys,maxrss\nbig,1,1,1\n",
	} {
		_, err := ReadResourceUsage(strings.NewReader(input))
		assert.Error(t, err, input)
	}
}

func TestParseSeconds(t *testing.T) {
	tests := map[string]float64{
		"1.25":    1.25,
		"0:07.50": 7.5,
		"2:00":    120,
		"1:00:01": 3601,
	}
	for in, want := range tests {
		got, err := parseSeconds(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := parseSeconds("1:2:3:4")
	assert.Error(t, err)
}

func TestResourceCharts(t *testing.T) {
	charts := ResourceCharts("dduper", "Dduper", []ResourceUsage{
		{Size: "16M", User: 1, Sys: 0.5, MaxMemoryMB: 10},
	})
	require.Len(t, charts, 2)
	assert.Equal(t, "time/dduper_dedup_time", charts[0].Key())
	assert.True(t, charts[0].Stacked)
	assert.Equal(t, []float64{0.5}, charts[0].Series[0].Values)
	assert.Equal(t, "time/dduper_dedup_memory", charts[1].Key())
	assert.True(t, charts[1].MaxLine)
}
