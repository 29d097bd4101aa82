package bench

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config holds the locations and tunables of a report run.
type Config struct {
	InputDir   string // contains fs/<fs>/out/...
	OutputDir  string
	LogFile    string
	LogLevel   string
	Workers    int
	DPI        int
	GnuplotCmd string // fio log to gnuplot data converter
	BenchConf  string // key=value benchmark parameters
	FioJobs    string // fio job file
	Mounts     map[FileSystem]string
}

// SetDefaults registers the default configuration with v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("input-dir", ".")
	v.SetDefault("output-dir", "./output")
	v.SetDefault("log-file", "logs/graphs.log")
	v.SetDefault("log-level", "info")
	v.SetDefault("workers", 4)
	v.SetDefault("dpi", 300)
	v.SetDefault("gnuplot-cmd", "fio2gnuplot")
	v.SetDefault("bench-conf", "config/bench.conf")
	v.SetDefault("fio-jobs", "config/fio.ini")
	for _, fs := range FileSystems() {
		v.SetDefault(mountKey(fs), fs.MountPoint())
	}
}

func mountKey(fs FileSystem) string {
	return "mount-" + fs.String()
}

// LoadConfig reads the configuration from v.
func LoadConfig(v *viper.Viper) (Config, error) {
	cfg := Config{
		InputDir:   v.GetString("input-dir"),
		OutputDir:  v.GetString("output-dir"),
		LogFile:    v.GetString("log-file"),
		LogLevel:   v.GetString("log-level"),
		Workers:    v.GetInt("workers"),
		DPI:        v.GetInt("dpi"),
		GnuplotCmd: v.GetString("gnuplot-cmd"),
		BenchConf:  v.GetString("bench-conf"),
		FioJobs:    v.GetString("fio-jobs"),
		Mounts:     make(map[FileSystem]string),
	}
	if cfg.Workers < 1 {
		return cfg, errors.Errorf("invalid worker count %d", cfg.Workers)
	}
	if cfg.DPI < 1 {
		return cfg, errors.Errorf("invalid dpi %d", cfg.DPI)
	}
	for _, fs := range FileSystems() {
		cfg.Mounts[fs] = v.GetString(mountKey(fs))
	}
	return cfg, nil
}

// MountPoint returns the configured df device prefix of fs.
func (cfg Config) MountPoint(fs FileSystem) string {
	if m, ok := cfg.Mounts[fs]; ok && m != "" {
		return m
	}
	return fs.MountPoint()
}

// BenchParams are the benchmark settings shared by all file systems.
type BenchParams struct {
	Seed      int64
	BlockSize string
	FileSize  string
	RunCount  int
}

// ReadBenchParams reads the shell-style key=value benchmark configuration.
func ReadBenchParams(file string) (BenchParams, error) {
	v := viper.New()
	v.SetConfigFile(file)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return BenchParams{}, errors.Wrapf(err, "can't read benchmark parameters %s", file)
	}
	return BenchParams{
		Seed:      v.GetInt64("seed"),
		BlockSize: v.GetString("block_size"),
		FileSize:  v.GetString("file_size"),
		RunCount:  v.GetInt("run_count"),
	}, nil
}

// ReadFioTests returns the job names defined in a fio job file.
func ReadFioTests(file string) ([]string, error) {
	v := viper.New()
	v.SetConfigFile(file)
	v.SetConfigType("ini")
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "can't read fio job file %s", file)
	}
	var tests []string
	for key, val := range v.AllSettings() {
		if _, isSection := val.(map[string]interface{}); !isSection {
			continue
		}
		if strings.EqualFold(key, "global") || strings.EqualFold(key, "default") {
			continue
		}
		tests = append(tests, key)
	}
	sort.Strings(tests)
	return tests, nil
}
