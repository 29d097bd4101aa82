package bench

import (
	"fmt"
	"strings"
)

// FileSystem identifies one of the file systems under test.
type FileSystem int

const (
	Btrfs FileSystem = iota
	CopyFS
	Nilfs
	NilfsDedup
	WaybackFS

	numFileSystems
)

var fileSystems = [numFileSystems]struct {
	name  string
	mount string // device prefix of the df line
}{
	Btrfs:      {"btrfs", "/dev/loop0"},
	CopyFS:     {"copyfs", "/dev/sda1"},
	Nilfs:      {"nilfs", "/dev/loop0"},
	NilfsDedup: {"nilfs-dedup", "/dev/loop0"},
	WaybackFS:  {"waybackfs", "/dev/sda1"},
}

// FileSystems returns all known file systems in report order.
func FileSystems() []FileSystem {
	all := make([]FileSystem, numFileSystems)
	for i := range all {
		all[i] = FileSystem(i)
	}
	return all
}

func (fs FileSystem) String() string {
	if fs < 0 || fs >= numFileSystems {
		return fmt.Sprintf("FileSystem(%d)", int(fs))
	}
	return fileSystems[fs].name
}

// MountPoint returns the default device prefix identifying fs in a df snapshot.
func (fs FileSystem) MountPoint() string {
	if fs < 0 || fs >= numFileSystems {
		return ""
	}
	return fileSystems[fs].mount
}

// ParseFileSystem resolves a file system by its display name.
func ParseFileSystem(s string) (FileSystem, error) {
	for i, f := range fileSystems {
		if strings.EqualFold(f.name, s) {
			return FileSystem(i), nil
		}
	}
	return 0, fmt.Errorf("unknown file system %q", s)
}

func without(all []FileSystem, exclude []FileSystem) []FileSystem {
	var out []FileSystem
outer:
	for _, fs := range all {
		for _, ex := range exclude {
			if fs == ex {
				continue outer
			}
		}
		out = append(out, fs)
	}
	return out
}
