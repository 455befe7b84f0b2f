package flags

import (
	"strings"
)

type Flag int

const (
	// NoSync skips syncing the backend to disk after every write.
	NoSync Flag = iota
	// ReadOnly opens the backend without write access; mutations fail.
	ReadOnly
)

type flagDefault struct {
	flag Flag
	def  bool
}

var (
	defaultFlags = map[string]flagDefault{
		"no_sync":   {NoSync, false},
		"read_only": {ReadOnly, false},
	}
)

func LookupFlag(nam string) (Flag, bool) {
	fd, ok := defaultFlags[strings.ToLower(nam)]
	return fd.flag, ok
}

func ListFlags(fn func(nam string, f Flag)) {
	for nam, fd := range defaultFlags {
		fn(nam, fd.flag)
	}
}

type Flags []bool

func (flgs Flags) GetFlag(f Flag) bool {
	if int(f) >= len(flgs) {
		return false
	}
	return flgs[f]
}

func (flgs Flags) SetFlag(f Flag, b bool) {
	flgs[f] = b
}

func Default() Flags {
	flgs := make([]bool, len(defaultFlags))
	for _, fd := range defaultFlags {
		flgs[fd.flag] = fd.def
	}
	return flgs
}
