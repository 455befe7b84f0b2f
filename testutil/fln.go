package testutil

import (
	"path/filepath"
	"runtime"
	"strconv"
)

// FileLineNumber is the source location of a case in a table driven test. It prints as a
// prefix for error messages.
type FileLineNumber struct {
	File string
	Line int
}

func (fln FileLineNumber) String() string {
	if fln.File == "" || fln.Line <= 0 {
		return ""
	}
	return filepath.Base(fln.File) + ":" + strconv.Itoa(fln.Line) + ": "
}

// MakeFileLineNumber must be called directly by a helper which builds a test case; it
// returns where that helper was called from.
func MakeFileLineNumber() FileLineNumber {
	var pcs [1]uintptr
	if runtime.Callers(3, pcs[:]) == 0 {
		return FileLineNumber{}
	}
	frame, _ := runtime.CallersFrames(pcs[:]).Next()
	return FileLineNumber{File: frame.File, Line: frame.Line}
}
