package flags_test

import (
	"testing"

	"github.com/leftmike/litestore/flags"
)

func TestLookupFlag(t *testing.T) {
	cases := []struct {
		nam  string
		f    flags.Flag
		fail bool
	}{
		{nam: "no_sync", f: flags.NoSync},
		{nam: "NO_SYNC", f: flags.NoSync},
		{nam: "read_only", f: flags.ReadOnly},
		{nam: "pushdown_where", fail: true},
	}

	for _, c := range cases {
		f, ok := flags.LookupFlag(c.nam)
		if !ok {
			if !c.fail {
				t.Errorf("LookupFlag(%q) failed", c.nam)
			}
		} else if c.fail {
			t.Errorf("LookupFlag(%q) did not fail", c.nam)
		} else if f != c.f {
			t.Errorf("LookupFlag(%q) got %d want %d", c.nam, f, c.f)
		}
	}
}

func TestFlags(t *testing.T) {
	flgs := flags.Default()
	if flgs.GetFlag(flags.NoSync) || flgs.GetFlag(flags.ReadOnly) {
		t.Errorf("Default() got %v want all false", flgs)
	}
	flgs.SetFlag(flags.NoSync, true)
	if !flgs.GetFlag(flags.NoSync) {
		t.Errorf("GetFlag(NoSync) got false want true")
	}

	var none flags.Flags
	if none.GetFlag(flags.ReadOnly) {
		t.Errorf("Flags(nil).GetFlag(ReadOnly) got true want false")
	}

	cnt := 0
	flags.ListFlags(func(nam string, f flags.Flag) {
		cnt += 1
	})
	if cnt != len(flgs) {
		t.Errorf("ListFlags() got %d flags want %d", cnt, len(flgs))
	}
}
