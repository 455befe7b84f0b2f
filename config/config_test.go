package config_test

import (
	"testing"

	"github.com/spf13/pflag"

	"github.com/leftmike/litestore/config"
	"github.com/leftmike/litestore/flags"
	"github.com/leftmike/litestore/testutil"
)

type vars struct {
	store   string
	level   string
	retries int
	stderr  bool
}

func newConfig(args []string) (*config.Config, *vars, flags.Flags, error) {
	var v vars
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.StringVar(&v.store, "store", "litestore.db", "")
	fs.StringVar(&v.level, "log-level", "info", "")
	fs.IntVar(&v.retries, "open-retries", 0, "")
	fs.BoolVarP(&v.stderr, "log-stderr", "s", false, "")

	flgs := flags.Default()
	c := config.NewConfig(flgs)
	c.Var(fs, "store")
	c.Var(fs, "log-level")
	c.Var(fs, "open-retries")

	err := fs.Parse(args)
	if err != nil {
		return nil, nil, nil, err
	}
	c.Visit(fs)
	return c, &v, flgs, nil
}

func TestLoad(t *testing.T) {
	cases := []struct {
		args []string
		cfg  string
		fail bool
		v    vars
		flgs flags.Flags
	}{
		{cfg: ``, v: vars{store: "litestore.db", level: "info"}},
		{
			cfg: `store = "data.db"
log-level = "debug"
open-retries = 3`,
			v: vars{store: "data.db", level: "debug", retries: 3},
		},
		{
			args: []string{"--store", "flag.db"},
			cfg:  `store = "data.db"`,
			v:    vars{store: "flag.db", level: "info"},
		},
		{
			cfg:  `/* comment */ no_sync = true // comment`,
			v:    vars{store: "litestore.db", level: "info"},
			flgs: flags.Flags{true, false},
		},
		{
			cfg:  `read_only = true`,
			v:    vars{store: "litestore.db", level: "info"},
			flgs: flags.Flags{false, true},
		},
		{cfg: `no_sync = "yes"`, fail: true},
		{cfg: `open-retries = "many"`, fail: true},
		{cfg: `log-stderr = true`, fail: true},
		{cfg: `unknown = 1`, fail: true},
		{cfg: `store =`, fail: true},
	}

	for _, c := range cases {
		cfg, v, flgs, err := newConfig(c.args)
		if err != nil {
			t.Fatalf("Parse(%v) failed with %s", c.args, err)
		}
		err = cfg.Load([]byte(c.cfg))
		if c.fail {
			if err == nil {
				t.Errorf("Load(%q) did not fail", c.cfg)
			}
			continue
		} else if err != nil {
			t.Errorf("Load(%q) failed with %s", c.cfg, err)
			continue
		}

		if *v != c.v {
			t.Errorf("Load(%q) got %+v want %+v", c.cfg, *v, c.v)
		}
		want := c.flgs
		if want == nil {
			want = flags.Default()
		}
		if !testutil.DeepEqual(flgs, want) {
			t.Errorf("Load(%q) got flags %v want %v", c.cfg, flgs, want)
		}
	}
}

func TestVars(t *testing.T) {
	cfg, _, _, err := newConfig(nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"log-level", "open-retries", "store"}
	if names := cfg.Vars(); !testutil.DeepEqual(names, want) {
		t.Errorf("Vars() got %v want %v", names, want)
	}
}

func TestLoadFile(t *testing.T) {
	cfg, _, _, err := newConfig(nil)
	if err != nil {
		t.Fatal(err)
	}
	err = cfg.LoadFile("testdata/missing.hcl")
	if err == nil {
		t.Error("LoadFile(testdata/missing.hcl) did not fail")
	}
}
