// Package config applies the variables in an HCL config file to command line flags which
// were not explicitly given, and to feature flags.
package config

import (
	"fmt"
	"os"
	"sort"

	"github.com/hashicorp/hcl"
	"github.com/spf13/pflag"

	"github.com/leftmike/litestore/flags"
)

type Config struct {
	vars map[string]*pflag.Flag
	used map[string]struct{}
	flgs flags.Flags
}

// NewConfig returns a config which sets feature flags in flgs.
func NewConfig(flgs flags.Flags) *Config {
	return &Config{
		vars: map[string]*pflag.Flag{},
		used: map[string]struct{}{},
		flgs: flgs,
	}
}

// Var makes the flag named name in fs settable from a config file.
func (c *Config) Var(fs *pflag.FlagSet, name string) {
	flg := fs.Lookup(name)
	if flg == nil {
		panic(fmt.Sprintf("config: flag %s not found", name))
	}
	c.vars[name] = flg
}

// Visit records the flags set on the command line; the config file does not override them.
func (c *Config) Visit(fs *pflag.FlagSet) {
	fs.Visit(
		func(flg *pflag.Flag) {
			c.used[flg.Name] = struct{}{}
		})
}

func (c *Config) Vars() []string {
	var names []string
	for name := range c.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Config) LoadFile(filename string) error {
	b, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	return c.Load(b)
}

func (c *Config) Load(b []byte) error {
	var cfg map[string]interface{}
	err := hcl.Decode(&cfg, string(b))
	if err != nil {
		return err
	}

	for name, val := range cfg {
		if flg, ok := c.vars[name]; ok {
			if _, ok := c.used[flg.Name]; ok {
				continue
			}
			err := flg.Value.Set(fmt.Sprintf("%v", val))
			if err != nil {
				return fmt.Errorf("%s: %s", name, err)
			}
		} else if f, ok := flags.LookupFlag(name); ok {
			b, ok := val.(bool)
			if !ok {
				return fmt.Errorf("%s: expected boolean value; got %v", name, val)
			}
			c.flgs.SetFlag(f, b)
		} else {
			return fmt.Errorf("%s is not a config variable", name)
		}
	}

	return nil
}
