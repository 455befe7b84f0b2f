// Package cmd is the litestore command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sethvargo/go-retry"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/leftmike/litestore/config"
	"github.com/leftmike/litestore/flags"
	"github.com/leftmike/litestore/kv"
	"github.com/leftmike/litestore/litestore"
)

const (
	retryBase = 100 * time.Millisecond
)

type state struct {
	store       string
	openRetries int

	logFile   string
	logLevel  string
	logStderr bool
	logWriter io.WriteCloser

	configFile string
	noConfig   bool

	cfg  *config.Config
	flgs flags.Flags
}

func init() {
	log.SetFormatter(&log.TextFormatter{
		DisableLevelTruncation: true,
	})
}

// NewCommand returns the root litestore command with all of its subcommands.
func NewCommand() *cobra.Command {
	st := &state{
		store:      "litestore.db",
		logFile:    "litestore.log",
		logLevel:   "info",
		configFile: "litestore.hcl",
		flgs:       flags.Default(),
	}
	st.cfg = config.NewConfig(st.flgs)

	rootCmd := &cobra.Command{
		Use:               "litestore",
		Short:             "An embedded key value store",
		Long:              "Litestore is a transactional key value store kept in a single file.",
		SilenceUsage:      true,
		PersistentPreRunE: st.preRun,
		PersistentPostRun: st.postRun,
	}

	fs := rootCmd.PersistentFlags()

	fs.StringVar(&st.store, "store", st.store,
		"`location` of the store: a path, or backend:location with backend one of "+
			fmt.Sprint(kv.Backends()))
	st.cfg.Var(fs, "store")

	fs.IntVar(&st.openRetries, "open-retries", st.openRetries,
		"number of times to retry opening a locked store")
	st.cfg.Var(fs, "open-retries")

	fs.StringVar(&st.logFile, "log-file", st.logFile, "`file` to use for logging")
	st.cfg.Var(fs, "log-file")

	fs.StringVar(&st.logLevel, "log-level", st.logLevel,
		"log level: trace, debug, info, warn, error, fatal, or panic")
	st.cfg.Var(fs, "log-level")

	fs.BoolVarP(&st.logStderr, "log-stderr", "s", st.logStderr, "log to standard error")

	fs.StringVar(&st.configFile, "config-file", st.configFile, "`file` to load config from")
	fs.BoolVar(&st.noConfig, "no-config", st.noConfig, "don't load config file")

	st.addStoreCommands(rootCmd)
	st.addShellCommand(rootCmd)
	addVersionCommand(rootCmd)
	return rootCmd
}

func Execute() error {
	return NewCommand().Execute()
}

func (st *state) preRun(cmd *cobra.Command, args []string) error {
	st.cfg.Visit(cmd.Flags())

	if st.configFile != "" && !st.noConfig {
		err := st.cfg.LoadFile(st.configFile)
		if errors.Is(err, os.ErrNotExist) && !cmd.Flags().Changed("config-file") {
			err = nil
		}
		if err != nil {
			return fmt.Errorf("litestore: %s", err)
		}
	}

	if !st.logStderr && st.logFile != "" {
		var err error
		st.logWriter, err = os.OpenFile(st.logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
		if err != nil {
			st.logWriter = nil
			return fmt.Errorf("litestore: %s", err)
		}
		log.SetOutput(st.logWriter)
	}

	ll, err := log.ParseLevel(st.logLevel)
	if err != nil {
		return fmt.Errorf("litestore: %s", err)
	}
	log.SetLevel(ll)

	log.WithField("pid", os.Getpid()).Info("litestore starting")
	return nil
}

func (st *state) postRun(cmd *cobra.Command, args []string) {
	log.WithField("pid", os.Getpid()).Info("litestore done")

	if st.logWriter != nil {
		log.SetOutput(os.Stderr)
		st.logWriter.Close()
		st.logWriter = nil
	}
}

// open opens the store, retrying with a fibonacci backoff while another process holds its
// lock.
func (st *state) open(ctx context.Context) (*litestore.Litestore, error) {
	b := retry.WithMaxRetries(uint64(st.openRetries), retry.NewFibonacci(retryBase))

	var ls *litestore.Litestore
	err := retry.Do(ctx, b,
		func(ctx context.Context) error {
			var err error
			ls, err = litestore.Open(st.store,
				litestore.WithLogger(log.StandardLogger()),
				litestore.WithFlags(st.flgs))
			if errors.Is(err, kv.ErrLocked) {
				log.WithField("store", st.store).Warn("litestore: store is locked")
				return retry.RetryableError(err)
			}
			return err
		})
	if err != nil {
		return nil, err
	}
	return ls, nil
}
