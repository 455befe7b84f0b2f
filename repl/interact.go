package repl

import (
	"io"
	"os"
	"path/filepath"

	"github.com/peterh/liner"
	log "github.com/sirupsen/logrus"

	"github.com/leftmike/litestore/litestore"
)

const (
	litestoreHistory = ".litestore_history"
)

type lineReader struct {
	line *liner.State
}

func (lr lineReader) ReadLine() (string, error) {
	s, err := lr.line.Prompt("litestore> ")
	if err == liner.ErrPromptAborted {
		return "", io.EOF
	} else if err != nil {
		return "", err
	}
	lr.line.AppendHistory(s)
	return s, nil
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return litestoreHistory
	}
	return filepath.Join(home, litestoreHistory)
}

// Interact runs an interactive session against ls on the terminal, with line editing and
// history.
func Interact(ls *litestore.Litestore) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	history := historyFile()
	if f, err := os.Open(history); err == nil {
		line.ReadHistory(f)
		f.Close()
	}

	err := NewSession(ls, os.Stdout).Run(lineReader{line: line})

	if f, err := os.Create(history); err != nil {
		log.WithFields(log.Fields{
			"file":  history,
			"error": err,
		}).Warn("repl: error writing history file")
	} else {
		line.WriteHistory(f)
		f.Close()
	}
	return err
}
