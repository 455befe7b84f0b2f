// Package repl runs line oriented commands against a litestore.
package repl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"

	"github.com/leftmike/litestore/litestore"
	"github.com/leftmike/litestore/storage"
)

var (
	errQuit  = errors.New("repl: quit")
	errUsage = errors.New("repl: wrong number of arguments")
)

type LineReader interface {
	// ReadLine returns the next line of input or io.EOF.
	ReadLine() (string, error)
}

type Session struct {
	ls *litestore.Litestore
	tx *litestore.Transaction
	w  io.Writer
}

type command struct {
	usage string
	fn    func(ses *Session, args []string, null bool) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"begin":    {"begin", (*Session).begin},
		"commit":   {"commit", (*Session).commit},
		"create":   {"create [--null] KEY [VALUE]", (*Session).create},
		"delete":   {"delete KEY", (*Session).delete},
		"exit":     {"exit", (*Session).quit},
		"help":     {"help", (*Session).help},
		"keys":     {"keys [PATTERN]", (*Session).keys},
		"quit":     {"quit", (*Session).quit},
		"read":     {"read KEY", (*Session).read},
		"rollback": {"rollback", (*Session).rollback},
		"update":   {"update [--null] KEY [VALUE]", (*Session).update},
	}
}

func NewSession(ls *litestore.Litestore, w io.Writer) *Session {
	return &Session{
		ls: ls,
		w:  w,
	}
}

// Exec runs one command; args[0] is the name of the command.
func (ses *Session) Exec(args []string) error {
	if len(args) == 0 {
		return nil
	}
	cmd, ok := commands[strings.ToLower(args[0])]
	if !ok {
		return fmt.Errorf("repl: unknown command: %s; try help", args[0])
	}

	// Flags come before the key; -- ends them.
	var null bool
	rest := args[1:]
	for len(rest) > 0 && strings.HasPrefix(rest[0], "--") {
		flag := rest[0]
		rest = rest[1:]
		if flag == "--" {
			break
		} else if flag == "--null" {
			null = true
		} else {
			return fmt.Errorf("repl: unknown flag: %s; usage: %s", flag, cmd.usage)
		}
	}
	err := cmd.fn(ses, rest, null)
	if err == errUsage {
		return fmt.Errorf("repl: usage: %s", cmd.usage)
	}
	return err
}

// Run executes each line from lr until quit or the end of input. A transaction still open
// at the end is rolled back.
func (ses *Session) Run(lr LineReader) error {
	defer func() {
		if ses.tx != nil {
			ses.tx.Rollback()
			ses.tx = nil
		}
	}()

	for {
		line, err := lr.ReadLine()
		if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}

		args, err := SplitLine(line)
		if err == nil {
			err = ses.Exec(args)
		}
		if err == errQuit {
			return nil
		} else if err != nil {
			log.WithField("line", line).Debug(err)
			fmt.Fprintln(ses.w, err)
		}
	}
}

// SplitLine splits line into words separated by white space; a word in double quotes is
// unquoted as a Go string literal.
func SplitLine(line string) ([]string, error) {
	var args []string
	for {
		line = strings.TrimLeft(line, " \t\r\n")
		if line == "" || line[0] == '#' {
			return args, nil
		}

		if line[0] == '"' {
			q, err := strconv.QuotedPrefix(line)
			if err != nil {
				return nil, fmt.Errorf("repl: bad quoted string: %s", line)
			}
			s, err := strconv.Unquote(q)
			if err != nil {
				return nil, err
			}
			args = append(args, s)
			line = line[len(q):]
		} else {
			idx := strings.IndexAny(line, " \t\r\n")
			if idx < 0 {
				idx = len(line)
			}
			args = append(args, line[:idx])
			line = line[idx:]
		}
	}
}

func value(args []string, null bool) (litestore.Encoder, error) {
	if null {
		if len(args) != 1 {
			return nil, errUsage
		}
		return litestore.Null, nil
	} else if len(args) == 1 {
		return litestore.Bytes(nil), nil
	} else if len(args) == 2 {
		return litestore.String(args[1]), nil
	}
	return nil, errUsage
}

func (ses *Session) create(args []string, null bool) error {
	v, err := value(args, null)
	if err != nil {
		return err
	}
	return ses.ls.Create(args[0], v)
}

func (ses *Session) update(args []string, null bool) error {
	v, err := value(args, null)
	if err != nil {
		return err
	}
	return ses.ls.Update(args[0], v)
}

type printer struct {
	null bool
	b    []byte
}

func (p *printer) Decode(e storage.Entry) error {
	p.null = e.Kind == storage.Null
	p.b = e.Payload
	return nil
}

func (ses *Session) read(args []string, null bool) error {
	if len(args) != 1 || null {
		return errUsage
	}

	var p printer
	err := ses.ls.Read(args[0], &p)
	if err != nil {
		return err
	}
	if p.null {
		fmt.Fprintln(ses.w, "(null)")
	} else {
		fmt.Fprintln(ses.w, string(p.b))
	}
	return nil
}

func (ses *Session) delete(args []string, null bool) error {
	if len(args) != 1 || null {
		return errUsage
	}

	code, err := ses.ls.Delete(args[0])
	if err != nil {
		return err
	}
	if code == storage.NoOp {
		fmt.Fprintln(ses.w, "noop")
	} else {
		fmt.Fprintln(ses.w, "deleted")
	}
	return nil
}

func (ses *Session) keys(args []string, null bool) error {
	pat := "*"
	if len(args) == 1 && !null {
		pat = args[0]
	} else if len(args) > 1 || null {
		return errUsage
	}

	keys, err := ses.ls.Keys(pat)
	if err != nil {
		return err
	}

	tw := tablewriter.NewWriter(ses.w)
	tw.SetAutoFormatHeaders(false)
	tw.SetHeader([]string{"key"})
	for _, key := range keys {
		tw.Append([]string{key})
	}
	tw.Render()
	fmt.Fprintf(ses.w, "(%d keys)\n", len(keys))
	return nil
}

func (ses *Session) begin(args []string, null bool) error {
	if len(args) != 0 || null {
		return errUsage
	}

	tx, err := ses.ls.Begin()
	if err != nil {
		return err
	}
	ses.tx = tx
	return nil
}

func (ses *Session) commit(args []string, null bool) error {
	if len(args) != 0 || null {
		return errUsage
	}

	err := ses.tx.Commit()
	ses.tx = nil
	return err
}

func (ses *Session) rollback(args []string, null bool) error {
	if len(args) != 0 || null {
		return errUsage
	}

	err := ses.tx.Rollback()
	ses.tx = nil
	return err
}

func (ses *Session) help(args []string, null bool) error {
	var usages []string
	for name, cmd := range commands {
		if name != "exit" {
			usages = append(usages, cmd.usage)
		}
	}
	sort.Strings(usages)
	for _, usage := range usages {
		fmt.Fprintln(ses.w, usage)
	}
	return nil
}

func (ses *Session) quit(args []string, null bool) error {
	return errQuit
}

type reader struct {
	scanner *bufio.Scanner
}

const maxLineLength = 16 * 1024 * 1024

// NewReader returns a LineReader reading lines from r; a line may be up to 16 MiB long.
func NewReader(r io.Reader) LineReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxLineLength)
	return reader{scanner}
}

func (rdr reader) ReadLine() (string, error) {
	if rdr.scanner.Scan() {
		return rdr.scanner.Text(), nil
	}
	if err := rdr.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
