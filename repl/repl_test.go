package repl_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/andreyvit/diff"

	"github.com/leftmike/litestore/litestore"
	"github.com/leftmike/litestore/repl"
	"github.com/leftmike/litestore/testutil"
)

func TestSplitLine(t *testing.T) {
	cases := []struct {
		line string
		args []string
		fail bool
	}{
		{line: "", args: nil},
		{line: "   ", args: nil},
		{line: "# comment", args: nil},
		{line: "keys", args: []string{"keys"}},
		{line: "  create  key  value ", args: []string{"create", "key", "value"}},
		{line: `update key "two words"`, args: []string{"update", "key", "two words"}},
		{line: `update "a\tb" "q\"uote"`, args: []string{"update", "a\tb", `q"uote`}},
		{line: `create key ""`, args: []string{"create", "key", ""}},
		{line: `create key "unterminated`, fail: true},
	}

	for _, c := range cases {
		args, err := repl.SplitLine(c.line)
		if c.fail {
			if err == nil {
				t.Errorf("SplitLine(%q) did not fail", c.line)
			}
		} else if err != nil {
			t.Errorf("SplitLine(%q) failed with %s", c.line, err)
		} else if !testutil.DeepEqual(args, c.args) {
			t.Errorf("SplitLine(%q) got %q want %q", c.line, args, c.args)
		}
	}
}

const script = `
keys
create key1 one
create key2 "value two"
create --null key3
create key1 again
update key4
create foo bar
read key1
read key2
read key3
read key4
read missing
keys
keys key*
begin
delete key1
delete key1
create key5 five
begin
keys
rollback
keys
begin
update key3 three
commit
read key3
commit
create
frobnicate
quit
read key1
`

const output = `+-----+
| key |
+-----+
+-----+
(0 keys)
storage: key "key1": key exists
one
value two
(null)

storage: key "missing": not found
+------+
| key  |
+------+
| foo  |
| key1 |
| key2 |
| key3 |
| key4 |
+------+
(5 keys)
+------+
| key  |
+------+
| key1 |
| key2 |
| key3 |
| key4 |
+------+
(4 keys)
deleted
noop
storage: transaction misuse: transaction tx already open
+------+
| key  |
+------+
| foo  |
| key2 |
| key3 |
| key4 |
| key5 |
+------+
(5 keys)
+------+
| key  |
+------+
| foo  |
| key1 |
| key2 |
| key3 |
| key4 |
+------+
(5 keys)
three
storage: transaction misuse: transaction never began
repl: usage: create [--null] KEY [VALUE]
repl: unknown command: frobnicate; try help
`

func TestSession(t *testing.T) {
	ls, err := litestore.Open(litestore.MemoryLocation)
	if err != nil {
		t.Fatal(err)
	}
	defer ls.Close()

	var buf bytes.Buffer
	err = repl.NewSession(ls, &buf).Run(repl.NewReader(strings.NewReader(script)))
	if err != nil {
		t.Fatalf("Run() failed with %s", err)
	}

	// The id of a transaction is different every time.
	var lines []string
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.HasPrefix(line, "storage: transaction misuse: transaction ") &&
			strings.HasSuffix(line, " already open") {
			line = "storage: transaction misuse: transaction tx already open"
		}
		lines = append(lines, line)
	}
	got := strings.Join(lines, "\n")
	if got != output {
		t.Errorf("Run() failed:\n%s", diff.LineDiff(output, got))
	}
}

func TestRollbackAtEnd(t *testing.T) {
	ls, err := litestore.Open(litestore.MemoryLocation)
	if err != nil {
		t.Fatal(err)
	}
	defer ls.Close()

	var buf bytes.Buffer
	err = repl.NewSession(ls, &buf).Run(repl.NewReader(strings.NewReader(
		"create kept\nbegin\ncreate dropped\n")))
	if err != nil {
		t.Fatalf("Run() failed with %s", err)
	}

	keys, err := ls.Keys("*")
	if err != nil {
		t.Fatalf("Keys(*) failed with %s", err)
	} else if !testutil.DeepEqual(keys, []string{"kept"}) {
		t.Errorf("Keys(*) got %v want [kept]", keys)
	}

	tx, err := ls.Begin()
	if err != nil {
		t.Errorf("Begin() failed with %s", err)
	} else {
		tx.Rollback()
	}
}

func TestFlags(t *testing.T) {
	ls, err := litestore.Open(litestore.MemoryLocation)
	if err != nil {
		t.Fatal(err)
	}
	defer ls.Close()

	cases := []struct {
		args []string
		out  string
		fail bool
	}{
		{args: []string{"create", "a", "--null"}},
		{args: []string{"read", "a"}, out: "--null\n"},
		{args: []string{"create", "--null", "b"}},
		{args: []string{"read", "b"}, out: "(null)\n"},
		{args: []string{"create", "--null", "c", "--null"}, fail: true},
		{args: []string{"update", "--", "--null", "--null"}},
		{args: []string{"read", "--", "--null"}, out: "--null\n"},
		{args: []string{"update", "--null", "--", "--null"}},
		{args: []string{"read", "--", "--null"}, out: "(null)\n"},
		{args: []string{"update", "--nul", "d"}, fail: true},
		{args: []string{"read", "d"}, fail: true},
	}

	for _, c := range cases {
		var buf bytes.Buffer
		err := repl.NewSession(ls, &buf).Exec(c.args)
		if c.fail {
			if err == nil {
				t.Errorf("Exec(%q) did not fail", c.args)
			}
		} else if err != nil {
			t.Errorf("Exec(%q) failed with %s", c.args, err)
		} else if buf.String() != c.out {
			t.Errorf("Exec(%q) got %q want %q", c.args, buf.String(), c.out)
		}
	}
}

func TestLongLine(t *testing.T) {
	ls, err := litestore.Open(litestore.MemoryLocation)
	if err != nil {
		t.Fatal(err)
	}
	defer ls.Close()

	val := strings.Repeat("v", 256*1024)
	var buf bytes.Buffer
	err = repl.NewSession(ls, &buf).Run(repl.NewReader(strings.NewReader(
		"create long " + val + "\nread long\n")))
	if err != nil {
		t.Fatalf("Run() failed with %s", err)
	}
	if buf.String() != val+"\n" {
		t.Errorf("Run() got %d bytes want %d", buf.Len(), len(val)+1)
	}
}
