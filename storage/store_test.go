package storage_test

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"testing"

	"github.com/leftmike/litestore/kv"
	"github.com/leftmike/litestore/storage"
	"github.com/leftmike/litestore/testutil"
)

func openMemory(t *testing.T) (*storage.Store, kv.KV) {
	t.Helper()

	kvs, err := kv.Open("memory", ":memory:", kv.Options{})
	if err != nil {
		t.Fatal(err)
	}
	st, err := storage.NewStore(kvs, nil)
	if err != nil {
		t.Fatal(err)
	}
	return st, kvs
}

func wantCode(t *testing.T, op string, err error, code storage.Code) {
	t.Helper()

	if code == storage.OK {
		if err != nil {
			t.Errorf("%s failed with %s", op, err)
		}
	} else if err == nil {
		t.Errorf("%s did not fail", op)
	} else if storage.CodeOf(err) != code {
		t.Errorf("%s got %s want %s", op, storage.CodeOf(err), code)
	}
}

func wantEntry(t *testing.T, st *storage.Store, key string, want storage.Entry) {
	t.Helper()

	e, err := st.Read(key)
	if err != nil {
		t.Errorf("Read(%q) failed with %s", key, err)
	} else if !e.Equal(want) {
		t.Errorf("Read(%q) got %v want %v", key, e, want)
	}
}

func testStore(t *testing.T, st *storage.Store) {
	_, err := st.Read("missing")
	wantCode(t, `Read("missing")`, err, storage.NotFound)
	if !storage.IsNotFound(err) {
		t.Errorf(`IsNotFound(Read("missing")) got false`)
	}

	i42 := storage.BlobEntry(binary.LittleEndian.AppendUint32(nil, 42))
	i50 := storage.BlobEntry(binary.LittleEndian.AppendUint32(nil, 50))

	wantCode(t, `Create("val", 42)`, st.Create("val", i42), storage.OK)
	wantEntry(t, st, "val", i42)
	wantCode(t, `Create("val", 50)`, st.Create("val", i50), storage.KeyExists)
	wantEntry(t, st, "val", i42)

	wantCode(t, `Create("null")`, st.Create("null", storage.NullEntry()), storage.OK)
	wantEntry(t, st, "null", storage.NullEntry())
	wantCode(t, `Create("empty")`, st.Create("empty", storage.BlobEntry(nil)), storage.OK)
	wantEntry(t, st, "empty", storage.BlobEntry([]byte{}))

	wantCode(t, `Update("new", 50)`, st.Update("new", i50), storage.OK)
	wantEntry(t, st, "new", i50)
	wantCode(t, `Update("val", 50)`, st.Update("val", i50), storage.OK)
	wantEntry(t, st, "val", i50)
	wantCode(t, `Update("val", null)`, st.Update("val", storage.NullEntry()), storage.OK)
	wantEntry(t, st, "val", storage.NullEntry())

	code, err := st.Delete("val")
	if err != nil || code != storage.OK {
		t.Errorf(`Delete("val") got %s, %v want ok`, code, err)
	}
	_, err = st.Read("val")
	wantCode(t, `Read("val")`, err, storage.NotFound)
	code, err = st.Delete("val")
	if err != nil || code != storage.NoOp {
		t.Errorf(`Delete("val") got %s, %v want no-op`, code, err)
	}

	keys, err := st.Keys("*")
	if err != nil {
		t.Fatalf(`Keys("*") failed with %s`, err)
	}
	for _, key := range keys {
		_, err = st.Delete(key)
		if err != nil {
			t.Fatalf("Delete(%q) failed with %s", key, err)
		}
	}

	keys, err = st.Keys("*")
	if err != nil {
		t.Errorf(`Keys("*") failed with %s`, err)
	} else if len(keys) != 0 {
		t.Errorf(`Keys("*") got %v want []`, keys)
	}

	for _, key := range []string{"key3", "foo", "key1", "key2", "Key0", "key10"} {
		wantCode(t, fmt.Sprintf("Create(%q)", key), st.Create(key, storage.NullEntry()),
			storage.OK)
	}

	cases := []struct {
		pat  string
		keys []string
	}{
		{"*", []string{"Key0", "foo", "key1", "key10", "key2", "key3"}},
		{"key*", []string{"key1", "key10", "key2", "key3"}},
		{"key?", []string{"key1", "key2", "key3"}},
		{"[Kf]*", []string{"Key0", "foo"}},
		{"key1", []string{"key1"}},
		{"key", []string{}},
		{"bar*", []string{}},
	}

	for _, c := range cases {
		keys, err := st.Keys(c.pat)
		if err != nil {
			t.Errorf("Keys(%q) failed with %s", c.pat, err)
		} else if !testutil.DeepEqual(keys, c.keys) {
			t.Errorf("Keys(%q) got %v want %v", c.pat, keys, c.keys)
		}
	}

	var scanned []string
	err = st.Scan("key*",
		func(key string) error {
			scanned = append(scanned, key)
			if len(scanned) == 2 {
				return io.EOF
			}
			return nil
		})
	if err != nil {
		t.Errorf(`Scan("key*") failed with %s`, err)
	} else if !testutil.DeepEqual(scanned, []string{"key1", "key10"}) {
		t.Errorf(`Scan("key*") got %v want [key1 key10]`, scanned)
	}

	errStop := errors.New("stop")
	err = st.Scan("*",
		func(key string) error {
			return errStop
		})
	if err != errStop {
		t.Errorf(`Scan("*") got %v want %v`, err, errStop)
	}
}

func TestMemoryStore(t *testing.T) {
	st, _ := openMemory(t)
	testStore(t, st)

	err := st.Close()
	if err != nil {
		t.Errorf("Close() failed with %s", err)
	}
	err = st.Close()
	if err != nil {
		t.Errorf("Close() twice failed with %s", err)
	}
	if st.IsOpen() {
		t.Errorf("IsOpen() after Close() got true")
	}

	_, err = st.Read("key1")
	wantCode(t, "Read() after Close()", err, storage.NotOpen)
	wantCode(t, "Create() after Close()", st.Create("key", storage.NullEntry()), storage.NotOpen)
	wantCode(t, "Update() after Close()", st.Update("key", storage.NullEntry()), storage.NotOpen)
	_, err = st.Delete("key1")
	wantCode(t, "Delete() after Close()", err, storage.NotOpen)
	_, err = st.Keys("*")
	wantCode(t, "Keys() after Close()", err, storage.NotOpen)
}

func TestBBoltStore(t *testing.T) {
	err := testutil.CleanDir("testdata", []string{".gitignore"})
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join("testdata", "store.bbolt")
	kvs, err := kv.Open("bbolt", path, kv.Options{})
	if err != nil {
		t.Fatal(err)
	}
	st, err := storage.NewStore(kvs, nil)
	if err != nil {
		t.Fatal(err)
	}
	testStore(t, st)
	err = st.Close()
	if err != nil {
		t.Fatalf("Close() failed with %s", err)
	}

	kvs, err = kv.Open("bbolt", path, kv.Options{})
	if err != nil {
		t.Fatal(err)
	}
	st, err = storage.NewStore(kvs, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	wantEntry(t, st, "key10", storage.NullEntry())
}

func TestVersion(t *testing.T) {
	cases := []struct {
		val  []byte
		code storage.Code
	}{
		{binary.BigEndian.AppendUint64(nil, 1), storage.OK},
		{binary.BigEndian.AppendUint64(nil, 2), storage.OpenError},
		{[]byte{1, 2, 3}, storage.Corruption},
	}

	for _, c := range cases {
		kvs, err := kv.Open("memory", "", kv.Options{})
		if err != nil {
			t.Fatal(err)
		}
		err = kvs.Set([]byte("m/version"), c.val)
		if err != nil {
			t.Fatal(err)
		}
		_, err = storage.NewStore(kvs, nil)
		wantCode(t, fmt.Sprintf("NewStore(version=%v)", c.val), err, c.code)
	}
}

func TestCorruptEntry(t *testing.T) {
	st, kvs := openMemory(t)
	err := kvs.Set([]byte("ebad"), []byte{0xFF})
	if err != nil {
		t.Fatal(err)
	}

	_, err = st.Read("bad")
	wantCode(t, `Read("bad")`, err, storage.Corruption)
	_, err = st.Delete("bad")
	wantCode(t, `Delete("bad")`, err, storage.Corruption)
}

func TestError(t *testing.T) {
	err := error(&storage.Error{Code: storage.NotFound, Key: "k"})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("errors.Is(%s, ErrNotFound) got false", err)
	}
	if errors.Is(err, storage.ErrKeyExists) {
		t.Errorf("errors.Is(%s, ErrKeyExists) got true", err)
	}
	if s := err.Error(); s != `storage: key "k": not found` {
		t.Errorf("Error() got %q", s)
	}

	inner := errors.New("disk full")
	err = &storage.Error{Code: storage.IOError, Err: inner}
	if !errors.Is(err, inner) {
		t.Errorf("errors.Is(%s, inner) got false", err)
	}
	if s := err.Error(); s != "storage: i/o error: disk full" {
		t.Errorf("Error() got %q", s)
	}

	if storage.CodeOf(nil) != storage.OK {
		t.Errorf("CodeOf(nil) got %s want ok", storage.CodeOf(nil))
	}
	if storage.CodeOf(inner) != storage.Unknown {
		t.Errorf("CodeOf(inner) got %s want unknown error", storage.CodeOf(inner))
	}
	if s := storage.Code(99).String(); s != "code(99)" {
		t.Errorf("Code(99).String() got %s", s)
	}
}
