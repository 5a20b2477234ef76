package leafdb

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func tempDB(t *testing.T) string {
	t.Helper()
	dir, err := ioutil.TempDir("", "leafdb-test")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "test.db")
}

func mustRow(t *testing.T, id uint32, username, email string) *Row {
	t.Helper()
	row, err := NewRow(id, username, email)
	if err != nil {
		t.Fatal(err)
	}
	return row
}
