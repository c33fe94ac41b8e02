package testsupport

import (
	"bytes"
	"encoding/json"
	"io/fs"
	"os"
	"testing"
)

// Testdata is the testdata directory of the package under test.
func Testdata() fs.FS {
	return os.DirFS("testdata")
}

// Fixture reads name from fsys and fails the test when it cannot.
func Fixture(t testing.TB, fsys fs.FS, name string) []byte {
	t.Helper()

	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		t.Fatalf("failed to load fixture %s: %v", name, err)
	}
	return data
}

// FixtureJSON decodes name from fsys into dest. Unknown fields fail the
// test, so fixtures cannot drift from the models they seed.
func FixtureJSON(t testing.TB, fsys fs.FS, name string, dest any) {
	t.Helper()

	dec := json.NewDecoder(bytes.NewReader(Fixture(t, fsys, name)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		t.Fatalf("failed to decode fixture %s: %v", name, err)
	}
}
