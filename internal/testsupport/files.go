package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile fills the target path with size bytes of a repeating pattern
// starting at seed, so files written with different seeds can be told apart
// after concatenation. A negative size is treated as zero.
func WriteFile(t testing.TB, path string, size int64, seed byte) []byte {
	t.Helper()

	if size < 0 {
		size = 0
	}
	data := make([]byte, size)
	for i := range data {
		data[i] = seed + byte(i%251)
	}
	WriteBytes(t, path, data)
	return data
}

// WriteBytes writes data to path, creating parent directories.
func WriteBytes(t testing.TB, path string, data []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// MakeTitleDir creates root/name and writes the given files into it. Keys
// are file names; values are file contents.
func MakeTitleDir(t testing.TB, root, name string, files map[string][]byte) string {
	t.Helper()

	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	for fileName, data := range files {
		WriteBytes(t, filepath.Join(dir, fileName), data)
	}
	return dir
}

// ReadFile returns the contents of path or fails the test.
func ReadFile(t testing.TB, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return data
}

// ProductSector returns one raw sector carrying a product code at offset 0x400.
func ProductSector(code string) []byte {
	sector := make([]byte, 2352)
	copy(sector[0x400:], code)
	return sector
}
