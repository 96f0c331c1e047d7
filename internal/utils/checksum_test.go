package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateChecksums(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.WriteFile(path, []byte("hello\n"), 0644))

	sums, err := CalculateChecksums(path)
	require.NoError(t, err)
	assert.Equal(t, int64(6), sums.Size)
	assert.Equal(t, "b1946ac92492d2347c6235b4d2611184", sums.MD5)
	assert.Equal(t, "f572d396fae9206628714fb2ce00f72e94f2258f", sums.SHA1)
	assert.Equal(t, "5891b5b522d5df086d0ff0b110fbd9d21bb4fc7163af34d08286a2e846f6be03", sums.SHA256)

	_, err = CalculateChecksums(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestSumParts(t *testing.T) {
	whole := SumParts("md5", []byte("hello\n"))
	split := SumParts("md5", []byte("hel"), []byte("lo\n"))
	assert.Equal(t, whole, split)
	assert.Len(t, SumParts("sha1", nil), 20)
	assert.Equal(t, "b1946ac92492d2347c6235b4d2611184", CalculateChecksum([]byte("hello\n"), "md5"))
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "pkg-1.0-1.rpm")

	require.NoError(t, WriteFile(path, []byte("first"), 0640))
	require.NoError(t, WriteFile(path, []byte("second"), 0644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files left behind")
}

func TestPackageIdentity(t *testing.T) {
	assert.Equal(t, "pkg-1.0-1.rpm", PackageFileName("pkg", "1.0", "1"))
	assert.Equal(t, "pkg-1.0-1.x86_64", PackageIdentity("pkg", "1.0", "1", "x86_64"))
	assert.Equal(t, "pkg-1.0-1", PackageIdentity("pkg", "1.0", "1", ""))
}
