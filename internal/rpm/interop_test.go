package rpm

import (
	"os"
	"sort"
	"testing"

	rpmutils "github.com/sassoftware/go-rpmutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Packages must be readable by an independent implementation.
func TestReadableByRpmutils(t *testing.T) {
	b := newTestBuilder()
	b.SetURL("https://example.com/pkg")
	b.AddRequires("bash", "4.0", SenseGreater|SenseEqual)
	require.NoError(t, b.AddFile("/usr/bin/pkg", scriptContent, 0755))
	require.NoError(t, b.AddFile("/etc/pkg.conf", []byte("key=value\n"), 0644))
	path, err := b.Build(t.TempDir())
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	pkg, err := rpmutils.ReadRpm(f)
	require.NoError(t, err)

	name, err := pkg.Header.GetString(rpmutils.NAME)
	require.NoError(t, err)
	assert.Equal(t, "pkg", name)

	version, err := pkg.Header.GetString(rpmutils.VERSION)
	require.NoError(t, err)
	assert.Equal(t, "1.0", version)

	url, err := pkg.Header.GetString(rpmutils.URL)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/pkg", url)

	requires, err := pkg.Header.GetStrings(rpmutils.REQUIRENAME)
	require.NoError(t, err)
	assert.Contains(t, requires, "bash")

	files, err := pkg.Header.GetFiles()
	require.NoError(t, err)
	require.Len(t, files, 2)

	var names []string
	for _, fi := range files {
		names = append(names, fi.Name())
		if fi.Name() == "/usr/bin/pkg" {
			assert.Equal(t, int64(len(scriptContent)), fi.Size())
			assert.Len(t, fi.Digest(), 32)
		}
	}
	sort.Strings(names)
	assert.Equal(t, []string{"/etc/pkg.conf", "/usr/bin/pkg"}, names)
}
