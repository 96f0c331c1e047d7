package rpm

import (
	"crypto/md5"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scriptContent = []byte("#!/bin/sh\necho hi\n")

func newTestBuilder(opts ...Option) *Builder {
	b := NewBuilder(opts...)
	b.SetName("pkg")
	b.SetVersion("1.0")
	b.SetRelease("1")
	b.SetSummary("A test package")
	b.SetDescription("A package used by the tests")
	b.SetLicense("MIT")
	b.SetGroup("Applications/System")
	b.SetOS("linux")
	b.SetArch("noarch")
	return b
}

func buildAndOpen(t *testing.T, b *Builder) (*Package, string) {
	t.Helper()
	path, err := b.Build(t.TempDir())
	require.NoError(t, err)

	p, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p, path
}

func TestBuildScenario(t *testing.T) {
	b := newTestBuilder()
	require.NoError(t, b.AddFile("/usr/bin/pkg", scriptContent, 0755))

	p, path := buildAndOpen(t, b)
	assert.Equal(t, "pkg-1.0-1.rpm", filepath.Base(path))

	count, err := p.ArchiveEntryCount()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	files, err := p.Files()
	require.NoError(t, err)
	assert.Equal(t, []string{"/usr/bin/pkg"}, files)

	content, err := p.FileContent("/usr/bin/pkg")
	require.NoError(t, err)
	assert.Equal(t, scriptContent, content)

	sum := md5.Sum(scriptContent)
	digests, err := p.StringArray(TagFileMD5s)
	require.NoError(t, err)
	assert.Equal(t, []string{hex.EncodeToString(sum[:])}, digests)

	modes, err := p.Int16Array(TagFileModes)
	require.NoError(t, err)
	assert.Equal(t, []uint16{0100755}, modes)

	assert.Equal(t, "pkg-1.0-1", p.Lead().Name)
	require.NoError(t, p.VerifyDigest())
}

func TestBuildMetadataRoundTrip(t *testing.T) {
	buildTime := time.Unix(1700000000, 0)
	b := newTestBuilder(WithBuildTime(buildTime), WithBuildHost("builder.example.com"))
	b.SetURL("https://example.com/pkg")
	b.SetVendor("Example")
	b.SetPackager("Jane Doe <jane@example.com>")
	require.NoError(t, b.AddFile("/usr/bin/pkg", scriptContent, 0755))

	p, _ := buildAndOpen(t, b)

	for tag, want := range map[Tag]string{
		TagName:              "pkg",
		TagVersion:           "1.0",
		TagRelease:           "1",
		TagSummary:           "A test package",
		TagDescription:       "A package used by the tests",
		TagLicense:           "MIT",
		TagGroup:             "Applications/System",
		TagOS:                "linux",
		TagArch:              "noarch",
		TagURL:               "https://example.com/pkg",
		TagVendor:            "Example",
		TagPackager:          "Jane Doe <jane@example.com>",
		TagBuildHost:         "builder.example.com",
		TagPayloadFormat:     "cpio",
		TagPayloadCompressor: "gzip",
		TagPayloadFlags:      "9",
	} {
		got, err := p.String(tag)
		require.NoError(t, err, tag.Name)
		assert.Equal(t, want, got, tag.Name)
	}

	bt, err := p.Int32(TagBuildTime)
	require.NoError(t, err)
	assert.Equal(t, uint32(1700000000), bt)

	i18n, err := p.StringArray(TagHeaderI18NTable)
	require.NoError(t, err)
	assert.Equal(t, []string{"C"}, i18n)

	size, err := p.Int32(TagSize)
	require.NoError(t, err)
	assert.Equal(t, uint32(len(scriptContent)), size)
}

func TestBuildRequiredTagMissing(t *testing.T) {
	b := NewBuilder()
	b.SetName("pkg")
	b.SetVersion("1.0")
	b.SetRelease("1")
	b.SetSummary("s")
	b.SetDescription("d")
	b.SetGroup("g")
	b.SetOS("linux")
	b.SetArch("noarch")
	require.NoError(t, b.AddFile("/usr/bin/pkg", scriptContent, 0755))

	dir := t.TempDir()
	_, err := b.Build(dir)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrRequiredTagMissing), "got %v", err)
	assert.Contains(t, err.Error(), "RPMTAG_LICENSE")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing may be written when validation fails")
}

func TestBuildWithoutFilesFails(t *testing.T) {
	_, err := newTestBuilder().Build(t.TempDir())
	assert.True(t, IsKind(err, ErrRequiredTagMissing), "got %v", err)
}

func TestBuildIsSingleUse(t *testing.T) {
	b := newTestBuilder()
	require.NoError(t, b.AddFile("/usr/bin/pkg", scriptContent, 0755))
	_, err := b.Build(t.TempDir())
	require.NoError(t, err)

	_, err = b.Build(t.TempDir())
	assert.Error(t, err)
	assert.Error(t, b.AddFile("/usr/bin/other", nil, 0644))
}

func TestDirectoryNamesAreShared(t *testing.T) {
	b := newTestBuilder()
	require.NoError(t, b.AddFile("/usr/bin/a", []byte("a"), 0755))
	require.NoError(t, b.AddFile("/etc/c.conf", []byte("c"), 0644))
	require.NoError(t, b.AddFile("/usr/bin/b", []byte("b"), 0755))

	dirs, err := b.Header().StringArray(TagDirNames)
	require.NoError(t, err)
	assert.Equal(t, []string{"/usr/bin/", "/etc/"}, dirs)

	indexes, err := b.Header().Int32Array(TagDirIndexes)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1, 0}, indexes)

	bases, err := b.Header().StringArray(TagBaseNames)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c.conf", "b"}, bases)

	p, _ := buildAndOpen(t, b)
	files, err := p.Files()
	require.NoError(t, err)
	assert.Equal(t, []string{"/usr/bin/a", "/etc/c.conf", "/usr/bin/b"}, files)
}

func TestMissingDirectory(t *testing.T) {
	b := newTestBuilder()
	err := b.AddFile("pkg", scriptContent, 0755)
	assert.True(t, IsKind(err, ErrMissingDirectory), "got %v", err)
}

func TestFileBuilderSingleUse(t *testing.T) {
	b := newTestBuilder()
	fb := b.NewFile("/usr/share/doc/pkg/README", []byte("read me")).Flags(FileDoc|FileReadme).Owner("pkg", "pkg")
	require.NoError(t, fb.Build())

	err := fb.Build()
	assert.True(t, IsKind(err, ErrFileBuilt), "got %v", err)

	fb.Mode(0600)
	assert.True(t, IsKind(fb.Build(), ErrFileBuilt))

	flags, err := b.Header().Int32Array(TagFileFlags)
	require.NoError(t, err)
	assert.Equal(t, []uint32{uint32(FileDoc | FileReadme)}, flags)

	users, err := b.Header().StringArray(TagFileUserName)
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg"}, users)
}

func countOf(values []string, want string) int {
	n := 0
	for _, v := range values {
		if v == want {
			n++
		}
	}
	return n
}

func TestVersionedDependencyRequirement(t *testing.T) {
	b := newTestBuilder()
	b.AddRequires("libfoo", "", SenseAny)

	names, err := b.Header().StringArray(TagRequireName)
	require.NoError(t, err)
	assert.Equal(t, 0, countOf(names, "rpmlib(VersionedDependencies)"))

	b.AddRequires("libbar", "1.2", SenseGreater|SenseEqual)
	b.AddConflicts("oldpkg", "0.9", SenseLess)

	names, err = b.Header().StringArray(TagRequireName)
	require.NoError(t, err)
	assert.Equal(t, 1, countOf(names, "rpmlib(VersionedDependencies)"))

	require.NoError(t, b.AddFile("/usr/bin/pkg", scriptContent, 0755))
	p, _ := buildAndOpen(t, b)

	reqs, err := p.Requires()
	require.NoError(t, err)
	assert.Contains(t, reqs, Dependency{"rpmlib(VersionedDependencies)", "3.0.3-1", SenseEqual | SenseLess | SenseRPMLib})
	assert.Contains(t, reqs, Dependency{"rpmlib(CompressedFileNames)", "3.0.4-1", SenseEqual | SenseLess | SenseRPMLib})
	assert.Contains(t, reqs, Dependency{"libbar", "1.2", SenseGreater | SenseEqual})

	provs, err := p.Provides()
	require.NoError(t, err)
	assert.Equal(t, []Dependency{{"pkg", "1.0", SenseEqual}}, provs)

	conflicts, err := p.Conflicts()
	require.NoError(t, err)
	assert.Equal(t, []Dependency{{"oldpkg", "0.9", SenseLess}}, conflicts)
}

func TestScriptletsRequireShell(t *testing.T) {
	b := newTestBuilder()
	b.SetPostInstall("ldconfig")
	b.SetPreUninstall("echo bye")

	prog, err := b.Header().String(TagPostInProg)
	require.NoError(t, err)
	assert.Equal(t, "/bin/sh", prog)

	names, err := b.Header().StringArray(TagRequireName)
	require.NoError(t, err)
	assert.Equal(t, 1, countOf(names, "/bin/sh"))

	versions, err := b.Header().StringArray(TagRequireVersion)
	require.NoError(t, err)
	assert.Equal(t, []string{""}, versions)
}

func TestHeaderSectionIsAligned(t *testing.T) {
	for _, name := range []string{"p", "pk", "pkg", "pkg-with-longer-name"} {
		b := newTestBuilder()
		b.SetName(name)
		require.NoError(t, b.AddFile("/usr/bin/"+name, scriptContent, 0755))

		p, _ := buildAndOpen(t, b)
		assert.Equal(t, 0, p.HeaderOffset()%8, name)
		assert.LessOrEqual(t, p.HeaderOffset()-(p.SignatureOffset()+sectionSize(p.Signature())), 7)
	}
}

func sectionSize(t *IndexTable) int {
	data, _ := t.Serialize()
	return len(data)
}

func TestDigestCoversHeaderAndPayload(t *testing.T) {
	b := newTestBuilder()
	require.NoError(t, b.AddFile("/usr/bin/pkg", scriptContent, 0755))
	p, path := buildAndOpen(t, b)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	want := md5.Sum(raw[p.HeaderOffset():])
	got, err := p.Binary(SigMD5)
	require.NoError(t, err)
	assert.Equal(t, want[:], got)

	size, err := p.Int32(SigSize)
	require.NoError(t, err)
	assert.Equal(t, uint32(len(raw)-p.HeaderOffset()), size)
}

func TestPayloadCompressors(t *testing.T) {
	for _, c := range []string{"gzip", "xz", "zstd"} {
		t.Run(c, func(t *testing.T) {
			b := newTestBuilder(WithCompressor(c))
			require.NoError(t, b.AddFile("/usr/bin/pkg", scriptContent, 0755))
			p, _ := buildAndOpen(t, b)

			got, err := p.String(TagPayloadCompressor)
			require.NoError(t, err)
			assert.Equal(t, c, got)

			content, err := p.FileContent("/usr/bin/pkg")
			require.NoError(t, err)
			assert.Equal(t, scriptContent, content)
			require.NoError(t, p.VerifyDigest())
		})
	}
}

func TestUnknownCompressor(t *testing.T) {
	b := newTestBuilder(WithCompressor("lz4"))
	require.NoError(t, b.AddFile("/usr/bin/pkg", scriptContent, 0755))
	_, err := b.Build(t.TempDir())
	assert.True(t, IsKind(err, ErrInvalidValue), "got %v", err)
}

func TestDirectoriesAndSymlinks(t *testing.T) {
	b := newTestBuilder()
	require.NoError(t, b.AddDirectory("/opt/pkg/", 0755))
	require.NoError(t, b.AddFile("/opt/pkg/run", scriptContent, 0755))
	require.NoError(t, b.AddSymlink("/usr/bin/pkg", "/opt/pkg/run"))

	p, _ := buildAndOpen(t, b)

	files, err := p.Files()
	require.NoError(t, err)
	assert.Equal(t, []string{"/opt/pkg", "/opt/pkg/run", "/usr/bin/pkg"}, files)

	modes, err := p.Int16Array(TagFileModes)
	require.NoError(t, err)
	assert.Equal(t, []uint16{040755, 0100755, 0120777}, modes)

	links, err := p.StringArray(TagFileLinkTos)
	require.NoError(t, err)
	assert.Equal(t, []string{"", "", "/opt/pkg/run"}, links)

	digests, err := p.StringArray(TagFileMD5s)
	require.NoError(t, err)
	assert.Empty(t, digests[0])
	assert.NotEmpty(t, digests[1])
	assert.Empty(t, digests[2])

	target, err := p.FileContent("/usr/bin/pkg")
	require.NoError(t, err)
	assert.Equal(t, []byte("/opt/pkg/run"), target)

	inodes, err := p.Int32Array(TagFileInodes)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2, 3}, inodes)
}

func TestAddFileFromPath(t *testing.T) {
	src := filepath.Join(t.TempDir(), "tool")
	require.NoError(t, os.WriteFile(src, scriptContent, 0750))
	mtime := time.Unix(1600000000, 0)
	require.NoError(t, os.Chtimes(src, mtime, mtime))

	b := newTestBuilder()
	fb, err := b.NewFileFromPath("/usr/libexec/pkg/tool", src)
	require.NoError(t, err)
	require.NoError(t, fb.Build())

	modes, err := b.Header().Int16Array(TagFileModes)
	require.NoError(t, err)
	assert.Equal(t, []uint16{0100750}, modes)

	mtimes, err := b.Header().Int32Array(TagFileMtimes)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1600000000}, mtimes)
}

func TestChangelogAndObsoletes(t *testing.T) {
	b := newTestBuilder()
	b.AddChangelog(time.Unix(1700000000, 0), "Jane Doe <jane@example.com> - 1.0-1", "- Initial package")
	b.AddObsoletes("pkg-legacy", "", SenseAny)
	require.NoError(t, b.AddFile("/usr/bin/pkg", scriptContent, 0755))

	p, _ := buildAndOpen(t, b)

	text, err := p.StringArray(TagChangelogText)
	require.NoError(t, err)
	assert.Equal(t, []string{"- Initial package"}, text)

	obs, err := p.Obsoletes()
	require.NoError(t, err)
	assert.Equal(t, []Dependency{{"pkg-legacy", "", SenseAny}}, obs)
}

type fakeSigner struct {
	rsa   bool
	calls int
}

func (s *fakeSigner) SignDetached(data []byte) ([]byte, error) {
	s.calls++
	sum := md5.Sum(data)
	return sum[:], nil
}

func (s *fakeSigner) IsRSA() bool {
	return s.rsa
}

func TestSignatureTags(t *testing.T) {
	for _, rsa := range []bool{true, false} {
		signer := &fakeSigner{rsa: rsa}
		b := newTestBuilder(WithSigner(signer))
		require.NoError(t, b.AddFile("/usr/bin/pkg", scriptContent, 0755))
		p, _ := buildAndOpen(t, b)

		assert.Equal(t, 2, signer.calls)
		headerTag, fullTag := SigDSA, SigGPG
		if rsa {
			headerTag, fullTag = SigRSA, SigPGP
		}

		headerSig, err := p.Binary(headerTag)
		require.NoError(t, err)
		want := md5.Sum(p.HeaderBytes())
		assert.Equal(t, want[:], headerSig)

		_, err = p.Binary(fullTag)
		require.NoError(t, err)
		require.NoError(t, p.VerifyDigest())
	}
}
