package rpm

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func builtPackage(t *testing.T) string {
	t.Helper()
	b := newTestBuilder()
	require.NoError(t, b.AddFile("/usr/bin/pkg", scriptContent, 0755))
	path, err := b.Build(t.TempDir())
	require.NoError(t, err)
	return path
}

func TestOpenRoutesBySection(t *testing.T) {
	p, err := Open(builtPackage(t))
	require.NoError(t, err)
	defer p.Close()

	// both ids are 1000
	size, err := p.Int32(SigSize)
	require.NoError(t, err)
	assert.Equal(t, uint32(p.Size()-p.HeaderOffset()), size)

	name, err := p.String(TagName)
	require.NoError(t, err)
	assert.Equal(t, "pkg", name)

	assert.Equal(t, LeadSize, p.SignatureOffset())
	assert.Greater(t, p.PayloadOffset(), p.HeaderOffset())
}

func TestTagNotFound(t *testing.T) {
	p, err := Open(builtPackage(t))
	require.NoError(t, err)
	defer p.Close()

	_, err = p.String(TagURL)
	assert.True(t, IsKind(err, ErrTagNotFound), "got %v", err)

	_, err = p.Binary(SigRSA)
	assert.True(t, IsKind(err, ErrTagNotFound), "got %v", err)
}

func TestOpenRejectsOtherFiles(t *testing.T) {
	dir := t.TempDir()

	_, err := Open(filepath.Join(dir, "missing.rpm"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	short := filepath.Join(dir, "short.rpm")
	require.NoError(t, os.WriteFile(short, []byte("tiny"), 0644))
	_, err = Open(short)
	assert.True(t, IsKind(err, ErrTruncated), "got %v", err)

	text := filepath.Join(dir, "text.rpm")
	require.NoError(t, os.WriteFile(text, bytes.Repeat([]byte("not a package "), 20), 0644))
	_, err = Open(text)
	assert.True(t, IsKind(err, ErrBadMagic), "got %v", err)
}

func TestParseCorruptSections(t *testing.T) {
	raw, err := os.ReadFile(builtPackage(t))
	require.NoError(t, err)

	p, err := Parse(raw)
	require.NoError(t, err)

	badHeader := append([]byte{}, raw...)
	badHeader[p.HeaderOffset()] = 0
	_, err = Parse(badHeader)
	assert.True(t, IsKind(err, ErrBadMagic), "got %v", err)

	badSig := append([]byte{}, raw...)
	badSig[LeadSize+2] = 0
	_, err = Parse(badSig)
	assert.True(t, IsKind(err, ErrBadMagic), "got %v", err)
}

func TestVerifyDigestDetectsTampering(t *testing.T) {
	raw, err := os.ReadFile(builtPackage(t))
	require.NoError(t, err)

	p, err := Parse(raw)
	require.NoError(t, err)
	require.NoError(t, p.VerifyDigest())

	tampered := append([]byte{}, raw...)
	tampered[len(tampered)-1] ^= 0xff
	p, err = Parse(tampered)
	require.NoError(t, err)
	err = p.VerifyDigest()
	assert.True(t, IsKind(err, ErrDigestMismatch), "got %v", err)

	truncated := raw[:len(raw)-1]
	p, err = Parse(truncated)
	require.NoError(t, err)
	err = p.VerifyDigest()
	assert.True(t, IsKind(err, ErrDigestMismatch), "got %v", err)
}

func TestPayloadIncludesTrailer(t *testing.T) {
	p, err := Open(builtPackage(t))
	require.NoError(t, err)
	defer p.Close()

	entries, err := p.Payload()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "./usr/bin/pkg", entries[0].Name)
	assert.Equal(t, uint32(0100755), entries[0].Mode)
	assert.True(t, entries[1].IsTrailer())

	n, err := p.FileCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = p.FileContent("/usr/bin/none")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConcurrentReads(t *testing.T) {
	p, err := Open(builtPackage(t))
	require.NoError(t, err)
	defer p.Close()

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.FileContent("/usr/bin/pkg"); err != nil {
				errs <- err
			}
			if _, err := p.String(TagName); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestDump(t *testing.T) {
	p, err := Open(builtPackage(t))
	require.NoError(t, err)
	defer p.Close()

	var buf bytes.Buffer
	require.NoError(t, p.Dump(&buf))
	out := buf.String()
	assert.Contains(t, out, "signature section")
	assert.Contains(t, out, "RPMSIGTAG_MD5")
	assert.Contains(t, out, "RPMTAG_NAME")
	assert.Contains(t, out, `["pkg"]`)

	buf.Reset()
	require.NoError(t, p.Dump(&buf, TagName, SigMD5))
	out = buf.String()
	assert.Contains(t, out, "RPMTAG_NAME")
	assert.Contains(t, out, "RPMSIGTAG_MD5")
	assert.NotContains(t, out, "RPMTAG_VERSION")
	// SIG SIZE shares id 1000 with NAME but lives in the other section
	assert.NotContains(t, out, "RPMSIGTAG_SIZE")
}
