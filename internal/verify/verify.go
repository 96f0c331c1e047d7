// Package verify cross-checks a package file against independent readers.
package verify

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/cavaliergopher/cpio"
	"github.com/ralt/rpmkit/internal/rpm"
	"github.com/ralt/rpmkit/internal/scanner"
	"github.com/ralt/rpmkit/internal/utils"
	rpmutils "github.com/sassoftware/go-rpmutils"
	"github.com/sirupsen/logrus"
)

// Check is the outcome of one verification step
type Check struct {
	Name   string
	OK     bool
	Detail string
}

// Report collects the checks run against one package
type Report struct {
	Path           string
	Identity       string
	Compressor     string
	Files          int
	ArchiveEntries int
	Checks         []Check
}

// Failed returns the checks that did not pass
func (r *Report) Failed() []Check {
	var failed []Check
	for _, c := range r.Checks {
		if !c.OK {
			failed = append(failed, c)
		}
	}
	return failed
}

func (r *Report) add(name string, err error) {
	c := Check{Name: name, OK: err == nil}
	if err != nil {
		c.Detail = err.Error()
		logrus.Debugf("Check %s failed: %v", name, err)
	}
	r.Checks = append(r.Checks, c)
}

// CrossCheck verifies the digests of the package at path, reads its header
// with go-rpmutils and walks its payload with an independent cpio reader.
// The returned error is non-nil when any check fails.
func CrossCheck(path string) (*Report, error) {
	if err := scanner.RequireRPM(path); err != nil {
		return nil, err
	}

	p, err := rpm.Open(path)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	name, _ := p.String(rpm.TagName)
	version, _ := p.String(rpm.TagVersion)
	release, _ := p.String(rpm.TagRelease)
	arch, _ := p.String(rpm.TagArch)

	files, err := p.Files()
	if err != nil {
		return nil, err
	}

	report := &Report{
		Path:     path,
		Identity: utils.PackageIdentity(name, version, release, arch),
		Files:    len(files),
	}

	report.add("digest", p.VerifyDigest())
	report.add("compressor", checkCompressor(p, report))
	report.add("rpmutils", checkRpmutils(path, name, version, release, files))
	report.add("payload", checkPayload(p, files, report))

	if failed := report.Failed(); len(failed) > 0 {
		names := make([]string, len(failed))
		for i, c := range failed {
			names[i] = c.Name
		}
		return report, fmt.Errorf("%s: failed checks: %s", report.Identity, strings.Join(names, ", "))
	}
	return report, nil
}

func checkCompressor(p *rpm.Package, report *Report) error {
	declared := utils.CompressorGzip
	if p.Has(rpm.TagPayloadCompressor) {
		declared, _ = p.String(rpm.TagPayloadCompressor)
	}
	report.Compressor = declared

	detected := scanner.DetectCompression(p.CompressedPayload())
	if detected != declared {
		return fmt.Errorf("header declares %q, payload looks like %q", declared, detected)
	}
	return nil
}

func checkRpmutils(path, name, version, release string, files []string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	pkg, err := rpmutils.ReadRpm(f)
	if err != nil {
		return fmt.Errorf("failed to read RPM: %w", err)
	}

	for tag, want := range map[int]string{
		rpmutils.NAME:    name,
		rpmutils.VERSION: version,
		rpmutils.RELEASE: release,
	} {
		if got := getStringTag(pkg, tag); got != want {
			return fmt.Errorf("tag %d: rpmutils reads %q, want %q", tag, got, want)
		}
	}

	infos, err := pkg.Header.GetFiles()
	if err != nil {
		return fmt.Errorf("failed to list files: %w", err)
	}
	var theirs []string
	for _, fi := range infos {
		theirs = append(theirs, fi.Name())
	}
	ours := append([]string{}, files...)
	sort.Strings(ours)
	sort.Strings(theirs)
	if strings.Join(ours, "\n") != strings.Join(theirs, "\n") {
		return fmt.Errorf("file lists differ: %v vs %v", ours, theirs)
	}
	return nil
}

// getStringTag safely gets a string tag from RPM
func getStringTag(pkg *rpmutils.Rpm, tag int) string {
	val, err := pkg.Header.Get(tag)
	if err != nil {
		return ""
	}

	switch v := val.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	default:
		return fmt.Sprintf("%v", v)
	}

	return ""
}

func checkPayload(p *rpm.Package, files []string, report *Report) error {
	r, err := utils.NewPayloadReader(bytes.NewReader(p.CompressedPayload()), report.Compressor)
	if err != nil {
		return err
	}
	defer r.Close()

	sizes, err := p.Int32Array(rpm.TagFileSizes)
	if err != nil {
		return err
	}
	modes, err := p.Int16Array(rpm.TagFileModes)
	if err != nil {
		return err
	}
	index := make(map[string]int, len(files))
	for i, f := range files {
		index[f] = i
	}

	cr := cpio.NewReader(r)
	seen := 0
	for {
		hdr, err := cr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("cpio: %w", err)
		}
		seen++

		name := "/" + strings.TrimPrefix(strings.TrimPrefix(hdr.Name, "."), "/")
		i, ok := index[name]
		if !ok {
			return fmt.Errorf("payload entry %s is not in the header", hdr.Name)
		}
		if modes[i]&rpm.ModeTypeMask == rpm.ModeRegular && hdr.Size != int64(sizes[i]) {
			return fmt.Errorf("%s: payload has %d bytes, header says %d", files[i], hdr.Size, sizes[i])
		}
	}

	// the trailer is not returned by the reader
	report.ArchiveEntries = seen + 1
	if seen != len(files) {
		return fmt.Errorf("payload holds %d files, header lists %d", seen, len(files))
	}
	return nil
}
