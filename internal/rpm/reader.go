package rpm

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/ralt/rpmkit/internal/cpio"
	"github.com/ralt/rpmkit/internal/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Package is a decoded package file. Accessors are safe for concurrent use.
type Package struct {
	data   []byte
	mapped bool

	lead      Lead
	signature *IndexTable
	header    *IndexTable

	signatureOffset int
	headerOffset    int
	payloadOffset   int

	payloadOnce    sync.Once
	payloadEntries []*cpio.Entry
	payloadErr     error
}

// Open maps the file at path read-only and decodes its sections. The
// mapping is released by Close, or immediately if decoding fails.
func Open(path string) (*Package, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() < LeadSize {
		return nil, newError(ErrTruncated, path, "%d bytes is shorter than a lead", info.Size())
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(info.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("failed to map %s: %w", path, err)
	}

	p, err := Parse(data)
	if err != nil {
		unix.Munmap(data)
		return nil, err
	}
	p.mapped = true

	logrus.Debugf("Mapped %s: signature at %d, header at %d, payload at %d", path, p.signatureOffset, p.headerOffset, p.payloadOffset)
	return p, nil
}

// Parse decodes a package held in memory. The returned Package refers to
// data, which must not be modified.
func Parse(data []byte) (*Package, error) {
	lead, err := DecodeLead(data)
	if err != nil {
		return nil, err
	}

	p := &Package{data: data, lead: lead, signatureOffset: LeadSize}

	var n int
	p.signature, n, err = ParseIndexTable(data[p.signatureOffset:], SectionSignature)
	if err != nil {
		return nil, err
	}

	p.headerOffset = align8(p.signatureOffset + n)
	if p.headerOffset > len(data) {
		return nil, newError(ErrTruncated, "", "no header after signature section")
	}
	p.header, n, err = ParseIndexTable(data[p.headerOffset:], SectionHeader)
	if err != nil {
		return nil, err
	}
	p.payloadOffset = p.headerOffset + n

	return p, nil
}

func align8(n int) int {
	return (n + 7) &^ 7
}

// Close releases the mapping. The Package must not be used afterwards.
func (p *Package) Close() error {
	if !p.mapped {
		return nil
	}
	p.mapped = false
	return unix.Munmap(p.data)
}

// Lead returns the decoded lead.
func (p *Package) Lead() Lead { return p.lead }

// Signature returns the signature section.
func (p *Package) Signature() *IndexTable { return p.signature }

// Header returns the main header section.
func (p *Package) Header() *IndexTable { return p.header }

// SignatureOffset is the file offset of the signature section.
func (p *Package) SignatureOffset() int { return p.signatureOffset }

// HeaderOffset is the file offset of the header, after padding.
func (p *Package) HeaderOffset() int { return p.headerOffset }

// PayloadOffset is where the compressed payload starts.
func (p *Package) PayloadOffset() int { return p.payloadOffset }

// Size returns the file size in bytes.
func (p *Package) Size() int { return len(p.data) }

// HeaderBytes returns the raw header section, as covered by the digests.
func (p *Package) HeaderBytes() []byte { return p.data[p.headerOffset:p.payloadOffset] }

// CompressedPayload returns the payload as stored.
func (p *Package) CompressedPayload() []byte { return p.data[p.payloadOffset:] }

// table picks the section tag lives in. Tags valid in both sections are
// looked up in the header first.
func (p *Package) table(tag Tag) *IndexTable {
	switch tag.Scope {
	case ScopeSignature:
		return p.signature
	case ScopeHeader:
		return p.header
	}
	if !p.header.Has(tag) && p.signature.Has(tag) {
		return p.signature
	}
	return p.header
}

// Get returns the decoded value of tag.
func (p *Package) Get(tag Tag) (Value, error) { return p.table(tag).Get(tag) }

// Has reports whether tag is present.
func (p *Package) Has(tag Tag) bool { return p.table(tag).Has(tag) }

// Typed getters resolve the section the same way Get does.
func (p *Package) Int16(tag Tag) (uint16, error)         { return p.table(tag).Int16(tag) }
func (p *Package) Int32(tag Tag) (uint32, error)         { return p.table(tag).Int32(tag) }
func (p *Package) String(tag Tag) (string, error)        { return p.table(tag).String(tag) }
func (p *Package) Int16Array(tag Tag) ([]uint16, error)  { return p.table(tag).Int16Array(tag) }
func (p *Package) Int32Array(tag Tag) ([]uint32, error)  { return p.table(tag).Int32Array(tag) }
func (p *Package) StringArray(tag Tag) ([]string, error) { return p.table(tag).StringArray(tag) }
func (p *Package) Binary(tag Tag) ([]byte, error)        { return p.table(tag).Binary(tag) }

// Provides lists the provided capabilities.
func (p *Package) Provides() ([]Dependency, error) { return provides.list(p.header) }

// Requires lists the package requirements.
func (p *Package) Requires() ([]Dependency, error) { return requires.list(p.header) }

// Conflicts and Obsoletes list the packages this one excludes or replaces.
func (p *Package) Conflicts() ([]Dependency, error) { return conflicts.list(p.header) }
func (p *Package) Obsoletes() ([]Dependency, error) { return obsoletes.list(p.header) }

// Files returns the installed path of every file, rebuilt from the
// directory, index and base name arrays. Packages using the older flat
// file name array are also understood.
func (p *Package) Files() ([]string, error) {
	if !p.header.Has(TagBaseNames) {
		if p.header.Has(TagOldFilenames) {
			return p.header.StringArray(TagOldFilenames)
		}
		return nil, nil
	}

	dirs, err := p.header.StringArray(TagDirNames)
	if err != nil {
		return nil, err
	}
	indexes, err := p.header.Int32Array(TagDirIndexes)
	if err != nil {
		return nil, err
	}
	bases, err := p.header.StringArray(TagBaseNames)
	if err != nil {
		return nil, err
	}
	if len(indexes) != len(bases) {
		return nil, newError(ErrInvalidValue, TagDirIndexes.Name, "%d indexes for %d base names", len(indexes), len(bases))
	}

	files := make([]string, len(bases))
	for i, base := range bases {
		if int(indexes[i]) >= len(dirs) {
			return nil, newError(ErrInvalidValue, TagDirIndexes.Name, "index %d out of %d directories", indexes[i], len(dirs))
		}
		files[i] = dirs[indexes[i]] + base
	}
	return files, nil
}

// FileCount returns the number of user-visible files.
func (p *Package) FileCount() (int, error) {
	files, err := p.Files()
	return len(files), err
}

// Payload decompresses and unframes the payload. The result includes the
// trailer entry and is computed once.
func (p *Package) Payload() ([]*cpio.Entry, error) {
	p.payloadOnce.Do(func() {
		compressor := utils.CompressorGzip
		if p.header.Has(TagPayloadCompressor) {
			compressor, _ = p.header.String(TagPayloadCompressor)
		}
		r, err := utils.NewPayloadReader(bytes.NewReader(p.CompressedPayload()), compressor)
		if err != nil {
			p.payloadErr = fmt.Errorf("failed to open %s payload: %w", compressor, err)
			return
		}
		defer r.Close()
		p.payloadEntries, p.payloadErr = cpio.ReadAll(r)
	})
	return p.payloadEntries, p.payloadErr
}

// ArchiveEntryCount returns the number of payload entries, trailer included.
func (p *Package) ArchiveEntryCount() (int, error) {
	entries, err := p.Payload()
	return len(entries), err
}

// FileContent returns the payload data of the file installed at path.
func (p *Package) FileContent(path string) ([]byte, error) {
	entries, err := p.Payload()
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.IsTrailer() {
			break
		}
		if strings.TrimPrefix(e.Name, ".") == path {
			return e.Data, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", path, os.ErrNotExist)
}

// VerifyDigest recomputes the size, MD5 and, when present, SHA-1 values
// of the signature section.
func (p *Package) VerifyDigest() error {
	signed := p.data[p.headerOffset:]

	size, err := p.signature.Int32(SigSize)
	if err != nil {
		return err
	}
	if int(size) != len(signed) {
		return newError(ErrDigestMismatch, SigSize.Name, "records %d bytes, have %d", size, len(signed))
	}

	want, err := p.signature.Binary(SigMD5)
	if err != nil {
		return err
	}
	if got := utils.SumParts("md5", signed); !bytes.Equal(got, want) {
		return newError(ErrDigestMismatch, SigMD5.Name, "records %x, computed %x", want, got)
	}

	if p.signature.Has(SigSHA1) {
		want, err := p.signature.String(SigSHA1)
		if err != nil {
			return err
		}
		if got := hex.EncodeToString(utils.SumParts("sha1", p.HeaderBytes())); got != want {
			return newError(ErrDigestMismatch, SigSHA1.Name, "records %s, computed %s", want, got)
		}
	}
	return nil
}

// Dump writes a listing of both sections. When tags are given, only their
// records are listed.
func (p *Package) Dump(w io.Writer, only ...Tag) error {
	fmt.Fprintf(w, "lead: %d.%d type=%d arch=%d os=%d sigtype=%d name=%q\n",
		p.lead.Major, p.lead.Minor, p.lead.Type, p.lead.ArchNum, p.lead.OSNum, p.lead.SignatureType, p.lead.Name)
	for _, t := range []*IndexTable{p.signature, p.header} {
		fmt.Fprintf(w, "%s section (%d records):\n", t.Section(), t.Len())
		records := t.Records()
		for i, tag := range t.Tags() {
			if !selected(tag, t.Section(), only) {
				continue
			}
			v, _ := t.Get(tag)
			rec := records[i]
			if _, err := fmt.Fprintf(w, "  %-28s %-12s off=%-6d n=%-4d %s\n", tag.Name, rec.Type, rec.Offset, rec.Count, formatValue(v)); err != nil {
				return err
			}
		}
	}
	return nil
}

func selected(tag Tag, section Section, only []Tag) bool {
	if len(only) == 0 {
		return true
	}
	for _, o := range only {
		if o.ID == tag.ID && o.Scope.Allows(section) {
			return true
		}
	}
	return false
}

func formatValue(v Value) string {
	const limit = 8
	switch val := v.(type) {
	case Binary:
		return hex.EncodeToString(val)
	case Chars:
		return fmt.Sprintf("%q", string(val))
	case Strings:
		if len(val) > limit {
			return fmt.Sprintf("%q ... (%d)", []string(val[:limit]), len(val))
		}
		return fmt.Sprintf("%q", []string(val))
	case Int16s:
		if len(val) > limit {
			return fmt.Sprintf("%o ... (%d)", []uint16(val[:limit]), len(val))
		}
		return fmt.Sprintf("%o", []uint16(val))
	case Int32s:
		if len(val) > limit {
			return fmt.Sprintf("%d ... (%d)", []uint32(val[:limit]), len(val))
		}
		return fmt.Sprintf("%d", []uint32(val))
	case Int64s:
		return fmt.Sprintf("%d", []uint64(val))
	}
	return ""
}
