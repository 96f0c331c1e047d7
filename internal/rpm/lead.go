package rpm

import (
	"bytes"
	"encoding/binary"
)

const (
	// LeadSize is the fixed size of the lead.
	LeadSize = 96

	leadNameSize = 66

	// PackageBinary and PackageSource are the lead package types.
	PackageBinary uint16 = 0
	PackageSource uint16 = 1

	// OSLinux is the lead OS number for Linux.
	OSLinux uint16 = 1

	// SignatureHeaderStyle marks a signature section in index table form.
	SignatureHeaderStyle uint16 = 5
)

var leadMagic = []byte{0xed, 0xab, 0xee, 0xdb}

// Lead is the fixed preamble of a package file. Modern tools only check its
// magic; the package identity lives in the header.
type Lead struct {
	Major         byte
	Minor         byte
	Type          uint16
	ArchNum       uint16
	Name          string
	OSNum         uint16
	SignatureType uint16
}

// NewLead returns a version 3.0 binary lead for a Linux package.
func NewLead(name, arch string) Lead {
	return Lead{
		Major:         3,
		Minor:         0,
		Type:          PackageBinary,
		ArchNum:       ArchNumber(arch),
		Name:          name,
		OSNum:         OSLinux,
		SignatureType: SignatureHeaderStyle,
	}
}

// archNumbers follows rpmrc's arch_canon table.
var archNumbers = map[string]uint16{
	"noarch":   0,
	"i386":     1,
	"i486":     1,
	"i586":     1,
	"i686":     1,
	"x86_64":   1,
	"amd64":    1,
	"alpha":    2,
	"sparc":    3,
	"sparc64":  3,
	"mips":     4,
	"ppc":      5,
	"m68k":     6,
	"sgi":      7,
	"rs6000":   8,
	"ia64":     9,
	"mips64":   11,
	"armv7hl":  12,
	"arm":      12,
	"m68kmint": 13,
	"s390":     14,
	"s390x":    15,
	"ppc64":    16,
	"ppc64le":  16,
	"sh":       17,
	"xtensa":   18,
	"aarch64":  19,
	"riscv64":  22,
}

// ArchNumber maps an architecture name to its lead number. Unknown names
// map to 0.
func ArchNumber(arch string) uint16 {
	return archNumbers[arch]
}

// Encode returns the 96 byte on-disk lead.
func (l Lead) Encode() ([]byte, error) {
	if len(l.Name)+1 > leadNameSize {
		return nil, newError(ErrNameTooLong, "lead name", "%q is %d bytes, at most %d fit", l.Name, len(l.Name), leadNameSize-1)
	}

	buf := make([]byte, LeadSize)
	copy(buf[0:4], leadMagic)
	buf[4] = l.Major
	buf[5] = l.Minor
	binary.BigEndian.PutUint16(buf[6:8], l.Type)
	binary.BigEndian.PutUint16(buf[8:10], l.ArchNum)
	copy(buf[10:10+leadNameSize], l.Name)
	binary.BigEndian.PutUint16(buf[76:78], l.OSNum)
	binary.BigEndian.PutUint16(buf[78:80], l.SignatureType)
	return buf, nil
}

// DecodeLead parses the lead at the start of data.
func DecodeLead(data []byte) (Lead, error) {
	if len(data) < LeadSize {
		return Lead{}, newError(ErrTruncated, "lead", "need %d bytes, have %d", LeadSize, len(data))
	}
	if !bytes.Equal(data[0:4], leadMagic) {
		return Lead{}, newError(ErrBadMagic, "lead", "magic % x", data[0:4])
	}

	name := data[10 : 10+leadNameSize]
	n := bytes.IndexByte(name, 0)
	if n < 0 {
		return Lead{}, newError(ErrMissingTerminator, "lead name", "no NUL within %d bytes", leadNameSize)
	}

	return Lead{
		Major:         data[4],
		Minor:         data[5],
		Type:          binary.BigEndian.Uint16(data[6:8]),
		ArchNum:       binary.BigEndian.Uint16(data[8:10]),
		Name:          string(name[:n]),
		OSNum:         binary.BigEndian.Uint16(data[76:78]),
		SignatureType: binary.BigEndian.Uint16(data[78:80]),
	}, nil
}
