package scanner

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// Magic bytes for package detection
var (
	// RPM packages start with 0xED 0xAB 0xEE 0xDB
	rpmMagic = []byte{0xED, 0xAB, 0xEE, 0xDB}

	gzipMagic = []byte{0x1F, 0x8B}
	zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}
	xzMagic   = []byte{0xFD, 0x37, 0x7A, 0x58, 0x5A, 0x00}
)

// ErrNotRPM is returned for inputs that do not start with the RPM lead magic
var ErrNotRPM = errors.New("not an RPM package")

// RequireRPM returns ErrNotRPM unless path starts with the RPM lead magic
func RequireRPM(path string) error {
	typ, err := DetectPackageType(path)
	if err != nil {
		return err
	}
	if typ != TypeRpm {
		return fmt.Errorf("%s: %w", path, ErrNotRPM)
	}
	return nil
}

// DetectPackageType determines the package type from the lead magic bytes.
// The file extension is not consulted.
func DetectPackageType(path string) (PackageType, error) {
	f, err := os.Open(path)
	if err != nil {
		return TypeUnknown, err
	}
	defer f.Close()

	header := make([]byte, len(rpmMagic))
	if _, err := io.ReadFull(f, header); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return TypeUnknown, nil
		}
		return TypeUnknown, err
	}

	if bytes.Equal(header, rpmMagic) {
		return TypeRpm, nil
	}
	return TypeUnknown, nil
}

// DetectCompression names the compressor of a stream from its magic bytes,
// using the names rpm stores in RPMTAG_PAYLOADCOMPRESSOR
func DetectCompression(data []byte) string {
	switch {
	case bytes.HasPrefix(data, gzipMagic):
		return "gzip"
	case bytes.HasPrefix(data, xzMagic):
		return "xz"
	case bytes.HasPrefix(data, zstdMagic):
		return "zstd"
	default:
		return ""
	}
}
