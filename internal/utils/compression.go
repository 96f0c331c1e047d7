package utils

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Payload compressor names as stored in RPMTAG_PAYLOADCOMPRESSOR
const (
	CompressorGzip = "gzip"
	CompressorXz   = "xz"
	CompressorZstd = "zstd"
)

// PayloadFlags returns the RPMTAG_PAYLOADFLAGS value for a compressor
func PayloadFlags(compressor string) (string, error) {
	switch compressor {
	case CompressorGzip:
		return "9", nil
	case CompressorXz:
		return "6", nil
	case CompressorZstd:
		return "11", nil
	default:
		return "", fmt.Errorf("unsupported payload compressor %q", compressor)
	}
}

// NewPayloadWriter wraps w in the named compressor
func NewPayloadWriter(w io.Writer, compressor string) (io.WriteCloser, error) {
	switch compressor {
	case CompressorGzip:
		return gzip.NewWriterLevel(w, gzip.BestCompression)
	case CompressorXz:
		return xz.NewWriter(w)
	case CompressorZstd:
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	default:
		return nil, fmt.Errorf("unsupported payload compressor %q", compressor)
	}
}

// NewPayloadReader wraps r in the named decompressor
func NewPayloadReader(r io.Reader, compressor string) (io.ReadCloser, error) {
	switch compressor {
	case CompressorGzip:
		return gzip.NewReader(r)
	case CompressorXz:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(xr), nil
	case CompressorZstd:
		d, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return d.IOReadCloser(), nil
	default:
		return nil, fmt.Errorf("unsupported payload compressor %q", compressor)
	}
}

// CompressPayload compresses data in one go
func CompressPayload(data []byte, compressor string) ([]byte, error) {
	var buf bytes.Buffer
	w, err := NewPayloadWriter(&buf, compressor)
	if err != nil {
		return nil, err
	}

	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
