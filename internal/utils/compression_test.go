package utils

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("070701 payload bytes "), 512)
	magic := map[string][]byte{
		CompressorGzip: {0x1f, 0x8b},
		CompressorXz:   {0xfd, '7', 'z', 'X', 'Z', 0x00},
		CompressorZstd: {0x28, 0xb5, 0x2f, 0xfd},
	}

	for compressor, prefix := range magic {
		t.Run(compressor, func(t *testing.T) {
			compressed, err := CompressPayload(data, compressor)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(compressed, prefix))
			assert.Less(t, len(compressed), len(data))

			r, err := NewPayloadReader(bytes.NewReader(compressed), compressor)
			require.NoError(t, err)
			defer r.Close()
			out, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, data, out)
		})
	}
}

func TestPayloadFlags(t *testing.T) {
	for compressor, want := range map[string]string{"gzip": "9", "xz": "6", "zstd": "11"} {
		got, err := PayloadFlags(compressor)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := PayloadFlags("bzip2")
	assert.Error(t, err)
}

func TestUnsupportedCompressor(t *testing.T) {
	_, err := CompressPayload([]byte("x"), "lzma")
	assert.Error(t, err)
	_, err = NewPayloadReader(bytes.NewReader([]byte("x")), "lzma")
	assert.Error(t, err)
	_, err = NewPayloadReader(bytes.NewReader([]byte("not gzip")), CompressorGzip)
	assert.Error(t, err)
}
