package rpm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeadRoundTrip(t *testing.T) {
	lead := NewLead("pkg-1.0-1", "x86_64")

	b, err := lead.Encode()
	require.NoError(t, err)
	require.Len(t, b, LeadSize)
	assert.Equal(t, []byte{0xed, 0xab, 0xee, 0xdb, 3, 0}, b[:6])
	assert.Equal(t, []byte{0, 1}, b[76:78], "os number")
	assert.Equal(t, []byte{0, 5}, b[78:80], "signature type")

	got, err := DecodeLead(b)
	require.NoError(t, err)
	assert.Equal(t, lead, got)
	assert.Equal(t, uint16(1), got.ArchNum)
}

func TestLeadNameLength(t *testing.T) {
	_, err := NewLead(strings.Repeat("n", 65), "noarch").Encode()
	require.NoError(t, err)

	_, err = NewLead(strings.Repeat("n", 66), "noarch").Encode()
	assert.True(t, IsKind(err, ErrNameTooLong), "got %v", err)
}

func TestDecodeLeadErrors(t *testing.T) {
	b, err := NewLead("pkg", "noarch").Encode()
	require.NoError(t, err)

	unterminated := append([]byte{}, b...)
	for i := 10; i < 76; i++ {
		unterminated[i] = 'a'
	}
	_, err = DecodeLead(unterminated)
	assert.True(t, IsKind(err, ErrMissingTerminator), "got %v", err)

	badMagic := append([]byte{}, b...)
	badMagic[0] = 0
	_, err = DecodeLead(badMagic)
	assert.True(t, IsKind(err, ErrBadMagic), "got %v", err)

	_, err = DecodeLead(b[:50])
	assert.True(t, IsKind(err, ErrTruncated), "got %v", err)
}

func TestArchNumber(t *testing.T) {
	assert.Equal(t, uint16(0), ArchNumber("noarch"))
	assert.Equal(t, uint16(19), ArchNumber("aarch64"))
	assert.Equal(t, uint16(0), ArchNumber("vax"))
}
