package rpm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupDisambiguatesBySection(t *testing.T) {
	sig, err := Lookup(1000, SectionSignature)
	require.NoError(t, err)
	assert.Equal(t, "RPMSIGTAG_SIZE", sig.Name)
	assert.Equal(t, TypeInt32, sig.Type)

	hdr, err := Lookup(1000, SectionHeader)
	require.NoError(t, err)
	assert.Equal(t, "RPMTAG_NAME", hdr.Name)
	assert.Equal(t, TypeString, hdr.Type)

	// 1004 is the MD5 digest in one section and the summary in the other
	md5, err := Lookup(1004, SectionSignature)
	require.NoError(t, err)
	assert.Equal(t, SigMD5, md5)
	summary, err := Lookup(1004, SectionHeader)
	require.NoError(t, err)
	assert.Equal(t, TagSummary, summary)
}

func TestLookupEitherScope(t *testing.T) {
	for _, s := range []Section{SectionSignature, SectionHeader} {
		tag, err := Lookup(100, s)
		require.NoError(t, err)
		assert.Equal(t, TagHeaderI18NTable, tag)
	}
}

func TestLookupUnknown(t *testing.T) {
	_, err := Lookup(4242, SectionHeader)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrUnknownTag), "got %v", err)

	// header-only tag asked for in the signature section
	_, err = Lookup(TagLicense.ID, SectionSignature)
	assert.True(t, IsKind(err, ErrUnknownTag), "got %v", err)
}

func TestLookupName(t *testing.T) {
	tag, err := LookupName("RPMTAG_FILEMODES")
	require.NoError(t, err)
	assert.Equal(t, TagFileModes, tag)

	_, err = LookupName("RPMTAG_NOPE")
	assert.True(t, IsKind(err, ErrUnknownTag))

	tag, err = LookupName("payloadcompressor")
	require.NoError(t, err)
	assert.Equal(t, TagPayloadCompressor, tag)

	// SIZE exists in both sections, the header tag wins
	tag, err = LookupName("size")
	require.NoError(t, err)
	assert.Equal(t, TagSize, tag)

	tag, err = LookupName("md5")
	require.NoError(t, err)
	assert.Equal(t, SigMD5, tag)
}

func TestRequiredTags(t *testing.T) {
	required := RequiredTags()

	names := make(map[string]bool)
	for _, tag := range required {
		assert.Equal(t, StatusRequired, tag.Status, tag.Name)
		names[tag.Name] = true
	}

	for _, want := range []string{
		"RPMSIGTAG_SIZE", "RPMSIGTAG_MD5",
		"RPMTAG_NAME", "RPMTAG_VERSION", "RPMTAG_RELEASE", "RPMTAG_SUMMARY",
		"RPMTAG_DESCRIPTION", "RPMTAG_LICENSE", "RPMTAG_GROUP", "RPMTAG_OS",
		"RPMTAG_ARCH", "RPMTAG_SIZE", "RPMTAG_PAYLOADFORMAT", "RPMTAG_FILESIZES",
		"RPMTAG_FILEMD5S", "RPMTAG_REQUIRENAME", "RPMTAG_PROVIDEFLAGS",
	} {
		assert.True(t, names[want], "%s should be required", want)
	}
	for _, not := range []string{"RPMTAG_URL", "RPMTAG_VENDOR", "RPMSIGTAG_SHA1", "RPMTAG_DIRNAMES"} {
		assert.False(t, names[not], "%s should not be required", not)
	}
}

func TestRegistryShapes(t *testing.T) {
	assert.Equal(t, 16, SigMD5.Count)
	assert.False(t, SigMD5.IsArray())
	assert.True(t, TagFileSizes.IsArray())
	assert.True(t, SigRSA.IsArray())
	assert.Equal(t, 1, TagName.Count)
	assert.Greater(t, len(Tags()), 90)
}
