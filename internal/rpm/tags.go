package rpm

import (
	"fmt"
	"strings"
)

// Section identifies which index table a tag is stored in.
type Section int

const (
	SectionSignature Section = iota
	SectionHeader
)

// String returns the string representation of Section
func (s Section) String() string {
	switch s {
	case SectionSignature:
		return "signature"
	case SectionHeader:
		return "header"
	default:
		return "unknown"
	}
}

// Scope restricts a tag to one or both sections.
type Scope int

const (
	ScopeSignature Scope = iota
	ScopeHeader
	ScopeEither
)

// Allows reports whether a tag with this scope may appear in section.
func (s Scope) Allows(section Section) bool {
	switch s {
	case ScopeEither:
		return true
	case ScopeSignature:
		return section == SectionSignature
	case ScopeHeader:
		return section == SectionHeader
	default:
		return false
	}
}

// Status is the LSB requirement level of a tag.
type Status int

const (
	StatusRequired Status = iota
	StatusOptional
	StatusInformational
	StatusDeprecated
	StatusNotApplicable
)

// String returns the string representation of Status
func (s Status) String() string {
	switch s {
	case StatusRequired:
		return "required"
	case StatusOptional:
		return "optional"
	case StatusInformational:
		return "informational"
	case StatusDeprecated:
		return "deprecated"
	case StatusNotApplicable:
		return "not-applicable"
	default:
		return "unknown"
	}
}

// Tag describes one entry of the tag vocabulary. Tag ids are only unique
// within a section: signature and header ids overlap.
type Tag struct {
	ID   uint32
	Name string
	Type ValueType
	// Count is the fixed element count, or 0 for variable-length arrays.
	Count  int
	Scope  Scope
	Status Status
}

// String returns the tag name
func (t Tag) String() string {
	return t.Name
}

// IsArray reports whether the tag accepts a variable number of elements.
func (t Tag) IsArray() bool {
	return t.Count == 0
}

func sigTag(id uint32, name string, typ ValueType, count int, status Status) Tag {
	return Tag{ID: id, Name: name, Type: typ, Count: count, Scope: ScopeSignature, Status: status}
}

func hdrTag(id uint32, name string, typ ValueType, count int, status Status) Tag {
	return Tag{ID: id, Name: name, Type: typ, Count: count, Scope: ScopeHeader, Status: status}
}

func anyTag(id uint32, name string, typ ValueType, count int, status Status) Tag {
	return Tag{ID: id, Name: name, Type: typ, Count: count, Scope: ScopeEither, Status: status}
}

// Tags valid in either section.
var (
	TagHeaderSignatures = anyTag(62, "RPMTAG_HEADERSIGNATURES", TypeBinary, 16, StatusOptional)
	TagHeaderImmutable  = anyTag(63, "RPMTAG_HEADERIMMUTABLE", TypeBinary, 16, StatusOptional)
	TagHeaderI18NTable  = anyTag(100, "RPMTAG_HEADERI18NTABLE", TypeStringArray, 0, StatusOptional)
)

// Signature section tags.
var (
	SigSize        = sigTag(1000, "RPMSIGTAG_SIZE", TypeInt32, 1, StatusRequired)
	SigPayloadSize = sigTag(1007, "RPMSIGTAG_PAYLOADSIZE", TypeInt32, 1, StatusOptional)
	SigSHA1        = sigTag(269, "RPMSIGTAG_SHA1", TypeString, 1, StatusOptional)
	SigMD5         = sigTag(1004, "RPMSIGTAG_MD5", TypeBinary, 16, StatusRequired)
	SigDSA         = sigTag(267, "RPMSIGTAG_DSA", TypeBinary, 0, StatusOptional)
	SigRSA         = sigTag(268, "RPMSIGTAG_RSA", TypeBinary, 0, StatusOptional)
	SigPGP         = sigTag(1002, "RPMSIGTAG_PGP", TypeBinary, 0, StatusOptional)
	SigGPG         = sigTag(1005, "RPMSIGTAG_GPG", TypeBinary, 0, StatusOptional)
)

// Package information.
var (
	TagName              = hdrTag(1000, "RPMTAG_NAME", TypeString, 1, StatusRequired)
	TagVersion           = hdrTag(1001, "RPMTAG_VERSION", TypeString, 1, StatusRequired)
	TagRelease           = hdrTag(1002, "RPMTAG_RELEASE", TypeString, 1, StatusRequired)
	TagSummary           = hdrTag(1004, "RPMTAG_SUMMARY", TypeI18NString, 1, StatusRequired)
	TagDescription       = hdrTag(1005, "RPMTAG_DESCRIPTION", TypeI18NString, 1, StatusRequired)
	TagSize              = hdrTag(1009, "RPMTAG_SIZE", TypeInt32, 1, StatusRequired)
	TagDistribution      = hdrTag(1010, "RPMTAG_DISTRIBUTION", TypeString, 1, StatusInformational)
	TagVendor            = hdrTag(1011, "RPMTAG_VENDOR", TypeString, 1, StatusInformational)
	TagLicense           = hdrTag(1014, "RPMTAG_LICENSE", TypeString, 1, StatusRequired)
	TagPackager          = hdrTag(1015, "RPMTAG_PACKAGER", TypeString, 1, StatusInformational)
	TagGroup             = hdrTag(1016, "RPMTAG_GROUP", TypeI18NString, 1, StatusRequired)
	TagURL               = hdrTag(1020, "RPMTAG_URL", TypeString, 1, StatusInformational)
	TagOS                = hdrTag(1021, "RPMTAG_OS", TypeString, 1, StatusRequired)
	TagArch              = hdrTag(1022, "RPMTAG_ARCH", TypeString, 1, StatusRequired)
	TagSourceRPM         = hdrTag(1044, "RPMTAG_SOURCERPM", TypeString, 1, StatusInformational)
	TagArchiveSize       = hdrTag(1046, "RPMTAG_ARCHIVESIZE", TypeInt32, 1, StatusOptional)
	TagRPMVersion        = hdrTag(1064, "RPMTAG_RPMVERSION", TypeString, 1, StatusInformational)
	TagCookie            = hdrTag(1094, "RPMTAG_COOKIE", TypeString, 1, StatusOptional)
	TagDistURL           = hdrTag(1123, "RPMTAG_DISTURL", TypeString, 1, StatusInformational)
	TagPayloadFormat     = hdrTag(1124, "RPMTAG_PAYLOADFORMAT", TypeString, 1, StatusRequired)
	TagPayloadCompressor = hdrTag(1125, "RPMTAG_PAYLOADCOMPRESSOR", TypeString, 1, StatusRequired)
	TagPayloadFlags      = hdrTag(1126, "RPMTAG_PAYLOADFLAGS", TypeString, 1, StatusRequired)
)

// Installation scriptlets.
var (
	TagPreIn      = hdrTag(1023, "RPMTAG_PREIN", TypeString, 1, StatusOptional)
	TagPostIn     = hdrTag(1024, "RPMTAG_POSTIN", TypeString, 1, StatusOptional)
	TagPreUn      = hdrTag(1025, "RPMTAG_PREUN", TypeString, 1, StatusOptional)
	TagPostUn     = hdrTag(1026, "RPMTAG_POSTUN", TypeString, 1, StatusOptional)
	TagPreInProg  = hdrTag(1085, "RPMTAG_PREINPROG", TypeString, 1, StatusOptional)
	TagPostInProg = hdrTag(1086, "RPMTAG_POSTINPROG", TypeString, 1, StatusOptional)
	TagPreUnProg  = hdrTag(1087, "RPMTAG_PREUNPROG", TypeString, 1, StatusOptional)
	TagPostUnProg = hdrTag(1088, "RPMTAG_POSTUNPROG", TypeString, 1, StatusOptional)
)

// File information. All per-file tags are parallel arrays indexed by file.
var (
	TagOldFilenames  = hdrTag(1027, "RPMTAG_OLDFILENAMES", TypeStringArray, 0, StatusOptional)
	TagFileSizes     = hdrTag(1028, "RPMTAG_FILESIZES", TypeInt32, 0, StatusRequired)
	TagFileModes     = hdrTag(1030, "RPMTAG_FILEMODES", TypeInt16, 0, StatusRequired)
	TagFileRdevs     = hdrTag(1033, "RPMTAG_FILERDEVS", TypeInt16, 0, StatusRequired)
	TagFileMtimes    = hdrTag(1034, "RPMTAG_FILEMTIMES", TypeInt32, 0, StatusRequired)
	TagFileMD5s      = hdrTag(1035, "RPMTAG_FILEMD5S", TypeStringArray, 0, StatusRequired)
	TagFileLinkTos   = hdrTag(1036, "RPMTAG_FILELINKTOS", TypeStringArray, 0, StatusRequired)
	TagFileFlags     = hdrTag(1037, "RPMTAG_FILEFLAGS", TypeInt32, 0, StatusRequired)
	TagFileUserName  = hdrTag(1039, "RPMTAG_FILEUSERNAME", TypeStringArray, 0, StatusRequired)
	TagFileGroupName = hdrTag(1040, "RPMTAG_FILEGROUPNAME", TypeStringArray, 0, StatusRequired)
	TagFileVerify    = hdrTag(1045, "RPMTAG_FILEVERIFYFLAGS", TypeInt32, 0, StatusOptional)
	TagFileDevices   = hdrTag(1095, "RPMTAG_FILEDEVICES", TypeInt32, 0, StatusRequired)
	TagFileInodes    = hdrTag(1096, "RPMTAG_FILEINODES", TypeInt32, 0, StatusRequired)
	TagFileLangs     = hdrTag(1097, "RPMTAG_FILELANGS", TypeStringArray, 0, StatusRequired)
	TagDirIndexes    = hdrTag(1116, "RPMTAG_DIRINDEXES", TypeInt32, 0, StatusOptional)
	TagBaseNames     = hdrTag(1117, "RPMTAG_BASENAMES", TypeStringArray, 0, StatusOptional)
	TagDirNames      = hdrTag(1118, "RPMTAG_DIRNAMES", TypeStringArray, 0, StatusOptional)
)

// Dependencies. Each relation is three parallel arrays: name, version, flags.
var (
	TagProvideName     = hdrTag(1047, "RPMTAG_PROVIDENAME", TypeStringArray, 0, StatusRequired)
	TagRequireFlags    = hdrTag(1048, "RPMTAG_REQUIREFLAGS", TypeInt32, 0, StatusRequired)
	TagRequireName     = hdrTag(1049, "RPMTAG_REQUIRENAME", TypeStringArray, 0, StatusRequired)
	TagRequireVersion  = hdrTag(1050, "RPMTAG_REQUIREVERSION", TypeStringArray, 0, StatusRequired)
	TagConflictFlags   = hdrTag(1053, "RPMTAG_CONFLICTFLAGS", TypeInt32, 0, StatusOptional)
	TagConflictName    = hdrTag(1054, "RPMTAG_CONFLICTNAME", TypeStringArray, 0, StatusOptional)
	TagConflictVersion = hdrTag(1055, "RPMTAG_CONFLICTVERSION", TypeStringArray, 0, StatusOptional)
	TagObsoleteName    = hdrTag(1090, "RPMTAG_OBSOLETENAME", TypeStringArray, 0, StatusOptional)
	TagProvideFlags    = hdrTag(1112, "RPMTAG_PROVIDEFLAGS", TypeInt32, 0, StatusRequired)
	TagProvideVersion  = hdrTag(1113, "RPMTAG_PROVIDEVERSION", TypeStringArray, 0, StatusRequired)
	TagObsoleteFlags   = hdrTag(1114, "RPMTAG_OBSOLETEFLAGS", TypeInt32, 0, StatusOptional)
	TagObsoleteVersion = hdrTag(1115, "RPMTAG_OBSOLETEVERSION", TypeStringArray, 0, StatusOptional)
)

// Build and changelog information.
var (
	TagBuildTime     = hdrTag(1006, "RPMTAG_BUILDTIME", TypeInt32, 1, StatusInformational)
	TagBuildHost     = hdrTag(1007, "RPMTAG_BUILDHOST", TypeString, 1, StatusInformational)
	TagChangelogTime = hdrTag(1080, "RPMTAG_CHANGELOGTIME", TypeInt32, 0, StatusOptional)
	TagChangelogName = hdrTag(1081, "RPMTAG_CHANGELOGNAME", TypeStringArray, 0, StatusOptional)
	TagChangelogText = hdrTag(1082, "RPMTAG_CHANGELOGTEXT", TypeStringArray, 0, StatusOptional)
	TagOptFlags      = hdrTag(1122, "RPMTAG_OPTFLAGS", TypeString, 1, StatusInformational)
	TagRHNPlatform   = hdrTag(1131, "RPMTAG_RHNPLATFORM", TypeString, 1, StatusDeprecated)
	TagPlatform      = hdrTag(1132, "RPMTAG_PLATFORM", TypeString, 1, StatusInformational)
)

// Tags written by rpm itself but outside the LSB vocabulary.
var (
	TagFileClass      = hdrTag(1141, "RPMTAG_FILECLASS", TypeInt32, 0, StatusNotApplicable)
	TagClassDict      = hdrTag(1142, "RPMTAG_CLASSDICT", TypeStringArray, 0, StatusNotApplicable)
	TagFileDependsX   = hdrTag(1143, "RPMTAG_FILEDEPENDSX", TypeInt32, 0, StatusNotApplicable)
	TagFileDependsN   = hdrTag(1144, "RPMTAG_FILEDEPENDSN", TypeInt32, 0, StatusNotApplicable)
	TagDependsDict    = hdrTag(1145, "RPMTAG_DEPENDSDICT", TypeInt32, 0, StatusNotApplicable)
	TagSourcePkgID    = hdrTag(1146, "RPMTAG_SOURCEPKGID", TypeBinary, 0, StatusNotApplicable)
	TagFileDigestAlgo = hdrTag(5011, "RPMTAG_FILEDIGESTALGO", TypeInt32, 1, StatusNotApplicable)
	TagSuggestName    = hdrTag(5049, "RPMTAG_SUGGESTNAME", TypeStringArray, 0, StatusNotApplicable)
	TagSuggestVersion = hdrTag(5050, "RPMTAG_SUGGESTVERSION", TypeStringArray, 0, StatusNotApplicable)
	TagSuggestFlags   = hdrTag(5051, "RPMTAG_SUGGESTFLAGS", TypeInt32, 0, StatusNotApplicable)
)

var registry = []Tag{
	TagHeaderSignatures, TagHeaderImmutable, TagHeaderI18NTable,

	SigSize, SigPayloadSize, SigSHA1, SigMD5, SigDSA, SigRSA, SigPGP, SigGPG,

	TagName, TagVersion, TagRelease, TagSummary, TagDescription, TagSize,
	TagDistribution, TagVendor, TagLicense, TagPackager, TagGroup, TagURL,
	TagOS, TagArch, TagSourceRPM, TagArchiveSize, TagRPMVersion, TagCookie,
	TagDistURL, TagPayloadFormat, TagPayloadCompressor, TagPayloadFlags,

	TagPreIn, TagPostIn, TagPreUn, TagPostUn,
	TagPreInProg, TagPostInProg, TagPreUnProg, TagPostUnProg,

	TagOldFilenames, TagFileSizes, TagFileModes, TagFileRdevs, TagFileMtimes,
	TagFileMD5s, TagFileLinkTos, TagFileFlags, TagFileUserName, TagFileGroupName,
	TagFileVerify, TagFileDevices, TagFileInodes, TagFileLangs,
	TagDirIndexes, TagBaseNames, TagDirNames,

	TagProvideName, TagRequireFlags, TagRequireName, TagRequireVersion,
	TagConflictFlags, TagConflictName, TagConflictVersion, TagObsoleteName,
	TagProvideFlags, TagProvideVersion, TagObsoleteFlags, TagObsoleteVersion,

	TagBuildTime, TagBuildHost, TagChangelogTime, TagChangelogName,
	TagChangelogText, TagOptFlags, TagRHNPlatform, TagPlatform,

	TagFileClass, TagClassDict, TagFileDependsX, TagFileDependsN, TagDependsDict,
	TagSourcePkgID, TagFileDigestAlgo, TagSuggestName, TagSuggestVersion, TagSuggestFlags,
}

// bySection indexes the registry by section and id.
var bySection = map[Section]map[uint32]Tag{
	SectionSignature: {},
	SectionHeader:    {},
}

func init() {
	for _, t := range registry {
		for _, s := range []Section{SectionSignature, SectionHeader} {
			if !t.Scope.Allows(s) {
				continue
			}
			if prev, ok := bySection[s][t.ID]; ok {
				panic(fmt.Sprintf("rpm: tag id %d registered twice in %s section (%s, %s)", t.ID, s, prev.Name, t.Name))
			}
			bySection[s][t.ID] = t
		}
	}
}

// Lookup returns the registered tag with id in section.
func Lookup(id uint32, section Section) (Tag, error) {
	t, ok := bySection[section][id]
	if !ok {
		return Tag{}, newError(ErrUnknownTag, "", "no tag %d in %s section", id, section)
	}
	return t, nil
}

// LookupName returns the registered tag with the given name. The RPMTAG_
// and RPMSIGTAG_ prefixes may be left out, in which case header tags win.
func LookupName(name string) (Tag, error) {
	upper := strings.ToUpper(name)
	for _, candidate := range []string{name, "RPMTAG_" + upper, "RPMSIGTAG_" + upper} {
		for _, t := range registry {
			if t.Name == candidate {
				return t, nil
			}
		}
	}
	return Tag{}, newError(ErrUnknownTag, name, "no such tag")
}

// RequiredTags returns every required tag of either section, in registry
// order.
func RequiredTags() []Tag {
	var tags []Tag
	for _, t := range registry {
		if t.Status == StatusRequired {
			tags = append(tags, t)
		}
	}
	return tags
}

// Tags returns the full registry.
func Tags() []Tag {
	out := make([]Tag, len(registry))
	copy(out, registry)
	return out
}

// unregistered describes a tag found on disk that the registry does not know.
func unregistered(id uint32, typ ValueType, section Section) Tag {
	scope := ScopeHeader
	if section == SectionSignature {
		scope = ScopeSignature
	}
	return Tag{
		ID:     id,
		Name:   fmt.Sprintf("TAG_%d", id),
		Type:   typ,
		Scope:  scope,
		Status: StatusNotApplicable,
	}
}
