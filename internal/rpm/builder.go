package rpm

import (
	"bytes"
	"encoding/hex"
	"os"
	"path/filepath"
	"time"

	"github.com/ralt/rpmkit/internal/cpio"
	"github.com/ralt/rpmkit/internal/utils"
	"github.com/sirupsen/logrus"
)

const (
	shellPath = "/bin/sh"

	versionedDependencies = "rpmlib(VersionedDependencies)"
	compressedFileNames   = "rpmlib(CompressedFileNames)"
)

// Signer produces detached OpenPGP signatures for the signature section.
type Signer interface {
	// SignDetached returns a binary detached signature over data.
	SignDetached(data []byte) ([]byte, error)

	// IsRSA reports whether the signing key is an RSA key.
	IsRSA() bool
}

// Option configures a Builder
type Option func(*Builder)

// WithCompressor selects the payload compressor: gzip, xz or zstd.
func WithCompressor(name string) Option {
	return func(b *Builder) {
		b.compressor = name
	}
}

// WithSigner adds OpenPGP header and payload signatures.
func WithSigner(s Signer) Option {
	return func(b *Builder) {
		b.signer = s
	}
}

// WithBuildTime overrides the recorded build time.
func WithBuildTime(t time.Time) Option {
	return func(b *Builder) {
		b.buildTime = t
	}
}

// WithBuildHost overrides the recorded build host.
func WithBuildHost(host string) Option {
	return func(b *Builder) {
		b.buildHost = host
	}
}

// Builder assembles one package. It is not safe for concurrent use and
// cannot be reused once Build has been called.
type Builder struct {
	signature *IndexTable
	header    *IndexTable
	entries   []*cpio.Entry

	compressor string
	signer     Signer
	buildTime  time.Time
	buildHost  string

	err   error
	built bool
}

// NewBuilder creates a Builder with the payload tags and the I18N table
// already in place.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		signature:  NewIndexTable(SectionSignature),
		header:     NewIndexTable(SectionHeader),
		compressor: utils.CompressorGzip,
		buildTime:  time.Now(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.buildHost == "" {
		b.buildHost, _ = os.Hostname()
	}

	flags, err := utils.PayloadFlags(b.compressor)
	if err != nil {
		b.fail(&CodecError{Kind: ErrInvalidValue, Tag: TagPayloadCompressor.Name, Err: err})
	}

	b.set(TagHeaderI18NTable, Strings{"C"})
	b.setString(TagPayloadFormat, "cpio")
	b.setString(TagPayloadCompressor, b.compressor)
	b.setString(TagPayloadFlags, flags)
	b.set(TagBuildTime, Int32s{uint32(b.buildTime.Unix())})
	if b.buildHost != "" {
		b.setString(TagBuildHost, b.buildHost)
	}
	return b
}

// Err returns the first error recorded by a setter.
func (b *Builder) Err() error {
	return b.err
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *Builder) set(tag Tag, v Value) {
	if err := b.header.Set(tag, v); err != nil {
		b.fail(err)
	}
}

func (b *Builder) setString(tag Tag, s string) {
	b.set(tag, Strings{s})
}

func (b *Builder) add(tag Tag, v Value) {
	if err := b.header.AddOrAppend(tag, v); err != nil {
		b.fail(err)
	}
}

// Header exposes the header table being built.
func (b *Builder) Header() *IndexTable {
	return b.header
}

// Signature exposes the signature table being built.
func (b *Builder) Signature() *IndexTable {
	return b.signature
}

// SetName sets the package name.
func (b *Builder) SetName(name string) { b.setString(TagName, name) }

// SetVersion sets the upstream version.
func (b *Builder) SetVersion(version string) { b.setString(TagVersion, version) }

// SetRelease sets the package release.
func (b *Builder) SetRelease(release string) { b.setString(TagRelease, release) }

// SetSummary sets the one-line summary.
func (b *Builder) SetSummary(summary string) { b.setString(TagSummary, summary) }

// SetDescription sets the long description.
func (b *Builder) SetDescription(description string) { b.setString(TagDescription, description) }

// SetLicense sets the license string.
func (b *Builder) SetLicense(license string) { b.setString(TagLicense, license) }

// SetGroup sets the package group.
func (b *Builder) SetGroup(group string) { b.setString(TagGroup, group) }

// SetOS sets RPMTAG_OS.
func (b *Builder) SetOS(name string) { b.setString(TagOS, name) }

// SetArch sets RPMTAG_ARCH.
func (b *Builder) SetArch(arch string) { b.setString(TagArch, arch) }

// SetURL sets the project URL.
func (b *Builder) SetURL(url string) { b.setString(TagURL, url) }

// SetVendor sets RPMTAG_VENDOR.
func (b *Builder) SetVendor(vendor string) { b.setString(TagVendor, vendor) }

// SetPackager sets RPMTAG_PACKAGER.
func (b *Builder) SetPackager(packager string) { b.setString(TagPackager, packager) }

// SetDistribution sets RPMTAG_DISTRIBUTION.
func (b *Builder) SetDistribution(dist string) { b.setString(TagDistribution, dist) }

// SetDistURL sets RPMTAG_DISTURL.
func (b *Builder) SetDistURL(url string) { b.setString(TagDistURL, url) }

// SetSourceRPM names the source package this was built from.
func (b *Builder) SetSourceRPM(name string) { b.setString(TagSourceRPM, name) }

// SetRPMVersion sets the rpm version recorded as the builder.
func (b *Builder) SetRPMVersion(version string) { b.setString(TagRPMVersion, version) }

// SetPlatform sets RPMTAG_PLATFORM.
func (b *Builder) SetPlatform(platform string) { b.setString(TagPlatform, platform) }

// SetOptFlags sets the compiler flags used for the build.
func (b *Builder) SetOptFlags(flags string) { b.setString(TagOptFlags, flags) }

// SetCookie sets RPMTAG_COOKIE.
func (b *Builder) SetCookie(cookie string) { b.setString(TagCookie, cookie) }

// SetBuildHost sets the build host name.
func (b *Builder) SetBuildHost(host string) { b.setString(TagBuildHost, host) }

// SetBuildTime records the build time.
func (b *Builder) SetBuildTime(t time.Time) {
	b.set(TagBuildTime, Int32s{uint32(t.Unix())})
}

// Scriptlets run by /bin/sh, which is added as a requirement.

// SetPreInstall sets the %pre scriptlet.
func (b *Builder) SetPreInstall(script string) { b.setScript(TagPreIn, TagPreInProg, script) }

// SetPostInstall sets the %post scriptlet.
func (b *Builder) SetPostInstall(script string) { b.setScript(TagPostIn, TagPostInProg, script) }

// SetPreUninstall sets the %preun scriptlet.
func (b *Builder) SetPreUninstall(script string) {
	b.setScript(TagPreUn, TagPreUnProg, script)
}

// SetPostUninstall sets the %postun scriptlet.
func (b *Builder) SetPostUninstall(script string) {
	b.setScript(TagPostUn, TagPostUnProg, script)
}

func (b *Builder) setScript(script, prog Tag, body string) {
	b.setString(script, body)
	b.setString(prog, shellPath)
	if !requires.has(b.header, shellPath) {
		b.addDependency(requires, Dependency{Name: shellPath})
	}
}

// AddProvides records a capability this package provides.
func (b *Builder) AddProvides(name, version string, flags Sense) {
	b.addDependency(provides, Dependency{name, version, flags})
}

// AddRequires records a capability this package needs.
func (b *Builder) AddRequires(name, version string, flags Sense) {
	b.addDependency(requires, Dependency{name, version, flags})
}

// AddConflicts records a capability that cannot be installed alongside.
func (b *Builder) AddConflicts(name, version string, flags Sense) {
	b.addDependency(conflicts, Dependency{name, version, flags})
}

// AddObsoletes records a package this one replaces.
func (b *Builder) AddObsoletes(name, version string, flags Sense) {
	b.addDependency(obsoletes, Dependency{name, version, flags})
}

func (b *Builder) addDependency(r relation, d Dependency) {
	if err := r.add(b.header, d); err != nil {
		b.fail(err)
		return
	}
	if d.Version != "" && !requires.has(b.header, versionedDependencies) {
		b.addDependency(requires, Dependency{versionedDependencies, "3.0.3-1", SenseEqual | SenseLess | SenseRPMLib})
	}
}

// AddChangelog appends one changelog entry. rpm lists entries newest first.
func (b *Builder) AddChangelog(t time.Time, author, text string) {
	b.add(TagChangelogTime, Int32s{uint32(t.Unix())})
	b.add(TagChangelogName, Strings{author})
	b.add(TagChangelogText, Strings{text})
}

// Build assembles the package and writes <name>-<version>-<release>.rpm
// into dir. It returns the path of the written file. A Builder is spent
// after Build, whether it succeeds or not.
func (b *Builder) Build(dir string) (string, error) {
	if b.built {
		return "", newError(ErrInvalidValue, "", "builder already used")
	}
	b.built = true
	if b.err != nil {
		return "", b.err
	}

	name, _ := b.header.String(TagName)
	version, _ := b.header.String(TagVersion)
	release, _ := b.header.String(TagRelease)

	b.AddProvides(name, version, SenseEqual)
	if !requires.has(b.header, compressedFileNames) {
		b.AddRequires(compressedFileNames, "3.0.4-1", SenseEqual|SenseLess|SenseRPMLib)
	}

	var total uint64
	if sizes, err := b.header.Int32Array(TagFileSizes); err == nil {
		for _, s := range sizes {
			total += uint64(s)
		}
	}
	b.set(TagSize, Int32s{uint32(total)})

	b.entries = append(b.entries, cpio.TrailerEntry())
	var archive bytes.Buffer
	cw := cpio.NewWriter(&archive)
	for _, e := range b.entries {
		if err := cw.WriteEntry(e); err != nil {
			return "", err
		}
	}
	b.set(TagArchiveSize, Int32s{uint32(archive.Len())})
	if b.err != nil {
		return "", b.err
	}

	headerBytes, err := b.header.Serialize()
	if err != nil {
		return "", err
	}

	payloadBytes, err := utils.CompressPayload(archive.Bytes(), b.compressor)
	if err != nil {
		return "", &CodecError{Kind: ErrInvalidValue, Tag: TagPayloadCompressor.Name, Err: err}
	}

	if err := b.sign(headerBytes, payloadBytes, archive.Len()); err != nil {
		return "", err
	}

	if err := b.checkRequiredTags(); err != nil {
		return "", err
	}

	sigBytes, err := b.signature.Serialize()
	if err != nil {
		return "", err
	}

	arch, _ := b.header.String(TagArch)
	lead, err := NewLead(utils.PackageIdentity(name, version, release, ""), arch).Encode()
	if err != nil {
		return "", err
	}

	var out bytes.Buffer
	out.Grow(len(lead) + len(sigBytes) + 7 + len(headerBytes) + len(payloadBytes))
	out.Write(lead)
	out.Write(sigBytes)
	for out.Len()%8 != 0 {
		out.WriteByte(0)
	}
	out.Write(headerBytes)
	out.Write(payloadBytes)

	path := filepath.Join(dir, utils.PackageFileName(name, version, release))
	if err := utils.WriteFile(path, out.Bytes(), 0644); err != nil {
		return "", err
	}

	logrus.Debugf("Wrote %s: signature %d bytes, header %d bytes, payload %d bytes", path, len(sigBytes), len(headerBytes), len(payloadBytes))
	return path, nil
}

// sign fills the signature section from the serialized header and payload.
func (b *Builder) sign(headerBytes, payloadBytes []byte, archiveSize int) error {
	digest := utils.SumParts("md5", headerBytes, payloadBytes)
	if err := b.signature.Set(SigSize, Int32s{uint32(len(headerBytes) + len(payloadBytes))}); err != nil {
		return err
	}
	if err := b.signature.Set(SigMD5, Binary(digest)); err != nil {
		return err
	}
	if err := b.signature.Set(SigSHA1, Strings{hex.EncodeToString(utils.SumParts("sha1", headerBytes))}); err != nil {
		return err
	}
	if err := b.signature.Set(SigPayloadSize, Int32s{uint32(archiveSize)}); err != nil {
		return err
	}
	logrus.Debugf("Package digest %x", digest)

	if b.signer == nil {
		return nil
	}

	headerSig, err := b.signer.SignDetached(headerBytes)
	if err != nil {
		return err
	}
	both := make([]byte, 0, len(headerBytes)+len(payloadBytes))
	both = append(append(both, headerBytes...), payloadBytes...)
	fullSig, err := b.signer.SignDetached(both)
	if err != nil {
		return err
	}

	headerTag, fullTag := SigDSA, SigGPG
	if b.signer.IsRSA() {
		headerTag, fullTag = SigRSA, SigPGP
	}
	if err := b.signature.Set(headerTag, Binary(headerSig)); err != nil {
		return err
	}
	return b.signature.Set(fullTag, Binary(fullSig))
}

func (b *Builder) checkRequiredTags() error {
	var missing []string
	for _, tag := range RequiredTags() {
		if b.signature.Has(tag) && tag.Scope.Allows(SectionSignature) {
			continue
		}
		if b.header.Has(tag) && tag.Scope.Allows(SectionHeader) {
			continue
		}
		missing = append(missing, tag.Name)
	}
	if len(missing) > 0 {
		return newError(ErrRequiredTagMissing, missing[0], "required tags not set: %v", missing)
	}
	return nil
}
