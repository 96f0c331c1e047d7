package rpm

import (
	"os"
	"strings"
	"time"

	"github.com/ralt/rpmkit/internal/cpio"
	"github.com/ralt/rpmkit/internal/utils"
)

// File type bits of a POSIX mode.
const (
	ModeTypeMask uint16 = 0170000
	ModeRegular  uint16 = 0100000
	ModeDir      uint16 = 0040000
	ModeSymlink  uint16 = 0120000
)

// FileBuilder collects the attributes of one packaged file. Build commits
// the file to its Builder; afterwards every method fails with ErrFileBuilt.
type FileBuilder struct {
	b       *Builder
	target  string
	content []byte
	mode    uint16
	rdev    uint16
	mtime   time.Time
	linkTo  string
	flags   FileFlags
	user    string
	group   string
	device  uint32
	inode   uint32
	lang    string

	built bool
	err   error
}

// NewFile starts a file at the absolute target path with the given content.
// Defaults: mode 0644, owner root:root, mtime now.
func (b *Builder) NewFile(target string, content []byte) *FileBuilder {
	return &FileBuilder{
		b:       b,
		target:  target,
		content: content,
		mode:    0644,
		mtime:   time.Now(),
		user:    "root",
		group:   "root",
	}
}

// NewFileFromPath starts a file whose content, mtime and permissions come
// from source.
func (b *Builder) NewFileFromPath(target, source string) (*FileBuilder, error) {
	info, err := os.Stat(source)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(source)
	if err != nil {
		return nil, err
	}
	return b.NewFile(target, content).Mode(UnixMode(info.Mode())).Mtime(info.ModTime()), nil
}

// UnixMode converts the permission and special bits of an os.FileMode.
func UnixMode(m os.FileMode) uint16 {
	mode := uint16(m.Perm())
	if m&os.ModeSetuid != 0 {
		mode |= 04000
	}
	if m&os.ModeSetgid != 0 {
		mode |= 02000
	}
	if m&os.ModeSticky != 0 {
		mode |= 01000
	}
	switch {
	case m.IsDir():
		mode |= ModeDir
	case m&os.ModeSymlink != 0:
		mode |= ModeSymlink
	}
	return mode
}

func (f *FileBuilder) mutable() bool {
	if f.built {
		if f.err == nil {
			f.err = newError(ErrFileBuilt, f.target, "file already built")
		}
		return false
	}
	return true
}

// Mode sets the POSIX mode. Without file type bits the file is regular.
func (f *FileBuilder) Mode(mode uint16) *FileBuilder {
	if f.mutable() {
		f.mode = mode
	}
	return f
}

func (f *FileBuilder) Mtime(t time.Time) *FileBuilder {
	if f.mutable() {
		f.mtime = t
	}
	return f
}

func (f *FileBuilder) Rdev(rdev uint16) *FileBuilder {
	if f.mutable() {
		f.rdev = rdev
	}
	return f
}

// LinkTo makes the file a symbolic link to target.
func (f *FileBuilder) LinkTo(target string) *FileBuilder {
	if f.mutable() {
		f.linkTo = target
		f.mode = f.mode&^ModeTypeMask | ModeSymlink
	}
	return f
}

func (f *FileBuilder) Flags(flags FileFlags) *FileBuilder {
	if f.mutable() {
		f.flags = flags
	}
	return f
}

func (f *FileBuilder) Owner(user, group string) *FileBuilder {
	if f.mutable() {
		f.user, f.group = user, group
	}
	return f
}

func (f *FileBuilder) Device(device uint32) *FileBuilder {
	if f.mutable() {
		f.device = device
	}
	return f
}

// Inode sets the inode number. Files left at 0 get a unique number so rpm
// does not treat them as hard links of each other.
func (f *FileBuilder) Inode(inode uint32) *FileBuilder {
	if f.mutable() {
		f.inode = inode
	}
	return f
}

func (f *FileBuilder) Lang(lang string) *FileBuilder {
	if f.mutable() {
		f.lang = lang
	}
	return f
}

// Build appends the file to the header arrays and the payload.
func (f *FileBuilder) Build() error {
	if !f.mutable() {
		return f.err
	}
	f.built = true
	if f.err != nil {
		return f.err
	}
	if f.b.built {
		return newError(ErrInvalidValue, f.target, "package already built")
	}

	idx := strings.LastIndex(f.target, "/")
	if idx < 0 {
		return newError(ErrMissingDirectory, f.target, "target has no directory part")
	}
	dir, base := f.target[:idx+1], f.target[idx+1:]

	mode := f.mode
	if mode&ModeTypeMask == 0 {
		mode |= ModeRegular
	}

	data := f.content
	digest := ""
	links := uint32(1)
	switch mode & ModeTypeMask {
	case ModeRegular:
		digest = utils.CalculateChecksum(data, "md5")
	case ModeSymlink:
		if f.linkTo == "" {
			return newError(ErrInvalidValue, f.target, "symlink without target")
		}
		data = []byte(f.linkTo)
	case ModeDir:
		data = nil
		links = 2
	}

	inode := f.inode
	if inode == 0 {
		inode = uint32(len(f.b.entries) + 1)
	}

	h := f.b.header
	dirIndex, ok := h.IndexOfValue(TagDirNames, Strings{dir})
	if !ok {
		if h.Has(TagDirNames) {
			v, _ := h.Get(TagDirNames)
			dirIndex = v.Len()
		} else {
			dirIndex = 0
		}
		f.b.add(TagDirNames, Strings{dir})
	}

	f.b.add(TagBaseNames, Strings{base})
	f.b.add(TagDirIndexes, Int32s{uint32(dirIndex)})
	f.b.add(TagFileSizes, Int32s{uint32(len(data))})
	f.b.add(TagFileMtimes, Int32s{uint32(f.mtime.Unix())})
	f.b.add(TagFileMD5s, Strings{digest})
	f.b.add(TagFileModes, Int16s{mode})
	f.b.add(TagFileRdevs, Int16s{f.rdev})
	f.b.add(TagFileLinkTos, Strings{f.linkTo})
	f.b.add(TagFileFlags, Int32s{uint32(f.flags)})
	f.b.add(TagFileUserName, Strings{f.user})
	f.b.add(TagFileGroupName, Strings{f.group})
	f.b.add(TagFileDevices, Int32s{f.device})
	f.b.add(TagFileInodes, Int32s{inode})
	f.b.add(TagFileLangs, Strings{f.lang})
	if f.b.err != nil {
		return f.b.err
	}

	f.b.entries = append(f.b.entries, &cpio.Entry{
		Name:  "." + f.target,
		Inode: inode,
		Mode:  uint32(mode),
		Links: links,
		Mtime: uint32(f.mtime.Unix()),
		Data:  data,
	})
	f.content = nil
	return nil
}

// AddFile adds a regular file in one step.
func (b *Builder) AddFile(target string, content []byte, mode uint16) error {
	return b.NewFile(target, content).Mode(mode).Build()
}

// AddDirectory adds a directory entry owned by the package.
func (b *Builder) AddDirectory(target string, mode uint16) error {
	return b.NewFile(strings.TrimSuffix(target, "/"), nil).Mode(mode&^ModeTypeMask | ModeDir).Build()
}

// AddSymlink adds a symbolic link at target pointing to linkTo.
func (b *Builder) AddSymlink(target, linkTo string) error {
	return b.NewFile(target, nil).Mode(0777).LinkTo(linkTo).Build()
}
