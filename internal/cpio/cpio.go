// Package cpio frames package payloads as SVR4 "newc" cpio archives on top
// of github.com/cavaliergopher/cpio, keeping the trailer a visible entry.
package cpio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cavaliergopher/cpio"
)

// Trailer is the name of the entry that terminates an archive.
const Trailer = "TRAILER!!!"

var (
	// ErrMissingTrailer is returned when the input ends before the trailer.
	ErrMissingTrailer = errors.New("cpio: archive ends without trailer")

	// ErrWriteAfterClose is returned when writing to a closed Writer.
	ErrWriteAfterClose = cpio.ErrWriteAfterClose
)

// Entry is one archive member. Data holds the file content, or the link
// target for symlinks.
type Entry struct {
	Name  string
	Inode uint32
	Mode  uint32
	Links uint32
	Mtime uint32
	Data  []byte
}

// TrailerEntry returns the end-of-archive sentinel.
func TrailerEntry() *Entry {
	return &Entry{Name: Trailer, Links: 1}
}

// IsTrailer reports whether e is the end-of-archive sentinel.
func (e *Entry) IsTrailer() bool {
	return e.Name == Trailer
}

func (e *Entry) header() *cpio.Header {
	return &cpio.Header{
		Name:    e.Name,
		Inode:   int64(e.Inode),
		Mode:    cpio.FileMode(e.Mode),
		Links:   int(e.Links),
		ModTime: time.Unix(int64(e.Mtime), 0),
		Size:    int64(len(e.Data)),
	}
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Writer streams entries in newc framing.
type Writer struct {
	out    *countingWriter
	cw     *cpio.Writer
	closed bool
}

// NewWriter creates a Writer on w.
func NewWriter(w io.Writer) *Writer {
	out := &countingWriter{w: w}
	return &Writer{out: out, cw: cpio.NewWriter(out)}
}

// Size returns the number of bytes written so far.
func (w *Writer) Size() int64 {
	return w.out.n
}

// WriteEntry writes the header, name and data of e. Writing the trailer
// entry closes the Writer.
func (w *Writer) WriteEntry(e *Entry) error {
	if w.closed {
		return ErrWriteAfterClose
	}
	if err := w.cw.WriteHeader(e.header()); err != nil {
		return err
	}
	if len(e.Data) > 0 {
		if _, err := w.cw.Write(e.Data); err != nil {
			return err
		}
	}
	if err := w.cw.Flush(); err != nil {
		return err
	}
	if e.IsTrailer() {
		w.closed = true
	}
	return nil
}

// Close writes the trailer unless it was already written.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	return w.WriteEntry(TrailerEntry())
}

// tailReader remembers the last bytes read, so a clean end of input can be
// told apart from the end of an archive.
type tailReader struct {
	r    io.Reader
	tail []byte
}

func (t *tailReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	t.tail = append(t.tail, p[:n]...)
	if keep := len(Trailer) + 8; len(t.tail) > keep {
		t.tail = t.tail[len(t.tail)-keep:]
	}
	return n, err
}

func (t *tailReader) sawTrailer() bool {
	return bytes.HasSuffix(bytes.TrimRight(t.tail, "\x00"), []byte(Trailer))
}

// Reader reads entries framed by Writer.
type Reader struct {
	in   *tailReader
	cr   *cpio.Reader
	done bool
}

// NewReader creates a Reader on r.
func NewReader(r io.Reader) *Reader {
	in := &tailReader{r: r}
	return &Reader{in: in, cr: cpio.NewReader(in)}
}

// Next returns the next entry, including the trailer. After the trailer it
// returns io.EOF.
func (r *Reader) Next() (*Entry, error) {
	if r.done {
		return nil, io.EOF
	}

	hdr, err := r.cr.Next()
	if errors.Is(err, io.EOF) {
		if !r.in.sawTrailer() {
			return nil, ErrMissingTrailer
		}
		r.done = true
		return TrailerEntry(), nil
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, ErrMissingTrailer
	}
	if err != nil {
		return nil, fmt.Errorf("cpio: %w", err)
	}

	e := &Entry{
		Name:  hdr.Name,
		Inode: uint32(hdr.Inode),
		Mode:  uint32(hdr.Mode),
		Links: uint32(hdr.Links),
		Mtime: uint32(hdr.ModTime.Unix()),
	}

	if hdr.Linkname != "" {
		e.Data = []byte(hdr.Linkname)
		return e, nil
	}
	if hdr.Size > 0 {
		// sized by the bytes present, not by the header's filesize
		e.Data, err = io.ReadAll(r.cr)
		if err != nil {
			return nil, fmt.Errorf("cpio: reading %s: %w", e.Name, err)
		}
		if int64(len(e.Data)) != hdr.Size {
			return nil, fmt.Errorf("cpio: %s: %w after %d of %d bytes", e.Name, io.ErrUnexpectedEOF, len(e.Data), hdr.Size)
		}
	}
	return e, nil
}

// ReadAll returns every entry of the archive, trailer included.
func ReadAll(r io.Reader) ([]*Entry, error) {
	cr := NewReader(r)
	var entries []*Entry
	for {
		e, err := cr.Next()
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
}
