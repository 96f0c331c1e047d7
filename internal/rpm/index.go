package rpm

import (
	"bytes"
	"encoding/binary"

	"github.com/sirupsen/logrus"
)

var headerMagic = []byte{0x8e, 0xad, 0xe8, 0x01}

const (
	headerIntroSize = 16
	indexRecordSize = 16
)

// IndexRecord is one fixed-size entry of an index table as stored on disk.
type IndexRecord struct {
	Tag    uint32
	Type   ValueType
	Offset uint32
	Count  uint32
}

type entry struct {
	tag    Tag
	value  Value
	offset uint32
}

// IndexTable is the tag index and data blob shared by the signature and
// header sections. Values are kept typed and laid into the blob when the
// table is serialized, in the order their tags were first added.
type IndexTable struct {
	section Section
	entries []*entry
	byID    map[uint32]int
}

// NewIndexTable creates an empty table for section.
func NewIndexTable(section Section) *IndexTable {
	return &IndexTable{
		section: section,
		byID:    make(map[uint32]int),
	}
}

// Section returns the section this table belongs to.
func (t *IndexTable) Section() Section {
	return t.section
}

// Len returns the number of records.
func (t *IndexTable) Len() int {
	return len(t.entries)
}

func (t *IndexTable) check(tag Tag, v Value) error {
	if !tag.Scope.Allows(t.section) {
		return newError(ErrUnknownTag, tag.Name, "tag not valid in %s section", t.section)
	}
	if !fits(tag.Type, v) {
		return newError(ErrInvalidValue, tag.Name, "%T cannot be stored as %s", v, tag.Type)
	}
	return nil
}

// AddOrAppend stores v under tag. If the tag already has a record, the
// elements of v are appended to it and the record keeps its position.
// Appending to a fixed-arity tag fails.
func (t *IndexTable) AddOrAppend(tag Tag, v Value) error {
	if err := t.check(tag, v); err != nil {
		return err
	}

	i, ok := t.byID[tag.ID]
	if !ok {
		if !tag.IsArray() && v.Len() != tag.Count {
			return newError(ErrInvalidValue, tag.Name, "expected %d elements, got %d", tag.Count, v.Len())
		}
		t.byID[tag.ID] = len(t.entries)
		t.entries = append(t.entries, &entry{tag: tag, value: v})
		return nil
	}

	e := t.entries[i]
	if !e.tag.IsArray() {
		return newError(ErrInvalidValue, tag.Name, "single valued tag already set")
	}
	joined, ok := concat(e.value, v)
	if !ok {
		return newError(ErrInvalidValue, tag.Name, "cannot append %T to %T", v, e.value)
	}
	e.value = joined
	return nil
}

// Set stores v under tag, replacing any existing value in place.
func (t *IndexTable) Set(tag Tag, v Value) error {
	if err := t.check(tag, v); err != nil {
		return err
	}
	if !tag.IsArray() && v.Len() != tag.Count {
		return newError(ErrInvalidValue, tag.Name, "expected %d elements, got %d", tag.Count, v.Len())
	}

	if i, ok := t.byID[tag.ID]; ok {
		t.entries[i].value = v
		return nil
	}
	t.byID[tag.ID] = len(t.entries)
	t.entries = append(t.entries, &entry{tag: tag, value: v})
	return nil
}

// Has reports whether tag has a record.
func (t *IndexTable) Has(tag Tag) bool {
	if !tag.Scope.Allows(t.section) {
		return false
	}
	_, ok := t.byID[tag.ID]
	return ok
}

// Get returns the value stored under tag.
func (t *IndexTable) Get(tag Tag) (Value, error) {
	if !tag.Scope.Allows(t.section) {
		return nil, newError(ErrUnknownTag, tag.Name, "tag not valid in %s section", t.section)
	}
	i, ok := t.byID[tag.ID]
	if !ok {
		return nil, newError(ErrTagNotFound, tag.Name, "not present in %s section", t.section)
	}
	return t.entries[i].value, nil
}

// IndexOfValue returns the position of the single element want within the
// array stored under tag.
func (t *IndexTable) IndexOfValue(tag Tag, want Value) (int, bool) {
	v, err := t.Get(tag)
	if err != nil || want.Len() != 1 {
		return -1, false
	}
	for i := 0; i < v.Len(); i++ {
		if elementEqual(v, i, want) {
			return i, true
		}
	}
	return -1, false
}

// ContainsValue reports whether the array stored under tag holds want.
func (t *IndexTable) ContainsValue(tag Tag, want Value) bool {
	_, ok := t.IndexOfValue(tag, want)
	return ok
}

func elementEqual(v Value, i int, want Value) bool {
	switch a := v.(type) {
	case Strings:
		b, ok := want.(Strings)
		return ok && a[i] == b[0]
	case Int32s:
		b, ok := want.(Int32s)
		return ok && a[i] == b[0]
	case Int16s:
		b, ok := want.(Int16s)
		return ok && a[i] == b[0]
	case Int64s:
		b, ok := want.(Int64s)
		return ok && a[i] == b[0]
	case Chars:
		b, ok := want.(Chars)
		return ok && a[i] == b[0]
	case Binary:
		b, ok := want.(Binary)
		return ok && a[i] == b[0]
	}
	return false
}

// Tags returns the tags of all records in record order.
func (t *IndexTable) Tags() []Tag {
	tags := make([]Tag, len(t.entries))
	for i, e := range t.entries {
		tags[i] = e.tag
	}
	return tags
}

// Records returns the index records. Offsets are those of the last
// Serialize or of the parsed input.
func (t *IndexTable) Records() []IndexRecord {
	records := make([]IndexRecord, len(t.entries))
	for i, e := range t.entries {
		records[i] = IndexRecord{
			Tag:    e.tag.ID,
			Type:   e.tag.Type,
			Offset: e.offset,
			Count:  uint32(e.value.Len()),
		}
	}
	return records
}

func (t *IndexTable) layout() ([]byte, error) {
	var blob []byte
	for _, e := range t.entries {
		data, err := Encode(e.tag.Type, e.value)
		if err != nil {
			return nil, &CodecError{Kind: ErrInvalidValue, Tag: e.tag.Name, Err: err}
		}
		if a := e.tag.Type.alignment(); a > 1 {
			for len(blob)%a != 0 {
				blob = append(blob, 0)
			}
		}
		e.offset = uint32(len(blob))
		blob = append(blob, data...)
	}
	return blob, nil
}

// Serialize returns the on-disk form: magic, reserved bytes, record count,
// blob length, the records and the blob.
func (t *IndexTable) Serialize() ([]byte, error) {
	blob, err := t.layout()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(headerIntroSize + indexRecordSize*len(t.entries) + len(blob))
	buf.Write(headerMagic)
	buf.Write([]byte{0, 0, 0, 0})
	writeUint32(&buf, uint32(len(t.entries)))
	writeUint32(&buf, uint32(len(blob)))
	for _, r := range t.Records() {
		writeUint32(&buf, r.Tag)
		writeUint32(&buf, uint32(r.Type))
		writeUint32(&buf, r.Offset)
		writeUint32(&buf, r.Count)
	}
	buf.Write(blob)

	return buf.Bytes(), nil
}

func writeUint32(buf *bytes.Buffer, n uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], n)
	buf.Write(b[:])
}

// ParseIndexTable decodes a table from the start of data and returns it
// with the number of bytes it occupies. Tags missing from the registry are
// kept under a synthetic name with their on-disk type.
func ParseIndexTable(data []byte, section Section) (*IndexTable, int, error) {
	if len(data) < headerIntroSize {
		return nil, 0, newError(ErrTruncated, "", "%s section needs %d bytes, have %d", section, headerIntroSize, len(data))
	}
	if !bytes.Equal(data[:4], headerMagic) {
		return nil, 0, newError(ErrBadMagic, "", "%s section magic % x", section, data[:4])
	}

	count := int(binary.BigEndian.Uint32(data[8:12]))
	blobLen := int(binary.BigEndian.Uint32(data[12:16]))
	size := headerIntroSize + count*indexRecordSize + blobLen
	if count < 0 || blobLen < 0 || size > len(data) {
		return nil, 0, newError(ErrTruncated, "", "%s section of %d records and %d data bytes exceeds %d bytes", section, count, blobLen, len(data))
	}

	blobStart := headerIntroSize + count*indexRecordSize
	blob := data[blobStart:size]

	t := NewIndexTable(section)
	for i := 0; i < count; i++ {
		rec := data[headerIntroSize+i*indexRecordSize:]
		id := binary.BigEndian.Uint32(rec[0:4])
		typ := ValueType(binary.BigEndian.Uint32(rec[4:8]))
		offset := binary.BigEndian.Uint32(rec[8:12])
		n := binary.BigEndian.Uint32(rec[12:16])

		tag, err := Lookup(id, section)
		if err != nil {
			tag = unregistered(id, typ, section)
		} else if tag.Type != typ {
			logrus.Debugf("%s stored as %s, registry says %s", tag.Name, typ, tag.Type)
			tag.Type = typ
		}

		if _, dup := t.byID[id]; dup {
			return nil, 0, newError(ErrInvalidValue, tag.Name, "duplicate record in %s section", section)
		}

		v, err := Decode(typ, blob, int(offset), int(n))
		if err != nil {
			if ce, ok := err.(*CodecError); ok && ce.Tag == "" {
				ce.Tag = tag.Name
			}
			return nil, 0, err
		}

		t.byID[id] = len(t.entries)
		t.entries = append(t.entries, &entry{tag: tag, value: v, offset: offset})
	}

	return t, size, nil
}
