package rpm

func mismatch(tag Tag, v Value, want string) error {
	return newError(ErrInvalidValue, tag.Name, "holds %T, not %s", v, want)
}

// String returns the first string stored under tag.
func (t *IndexTable) String(tag Tag) (string, error) {
	v, err := t.Get(tag)
	if err != nil {
		return "", err
	}
	s, ok := v.(Strings)
	if !ok || len(s) == 0 {
		return "", mismatch(tag, v, "a string")
	}
	return s[0], nil
}

// StringArray returns the strings stored under tag.
func (t *IndexTable) StringArray(tag Tag) ([]string, error) {
	v, err := t.Get(tag)
	if err != nil {
		return nil, err
	}
	s, ok := v.(Strings)
	if !ok {
		return nil, mismatch(tag, v, "strings")
	}
	return []string(s), nil
}

// Int16 returns the first INT16 stored under tag.
func (t *IndexTable) Int16(tag Tag) (uint16, error) {
	a, err := t.Int16Array(tag)
	if err != nil {
		return 0, err
	}
	if len(a) == 0 {
		return 0, newError(ErrInvalidValue, tag.Name, "empty")
	}
	return a[0], nil
}

// Int16Array returns the INT16 values stored under tag.
func (t *IndexTable) Int16Array(tag Tag) ([]uint16, error) {
	v, err := t.Get(tag)
	if err != nil {
		return nil, err
	}
	a, ok := v.(Int16s)
	if !ok {
		return nil, mismatch(tag, v, "INT16")
	}
	return []uint16(a), nil
}

// Int32 returns the first INT32 stored under tag.
func (t *IndexTable) Int32(tag Tag) (uint32, error) {
	a, err := t.Int32Array(tag)
	if err != nil {
		return 0, err
	}
	if len(a) == 0 {
		return 0, newError(ErrInvalidValue, tag.Name, "empty")
	}
	return a[0], nil
}

// Int32Array returns the INT32 values stored under tag.
func (t *IndexTable) Int32Array(tag Tag) ([]uint32, error) {
	v, err := t.Get(tag)
	if err != nil {
		return nil, err
	}
	a, ok := v.(Int32s)
	if !ok {
		return nil, mismatch(tag, v, "INT32")
	}
	return []uint32(a), nil
}

// Binary returns the bytes stored under tag.
func (t *IndexTable) Binary(tag Tag) ([]byte, error) {
	v, err := t.Get(tag)
	if err != nil {
		return nil, err
	}
	switch b := v.(type) {
	case Binary:
		return []byte(b), nil
	case Chars:
		return []byte(b), nil
	}
	return nil, mismatch(tag, v, "binary")
}
