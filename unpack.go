package sxgeo

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// FieldSpec - one item of a pack format
type FieldSpec struct {
	Name string
	Kind byte // t T s S m M i I f d n N c b
	Arg  int  // decimal scale for n/N, width for c
}

// width - bytes taken by a fixed-width field, -1 for NUL-terminated text
func (f FieldSpec) width() int {
	switch f.Kind {
	case 't', 'T':
		return 1
	case 's', 'S', 'n':
		return 2
	case 'm', 'M':
		return 3
	case 'i', 'I', 'f', 'N':
		return 4
	case 'd':
		return 8
	case 'c':
		return f.Arg
	}
	return -1
}

// PackFormat - ordered field layout of one dictionary record type
type PackFormat struct {
	Fields []FieldSpec
	raw    string
}

func (p PackFormat) String() string { return p.raw }

// Empty - true when the format declares no fields
func (p PackFormat) Empty() bool { return len(p.Fields) == 0 }

// ParsePackFormat parses "kind:name/kind:name" pack text.
func ParsePackFormat(text string) (PackFormat, error) {
	format := PackFormat{raw: text}
	if text == "" {
		return format, nil
	}
	for _, item := range strings.Split(text, "/") {
		kind, name, ok := strings.Cut(item, ":")
		if !ok || kind == "" || name == "" {
			return PackFormat{}, fmt.Errorf("%w: item %q", ErrBadPackFormat, item)
		}
		spec := FieldSpec{Name: name, Kind: kind[0]}
		arg := kind[1:]
		switch spec.Kind {
		case 't', 'T', 's', 'S', 'm', 'M', 'i', 'I', 'f', 'd', 'b':
			if arg != "" {
				return PackFormat{}, fmt.Errorf("%w: item %q", ErrBadPackFormat, item)
			}
		case 'n', 'N', 'c':
			n, err := strconv.Atoi(arg)
			if err != nil || n < 0 || (spec.Kind == 'c' && n == 0) {
				return PackFormat{}, fmt.Errorf("%w: item %q", ErrBadPackFormat, item)
			}
			spec.Arg = n
		default:
			return PackFormat{}, fmt.Errorf("%w: unknown kind in %q", ErrBadPackFormat, item)
		}
		format.Fields = append(format.Fields, spec)
	}
	return format, nil
}

// splitPackFormats splits the NUL-delimited header text into country, region and city formats.
func splitPackFormats(text string) (country, region, city PackFormat, err error) {
	parts := strings.Split(text, "\x00")
	var raw [3]string
	copy(raw[:], parts)
	if country, err = ParsePackFormat(raw[0]); err != nil {
		return
	}
	if region, err = ParsePackFormat(raw[1]); err != nil {
		return
	}
	city, err = ParsePackFormat(raw[2])
	return
}

// textDecoder converts dictionary text to UTF-8.
type textDecoder func([]byte) (string, error)

func newTextDecoder(enc Encoding) textDecoder {
	switch enc {
	case EncodingLatin1:
		return charmapDecoder(charmap.ISO8859_1)
	case EncodingCP1251:
		return charmapDecoder(charmap.Windows1251)
	}
	return func(b []byte) (string, error) { return string(b), nil }
}

func charmapDecoder(cm *charmap.Charmap) textDecoder {
	return func(b []byte) (string, error) {
		out, err := cm.NewDecoder().Bytes(b)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
}

// unpack decodes one record from buf. Record.Len is the exact number of bytes consumed,
// independent of len(buf).
func unpack(buf []byte, format PackFormat, decode textDecoder) (*Record, error) {
	rec := &Record{Fields: make([]Field, 0, len(format.Fields))}
	pos := 0
	for _, f := range format.Fields {
		w := f.width()
		if w < 0 {
			end := bytes.IndexByte(buf[pos:], 0)
			if end < 0 {
				return nil, fmt.Errorf("%w: field %q has no terminator", ErrCorruptRecord, f.Name)
			}
			s, err := decode(buf[pos : pos+end])
			if err != nil {
				return nil, fmt.Errorf("%w: field %q: %v", ErrCorruptRecord, f.Name, err)
			}
			rec.Fields = append(rec.Fields, Field{Name: f.Name, Value: TextValue(s)})
			pos += end + 1
			continue
		}
		if pos+w > len(buf) {
			return nil, fmt.Errorf("%w: field %q needs %d bytes at %d, have %d", ErrCorruptRecord, f.Name, w, pos, len(buf))
		}
		v, err := fixedValue(f, buf[pos:pos+w], decode)
		if err != nil {
			return nil, err
		}
		rec.Fields = append(rec.Fields, Field{Name: f.Name, Value: v})
		pos += w
	}
	rec.Len = pos
	return rec, nil
}

func fixedValue(f FieldSpec, b []byte, decode textDecoder) (Value, error) {
	switch f.Kind {
	case 't':
		return IntValue(int64(int8(b[0]))), nil
	case 'T':
		return UintValue(uint64(b[0])), nil
	case 's':
		return IntValue(int64(int16(binary.LittleEndian.Uint16(b)))), nil
	case 'S':
		return UintValue(uint64(binary.LittleEndian.Uint16(b))), nil
	case 'm':
		v := int32(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16)
		if b[2]&0x80 != 0 {
			v -= 1 << 24
		}
		return IntValue(int64(v)), nil
	case 'M':
		return UintValue(uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16), nil
	case 'i':
		return IntValue(int64(int32(binary.LittleEndian.Uint32(b)))), nil
	case 'I':
		return UintValue(uint64(binary.LittleEndian.Uint32(b))), nil
	case 'f':
		return FloatValue(float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))), nil
	case 'd':
		return FloatValue(math.Float64frombits(binary.LittleEndian.Uint64(b))), nil
	case 'n':
		return FloatValue(float64(int16(binary.LittleEndian.Uint16(b))) / math.Pow10(f.Arg)), nil
	case 'N':
		return FloatValue(float64(int32(binary.LittleEndian.Uint32(b))) / math.Pow10(f.Arg)), nil
	case 'c':
		s, err := decode(bytes.TrimRight(b, " "))
		if err != nil {
			return Value{}, fmt.Errorf("%w: field %q: %v", ErrCorruptRecord, f.Name, err)
		}
		return TextValue(s), nil
	}
	return Value{}, fmt.Errorf("%w: kind %q", ErrBadPackFormat, f.Kind)
}

// Decode decodes one record laid out by format from buf. Text fields are converted from
// enc to UTF-8. The returned Record.Len is the number of bytes the record occupies.
func Decode(buf []byte, format PackFormat, enc Encoding) (*Record, error) {
	return unpack(buf, format, newTextDecoder(enc))
}
