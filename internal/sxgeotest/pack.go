package sxgeotest

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// Pack encodes values, in field order, as one record of the given pack format.
// Integers accept any Go integer type, n/N/f/d accept float64, c/b accept string.
func Pack(format string, encoding byte, values ...interface{}) ([]byte, error) {
	if format == "" {
		return nil, nil
	}
	items := strings.Split(format, "/")
	if len(items) != len(values) {
		return nil, fmt.Errorf("format %q has %d fields, got %d values", format, len(items), len(values))
	}
	var out []byte
	for i, item := range items {
		kind, name, _ := strings.Cut(item, ":")
		arg, _ := strconv.Atoi(kind[1:])
		v := values[i]
		switch kind[0] {
		case 't', 'T':
			out = append(out, byte(toInt(v)))
		case 's', 'S':
			out = binary.LittleEndian.AppendUint16(out, uint16(toInt(v)))
		case 'm', 'M':
			n := uint32(toInt(v))
			out = append(out, byte(n), byte(n>>8), byte(n>>16))
		case 'i', 'I':
			out = binary.LittleEndian.AppendUint32(out, uint32(toInt(v)))
		case 'f':
			out = binary.LittleEndian.AppendUint32(out, math.Float32bits(float32(v.(float64))))
		case 'd':
			out = binary.LittleEndian.AppendUint64(out, math.Float64bits(v.(float64)))
		case 'n':
			out = binary.LittleEndian.AppendUint16(out, uint16(int16(math.Round(v.(float64)*math.Pow10(arg)))))
		case 'N':
			out = binary.LittleEndian.AppendUint32(out, uint32(int32(math.Round(v.(float64)*math.Pow10(arg)))))
		case 'c':
			s, err := encodeText(v.(string), encoding)
			if err != nil {
				return nil, err
			}
			if len(s) > arg {
				return nil, fmt.Errorf("field %q: %q longer than %d", name, v, arg)
			}
			out = append(out, s...)
			for j := len(s); j < arg; j++ {
				out = append(out, ' ')
			}
		case 'b':
			s, err := encodeText(v.(string), encoding)
			if err != nil {
				return nil, err
			}
			out = append(out, s...)
			out = append(out, 0)
		default:
			return nil, fmt.Errorf("unknown kind in %q", item)
		}
	}
	return out, nil
}

func encodeText(s string, encoding byte) ([]byte, error) {
	switch encoding {
	case 1:
		return charmap.ISO8859_1.NewEncoder().Bytes([]byte(s))
	case 2:
		return charmap.Windows1251.NewEncoder().Bytes([]byte(s))
	}
	return []byte(s), nil
}

func toInt(v interface{}) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case uint:
		return int64(n)
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		return int64(n)
	}
	panic(fmt.Sprintf("sxgeotest: %T is not an integer", v))
}
