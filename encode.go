package sxgeo

import (
	"bytes"

	json "github.com/goccy/go-json"
	"github.com/vmihailenco/msgpack"
)

var (
	_ json.Marshaler        = (*Result)(nil)
	_ msgpack.CustomEncoder = (*Result)(nil)
)

// MarshalJSON - result as a JSON object keeping field order
func (r *Result) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value.Interface())
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// EncodeMsgpack - result as a msgpack map keeping field order
func (r *Result) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(len(r.fields)); err != nil {
		return err
	}
	for _, f := range r.fields {
		if err := enc.EncodeString(f.Name); err != nil {
			return err
		}
		if err := encodeValue(enc, f.Value); err != nil {
			return err
		}
	}
	return nil
}

func encodeValue(enc *msgpack.Encoder, v Value) error {
	switch v.Kind() {
	case ValueUint:
		return enc.EncodeUint(v.Uint())
	case ValueInt:
		return enc.EncodeInt(v.Int())
	case ValueFloat:
		return enc.EncodeFloat64(v.Float())
	case ValueText:
		return enc.EncodeString(v.Text())
	}
	return enc.EncodeNil()
}
