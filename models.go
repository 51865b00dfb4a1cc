package sxgeo

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Mode - residency strategy for range table and dictionaries
type Mode int

const (
	// ModeFile - indexes in memory, everything else read from disk per lookup
	ModeFile Mode = iota
	// ModeRanges - range table loaded at open, dictionaries read from disk
	ModeRanges
	// ModeMemory - range table and dictionaries loaded at open, file closed
	ModeMemory
	// ModeMmap - whole file memory mapped, lookups served from the mapping
	ModeMmap
)

func (m Mode) String() string {
	switch m {
	case ModeFile:
		return "file"
	case ModeRanges:
		return "ranges"
	case ModeMemory:
		return "memory"
	case ModeMmap:
		return "mmap"
	}
	return "Mode(" + strconv.Itoa(int(m)) + ")"
}

// ParseMode - mode from its String form
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "file", "disk":
		return ModeFile, nil
	case "ranges":
		return ModeRanges, nil
	case "memory", "mem":
		return ModeMemory, nil
	case "mmap":
		return ModeMmap, nil
	}
	return ModeFile, fmt.Errorf("unknown mode %q", s)
}

// InfoLevel - how much information a lookup returns
type InfoLevel int

const (
	// OnlyCountry - country fields only
	OnlyCountry InfoLevel = iota
	// CountryCity - country and city fields
	CountryCity
	// FullInfo - country, city and region fields
	FullInfo
)

func (l InfoLevel) String() string {
	switch l {
	case OnlyCountry:
		return "country"
	case CountryCity:
		return "city"
	case FullInfo:
		return "full"
	}
	return "InfoLevel(" + strconv.Itoa(int(l)) + ")"
}

// ParseInfoLevel - info level from its String form
func ParseInfoLevel(s string) (InfoLevel, error) {
	switch strings.ToLower(s) {
	case "country":
		return OnlyCountry, nil
	case "city":
		return CountryCity, nil
	case "full":
		return FullInfo, nil
	}
	return OnlyCountry, fmt.Errorf("unknown info level %q", s)
}

// DBKind - database kind byte from the header
type DBKind uint8

const (
	KindUniversal    DBKind = 0
	KindSxGeoCountry DBKind = 1
	KindSxGeoCity    DBKind = 2
	KindGeoIPCountry DBKind = 11
	KindGeoIPCity    DBKind = 12
	KindIPGeoBase    DBKind = 21
)

func (k DBKind) String() string {
	switch k {
	case KindUniversal:
		return "Universal"
	case KindSxGeoCountry:
		return "SxGeo Country"
	case KindSxGeoCity:
		return "SxGeo City"
	case KindGeoIPCountry:
		return "GeoIP Country"
	case KindGeoIPCity:
		return "GeoIP City"
	case KindIPGeoBase:
		return "ipgeobase"
	}
	return "DBKind(" + strconv.Itoa(int(k)) + ")"
}

// Encoding - text encoding of dictionary strings
type Encoding uint8

const (
	EncodingUTF8   Encoding = 0
	EncodingLatin1 Encoding = 1
	EncodingCP1251 Encoding = 2
)

func (e Encoding) String() string {
	switch e {
	case EncodingUTF8:
		return "utf-8"
	case EncodingLatin1:
		return "latin1"
	case EncodingCP1251:
		return "cp1251"
	}
	return "Encoding(" + strconv.Itoa(int(e)) + ")"
}

// Header - model for the database header and derived section offsets
type Header struct {
	Version   string    // "2.2" style version
	Timestamp time.Time // build time
	Kind      DBKind
	Encoding  Encoding

	FirstByteIndexLen uint8  // entries in the first-byte index
	MainIndexLen      uint16 // entries in the main index
	RangeSpan         uint16 // range blocks per main index entry
	RangeCount        uint32 // total range blocks
	IDLen             uint8  // 1 for country-only, 3 for city databases

	MaxRegion   uint16
	MaxCity     uint16
	RegionSize  uint32
	CitySize    uint32 // combined country+city span
	MaxCountry  uint16
	CountrySize uint32
	PackSize    uint16

	CountryFormat PackFormat
	RegionFormat  PackFormat
	CityFormat    PackFormat

	BlockLen uint32 // 3 + IDLen

	FirstByteIndexStart uint32
	MainIndexStart      uint32
	RangesStart         uint32
	RegionsStart        int64
	CountriesStart      int64
	CitiesStart         int64
}

// ValueKind - tag of a decoded Value
type ValueKind uint8

const (
	ValueUint ValueKind = iota + 1
	ValueInt
	ValueFloat
	ValueText
)

func (k ValueKind) String() string {
	switch k {
	case ValueUint:
		return "uint"
	case ValueInt:
		return "int"
	case ValueFloat:
		return "float"
	case ValueText:
		return "text"
	}
	return "invalid"
}

// Value - one decoded field value
type Value struct {
	kind ValueKind
	u    uint64
	i    int64
	f    float64
	s    string
}

// UintValue - Value holding an unsigned integer
func UintValue(v uint64) Value { return Value{kind: ValueUint, u: v} }

// IntValue - Value holding a signed integer
func IntValue(v int64) Value { return Value{kind: ValueInt, i: v} }

// FloatValue - Value holding a float
func FloatValue(v float64) Value { return Value{kind: ValueFloat, f: v} }

// TextValue - Value holding text
func TextValue(v string) Value { return Value{kind: ValueText, s: v} }

// Kind - tag of the value
func (v Value) Kind() ValueKind { return v.kind }

// Uint - integer content as uint64; signed values are converted, others are 0
func (v Value) Uint() uint64 {
	switch v.kind {
	case ValueUint:
		return v.u
	case ValueInt:
		return uint64(v.i)
	}
	return 0
}

// Int - integer content as int64
func (v Value) Int() int64 {
	switch v.kind {
	case ValueUint:
		return int64(v.u)
	case ValueInt:
		return v.i
	}
	return 0
}

// Float - numeric content as float64
func (v Value) Float() float64 {
	switch v.kind {
	case ValueUint:
		return float64(v.u)
	case ValueInt:
		return float64(v.i)
	case ValueFloat:
		return v.f
	}
	return 0
}

// Text - text content, empty for numeric values
func (v Value) Text() string { return v.s }

// Interface - the value as a plain Go value
func (v Value) Interface() interface{} {
	switch v.kind {
	case ValueUint:
		return v.u
	case ValueInt:
		return v.i
	case ValueFloat:
		return v.f
	case ValueText:
		return v.s
	}
	return nil
}

func (v Value) String() string {
	switch v.kind {
	case ValueUint:
		return strconv.FormatUint(v.u, 10)
	case ValueInt:
		return strconv.FormatInt(v.i, 10)
	case ValueFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	}
	return v.s
}

// Field - named value
type Field struct {
	Name  string
	Value Value
}

// Record - decoded dictionary record with the number of bytes it occupied
type Record struct {
	Fields []Field
	Len    int
}

// Get - value by field name
func (r *Record) Get(name string) (Value, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Result - ordered output of a lookup
type Result struct {
	fields []Field
}

func (r *Result) add(name string, v Value) {
	r.fields = append(r.fields, Field{Name: name, Value: v})
}

// Get - value by output key
func (r *Result) Get(key string) (Value, bool) {
	for _, f := range r.fields {
		if f.Name == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Keys - output keys in order
func (r *Result) Keys() []string {
	keys := make([]string, len(r.fields))
	for i, f := range r.fields {
		keys[i] = f.Name
	}
	return keys
}

// Fields - copy of the ordered fields
func (r *Result) Fields() []Field {
	return append([]Field(nil), r.fields...)
}

// Len - number of fields
func (r *Result) Len() int { return len(r.fields) }

func (r *Result) String() string {
	var sb strings.Builder
	for i, f := range r.fields {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(f.Name)
		sb.WriteByte('=')
		sb.WriteString(f.Value.String())
	}
	return sb.String()
}
