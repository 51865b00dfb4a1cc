// Package sxgeotest builds synthetic SxGeo database files for tests.
package sxgeotest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net/netip"
	"sort"
)

// Default pack formats of SxGeo City databases.
const (
	CountryFormat = "T:id/c2:iso/n2:lat/n2:lon/b:name_ru/b:name_en"
	RegionFormat  = "M:id/c7:iso/b:name_ru/b:name_en"
	CityFormat    = "M:region_seek/T:country_id/M:id/N5:lat/N5:lon/b:name_ru/b:name_en"
)

// Range - one range block: the range covers [Start, next Start)
type Range struct {
	Start uint32
	ID    uint32
}

// Builder - in-memory description of a database file
type Builder struct {
	Version           byte
	Timestamp         uint32
	Kind              byte
	Encoding          byte
	IDLen             byte
	FirstByteIndexLen byte
	Span              uint16

	CountryFormat string
	RegionFormat  string
	CityFormat    string

	ranges     []Range
	regions    []byte
	countries  []byte
	cities     []byte
	maxRegion  int
	maxCountry int
	maxCity    int
}

// NewCountry - builder for a country-only database (1-byte identifiers)
func NewCountry() *Builder {
	return &Builder{
		Version:           22,
		Timestamp:         1700000000,
		Kind:              1,
		IDLen:             1,
		FirstByteIndexLen: 224,
		Span:              10,
	}
}

// NewCity - builder for a city database (3-byte identifiers) with the default pack formats
func NewCity() *Builder {
	return &Builder{
		Version:           22,
		Timestamp:         1700000000,
		Kind:              2,
		IDLen:             3,
		FirstByteIndexLen: 224,
		Span:              10,
		CountryFormat:     CountryFormat,
		RegionFormat:      RegionFormat,
		CityFormat:        CityFormat,
	}
}

// AddRange - range starting at the dotted-quad address start
func (b *Builder) AddRange(start string, id uint32) *Builder {
	addr := netip.MustParseAddr(start).As4()
	return b.AddRangeInt(binary.BigEndian.Uint32(addr[:]), id)
}

// AddRangeInt - range starting at the address start
func (b *Builder) AddRangeInt(start uint32, id uint32) *Builder {
	b.ranges = append(b.ranges, Range{Start: start, ID: id})
	return b
}

// AddRegion - appends a region record, returns its seek for a city's region_seek
func (b *Builder) AddRegion(values ...interface{}) uint32 {
	rec := b.mustPack(b.RegionFormat, values)
	seek := uint32(len(b.regions))
	b.regions = append(b.regions, rec...)
	if len(rec) > b.maxRegion {
		b.maxRegion = len(rec)
	}
	return seek
}

// AddCountry - appends a country record, returns its offset which ranges use as
// identifier. Countries must be added before any city.
func (b *Builder) AddCountry(values ...interface{}) uint32 {
	if len(b.cities) > 0 {
		panic("sxgeotest: countries must be added before cities")
	}
	rec := b.mustPack(b.CountryFormat, values)
	id := uint32(len(b.countries))
	b.countries = append(b.countries, rec...)
	if len(rec) > b.maxCountry {
		b.maxCountry = len(rec)
	}
	return id
}

// AddCity - appends a city record, returns its offset in the combined country+city span
func (b *Builder) AddCity(values ...interface{}) uint32 {
	rec := b.mustPack(b.CityFormat, values)
	id := uint32(len(b.countries) + len(b.cities))
	b.cities = append(b.cities, rec...)
	if len(rec) > b.maxCity {
		b.maxCity = len(rec)
	}
	return id
}

func (b *Builder) mustPack(format string, values []interface{}) []byte {
	rec, err := Pack(format, b.Encoding, values...)
	if err != nil {
		panic(err)
	}
	return rec
}

// Ranges - range blocks sorted by start
func (b *Builder) Ranges() []Range {
	ranges := append([]Range(nil), b.ranges...)
	sort.SliceStable(ranges, func(i, j int) bool { return ranges[i].Start < ranges[j].Start })
	return ranges
}

// MainIndex - one entry per Span blocks holding the start of the bucket's last block
func (b *Builder) MainIndex() []uint32 {
	ranges := b.Ranges()
	span := int(b.Span)
	n := (len(ranges) + span - 1) / span
	if n == 0 {
		n = 1
	}
	idx := make([]uint32, n)
	for i := range idx {
		last := (i+1)*span - 1
		if last >= len(ranges) {
			last = len(ranges) - 1
		}
		if last >= 0 {
			idx[i] = ranges[last].Start
		}
	}
	return idx
}

// FirstByteIndex - entry o is the number of blocks whose first octet is at most o
func (b *Builder) FirstByteIndex() []uint32 {
	idx := make([]uint32, b.FirstByteIndexLen)
	for _, r := range b.ranges {
		for o := int(r.Start >> 24); o < len(idx); o++ {
			idx[o]++
		}
	}
	return idx
}

func (b *Builder) packText() string {
	if b.CountryFormat == "" && b.RegionFormat == "" && b.CityFormat == "" {
		return ""
	}
	return b.CountryFormat + "\x00" + b.RegionFormat + "\x00" + b.CityFormat
}

// Bytes - the database file content
func (b *Builder) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := b.write(newWriterStream(&buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile - writes the database to filename, creating its directory
func (b *Builder) WriteFile(filename string) error {
	stream, err := newFileStream(filename)
	if err != nil {
		return err
	}
	if err := b.write(stream); err != nil {
		stream.close()
		return err
	}
	return stream.close()
}

func (b *Builder) write(stream *fileStream) error {
	if b.Span == 0 {
		return fmt.Errorf("span must be positive")
	}
	ranges := b.Ranges()
	mIndex := b.MainIndex()
	pack := b.packText()

	steps := []func() error{
		func() error { return stream.writeBuf([]byte("SxG")) },
		func() error { return stream.writeByte(b.Version) },
		func() error { return stream.writeUint32(b.Timestamp) },
		func() error { return stream.writeByte(b.Kind) },
		func() error { return stream.writeByte(b.Encoding) },
		func() error { return stream.writeByte(b.FirstByteIndexLen) },
		func() error { return stream.writeUint16(uint16(len(mIndex))) },
		func() error { return stream.writeUint16(b.Span) },
		func() error { return stream.writeUint32(uint32(len(ranges))) },
		func() error { return stream.writeByte(b.IDLen) },
		func() error { return stream.writeUint16(uint16(b.maxRegion)) },
		func() error { return stream.writeUint16(uint16(b.maxCity)) },
		func() error { return stream.writeUint32(uint32(len(b.regions))) },
		func() error { return stream.writeUint32(uint32(len(b.countries) + len(b.cities))) },
		func() error { return stream.writeUint16(uint16(b.maxCountry)) },
		func() error { return stream.writeUint32(uint32(len(b.countries))) },
		func() error { return stream.writeUint16(uint16(len(pack))) },
		func() error { return stream.writeBuf([]byte(pack)) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}

	for _, v := range b.FirstByteIndex() {
		if err := stream.writeUint32(v); err != nil {
			return err
		}
	}
	for _, v := range mIndex {
		if err := stream.writeUint32(v); err != nil {
			return err
		}
	}
	block := make([]byte, 0, 3+int(b.IDLen))
	for _, r := range ranges {
		block = append(block[:0], byte(r.Start>>16), byte(r.Start>>8), byte(r.Start))
		for i := int(b.IDLen) - 1; i >= 0; i-- {
			block = append(block, byte(r.ID>>(8*uint(i))))
		}
		if err := stream.writeBuf(block); err != nil {
			return err
		}
	}
	for _, blob := range [][]byte{b.regions, b.countries, b.cities} {
		if err := stream.writeBuf(blob); err != nil {
			return err
		}
	}
	return nil
}
