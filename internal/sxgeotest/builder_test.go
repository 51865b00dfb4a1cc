package sxgeotest

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderIndexes(t *testing.T) {
	b := NewCountry()
	b.Span = 2
	b.FirstByteIndexLen = 8
	b.AddRange("3.0.0.0", 3).AddRange("1.0.0.0", 1).AddRange("1.2.0.0", 2).AddRange("5.0.0.0", 5).AddRange("5.1.0.0", 6)

	ranges := b.Ranges()
	require.Len(t, ranges, 5)
	assert.Equal(t, uint32(1), ranges[0].ID)
	assert.Equal(t, uint32(6), ranges[4].ID)

	assert.Equal(t, []uint32{0, 2, 2, 3, 3, 5, 5, 5}, b.FirstByteIndex())
	assert.Equal(t, []uint32{0x01020000, 0x05000000, 0x05010000}, b.MainIndex())
}

func TestBuilderLayout(t *testing.T) {
	b := NewCity()
	b.FirstByteIndexLen = 4
	seek := b.AddRegion(1, "RU-MOW", "Москва", "Moscow")
	country := b.AddCountry(185, "RU", 60.0, 100.0, "Россия", "Russia")
	city := b.AddCity(seek, 185, 524901, 55.75222, 37.61556, "Москва", "Moscow")
	b.AddRange("1.0.0.0", city)

	assert.Equal(t, uint32(0), seek)
	assert.Equal(t, uint32(0), country)
	assert.Panics(t, func() { b.AddCountry(56, "DE", 0.0, 0.0, "", "") })

	path := filepath.Join(t.TempDir(), "nested", "db.dat")
	require.NoError(t, b.WriteFile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "SxG", string(data[:3]))
	assert.Equal(t, byte(3), data[19])
	packLen := int(binary.BigEndian.Uint16(data[38:40]))
	assert.Equal(t, CountryFormat+"\x00"+RegionFormat+"\x00"+CityFormat, string(data[40:40+packLen]))

	countrySize := binary.BigEndian.Uint32(data[34:38])
	citySize := binary.BigEndian.Uint32(data[28:32])
	assert.Greater(t, citySize, countrySize)
	assert.Equal(t, city, countrySize)

	rangesStart := 40 + packLen + 4*4 + 1*4
	assert.Equal(t, []byte{0, 0, 0, 0, 0, byte(city)}, data[rangesStart:rangesStart+6])
	assert.Len(t, data, rangesStart+6+int(binary.BigEndian.Uint32(data[24:28]))+int(citySize))
}

func TestPack(t *testing.T) {
	buf, err := Pack("T:id/c3:iso/b:name", 0, 7, "RU", "x")
	require.NoError(t, err)
	assert.Equal(t, []byte{7, 'R', 'U', ' ', 'x', 0}, buf)

	_, err = Pack("T:id/b:name", 0, 7)
	assert.Error(t, err)
	_, err = Pack("c2:iso", 0, "RUS")
	assert.Error(t, err)
}

func TestFileStream(t *testing.T) {
	var buf bytes.Buffer
	stream := newWriterStream(&buf)
	require.NoError(t, stream.writeByte(0x7F))
	require.NoError(t, stream.writeUint16(0x0102))
	require.NoError(t, stream.writeUint32(0xDEADBEEF))
	require.NoError(t, stream.writeBuf([]byte("SxG")))
	require.NoError(t, stream.close())
	assert.Equal(t, []byte{0x7F, 0x01, 0x02, 0xDE, 0xAD, 0xBE, 0xEF, 'S', 'x', 'G'}, buf.Bytes())
}

func TestBuilderHeaderFields(t *testing.T) {
	b := NewCountry()
	b.Span = 3
	b.Timestamp = 0x01020304
	b.AddRange("1.0.0.0", 225).AddRange("2.0.0.0", 185)

	data, err := b.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{'S', 'x', 'G', 22, 1, 2, 3, 4, 1, 0, 224, 0, 1, 0, 3, 0, 0, 0, 2, 1}, data[:20])
	assert.Equal(t, make([]byte, 20), data[20:40])

	path := filepath.Join(t.TempDir(), "db.dat")
	require.NoError(t, b.WriteFile(path))
	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, onDisk)
	assert.Len(t, data, 40+224*4+1*4+2*4)
}
