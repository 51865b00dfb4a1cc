package sxgeo

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"time"
)

const (
	headerLen = 40
	signature = "SxG"
	ipLen     = 3 // bytes of range start stored per block
)

// readHeader reads the fixed header and pack formats from the start of the stream and
// derives section offsets. The stream is left positioned at the first-byte index.
func readHeader(file *dbStream) (*Header, error) {
	if file.getLength() < headerLen {
		return nil, ErrTooSmall
	}
	if err := file.seekPos(0, io.SeekStart); err != nil {
		return nil, err
	}
	buf, err := file.readCount(headerLen)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(buf[0:3], []byte(signature)) {
		return nil, ErrBadSignature
	}
	timestamp := binary.BigEndian.Uint32(buf[4:8])
	h := &Header{
		Version:           formatVersion(buf[3]),
		Timestamp:         time.Unix(int64(timestamp), 0).UTC(),
		Kind:              DBKind(buf[8]),
		Encoding:          Encoding(buf[9]),
		FirstByteIndexLen: buf[10],
		MainIndexLen:      binary.BigEndian.Uint16(buf[11:13]),
		RangeSpan:         binary.BigEndian.Uint16(buf[13:15]),
		RangeCount:        binary.BigEndian.Uint32(buf[15:19]),
		IDLen:             buf[19],
		MaxRegion:         binary.BigEndian.Uint16(buf[20:22]),
		MaxCity:           binary.BigEndian.Uint16(buf[22:24]),
		RegionSize:        binary.BigEndian.Uint32(buf[24:28]),
		CitySize:          binary.BigEndian.Uint32(buf[28:32]),
		MaxCountry:        binary.BigEndian.Uint16(buf[32:34]),
		CountrySize:       binary.BigEndian.Uint32(buf[34:38]),
		PackSize:          binary.BigEndian.Uint16(buf[38:40]),
	}
	if err := h.validate(timestamp); err != nil {
		return nil, err
	}

	if h.PackSize > 0 {
		pack, err := file.readCount(int(h.PackSize))
		if err != nil {
			return nil, err
		}
		h.CountryFormat, h.RegionFormat, h.CityFormat, err = splitPackFormats(string(pack))
		if err != nil {
			return nil, err
		}
	}

	h.BlockLen = ipLen + uint32(h.IDLen)
	h.FirstByteIndexStart = headerLen + uint32(h.PackSize)
	h.MainIndexStart = h.FirstByteIndexStart + uint32(h.FirstByteIndexLen)*4
	h.RangesStart = h.MainIndexStart + uint32(h.MainIndexLen)*4
	h.RegionsStart = int64(h.RangesStart) + int64(h.RangeCount)*int64(h.BlockLen)
	h.CountriesStart = h.RegionsStart + int64(h.RegionSize)
	h.CitiesStart = h.CountriesStart + int64(h.CountrySize)

	if h.RegionsStart > file.getLength() {
		return nil, fmt.Errorf("%w: range table ends at %d, file has %d bytes", ErrShortRead, h.RegionsStart, file.getLength())
	}
	return h, nil
}

// validate checks the fields a zero-filled or corrupt header would break.
func (h *Header) validate(timestamp uint32) error {
	switch {
	case h.FirstByteIndexLen == 0:
		return fmt.Errorf("%w: first-byte index length is zero", ErrInvalidHeader)
	case h.MainIndexLen == 0:
		return fmt.Errorf("%w: main index length is zero", ErrInvalidHeader)
	case h.RangeSpan == 0:
		return fmt.Errorf("%w: range span is zero", ErrInvalidHeader)
	case h.RangeCount == 0:
		return fmt.Errorf("%w: range count is zero", ErrInvalidHeader)
	case timestamp == 0:
		return fmt.Errorf("%w: timestamp is zero", ErrInvalidHeader)
	case h.IDLen == 0:
		return fmt.Errorf("%w: identifier width is zero", ErrInvalidHeader)
	case h.IDLen > 4:
		return fmt.Errorf("%w: identifier width %d", ErrInvalidHeader, h.IDLen)
	case h.Encoding > EncodingCP1251:
		return fmt.Errorf("%w: unknown encoding %d", ErrInvalidHeader, h.Encoding)
	}
	return nil
}

// formatVersion renders 22 as "2.2"; versions below 10 stay a bare digit.
func formatVersion(v byte) string {
	s := strconv.Itoa(int(v))
	if v < 10 {
		return s
	}
	return s[:len(s)-1] + "." + s[len(s)-1:]
}

// CountryOnly - true when identifiers are ISO table indexes rather than dictionary offsets
func (h *Header) CountryOnly() bool {
	return h.IDLen == 1
}
