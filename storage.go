package sxgeo

import (
	"fmt"
	"io"
	"sync"

	"github.com/edsrzf/mmap-go"
)

type dirKind int

const (
	dirRegions dirKind = iota
	dirCountries
)

// storage - source of range blocks and dictionary bytes for one residency mode
type storage interface {
	// rangeWindow returns count range blocks starting at block first
	rangeWindow(first, count uint32) ([]byte, error)
	// directory returns at most maxLen bytes of a dictionary starting at seek
	directory(dir dirKind, seek uint32, maxLen uint16) ([]byte, error)
	// findCountry scans the country records for the one with the given id, nil if absent
	findCountry(id uint64, format PackFormat, decode textDecoder) (*Record, error)
	close() error
}

// newStorage builds the backend for mode. The stream must be positioned at the range table.
func newStorage(file *dbStream, h *Header, mode Mode) (storage, error) {
	switch mode {
	case ModeFile:
		return &fileStorage{file: file, header: h}, nil
	case ModeRanges:
		ranges, err := file.readCount(int(h.RangeCount * h.BlockLen))
		if err != nil {
			return nil, err
		}
		return &fileStorage{file: file, header: h, ranges: ranges}, nil
	case ModeMemory:
		return loadMemory(file, h)
	case ModeMmap:
		return mapMemory(file, h)
	}
	return nil, fmt.Errorf("unknown mode %d", mode)
}

// fileStorage serves dictionaries, and ranges unless preloaded, from the stream.
type fileStorage struct {
	mu     sync.Mutex // guards the stream cursor
	file   *dbStream
	header *Header
	ranges []byte
}

func (s *fileStorage) rangeWindow(first, count uint32) ([]byte, error) {
	if s.ranges != nil {
		return sliceRanges(s.ranges, s.header, first, count)
	}
	if first+count > s.header.RangeCount {
		return nil, fmt.Errorf("%w: range window [%d,%d) outside %d blocks", ErrCorruptRecord, first, first+count, s.header.RangeCount)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	pos := int64(s.header.RangesStart) + int64(first)*int64(s.header.BlockLen)
	if err := s.file.seekPos(pos, io.SeekStart); err != nil {
		return nil, err
	}
	return s.file.readCount(int(count * s.header.BlockLen))
}

func (s *fileStorage) directory(dir dirKind, seek uint32, maxLen uint16) ([]byte, error) {
	start := s.header.CountriesStart
	if dir == dirRegions {
		start = s.header.RegionsStart
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.file.seekPos(start+int64(seek), io.SeekStart); err != nil {
		return nil, err
	}
	return s.file.readUpTo(int(maxLen))
}

// findCountry walks the country records from the start of the country dictionary.
// Each step reads a buffer sized for the largest country record, decodes the real length
// and seeks back over the unused tail so the next read starts at the next record.
func (s *fileStorage) findCountry(id uint64, format PackFormat, decode textDecoder) (*Record, error) {
	h := s.header
	s.mu.Lock()
	defer s.mu.Unlock()

	tableStart := h.CountriesStart
	fileSize := s.file.getLength()
	if err := s.file.seekPos(tableStart, io.SeekStart); err != nil {
		return nil, err
	}
	nextRead := int64(h.MaxCountry)
	if nextRead == 0 {
		nextRead = int64(h.CountrySize)
	}
	if tableStart+nextRead > fileSize {
		nextRead = fileSize - tableStart
	}

	var readed int64
	for readed+1 < int64(h.CountrySize) {
		if nextRead <= 0 {
			return nil, nil
		}
		buf, err := s.file.readCount(int(nextRead))
		if err != nil {
			return nil, err
		}
		rec, err := unpack(buf, format, decode)
		if err != nil {
			return nil, err
		}
		if v, ok := rec.Get("id"); ok && v.Uint() == id {
			return rec, nil
		}
		if rec.Len == 0 {
			return nil, nil
		}

		readed += int64(rec.Len)
		backstep := int64(rec.Len) - nextRead
		if tableStart+readed+int64(h.MaxCountry) > fileSize {
			// the last records are shorter than a full buffer
			nextRead = fileSize - tableStart - readed
		}
		if err := s.file.seekPos(backstep, io.SeekCurrent); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func (s *fileStorage) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.close()
}

// memStorage serves everything from byte slices, either read at open or memory mapped.
type memStorage struct {
	header  *Header
	ranges  []byte
	regions []byte
	cities  []byte // country records followed by city records
	release func() error
}

func loadMemory(file *dbStream, h *Header) (*memStorage, error) {
	s := &memStorage{header: h}
	var err error
	if s.ranges, err = file.readCount(int(h.RangeCount * h.BlockLen)); err != nil {
		return nil, err
	}
	if h.RegionSize > 0 {
		if s.regions, err = file.readCount(int(h.RegionSize)); err != nil {
			return nil, err
		}
	}
	if h.CitySize > 0 {
		if s.cities, err = file.readCount(int(h.CitySize)); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func mapMemory(file *dbStream, h *Header) (*memStorage, error) {
	m, err := mmap.Map(file.file, mmap.RDONLY, 0)
	if err != nil {
		return nil, err
	}
	if h.CountriesStart+int64(h.CitySize) > int64(len(m)) {
		_ = m.Unmap()
		return nil, fmt.Errorf("%w: dictionaries end at %d, file has %d bytes", ErrShortRead, h.CountriesStart+int64(h.CitySize), len(m))
	}
	return &memStorage{
		header:  h,
		ranges:  m[h.RangesStart:h.RegionsStart],
		regions: m[h.RegionsStart:h.CountriesStart],
		cities:  m[h.CountriesStart : h.CountriesStart+int64(h.CitySize)],
		release: m.Unmap,
	}, nil
}

func sliceRanges(ranges []byte, h *Header, first, count uint32) ([]byte, error) {
	if first+count > h.RangeCount {
		return nil, fmt.Errorf("%w: range window [%d,%d) outside %d blocks", ErrCorruptRecord, first, first+count, h.RangeCount)
	}
	return ranges[first*h.BlockLen : (first+count)*h.BlockLen], nil
}

func (s *memStorage) rangeWindow(first, count uint32) ([]byte, error) {
	return sliceRanges(s.ranges, s.header, first, count)
}

func (s *memStorage) directory(dir dirKind, seek uint32, maxLen uint16) ([]byte, error) {
	blob := s.cities
	if dir == dirRegions {
		blob = s.regions
	}
	if int64(seek) >= int64(len(blob)) {
		return nil, nil
	}
	end := int64(seek) + int64(maxLen)
	if end > int64(len(blob)) {
		end = int64(len(blob))
	}
	return blob[seek:end], nil
}

// findCountry decodes country records one after another from the start of the blob.
func (s *memStorage) findCountry(id uint64, format PackFormat, decode textDecoder) (*Record, error) {
	limit := int64(s.header.CountrySize)
	if limit > int64(len(s.cities)) {
		limit = int64(len(s.cities))
	}
	var readed int64
	for readed+1 < limit {
		end := limit
		if maxRec := int64(s.header.MaxCountry); maxRec > 0 && readed+maxRec < end {
			end = readed + maxRec
		}
		rec, err := unpack(s.cities[readed:end], format, decode)
		if err != nil {
			return nil, err
		}
		if v, ok := rec.Get("id"); ok && v.Uint() == id {
			return rec, nil
		}
		if rec.Len == 0 {
			return nil, nil
		}
		readed += int64(rec.Len)
	}
	return nil, nil
}

func (s *memStorage) close() error {
	if s.release != nil {
		return s.release()
	}
	return nil
}
