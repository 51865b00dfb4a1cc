package sxgeo

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ---------------- PUBLIC BLOCK ----------------

// Client - reader session over one SxGeo database file
type Client struct {
	mu       sync.RWMutex // guards open state, not lookups
	filename string
	mode     Mode
	opts     options

	header  *Header
	fbIndex []uint32
	mIndex  []uint32
	storage storage
	decode  textDecoder
}

// New - client for filename that is not opened yet
func New(filename string, mode Mode, opts ...Option) *Client {
	return &Client{
		filename: filename,
		mode:     mode,
		opts:     newOptions(opts),
	}
}

// Open - factory method that creates and opens a client
func Open(filename string, mode Mode, opts ...Option) (*Client, error) {
	client := New(filename, mode, opts...)
	if err := client.Open(); err != nil {
		return nil, err
	}
	return client, nil
}

// Open - method for parsing the header and loading indexes according to the mode
func (client *Client) Open() error {
	client.mu.Lock()
	defer client.mu.Unlock()
	if client.storage != nil {
		return &StateError{Op: "open", Err: ErrAlreadyOpen}
	}

	file, err := newDBStream(client.filename)
	if err != nil {
		return &FormatError{Path: client.filename, Err: err}
	}
	if err := client.load(file); err != nil {
		err = multierr.Append(&FormatError{Path: client.filename, Err: err}, file.close())
		client.reset()
		client.opts.logger.Warn("sxgeo open failed", zap.String("path", client.filename), zap.Error(err))
		return err
	}
	if client.mode == ModeMemory || client.mode == ModeMmap {
		if err := file.close(); err != nil {
			err = multierr.Append(err, client.storage.close())
			client.reset()
			return err
		}
	}

	h := client.header
	client.opts.logger.Debug("sxgeo database opened",
		zap.String("path", client.filename),
		zap.Stringer("mode", client.mode),
		zap.String("version", h.Version),
		zap.Stringer("kind", h.Kind),
		zap.Stringer("encoding", h.Encoding),
		zap.Time("built", h.Timestamp),
		zap.Uint32("ranges", h.RangeCount),
		zap.Uint8("id_len", h.IDLen),
	)
	return nil
}

// Close - method for closing db
func (client *Client) Close() error {
	client.mu.Lock()
	defer client.mu.Unlock()
	if client.storage == nil {
		return &StateError{Op: "close", Err: ErrNotOpen}
	}
	err := client.storage.close()
	client.reset()
	client.opts.logger.Debug("sxgeo database closed", zap.String("path", client.filename))
	return err
}

// Header - parsed header of the open database
func (client *Client) Header() (Header, error) {
	client.mu.RLock()
	defer client.mu.RUnlock()
	if client.storage == nil {
		return Header{}, &StateError{Op: "header", Err: ErrNotOpen}
	}
	return *client.header, nil
}

// ResolveID - raw identifier for ip: an ISO table index for country-only databases,
// otherwise an offset into the country/city dictionary
func (client *Client) ResolveID(ip string) (uint32, error) {
	client.mu.RLock()
	defer client.mu.RUnlock()
	if client.storage == nil {
		return 0, &StateError{Op: "resolve", Err: ErrNotOpen}
	}
	return client.lookupID(ip)
}

// Lookup - method for getting location fields of ip at the requested level.
// FullInfo adds region fields only when the city carries a non-zero region_seek;
// a city without a region yields country and city fields alone instead of the
// record found at region offset 0.
func (client *Client) Lookup(ip string, level InfoLevel) (*Result, error) {
	client.mu.RLock()
	defer client.mu.RUnlock()
	if client.storage == nil {
		return nil, &StateError{Op: "lookup", Err: ErrNotOpen}
	}
	id, err := client.lookupID(ip)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	result.add("ip", TextValue(ip))
	h := client.header
	if h.CountryOnly() {
		result.add("country_iso", TextValue(CountryISO(id)))
		return result, nil
	}

	if id < h.CountrySize {
		country, err := client.readRecord(dirCountries, id, h.MaxCountry, h.CountryFormat)
		if err != nil {
			return nil, err
		}
		client.addFields(result, country, "country_")
		return result, nil
	}

	city, err := client.readRecord(dirCountries, id, h.MaxCity, h.CityFormat)
	if err != nil {
		return nil, err
	}
	countryID, _ := city.Get("country_id")
	country, err := client.storage.findCountry(countryID.Uint(), h.CountryFormat, client.decode)
	if err != nil {
		return nil, err
	}
	if country != nil {
		client.addFields(result, country, "country_")
	} else if iso := CountryISO(uint32(countryID.Uint())); iso != "" {
		result.add("country_iso", TextValue(iso))
	}

	switch level {
	case OnlyCountry:
	case CountryCity:
		client.addFields(result, city, "city_")
	default:
		client.addFields(result, city, "city_")
		if seek, ok := city.Get("region_seek"); ok && seek.Uint() != 0 {
			region, err := client.readRecord(dirRegions, uint32(seek.Uint()), h.MaxRegion, h.RegionFormat)
			if err != nil {
				return nil, err
			}
			client.addFields(result, region, "region_")
		}
	}
	return result, nil
}

// ---------------- PRIVATE BLOCK ----------------

// ignoreFields - linkage fields never returned to callers
var ignoreFields = map[string]struct{}{
	"country_seek": {},
	"id":           {},
	"region_seek":  {},
	"country_id":   {},
}

func (client *Client) load(file *dbStream) error {
	h, err := readHeader(file)
	if err != nil {
		return err
	}
	fbIndex, err := file.readUint32s(int(h.FirstByteIndexLen))
	if err != nil {
		return err
	}
	mIndex, err := file.readUint32s(int(h.MainIndexLen))
	if err != nil {
		return err
	}
	// the preloading backends read the range table from the current position
	pos, err := file.getCurrentPos()
	if err != nil {
		return err
	}
	if pos != int64(h.RangesStart) {
		return fmt.Errorf("%w: range table at %d, cursor at %d", ErrInvalidHeader, h.RangesStart, pos)
	}
	st, err := newStorage(file, h, client.mode)
	if err != nil {
		return err
	}
	client.header = h
	client.fbIndex = fbIndex
	client.mIndex = mIndex
	client.storage = st
	client.decode = newTextDecoder(h.Encoding)
	return nil
}

func (client *Client) lookupID(ip string) (uint32, error) {
	ipn, ok := ipV4ToInt(ip)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidIP, ip)
	}
	id, err := client.resolveID(ipn)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, ip)
	}
	return id, nil
}

func (client *Client) reset() {
	client.header = nil
	client.fbIndex = nil
	client.mIndex = nil
	client.storage = nil
	client.decode = nil
}

func (client *Client) readRecord(dir dirKind, seek uint32, maxLen uint16, format PackFormat) (*Record, error) {
	buf, err := client.storage.directory(dir, seek, maxLen)
	if err != nil {
		return nil, err
	}
	return unpack(buf, format, client.decode)
}

func (client *Client) addFields(result *Result, rec *Record, prefix string) {
	for _, f := range rec.Fields {
		if _, skip := ignoreFields[f.Name]; skip {
			continue
		}
		if client.opts.stripRU && strings.HasSuffix(f.Name, "_ru") {
			continue
		}
		result.add(prefix+f.Name, f.Value)
	}
}
