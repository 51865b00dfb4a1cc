package sxgeo

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestCountryOnlyLookup(t *testing.T) {
	path := countryFixture(t)

	for _, mode := range allModes {
		t.Run(mode.String(), func(t *testing.T) {
			client := openDB(t, path, mode)

			res, err := client.Lookup("1.2.3.4", OnlyCountry)
			require.NoError(t, err)
			assert.Equal(t, []string{"ip", "country_iso"}, res.Keys())
			iso, _ := res.Get("country_iso")
			assert.Equal(t, "US", iso.Text())
			ip, _ := res.Get("ip")
			assert.Equal(t, "1.2.3.4", ip.Text())

			_, err = client.Lookup("9.9.9.9", OnlyCountry)
			assert.ErrorIs(t, err, ErrNotFound)

			id, err := client.ResolveID("1.255.255.255")
			require.NoError(t, err)
			assert.Equal(t, uint32(225), id)
		})
	}
}

func TestLookupFullInfo(t *testing.T) {
	db := cityFixture(t)
	client := openDB(t, db.path, ModeFile)

	res, err := client.Lookup("2.0.0.5", FullInfo)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"ip",
		"country_iso", "country_lat", "country_lon", "country_name_ru", "country_name_en",
		"city_lat", "city_lon", "city_name_ru", "city_name_en",
		"region_iso", "region_name_ru", "region_name_en",
	}, res.Keys())

	get := func(key string) Value {
		v, ok := res.Get(key)
		require.True(t, ok, key)
		return v
	}
	assert.Equal(t, "RU", get("country_iso").Text())
	assert.Equal(t, "Russia", get("country_name_en").Text())
	assert.InDelta(t, 60.0, get("country_lat").Float(), 1e-9)
	assert.Equal(t, "Москва", get("city_name_ru").Text())
	assert.InDelta(t, 55.75222, get("city_lat").Float(), 1e-9)
	assert.InDelta(t, 37.61556, get("city_lon").Float(), 1e-9)
	assert.Equal(t, ValueFloat, get("city_lat").Kind())
	assert.Equal(t, "RU-MOW", get("region_iso").Text())
	assert.Equal(t, "Moscow", get("region_name_en").Text())
}

func TestLookupLevels(t *testing.T) {
	db := cityFixture(t)
	client := openDB(t, db.path, ModeMemory)

	hasPrefix := func(res *Result, prefix string) bool {
		for _, k := range res.Keys() {
			if strings.HasPrefix(k, prefix) {
				return true
			}
		}
		return false
	}

	t.Run("OnlyCountry", func(t *testing.T) {
		res, err := client.Lookup("2.0.0.5", OnlyCountry)
		require.NoError(t, err)
		assert.True(t, hasPrefix(res, "country_"))
		assert.False(t, hasPrefix(res, "city_"))
		assert.False(t, hasPrefix(res, "region_"))
	})

	t.Run("CountryCity", func(t *testing.T) {
		res, err := client.Lookup("2.0.0.5", CountryCity)
		require.NoError(t, err)
		assert.True(t, hasPrefix(res, "country_"))
		assert.True(t, hasPrefix(res, "city_"))
		assert.False(t, hasPrefix(res, "region_"))
	})

	t.Run("FullInfoWithoutRegion", func(t *testing.T) {
		res, err := client.Lookup("2.0.200.1", FullInfo)
		require.NoError(t, err)
		name, _ := res.Get("city_name_en")
		assert.Equal(t, "Berlin", name.Text())
		iso, _ := res.Get("country_iso")
		assert.Equal(t, "DE", iso.Text())
		assert.False(t, hasPrefix(res, "region_"))
	})

	t.Run("CountryRange", func(t *testing.T) {
		res, err := client.Lookup("1.1.1.1", FullInfo)
		require.NoError(t, err)
		name, _ := res.Get("country_name_en")
		assert.Equal(t, "United States", name.Text())
		assert.False(t, hasPrefix(res, "city_"))
	})

	t.Run("CountryMissingFromDictionary", func(t *testing.T) {
		res, err := client.Lookup("3.3.3.3", CountryCity)
		require.NoError(t, err)
		assert.Equal(t, []string{"ip", "country_iso", "city_lat", "city_lon", "city_name_ru", "city_name_en"}, res.Keys())
		iso, _ := res.Get("country_iso")
		assert.Equal(t, "AS", iso.Text())
	})
}

func TestLookupHiddenFields(t *testing.T) {
	db := cityFixture(t)

	for _, strip := range []bool{false, true} {
		client := openDB(t, db.path, ModeRanges, WithStripRussian(strip))
		for _, ip := range []string{"1.0.0.1", "2.0.0.1", "2.0.100.1", "3.0.0.1"} {
			res, err := client.Lookup(ip, FullInfo)
			require.NoError(t, err, ip)

			var ru int
			for _, k := range res.Keys() {
				assert.False(t, strings.HasSuffix(k, "_id"), "%s leaked for %s", k, ip)
				assert.False(t, strings.HasSuffix(k, "_seek"), "%s leaked for %s", k, ip)
				assert.NotEqual(t, "id", k)
				if strings.HasSuffix(k, "_ru") {
					ru++
				}
			}
			if strip {
				assert.Zero(t, ru, ip)
			} else {
				assert.NotZero(t, ru, ip)
			}
		}
	}
}

func TestModesAgree(t *testing.T) {
	db := cityFixture(t)

	ips := []string{
		"0.1.2.3", "1.0.0.0", "1.2.3.4", "2.0.0.0", "2.0.99.255", "2.0.100.0", "2.200.0.0",
		"3.0.0.0", "3.255.255.255", "4.0.0.1", "9.9.9.9", "10.0.0.1", "127.0.0.1", "223.1.1.1", "250.0.0.1",
	}
	lookups := make(map[Mode][]string)
	for _, mode := range allModes {
		client := openDB(t, db.path, mode)
		for _, ip := range ips {
			res, err := client.Lookup(ip, FullInfo)
			if err != nil {
				require.ErrorIs(t, err, ErrNotFound, "%s %s", mode, ip)
				lookups[mode] = append(lookups[mode], ip+": not found")
				continue
			}
			data, err := res.MarshalJSON()
			require.NoError(t, err)
			lookups[mode] = append(lookups[mode], string(data))
		}
	}
	for _, mode := range allModes[1:] {
		assert.Equal(t, lookups[ModeFile], lookups[mode], mode.String())
	}
}

func TestLookupConcurrent(t *testing.T) {
	db := cityFixture(t)

	for _, mode := range []Mode{ModeFile, ModeMemory} {
		client := openDB(t, db.path, mode)
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 50; j++ {
					res, err := client.Lookup("2.0.0.5", FullInfo)
					if assert.NoError(t, err) {
						name, _ := res.Get("city_name_en")
						assert.Equal(t, "Moscow", name.Text())
					}
				}
			}()
		}
		wg.Wait()
	}
}

func TestLookupInvalidIP(t *testing.T) {
	client := openDB(t, countryFixture(t), ModeFile)

	for _, ip := range []string{"", "1.2.3", "1.2.3.256", "::1", "dead::beef", "localhost", "1.2.3.4 "} {
		_, err := client.Lookup(ip, OnlyCountry)
		assert.ErrorIs(t, err, ErrInvalidIP, ip)
	}

	// the session stays usable
	_, err := client.Lookup("1.2.3.4", OnlyCountry)
	assert.NoError(t, err)
}

func TestReservedOctets(t *testing.T) {
	b, _ := newCityBuilder()
	b.AddRange("0.0.0.0", 1)
	b.AddRange("10.0.0.0", 1)
	b.AddRange("127.0.0.0", 1)
	client := openDB(t, writeDB(t, b), ModeMemory)

	for _, ip := range []string{"0.0.0.1", "10.1.2.3", "127.0.0.1", "224.0.0.1", "255.255.255.255"} {
		_, err := client.Lookup(ip, FullInfo)
		assert.ErrorIs(t, err, ErrNotFound, ip)
	}
}

func TestClientState(t *testing.T) {
	path := countryFixture(t)

	t.Run("NotOpen", func(t *testing.T) {
		client := New(path, ModeFile)
		_, err := client.Lookup("1.2.3.4", OnlyCountry)
		assert.ErrorIs(t, err, ErrNotOpen)
		_, err = client.Header()
		assert.ErrorIs(t, err, ErrNotOpen)
		_, err = client.ResolveID("1.2.3.4")
		assert.ErrorIs(t, err, ErrNotOpen)

		var stateErr *StateError
		require.ErrorAs(t, client.Close(), &stateErr)
		assert.Equal(t, "close", stateErr.Op)
	})

	t.Run("AlreadyOpen", func(t *testing.T) {
		client := New(path, ModeFile)
		require.NoError(t, client.Open())
		assert.ErrorIs(t, client.Open(), ErrAlreadyOpen)
		require.NoError(t, client.Close())
		assert.ErrorIs(t, client.Close(), ErrNotOpen)
	})

	t.Run("Reopen", func(t *testing.T) {
		client := New(path, ModeMmap)
		require.NoError(t, client.Open())
		require.NoError(t, client.Close())
		require.NoError(t, client.Open())
		_, err := client.Lookup("1.2.3.4", OnlyCountry)
		assert.NoError(t, err)
		require.NoError(t, client.Close())
	})

	t.Run("MissingFile", func(t *testing.T) {
		missing := filepath.Join(t.TempDir(), "missing.dat")
		_, err := Open(missing, ModeFile)
		assert.ErrorIs(t, err, os.ErrNotExist)
		var formatErr *FormatError
		require.ErrorAs(t, err, &formatErr)
		assert.Equal(t, missing, formatErr.Path)
	})
}

func TestOpenFailureLeavesNoSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.dat")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", 64)), 0o644))

	core, logs := observer.New(zap.WarnLevel)
	client := New(path, ModeMemory, WithLogger(zap.New(core)))
	err := client.Open()

	var formatErr *FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, path, formatErr.Path)
	assert.True(t, errors.Is(err, ErrBadSignature))
	assert.Equal(t, 1, logs.FilterMessage("sxgeo open failed").Len())

	_, err = client.Header()
	assert.ErrorIs(t, err, ErrNotOpen)
}

func TestOpenLogsHeader(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	client := openDB(t, countryFixture(t), ModeFile, WithLogger(zap.New(core)))

	entries := logs.FilterMessage("sxgeo database opened").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "file", fields["mode"])
	assert.Equal(t, "2.2", fields["version"])
	assert.Equal(t, uint32(1), fields["ranges"])

	require.NoError(t, client.Close())
	assert.Equal(t, 1, logs.FilterMessage("sxgeo database closed").Len())
}

func TestHeaderAccessor(t *testing.T) {
	db := cityFixture(t)
	client := openDB(t, db.path, ModeFile)

	h, err := client.Header()
	require.NoError(t, err)
	assert.Equal(t, "2.2", h.Version)
	assert.Equal(t, KindSxGeoCity, h.Kind)
	assert.Equal(t, EncodingUTF8, h.Encoding)
	assert.Equal(t, uint8(3), h.IDLen)
	assert.False(t, h.CountryOnly())
	assert.Equal(t, uint32(5), h.RangeCount)
	assert.Equal(t, int64(1700000000), h.Timestamp.Unix())
	assert.Equal(t, "M:region_seek/T:country_id/M:id/N5:lat/N5:lon/b:name_ru/b:name_en", h.CityFormat.String())
	assert.Less(t, db.us, h.CountrySize)
	assert.GreaterOrEqual(t, db.moscow, h.CountrySize)
}
