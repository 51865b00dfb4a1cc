package sxgeo

import (
	"path/filepath"
	"testing"

	"github.com/proipinfo/sxgeo/internal/sxgeotest"
	"github.com/stretchr/testify/require"
)

var allModes = []Mode{ModeFile, ModeRanges, ModeMemory, ModeMmap}

// cityDB - offsets of the records in the city fixture
type cityDB struct {
	path   string
	us     uint32
	moscow uint32
	berlin uint32
	pago   uint32
}

// writeDB writes the database described by b into a temporary directory.
func writeDB(t *testing.T, b *sxgeotest.Builder) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db", "SxGeo.dat")
	require.NoError(t, b.WriteFile(path))
	return path
}

// countryFixture - country-only database mapping 1.0.0.0/8 to US
func countryFixture(t *testing.T) string {
	t.Helper()
	b := sxgeotest.NewCountry()
	b.AddRange("1.0.0.0", 225)
	return writeDB(t, b)
}

func newCityBuilder() (*sxgeotest.Builder, cityDB) {
	var db cityDB
	b := sxgeotest.NewCity()

	b.AddRegion(0, "", "", "")
	mow := b.AddRegion(524894, "RU-MOW", "Москва", "Moscow")

	b.AddCountry(185, "RU", 60.0, 100.0, "Россия", "Russia")
	db.us = b.AddCountry(225, "US", 39.76, -98.5, "США", "United States")
	b.AddCountry(56, "DE", 51.5, 10.5, "Германия", "Germany")

	db.moscow = b.AddCity(mow, 185, 524901, 55.75222, 37.61556, "Москва", "Moscow")
	db.berlin = b.AddCity(0, 56, 2950159, 52.52437, 13.41053, "Берлин", "Berlin")
	// American Samoa has no record in the country dictionary
	db.pago = b.AddCity(0, 14, 5881576, -14.27806, -170.7025, "Паго-Паго", "Pago Pago")

	b.AddRange("1.0.0.0", db.us)
	b.AddRange("2.0.0.0", db.moscow)
	b.AddRange("2.0.100.0", db.berlin)
	b.AddRange("3.0.0.0", db.pago)
	b.AddRange("4.0.0.0", 0)
	return b, db
}

// cityFixture - city database with three countries, one region and three cities
func cityFixture(t *testing.T) cityDB {
	t.Helper()
	b, db := newCityBuilder()
	db.path = writeDB(t, b)
	return db
}

func openDB(t *testing.T, path string, mode Mode, opts ...Option) *Client {
	t.Helper()
	client, err := Open(path, mode, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}
