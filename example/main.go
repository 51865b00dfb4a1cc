package main

import (
	"errors"
	"fmt"

	"github.com/proipinfo/sxgeo"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	path := "path/to/SxGeoCity.dat"
	db, err := sxgeo.Open(path, sxgeo.ModeMemory, sxgeo.WithLogger(logger), sxgeo.WithStripRussian(true))
	if err != nil {
		panic(err)
	}
	defer db.Close()

	// country only
	rec, err := db.Lookup("8.8.8.8", sxgeo.OnlyCountry)
	if err != nil {
		panic(err)
	}
	iso, _ := rec.Get("country_iso")
	fmt.Println(iso.Text())

	// country, city and region
	rec, err = db.Lookup("77.88.8.8", sxgeo.FullInfo)
	switch {
	case errors.Is(err, sxgeo.ErrNotFound):
		fmt.Println("not found")
	case err != nil:
		panic(err)
	default:
		city, _ := rec.Get("city_name_en")
		fmt.Println(city.Text(), rec)
	}
}
