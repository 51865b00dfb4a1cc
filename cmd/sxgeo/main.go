// Command sxgeo looks up IPv4 addresses in an SxGeo database file.
//
// Usage:
//
//	sxgeo -db SxGeoCity.dat -mode memory 8.8.8.8 77.88.8.8
//	sxgeo -db SxGeo.dat -about
//
// Defaults come from the environment (SXGEO_DB, SXGEO_MODE, SXGEO_LEVEL,
// SXGEO_STRIP_RU, SXGEO_FORMAT, LOG_LEVEL), optionally loaded from .env.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	json "github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/proipinfo/sxgeo"
	"github.com/vmihailenco/msgpack"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "sxgeo: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) (err error) {
	_ = godotenv.Load(".env")

	cfg, err := loadConfig(args, stderr)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	client, err := sxgeo.Open(cfg.path, cfg.mode,
		sxgeo.WithLogger(logger),
		sxgeo.WithStripRussian(cfg.stripRU),
	)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, client.Close()) }()

	out := bufio.NewWriter(stdout)
	defer func() { err = multierr.Append(err, out.Flush()) }()

	if cfg.about {
		h, err := client.Header()
		if err != nil {
			return err
		}
		printHeader(out, h)
		return nil
	}

	enc := newEncoder(cfg.format, out)
	var missed int
	for _, ip := range cfg.ips {
		res, err := client.Lookup(ip, cfg.level)
		switch {
		case errors.Is(err, sxgeo.ErrNotFound), errors.Is(err, sxgeo.ErrInvalidIP):
			logger.Warn("lookup failed", zap.String("ip", ip), zap.Error(err))
			missed++
			continue
		case err != nil:
			return err
		}
		if err := enc(res); err != nil {
			return err
		}
	}
	if missed == len(cfg.ips) {
		return fmt.Errorf("no result for %d address(es)", missed)
	}
	return nil
}

// newLogger - console logger writing to stderr at the given level
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

type encodeFunc func(*sxgeo.Result) error

func newEncoder(format outputFormat, w io.Writer) encodeFunc {
	switch format {
	case formatMsgpack:
		enc := msgpack.NewEncoder(w)
		return func(res *sxgeo.Result) error { return enc.Encode(res) }
	case formatText:
		return func(res *sxgeo.Result) error {
			_, err := fmt.Fprintln(w, res.String())
			return err
		}
	}
	enc := json.NewEncoder(w)
	return func(res *sxgeo.Result) error { return enc.Encode(res) }
}

func printHeader(w io.Writer, h sxgeo.Header) {
	fmt.Fprintf(w, "version:     %s\n", h.Version)
	fmt.Fprintf(w, "built:       %s\n", h.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "kind:        %s\n", h.Kind)
	fmt.Fprintf(w, "encoding:    %s\n", h.Encoding)
	fmt.Fprintf(w, "ranges:      %d (span %d, main index %d, first-byte index %d)\n",
		h.RangeCount, h.RangeSpan, h.MainIndexLen, h.FirstByteIndexLen)
	fmt.Fprintf(w, "id width:    %d\n", h.IDLen)
	fmt.Fprintf(w, "regions:     %d bytes (max record %d)\n", h.RegionSize, h.MaxRegion)
	fmt.Fprintf(w, "countries:   %d bytes (max record %d)\n", h.CountrySize, h.MaxCountry)
	fmt.Fprintf(w, "cities:      %d bytes (max record %d)\n", h.CitySize-h.CountrySize, h.MaxCity)
	if !h.CountryFormat.Empty() {
		fmt.Fprintf(w, "country fmt: %s\n", h.CountryFormat)
	}
	if !h.RegionFormat.Empty() {
		fmt.Fprintf(w, "region fmt:  %s\n", h.RegionFormat)
	}
	if !h.CityFormat.Empty() {
		fmt.Fprintf(w, "city fmt:    %s\n", h.CityFormat)
	}
}
