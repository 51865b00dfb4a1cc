package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/proipinfo/sxgeo"
)

// Environment variables read after .env is loaded. Flags take precedence.
const (
	envDB       = "SXGEO_DB"
	envMode     = "SXGEO_MODE"
	envLevel    = "SXGEO_LEVEL"
	envStripRU  = "SXGEO_STRIP_RU"
	envFormat   = "SXGEO_FORMAT"
	envLogLevel = "LOG_LEVEL"
)

type outputFormat string

const (
	formatJSON    outputFormat = "json"
	formatMsgpack outputFormat = "msgpack"
	formatText    outputFormat = "text"
)

type config struct {
	path     string
	mode     sxgeo.Mode
	level    sxgeo.InfoLevel
	stripRU  bool
	format   outputFormat
	logLevel string
	about    bool
	ips      []string
}

// loadConfig merges environment defaults with command line flags.
func loadConfig(args []string, stderr io.Writer) (*config, error) {
	fs := flag.NewFlagSet("sxgeo", flag.ContinueOnError)
	fs.SetOutput(stderr)

	path := fs.String("db", envOr(envDB, "SxGeoCity.dat"), "path to the SxGeo database file")
	mode := fs.String("mode", envOr(envMode, "file"), "residency mode: file|ranges|memory|mmap")
	level := fs.String("level", envOr(envLevel, "full"), "info level: country|city|full")
	stripRU := fs.Bool("strip-ru", parseBool(os.Getenv(envStripRU)), "drop *_ru fields")
	format := fs.String("format", envOr(envFormat, string(formatJSON)), "output format: json|msgpack|text")
	logLevel := fs.String("log-level", envOr(envLogLevel, "warn"), "log level: debug|info|warn|error")
	about := fs.Bool("about", false, "print the database header and exit")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: sxgeo [flags] ip [ip...]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := &config{
		path:     *path,
		stripRU:  *stripRU,
		format:   outputFormat(strings.ToLower(*format)),
		logLevel: *logLevel,
		about:    *about,
		ips:      fs.Args(),
	}
	var err error
	if cfg.mode, err = sxgeo.ParseMode(*mode); err != nil {
		return nil, err
	}
	if cfg.level, err = sxgeo.ParseInfoLevel(*level); err != nil {
		return nil, err
	}
	switch cfg.format {
	case formatJSON, formatMsgpack, formatText:
	default:
		return nil, fmt.Errorf("unknown output format %q", *format)
	}
	if !cfg.about && len(cfg.ips) == 0 {
		fs.Usage()
		return nil, fmt.Errorf("no ip address given")
	}
	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && b
}
