package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"

	"geojoin-go/config"
	"geojoin-go/operators"
	"geojoin-go/operators/bucket"
)

var (
	fPredicate = flag.String(
		"predicate",
		"",
		"join predicate: st_intersects, st_touches, st_crosses, st_contains, st_within, st_overlaps, st_disjoint, st_equals, st_dwithin, st_nearest, st_nearest2",
	)
	fCardinality = flag.Int(
		"cardinality",
		2,
		"join cardinality: 1 for a self join, 2 for a binary join",
	)
	fShapeIdx1 = flag.Int(
		"shpidx1",
		operators.DefaultOffset,
		"geometry field position in the first data set",
	)
	fShapeIdx2 = flag.Int(
		"shpidx2",
		operators.DefaultOffset,
		"geometry field position in the second data set",
	)
	fDistance = flag.Float64(
		"distance",
		0,
		"expansion distance; also the st_dwithin radius",
	)
	fK = flag.Int(
		"k",
		0,
		"number of nearest neighbors (st_nearest, defaults to 1)",
	)
	fEarth = flag.Bool(
		"earth",
		false,
		"use great-circle distances instead of Euclidean",
	)
	fFields = flag.String(
		"fields",
		"",
		"output projection, e.g. a:0,b:0,stat:jaccard; empty prints all fields of both sides",
	)
	fCacheFile = flag.String(
		"cachefile",
		"",
		"load the second data set from this file (or s3://bucket/key)",
	)
	fConfig = flag.String(
		"config",
		"",
		"path to a yaml config file",
	)
	fEnv = flag.String(
		"env",
		"",
		"dotenv file with object store credentials",
	)
)

func oops(stage string, err error) {
	fmt.Fprintf(os.Stderr, "%s [%s] %s\n", color.RedString("ERROR"), stage, err)
	os.Exit(1)
}

func setupLogging(cfg *config.Config) {
	var level slog.Level
	switch cfg.Log.Level {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func main() {
	flag.Parse()

	if *fConfig != "" {
		if err := config.Decode(*fConfig); err != nil {
			oops("config", err)
		}
	}
	config.LoadEnv(*fEnv)
	cfg := config.GetConfig()
	setupLogging(cfg)

	predicate, err := operators.ParsePredicate(*fPredicate)
	if err != nil {
		oops("params", err)
	}
	outFields, err := operators.ParseOutputFields(*fFields)
	if err != nil {
		oops("params", err)
	}

	op := &operators.QueryOp{
		JoinCardinality:   *fCardinality,
		ShapeIdx1:         *fShapeIdx1,
		ShapeIdx2:         *fShapeIdx2,
		Predicate:         predicate,
		ExpansionDistance: *fDistance,
		K:                 *fK,
		EarthDistance:     *fEarth,
		OutputFields:      outFields,
		UseCacheFile:      *fCacheFile != "",
		CacheFileName:     *fCacheFile,
	}
	if err := op.Prepare(); err != nil {
		oops("params", err)
	}

	if op.UseCacheFile {
		exec := bucket.NewCache(op, os.Stdout, cfg)
		rows, err := exec.Run(os.Stdin)
		if err != nil {
			oops("query", err)
		}
		slog.Debug("query load", "rows", rows)
	} else {
		exec := bucket.New(op, os.Stdout, cfg)
		tiles, err := exec.Run(os.Stdin)
		if err != nil {
			oops("query", err)
		}
		slog.Debug("query load", "tiles", tiles, "rows", exec.Rows())
	}
	os.Exit(0)
}
