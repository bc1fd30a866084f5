package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"passage_router/pkg/geocode"
	"passage_router/pkg/logging"
)

func main() {
	input := flag.String("input", "", "Path to .osm.pbf file")
	output := flag.String("output", "gazetteer.json", "Output gazetteer JSON path")
	bbox := flag.String("bbox", "", "Bounding box filter: minLat,minLng,maxLat,maxLng (e.g. 47.2,-5.2,48.9,-1.0)")
	country := flag.String("country", "", "Country assigned to places without a country tag")
	logLevel := flag.String("log-level", "info", "Log level")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Usage: preprocess --input <file.osm.pbf> [--output gazetteer.json] [--bbox minLat,minLng,maxLat,maxLng] [--country FR]")
		os.Exit(1)
	}

	logger, err := logging.New(*logLevel, "console")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	opts := geocode.ParseOptions{Country: *country, Logger: logger}
	if *bbox != "" {
		var minLat, minLng, maxLat, maxLng float64
		_, err := fmt.Sscanf(*bbox, "%f,%f,%f,%f", &minLat, &minLng, &maxLat, &maxLng)
		if err != nil {
			logger.Fatal("invalid bbox format (expected minLat,minLng,maxLat,maxLng)", zap.Error(err))
		}
		opts.BBox = geocode.BBox{MinLat: minLat, MaxLat: maxLat, MinLng: minLng, MaxLng: maxLng}
		logger.Info("using bounding box filter",
			zap.Float64("min_lat", minLat), zap.Float64("max_lat", maxLat),
			zap.Float64("min_lng", minLng), zap.Float64("max_lng", maxLng))
	}

	start := time.Now()

	// Step 1: Parse OSM data.
	logger.Info("opening OSM file", zap.String("path", *input))
	f, err := os.Open(*input)
	if err != nil {
		logger.Fatal("failed to open input file", zap.Error(err))
	}
	defer f.Close()

	places, err := geocode.ParseOSM(context.Background(), f, opts)
	if err != nil {
		logger.Fatal("failed to parse OSM data", zap.Error(err))
	}

	// Step 2: Build the name index.
	g := geocode.NewGazetteer(places)
	logger.Info("gazetteer built", zap.Int("places", g.Len()))

	// Step 3: Write JSON.
	out, err := os.Create(*output)
	if err != nil {
		logger.Fatal("failed to create output", zap.Error(err))
	}
	if err := geocode.WritePlaces(out, places); err != nil {
		out.Close()
		logger.Fatal("failed to write gazetteer", zap.Error(err))
	}
	if err := out.Close(); err != nil {
		logger.Fatal("failed to close output", zap.Error(err))
	}

	info, _ := os.Stat(*output)
	logger.Info("done",
		zap.Duration("took", time.Since(start).Round(time.Second)),
		zap.String("output", *output),
		zap.Float64("mb", float64(info.Size())/(1024*1024)))
}
