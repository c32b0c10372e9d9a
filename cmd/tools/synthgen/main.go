// Package main generates a synthetic plume frame sequence and writes it
// out as grayscale PNGs, for eyeballing detector inputs and for feeding
// replay tests.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/emberdata/smokewatch/internal/vision"
	"github.com/emberdata/smokewatch/internal/viz"
)

func main() {
	frames := flag.Int("frames", 11, "Number of frames to generate")
	rows := flag.Int("rows", 504, "Frame rows")
	cols := flag.Int("cols", 896, "Frame cols")
	seed := flag.Uint64("seed", 42, "RNG seed")
	outDir := flag.String("output", "synth_frames", "Output directory")
	flag.Parse()

	if *frames < 1 {
		log.Fatal("at least one frame is required")
	}
	if err := os.MkdirAll(*outDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	seq := vision.PlumeSequence(*frames, *rows, *cols, *seed)
	for k, frame := range seq {
		data, err := viz.RenderPNG(frame)
		if err != nil {
			log.Fatalf("failed to render frame %d: %v", k, err)
		}
		path := filepath.Join(*outDir, fmt.Sprintf("frame_%03d.png", k))
		if err := os.WriteFile(path, data, 0644); err != nil {
			log.Fatalf("failed to write %s: %v", path, err)
		}
	}
	log.Printf("wrote %d frames of %dx%d to %s", len(seq), *rows, *cols, *outDir)
}
