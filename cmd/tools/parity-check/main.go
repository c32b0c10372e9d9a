// Package main compares the serial and parallel patch statistics
// implementations on synthetic sequences and reports whether their
// outputs agree bit for bit.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/emberdata/smokewatch/internal/vision"
)

// Config holds configuration for the parity check.
type Config struct {
	Frames     int
	Rows       int
	Cols       int
	Window     int
	Seed       uint64
	Runs       int
	OutputJSON string
	Verbose    bool
}

// RunResult holds one synthetic run's comparison.
type RunResult struct {
	Seed          uint64  `json:"seed"`
	SerialMs      float64 `json:"serial_ms"`
	ParallelMs    float64 `json:"parallel_ms"`
	DistanceEqual bool    `json:"distance_equal"`
	GradientEqual bool    `json:"gradient_equal"`
	MaxDivergence float64 `json:"max_divergence"`
}

// Report is the aggregate output.
type Report struct {
	Frames    int         `json:"frames"`
	Rows      int         `json:"rows"`
	Cols      int         `json:"cols"`
	Window    int         `json:"window"`
	Runs      []RunResult `json:"runs"`
	AllEqual  bool        `json:"all_equal"`
	TotalSecs float64     `json:"total_secs"`
}

func main() {
	cfg := parseFlags()

	start := time.Now()
	report := Report{Frames: cfg.Frames, Rows: cfg.Rows, Cols: cfg.Cols, Window: cfg.Window, AllEqual: true}

	serial := &vision.SerialOps{}
	parallel := vision.NewParallelOps(0)

	for i := 0; i < cfg.Runs; i++ {
		seed := cfg.Seed + uint64(i)
		run := compareRun(serial, parallel, cfg, seed)
		if !run.DistanceEqual || !run.GradientEqual {
			report.AllEqual = false
		}
		if cfg.Verbose {
			log.Printf("seed=%d distance_equal=%v gradient_equal=%v max_divergence=%g",
				run.Seed, run.DistanceEqual, run.GradientEqual, run.MaxDivergence)
		}
		report.Runs = append(report.Runs, run)
	}
	report.TotalSecs = time.Since(start).Seconds()

	printReport(&report)

	if cfg.OutputJSON != "" {
		if err := exportJSON(&report, cfg.OutputJSON); err != nil {
			log.Printf("Warning: failed to export JSON: %v", err)
		} else {
			log.Printf("Results exported to: %s", cfg.OutputJSON)
		}
	}
	if !report.AllEqual {
		os.Exit(1)
	}
}

func parseFlags() Config {
	cfg := Config{}

	flag.IntVar(&cfg.Frames, "frames", 11, "Frames per synthetic sequence")
	flag.IntVar(&cfg.Rows, "rows", 504, "Frame rows")
	flag.IntVar(&cfg.Cols, "cols", 896, "Frame cols")
	flag.IntVar(&cfg.Window, "window", 16, "Sliding window (patch size)")
	flag.Uint64Var(&cfg.Seed, "seed", 42, "Base RNG seed")
	flag.IntVar(&cfg.Runs, "runs", 3, "Number of synthetic sequences to compare")
	flag.StringVar(&cfg.OutputJSON, "json", "", "Output JSON filename (e.g., parity.json)")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "Log each run")

	flag.Parse()

	return cfg
}

func compareRun(serial, parallel vision.PatchOps, cfg Config, seed uint64) RunResult {
	seq := vision.PlumeSequence(cfg.Frames, cfg.Rows, cfg.Cols, seed)
	run := RunResult{Seed: seed}

	t0 := time.Now()
	sd := serial.PatchDistributionDistance(seq, cfg.Window)
	sg := serial.SpatialGradientMagnitude(seq)
	run.SerialMs = float64(time.Since(t0).Microseconds()) / 1000

	t1 := time.Now()
	pd := parallel.PatchDistributionDistance(seq, cfg.Window)
	pg := parallel.SpatialGradientMagnitude(seq)
	run.ParallelMs = float64(time.Since(t1).Microseconds()) / 1000

	var maxDiv float64
	run.DistanceEqual, maxDiv = stacksEqual(sd, pd)
	run.MaxDivergence = maxDiv
	gEq, gDiv := stacksEqual(sg, pg)
	run.GradientEqual = gEq
	if gDiv > run.MaxDivergence {
		run.MaxDivergence = gDiv
	}
	return run
}

// stacksEqual reports exact equality and the largest absolute divergence.
func stacksEqual(a, b vision.Stack) (bool, float64) {
	if len(a) != len(b) {
		return false, 0
	}
	equal := true
	var maxDiv float64
	for t := range a {
		if a[t].Rows != b[t].Rows || a[t].Cols != b[t].Cols {
			return false, 0
		}
		for i := range a[t].Pix {
			if a[t].Pix[i] != b[t].Pix[i] {
				equal = false
				d := float64(a[t].Pix[i] - b[t].Pix[i])
				if d < 0 {
					d = -d
				}
				if d > maxDiv {
					maxDiv = d
				}
			}
		}
	}
	return equal, maxDiv
}

func printReport(r *Report) {
	fmt.Println("=== Patch Ops Parity Report ===")
	fmt.Printf("Sequence: %d frames of %dx%d, window %d\n", r.Frames, r.Rows, r.Cols, r.Window)
	for _, run := range r.Runs {
		status := "OK"
		if !run.DistanceEqual || !run.GradientEqual {
			status = fmt.Sprintf("DIVERGED (max %g)", run.MaxDivergence)
		}
		fmt.Printf("seed %-6d serial %8.1fms  parallel %8.1fms  %s\n",
			run.Seed, run.SerialMs, run.ParallelMs, status)
	}
	if r.AllEqual {
		fmt.Println("All runs bit-identical.")
	} else {
		fmt.Println("PARITY FAILURE: implementations disagree.")
	}
}

func exportJSON(r *Report, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}
