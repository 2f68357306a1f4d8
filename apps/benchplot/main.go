/*
Command benchplot turns a benchmark CSV into a speedup table and plot. The
input has one "workers,milliseconds" pair per line; the baseline is either
the first row or an explicit serial time.

	benchplot -in bench.csv -out speedup.png -serial 812.4
*/
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

type sample struct {
	workers int
	ms      float64
}

func main() {
	in := flag.String("in", "bench.csv", "input CSV of workers,milliseconds")
	out := flag.String("out", "speedup.png", "output plot file")
	serial := flag.Float64("serial", 0, "serial baseline in ms, 0 uses the first row")
	flag.Parse()

	samples, err := readSamples(*in)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if len(samples) == 0 {
		fmt.Fprintln(os.Stderr, "no samples in input")
		os.Exit(1)
	}

	baseline := *serial
	if baseline == 0 {
		baseline = samples[0].ms
	}

	fmt.Println("=============================================")
	fmt.Println("      JACOBI SOLVER BENCHMARK RESULTS")
	fmt.Println("=============================================")
	fmt.Printf("%-10s %-12s %-10s\n", "Workers", "Time (ms)", "Speedup")
	fmt.Println("---------------------------------------------")
	pts := make(plotter.XYs, len(samples))
	for i, s := range samples {
		speedup := baseline / s.ms
		fmt.Printf("%-10d %-12.1f %-10.2f\n", s.workers, s.ms, speedup)
		pts[i].X = float64(s.workers)
		pts[i].Y = speedup
	}

	p := plot.New()
	p.Title.Text = "Jacobi solver scaling"
	p.X.Label.Text = "workers"
	p.Y.Label.Text = "speedup"
	if err := plotutil.AddLinePoints(p, "speedup", pts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := p.Save(6*vg.Inch, 4*vg.Inch, *out); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", *out)
}

func readSamples(path string) ([]sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	samples := make([]sample, 0, len(records))
	for i, rec := range records {
		if len(rec) != 2 {
			return nil, fmt.Errorf("line %d: want workers,milliseconds", i+1)
		}
		workers, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad worker count %q", i+1, rec[0])
		}
		ms, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad time %q", i+1, rec[1])
		}
		samples = append(samples, sample{workers: workers, ms: ms})
	}
	return samples, nil
}
