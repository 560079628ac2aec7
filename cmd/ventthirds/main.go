package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"ventthirds/pkg/analysis"
	"ventthirds/pkg/config"
	"ventthirds/pkg/provider"
	"ventthirds/pkg/report"
	"ventthirds/pkg/visualization"
)

func main() {
	// A missing .env file is not an error
	_ = godotenv.Load()

	defaultConfig := os.Getenv("VENTTHIRDS_CONFIG")
	if defaultConfig == "" {
		defaultConfig = "ventthirds.yaml"
	}

	// Parse command line arguments
	configPath := flag.String("config", defaultConfig, "YAML configuration file (env VENTTHIRDS_CONFIG)")
	initConfig := flag.Bool("init-config", false, "Write a default configuration file to -config and exit")
	sliceDir := flag.String("slices", "", "Directory containing the 2D image slices (overrides image.sliceDir)")
	meshFile := flag.String("mesh", "", "STL surface of the structure (overrides structure.meshFile)")
	name := flag.String("name", "", "Structure name shown in the report (overrides structure.name)")
	bandDir := flag.String("band-slices", "", "Directory to save band map slices (overrides output.bandSlicesDir)")
	verbose := flag.Bool("verbose", false, "Print progress for each step")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lmsgprefix)
	log.SetPrefix("ventthirds: ")

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *sliceDir != "" {
		cfg.Image.SliceDir = *sliceDir
	}
	if *meshFile != "" {
		cfg.Structure.MeshFile = *meshFile
	}
	if *name != "" {
		cfg.Structure.Name = *name
	}
	if *bandDir != "" {
		cfg.Output.BandSlicesDir = *bandDir
	}
	if *verbose {
		cfg.Output.Verbose = true
	}

	if cfg.Image.SliceDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	fmt.Println("================================")
	fmt.Println("VOLUMETRIC THIRDS THRESHOLD CALCULATION")
	fmt.Println("================================")

	p, err := provider.OpenFiles(cfg.FileOptions())
	if err != nil {
		log.Fatalf("Failed to open image: %v", err)
	}

	params := cfg.AnalysisParams()
	startTime := time.Now()
	out, err := analysis.NewAnalyzer(&params, os.Stderr).Run(p, report.WriterSink(os.Stdout))
	if err != nil {
		os.Exit(1)
	}
	if params.Verbose {
		log.Printf("Calculation completed in %.2f seconds", time.Since(startTime).Seconds())
	}

	if cfg.Output.BandSlicesDir != "" {
		if err := saveBandSlices(p, out, params.Thresholds.Precision, cfg.Output.BandSlicesDir); err != nil {
			log.Fatalf("Failed to save band slices: %v", err)
		}
	}
}

// saveBandSlices writes the band map along all three axes
func saveBandSlices(p provider.Provider, out *analysis.Outcome, precision int, dir string) error {
	nx, ny, nz := p.Image().Dims()
	bands, err := visualization.BandMap(nx, ny, nz, out.Samples, out.Result, precision)
	if err != nil {
		return err
	}

	viewer := visualization.NewViewer(bands)
	counts := viewer.Counts()
	fmt.Printf("\nBand map: %d lower, %d middle, %d upper voxels\n",
		counts[visualization.Lower], counts[visualization.Middle], counts[visualization.Upper])

	for _, axis := range []string{"x", "y", "z"} {
		axisDir := filepath.Join(dir, axis)
		fmt.Printf("Saving %s-axis slices to: %s\n", axis, axisDir)

		if err := viewer.SaveSliceSequence(axis, axisDir); err != nil {
			return fmt.Errorf("%s axis: %w", axis, err)
		}
	}
	return nil
}
