package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"imageviewer/internal/loader"
	"imageviewer/internal/logging"
)

func main() {
	verbose := flag.Bool("v", false, "Log decoder diagnostics to stderr")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [-v] <image>...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	if *verbose {
		logging.SetLogger(logging.NewTextLogger(os.Stderr, slog.LevelDebug))
	}

	failed := false
	for _, path := range flag.Args() {
		if err := describe(path); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func describe(path string) error {
	start := time.Now()
	img, info, err := loader.DecodeWithInfo(context.Background(), path)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Printf("=== %s ===\n", info.Path)
	fmt.Printf("  Format      : %s\n", info.Format)
	fmt.Printf("  Size        : %dx%d\n", info.Width, info.Height)
	fmt.Printf("  Aspect      : %.4f\n", img.Aspect())
	fmt.Printf("  Orientation : %d\n", info.Orientation)
	if info.Camera != "" {
		fmt.Printf("  Camera      : %s\n", info.Camera)
	}
	fmt.Printf("  Pixels      : %s, %d bytes\n", img.Format, img.Bytes())
	fmt.Printf("  Decoded in  : %v\n", elapsed.Round(time.Millisecond))
	return nil
}
