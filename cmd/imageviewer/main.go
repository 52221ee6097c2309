package main

import (
	"flag"
	"fmt"
	"os"

	"imageviewer/internal/app"
	"imageviewer/internal/config"
	"imageviewer/internal/logging"
)

type cliOpts struct {
	configPath string
	logLevel   string
}

func parseCLIOpts() cliOpts {
	var opt cliOpts
	flag.StringVar(&opt.configPath, "config", "", "Path to the configuration file (default "+config.Path()+")")
	flag.StringVar(&opt.logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides the config file)")
	flag.Usage = usage
	flag.Parse()
	return opt
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "Usage: %s [flags] <image>\n\n", os.Args[0])
	fmt.Fprintln(out, "Controls (keys can be remapped in [keys] and [[actions]] of the config file):")
	fmt.Fprintln(out, "  Mouse drag    : Pan")
	fmt.Fprintln(out, "  Mouse wheel   : Zoom")
	fmt.Fprintln(out, "  WASD / Arrows : Pan")
	fmt.Fprintln(out, "  + / -         : Zoom in / out")
	fmt.Fprintln(out, "  0 / R         : Reset view")
	fmt.Fprintln(out, "  Drop a file   : Open it")
	fmt.Fprintln(out, "  Escape        : Exit")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Flags:")
	flag.PrintDefaults()
}

func main() {
	opt := parseCLIOpts()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	path := opt.configPath
	if path == "" {
		path = config.Path()
	}
	cfg, err := config.LoadOrInit(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	level := cfg.Log.Level
	if opt.logLevel != "" {
		level = opt.logLevel
	}
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	logging.SetLogger(logging.NewTextLogger(os.Stderr, lvl))

	application, err := app.New(cfg, flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	runErr := application.Run()
	application.Cleanup()
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		os.Exit(1)
	}
}
