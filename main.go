package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/reverie/engine"
	"github.com/spaghettifunk/reverie/engine/core"
)

func main() {
	cfg := engine.LoadConfig("reverie.toml")

	headless := flag.Bool("headless", cfg.Headless, "render to BMP files instead of a window")
	flag.BoolVar(headless, "H", *headless, "shorthand for --headless")
	frames := flag.Int("frames", cfg.Frames, "number of frames to export in headless mode")
	flag.IntVar(frames, "f", *frames, "shorthand for --frames")
	outputDir := flag.String("output-dir", cfg.OutputDir, "directory for exported frames")
	flag.StringVar(outputDir, "o", *outputDir, "shorthand for --output-dir")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	cfg.Headless = *headless
	cfg.Frames = *frames
	cfg.OutputDir = *outputDir
	if *debug {
		core.LogSetDebug()
	}

	e, err := engine.New(cfg)
	if err != nil {
		core.LogFatal("engine creation failed: %s", err)
		os.Exit(1)
	}

	if err := e.Initialize(); err != nil {
		core.LogError("engine initialization failed: %s", err)
		e.Shutdown()
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigCh
		e.RequestQuit()
	}()

	runErr := e.Run()
	e.Shutdown()
	if runErr != nil {
		os.Exit(1)
	}
}
