// Command camview previews a synthetic camera through the camview renderer.
//
// It renders headless into an offscreen target, prints frame statistics
// once per second and hot-applies [filter] changes from the config file.
//
// Usage:
//
//	camview -config camview.toml -duration 10s -output last.png
package main

import (
	"context"
	"flag"
	"image/png"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/gogpu/camview"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func main() {
	var (
		configPath = flag.String("config", "camview.toml", "config file, watched for [filter] changes")
		duration   = flag.Duration("duration", 0, "stop after this long (0 runs until interrupted)")
		output     = flag.String("output", "", "write the last software-rendered frame as PNG")
		software   = flag.Bool("software", false, "skip GPU negotiation")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Render.level()}))
	slog.SetDefault(logger)
	camview.SetLogger(logger)

	tiers, err := cfg.Render.tiers()
	if err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	opts := []camview.Option{
		camview.WithParameters(cfg.Filter.Apply(camview.DefaultParameters())),
		camview.WithTiers(tiers...),
		camview.WithRefreshRate(cfg.Render.RefreshRate),
	}

	var (
		r    camview.PreviewRenderer
		name string
	)
	if *software || cfg.Render.Software {
		r, name = camview.NewSoftwareRenderer(opts...), camview.BackendSoftware
	} else {
		r, name = camview.NewBest(opts...)
	}
	defer func() { r.Destroy() }()

	src := newPattern(cfg.Render.Width, cfg.Render.Height, cfg.Render.FPS)
	defer src.Close()
	surface := camview.NewOffscreenSurface(cfg.Render.Width, cfg.Render.Height)

	if st := r.Initialize(surface, src); st != camview.StatusOK {
		if name != camview.BackendGPU {
			log.Fatalf("Failed to initialize %s renderer: %v", name, r.Err())
		}
		slog.Warn("GPU renderer failed, falling back to software", "status", st, "err", r.Err())
		r.Destroy()
		r, name = camview.NewSoftwareRenderer(opts...), camview.BackendSoftware
		if st := r.Initialize(surface, src); st != camview.StatusOK {
			log.Fatalf("Failed to initialize software renderer: %v", r.Err())
		}
	}
	slog.Info("preview ready", "renderer", name, "size", [2]int{cfg.Render.Width, cfg.Render.Height})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if *duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	if err := watchConfig(ctx, *configPath, func(u camview.ParameterUpdate) {
		p := r.SetParameters(u)
		slog.Info("filter updated", "brightness", p.Brightness, "contrast", p.Contrast, "saturation", p.Saturation)
	}); err != nil {
		slog.Warn("config hot reload disabled", "err", err)
	}

	if err := r.Start(); err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	report(ctx, r, name)
	r.Stop()

	if *output != "" {
		sw, ok := r.(*camview.SoftwareRenderer)
		if !ok || sw.Image() == nil {
			log.Printf("No CPU image to save from the %s renderer", name)
			return
		}
		if err := savePNG(*output, sw); err != nil {
			log.Fatalf("Failed to save: %v", err)
		}
		log.Printf("Last frame saved to %s", *output)
	}
}

// report prints statistics once per second until ctx is done.
func report(ctx context.Context, r camview.PreviewRenderer, name string) {
	p := message.NewPrinter(language.English)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var last uint64
	for {
		select {
		case <-ctx.Done():
			st := r.Stats()
			p.Printf("%s: %d frames total, %d upload failures, %d reallocations, %d panics\n",
				name, st.Frames, st.UploadFailures, st.Reallocations, st.Panics)
			return
		case <-ticker.C:
			st := r.Stats()
			p.Printf("%s: %d fps, frame #%d, %d dropped\n", name, st.Frames-last, st.LastSequence, st.Dropped)
			last = st.Frames
		}
	}
}

func savePNG(path string, r *camview.SoftwareRenderer) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, r.Image()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
