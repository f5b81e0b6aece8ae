package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/wealthwise/voiceviz/internal/adapter/capture/file"
	"github.com/wealthwise/voiceviz/internal/domain"
	"github.com/wealthwise/voiceviz/internal/scheduler"
)

// ErrNotManual is returned by Step and RenderFrames when frames are driven by a ticker.
var ErrNotManual = errors.New("application is not in manual frame mode")

// pngWorkers bounds concurrent PNG encoding in RenderFrames.
const pngWorkers = 4

// pumper is a capture source that produces samples on demand.
type pumper interface {
	Pump() error
}

// MetricsHandler serves the Prometheus exposition of the application's metrics.
func (a *Application) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{
		ErrorLog: slog.NewLogLogger(a.logger.Handler(), slog.LevelWarn),
	})
}

// RunHeadless runs the frame loop without a window until ctx is done.
// When metrics are enabled the Prometheus endpoint is served alongside.
func (a *Application) RunHeadless(ctx context.Context) error {
	if err := a.startPipeline(ctx); err != nil {
		return err
	}
	a.logger.Info("VoiceViz started headless",
		slog.String("style", a.controller.Style().String()))

	g, ctx := errgroup.WithContext(ctx)

	if a.settings.Metrics.Enabled {
		ln, err := net.Listen("tcp", a.settings.Metrics.Addr)
		if err != nil {
			a.controller.Stop()
			return fmt.Errorf("listen metrics: %w", err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", a.MetricsHandler())
		srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		a.logger.Info("serving metrics", slog.String("addr", ln.Addr().String()))
		g.Go(func() error {
			if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve metrics: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		a.controller.Stop()
		a.logger.Info("frame loop stopped", slog.Uint64("frames", a.controller.Frames()))
		return nil
	})

	return g.Wait()
}

// Step advances a manual frame loop by one frame.
// Sources that produce samples on demand first deliver delta worth of audio.
func (a *Application) Step(delta time.Duration) error {
	manual, ok := a.scheduler.(*scheduler.Manual)
	if !ok {
		return ErrNotManual
	}

	if p, ok := a.device.(pumper); ok && a.sampler.Initialized() {
		blocks := max(1, int(delta/file.DefaultInterval))
		for range blocks {
			if err := p.Pump(); err != nil {
				return fmt.Errorf("pump capture: %w", err)
			}
		}
	}

	manual.Tick(delta)
	return nil
}

// RenderOptions configures an offline render.
type RenderOptions struct {
	// Frames is the number of frames to advance.
	Frames int

	// Delta is the time between frames. Zero means 60 fps.
	Delta time.Duration

	// Every writes one PNG per Every frames. Zero or one writes all of them.
	Every int

	// Dir receives frame-00001.png and so on. Empty renders without writing.
	Dir string

	// Flags is applied before the first frame.
	Flags domain.Flags

	// Script retargets mid-render: at each listed frame number the flags are replaced.
	Script map[int]domain.Flags
}

// RenderFrames drives a manual frame loop and writes snapshots as PNG files.
// It returns the number of files written.
func (a *Application) RenderFrames(ctx context.Context, opts RenderOptions) (int, error) {
	if _, ok := a.scheduler.(*scheduler.Manual); !ok {
		return 0, ErrNotManual
	}
	if opts.Delta <= 0 {
		opts.Delta = time.Second / 60
	}
	if opts.Every <= 0 {
		opts.Every = 1
	}
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return 0, fmt.Errorf("create output dir: %w", err)
		}
	}

	if err := a.startPipeline(ctx); err != nil {
		return 0, err
	}
	defer a.controller.Stop()
	a.controller.SetFlags(opts.Flags)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(pngWorkers)

	written := 0
	for frame := 1; frame <= opts.Frames; frame++ {
		if err := gctx.Err(); err != nil {
			break
		}
		if flags, ok := opts.Script[frame]; ok {
			a.controller.SetFlags(flags)
		}
		if err := a.Step(opts.Delta); err != nil {
			return written, errors.Join(err, g.Wait())
		}
		if opts.Dir == "" || frame%opts.Every != 0 {
			continue
		}

		img := a.surface.Snapshot()
		if img == nil {
			continue
		}
		path := filepath.Join(opts.Dir, fmt.Sprintf("frame-%05d.png", frame))
		written++
		g.Go(func() error {
			return writePNG(path, img)
		})
	}

	if err := g.Wait(); err != nil {
		return written, err
	}
	if err := ctx.Err(); err != nil {
		return written, err
	}
	a.logger.Info("render complete",
		slog.Int("frames", opts.Frames),
		slog.Int("written", written),
		slog.String("dir", opts.Dir))
	return written, nil
}

// writePNG encodes img to path.
func writePNG(path string, img image.Image) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}
