// Package microphone captures audio from a system input device through miniaudio.
package microphone

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/wealthwise/voiceviz/internal/domain"
	"github.com/wealthwise/voiceviz/internal/ports"
)

// Name is the backend name reported in logs and errors.
const Name = "microphone"

// bytesPerSample is the size of one FormatF32 sample.
const bytesPerSample = 4

// Device is a CaptureDevice backed by malgo.
//
// Samples are requested as interleaved float32 and downmixed to mono on the
// miniaudio callback thread before they reach the handler.
//
// Thread-safety: This implementation is thread-safe.
type Device struct {
	logger *slog.Logger

	mu       sync.Mutex
	mctx     *malgo.AllocatedContext
	device   *malgo.Device
	channels int
	mono     []float32
}

// New creates a microphone capture device. Nothing is opened until Open.
func New(logger *slog.Logger) *Device {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Device{logger: logger.With(slog.String("component", "capture"), slog.String("source", Name))}
}

// Name implements ports.CaptureDevice.
func (d *Device) Name() string { return Name }

// Open implements ports.CaptureDevice.
// Permission and device failures are returned as *domain.CaptureError.
func (d *Device) Open(ctx context.Context, cfg ports.CaptureConfig, handler ports.SampleHandler) error {
	if handler == nil {
		return domain.NewCaptureError("open", Name, "nil sample handler", nil)
	}
	if err := ctx.Err(); err != nil {
		return domain.NewCaptureError("open", Name, "context done", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device != nil {
		return nil
	}

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		d.logger.Debug("miniaudio", slog.String("message", strings.TrimSpace(message)))
	})
	if err != nil {
		return domain.NewCaptureError("open", Name, "init audio context", err)
	}

	channels := max(1, cfg.Channels)
	devCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	devCfg.Capture.Format = malgo.FormatF32
	devCfg.Capture.Channels = uint32(channels)
	devCfg.SampleRate = uint32(cfg.SampleRate)
	devCfg.Alsa.NoMMap = 1

	if cfg.Device != "" {
		info, err := findDevice(mctx, cfg.Device)
		if err != nil {
			release(mctx)
			return domain.NewCaptureError("open", Name, "select device", err)
		}
		devCfg.Capture.DeviceID = info.ID.Pointer()
	}

	if cfg.EchoCancellation || cfg.NoiseSuppression || cfg.AutoGainControl {
		// miniaudio has no voice processing; noise suppression and gain are
		// applied by the sampler's conditioner.
		d.logger.Debug("voice processing requested",
			slog.Bool("echo_cancellation", cfg.EchoCancellation),
			slog.Bool("noise_suppression", cfg.NoiseSuppression),
			slog.Bool("auto_gain", cfg.AutoGainControl))
	}

	d.channels = channels
	device, err := malgo.InitDevice(mctx.Context, devCfg, malgo.DeviceCallbacks{
		Data: func(_, input []byte, frameCount uint32) {
			handler(d.downmix(input, frameCount))
		},
	})
	if err != nil {
		release(mctx)
		return domain.NewCaptureError("open", Name, "init capture device (permission denied or no input)", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		release(mctx)
		return domain.NewCaptureError("open", Name, "start capture", err)
	}

	d.mctx = mctx
	d.device = device
	d.logger.Info("microphone opened",
		slog.String("device", cfg.Device),
		slog.Int("sample_rate", cfg.SampleRate),
		slog.Int("channels", channels))
	return nil
}

// downmix runs on the capture thread. The returned slice is reused by the
// next callback; the sampler copies it into its ring.
func (d *Device) downmix(input []byte, frameCount uint32) []float32 {
	n := int(frameCount)
	if cap(d.mono) < n {
		d.mono = make([]float32, n)
	}
	d.mono = Downmix(d.mono[:n], input, d.channels)
	return d.mono
}

// Downmix averages interleaved little-endian float32 frames into dst.
// It returns dst trimmed to the number of complete frames in input.
func Downmix(dst []float32, input []byte, channels int) []float32 {
	channels = max(1, channels)
	frameBytes := channels * bytesPerSample
	frames := min(len(dst), len(input)/frameBytes)

	for i := 0; i < frames; i++ {
		var sum float32
		base := i * frameBytes
		for ch := 0; ch < channels; ch++ {
			off := base + ch*bytesPerSample
			sum += math.Float32frombits(binary.LittleEndian.Uint32(input[off : off+bytesPerSample]))
		}
		dst[i] = sum / float32(channels)
	}
	return dst[:frames]
}

// Close implements ports.CaptureDevice. Closing a closed device is a no-op.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device == nil {
		return nil
	}
	if err := d.device.Stop(); err != nil {
		d.logger.Warn("failed to stop capture", slog.Any("error", err))
	}
	d.device.Uninit()
	d.device = nil

	release(d.mctx)
	d.mctx = nil
	d.logger.Info("microphone closed")
	return nil
}

// Devices implements ports.DeviceLister.
func (d *Device) Devices(ctx context.Context) ([]ports.DeviceInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, domain.NewCaptureError("list", Name, "init audio context", err)
	}
	defer release(mctx)

	infos, err := mctx.Devices(malgo.Capture)
	if err != nil {
		return nil, domain.NewCaptureError("list", Name, "enumerate capture devices", err)
	}

	out := make([]ports.DeviceInfo, 0, len(infos))
	for _, info := range infos {
		out = append(out, ports.DeviceInfo{
			ID:      info.ID.String(),
			Name:    info.Name(),
			Default: info.IsDefault != 0,
		})
	}
	return out, nil
}

// findDevice matches a capture device by ID or case-insensitive name.
func findDevice(mctx *malgo.AllocatedContext, want string) (malgo.DeviceInfo, error) {
	infos, err := mctx.Devices(malgo.Capture)
	if err != nil {
		return malgo.DeviceInfo{}, err
	}
	for _, info := range infos {
		if info.ID.String() == want || strings.EqualFold(info.Name(), want) {
			return info, nil
		}
	}
	return malgo.DeviceInfo{}, fmt.Errorf("no capture device %q", want)
}

func release(mctx *malgo.AllocatedContext) {
	if mctx == nil {
		return
	}
	_ = mctx.Uninit()
	mctx.Free()
}

var (
	_ ports.CaptureDevice = (*Device)(nil)
	_ ports.DeviceLister  = (*Device)(nil)
)
