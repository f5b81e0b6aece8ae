// Package ports define interfaces for dependency inversion.
// These interfaces allow the visualization core to remain independent of capture backends and toolkits.
package ports

import (
	"context"

	"github.com/wealthwise/voiceviz/internal/domain"
)

// CaptureConfig describes how a capture device should be opened.
type CaptureConfig struct {
	// SampleRate is the requested sample rate in Hz (e.g., 48000)
	SampleRate int

	// Channels is the number of channels requested from the backend.
	// Samples handed to the SampleHandler are always mono.
	Channels int

	// Device selects a backend-specific device (empty for the default device)
	Device string

	// Processing constraints requested from the backend
	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
}

// SampleHandler receives mono samples in [-1, 1].
// It is called from backend threads; the slice is only valid for the duration of the call.
type SampleHandler func(samples []float32)

// CaptureDevice is the interface for audio input backends.
// This abstracts the microphone (malgo), file replay and synthetic sources.
//
// Implementations must be thread-safe: Close may be called while samples are being delivered.
type CaptureDevice interface {
	// Name returns the backend name used in logs and errors (e.g., "malgo").
	Name() string

	// Open starts delivering samples to handler.
	// Permission or device failures return an error matching domain.ErrCaptureUnavailable.
	Open(ctx context.Context, cfg CaptureConfig, handler SampleHandler) error

	// Close stops the device and releases its resources.
	// Calling Close on a closed or never-opened device is a no-op.
	Close() error
}

// DeviceInfo describes one capture device exposed by a backend.
type DeviceInfo struct {
	ID      string
	Name    string
	Default bool
}

// DeviceLister is implemented by capture backends that can enumerate devices.
type DeviceLister interface {
	Devices(ctx context.Context) ([]DeviceInfo, error)
}

// AudioSampler bridges a capture device to fixed-size analysis arrays.
//
// Thread-safety: sampling calls are made from the frame loop while the capture
// device writes from its own thread; implementations guard shared buffers.
type AudioSampler interface {
	// Initialize opens the capture device. Failure is recoverable and leaves the
	// sampler uninitialized. Calling it while initialized is a no-op.
	Initialize(ctx context.Context) error

	// Initialized reports whether the capture device is open.
	Initialized() bool

	// SampleFrequency returns frequency-domain bytes, or nil when not initialized.
	SampleFrequency() []uint8

	// SampleTimeDomain returns waveform bytes centered at 128, or nil when not initialized.
	SampleTimeDomain() []uint8

	// Level returns the RMS of the most recent frequency sample in [0,1].
	Level() float64

	// Bands returns the bass/mid/treble averages of the most recent frequency sample.
	Bands() domain.Bands

	// Frame samples both domains at once. It reports false when not initialized.
	Frame() (domain.AudioFrame, bool)

	// Dispose stops the capture device. Safe to call multiple times.
	Dispose() error
}
