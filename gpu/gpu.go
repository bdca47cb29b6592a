// Package gpu wraps the WebGPU device and the pipeline plumbing shared
// by the renderers and the radiosity solver. Pipelines and bind group
// layouts are built from the descriptors in package shaders.
package gpu

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cogentcore/webgpu/wgpu"
)

// Options configures Open.
type Options struct {
	// Surface, when non-nil, is the descriptor of the presentation
	// surface. The adapter is required to be compatible with it.
	Surface *wgpu.SurfaceDescriptor

	// Require describes limits the adapter must support beyond the
	// WebGPU defaults.
	Require Requirements

	// ForceFallbackAdapter selects a software adapter.
	ForceFallbackAdapter bool

	// Logger receives diagnostics. Defaults to a discarding logger.
	Logger *slog.Logger
}

// Requirements names the limits a scene needs from the adapter.
type Requirements struct {
	StorageBufferBindingSize uint64
	ComputeInvocations       uint32
	TextureArrayLayers       uint32
}

// Device owns the WebGPU instance, adapter, device and queue, plus the
// presentation surface when one was requested.
type Device struct {
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
	Surface  *wgpu.Surface

	log *slog.Logger
}

// Open acquires an adapter and device. The caller owns the returned
// Device and must Release it.
func Open(opts *Options) (*Device, error) {
	if opts == nil {
		opts = &Options{}
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(nopHandler{})
	}

	inst := wgpu.CreateInstance(nil)
	var surface *wgpu.Surface
	if opts.Surface != nil {
		surface = inst.CreateSurface(opts.Surface)
	}

	adapter, err := inst.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: opts.ForceFallbackAdapter,
		CompatibleSurface:    surface,
	})
	if err != nil {
		inst.Release()
		return nil, fmt.Errorf("requesting adapter: %w", err)
	}

	supported := adapter.GetLimits()
	if err := CheckLimits(supported.Limits, opts.Require); err != nil {
		adapter.Release()
		inst.Release()
		return nil, err
	}

	limits := wgpu.DefaultLimits()
	raiseLimits(&limits, opts.Require)
	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "cornell",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		adapter.Release()
		inst.Release()
		return nil, fmt.Errorf("requesting device: %w", err)
	}

	log.Debug("opened webgpu device",
		"maxStorageBufferBindingSize", limits.MaxStorageBufferBindingSize,
		"maxComputeInvocationsPerWorkgroup", limits.MaxComputeInvocationsPerWorkgroup)

	return &Device{
		Instance: inst,
		Adapter:  adapter,
		Device:   device,
		Queue:    device.GetQueue(),
		Surface:  surface,
		log:      log,
	}, nil
}

// CheckLimits reports whether the supported limits cover req.
func CheckLimits(limits wgpu.Limits, req Requirements) error {
	if limits.MaxStorageBufferBindingSize < req.StorageBufferBindingSize {
		return fmt.Errorf("adapter supports storage buffer bindings of at most %d bytes, need %d",
			limits.MaxStorageBufferBindingSize, req.StorageBufferBindingSize)
	}
	if limits.MaxComputeInvocationsPerWorkgroup < req.ComputeInvocations {
		return fmt.Errorf("adapter supports at most %d compute invocations per workgroup, need %d",
			limits.MaxComputeInvocationsPerWorkgroup, req.ComputeInvocations)
	}
	if limits.MaxComputeWorkgroupSizeX < req.ComputeInvocations {
		return fmt.Errorf("adapter supports a workgroup size of at most %d, need %d",
			limits.MaxComputeWorkgroupSizeX, req.ComputeInvocations)
	}
	if limits.MaxTextureArrayLayers < req.TextureArrayLayers {
		return fmt.Errorf("adapter supports at most %d texture array layers, need %d",
			limits.MaxTextureArrayLayers, req.TextureArrayLayers)
	}
	return nil
}

func raiseLimits(limits *wgpu.Limits, req Requirements) {
	limits.MaxStorageBufferBindingSize = max(limits.MaxStorageBufferBindingSize, req.StorageBufferBindingSize)
	limits.MaxBufferSize = max(limits.MaxBufferSize, req.StorageBufferBindingSize)
	limits.MaxComputeInvocationsPerWorkgroup = max(limits.MaxComputeInvocationsPerWorkgroup, req.ComputeInvocations)
	limits.MaxComputeWorkgroupSizeX = max(limits.MaxComputeWorkgroupSizeX, req.ComputeInvocations)
	limits.MaxTextureArrayLayers = max(limits.MaxTextureArrayLayers, req.TextureArrayLayers)
}

// Log returns the logger the device was opened with.
func (d *Device) Log() *slog.Logger {
	return d.log
}

func (d *Device) Release() {
	if d.Surface != nil {
		d.Surface.Release()
	}
	d.Device.Release()
	d.Adapter.Release()
	d.Instance.Release()
}

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }
