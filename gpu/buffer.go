package gpu

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"honnef.co/go/safeish"

	"github.com/softglow/cornell/gmath"
)

// NewBuffer creates a zero-filled buffer.
func (d *Device) NewBuffer(label string, size uint64, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	buf, err := d.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("creating buffer %s: %w", label, err)
	}
	return buf, nil
}

// NewBufferInit creates a buffer holding the raw bytes of data.
func NewBufferInit[E any](d *Device, label string, data []E, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	contents := safeish.SliceCast[[]byte](data)
	buf, err := d.NewBuffer(label, uint64(len(contents)), usage|wgpu.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	if err := d.Queue.WriteBuffer(buf, 0, contents); err != nil {
		buf.Release()
		return nil, fmt.Errorf("writing buffer %s: %w", label, err)
	}
	return buf, nil
}

// WriteUniform uploads value to a uniform buffer.
func WriteUniform[E any](d *Device, buf *wgpu.Buffer, value *E) error {
	return d.Queue.WriteBuffer(buf, 0, safeish.AsBytes(value))
}

// ReadBuffer copies size bytes out of src through a staging buffer and
// blocks until the copy is mapped. It is meant for debugging and
// verification, not the frame loop.
func (d *Device) ReadBuffer(src *wgpu.Buffer, size uint64) ([]byte, error) {
	// Copy sizes must be 4-byte aligned.
	staging, err := d.NewBuffer("staging readback", gmath.AlignUp(size, 4),
		wgpu.BufferUsageMapRead|wgpu.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	defer staging.Release()

	enc, err := d.Device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("creating readback encoder: %w", err)
	}
	defer enc.Release()
	if err := enc.CopyBufferToBuffer(src, 0, staging, 0, size); err != nil {
		return nil, fmt.Errorf("recording readback copy: %w", err)
	}
	cmd, err := enc.Finish(nil)
	if err != nil {
		return nil, fmt.Errorf("finishing readback encoder: %w", err)
	}
	d.Queue.Submit(cmd)
	cmd.Release()

	var mapErr error
	done := false
	err = staging.MapAsync(wgpu.MapModeRead, 0, size, func(status wgpu.BufferMapAsyncStatus) {
		done = true
		if status != wgpu.BufferMapAsyncStatusSuccess {
			mapErr = fmt.Errorf("mapping readback buffer: status %d", status)
		}
	})
	if err != nil {
		return nil, err
	}
	for !done {
		d.Device.Poll(true, nil)
	}
	if mapErr != nil {
		return nil, mapErr
	}
	defer staging.Unmap()

	mapped := staging.GetMappedRange(0, uint(size))
	if mapped == nil {
		return nil, errors.New("getting mapped readback range")
	}
	out := make([]byte, size)
	copy(out, mapped)
	return out, nil
}
