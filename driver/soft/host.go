// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package soft

import (
	"sync"

	"github.com/gogpu/pen/driver"
)

type programKey struct {
	mode    driver.DrawMode
	effects driver.EffectMask
}

// Host is a self-contained driver.Host over a software Device. It serves
// headless rendering and tests: the embedded stage size can be changed at
// runtime with SetNativeSize, which notifies subscribed layers the same
// way a windowed host would on a resize.
type Host struct {
	dev *Device

	mu       sync.Mutex
	width    int
	height   int
	programs map[programKey]driver.ProgramID
	nextSub  int
	subs     map[int]func(width, height int)
}

// NewHost returns a host with a fresh software device and the given native
// stage size.
func NewHost(width, height int) *Host {
	return &Host{
		dev:      NewDevice(),
		width:    width,
		height:   height,
		programs: make(map[programKey]driver.ProgramID),
		subs:     make(map[int]func(width, height int)),
	}
}

// Device returns the host's software device.
func (h *Host) Device() driver.Device { return h.dev }

// SoftDevice returns the concrete device, exposing its operation counters.
func (h *Host) SoftDevice() *Device { return h.dev }

// Program returns the interned program for a draw mode and effect mask.
// The software device has no shaders to compile; the ID only selects the
// rasterization path during draws.
func (h *Host) Program(mode driver.DrawMode, effects driver.EffectMask) (driver.ProgramID, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	key := programKey{mode: mode, effects: effects}
	if id, ok := h.programs[key]; ok {
		return id, nil
	}
	id := h.dev.registerProgram(mode)
	h.programs[key] = id
	return id, nil
}

// NativeSize returns the logical stage size.
func (h *Host) NativeSize() (width, height int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.width, h.height
}

// SetNativeSize changes the stage size and notifies subscribers.
func (h *Host) SetNativeSize(width, height int) {
	h.mu.Lock()
	h.width = width
	h.height = height
	fns := make([]func(int, int), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.mu.Unlock()
	for _, fn := range fns {
		fn(width, height)
	}
}

// OnNativeSizeChange registers a resize callback.
func (h *Host) OnNativeSizeChange(fn func(width, height int)) (cancel func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextSub
	h.nextSub++
	h.subs[id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs, id)
	}
}
