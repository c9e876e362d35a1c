// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package wgpu implements the pen driver contracts over the wgpu HAL.
//
// The device wraps a hal.Device and hal.Queue owned by the host
// application; use NewDeviceFromProvider to adopt the shared device of a
// gogpu app. Line batches and composites render through two WGSL
// pipelines with premultiplied alpha blending, and silhouette read-backs
// go through a 256-byte-row-aligned staging buffer.
//
// Build with the nogpu tag to exclude this package's GPU dependencies.
package wgpu
