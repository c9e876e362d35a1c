// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package driver defines the contracts between the pen layer and its
// rendering host: the GPU device abstraction, the compiled-program lookup,
// and the native stage size feed.
//
// Two implementations ship with this module: driver/soft, a CPU reference
// device usable headless and in tests, and driver/wgpu, a wgpu HAL device
// for GPU rendering inside a gogpu host application.
package driver
