// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package soft is the CPU reference implementation of the pen driver
// contracts. It renders to plain image.RGBA memory and counts device
// operations, making it the substrate for headless hosts and for tests
// that assert the pen layer's batching and compositing behavior.
package soft
