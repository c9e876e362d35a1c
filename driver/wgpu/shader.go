// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package wgpu

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

//go:embed shaders/line.wgsl
var lineShaderSource string

//go:embed shaders/composite.wgsl
var compositeShaderSource string

// compileShaderModule compiles WGSL to SPIR-V through naga and creates a
// HAL shader module from the result. Going through SPIR-V validates the
// shader up front and works on backends without a WGSL frontend.
func compileShaderModule(device hal.Device, label, wgslSource string) (hal.ShaderModule, error) {
	spirvBytes, err := naga.Compile(wgslSource)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", label, err)
	}

	// SPIR-V is little-endian 32-bit words.
	spirvCode := make([]uint32, len(spirvBytes)/4)
	for i := range spirvCode {
		spirvCode[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}

	module, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: spirvCode},
	})
	if err != nil {
		return nil, fmt.Errorf("create %s module: %w", label, err)
	}
	return module, nil
}
