package gpu

import (
	// Registers the platform HAL backends (Vulkan, Metal, DX12, GLES)
	// with hal.GetBackend, the default BackendLookup.
	_ "github.com/gogpu/wgpu/hal/allbackends"
)
