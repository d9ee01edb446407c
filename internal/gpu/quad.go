package gpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// quadVertexStride is the byte stride per quad vertex:
//
//	position (vec2<f32>) = 8 bytes (location 0)
//	uv       (vec2<f32>) = 8 bytes (location 1)
const quadVertexStride = 16

const quadVertexCount = 6

// quadVertices covers clip space with two triangles. uv (0,0) sits at the
// top-left corner so frame rows are sampled top to bottom as uploaded.
var quadVertices = [quadVertexCount][4]float32{
	{-1, 1, 0, 0},
	{1, 1, 1, 0},
	{-1, -1, 0, 1},
	{-1, -1, 0, 1},
	{1, 1, 1, 0},
	{1, -1, 1, 1},
}

func quadVertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: quadVertexStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
				{Format: gputypes.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},
			},
		},
	}
}

// quadBytes encodes quadVertices as little-endian floats.
func quadBytes() []byte {
	buf := make([]byte, quadVertexCount*quadVertexStride)
	for i, v := range quadVertices {
		for j, f := range v {
			binary.LittleEndian.PutUint32(buf[i*quadVertexStride+j*4:], math.Float32bits(f))
		}
	}
	return buf
}

// createQuad allocates and fills the static quad vertex buffer.
func createQuad(device hal.Device, queue hal.Queue) (hal.Buffer, error) {
	data := quadBytes()
	buf, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "preview_quad",
		Size:  uint64(len(data)),
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	if err := queue.WriteBuffer(buf, 0, data); err != nil {
		device.DestroyBuffer(buf)
		return nil, fmt.Errorf("upload quad: %w", err)
	}
	return buf, nil
}
