package gpu

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

var pipelineObjects = []string{
	"shader module", "bind group layout", "pipeline layout", "render pipeline", "sampler", "buffer",
}

func TestBuildProgramModern(t *testing.T) {
	rc, dev, _ := noopContext(t, TierModern, 1280, 720)

	p, err := BuildProgram(rc)
	if err != nil {
		t.Fatalf("BuildProgram: %v", err)
	}
	defer p.Destroy()

	for _, kind := range pipelineObjects {
		if got := dev.live(kind); got != 1 {
			t.Errorf("live %s = %d, want 1", kind, got)
		}
	}
	if p.quad != nil {
		t.Error("modern program should not allocate a quad buffer")
	}
	if p.GLSL(fragmentEntryPoint) != "" {
		t.Error("modern program should carry no GLSL")
	}
}

func TestBuildProgramLegacy(t *testing.T) {
	rc, dev, q := noopContext(t, TierLegacy, 640, 480)

	p, err := BuildProgram(rc)
	if err != nil {
		t.Fatalf("BuildProgram: %v", err)
	}
	defer p.Destroy()

	if got := dev.live("buffer"); got != 2 {
		t.Errorf("live buffers = %d, want 2 (uniforms + quad)", got)
	}
	if got := len(q.written(p.quad)); got != quadVertexCount*quadVertexStride {
		t.Errorf("quad upload = %d bytes, want %d", got, quadVertexCount*quadVertexStride)
	}
	if p.GLSL(vertexEntryPoint) == "" || p.GLSL(fragmentEntryPoint) == "" {
		t.Error("legacy program should carry GLSL for both stages")
	}
}

func TestProgramUniformHandles(t *testing.T) {
	rc, _, _ := noopContext(t, TierModern, 64, 64)
	p, err := BuildProgram(rc)
	if err != nil {
		t.Fatalf("BuildProgram: %v", err)
	}
	defer p.Destroy()

	tests := []struct {
		name    string
		binding uint32
		offset  uint64
	}{
		{"texture", bindingTexture, 0},
		{"brightness", bindingParams, 0},
		{"contrast", bindingParams, 4},
		{"saturation", bindingParams, 8},
	}
	for _, tt := range tests {
		u, ok := p.Uniform(tt.name)
		if !ok {
			t.Errorf("Uniform(%q) not found", tt.name)
			continue
		}
		if u.Binding != tt.binding || u.Offset != tt.offset {
			t.Errorf("Uniform(%q) = %+v, want binding %d offset %d", tt.name, u, tt.binding, tt.offset)
		}
	}
	if _, ok := p.Uniform("gamma"); ok {
		t.Error("Uniform(gamma) should not exist")
	}
}

func TestProgramSetUniforms(t *testing.T) {
	rc, _, q := noopContext(t, TierModern, 64, 64)
	p, err := BuildProgram(rc)
	if err != nil {
		t.Fatalf("BuildProgram: %v", err)
	}
	defer p.Destroy()

	if err := p.SetUniforms(Uniforms{Brightness: 0.2, Contrast: 1.5, Saturation: 0}); err != nil {
		t.Fatalf("SetUniforms: %v", err)
	}
	data := q.written(p.uniformBuf)
	if len(data) != uniformBufferSize {
		t.Fatalf("uniform write = %d bytes, want %d", len(data), uniformBufferSize)
	}
	read := func(off int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
	}
	if got := read(0); got != 0.2 {
		t.Errorf("brightness = %v, want 0.2", got)
	}
	if got := read(4); got != 1.5 {
		t.Errorf("contrast = %v, want 1.5", got)
	}
	if got := read(8); got != 0 {
		t.Errorf("saturation = %v, want 0", got)
	}
}

func TestProgramDestroyReverseOrder(t *testing.T) {
	rc, dev, _ := noopContext(t, TierLegacy, 64, 64)
	p, err := BuildProgram(rc)
	if err != nil {
		t.Fatalf("BuildProgram: %v", err)
	}
	start := len(dev.order)
	p.Destroy()
	p.Destroy()

	want := []string{
		"destroy buffer", "destroy buffer", "destroy sampler", "destroy render pipeline",
		"destroy pipeline layout", "destroy bind group layout", "destroy shader module",
	}
	got := dev.order[start:]
	if len(got) != len(want) {
		t.Fatalf("destroy sequence = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("destroy[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if err := p.SetUniforms(Uniforms{}); !errors.Is(err, ErrReleased) {
		t.Errorf("SetUniforms after Destroy = %v, want ErrReleased", err)
	}
}

func TestBuildProgramLinkFailure(t *testing.T) {
	for _, object := range []string{"shader module", "render pipeline", "sampler"} {
		t.Run(object, func(t *testing.T) {
			rc, dev, _ := noopContext(t, TierModern, 64, 64)
			dev.failOn = object

			p, err := BuildProgram(rc)
			if p != nil {
				t.Fatal("BuildProgram should not return a program on failure")
			}
			var le *LinkError
			if !errors.As(err, &le) {
				t.Fatalf("err = %v, want *LinkError", err)
			}
			if le.Object != object {
				t.Errorf("LinkError.Object = %q, want %q", le.Object, object)
			}
			if !errors.Is(err, errInjected) {
				t.Error("LinkError should wrap the device error")
			}
			for _, kind := range pipelineObjects {
				if n := dev.live(kind); n != 0 {
					t.Errorf("%d %s left allocated after failure", n, kind)
				}
			}
		})
	}
}

func TestQuadVerticesTopLeftOrigin(t *testing.T) {
	for _, v := range quadVertices {
		x, y, u, vv := v[0], v[1], v[2], v[3]
		if (x < 0) != (u == 0) {
			t.Errorf("vertex %v: left edge should map to u=0", v)
		}
		if (y > 0) != (vv == 0) {
			t.Errorf("vertex %v: top edge should map to v=0", v)
		}
	}
	if got := len(quadBytes()); got != quadVertexCount*quadVertexStride {
		t.Errorf("len(quadBytes()) = %d", got)
	}
}
