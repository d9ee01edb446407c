package gpu

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"
)

func TestProgramSourceSharesColorBlock(t *testing.T) {
	for _, tier := range []Tier{TierModern, TierLegacy} {
		src := ProgramSource(tier)
		if !strings.HasPrefix(src, colorAdjustShaderSource) {
			t.Errorf("%v source does not start with the color block", tier)
		}
		for _, want := range []string{"fn adjust_color", "fn vs_main", "fn fs_main", "0.2126", "0.7152", "0.0722"} {
			if !strings.Contains(src, want) {
				t.Errorf("%v source missing %q", tier, want)
			}
		}
	}
	if strings.Contains(ProgramSource(TierModern), "@location(0) position") {
		t.Error("modern variant should not read vertex attributes")
	}
	if !strings.Contains(ProgramSource(TierLegacy), "@location(0) position") {
		t.Error("legacy variant should read the quad position attribute")
	}
}

// TestColorAdjustOrder checks the operations appear in the required order.
func TestColorAdjustOrder(t *testing.T) {
	src := colorAdjustShaderSource
	brightness := strings.Index(src, "params.brightness")
	contrast := strings.Index(src, "params.contrast")
	luma := strings.Index(src, "dot(")
	mix := strings.Index(src, "mix(")
	if brightness < 0 || contrast < 0 || luma < 0 || mix < 0 {
		t.Fatalf("color block incomplete: brightness=%d contrast=%d dot=%d mix=%d", brightness, contrast, luma, mix)
	}
	if !(brightness < contrast && contrast < luma && luma < mix) {
		t.Errorf("wrong order: brightness=%d contrast=%d dot=%d mix=%d", brightness, contrast, luma, mix)
	}
}

func TestCompileShaderModernSPIRV(t *testing.T) {
	out, err := compileShader(TierModern, gputypes.BackendVulkan, ProgramSource(TierModern))
	if err != nil {
		t.Fatalf("compile modern program: %v", err)
	}
	if len(out.source.SPIRV) == 0 {
		t.Fatal("SPIR-V output is empty")
	}
	if out.source.SPIRV[0] != 0x07230203 {
		t.Errorf("invalid SPIR-V magic: 0x%08X, want 0x07230203", out.source.SPIRV[0])
	}
	if out.source.WGSL != "" {
		t.Error("Vulkan output should carry SPIR-V only")
	}
}

func TestCompileShaderModernWGSL(t *testing.T) {
	src := ProgramSource(TierModern)
	out, err := compileShader(TierModern, gputypes.BackendMetal, src)
	if err != nil {
		t.Fatalf("compile modern program: %v", err)
	}
	if out.source.WGSL != src {
		t.Error("Metal output should pass WGSL through")
	}
	if out.glsl != nil {
		t.Error("modern tier should not translate to GLSL")
	}
}

func TestCompileShaderLegacyGLSL(t *testing.T) {
	out, err := compileShader(TierLegacy, gputypes.BackendGL, ProgramSource(TierLegacy))
	if err != nil {
		t.Fatalf("compile legacy program: %v", err)
	}
	for _, entry := range []string{vertexEntryPoint, fragmentEntryPoint} {
		code := out.glsl[entry]
		if code == "" {
			t.Errorf("no GLSL for %s", entry)
			continue
		}
		if !strings.Contains(code, "#version 430") {
			t.Errorf("%s GLSL missing version directive", entry)
		}
	}
	if out.source.WGSL == "" {
		t.Error("legacy output should keep the WGSL for the GL backend")
	}
}

func TestCompileShaderReportsDiagnostics(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"syntax", "fn broken( -> {"},
		{"unknown identifier", colorAdjustShaderSource + "\n@fragment\nfn fs_main() -> @location(0) vec4<f32> {\n    return vec4<f32>(missing_value, 0.0, 0.0, 1.0);\n}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileShader(TierModern, gputypes.BackendMetal, tt.src)
			if err == nil {
				t.Fatal("expected a compile error")
			}
			var ce *CompileError
			if !errors.As(err, &ce) {
				t.Fatalf("err = %T, want *CompileError", err)
			}
			if ce.Log == "" {
				t.Error("CompileError.Log should carry the diagnostic text")
			}
			if ce.Tier != TierModern {
				t.Errorf("Tier = %v, want modern", ce.Tier)
			}
			if !strings.Contains(err.Error(), ce.Log) {
				t.Error("Error() should include the log")
			}
		})
	}
}

func TestSpirvWords(t *testing.T) {
	words := spirvWords([]byte{0x03, 0x02, 0x23, 0x07, 0x01, 0x00, 0x00, 0x00})
	if len(words) != 2 || words[0] != 0x07230203 || words[1] != 1 {
		t.Errorf("spirvWords = %#v", words)
	}
}
