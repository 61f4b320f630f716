package metadata

import (
	"testing"
)

func TestMustStructureType(t *testing.T) {
	MustStructureType(StructureTypeFenceCreateInfo, StructureTypeFenceCreateInfo)

	defer func() {
		if recover() == nil {
			t.Fatal("mismatched structure type did not panic")
		}
	}()
	MustStructureType(StructureTypeSemaphoreCreateInfo, StructureTypeFenceCreateInfo)
}

func TestResultClassification(t *testing.T) {
	tests := []struct {
		res          Result
		isError      bool
		isStale      bool
		expectedName string
	}{
		{ResultSuccess, false, false, "VK_SUCCESS"},
		{ResultSuboptimal, false, true, "VK_SUBOPTIMAL_KHR"},
		{ResultTimeout, false, false, "VK_TIMEOUT"},
		{ResultErrorOutOfDate, true, true, "VK_ERROR_OUT_OF_DATE_KHR"},
		{ResultErrorDeviceLost, true, false, "VK_ERROR_DEVICE_LOST"},
		{Result(-4242), true, false, "VkResult(-4242)"},
	}
	for _, tt := range tests {
		if tt.res.IsError() != tt.isError || tt.res.IsStale() != tt.isStale || tt.res.String() != tt.expectedName {
			t.Errorf("%d: error=%t stale=%t name=%s", int32(tt.res), tt.res.IsError(), tt.res.IsStale(), tt.res)
		}
	}

	err := NewResultError("create fence", ResultErrorOutOfHostMemory)
	if err.Error() != "create fence failed with VK_ERROR_OUT_OF_HOST_MEMORY" {
		t.Fatalf("unexpected message %q", err)
	}
}

func TestParsePresentMode(t *testing.T) {
	for name, want := range map[string]PresentMode{
		"immediate":    PresentModeImmediate,
		"mailbox":      PresentModeMailbox,
		"fifo":         PresentModeFifo,
		"fifo_relaxed": PresentModeFifoRelaxed,
	} {
		got, ok := ParsePresentMode(name)
		if !ok || got != want || got.String() != name {
			t.Errorf("ParsePresentMode(%q) = %s, %t", name, got, ok)
		}
	}
	if _, ok := ParsePresentMode("adaptive"); ok {
		t.Fatal("unknown present mode accepted")
	}
}

func TestParseShaderStageType(t *testing.T) {
	for name, want := range map[string]ShaderStageFlags{
		"vertex":   ShaderStageVertex,
		"vert":     ShaderStageVertex,
		"fragment": ShaderStageFragment,
		"frag":     ShaderStageFragment,
		"geometry": ShaderStageGeometry,
	} {
		st, err := ParseShaderStageType(name)
		if err != nil {
			t.Fatal(err)
		}
		if st.Flags() != want {
			t.Errorf("%s maps to flags %#x, want %#x", name, st.Flags(), want)
		}
	}
	if _, err := ParseShaderStageType("tessellation"); err == nil {
		t.Fatal("unknown stage accepted")
	}
}

func TestDefaultVertexLayout(t *testing.T) {
	layout := DefaultVertexLayout()
	if layout.Stride != 48 {
		t.Fatalf("stride %d, want 48", layout.Stride)
	}
	offsets := []uint32{0, 12, 24, 32}
	for i, a := range layout.Attributes {
		if a.Location != uint32(i) || a.Offset != offsets[i] {
			t.Errorf("attribute %d at location %d offset %d", i, a.Location, a.Offset)
		}
	}
	if UniformBufferObjectSize != 3*64 {
		t.Fatalf("uniform buffer object is %d bytes", UniformBufferObjectSize)
	}
}

func TestBytesViews(t *testing.T) {
	if VertexBytes(nil) != nil || IndexBytes(nil) != nil {
		t.Fatal("empty input must give nil")
	}
	b := IndexBytes([]uint32{1, 0x01020304})
	if len(b) != 8 || b[0] != 1 || b[4] != 0x04 || b[7] != 0x01 {
		t.Fatalf("index bytes % x", b)
	}
	if n := len(VertexBytes(make([]Vertex, 3))); n != 3*48 {
		t.Fatalf("vertex bytes length %d", n)
	}
}

func TestHandleString(t *testing.T) {
	if NullHandle.String() != "null" || Handle(255).String() != "0xff" {
		t.Fatalf("%s %s", NullHandle, Handle(255))
	}
}
