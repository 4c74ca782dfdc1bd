package section

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/chisel/pkg/kernel"
)

// fakeTrimmer records the last trim request and hands back canned
// meshes.
type fakeTrimmer struct {
	mesh       *kernel.Mesh
	trimmed    *kernel.Mesh
	lastNormal [3]float64
	lastOffset float64
	calls      int
}

func (f *fakeTrimmer) TrimByPlane(normal [3]float64, offset float64) (*kernel.Mesh, error) {
	f.lastNormal = normal
	f.lastOffset = offset
	f.calls++
	return f.trimmed, nil
}

func (f *fakeTrimmer) LastMesh() *kernel.Mesh { return f.mesh }

// boxMesh is an axis-aligned box spanning [0,2]x[0,4]x[0,6] with only
// the corner vertices populated; section range math needs nothing more.
func boxMesh() *kernel.Mesh {
	var props []float32
	for _, z := range []float32{0, 6} {
		for _, y := range []float32{0, 4} {
			for _, x := range []float32{0, 2} {
				props = append(props, x, y, z)
			}
		}
	}
	return &kernel.Mesh{
		NumProp:        3,
		VertProperties: props,
		TriVerts:       []uint32{0, 1, 2},
	}
}

func TestOffsetRange(t *testing.T) {
	ft := &fakeTrimmer{mesh: boxMesh(), trimmed: boxMesh()}
	e := New(ft, nil)

	tests := []struct {
		name             string
		normal           [3]float64
		wantMin, wantMax float64
	}{
		{"z axis", [3]float64{0, 0, 1}, 0, 6},
		{"negative z", [3]float64{0, 0, -1}, -6, 0},
		{"x axis scaled", [3]float64{10, 0, 0}, 0, 2}, // normalized before projection
		{"diagonal", [3]float64{1, 1, 0}, 0, 6 / math.Sqrt2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			min, max, err := e.OffsetRange(tt.normal)
			if err != nil {
				t.Fatalf("OffsetRange() error: %v", err)
			}
			if math.Abs(min-tt.wantMin) > 1e-9 || math.Abs(max-tt.wantMax) > 1e-9 {
				t.Errorf("OffsetRange() = %g, %g, want %g, %g", min, max, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestOffsetRangeNoMesh(t *testing.T) {
	e := New(&fakeTrimmer{}, nil)
	_, _, err := e.OffsetRange([3]float64{0, 0, 1})
	if !errors.Is(err, ErrNoMesh) {
		t.Errorf("OffsetRange() error = %v, want ErrNoMesh", err)
	}
}

func TestEnableCentersOffset(t *testing.T) {
	ft := &fakeTrimmer{mesh: boxMesh(), trimmed: boxMesh()}
	e := New(ft, nil)

	m, err := e.Enable([3]float64{0, 0, 1})
	if err != nil {
		t.Fatalf("Enable() error: %v", err)
	}
	if m == nil {
		t.Fatal("Enable() returned nil mesh")
	}
	if ft.lastOffset != 3 {
		t.Errorf("trim offset = %g, want 3 (middle of [0, 6])", ft.lastOffset)
	}
	if ft.lastNormal != [3]float64{0, 0, 1} {
		t.Errorf("trim normal = %v, want unit z", ft.lastNormal)
	}
	if p, on := e.Plane(); !on || p.Offset != 3 {
		t.Errorf("Plane() = %+v, %v, want enabled at offset 3", p, on)
	}
}

func TestEnableNormalizesNormal(t *testing.T) {
	ft := &fakeTrimmer{mesh: boxMesh(), trimmed: boxMesh()}
	e := New(ft, nil)

	if _, err := e.Enable([3]float64{0, 0, 5}); err != nil {
		t.Fatalf("Enable() error: %v", err)
	}
	if ft.lastNormal != [3]float64{0, 0, 1} {
		t.Errorf("trim normal = %v, want normalized", ft.lastNormal)
	}

	if _, err := e.Enable([3]float64{0, 0, 0}); err == nil {
		t.Error("Enable() with zero normal succeeded, want error")
	}
}

func TestSetOffsetClamps(t *testing.T) {
	ft := &fakeTrimmer{mesh: boxMesh(), trimmed: boxMesh()}
	e := New(ft, nil)

	if _, err := e.SetOffset(1); err == nil {
		t.Fatal("SetOffset() before Enable succeeded, want error")
	}
	if _, err := e.Enable([3]float64{0, 0, 1}); err != nil {
		t.Fatalf("Enable() error: %v", err)
	}

	tests := []struct {
		offset float64
		want   float64
	}{
		{2.5, 2.5},
		{-10, 0},
		{100, 6},
	}
	for _, tt := range tests {
		if _, err := e.SetOffset(tt.offset); err != nil {
			t.Fatalf("SetOffset(%g) error: %v", tt.offset, err)
		}
		if ft.lastOffset != tt.want {
			t.Errorf("SetOffset(%g) trimmed at %g, want %g", tt.offset, ft.lastOffset, tt.want)
		}
	}
}

func TestSetNormalRecenters(t *testing.T) {
	ft := &fakeTrimmer{mesh: boxMesh(), trimmed: boxMesh()}
	e := New(ft, nil)

	if _, err := e.Enable([3]float64{0, 0, 1}); err != nil {
		t.Fatalf("Enable() error: %v", err)
	}
	if _, err := e.SetOffset(5); err != nil {
		t.Fatalf("SetOffset() error: %v", err)
	}

	// Switching to the x axis recenters: the old offset 5 lies outside
	// the x range [0, 2].
	if _, err := e.SetNormal([3]float64{1, 0, 0}); err != nil {
		t.Fatalf("SetNormal() error: %v", err)
	}
	if ft.lastOffset != 1 {
		t.Errorf("trim offset after SetNormal = %g, want 1 (middle of [0, 2])", ft.lastOffset)
	}
}

func TestDisableRestoresFullMesh(t *testing.T) {
	full := boxMesh()
	ft := &fakeTrimmer{mesh: full, trimmed: boxMesh()}
	e := New(ft, nil)

	if _, err := e.Enable([3]float64{0, 0, 1}); err != nil {
		t.Fatalf("Enable() error: %v", err)
	}
	calls := ft.calls

	m, err := e.Disable()
	if err != nil {
		t.Fatalf("Disable() error: %v", err)
	}
	if m != full {
		t.Error("Disable() did not return the untrimmed mesh")
	}
	if ft.calls != calls {
		t.Error("Disable() performed a trim, want none")
	}
	if _, on := e.Plane(); on {
		t.Error("Plane() reports enabled after Disable")
	}
}
