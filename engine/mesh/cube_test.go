package mesh

import (
	"math"
	"testing"
)

func TestCubeGeometryShape(t *testing.T) {
	vertices, indices := cubeGeometry()
	if len(vertices) != 24 {
		t.Fatalf("cube has %d vertices, want 24", len(vertices))
	}
	if len(indices) != 36 {
		t.Fatalf("cube has %d indices, want 36", len(indices))
	}
	for i, idx := range indices {
		if int(idx) >= len(vertices) {
			t.Fatalf("index %d references vertex %d, only %d exist", i, idx, len(vertices))
		}
	}
}

func TestCubeNormalsUnit(t *testing.T) {
	vertices, _ := cubeGeometry()
	for i, v := range vertices {
		n := v.Normal
		length := math.Sqrt(float64(n[0]*n[0] + n[1]*n[1] + n[2]*n[2]))
		if math.Abs(length-1) > 1e-6 {
			t.Errorf("vertex %d normal %v has length %v", i, n, length)
		}
	}
}

func TestCubeWinding(t *testing.T) {
	vertices, indices := cubeGeometry()
	for tri := 0; tri < len(indices); tri += 3 {
		a := vertices[indices[tri]]
		b := vertices[indices[tri+1]]
		c := vertices[indices[tri+2]]

		var ab, ac [3]float32
		for i := 0; i < 3; i++ {
			ab[i] = b.Position[i] - a.Position[i]
			ac[i] = c.Position[i] - a.Position[i]
		}
		cross := [3]float32{
			ab[1]*ac[2] - ab[2]*ac[1],
			ab[2]*ac[0] - ab[0]*ac[2],
			ab[0]*ac[1] - ab[1]*ac[0],
		}
		dot := cross[0]*a.Normal[0] + cross[1]*a.Normal[1] + cross[2]*a.Normal[2]
		if dot <= 0 {
			t.Errorf("triangle %d winds against its face normal %v", tri/3, a.Normal)
		}
	}
}

func TestCubeCentered(t *testing.T) {
	vertices, _ := cubeGeometry()
	var sum [3]float32
	for _, v := range vertices {
		for i := 0; i < 3; i++ {
			sum[i] += v.Position[i]
			if math.Abs(float64(v.Position[i])) != 0.5 {
				t.Fatalf("corner coordinate %v not on the half-unit shell", v.Position)
			}
		}
	}
	if sum != [3]float32{} {
		t.Errorf("vertex centroid %v, want origin", sum)
	}
}
