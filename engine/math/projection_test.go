package math

import (
	gomath "math"
	"testing"

	mgl "github.com/go-gl/mathgl/mgl32"
)

func projectZ(m mgl.Mat4, z float32) float32 {
	v := m.Mul4x1(mgl.Vec4{0, 0, z, 1})
	return v.Z() / v.W()
}

func TestPerspectiveDepthRange(t *testing.T) {
	m := Perspective(DefaultFOV, 16.0/9.0, DefaultNear, DefaultFar)

	tests := []struct {
		name string
		z    float32
		want float32
	}{
		{"near plane maps to 0", -DefaultNear, 0},
		{"far plane maps to 1", -DefaultFar, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := projectZ(m, tt.z)
			if gomath.Abs(float64(got-tt.want)) > 1e-4 {
				t.Errorf("depth at z=%v is %v, want %v", tt.z, got, tt.want)
			}
		})
	}
}

func TestPerspectiveFlipsY(t *testing.T) {
	m := Perspective(DefaultFOV, 1.0, DefaultNear, DefaultFar)
	v := m.Mul4x1(mgl.Vec4{0, 1, -10, 1})
	if v.Y() >= 0 {
		t.Errorf("point above center projected to clip y=%v, want negative", v.Y())
	}
}

func TestPerspectiveForExtent(t *testing.T) {
	wide := PerspectiveForExtent(1600, 900)
	square := PerspectiveForExtent(800, 800)
	// A wider aspect shrinks the x scale relative to a square one.
	if wide[0] >= square[0] {
		t.Errorf("x scale %v for 16:9 not below %v for 1:1", wide[0], square[0])
	}
	zeroHeight := PerspectiveForExtent(1280, 0)
	if gomath.IsNaN(float64(zeroHeight[0])) || gomath.IsInf(float64(zeroHeight[0]), 0) {
		t.Error("zero height produced a non-finite projection")
	}
}

func TestLookAt(t *testing.T) {
	eye := mgl.Vec3{0, 0, 5}
	m := LookAt(eye, mgl.Vec3{0, 0, 0})

	origin := m.Mul4x1(mgl.Vec4{0, 0, 0, 1})
	if gomath.Abs(float64(origin.Z()+5)) > 1e-5 {
		t.Errorf("target at view z=%v, want -5", origin.Z())
	}
	atEye := m.Mul4x1(eye.Vec4(1))
	if atEye.Vec3().Len() > 1e-5 {
		t.Errorf("eye maps to %v, want origin", atEye.Vec3())
	}
}
