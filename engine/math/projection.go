package math

import (
	mgl "github.com/go-gl/mathgl/mgl32"
)

const (
	// DefaultFOV is the vertical field of view in degrees.
	DefaultFOV  float32 = 45.0
	DefaultNear float32 = 0.1
	DefaultFar  float32 = 100.0
)

// Perspective builds the engine projection matrix: a standard symmetric
// perspective corrected for the Vulkan clip-space convention. Y is
// flipped (clip space is Y-down) and depth is remapped from [-1,1] to
// [0,1].
func Perspective(fovDegrees, aspect, near, far float32) mgl.Mat4 {
	m := mgl.Perspective(mgl.DegToRad(fovDegrees), aspect, near, far)
	// mgl.Mat4 is column-major: At(row, col), index = col*4 + row.
	m[5] = -m[5]                // [1][1]: flip Y for Vulkan clip space
	m[10] = 0.5 * (m[10] - 1.0) // [2][2]: z from [-1,1] to [0,1]
	m[14] = 0.5 * m[14]         // [3][2]
	return m
}

// LookAt builds a right-handed view matrix from eye towards target with
// up = +Y.
func LookAt(eye, target mgl.Vec3) mgl.Mat4 {
	return mgl.LookAtV(eye, target, mgl.Vec3{0, 1, 0})
}

// PerspectiveForExtent is Perspective with the engine defaults and the
// aspect ratio of the given framebuffer extent.
func PerspectiveForExtent(width, height uint32) mgl.Mat4 {
	aspect := float32(1)
	if height != 0 {
		aspect = float32(width) / float32(height)
	}
	return Perspective(DefaultFOV, aspect, DefaultNear, DefaultFar)
}
