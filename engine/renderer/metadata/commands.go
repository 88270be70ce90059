package metadata

import (
	mgl "github.com/go-gl/mathgl/mgl32"
)

const (
	// MaxFramesInFlight is the CPU/GPU overlap depth.
	MaxFramesInFlight = 2

	// MaxQuads bounds the per-frame quad SSBO. Commands beyond the cap
	// are dropped with one warning per frame.
	MaxQuads = 4096

	// QuadCommandSize is the GPU-side stride of one quad record.
	QuadCommandSize = 32

	// MeshVertexSize is the interleaved vertex stride of the mesh pipeline.
	MeshVertexSize = 40

	// MeshPushConstantSize covers mat4 mvp + vec4 tint.
	MeshPushConstantSize = 80
)

// QuadCommand is one bindless quad record, laid out exactly as the quad
// vertex shader reads it from the storage buffer. Rect is (x, y, w, h)
// in Vulkan clip space, written by the shader as is: +y points down
// the screen.
type QuadCommand struct {
	Rect  [4]float32
	Color [4]float32
}

// MeshCommand is one ordered mesh draw. Model is column-major, uploaded
// as-is into the push constant block together with the tint.
type MeshCommand struct {
	Handle uint32
	Model  mgl.Mat4
	Tint   [4]float32
}

// MeshVertex is the interleaved mesh vertex layout: position, normal,
// vertex color.
type MeshVertex struct {
	Position [3]float32
	Normal   [3]float32
	Color    [4]float32
}

// Camera holds the view parameters the module sets through set_camera.
// Up is fixed at +Y.
type Camera struct {
	Eye    mgl.Vec3
	Target mgl.Vec3
}

// FrameCommands is the per-frame draw list. Lane 0 owns it exclusively:
// cleared at the top of the frame, appended to by module callbacks,
// copied out for the recorder.
type FrameCommands struct {
	ClearColor [4]float32
	Quads      []QuadCommand
	Meshes     []MeshCommand

	quadOverflow bool
}

// Reset clears the command lists for a new frame, keeping capacity.
func (fc *FrameCommands) Reset() {
	fc.Quads = fc.Quads[:0]
	fc.Meshes = fc.Meshes[:0]
	fc.quadOverflow = false
}

// PushQuad appends a quad command. Returns false once the frame is at
// MaxQuads; dropped commands mark the overflow flag for the caller to
// report.
func (fc *FrameCommands) PushQuad(cmd QuadCommand) bool {
	if len(fc.Quads) >= MaxQuads {
		fc.quadOverflow = true
		return false
	}
	fc.Quads = append(fc.Quads, cmd)
	return true
}

// QuadOverflowed reports whether PushQuad dropped at least one command
// this frame.
func (fc *FrameCommands) QuadOverflowed() bool {
	return fc.quadOverflow
}

// PushMesh appends a mesh command.
func (fc *FrameCommands) PushMesh(cmd MeshCommand) {
	fc.Meshes = append(fc.Meshes, cmd)
}
