package metadata

import (
	"testing"
	"unsafe"

	mgl "github.com/go-gl/mathgl/mgl32"
)

func TestPushQuadOverflow(t *testing.T) {
	fc := &FrameCommands{}
	for i := 0; i < MaxQuads; i++ {
		if !fc.PushQuad(QuadCommand{}) {
			t.Fatalf("push %d rejected below the cap", i)
		}
	}
	if fc.QuadOverflowed() {
		t.Error("overflow flagged before any drop")
	}
	if fc.PushQuad(QuadCommand{}) {
		t.Error("push beyond MaxQuads accepted")
	}
	if !fc.QuadOverflowed() {
		t.Error("overflow not flagged after a drop")
	}
	if len(fc.Quads) != MaxQuads {
		t.Errorf("quad list holds %d entries, want %d", len(fc.Quads), MaxQuads)
	}
}

func TestResetKeepsCapacity(t *testing.T) {
	fc := &FrameCommands{}
	for i := 0; i < 100; i++ {
		fc.PushQuad(QuadCommand{})
	}
	fc.PushMesh(MeshCommand{Handle: 3, Model: mgl.Ident4()})
	quadCap := cap(fc.Quads)

	fc.Reset()
	if len(fc.Quads) != 0 || len(fc.Meshes) != 0 {
		t.Errorf("Reset left %d quads, %d meshes", len(fc.Quads), len(fc.Meshes))
	}
	if cap(fc.Quads) != quadCap {
		t.Errorf("Reset changed quad capacity from %d to %d", quadCap, cap(fc.Quads))
	}
	if fc.QuadOverflowed() {
		t.Error("Reset kept the overflow flag")
	}
}

func TestMeshOrderPreserved(t *testing.T) {
	fc := &FrameCommands{}
	for i := 0; i < 5; i++ {
		fc.PushMesh(MeshCommand{Handle: uint32(i)})
	}
	for i, cmd := range fc.Meshes {
		if cmd.Handle != uint32(i) {
			t.Fatalf("mesh %d has handle %d, submission order lost", i, cmd.Handle)
		}
	}
}

func TestQuadCommandStride(t *testing.T) {
	if size := int(unsafe.Sizeof(QuadCommand{})); size != QuadCommandSize {
		t.Errorf("QuadCommand is %d bytes, shader stride is %d", size, QuadCommandSize)
	}
	if size := int(unsafe.Sizeof(MeshVertex{})); size != MeshVertexSize {
		t.Errorf("MeshVertex is %d bytes, pipeline stride is %d", size, MeshVertexSize)
	}
}
