package module

import (
	"unsafe"

	"github.com/ebitengine/purego"
	mgl "github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/reverie/engine/core"
	"github.com/spaghettifunk/reverie/engine/mesh"
	"github.com/spaghettifunk/reverie/engine/renderer/metadata"
)

// APIVersion is the host side of the ABI handshake. A module whose
// get_api_version() returns anything else is rejected.
const APIVersion uint32 = 1

// apiTable is the function-pointer struct handed to the module. The
// layout is part of the ABI: version first, then the callbacks in
// declaration order, all pointer-sized.
type apiTable struct {
	Version       uint64
	SetClearColor uintptr
	DrawQuad      uintptr
	SetCamera     uintptr
	LoadMesh      uintptr
	DrawMesh      uintptr
	DrawCube      uintptr
	Log           uintptr
	GetDt         uintptr
	IsKeyDown     uintptr
}

// API owns the callback table and the engine state the callbacks
// mutate. The table is built once; callback targets read the live
// fields so reloads see current state.
type API struct {
	Commands *metadata.FrameCommands
	Camera   *metadata.Camera
	Meshes   *mesh.Table

	dt float64

	// allowMeshLoad is set only around the module's load call.
	allowMeshLoad bool

	table *apiTable
}

// NewAPI builds the callback table against the given frame state.
func NewAPI(commands *metadata.FrameCommands, camera *metadata.Camera, meshes *mesh.Table) *API {
	a := &API{
		Commands: commands,
		Camera:   camera,
		Meshes:   meshes,
	}
	a.table = &apiTable{
		Version: uint64(APIVersion),
		SetClearColor: purego.NewCallback(func(r, g, b, alpha float32) {
			a.Commands.ClearColor = [4]float32{r, g, b, alpha}
		}),
		DrawQuad: purego.NewCallback(func(x, y, w, h, r, g, b, alpha float32) {
			a.Commands.PushQuad(metadata.QuadCommand{
				Rect:  [4]float32{x, y, w, h},
				Color: [4]float32{r, g, b, alpha},
			})
		}),
		SetCamera: purego.NewCallback(func(ex, ey, ez, tx, ty, tz float32) {
			a.Camera.Eye = mgl.Vec3{ex, ey, ez}
			a.Camera.Target = mgl.Vec3{tx, ty, tz}
		}),
		LoadMesh: purego.NewCallback(func(path uintptr) uint32 {
			return a.loadMesh(goString(path))
		}),
		DrawMesh: purego.NewCallback(func(handle uint32, model uintptr, r, g, b, alpha float32) {
			a.drawMesh(handle, model, r, g, b, alpha)
		}),
		DrawCube: purego.NewCallback(func(model uintptr, r, g, b, alpha float32) {
			a.drawMesh(mesh.CubeHandle, model, r, g, b, alpha)
		}),
		Log: purego.NewCallback(func(msg uintptr) {
			core.LogInfo("[game] %s", goString(msg))
		}),
		GetDt: purego.NewCallback(func() float32 {
			return float32(a.dt)
		}),
		IsKeyDown: purego.NewCallback(func(key uint32) bool {
			return core.InputIsKeyDown(core.KeyCode(key))
		}),
	}
	return a
}

// SetDelta publishes the frame delta read back by get_dt. Negative
// values are clamped to zero.
func (a *API) SetDelta(dt float64) {
	if dt < 0 {
		dt = 0
	}
	a.dt = dt
}

// TablePtr returns the address the module receives as its api pointer.
func (a *API) TablePtr() uintptr {
	return uintptr(unsafe.Pointer(a.table))
}

func (a *API) loadMesh(path string) uint32 {
	if !a.allowMeshLoad {
		core.LogWarn("load_mesh(%q) called outside load, returning cube", path)
		return mesh.CubeHandle
	}
	handle, err := a.Meshes.Load(path)
	if err != nil {
		return mesh.CubeHandle
	}
	return handle
}

func (a *API) drawMesh(handle uint32, model uintptr, r, g, b, alpha float32) {
	cmd := metadata.MeshCommand{
		Handle: handle,
		Model:  mgl.Ident4(),
		Tint:   [4]float32{r, g, b, alpha},
	}
	if model != 0 {
		cmd.Model = *(*mgl.Mat4)(unsafe.Pointer(model))
	}
	a.Commands.PushMesh(cmd)
}

// goString copies a NUL-terminated C string owned by the module.
func goString(ptr uintptr) string {
	if ptr == 0 {
		return ""
	}
	var out []byte
	for p := ptr; ; p++ {
		c := *(*byte)(unsafe.Pointer(p))
		if c == 0 {
			break
		}
		out = append(out, c)
	}
	return string(out)
}
