package mesh

import (
	"unsafe"

	vk "github.com/Eiton/vulkan"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/spaghettifunk/reverie/engine/core"
	"github.com/spaghettifunk/reverie/engine/renderer/metadata"
	"github.com/spaghettifunk/reverie/engine/renderer/vulkan"
)

// SlotCap is the fixed size of the mesh table. Handles index into it
// and are never reused within a run.
const SlotCap = 64

// Table owns every loaded mesh's GPU buffers. Slots are append-only;
// slot 0 always holds the built-in unit cube so a failed load has a
// visible fallback.
type Table struct {
	context  *vulkan.VulkanContext
	slots    [SlotCap]vulkan.MeshSlotGPU
	nextSlot uint32
}

// NewTable uploads the unit cube into slot 0 and returns the table.
func NewTable(context *vulkan.VulkanContext) (*Table, error) {
	t := &Table{context: context}

	vertices, indices := cubeGeometry()
	if err := t.upload(0, vertices, indices); err != nil {
		return nil, err
	}
	t.nextSlot = 1
	return t, nil
}

// CubeHandle is the handle of the built-in unit cube.
const CubeHandle uint32 = 0

// Load reads a glTF file, uploads its first primitive and returns the
// new handle. On any decode failure the cube handle is returned with
// core.ErrMeshLoad so the caller still has something to draw.
func (t *Table) Load(path string) (uint32, error) {
	if t.nextSlot >= SlotCap {
		core.LogWarn("mesh table full, %s not loaded", path)
		return CubeHandle, core.ErrMeshLoad
	}

	vertices, indices, err := decodeGLTF(path)
	if err != nil {
		core.LogError("mesh load failed for %s: %s", path, err)
		return CubeHandle, core.ErrMeshLoad
	}

	slot := t.nextSlot
	if err := t.upload(slot, vertices, indices); err != nil {
		core.LogError("mesh upload failed for %s: %s", path, err)
		return CubeHandle, core.ErrMeshLoad
	}
	t.nextSlot++
	core.LogInfo("Mesh %s loaded into slot %d (%d vertices, %d indices).", path, slot, len(vertices), len(indices))
	return slot, nil
}

// Slots returns the table's slot array for the recorder. The returned
// slice is read-only while a frame is recording.
func (t *Table) Slots() []vulkan.MeshSlotGPU {
	return t.slots[:t.nextSlot]
}

// Lookup returns the slot for a handle, or false when the handle is
// out of range or not yet loaded.
func (t *Table) Lookup(handle uint32) (*vulkan.MeshSlotGPU, bool) {
	if handle >= t.nextSlot || !t.slots[handle].Loaded {
		return nil, false
	}
	return &t.slots[handle], true
}

// Destroy releases every slot's GPU buffers.
func (t *Table) Destroy() {
	for i := uint32(0); i < t.nextSlot; i++ {
		slot := &t.slots[i]
		if !slot.Loaded {
			continue
		}
		vulkan.BufferDestroy(t.context, slot.VertexBuffer)
		vulkan.BufferDestroy(t.context, slot.IndexBuffer)
		slot.VertexBuffer = nil
		slot.IndexBuffer = nil
		slot.Loaded = false
	}
	t.nextSlot = 0
}

func (t *Table) upload(slot uint32, vertices []metadata.MeshVertex, indices []uint32) error {
	vertexBuffer, err := vulkan.NewDeviceLocalBuffer(t.context,
		unsafe.Pointer(&vertices[0]),
		vk.DeviceSize(len(vertices)*metadata.MeshVertexSize),
		vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit))
	if err != nil {
		return err
	}
	indexBuffer, err := vulkan.NewDeviceLocalBuffer(t.context,
		unsafe.Pointer(&indices[0]),
		vk.DeviceSize(len(indices)*4),
		vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit))
	if err != nil {
		vulkan.BufferDestroy(t.context, vertexBuffer)
		return err
	}
	t.slots[slot] = vulkan.MeshSlotGPU{
		VertexBuffer: vertexBuffer,
		IndexBuffer:  indexBuffer,
		IndexCount:   uint32(len(indices)),
		VertexCount:  uint32(len(vertices)),
		Loaded:       true,
	}
	return nil
}

// decodeGLTF reads the first primitive of the first mesh. POSITION is
// required; NORMAL defaults to +Y and COLOR_0 to white when absent.
func decodeGLTF(path string) ([]metadata.MeshVertex, []uint32, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, nil, err
	}
	if len(doc.Meshes) == 0 || len(doc.Meshes[0].Primitives) == 0 {
		return nil, nil, core.ErrMeshLoad
	}
	prim := doc.Meshes[0].Primitives[0]

	posIdx, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, nil, core.ErrMeshLoad
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return nil, nil, err
	}
	if len(positions) == 0 {
		return nil, nil, core.ErrMeshLoad
	}

	var normals [][3]float32
	if idx, ok := prim.Attributes["NORMAL"]; ok {
		normals, _ = modeler.ReadNormal(doc, doc.Accessors[idx], nil)
	}
	var colors [][4]uint8
	if idx, ok := prim.Attributes["COLOR_0"]; ok {
		colors, _ = modeler.ReadColor(doc, doc.Accessors[idx], nil)
	}

	vertices := make([]metadata.MeshVertex, len(positions))
	for i, p := range positions {
		v := metadata.MeshVertex{
			Position: p,
			Normal:   [3]float32{0, 1, 0},
			Color:    [4]float32{1, 1, 1, 1},
		}
		if i < len(normals) {
			v.Normal = normals[i]
		}
		if i < len(colors) {
			v.Color = [4]float32{
				float32(colors[i][0]) / 255,
				float32(colors[i][1]) / 255,
				float32(colors[i][2]) / 255,
				float32(colors[i][3]) / 255,
			}
		}
		vertices[i] = v
	}

	var indices []uint32
	if prim.Indices != nil {
		indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return nil, nil, err
		}
	}
	if len(indices) == 0 {
		indices = make([]uint32, len(vertices))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	return vertices, indices, nil
}
