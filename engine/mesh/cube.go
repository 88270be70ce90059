package mesh

import "github.com/spaghettifunk/reverie/engine/renderer/metadata"

// cubeGeometry builds the built-in unit cube centered on the origin,
// one face color per axis pair, counter-clockwise winding.
func cubeGeometry() ([]metadata.MeshVertex, []uint32) {
	type face struct {
		normal  [3]float32
		color   [4]float32
		corners [4][3]float32
	}
	h := float32(0.5)
	faces := []face{
		{ // +Z
			normal: [3]float32{0, 0, 1},
			color:  [4]float32{0.8, 0.2, 0.2, 1},
			corners: [4][3]float32{
				{-h, -h, h}, {h, -h, h}, {h, h, h}, {-h, h, h},
			},
		},
		{ // -Z
			normal: [3]float32{0, 0, -1},
			color:  [4]float32{0.8, 0.2, 0.2, 1},
			corners: [4][3]float32{
				{h, -h, -h}, {-h, -h, -h}, {-h, h, -h}, {h, h, -h},
			},
		},
		{ // +X
			normal: [3]float32{1, 0, 0},
			color:  [4]float32{0.2, 0.8, 0.2, 1},
			corners: [4][3]float32{
				{h, -h, h}, {h, -h, -h}, {h, h, -h}, {h, h, h},
			},
		},
		{ // -X
			normal: [3]float32{-1, 0, 0},
			color:  [4]float32{0.2, 0.8, 0.2, 1},
			corners: [4][3]float32{
				{-h, -h, -h}, {-h, -h, h}, {-h, h, h}, {-h, h, -h},
			},
		},
		{ // +Y
			normal: [3]float32{0, 1, 0},
			color:  [4]float32{0.2, 0.2, 0.8, 1},
			corners: [4][3]float32{
				{-h, h, h}, {h, h, h}, {h, h, -h}, {-h, h, -h},
			},
		},
		{ // -Y
			normal: [3]float32{0, -1, 0},
			color:  [4]float32{0.2, 0.2, 0.8, 1},
			corners: [4][3]float32{
				{-h, -h, -h}, {h, -h, -h}, {h, -h, h}, {-h, -h, h},
			},
		},
	}

	vertices := make([]metadata.MeshVertex, 0, len(faces)*4)
	indices := make([]uint32, 0, len(faces)*6)
	for _, f := range faces {
		base := uint32(len(vertices))
		for _, c := range f.corners {
			vertices = append(vertices, metadata.MeshVertex{
				Position: c,
				Normal:   f.normal,
				Color:    f.color,
			})
		}
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}
	return vertices, indices
}
