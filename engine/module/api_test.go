package module

import (
	"runtime"
	"testing"
	"unsafe"
)

// The table layout is the contract with the C side of the module. Any
// padding or reordering breaks every compiled game library.
func TestAPITableLayout(t *testing.T) {
	var tbl apiTable
	ptrSize := unsafe.Sizeof(uintptr(0))

	offsets := []struct {
		name   string
		offset uintptr
	}{
		{"Version", unsafe.Offsetof(tbl.Version)},
		{"SetClearColor", unsafe.Offsetof(tbl.SetClearColor)},
		{"DrawQuad", unsafe.Offsetof(tbl.DrawQuad)},
		{"SetCamera", unsafe.Offsetof(tbl.SetCamera)},
		{"LoadMesh", unsafe.Offsetof(tbl.LoadMesh)},
		{"DrawMesh", unsafe.Offsetof(tbl.DrawMesh)},
		{"DrawCube", unsafe.Offsetof(tbl.DrawCube)},
		{"Log", unsafe.Offsetof(tbl.Log)},
		{"GetDt", unsafe.Offsetof(tbl.GetDt)},
		{"IsKeyDown", unsafe.Offsetof(tbl.IsKeyDown)},
	}
	// Version is uint64, the rest pointer-sized, densely packed.
	want := uintptr(0)
	for i, f := range offsets {
		if f.offset != want {
			t.Errorf("field %s at offset %d, want %d", f.name, f.offset, want)
		}
		if i == 0 {
			want += 8
		} else {
			want += ptrSize
		}
	}
	if unsafe.Sizeof(tbl) != want {
		t.Errorf("table is %d bytes, want %d with no padding", unsafe.Sizeof(tbl), want)
	}
}

func TestSetDeltaClampsNegative(t *testing.T) {
	a := &API{}
	a.SetDelta(-0.5)
	if a.dt != 0 {
		t.Errorf("negative delta stored as %v, want 0", a.dt)
	}
	a.SetDelta(0.016)
	if a.dt != 0.016 {
		t.Errorf("delta stored as %v, want 0.016", a.dt)
	}
}

func TestGoString(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
		want string
	}{
		{"simple", []byte("hello\x00"), "hello"},
		{"empty", []byte{0}, ""},
		{"stops at nul", []byte("cut\x00tail\x00"), "cut"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := goString(uintptr(unsafe.Pointer(&tt.raw[0])))
			runtime.KeepAlive(tt.raw)
			if got != tt.want {
				t.Errorf("goString = %q, want %q", got, tt.want)
			}
		})
	}
	if goString(0) != "" {
		t.Error("nil pointer should read as empty string")
	}
}

func TestLibraryName(t *testing.T) {
	name := LibraryName()
	switch runtime.GOOS {
	case "windows":
		if name != "game.dll" {
			t.Errorf("LibraryName = %q on windows", name)
		}
	case "darwin":
		if name != "libgame.dylib" {
			t.Errorf("LibraryName = %q on darwin", name)
		}
	default:
		if name != "libgame.so" {
			t.Errorf("LibraryName = %q on %s", name, runtime.GOOS)
		}
	}
}
