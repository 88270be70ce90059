//go:build windows

package module

import (
	"syscall"

	"github.com/ebitengine/purego"
)

func loadLibrary(path string) (uintptr, error) {
	handle, err := syscall.LoadLibrary(path)
	return uintptr(handle), err
}

func closeLibrary(handle uintptr) {
	syscall.FreeLibrary(syscall.Handle(handle))
}

func hasSymbol(handle uintptr, name string) bool {
	proc, err := syscall.GetProcAddress(syscall.Handle(handle), name)
	return err == nil && proc != 0
}

func registerLibFunc(fptr interface{}, handle uintptr, name string) {
	purego.RegisterLibFunc(fptr, handle, name)
}
