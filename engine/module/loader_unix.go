//go:build darwin || linux || freebsd

package module

import "github.com/ebitengine/purego"

func loadLibrary(path string) (uintptr, error) {
	return purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
}

func closeLibrary(handle uintptr) {
	purego.Dlclose(handle)
}

func hasSymbol(handle uintptr, name string) bool {
	sym, err := purego.Dlsym(handle, name)
	return err == nil && sym != 0
}

func registerLibFunc(fptr interface{}, handle uintptr, name string) {
	purego.RegisterLibFunc(fptr, handle, name)
}
