package module

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/spaghettifunk/reverie/engine/core"
)

type lifecycleFn func(api uintptr, mem uintptr, size uint64)

// Host loads the game dynamic library, owns its state allocation and
// drives the load/update/unload/reload lifecycle. The library is never
// opened from its source path: the bytes are copied to a sidecar file
// first so a build tool can overwrite the source while the engine runs.
type Host struct {
	sourcePath  string
	sidecarPath string
	api         *API
	appArena    *core.Arena

	handle uintptr
	loaded bool

	getAPIVersion func() uint32
	getMemorySize func() int64
	loadFn        lifecycleFn
	updateFn      lifecycleFn
	unloadFn      lifecycleFn
	reloadFn      lifecycleFn

	state     []byte
	stateSize int64

	lastWriteTime time.Time
	watcher       *fsnotify.Watcher
	dirty         atomic.Bool
}

// LibraryName returns the platform's dynamic library file name.
func LibraryName() string {
	switch runtime.GOOS {
	case "windows":
		return "game.dll"
	case "darwin":
		return "libgame.dylib"
	default:
		return "libgame.so"
	}
}

// NewHost prepares a host for the library in dir. Nothing is loaded
// until Load.
func NewHost(dir string, api *API, appArena *core.Arena) *Host {
	return &Host{
		sourcePath: filepath.Join(dir, LibraryName()),
		api:        api,
		appArena:   appArena,
	}
}

// Load performs the initial load: copy to sidecar, open, resolve,
// version-check, allocate module state and call load. load_mesh is
// honored only inside this call.
func (h *Host) Load(frameArena *core.Arena) error {
	if err := h.open(frameArena); err != nil {
		return err
	}

	size := h.getMemorySize()
	if size < 0 {
		size = 0
	}
	h.stateSize = size
	if size > 0 {
		h.state = h.appArena.Alloc(int(size))
	}

	h.api.allowMeshLoad = true
	h.loadFn(h.api.TablePtr(), h.statePtr(), uint64(h.stateSize))
	h.api.allowMeshLoad = false

	if err := h.startWatcher(); err != nil {
		core.LogWarn("module watcher unavailable, falling back to mtime polling: %s", err)
	}
	core.LogInfo("Game module %s loaded (state %d bytes).", h.sourcePath, h.stateSize)
	return nil
}

// Update runs the module's per-frame entry point. A host whose reload
// failed is silently skipped until a later reload succeeds.
func (h *Host) Update(dt float64) {
	if !h.loaded {
		return
	}
	h.api.SetDelta(dt)
	h.updateFn(h.api.TablePtr(), h.statePtr(), uint64(h.stateSize))
}

// CheckReload inspects the source library for changes and, when found,
// swaps the module. waitIdle runs before any old pointer is
// invalidated; the caller passes the renderer's device-idle wait.
func (h *Host) CheckReload(frameArena *core.Arena, waitIdle func()) {
	changed := h.dirty.Swap(false)
	if !changed {
		info, err := os.Stat(h.sourcePath)
		if err != nil || !info.ModTime().After(h.lastWriteTime) {
			return
		}
	}

	core.LogInfo("Game module changed on disk, reloading.")
	waitIdle()

	if h.loaded {
		h.unloadFn(h.api.TablePtr(), h.statePtr(), uint64(h.stateSize))
	}
	h.closeLibrary()

	oldSize := h.stateSize
	if err := h.open(frameArena); err != nil {
		core.LogError("module reload failed, continuing without gameplay updates: %s", err)
		return
	}

	if newSize := h.getMemorySize(); newSize != oldSize {
		core.LogWarn("module state size changed from %d to %d bytes, keeping the old buffer", oldSize, newSize)
	}

	h.reloadFn(h.api.TablePtr(), h.statePtr(), uint64(h.stateSize))
	core.LogInfo("Game module reloaded.")
}

// Shutdown unloads the module and removes the sidecar file.
func (h *Host) Shutdown() {
	if h.watcher != nil {
		h.watcher.Close()
		h.watcher = nil
	}
	if h.loaded {
		h.unloadFn(h.api.TablePtr(), h.statePtr(), uint64(h.stateSize))
	}
	h.closeLibrary()
}

func (h *Host) open(frameArena *core.Arena) error {
	info, err := os.Stat(h.sourcePath)
	if err != nil {
		core.LogError("game module %s not found: %s", h.sourcePath, err)
		return core.ErrModuleLoad
	}

	source, err := os.ReadFile(h.sourcePath)
	if err != nil {
		core.LogError("unable to read game module %s: %s", h.sourcePath, err)
		return core.ErrModuleLoad
	}
	staging := frameArena.Alloc(len(source))
	copy(staging, source)

	sidecar := h.sidecarName()
	if err := os.WriteFile(sidecar, staging, 0o755); err != nil {
		core.LogError("unable to write module sidecar %s: %s", sidecar, err)
		return core.ErrModuleLoad
	}

	handle, err := loadLibrary(sidecar)
	if err != nil {
		core.LogError("unable to open game module: %s", err)
		os.Remove(sidecar)
		return core.ErrModuleLoad
	}

	if err := h.resolveSymbols(handle); err != nil {
		closeLibrary(handle)
		os.Remove(sidecar)
		return err
	}

	if v := h.getAPIVersion(); v != APIVersion {
		core.LogError("game module reports api version %d, engine expects %d", v, APIVersion)
		closeLibrary(handle)
		os.Remove(sidecar)
		h.getAPIVersion = nil
		return core.ErrModuleLoad
	}

	h.handle = handle
	h.sidecarPath = sidecar
	h.lastWriteTime = info.ModTime()
	h.loaded = true
	return nil
}

func (h *Host) resolveSymbols(handle uintptr) error {
	symbols := []string{
		"get_api_version", "get_memory_size",
		"load", "update", "unload", "reload",
	}
	for _, name := range symbols {
		if !hasSymbol(handle, name) {
			err := fmt.Errorf("game module is missing symbol %s: %w", name, core.ErrModuleLoad)
			core.LogError(err.Error())
			return core.ErrModuleLoad
		}
	}
	registerLibFunc(&h.getAPIVersion, handle, "get_api_version")
	registerLibFunc(&h.getMemorySize, handle, "get_memory_size")
	registerLibFunc(&h.loadFn, handle, "load")
	registerLibFunc(&h.updateFn, handle, "update")
	registerLibFunc(&h.unloadFn, handle, "unload")
	registerLibFunc(&h.reloadFn, handle, "reload")
	return nil
}

func (h *Host) closeLibrary() {
	if h.handle != 0 {
		closeLibrary(h.handle)
		h.handle = 0
	}
	if h.sidecarPath != "" {
		os.Remove(h.sidecarPath)
		h.sidecarPath = ""
	}
	h.loaded = false
}

func (h *Host) sidecarName() string {
	dir := filepath.Dir(h.sourcePath)
	base := filepath.Base(h.sourcePath)
	ext := filepath.Ext(base)
	stem := base[:len(base)-len(ext)]
	return filepath.Join(dir, fmt.Sprintf("%s-loaded-%s%s", stem, uuid.New().String(), ext))
}

func (h *Host) statePtr() uintptr {
	if len(h.state) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&h.state[0]))
}

func (h *Host) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(h.sourcePath)); err != nil {
		watcher.Close()
		return err
	}
	h.watcher = watcher
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name == h.sourcePath && event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					h.dirty.Store(true)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				core.LogWarn("module watcher error: %s", err)
			}
		}
	}()
	return nil
}
