// The example game module. Built with -buildmode=c-shared into the
// library the engine loads at startup and hot-reloads on rebuild.
package main

/*
#include <stdint.h>
#include <stdlib.h>

typedef struct {
	uint64_t version;
	void     (*set_clear_color)(float r, float g, float b, float a);
	void     (*draw_quad)(float x, float y, float w, float h, float r, float g, float b, float a);
	void     (*set_camera)(float ex, float ey, float ez, float tx, float ty, float tz);
	uint32_t (*load_mesh)(const char *path);
	void     (*draw_mesh)(uint32_t handle, const float *model, float r, float g, float b, float a);
	void     (*draw_cube)(const float *model, float r, float g, float b, float a);
	void     (*log_line)(const char *msg);
	float    (*get_dt)(void);
	int      (*is_key_down)(uint32_t key);
} engine_api;

static void api_set_clear_color(engine_api *api, float r, float g, float b, float a) {
	api->set_clear_color(r, g, b, a);
}
static void api_draw_quad(engine_api *api, float x, float y, float w, float h, float r, float g, float b, float a) {
	api->draw_quad(x, y, w, h, r, g, b, a);
}
static void api_set_camera(engine_api *api, float ex, float ey, float ez, float tx, float ty, float tz) {
	api->set_camera(ex, ey, ez, tx, ty, tz);
}
static void api_draw_cube(engine_api *api, const float *model, float r, float g, float b, float a) {
	api->draw_cube(model, r, g, b, a);
}
static void api_log(engine_api *api, const char *msg) {
	api->log_line(msg);
}
static float api_get_dt(engine_api *api) {
	return api->get_dt();
}
static int api_is_key_down(engine_api *api, uint32_t key) {
	return api->is_key_down(key);
}
*/
import "C"

import (
	"math"
	"unsafe"
)

const apiVersion = 1

const keySpace = 32

type gameState struct {
	angle   float32
	elapsed float32
	paused  bool
}

//export get_api_version
func get_api_version() C.uint32_t {
	return apiVersion
}

//export get_memory_size
func get_memory_size() C.int64_t {
	return C.int64_t(unsafe.Sizeof(gameState{}))
}

//export load
func load(api *C.engine_api, mem unsafe.Pointer, size C.uint64_t) {
	logLine(api, "testbed loaded")
	C.api_set_camera(api, 0, 3, 6, 0, 0, 0)
}

//export update
func update(api *C.engine_api, mem unsafe.Pointer, size C.uint64_t) {
	state := (*gameState)(mem)
	dt := float32(C.api_get_dt(api))

	if C.api_is_key_down(api, keySpace) == 0 {
		state.angle += dt
	}
	state.elapsed += dt

	pulse := 0.5 + 0.5*float32(math.Sin(float64(state.elapsed)))
	C.api_set_clear_color(api, 0.05, 0.05, 0.10+0.05*C.float(pulse), 1)

	model := rotationYX(state.angle, 0.4*state.angle)
	C.api_draw_cube(api, (*C.float)(unsafe.Pointer(&model[0])), 1, 1, 1, 1)

	// Two overlapping quads in the corner, drawn back to front.
	C.api_draw_quad(api, -0.95, -0.95, 0.4, 0.4, 0.9, 0.3, 0.3, 1)
	C.api_draw_quad(api, -0.85, -0.85, 0.4, 0.4, 0.3, 0.3, 0.9, C.float(0.5+0.5*pulse))
}

//export unload
func unload(api *C.engine_api, mem unsafe.Pointer, size C.uint64_t) {
	logLine(api, "testbed unloading")
}

//export reload
func reload(api *C.engine_api, mem unsafe.Pointer, size C.uint64_t) {
	logLine(api, "testbed reloaded, state preserved")
}

func logLine(api *C.engine_api, msg string) {
	cmsg := C.CString(msg)
	defer C.free(unsafe.Pointer(cmsg))
	C.api_log(api, cmsg)
}

// rotationYX builds a column-major rotation around Y then X.
func rotationYX(yAngle, xAngle float32) [16]float32 {
	sy := float32(math.Sin(float64(yAngle)))
	cy := float32(math.Cos(float64(yAngle)))
	sx := float32(math.Sin(float64(xAngle)))
	cx := float32(math.Cos(float64(xAngle)))

	// X rotation applied after Y rotation.
	return [16]float32{
		cy, sx * sy, -cx * sy, 0,
		0, cx, sx, 0,
		sy, -sx * cy, cx * cy, 0,
		0, 0, 0, 1,
	}
}

func main() {}
