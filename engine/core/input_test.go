package core

import (
	"testing"
)

func TestInputProcessKeyFiresEvents(t *testing.T) {
	EventInitialize()
	InputInitialize()
	defer InputShutdown()

	pressed := &eventProbe{}
	released := &eventProbe{}
	EventRegister(EVENT_CODE_KEY_PRESSED, pressed, pressed.onEvent)
	EventRegister(EVENT_CODE_KEY_RELEASED, released, released.onEvent)
	defer EventUnregister(EVENT_CODE_KEY_PRESSED, pressed)
	defer EventUnregister(EVENT_CODE_KEY_RELEASED, released)

	InputProcessKey(KEY_SPACE, true)
	if pressed.calls != 1 {
		t.Fatalf("press fired %d events, want 1", pressed.calls)
	}
	if pressed.lastKey != uint16(KEY_SPACE) {
		t.Errorf("press carried key %d, want %d", pressed.lastKey, KEY_SPACE)
	}
	if !InputIsKeyDown(KEY_SPACE) {
		t.Error("InputIsKeyDown false after press")
	}

	// Repeats of an unchanged state must not refire.
	InputProcessKey(KEY_SPACE, true)
	if pressed.calls != 1 {
		t.Errorf("repeated press fired %d events, want 1", pressed.calls)
	}

	InputProcessKey(KEY_SPACE, false)
	if released.calls != 1 {
		t.Fatalf("release fired %d events, want 1", released.calls)
	}
	if InputIsKeyDown(KEY_SPACE) {
		t.Error("InputIsKeyDown true after release")
	}
}

func TestInputOutOfRangeKey(t *testing.T) {
	EventInitialize()
	InputInitialize()
	defer InputShutdown()

	InputProcessKey(KEYS_MAX_KEYS, true)
	if InputIsKeyDown(KEYS_MAX_KEYS) {
		t.Error("out-of-range key reported down")
	}
}

func TestInputQueriesWithoutInit(t *testing.T) {
	InputShutdown()
	InputProcessKey(KEY_A, true)
	if InputIsKeyDown(KEY_A) {
		t.Error("InputIsKeyDown true with no input system")
	}
}
