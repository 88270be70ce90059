package core

import "sync"

// EventContext carries a small payload alongside a fired event code.
type EventContext struct {
	Data struct {
		U64 [2]uint64
		F64 [2]float64
		U32 [4]uint32
		U16 [8]uint16
	}
}

// System internal event codes. Application should use codes beyond 255.
type SystemEventCode int

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT SystemEventCode = 0x01

	// Keyboard key pressed. u16 key_code = data.U16[0]
	EVENT_CODE_KEY_PRESSED SystemEventCode = 0x02

	// Keyboard key released. u16 key_code = data.U16[0]
	EVENT_CODE_KEY_RELEASED SystemEventCode = 0x03

	// Resized/resolution changed from the OS.
	// u32 width = data.U32[0]; u32 height = data.U32[1]
	EVENT_CODE_RESIZED SystemEventCode = 0x08

	MAX_EVENT_CODE SystemEventCode = 0xFF
)

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

type eventSystemState struct {
	registered [MAX_EVENT_CODE + 1][]*registeredEvent
}

var onceEvent sync.Once
var eventState *eventSystemState

// Should return true if handled.
type FnOnEvent func(code SystemEventCode, sender interface{}, listener interface{}, data EventContext) bool

func EventInitialize() {
	onceEvent.Do(func() {
		eventState = &eventSystemState{}
	})
}

func EventShutdown() {
	if eventState == nil {
		return
	}
	for i := range eventState.registered {
		eventState.registered[i] = nil
	}
}

// EventRegister subscribes onEvent to code. Duplicate listener
// registrations for the same code are rejected.
func EventRegister(code SystemEventCode, listener interface{}, onEvent FnOnEvent) bool {
	if eventState == nil || code < 0 || code > MAX_EVENT_CODE {
		return false
	}
	for _, e := range eventState.registered[code] {
		if e.listener == listener {
			LogWarn("event: duplicate registration for code 0x%02x", int(code))
			return false
		}
	}
	eventState.registered[code] = append(eventState.registered[code], &registeredEvent{
		listener: listener,
		callback: onEvent,
	})
	return true
}

func EventUnregister(code SystemEventCode, listener interface{}) bool {
	if eventState == nil || code < 0 || code > MAX_EVENT_CODE {
		return false
	}
	events := eventState.registered[code]
	for i, e := range events {
		if e.listener == listener {
			eventState.registered[code] = append(events[:i], events[i+1:]...)
			return true
		}
	}
	return false
}

// EventFire delivers the event to listeners of code in registration
// order. A handler returning true stops propagation.
func EventFire(code SystemEventCode, sender interface{}, data EventContext) bool {
	if eventState == nil || code < 0 || code > MAX_EVENT_CODE {
		return false
	}
	for _, e := range eventState.registered[code] {
		if e.callback != nil && e.callback(code, sender, e.listener, data) {
			return true
		}
	}
	return false
}
