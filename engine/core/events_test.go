package core

import (
	"testing"
)

type eventProbe struct {
	calls   int
	lastKey uint16
	handled bool
}

func (p *eventProbe) onEvent(code SystemEventCode, sender interface{}, listener interface{}, data EventContext) bool {
	p.calls++
	p.lastKey = data.Data.U16[0]
	return p.handled
}

func TestEventRegisterAndFire(t *testing.T) {
	EventInitialize()
	probe := &eventProbe{}
	if !EventRegister(EVENT_CODE_KEY_PRESSED, probe, probe.onEvent) {
		t.Fatal("EventRegister failed")
	}
	defer EventUnregister(EVENT_CODE_KEY_PRESSED, probe)

	ctx := EventContext{}
	ctx.Data.U16[0] = 42
	EventFire(EVENT_CODE_KEY_PRESSED, nil, ctx)
	if probe.calls != 1 {
		t.Fatalf("listener called %d times, want 1", probe.calls)
	}
	if probe.lastKey != 42 {
		t.Errorf("listener saw key %d, want 42", probe.lastKey)
	}
}

func TestEventDuplicateRegistration(t *testing.T) {
	EventInitialize()
	probe := &eventProbe{}
	if !EventRegister(EVENT_CODE_RESIZED, probe, probe.onEvent) {
		t.Fatal("first registration failed")
	}
	defer EventUnregister(EVENT_CODE_RESIZED, probe)
	if EventRegister(EVENT_CODE_RESIZED, probe, probe.onEvent) {
		t.Error("duplicate registration accepted")
	}
}

func TestEventUnregisterStopsDelivery(t *testing.T) {
	EventInitialize()
	probe := &eventProbe{}
	EventRegister(EVENT_CODE_KEY_RELEASED, probe, probe.onEvent)
	if !EventUnregister(EVENT_CODE_KEY_RELEASED, probe) {
		t.Fatal("EventUnregister failed")
	}
	EventFire(EVENT_CODE_KEY_RELEASED, nil, EventContext{})
	if probe.calls != 0 {
		t.Errorf("unregistered listener called %d times", probe.calls)
	}
}

func TestEventHandledStopsPropagation(t *testing.T) {
	EventInitialize()
	first := &eventProbe{handled: true}
	second := &eventProbe{}
	EventRegister(EVENT_CODE_APPLICATION_QUIT, first, first.onEvent)
	EventRegister(EVENT_CODE_APPLICATION_QUIT, second, second.onEvent)
	defer EventUnregister(EVENT_CODE_APPLICATION_QUIT, first)
	defer EventUnregister(EVENT_CODE_APPLICATION_QUIT, second)

	if !EventFire(EVENT_CODE_APPLICATION_QUIT, nil, EventContext{}) {
		t.Error("EventFire should report handled")
	}
	if second.calls != 0 {
		t.Error("handled event still propagated to the second listener")
	}
}

func TestEventInvalidCode(t *testing.T) {
	EventInitialize()
	probe := &eventProbe{}
	if EventRegister(MAX_EVENT_CODE+1, probe, probe.onEvent) {
		t.Error("registration beyond MAX_EVENT_CODE accepted")
	}
	if EventFire(-1, nil, EventContext{}) {
		t.Error("fire with negative code reported handled")
	}
}
