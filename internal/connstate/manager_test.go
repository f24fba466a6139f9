package connstate

import (
	"testing"
	"time"

	"github.com/pixil98/go-testutil"
)

func TestNewManager_InitialValues(t *testing.T) {
	m := NewManager()

	testutil.AssertEqual(t, "state", m.State(), StateDisconnected)
	testutil.AssertEqual(t, "quality", m.ConnectionQuality(), QualityGood)
	testutil.AssertEqual(t, "attempts", m.ReconnectAttempts(), 0)
	testutil.AssertEqual(t, "connection id", m.ConnectionID(), "")
}

func TestSetState_SameStateIsNoop(t *testing.T) {
	m := NewManager()
	m.SetState(StateConnecting)
	m.SetState(StateConnected)
	m.SetState(StateReconnecting)

	events := 0
	m.Subscribe(func(ChangeEvent) { events++ })

	m.SetState(StateReconnecting)

	testutil.AssertEqual(t, "events", events, 0)
	testutil.AssertEqual(t, "attempts", m.ReconnectAttempts(), 1)
}

func TestSetState_ConnectedResetsFailureBookkeeping(t *testing.T) {
	m := NewManager()
	m.SetState(StateConnecting)
	m.SetStateWithError(StateFailed, ErrorTimeout, "no response")
	m.SetState(StateReconnecting)
	m.SetState(StateConnected)

	testutil.AssertEqual(t, "attempts", m.ReconnectAttempts(), 0)
	kind, msg := m.LastError()
	testutil.AssertEqual(t, "error kind", kind, ErrorKind(""))
	testutil.AssertEqual(t, "error message", msg, "")
	if m.LastConnectedAt().IsZero() {
		t.Error("expected last connected timestamp to be recorded")
	}
}

func TestSetState_ReconnectingIncrementsCounter(t *testing.T) {
	m := NewManager()
	m.SetState(StateConnecting)

	for i := 0; i < 10; i++ {
		m.SetState(StateReconnecting)
		m.SetState(StateDisconnected)
	}

	testutil.AssertEqual(t, "attempts", m.ReconnectAttempts(), 10)

	m.ResetReconnectAttempts()
	testutil.AssertEqual(t, "attempts after reset", m.ReconnectAttempts(), 0)
	testutil.AssertEqual(t, "state untouched by reset", m.State(), StateDisconnected)
}

func TestSetStateWithError_FailedEvent(t *testing.T) {
	m := NewManager()
	m.SetState(StateConnecting)

	var got ChangeEvent
	m.Subscribe(func(ev ChangeEvent) { got = ev })

	m.SetStateWithError(StateFailed, ErrorTimeout, "no response")

	testutil.AssertEqual(t, "previous", got.Previous, StateConnecting)
	testutil.AssertEqual(t, "current", got.Current, StateFailed)
	testutil.AssertEqual(t, "error", got.Error, ErrorTimeout)
	testutil.AssertEqual(t, "error message", got.ErrorMessage, "no response")
	if got.Timestamp.IsZero() {
		t.Error("expected event timestamp")
	}

	testutil.AssertEqual(t, "has failed", m.HasFailed(), true)
	kind, msg := m.LastError()
	testutil.AssertEqual(t, "stored kind", kind, ErrorTimeout)
	testutil.AssertEqual(t, "stored message", msg, "no response")
}

func TestSetState_EventCarriesConnectionID(t *testing.T) {
	m := NewManager()
	m.SetConnectionID("p1")

	var got ChangeEvent
	m.Subscribe(func(ev ChangeEvent) { got = ev })
	m.SetState(StateConnecting)

	testutil.AssertEqual(t, "connection id", got.ConnectionID, "p1")
}

func TestSubscribe_DeliveryOrderAndUnsubscribe(t *testing.T) {
	m := NewManager()

	var order []string
	unsubA := m.Subscribe(func(ChangeEvent) { order = append(order, "a") })
	m.Subscribe(func(ChangeEvent) { order = append(order, "b") })

	m.SetState(StateConnecting)
	testutil.AssertEqual(t, "first delivery", len(order), 2)
	testutil.AssertEqual(t, "order 0", order[0], "a")
	testutil.AssertEqual(t, "order 1", order[1], "b")

	unsubA()
	unsubA() // second call is a no-op

	order = nil
	m.SetState(StateConnected)
	testutil.AssertEqual(t, "after unsubscribe", len(order), 1)
	testutil.AssertEqual(t, "remaining subscriber", order[0], "b")
}

func TestSubscribe_PanickingSubscriberIsolated(t *testing.T) {
	m := NewManager()

	delivered := false
	m.Subscribe(func(ChangeEvent) { panic("boom") })
	m.Subscribe(func(ChangeEvent) { delivered = true })

	m.SetState(StateConnecting)

	testutil.AssertEqual(t, "later subscriber still notified", delivered, true)
}

func TestPredicates(t *testing.T) {
	m := NewManager()

	m.SetState(StateConnecting)
	testutil.AssertEqual(t, "connecting", m.IsConnecting(), true)
	testutil.AssertEqual(t, "connected", m.IsConnected(), false)

	m.SetState(StateConnected)
	testutil.AssertEqual(t, "connected", m.IsConnected(), true)
	testutil.AssertEqual(t, "connecting", m.IsConnecting(), false)

	m.SetState(StateReconnecting)
	testutil.AssertEqual(t, "reconnecting counts as connecting", m.IsConnecting(), true)

	m.SetState(StateOffline)
	testutil.AssertEqual(t, "offline", m.IsOffline(), true)

	m.SetStateWithError(StateFailed, ErrorConnectionLost, "gone")
	testutil.AssertEqual(t, "failed", m.HasFailed(), true)
}

func TestRetryFromTerminalStates(t *testing.T) {
	m := NewManager()
	m.SetStateWithError(StateFailed, ErrorRefused, "refused")
	m.SetState(StateConnecting)
	testutil.AssertEqual(t, "retry from failed", m.State(), StateConnecting)

	m.SetState(StateOffline)
	m.SetState(StateReconnecting)
	testutil.AssertEqual(t, "retry from offline", m.State(), StateReconnecting)
}

func TestReset_RestoresInitialValuesWithoutEvent(t *testing.T) {
	m := NewManager()
	m.SetConnectionID("p1")
	m.SetLatency(250 * time.Millisecond)
	m.SetConnectionQuality(QualityBad)
	m.SetState(StateConnecting)
	m.SetState(StateReconnecting)
	m.SetStateWithError(StateFailed, ErrorTimeout, "no response")

	events := 0
	m.Subscribe(func(ChangeEvent) { events++ })

	m.Reset()

	testutil.AssertEqual(t, "events", events, 0)
	testutil.AssertEqual(t, "state", m.State(), StateDisconnected)
	testutil.AssertEqual(t, "quality", m.ConnectionQuality(), QualityGood)
	testutil.AssertEqual(t, "connection id", m.ConnectionID(), "")
	testutil.AssertEqual(t, "latency", m.Latency(), time.Duration(0))
	testutil.AssertEqual(t, "attempts", m.ReconnectAttempts(), 0)
	kind, msg := m.LastError()
	testutil.AssertEqual(t, "error kind", kind, ErrorKind(""))
	testutil.AssertEqual(t, "error message", msg, "")
}

func TestStateAndQualityStrings(t *testing.T) {
	testutil.AssertEqual(t, "disconnected", StateDisconnected.String(), "DISCONNECTED")
	testutil.AssertEqual(t, "reconnecting", StateReconnecting.String(), "RECONNECTING")
	testutil.AssertEqual(t, "offline", StateOffline.String(), "OFFLINE")
	testutil.AssertEqual(t, "good", QualityGood.String(), "GOOD")
	testutil.AssertEqual(t, "bad", QualityBad.String(), "BAD")
}
