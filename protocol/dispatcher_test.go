package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/restaurant-reservation/models"
	"github.com/yeremiapane/restaurant-reservation/services"
)

type echoPayload struct {
	Name  string `json:"name" validate:"required"`
	Count int    `json:"count" validate:"gte=0"`
}

func testDispatcher() *Dispatcher {
	d := NewDispatcher()
	d.Register("ECHO", AccessAny, KindUpdateFailed, func(_ context.Context, _ *Session, payload json.RawMessage) (Response, error) {
		var p echoPayload
		if err := d.decode(payload, &p); err != nil {
			return Response{}, err
		}
		return Response{Kind: "ECHOED", Payload: p}, nil
	})
	d.Register("FAIL_WITH", AccessAny, KindUpdateFailed, func(_ context.Context, _ *Session, payload json.RawMessage) (Response, error) {
		var p struct {
			Err string `json:"err"`
		}
		_ = json.Unmarshal(payload, &p)
		switch p.Err {
		case "conflict":
			return Response{}, fmt.Errorf("allocate: %w", services.ErrConflict)
		case "store":
			return Response{}, fmt.Errorf("save: %w", services.ErrStoreUnavailable)
		case "closed":
			return Response{}, services.ErrAlreadyClosed
		default:
			return Response{}, errors.New("boom")
		}
	})
	d.Register("PANIC", AccessAny, "", func(context.Context, *Session, json.RawMessage) (Response, error) {
		panic("handler bug")
	})
	d.Register("STAFF_ONLY", AccessStaff, "", func(context.Context, *Session, json.RawMessage) (Response, error) {
		return Response{Kind: "OK"}, nil
	})
	d.Register("MANAGER_ONLY", AccessManager, "", func(context.Context, *Session, json.RawMessage) (Response, error) {
		return Response{Kind: "OK"}, nil
	})
	return d
}

func reasonOf(t *testing.T, resp Response) ReasonPayload {
	t.Helper()
	p, ok := resp.Payload.(ReasonPayload)
	require.True(t, ok, "payload is %T", resp.Payload)
	return p
}

func TestDispatch_RoutesAndEchoesRequestID(t *testing.T) {
	d := testDispatcher()
	resp := d.Dispatch(context.Background(), NewSession(0, 0), []byte(`{"id":"r-1","kind":"ECHO","payload":{"name":"ada","count":2}}`))

	assert.Equal(t, Kind("ECHOED"), resp.Kind)
	assert.Equal(t, "r-1", resp.ID)
	assert.Equal(t, echoPayload{Name: "ada", Count: 2}, resp.Payload)
}

func TestDispatch_MalformedInput(t *testing.T) {
	d := testDispatcher()
	s := NewSession(0, 0)

	tests := []struct {
		name   string
		raw    string
		reason string
	}{
		{"not json", `hello`, "malformed request envelope"},
		{"missing kind", `{"payload":{}}`, "malformed request envelope"},
		{"unknown kind", `{"kind":"DANCE"}`, `unknown request kind "DANCE"`},
		{"wrong field type", `{"kind":"ECHO","payload":{"name":"x","count":"two"}}`, `field "count"`},
		{"missing required field", `{"kind":"ECHO","payload":{}}`, "name"},
		{"failed rule", `{"kind":"ECHO","payload":{"name":"x","count":-1}}`, "gte"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := d.Dispatch(context.Background(), s, []byte(tt.raw))
			assert.Equal(t, KindError, resp.Kind)
			assert.Contains(t, reasonOf(t, resp).Reason, tt.reason)
		})
	}
}

func TestDispatch_ErrorMapping(t *testing.T) {
	d := testDispatcher()
	s := NewSession(0, 0)
	call := func(e string) Response {
		return d.Dispatch(context.Background(), s, []byte(fmt.Sprintf(`{"kind":"FAIL_WITH","payload":{"err":%q}}`, e)))
	}

	conflict := call("conflict")
	assert.Equal(t, KindUpdateFailed, conflict.Kind)
	assert.True(t, reasonOf(t, conflict).Retry)

	closed := call("closed")
	assert.Equal(t, KindUpdateFailed, closed.Kind)
	assert.False(t, reasonOf(t, closed).Retry)

	for _, e := range []string{"store", "unknown"} {
		resp := call(e)
		assert.Equal(t, KindFail, resp.Kind, e)
		assert.Contains(t, reasonOf(t, resp).Reason, "not available right now")
	}
}

func TestDispatch_PanicBecomesFail(t *testing.T) {
	d := testDispatcher()
	s := NewSession(0, 0)

	resp := d.Dispatch(context.Background(), s, []byte(`{"id":"p","kind":"PANIC"}`))
	assert.Equal(t, KindFail, resp.Kind)
	assert.Equal(t, "p", resp.ID)

	// The dispatcher keeps serving after a panic.
	resp = d.Dispatch(context.Background(), s, []byte(`{"kind":"ECHO","payload":{"name":"still here"}}`))
	assert.Equal(t, Kind("ECHOED"), resp.Kind)
}

func TestDispatch_AccessControl(t *testing.T) {
	d := testDispatcher()
	s := NewSession(0, 0)

	assert.Equal(t, KindError, d.Dispatch(context.Background(), s, []byte(`{"kind":"STAFF_ONLY"}`)).Kind)
	assert.Equal(t, KindError, d.Dispatch(context.Background(), s, []byte(`{"kind":"MANAGER_ONLY"}`)).Kind)

	s.Role = models.RoleStaffRepresentative
	assert.Equal(t, Kind("OK"), d.Dispatch(context.Background(), s, []byte(`{"kind":"STAFF_ONLY"}`)).Kind)
	assert.Equal(t, KindError, d.Dispatch(context.Background(), s, []byte(`{"kind":"MANAGER_ONLY"}`)).Kind)

	s.Role = models.RoleStaffManager
	assert.Equal(t, Kind("OK"), d.Dispatch(context.Background(), s, []byte(`{"kind":"MANAGER_ONLY"}`)).Kind)
}

func TestDispatch_RateLimit(t *testing.T) {
	d := testDispatcher()
	s := NewSession(0.001, 2)
	raw := []byte(`{"kind":"ECHO","payload":{"name":"x"}}`)

	assert.Equal(t, Kind("ECHOED"), d.Dispatch(context.Background(), s, raw).Kind)
	assert.Equal(t, Kind("ECHOED"), d.Dispatch(context.Background(), s, raw).Kind)

	limited := d.Dispatch(context.Background(), s, raw)
	assert.Equal(t, KindError, limited.Kind)
	assert.Contains(t, reasonOf(t, limited).Reason, "rate limit")
}

func TestRegister_DuplicateKindPanics(t *testing.T) {
	d := NewDispatcher()
	h := func(context.Context, *Session, json.RawMessage) (Response, error) { return Response{}, nil }
	d.Register("X", AccessAny, "", h)
	assert.Panics(t, func() { d.Register("X", AccessAny, "", h) })
	assert.ElementsMatch(t, []Kind{"X"}, d.Kinds())
}
