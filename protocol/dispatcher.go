package protocol

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/yeremiapane/restaurant-reservation/metrics"
	"github.com/yeremiapane/restaurant-reservation/services"
	"github.com/yeremiapane/restaurant-reservation/utils"
)

// HandlerFunc serves one request kind. Returned errors are translated into
// a response by the dispatcher.
type HandlerFunc func(ctx context.Context, s *Session, payload json.RawMessage) (Response, error)

type Access int

const (
	AccessAny Access = iota
	AccessStaff
	AccessManager
)

type route struct {
	handler HandlerFunc
	access  Access
	reject  Kind
}

// Dispatcher routes each request to exactly one registered handler and
// always produces exactly one response.
type Dispatcher struct {
	routes   map[Kind]route
	validate *validator.Validate
}

func NewDispatcher() *Dispatcher {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Dispatcher{
		routes:   make(map[Kind]route),
		validate: v,
	}
}

// Register binds kind to h. reject is the response kind used for domain
// failures; an empty reject falls back to FAIL.
func (d *Dispatcher) Register(kind Kind, access Access, reject Kind, h HandlerFunc) {
	if _, exists := d.routes[kind]; exists {
		panic(fmt.Sprintf("protocol: kind %s registered twice", kind))
	}
	d.routes[kind] = route{handler: h, access: access, reject: reject}
}

func (d *Dispatcher) Kinds() []Kind {
	kinds := make([]Kind, 0, len(d.routes))
	for k := range d.routes {
		kinds = append(kinds, k)
	}
	return kinds
}

// Dispatch decodes one raw envelope and serves it.
func (d *Dispatcher) Dispatch(ctx context.Context, s *Session, raw []byte) Response {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil || req.Kind == "" {
		metrics.ProtocolRequests.WithLabelValues("invalid", string(KindError)).Inc()
		return errorResponse("malformed request envelope")
	}

	start := time.Now()
	resp := d.serve(ctx, s, req)
	resp.ID = req.ID

	metrics.ProtocolLatency.WithLabelValues(string(req.Kind)).Observe(time.Since(start).Seconds())
	metrics.ProtocolRequests.WithLabelValues(string(req.Kind), string(resp.Kind)).Inc()
	utils.InfoLogger.WithFields(logrus.Fields{
		"session":  s.ID.String(),
		"kind":     req.Kind,
		"response": resp.Kind,
		"elapsed":  time.Since(start).String(),
	}).Debug("request served")
	return resp
}

func (d *Dispatcher) serve(ctx context.Context, s *Session, req Request) (resp Response) {
	if !s.allow() {
		return errorResponse("rate limit exceeded, slow down")
	}

	rt, ok := d.routes[req.Kind]
	if !ok {
		return errorResponse(fmt.Sprintf("unknown request kind %q", req.Kind))
	}
	switch {
	case rt.access == AccessStaff && !s.Role.IsStaff():
		return errorResponse("staff role required")
	case rt.access == AccessManager && !s.Role.IsManager():
		return errorResponse("manager role required")
	}

	defer func() {
		if r := recover(); r != nil {
			utils.ErrorLogger.WithFields(logrus.Fields{
				"session": s.ID.String(),
				"kind":    req.Kind,
				"panic":   r,
			}).Errorf("handler panic\n%s", debug.Stack())
			resp = failResponse("internal error, please try again later")
		}
	}()

	resp, err := rt.handler(ctx, s, req.Payload)
	if err != nil {
		return d.mapError(s, req.Kind, rt.reject, err)
	}
	return resp
}

func (d *Dispatcher) mapError(s *Session, kind, reject Kind, err error) Response {
	var malformed *malformedError
	if errors.As(err, &malformed) {
		return errorResponse(malformed.Error())
	}

	if errors.Is(err, services.ErrStoreUnavailable) || !isDomainError(err) {
		utils.ErrorLogger.WithError(err).WithFields(logrus.Fields{
			"session": s.ID.String(),
			"kind":    kind,
		}).Error("request failed")
		return failResponse("not available right now, please try again later")
	}

	reason, retry := services.Reason(err)
	if reject == "" {
		reject = KindFail
	}
	return Response{Kind: reject, Payload: ReasonPayload{Reason: reason, Retry: retry}}
}

func isDomainError(err error) bool {
	for _, target := range []error{
		services.ErrValidation,
		services.ErrConflict,
		services.ErrNotFound,
		services.ErrInvalidState,
		services.ErrNotYetActive,
		services.ErrDuplicateActive,
		services.ErrUnauthorized,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

type malformedError struct {
	msg string
}

func (e *malformedError) Error() string { return e.msg }

// decode fills dst from payload and runs its validate tags. An absent
// payload decodes as an empty object.
func (d *Dispatcher) decode(payload json.RawMessage, dst interface{}) error {
	if len(bytes.TrimSpace(payload)) == 0 || bytes.Equal(bytes.TrimSpace(payload), []byte("null")) {
		payload = json.RawMessage("{}")
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return &malformedError{msg: fmt.Sprintf("malformed payload: field %q must be %s", typeErr.Field, typeErr.Type)}
		}
		return &malformedError{msg: "malformed payload"}
	}
	if err := d.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &malformedError{msg: fmt.Sprintf("malformed payload: field %s failed %q", verrs[0].Field(), verrs[0].Tag())}
		}
		return &malformedError{msg: "malformed payload"}
	}
	return nil
}
