package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/yeremiapane/restaurant-reservation/models"
	"github.com/yeremiapane/restaurant-reservation/services"
)

// Services are the components the handlers delegate to.
type Services struct {
	Reservations *services.ReservationService
	Waiting      *services.WaitingListService
	Tables       *services.TableTracker
	Customers    *services.CustomerService
	Hours        *services.HoursService
	Credentials  *services.CredentialStore
}

type handlers struct {
	d   *Dispatcher
	svc Services
}

// NewDefaultDispatcher returns a dispatcher with every request kind registered.
func NewDefaultDispatcher(svc Services) *Dispatcher {
	d := NewDispatcher()
	RegisterHandlers(d, svc)
	return d
}

func RegisterHandlers(d *Dispatcher, svc Services) {
	h := &handlers{d: d, svc: svc}

	d.Register(KindHello, AccessAny, "", h.hello)
	d.Register(KindLogin, AccessAny, KindLoginFailed, h.login)

	d.Register(KindIdentifyCustomer, AccessAny, KindUpdateFailed, h.identifyCustomer)
	d.Register(KindRegisterCustomer, AccessAny, KindUpdateFailed, h.registerCustomer)
	d.Register(KindUpgradeSubscriber, AccessStaff, KindUpdateFailed, h.upgradeSubscriber)

	d.Register(KindRequestReservation, AccessAny, KindReservationRejected, h.requestReservation)
	d.Register(KindCancelReservation, AccessAny, KindUpdateFailed, h.cancelReservation)
	d.Register(KindCheckInCustomer, AccessAny, KindCheckInDenied, h.checkIn)
	d.Register(KindGetBill, AccessAny, KindUpdateFailed, h.getBill)
	d.Register(KindPayBill, AccessAny, KindUpdateFailed, h.payBill)

	d.Register(KindEnterWaitingList, AccessAny, KindUpdateFailed, h.enterWaitingList)
	d.Register(KindConfirmWaitingOffer, AccessAny, KindUpdateFailed, h.confirmWaitingOffer)
	d.Register(KindLeaveWaitingList, AccessAny, KindUpdateFailed, h.leaveWaitingList)

	d.Register(KindGetTables, AccessStaff, "", h.getTables)
	d.Register(KindGetOrders, AccessStaff, "", h.getOrders)
	d.Register(KindGetWaitingList, AccessStaff, "", h.getWaitingList)
	d.Register(KindAddTable, AccessManager, KindUpdateFailed, h.addTable)
	d.Register(KindUpdateTable, AccessManager, KindUpdateFailed, h.updateTable)
	d.Register(KindRemoveTable, AccessManager, KindUpdateFailed, h.removeTable)

	d.Register(KindGetOpeningHours, AccessAny, "", h.getOpeningHours)
	d.Register(KindSetOpeningHours, AccessManager, KindUpdateFailed, h.setOpeningHours)
}

type (
	loginPayload struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}
	identifyPayload struct {
		Phone string `json:"phone" validate:"required"`
	}
	registerPayload struct {
		Phone     string `json:"phone"`
		Email     string `json:"email" validate:"omitempty,email"`
		FirstName string `json:"first_name" validate:"required"`
		LastName  string `json:"last_name" validate:"required"`
	}
	customerPayload struct {
		CustomerID uint `json:"customer_id" validate:"required"`
	}
	// Party size bounds are checked by the services.
	reservationPayload struct {
		CustomerID uint   `json:"customer_id" validate:"required"`
		Date       string `json:"date" validate:"required"`
		Time       string `json:"time" validate:"required"`
		PartySize  int    `json:"party_size"`
	}
	waitingPayload struct {
		CustomerID uint   `json:"customer_id" validate:"required"`
		PartySize  int    `json:"party_size"`
		Date       string `json:"date" validate:"required_with=Time"`
		Time       string `json:"time" validate:"required_with=Date"`
	}
	codePayload struct {
		Code string `json:"code" validate:"required"`
	}
	ordersPayload struct {
		Status string `json:"status" validate:"omitempty,oneof=PENDING APPROVED ACTIVE FINISHED CANCELLED"`
	}
	addTablePayload struct {
		Capacity int `json:"capacity"`
	}
	updateTablePayload struct {
		TableID  uint `json:"table_id" validate:"required"`
		Capacity int  `json:"capacity"`
	}
	tablePayload struct {
		TableID uint `json:"table_id" validate:"required"`
	}
	hoursPayload struct {
		Weekday *int   `json:"weekday" validate:"required"`
		Opens   string `json:"opens" validate:"required_unless=Closed true"`
		Closes  string `json:"closes" validate:"required_unless=Closed true"`
		Closed  bool   `json:"closed"`
	}
)

func (h *handlers) hello(_ context.Context, s *Session, _ json.RawMessage) (Response, error) {
	return Response{Kind: KindHelloOK, Payload: map[string]interface{}{
		"version": Version,
		"role":    s.Role,
		"session": s.ID.String(),
	}}, nil
}

func (h *handlers) login(_ context.Context, s *Session, payload json.RawMessage) (Response, error) {
	var p loginPayload
	if err := h.d.decode(payload, &p); err != nil {
		return Response{}, err
	}
	role, token, err := h.svc.Credentials.Login(p.Username, p.Password)
	if err != nil {
		return Response{}, err
	}
	s.Role = role
	s.Username = p.Username
	return Response{Kind: KindLoginOK, Payload: map[string]interface{}{
		"role":  role,
		"token": token,
	}}, nil
}

func (h *handlers) identifyCustomer(ctx context.Context, s *Session, payload json.RawMessage) (Response, error) {
	var p identifyPayload
	if err := h.d.decode(payload, &p); err != nil {
		return Response{}, err
	}
	customer, err := h.svc.Customers.Identify(ctx, p.Phone)
	if err != nil {
		return Response{}, err
	}
	s.CustomerID = customer.ID
	return Response{Kind: KindCustomer, Payload: customer}, nil
}

func (h *handlers) registerCustomer(ctx context.Context, s *Session, payload json.RawMessage) (Response, error) {
	var p registerPayload
	if err := h.d.decode(payload, &p); err != nil {
		return Response{}, err
	}
	customer, err := h.svc.Customers.Register(ctx, services.Registration{
		Phone:     p.Phone,
		Email:     p.Email,
		FirstName: p.FirstName,
		LastName:  p.LastName,
	})
	if err != nil {
		return Response{}, err
	}
	s.CustomerID = customer.ID
	return Response{Kind: KindCustomer, Payload: customer}, nil
}

func (h *handlers) upgradeSubscriber(ctx context.Context, _ *Session, payload json.RawMessage) (Response, error) {
	var p customerPayload
	if err := h.d.decode(payload, &p); err != nil {
		return Response{}, err
	}
	customer, err := h.svc.Customers.UpgradeToSubscriber(ctx, p.CustomerID)
	if err != nil {
		return Response{}, err
	}
	return Response{Kind: KindCustomer, Payload: customer}, nil
}

func (h *handlers) requestReservation(ctx context.Context, _ *Session, payload json.RawMessage) (Response, error) {
	var p reservationPayload
	if err := h.d.decode(payload, &p); err != nil {
		return Response{}, err
	}
	r, err := h.svc.Reservations.Create(ctx, p.CustomerID, p.Date, p.Time, p.PartySize)
	if err != nil {
		return Response{}, err
	}

	if r.Status == models.ReservationPending {
		return Response{Kind: KindReservationPending, Payload: map[string]interface{}{
			"code":   r.Code,
			"reason": "no table is available right now, you can join the waiting list",
		}}, nil
	}
	return Response{Kind: KindReservationConfirmed, Payload: map[string]interface{}{
		"code":         r.Code,
		"table_id":     r.TableID,
		"requested_at": r.RequestedAt,
	}}, nil
}

func (h *handlers) cancelReservation(ctx context.Context, s *Session, payload json.RawMessage) (Response, error) {
	var p codePayload
	if err := h.d.decode(payload, &p); err != nil {
		return Response{}, err
	}
	// Ownership comes from the customer this session identified as.
	requester := services.Requester{CustomerID: s.CustomerID, Staff: s.Role.IsStaff()}
	r, err := h.svc.Reservations.Cancel(ctx, p.Code, requester)
	if err != nil {
		return Response{}, err
	}
	return Response{Kind: KindUpdateSuccess, Payload: map[string]interface{}{
		"code":   r.Code,
		"status": r.Status,
	}}, nil
}

func (h *handlers) checkIn(ctx context.Context, _ *Session, payload json.RawMessage) (Response, error) {
	var p codePayload
	if err := h.d.decode(payload, &p); err != nil {
		return Response{}, err
	}
	r, err := h.svc.Reservations.CheckIn(ctx, p.Code)
	if err != nil {
		return Response{}, err
	}
	return Response{Kind: KindCheckInApproved, Payload: map[string]interface{}{
		"code":     r.Code,
		"table_id": r.TableID,
	}}, nil
}

func (h *handlers) getBill(ctx context.Context, _ *Session, payload json.RawMessage) (Response, error) {
	var p codePayload
	if err := h.d.decode(payload, &p); err != nil {
		return Response{}, err
	}
	bill, err := h.svc.Reservations.Bill(ctx, p.Code)
	if err != nil {
		return Response{}, err
	}
	return Response{Kind: KindBill, Payload: bill}, nil
}

func (h *handlers) payBill(ctx context.Context, _ *Session, payload json.RawMessage) (Response, error) {
	var p codePayload
	if err := h.d.decode(payload, &p); err != nil {
		return Response{}, err
	}
	bill, err := h.svc.Reservations.Checkout(ctx, p.Code)
	if err != nil {
		return Response{}, err
	}
	return Response{Kind: KindUpdateSuccess, Payload: map[string]interface{}{
		"code": bill.Code,
		"bill": bill,
	}}, nil
}

func (h *handlers) enterWaitingList(ctx context.Context, _ *Session, payload json.RawMessage) (Response, error) {
	var p waitingPayload
	if err := h.d.decode(payload, &p); err != nil {
		return Response{}, err
	}

	var requestedAt time.Time
	if p.Date != "" {
		slot, err := h.svc.Reservations.ParseSlot(p.Date, p.Time)
		if err != nil {
			return Response{}, err
		}
		requestedAt = slot
	}

	result, err := h.svc.Waiting.Join(ctx, p.CustomerID, p.PartySize, requestedAt)
	if errors.Is(err, services.ErrDuplicateActive) && result != nil {
		return Response{Kind: KindWaitingListAdded, Payload: map[string]interface{}{
			"result": result.String(),
			"code":   result.Entry.Code,
		}}, nil
	}
	if err != nil {
		return Response{}, err
	}

	out := map[string]interface{}{
		"result": result.String(),
		"code":   result.Entry.Code,
	}
	if result.Reservation != nil {
		out["reservation_code"] = result.Reservation.Code
		out["table_id"] = result.Reservation.TableID
	}
	return Response{Kind: KindWaitingListAdded, Payload: out}, nil
}

func (h *handlers) confirmWaitingOffer(ctx context.Context, _ *Session, payload json.RawMessage) (Response, error) {
	var p codePayload
	if err := h.d.decode(payload, &p); err != nil {
		return Response{}, err
	}
	result, err := h.svc.Waiting.Confirm(ctx, p.Code)
	if err != nil {
		return Response{}, err
	}
	return Response{Kind: KindWaitingOfferAccepted, Payload: map[string]interface{}{
		"table_id":         result.Reservation.TableID,
		"reservation_code": result.Reservation.Code,
	}}, nil
}

func (h *handlers) leaveWaitingList(ctx context.Context, _ *Session, payload json.RawMessage) (Response, error) {
	var p codePayload
	if err := h.d.decode(payload, &p); err != nil {
		return Response{}, err
	}
	entry, err := h.svc.Waiting.Leave(ctx, p.Code)
	if err != nil {
		return Response{}, err
	}
	return Response{Kind: KindUpdateSuccess, Payload: map[string]interface{}{
		"code":   entry.Code,
		"status": entry.Status,
	}}, nil
}

func (h *handlers) getTables(ctx context.Context, _ *Session, _ json.RawMessage) (Response, error) {
	tables, err := h.svc.Tables.Snapshot(ctx)
	if err != nil {
		return Response{}, err
	}
	return Response{Kind: KindTables, Payload: tables}, nil
}

func (h *handlers) getOrders(ctx context.Context, _ *Session, payload json.RawMessage) (Response, error) {
	var p ordersPayload
	if err := h.d.decode(payload, &p); err != nil {
		return Response{}, err
	}
	orders, err := h.svc.Reservations.List(ctx, models.ReservationStatus(p.Status))
	if err != nil {
		return Response{}, err
	}
	return Response{Kind: KindOrders, Payload: orders}, nil
}

func (h *handlers) getWaitingList(ctx context.Context, _ *Session, _ json.RawMessage) (Response, error) {
	entries, err := h.svc.Waiting.List(ctx)
	if err != nil {
		return Response{}, err
	}
	return Response{Kind: KindWaitingList, Payload: entries}, nil
}

func (h *handlers) addTable(ctx context.Context, _ *Session, payload json.RawMessage) (Response, error) {
	var p addTablePayload
	if err := h.d.decode(payload, &p); err != nil {
		return Response{}, err
	}
	table, err := h.svc.Tables.AddTable(ctx, p.Capacity)
	if err != nil {
		return Response{}, err
	}
	return Response{Kind: KindTable, Payload: table}, nil
}

func (h *handlers) updateTable(ctx context.Context, _ *Session, payload json.RawMessage) (Response, error) {
	var p updateTablePayload
	if err := h.d.decode(payload, &p); err != nil {
		return Response{}, err
	}
	table, err := h.svc.Tables.ResizeTable(ctx, p.TableID, p.Capacity)
	if err != nil {
		return Response{}, err
	}
	return Response{Kind: KindTable, Payload: table}, nil
}

func (h *handlers) removeTable(ctx context.Context, _ *Session, payload json.RawMessage) (Response, error) {
	var p tablePayload
	if err := h.d.decode(payload, &p); err != nil {
		return Response{}, err
	}
	if err := h.svc.Tables.RemoveTable(ctx, p.TableID); err != nil {
		return Response{}, err
	}
	return Response{Kind: KindUpdateSuccess, Payload: map[string]interface{}{"table_id": p.TableID}}, nil
}

func (h *handlers) getOpeningHours(ctx context.Context, _ *Session, _ json.RawMessage) (Response, error) {
	hours, err := h.svc.Hours.List(ctx)
	if err != nil {
		return Response{}, err
	}
	return Response{Kind: KindOpeningHours, Payload: hours}, nil
}

func (h *handlers) setOpeningHours(ctx context.Context, _ *Session, payload json.RawMessage) (Response, error) {
	var p hoursPayload
	if err := h.d.decode(payload, &p); err != nil {
		return Response{}, err
	}
	if _, err := h.svc.Hours.Set(ctx, *p.Weekday, p.Opens, p.Closes, p.Closed); err != nil {
		return Response{}, err
	}
	hours, err := h.svc.Hours.List(ctx)
	if err != nil {
		return Response{}, err
	}
	return Response{Kind: KindOpeningHours, Payload: hours}, nil
}
