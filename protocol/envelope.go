// Package protocol maps typed request envelopes from connected clients onto
// the reservation, table and waiting-list services.
package protocol

import "encoding/json"

// Version is bumped whenever a kind or payload changes incompatibly.
const Version = 1

type Kind string

// Request kinds
const (
	KindHello               Kind = "HELLO"
	KindLogin               Kind = "LOGIN"
	KindIdentifyCustomer    Kind = "IDENTIFY_CUSTOMER"
	KindRegisterCustomer    Kind = "REGISTER_CUSTOMER"
	KindUpgradeSubscriber   Kind = "UPGRADE_SUBSCRIBER"
	KindRequestReservation  Kind = "REQUEST_RESERVATION"
	KindCancelReservation   Kind = "CANCEL_RESERVATION"
	KindEnterWaitingList    Kind = "ENTER_WAITING_LIST"
	KindConfirmWaitingOffer Kind = "CONFIRM_WAITING_OFFER"
	KindLeaveWaitingList    Kind = "LEAVE_WAITING_LIST"
	KindCheckInCustomer     Kind = "CHECK_IN_CUSTOMER"
	KindGetBill             Kind = "GET_BILL"
	KindPayBill             Kind = "PAY_BILL"
	KindGetTables           Kind = "GET_TABLES"
	KindGetOrders           Kind = "GET_ORDERS"
	KindGetWaitingList      Kind = "GET_WAITING_LIST"
	KindAddTable            Kind = "ADD_TABLE"
	KindUpdateTable         Kind = "UPDATE_TABLE"
	KindRemoveTable         Kind = "REMOVE_TABLE"
	KindGetOpeningHours     Kind = "GET_OPENING_HOURS"
	KindSetOpeningHours     Kind = "SET_OPENING_HOURS"
)

// Response kinds
const (
	KindHelloOK              Kind = "HELLO_OK"
	KindLoginOK              Kind = "LOGIN_OK"
	KindLoginFailed          Kind = "LOGIN_FAILED"
	KindCustomer             Kind = "CUSTOMER"
	KindReservationConfirmed Kind = "RESERVATION_CONFIRMED"
	KindReservationPending   Kind = "RESERVATION_PENDING"
	KindReservationRejected  Kind = "RESERVATION_REJECTED"
	KindWaitingListAdded     Kind = "WAITING_LIST_ADDED"
	KindWaitingOfferAccepted Kind = "WAITING_OFFER_ACCEPTED"
	KindCheckInApproved      Kind = "CHECK_IN_APPROVED"
	KindCheckInDenied        Kind = "CHECK_IN_DENIED"
	KindBill                 Kind = "BILL"
	KindUpdateSuccess        Kind = "UPDATE_SUCCESS"
	KindUpdateFailed         Kind = "UPDATE_FAILED"
	KindTables               Kind = "TABLES"
	KindTable                Kind = "TABLE"
	KindOrders               Kind = "ORDERS"
	KindWaitingList          Kind = "WAITING_LIST"
	KindOpeningHours         Kind = "OPENING_HOURS"
	KindError                Kind = "ERROR"
	KindFail                 Kind = "FAIL"
)

type Request struct {
	ID      string          `json:"id,omitempty"`
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type Response struct {
	ID      string      `json:"id,omitempty"`
	Kind    Kind        `json:"kind"`
	Payload interface{} `json:"payload,omitempty"`
}

// ReasonPayload explains a rejection. Retry tells the client that
// resubmitting the same request may succeed.
type ReasonPayload struct {
	Reason string `json:"reason"`
	Retry  bool   `json:"retry,omitempty"`
}

func errorResponse(reason string) Response {
	return Response{Kind: KindError, Payload: ReasonPayload{Reason: reason}}
}

func failResponse(reason string) Response {
	return Response{Kind: KindFail, Payload: ReasonPayload{Reason: reason}}
}
