package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/marcioluisms/hotelly2-sub000/internal/app"
)

// ReservationOps is the minimal interface needed for reservation endpoints.
type ReservationOps interface {
	AssignRoom(ctx context.Context, in app.AssignRoomInput) (app.AssignRoomResult, error)
	Modify(ctx context.Context, in app.ModifyInput) (app.ModifyResult, error)
	Cancel(ctx context.Context, in app.CancelInput) (app.CancelResult, error)
	CheckIn(ctx context.Context, reservationID, token string) (app.StatusResult, error)
	CheckOut(ctx context.Context, reservationID, token string) (app.StatusResult, error)
}

// HandleReservationActions routes POST /reservations/{id}/{action} for
// assign-room, modify, cancel, check-in and check-out.
func HandleReservationActions(svc ReservationOps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reservationID, action, ok := parseReservationActionPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req reservationActionRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		switch action {
		case "assign-room":
			result, err := svc.AssignRoom(r.Context(), app.AssignRoomInput{
				ReservationID: reservationID,
				RoomID:        req.RoomID,
				Token:         req.Token,
			})
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, result)
		case "modify":
			checkin, err := parseDate(req.Checkin)
			if err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidDate, "invalid checkin date")
				return
			}
			checkout, err := parseDate(req.Checkout)
			if err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidDate, "invalid checkout date")
				return
			}
			result, err := svc.Modify(r.Context(), app.ModifyInput{
				ReservationID: reservationID,
				NewCheckin:    checkin,
				NewCheckout:   checkout,
				Token:         req.Token,
			})
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, result)
		case "cancel":
			result, err := svc.Cancel(r.Context(), app.CancelInput{
				ReservationID: reservationID,
				Reason:        req.Reason,
				Token:         req.Token,
			})
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, result)
		case "check-in":
			result, err := svc.CheckIn(r.Context(), reservationID, req.Token)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, result)
		case "check-out":
			result, err := svc.CheckOut(r.Context(), reservationID, req.Token)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, result)
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
		}
	}
}

func parseReservationActionPath(path string) (reservationID, action string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[0] != "reservations" || parts[1] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

type reservationActionRequest struct {
	RoomID   string `json:"room_id,omitempty"`
	Checkin  string `json:"checkin,omitempty"`
	Checkout string `json:"checkout,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Token    string `json:"token"`
}
