package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/marcioluisms/hotelly2-sub000/internal/app"
	"github.com/marcioluisms/hotelly2-sub000/internal/domain"
)

const dateLayout = "2006-01-02"

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

// HoldCreator is the minimal interface needed to create a hold.
type HoldCreator interface {
	Create(ctx context.Context, in app.CreateHoldInput) (domain.Hold, error)
}

// HoldLifecycle is the minimal interface needed to convert or expire a hold.
type HoldLifecycle interface {
	Convert(ctx context.Context, holdID, paymentRef, taskToken string) (app.ConvertResult, error)
	Expire(ctx context.Context, holdID, taskToken string) (app.ExpireResult, error)
}

// HandleCreateHold returns an HTTP handler for creating holds.
func HandleCreateHold(svc HoldCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req createHoldRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

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

		hold, err := svc.Create(r.Context(), app.CreateHoldInput{
			PropertyID:  req.PropertyID,
			RoomTypeID:  req.RoomTypeID,
			Checkin:     checkin,
			Checkout:    checkout,
			Guests:      req.Guests,
			CreateToken: req.CreateToken,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, holdResponse{
			ID:          hold.ID,
			PropertyID:  hold.PropertyID,
			RoomTypeID:  hold.RoomTypeID,
			Checkin:     hold.Checkin.Format(dateLayout),
			Checkout:    hold.Checkout.Format(dateLayout),
			Guests:      hold.Guests,
			TotalAmount: hold.TotalAmount,
			Currency:    hold.Currency,
			Status:      string(hold.Status),
			ExpiresAt:   hold.ExpiresAt,
		})
	}
}

// HandleHoldActions routes POST /holds/{id}/convert and /holds/{id}/expire.
func HandleHoldActions(svc HoldLifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		holdID, action, ok := parseHoldActionPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req holdActionRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		switch action {
		case "convert":
			result, err := svc.Convert(r.Context(), holdID, req.PaymentRef, req.TaskToken)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			resp := holdActionResponse{Outcome: string(result.Outcome)}
			if result.Outcome == app.OutcomeConverted || result.Outcome == app.OutcomeDuplicate {
				resp.ReservationID = result.Reservation.ID
			}
			writeJSON(w, http.StatusOK, resp)
		case "expire":
			result, err := svc.Expire(r.Context(), holdID, req.TaskToken)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			resp := holdActionResponse{Outcome: string(result.Outcome)}
			if result.Outcome == app.OutcomeNotExpiredYet {
				resp.ExpiresAt = &result.ExpiresAt
			}
			writeJSON(w, http.StatusOK, resp)
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
		}
	}
}

func parseHoldActionPath(path string) (holdID, action string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[0] != "holds" || parts[1] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

type createHoldRequest struct {
	PropertyID  string `json:"property_id"`
	RoomTypeID  string `json:"room_type_id"`
	Checkin     string `json:"checkin"`
	Checkout    string `json:"checkout"`
	Guests      int    `json:"guests"`
	CreateToken string `json:"create_token"`
}

type holdResponse struct {
	ID          string    `json:"id"`
	PropertyID  string    `json:"property_id"`
	RoomTypeID  string    `json:"room_type_id"`
	Checkin     string    `json:"checkin"`
	Checkout    string    `json:"checkout"`
	Guests      int       `json:"guests"`
	TotalAmount int64     `json:"total_amount"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type holdActionRequest struct {
	PaymentRef string `json:"payment_ref,omitempty"`
	TaskToken  string `json:"task_token"`
}

type holdActionResponse struct {
	Outcome       string     `json:"outcome"`
	ReservationID string     `json:"reservation_id,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}
