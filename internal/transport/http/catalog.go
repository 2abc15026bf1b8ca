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

// CatalogAdmin is the minimal interface needed for admin catalog endpoints.
type CatalogAdmin interface {
	CreateProperty(ctx context.Context, in app.CreatePropertyInput) (domain.Property, error)
	CreateRoomType(ctx context.Context, in app.CreateRoomTypeInput) (domain.RoomType, error)
	CreateRoom(ctx context.Context, in app.CreateRoomInput) (domain.Room, error)
	SetCapacity(ctx context.Context, in app.SetCapacityInput) error
	SetRate(ctx context.Context, in app.SetRateInput) error
}

// HandleAdminProperties returns an HTTP handler for POST /admin/properties.
func HandleAdminProperties(svc CatalogAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req createPropertyRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		prop, err := svc.CreateProperty(r.Context(), app.CreatePropertyInput{
			Name:           req.Name,
			Timezone:       req.Timezone,
			PolicyType:     domain.PolicyType(req.PolicyType),
			FreeUntilDays:  req.FreeUntilDays,
			PenaltyPercent: req.PenaltyPercent,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, propertyResponse{
			ID:         prop.ID,
			Name:       prop.Name,
			Timezone:   prop.Timezone,
			PolicyType: string(prop.Policy.Type),
		})
	}
}

// HandleAdminPropertySubresources routes the nested admin endpoints:
//
//	POST /admin/properties/{id}/room-types
//	POST /admin/properties/{id}/rooms
//	PUT  /admin/properties/{id}/room-types/{rtid}/capacity
//	PUT  /admin/properties/{id}/room-types/{rtid}/rates
func HandleAdminPropertySubresources(svc CatalogAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) < 4 || parts[0] != "admin" || parts[1] != "properties" || parts[2] == "" {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		propertyID := parts[2]

		switch {
		case len(parts) == 4 && parts[3] == "room-types":
			handleCreateRoomType(svc, propertyID, w, r)
		case len(parts) == 4 && parts[3] == "rooms":
			handleCreateRoom(svc, propertyID, w, r)
		case len(parts) == 6 && parts[3] == "room-types" && parts[5] == "capacity":
			handleSetCapacity(svc, propertyID, parts[4], w, r)
		case len(parts) == 6 && parts[3] == "room-types" && parts[5] == "rates":
			handleSetRate(svc, propertyID, parts[4], w, r)
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
		}
	}
}

func handleCreateRoomType(svc CatalogAdmin, propertyID string, w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		return
	}

	var req createRoomTypeRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}

	rt, err := svc.CreateRoomType(r.Context(), app.CreateRoomTypeInput{
		PropertyID: propertyID,
		Name:       req.Name,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, roomTypeResponse{
		ID:         rt.ID,
		PropertyID: rt.PropertyID,
		Name:       rt.Name,
	})
}

func handleCreateRoom(svc CatalogAdmin, propertyID string, w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		return
	}

	var req createRoomRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}

	room, err := svc.CreateRoom(r.Context(), app.CreateRoomInput{
		PropertyID: propertyID,
		RoomTypeID: req.RoomTypeID,
		Number:     req.Number,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, roomResponse{
		ID:         room.ID,
		PropertyID: room.PropertyID,
		RoomTypeID: room.RoomTypeID,
		Number:     room.Number,
	})
}

func handleSetCapacity(svc CatalogAdmin, propertyID, roomTypeID string, w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		return
	}

	var req setCapacityRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}

	from, to, err := parseDateRange(req.From, req.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidDate, err.Error())
		return
	}

	if err := svc.SetCapacity(r.Context(), app.SetCapacityInput{
		PropertyID: propertyID,
		RoomTypeID: roomTypeID,
		From:       from,
		To:         to,
		Capacity:   req.Capacity,
	}); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func handleSetRate(svc CatalogAdmin, propertyID, roomTypeID string, w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		return
	}

	var req setRateRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}

	from, to, err := parseDateRange(req.From, req.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidDate, err.Error())
		return
	}

	if err := svc.SetRate(r.Context(), app.SetRateInput{
		PropertyID:  propertyID,
		RoomTypeID:  roomTypeID,
		From:        from,
		To:          to,
		AmountMinor: req.AmountMinor,
		Currency:    req.Currency,
	}); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseDateRange(fromStr, toStr string) (time.Time, time.Time, error) {
	from, err := parseDate(fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, errInvalidFrom
	}
	to, err := parseDate(toStr)
	if err != nil {
		return time.Time{}, time.Time{}, errInvalidTo
	}
	return from, to, nil
}

type createPropertyRequest struct {
	Name           string `json:"name"`
	Timezone       string `json:"timezone,omitempty"`
	PolicyType     string `json:"policy_type,omitempty"`
	FreeUntilDays  int    `json:"free_until_days,omitempty"`
	PenaltyPercent int    `json:"penalty_percent,omitempty"`
}

type propertyResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Timezone   string `json:"timezone"`
	PolicyType string `json:"policy_type"`
}

type createRoomTypeRequest struct {
	Name string `json:"name"`
}

type roomTypeResponse struct {
	ID         string `json:"id"`
	PropertyID string `json:"property_id"`
	Name       string `json:"name"`
}

type createRoomRequest struct {
	RoomTypeID string `json:"room_type_id"`
	Number     string `json:"number"`
}

type roomResponse struct {
	ID         string `json:"id"`
	PropertyID string `json:"property_id"`
	RoomTypeID string `json:"room_type_id"`
	Number     string `json:"number"`
}

type setCapacityRequest struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Capacity int    `json:"capacity"`
}

type setRateRequest struct {
	From        string `json:"from"`
	To          string `json:"to"`
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
}
