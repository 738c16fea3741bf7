package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"doora/internal/domain/delegation"
	"doora/internal/ports"
	usecase "doora/internal/usecase/delegation"
)

const maxBodySize = 1 << 20 // 1MB

type windowPayload struct {
	Date string `json:"date"`
	From string `json:"from"`
	To   string `json:"to"`
}

func (p windowPayload) toWindow() delegation.Window {
	return delegation.Window{Date: p.Date, From: p.From, To: p.To}
}

func windowJSON(w delegation.Window) windowPayload {
	return windowPayload{Date: w.Date, From: w.From, To: w.To}
}

type delegatePayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type fanOutPayload struct {
	DeliveryLabel string            `json:"delivery_label"`
	Window        windowPayload     `json:"window"`
	Notes         string            `json:"notes"`
	Delegates     []delegatePayload `json:"delegates"`
}

type recordPayload struct {
	ID             string         `json:"id"`
	RequesterID    string         `json:"requester_id"`
	RequesterName  string         `json:"requester_name"`
	DelegateID     string         `json:"delegate_id"`
	DelegateName   string         `json:"delegate_name"`
	DeliveryLabel  string         `json:"delivery_label"`
	Window         windowPayload  `json:"window"`
	Original       windowPayload  `json:"original"`
	Status         string         `json:"status"`
	Notes          string         `json:"notes,omitempty"`
	Code           string         `json:"code"`
	Rating         int            `json:"rating,omitempty"`
	LastEditorName string         `json:"last_editor_name,omitempty"`
	History        []eventPayload `json:"history,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

type eventPayload struct {
	OccurredAt time.Time `json:"occurred_at"`
	Action     string    `json:"action"`
	ActorID    string    `json:"actor_id"`
	ActorName  string    `json:"actor_name"`
	Details    string    `json:"details,omitempty"`
}

func recordJSON(record delegation.Record) recordPayload {
	return recordPayload{
		ID:             record.ID,
		RequesterID:    record.RequesterID,
		RequesterName:  record.RequesterName,
		DelegateID:     record.DelegateID,
		DelegateName:   record.DelegateName,
		DeliveryLabel:  record.DeliveryLabel,
		Window:         windowJSON(record.Window),
		Original:       windowJSON(record.Original),
		Status:         string(record.Status),
		Notes:          record.Notes,
		Code:           record.Code,
		Rating:         record.Rating,
		LastEditorName: record.LastEditorName,
		History:        eventsJSON(record.History),
		CreatedAt:      record.CreatedAt,
		UpdatedAt:      record.UpdatedAt,
	}
}

func eventsJSON(events []delegation.HistoryEvent) []eventPayload {
	out := make([]eventPayload, 0, len(events))
	for _, e := range events {
		out = append(out, eventPayload{
			OccurredAt: e.OccurredAt,
			Action:     string(e.Action),
			ActorID:    e.ActorID,
			ActorName:  e.ActorName,
			Details:    e.Details,
		})
	}
	return out
}

func actorFrom(r *http.Request) usecase.Actor {
	return usecase.Actor{
		ID:   r.Header.Get("X-User-ID"),
		Name: r.Header.Get("X-User-Name"),
	}
}

func (s *Server) handleFanOut(w http.ResponseWriter, r *http.Request) {
	var payload fanOutPayload
	if !decodeBody(w, r, &payload) {
		return
	}

	delegates := make([]usecase.DelegateInput, 0, len(payload.Delegates))
	for _, d := range payload.Delegates {
		delegates = append(delegates, usecase.DelegateInput{ID: d.ID, Name: d.Name})
	}

	result, err := s.service.CreateFanOut(r.Context(), usecase.FanOutInput{
		Requester:     actorFrom(r),
		DeliveryLabel: payload.DeliveryLabel,
		Window:        payload.Window.toWindow(),
		Notes:         payload.Notes,
		Delegates:     delegates,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	created := make([]recordPayload, 0, len(result.Created))
	for _, record := range result.Created {
		created = append(created, recordJSON(record))
	}
	reactivated := make([]recordPayload, 0, len(result.Reactivated))
	for _, record := range result.Reactivated {
		reactivated = append(reactivated, recordJSON(record))
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"created":     created,
		"reactivated": reactivated,
	})
}

func (s *Server) handleAddDelegates(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Delegates []delegatePayload `json:"delegates"`
	}
	if !decodeBody(w, r, &payload) {
		return
	}

	delegates := make([]usecase.DelegateInput, 0, len(payload.Delegates))
	for _, d := range payload.Delegates {
		delegates = append(delegates, usecase.DelegateInput{ID: d.ID, Name: d.Name})
	}

	result, err := s.service.AddDelegates(r.Context(), usecase.AddDelegatesInput{
		SourceRecordID: chi.URLParam(r, "recordID"),
		Actor:          actorFrom(r),
		Delegates:      delegates,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	records := make([]recordPayload, 0, len(result.Created)+len(result.Reactivated))
	for _, record := range result.Created {
		records = append(records, recordJSON(record))
	}
	for _, record := range result.Reactivated {
		records = append(records, recordJSON(record))
	}
	writeJSON(w, http.StatusCreated, map[string]any{"records": records})
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		userID = r.Header.Get("X-User-ID")
	}

	items, err := s.service.ListRecords(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	type listItem struct {
		recordPayload
		Direction string `json:"direction"`
	}
	out := make([]listItem, 0, len(items))
	for _, item := range items {
		out = append(out, listItem{
			recordPayload: recordJSON(item.Record),
			Direction:     string(item.Direction),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": out})
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	record, err := s.service.GetRecord(r.Context(), chi.URLParam(r, "recordID"), actorFrom(r).ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recordJSON(record))
}

func (s *Server) handleGroupHistory(w http.ResponseWriter, r *http.Request) {
	viewerID := r.URL.Query().Get("viewer")
	if viewerID == "" {
		viewerID = actorFrom(r).ID
	}

	events, err := s.service.GroupHistory(r.Context(), usecase.GroupHistoryInput{
		RecordID: chi.URLParam(r, "recordID"),
		ViewerID: viewerID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": eventsJSON(events)})
}

func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.service.Accept)
}

func (s *Server) handleDecline(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.service.Decline)
}

func (s *Server) handleCollected(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.service.MarkCollected)
}

func (s *Server) handleCompleted(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.service.MarkCompleted)
}

func (s *Server) handleTransition(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, input usecase.TransitionInput) (delegation.Record, error),
) {
	record, err := op(r.Context(), usecase.TransitionInput{
		RecordID: chi.URLParam(r, "recordID"),
		Actor:    actorFrom(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recordJSON(record))
}

func (s *Server) handlePropose(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Window windowPayload `json:"window"`
	}
	if !decodeBody(w, r, &payload) {
		return
	}

	record, err := s.service.Propose(r.Context(), usecase.ProposeInput{
		RecordID: chi.URLParam(r, "recordID"),
		Actor:    actorFrom(r),
		Window:   payload.Window.toWindow(),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recordJSON(record))
}

func (s *Server) handleEditWindow(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Window     windowPayload `json:"window"`
		Notes      *string       `json:"notes"`
		AsProposal bool          `json:"as_proposal"`
	}
	if !decodeBody(w, r, &payload) {
		return
	}

	record, err := s.service.EditWindow(r.Context(), usecase.EditWindowInput{
		RecordID:   chi.URLParam(r, "recordID"),
		Actor:      actorFrom(r),
		Window:     payload.Window.toWindow(),
		Notes:      payload.Notes,
		AsProposal: payload.AsProposal,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recordJSON(record))
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	err := s.service.Remove(r.Context(), usecase.TransitionInput{
		RecordID: chi.URLParam(r, "recordID"),
		Actor:    actorFrom(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Stars int `json:"stars"`
	}
	if !decodeBody(w, r, &payload) {
		return
	}

	record, err := s.service.Rate(r.Context(), usecase.RateInput{
		RecordID: chi.URLParam(r, "recordID"),
		Actor:    actorFrom(r),
		Stars:    payload.Stars,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recordJSON(record))
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.Notifications(r.Context(), actorFrom(r).ID)
	if err != nil {
		writeError(w, err)
		return
	}

	type notificationItem struct {
		ID        string    `json:"id"`
		Title     string    `json:"title"`
		Message   string    `json:"message"`
		Kind      string    `json:"kind"`
		IsRead    bool      `json:"is_read"`
		CreatedAt time.Time `json:"created_at"`
	}
	out := make([]notificationItem, 0, len(items))
	for _, n := range items {
		out = append(out, notificationItem{
			ID:        n.ID,
			Title:     n.Title,
			Message:   n.Message,
			Kind:      n.Kind,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": out})
}

func (s *Server) handleMarkNotificationsRead(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		IDs []string `json:"ids"`
	}
	if !decodeBody(w, r, &payload) {
		return
	}

	if err := s.service.MarkNotificationsRead(r.Context(), actorFrom(r).ID, payload.IDs); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteNotification(r.Context(), actorFrom(r).ID, chi.URLParam(r, "notificationID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearNotifications(w http.ResponseWriter, r *http.Request) {
	if err := s.service.ClearNotifications(r.Context(), actorFrom(r).ID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ports.ErrRecordNotFound):
		status = http.StatusNotFound
	case errors.Is(err, delegation.ErrInvalidTransition),
		errors.Is(err, delegation.ErrWrongActor),
		errors.Is(err, delegation.ErrNotEditable),
		errors.Is(err, delegation.ErrNotRatable):
		status = http.StatusConflict
	case errors.Is(err, delegation.ErrNotParticipant):
		status = http.StatusForbidden
	case errors.Is(err, delegation.ErrWindowInvalid),
		errors.Is(err, delegation.ErrRequesterRequired),
		errors.Is(err, delegation.ErrDelegateRequired),
		errors.Is(err, delegation.ErrNoDelegates),
		errors.Is(err, delegation.ErrRatingRange),
		errors.Is(err, delegation.ErrInvalidStatus):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
