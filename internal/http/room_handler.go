package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/meetgrid/internal/application"
	"github.com/example/meetgrid/internal/persistence"
	"github.com/gorilla/mux"
)

type roomService interface {
	CreateRoom(ctx context.Context, params application.CreateRoomParams) (string, error)
	GetRoom(ctx context.Context, uid, viewer string) (application.RoomView, error)
	DeleteRoom(ctx context.Context, participantUID, uid string) error
}

type RoomHandler struct {
	service   roomService
	issuer    identityIssuer
	responder responder
	logger    *slog.Logger
}

func NewRoomHandler(service roomService, identities identityService, cookies CookieConfig, logger *slog.Logger) *RoomHandler {
	base := defaultLogger(logger)
	return &RoomHandler{
		service:   service,
		issuer:    identityIssuer{identities: identities, cookies: cookies, now: time.Now},
		responder: newResponder(base),
		logger:    base,
	}
}

func (h *RoomHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "RoomHandler", operation, attrs...)
}

func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil || h.issuer.identities == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode room request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	input, err := req.toInput()
	if err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "invalid room dates", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	participant, err := h.issuer.ensure(w, r)
	if err != nil {
		h.log(r.Context(), "Create").ErrorContext(r.Context(), "identity issuance failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger := h.log(r.Context(), "Create", "participant_id", participant)

	uid, err := h.service.CreateRoom(r.Context(), application.CreateRoomParams{
		ParticipantUID: participant,
		PeerAddr:       r.RemoteAddr,
		Input:          input,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "room creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("room_id", uid).InfoContext(r.Context(), "room created")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, createRoomResponse{RoomUID: uid})
}

func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	roomUID := mux.Vars(r)["room_uid"]
	viewer, _ := ParticipantFromContext(r.Context())
	logger := h.log(r.Context(), "Get", "participant_id", viewer, "room_id", roomUID)

	view, err := h.service.GetRoom(r.Context(), roomUID, viewer)
	if err != nil {
		if !errors.Is(err, application.ErrNotFound) {
			logger.ErrorContext(r.Context(), "room lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		}
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toRoomResponse(view))
}

func (h *RoomHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	roomUID := mux.Vars(r)["room_uid"]
	participant, ok := ParticipantFromContext(r.Context())
	if !ok {
		h.log(r.Context(), "Delete", "room_id", roomUID, "error_kind", "unauthenticated").ErrorContext(r.Context(), "anonymous caller attempted room deletion")
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingIdentity)
		return
	}

	logger := h.log(r.Context(), "Delete", "participant_id", participant, "room_id", roomUID)
	if err := h.service.DeleteRoom(r.Context(), participant, roomUID); err != nil {
		logger.ErrorContext(r.Context(), "room delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "room deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, struct{}{})
}

type timeRangeDTO struct {
	FromHour int `json:"from_hour"`
	ToHour   int `json:"to_hour"`
}

type createRoomRequest struct {
	EventName    string          `json:"event_name"`
	ScheduleType int             `json:"schedule_type"`
	Dates        json.RawMessage `json:"dates"`
	SlotLength   int             `json:"slot_length"`
	Schedule     [][]bool        `json:"schedule"`
	TimeRange    timeRangeDTO    `json:"time_range"`
	UserName     string          `json:"user_name"`
}

var errInvalidDates = errors.New("dates must be a list of date strings or weekday numbers")

// toInput resolves the untyped dates list: strings are calendar dates and
// numbers are weekdays.
func (r createRoomRequest) toInput() (application.CreateRoomInput, error) {
	input := application.CreateRoomInput{
		EventName:    strings.TrimSpace(r.EventName),
		ScheduleType: persistence.ScheduleType(r.ScheduleType),
		SlotLength:   r.SlotLength,
		TimeRange:    application.TimeRange{FromHour: r.TimeRange.FromHour, ToHour: r.TimeRange.ToHour},
		Schedule:     r.Schedule,
		UserName:     strings.TrimSpace(r.UserName),
	}

	raw := bytes.TrimSpace(r.Dates)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return input, nil
	}
	var dates []string
	if err := json.Unmarshal(raw, &dates); err == nil {
		input.Dates = dates
		return input, nil
	}
	var days []int
	if err := json.Unmarshal(raw, &days); err == nil {
		input.DaysOfWeek = days
		return input, nil
	}
	return input, errInvalidDates
}

type createRoomResponse struct {
	RoomUID string `json:"room_uid"`
}

type roomResponse struct {
	EventName      string       `json:"event_name"`
	ScheduleType   int          `json:"schedule_type"`
	Dates          []string     `json:"dates"`
	DaysOfWeek     []int        `json:"days_of_week"`
	SlotLength     int          `json:"slot_length"`
	UserSchedule   [][]bool     `json:"user_schedule"`
	OthersSchedule [][][]int    `json:"others_schedule"`
	UserName       string       `json:"user_name"`
	OthersNames    []string     `json:"others_names"`
	TimeRange      timeRangeDTO `json:"time_range"`
	IsOwner        bool         `json:"is_owner"`
	AbsentReasons  []*string    `json:"absent_reasons"`
}

func toRoomResponse(view application.RoomView) roomResponse {
	return roomResponse{
		EventName:      view.EventName,
		ScheduleType:   int(view.ScheduleType),
		Dates:          view.Dates,
		DaysOfWeek:     view.DaysOfWeek,
		SlotLength:     view.SlotLength,
		UserSchedule:   view.OwnSchedule,
		OthersSchedule: view.OthersSchedule,
		UserName:       view.UserName,
		OthersNames:    view.OthersNames,
		TimeRange:      timeRangeDTO{FromHour: view.TimeRange.FromHour, ToHour: view.TimeRange.ToHour},
		IsOwner:        view.IsOwner,
		AbsentReasons:  view.AbsentReasons,
	}
}
