package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tolarian/cardtable-backend/internal/game"
	"github.com/tolarian/cardtable-backend/internal/hub"
	"github.com/tolarian/cardtable-backend/internal/session"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, struct {
		Error string `json:"error"`
	}{Error: msg})
}

// getRoom resolves a code through the hub; nil means not found.
func getRoom(h *hub.Hub, code string) *session.Session {
	reply := make(chan *session.Session, 1)
	h.Inbox() <- hub.GetRoom{Code: code, Reply: reply}
	return <-reply
}

// GenCode hands out a code that is unused at call time. The client is
// expected to follow up with CreateRoom; a lost race there surfaces as
// a 409.
func GenCode(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan hub.CodeReply, 1)
		h.Inbox() <- hub.GenerateCode{Reply: reply}
		res := <-reply
		if res.Err != nil {
			log.Error("code generation failed", zap.Error(res.Err))
			writeError(w, http.StatusInternalServerError, "failed to generate room code")
			return
		}
		writeJSON(w, http.StatusOK, struct {
			RoomID string `json:"roomId"`
		}{RoomID: res.Code})
	}
}

func CreateRoom(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ID == "" {
			writeError(w, http.StatusBadRequest, "Room ID required")
			return
		}

		reply := make(chan error, 1)
		h.Inbox() <- hub.CreateRoom{Code: body.ID, Reply: reply}
		if err := <-reply; err != nil {
			writeError(w, http.StatusConflict, "Room already exists")
			return
		}

		writeJSON(w, http.StatusCreated, struct {
			Message string `json:"message"`
			RoomID  string `json:"roomId"`
		}{Message: "Room created", RoomID: body.ID})
	}
}

func StartRoom(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "id")
		sess := getRoom(h, code)
		if sess == nil {
			writeError(w, http.StatusNotFound, "Room not found")
			return
		}

		switch err := sess.MarkStarted(); {
		case errors.Is(err, game.ErrAlreadyStarted):
			writeError(w, http.StatusConflict, "Room already started")
		case errors.Is(err, session.ErrClosed):
			writeError(w, http.StatusNotFound, "Room not found")
		default:
			writeJSON(w, http.StatusOK, struct {
				Message string `json:"message"`
			}{Message: "Room started"})
		}
	}
}

func ListRooms(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan []string, 1)
		h.Inbox() <- hub.ListRooms{Reply: reply}
		writeJSON(w, http.StatusOK, struct {
			Rooms []string `json:"rooms"`
		}{Rooms: <-reply})
	}
}

func GetRoom(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "id")
		sess := getRoom(h, code)
		if sess == nil {
			writeError(w, http.StatusNotFound, "Room not found")
			return
		}
		view, ok := sess.State()
		if !ok {
			writeError(w, http.StatusNotFound, "Room not found")
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Room any `json:"room"`
		}{Room: view.Room})
	}
}

func RoomExists(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "id")
		if getRoom(h, code) == nil {
			writeError(w, http.StatusNotFound, "Room not found")
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Exists bool `json:"exists"`
		}{Exists: true})
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
