package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/vncsmyrnk/poker/internal/core/domain"
	"github.com/vncsmyrnk/poker/internal/core/ports"
)

const maxDocumentBytes = 1 << 20

type SessionHandler struct {
	store    ports.SessionStore
	upgrader websocket.Upgrader
	quit     chan struct{}
}

func NewSessionHandler(store ports.SessionStore) *SessionHandler {
	return &SessionHandler{
		store: store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// browsers are already filtered by the CORS policy
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		quit: make(chan struct{}),
	}
}

// Shutdown ends every open subscription. Register it with http.Server.RegisterOnShutdown,
// since Shutdown does not wait for hijacked connections.
func (h *SessionHandler) Shutdown() {
	close(h.quit)
}

func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !domain.ValidID(id) {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentBytes))
	if err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if _, err := domain.DecodeSession(id, body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.store.Create(r.Context(), id, body); err != nil {
		writeStoreError(w, id, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	w.Write(body)
}

func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !domain.ValidID(id) {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}

	data, err := h.store.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, id, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (h *SessionHandler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !domain.ValidID(id) {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}

	var patch domain.Patch
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDocumentBytes)).Decode(&patch); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := patch.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.store.Update(r.Context(), id, patch); err != nil {
		writeStoreError(w, id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeStoreError(w http.ResponseWriter, id string, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		http.Error(w, "session not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrSessionExists):
		http.Error(w, "session already exists", http.StatusConflict)
	case errors.Is(err, domain.ErrInvalidPatch), errors.Is(err, domain.ErrInvalidSessionID):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		log.Error().Err(err).Str("session_id", id).Msg("session store failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
