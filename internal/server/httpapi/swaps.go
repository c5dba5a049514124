package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gofrs/uuid/v5"

	"calswap/internal/model"
)

type swapPayload struct {
	ID               string     `json:"id"`
	RequesterID      string     `json:"requester_id"`
	RequesterEventID string     `json:"requester_event_id"`
	RecipientID      string     `json:"recipient_id"`
	RecipientEventID string     `json:"recipient_event_id"`
	Status           string     `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	ResolvedAt       *time.Time `json:"resolved_at,omitempty"`
}

func toSwapPayload(s *model.SwapRequest) swapPayload {
	return swapPayload{
		ID:               s.ID.String(),
		RequesterID:      s.RequesterID.String(),
		RequesterEventID: s.RequesterEventID.String(),
		RecipientID:      s.RecipientID.String(),
		RecipientEventID: s.RecipientEventID.String(),
		Status:           string(s.Status),
		CreatedAt:        s.CreatedAt,
		ResolvedAt:       s.ResolvedAt,
	}
}

type proposeRequest struct {
	MyEventID    string `json:"my_event_id"`
	TheirEventID string `json:"their_event_id"`
}

func (s *Server) handlePropose(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "no auth")
		return
	}
	var req proposeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body")
		return
	}
	myID, err := uuid.FromString(req.MyEventID)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid my_event_id")
		return
	}
	theirID, err := uuid.FromString(req.TheirEventID)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid their_event_id")
		return
	}

	swap, err := s.swaps.Propose(r.Context(), userID, myID, theirID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSwapPayload(swap))
}

type respondRequest struct {
	Accept bool `json:"accept"`
}

func (s *Server) handleRespond(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "no auth")
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req respondRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body")
		return
	}

	swap, err := s.swaps.Respond(r.Context(), id, userID, req.Accept)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSwapPayload(swap))
}

func (s *Server) handleListIncoming(w http.ResponseWriter, r *http.Request) {
	s.handleListSwaps(w, r, s.swaps.ListIncoming)
}

func (s *Server) handleListOutgoing(w http.ResponseWriter, r *http.Request) {
	s.handleListSwaps(w, r, s.swaps.ListOutgoing)
}

func (s *Server) handleListSwaps(
	w http.ResponseWriter, r *http.Request,
	list func(ctx context.Context, userID uuid.UUID) ([]model.SwapRequest, error),
) {
	userID, ok := UserIDFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "no auth")
		return
	}
	swaps, err := list(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]swapPayload, 0, len(swaps))
	for i := range swaps {
		out = append(out, toSwapPayload(&swaps[i]))
	}
	writeJSON(w, http.StatusOK, out)
}
