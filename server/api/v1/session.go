package v1

import (
	"context"
	"net/http"

	"github.com/zintix-labs/slot666/dto"
	"github.com/zintix-labs/slot666/errs"
	"github.com/zintix-labs/slot666/server/httperr"
	"github.com/zintix-labs/slot666/server/netsvr"
)

// CreateSession POST /v1/sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	req, err := dto.DecodeCreateSessionRequest(r)
	if err != nil {
		h.fail(w, "create session", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	snap, err := h.rt.CreateSession(ctx, req.Items)
	if err != nil {
		h.fail(w, "create session", err)
		return
	}
	view, err := h.rt.Session(ctx, snap.ID)
	if err != nil {
		h.fail(w, "create session", err)
		return
	}
	w.Header().Set("Location", "/v1/sessions/"+snap.ID)
	h.writeJSON(w, http.StatusCreated, dto.NewSessionDTO(view))
}

// GetSession GET /v1/sessions/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	view, err := h.rt.Session(ctx, id)
	if err != nil {
		h.fail(w, "get session", err)
		return
	}
	h.writeJSON(w, http.StatusOK, dto.NewSessionDTO(view))
}

// Spin POST /v1/sessions/{id}/spin
//
// ledger 寫入失敗時仍回傳 200 與 pending=true，呼叫端之後以 settle 重試。
func (h *Handler) Spin(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	res, err := h.rt.Spin(ctx, id)
	if err != nil {
		h.fail(w, "spin", err)
		return
	}
	h.writeJSON(w, http.StatusOK, dto.NewSpinResultDTO(res))
}

// Settle POST /v1/sessions/{id}/settle
func (h *Handler) Settle(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	view, err := h.rt.Settle(ctx, id)
	if err != nil {
		h.fail(w, "settle", err)
		return
	}
	h.writeJSON(w, http.StatusOK, dto.NewSessionDTO(view))
}

func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := netsvr.URLParam(r, "id")
	if id == "" || len(id) > 128 {
		httperr.Errs(w, errs.Malformed("invalid session id"))
		return "", false
	}
	return id, true
}
