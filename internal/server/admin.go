package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerlens/ledgerlens/internal/events"
	"github.com/ledgerlens/ledgerlens/internal/storage"
	"github.com/ledgerlens/ledgerlens/internal/validation"
)

// setFeeRequest is the admin request to change the platform fee.
type setFeeRequest struct {
	Fee      string `json:"fee"`
	Treasury string `json:"treasury,omitempty"`
}

// seedAccountRequest is the admin request to seed a ledger account.
type seedAccountRequest struct {
	Code    string `json:"code,omitempty"`
	Balance string `json:"balance,omitempty"`
}

// handleSetFee replaces the platform fee state. The write and its event
// commit together; the registry picks up the new fee on the next charge.
func (s *Server) handleSetFee(w http.ResponseWriter, r *http.Request) {
	var req setFeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON")
		return
	}

	fee, err := validation.ParseWei(req.Fee)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	treasury := ""
	if req.Treasury != "" {
		addr, err := validation.ParseAddress(req.Treasury)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_ADDRESS", err.Error())
			return
		}
		treasury = strings.ToLower(addr.Hex())
	}

	payload, _ := json.Marshal(map[string]any{
		"fee":      fee.Dec(),
		"treasury": treasury,
	})

	seq, err := s.store.SetFeeState(r.Context(), fee.Dec(), treasury,
		storage.EventInput{Type: events.TypeFeeUpdated, Payload: payload})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update fee state")
		return
	}
	s.bus.Publish(events.Event{Seq: seq, Type: events.TypeFeeUpdated, Payload: payload})

	resp := map[string]any{"fee": fee.Dec()}
	if treasury != "" {
		resp["treasury"] = treasury
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSeedAccount writes code and balance for an address. This is how
// deployed contracts enter the ledger the analyzer reads.
func (s *Server) handleSeedAccount(w http.ResponseWriter, r *http.Request) {
	addr, err := validation.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ADDRESS", err.Error())
		return
	}

	var req seedAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON")
		return
	}

	code, err := validation.ParseCallData(req.Code)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	balance, err := validation.ParseWei(req.Balance)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	key := strings.ToLower(addr.Hex())
	if err := s.store.UpsertAccount(r.Context(), key, code, balance.Dec()); err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to seed account")
		return
	}

	payload, _ := json.Marshal(map[string]any{
		"address":  key,
		"codeSize": len(code),
		"balance":  balance.Dec(),
	})
	seq, err := s.store.AppendEvent(r.Context(), storage.EventInput{Type: events.TypeAccountSeeded, Payload: payload})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to record event")
		return
	}
	s.bus.Publish(events.Event{Seq: seq, Type: events.TypeAccountSeeded, Payload: payload})

	writeJSON(w, http.StatusOK, map[string]any{
		"address":  key,
		"codeSize": len(code),
		"balance":  balance.Dec(),
	})
}
