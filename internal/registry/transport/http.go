// Package transport provides HTTP handlers for the registry domain.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/holiman/uint256"

	"github.com/ledgerlens/ledgerlens/internal/observability/metrics"
	"github.com/ledgerlens/ledgerlens/internal/registry/domain"
	"github.com/ledgerlens/ledgerlens/internal/validation"
)

// Service is the registry domain interface the transport depends on.
type Service interface {
	AddTree(ctx context.Context, caller common.Address, root common.Hash, description string, listSize uint64, payment *uint256.Int) error
	RemoveTree(ctx context.Context, caller common.Address, root common.Hash) error
	UpdateDescription(ctx context.Context, caller common.Address, root common.Hash, newDescription string) error
	IsRootValid(ctx context.Context, root common.Hash) (bool, error)
	TreeInfo(ctx context.Context, root common.Hash) (*domain.TreeRecord, error)
	PlatformFee(ctx context.Context) (*domain.FeeState, error)
	IsNewcomer(ctx context.Context, addr common.Address) (bool, error)
}

// Handler handles HTTP requests for the registry.
type Handler struct {
	svc Service
}

// NewHandler creates a new registry HTTP handler.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers all registry routes on a chi router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/trees", h.handleAddTree)
	r.Delete("/trees/{root}", h.handleRemoveTree)
	r.Patch("/trees/{root}", h.handleUpdateTree)
	r.Get("/trees/{root}", h.handleTreeInfo)
	r.Get("/trees/{root}/valid", h.handleIsRootValid)
	r.Get("/fee", h.handleFee)
	r.Get("/newcomers/{address}", h.handleNewcomer)
}

func (h *Handler) handleAddTree(w http.ResponseWriter, r *http.Request) {
	var req AddTreeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON")
		return
	}

	caller, err := validation.ParseAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ADDRESS", err.Error())
		return
	}
	root, err := validation.ParseRoot(req.Root)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ROOT", err.Error())
		return
	}
	payment, err := validation.ParseWei(req.Payment)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	if err := h.svc.AddTree(r.Context(), caller, root, req.Description, req.ListSize, payment); err != nil {
		metrics.TreeRegister("error")
		writeDomainError(w, err, "Failed to register tree")
		return
	}

	metrics.TreeRegister("ok")
	writeJSON(w, http.StatusCreated, map[string]any{
		"root":    strings.ToLower(root.Hex()),
		"creator": strings.ToLower(caller.Hex()),
		"message": "Tree registered successfully",
	})
}

func (h *Handler) handleRemoveTree(w http.ResponseWriter, r *http.Request) {
	root, err := validation.ParseRoot(chi.URLParam(r, "root"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ROOT", err.Error())
		return
	}

	var req RemoveTreeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON")
		return
	}
	caller, err := validation.ParseAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ADDRESS", err.Error())
		return
	}

	if err := h.svc.RemoveTree(r.Context(), caller, root); err != nil {
		metrics.TreeRemove("error")
		writeDomainError(w, err, "Failed to remove tree")
		return
	}

	metrics.TreeRemove("ok")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUpdateTree(w http.ResponseWriter, r *http.Request) {
	root, err := validation.ParseRoot(chi.URLParam(r, "root"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ROOT", err.Error())
		return
	}

	var req UpdateTreeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON")
		return
	}
	caller, err := validation.ParseAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ADDRESS", err.Error())
		return
	}

	if err := h.svc.UpdateDescription(r.Context(), caller, root, req.Description); err != nil {
		metrics.TreeUpdate("error")
		writeDomainError(w, err, "Failed to update tree")
		return
	}

	metrics.TreeUpdate("ok")
	writeJSON(w, http.StatusOK, map[string]any{
		"root":    strings.ToLower(root.Hex()),
		"message": "Description updated successfully",
	})
}

func (h *Handler) handleTreeInfo(w http.ResponseWriter, r *http.Request) {
	root, err := validation.ParseRoot(chi.URLParam(r, "root"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ROOT", err.Error())
		return
	}

	rec, err := h.svc.TreeInfo(r.Context(), root)
	if err != nil {
		writeDomainError(w, err, "Failed to read tree")
		return
	}

	writeJSON(w, http.StatusOK, TreeResponse{
		Root:        strings.ToLower(rec.Root.Hex()),
		Description: rec.Description,
		Timestamp:   rec.Timestamp,
		ListSize:    rec.ListSize,
		Creator:     strings.ToLower(rec.Creator.Hex()),
		IsActive:    rec.IsActive,
	})
}

func (h *Handler) handleIsRootValid(w http.ResponseWriter, r *http.Request) {
	root, err := validation.ParseRoot(chi.URLParam(r, "root"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ROOT", err.Error())
		return
	}

	valid, err := h.svc.IsRootValid(r.Context(), root)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to check root")
		return
	}

	writeJSON(w, http.StatusOK, ValidityResponse{
		Root:  strings.ToLower(root.Hex()),
		Valid: valid,
	})
}

func (h *Handler) handleFee(w http.ResponseWriter, r *http.Request) {
	fs, err := h.svc.PlatformFee(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to read fee state")
		return
	}

	resp := FeeResponse{Fee: fs.Fee.Dec()}
	if fs.Treasury != (common.Address{}) {
		resp.Treasury = strings.ToLower(fs.Treasury.Hex())
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleNewcomer(w http.ResponseWriter, r *http.Request) {
	addr, err := validation.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ADDRESS", err.Error())
		return
	}

	newcomer, err := h.svc.IsNewcomer(r.Context(), addr)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to check registrant")
		return
	}

	writeJSON(w, http.StatusOK, NewcomerResponse{
		Address:  strings.ToLower(addr.Hex()),
		Newcomer: newcomer,
	})
}

// writeDomainError maps registry domain errors to HTTP error responses.
func writeDomainError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrInvalidRoot):
		writeError(w, http.StatusBadRequest, "INVALID_ROOT", err.Error())
	case errors.Is(err, domain.ErrDuplicateRoot):
		writeError(w, http.StatusConflict, "DUPLICATE_ROOT", err.Error())
	case errors.Is(err, domain.ErrRootNotFound):
		writeError(w, http.StatusNotFound, "ROOT_NOT_FOUND", err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "UNAUTHORIZED", err.Error())
	case errors.Is(err, domain.ErrInactiveTree):
		writeError(w, http.StatusConflict, "INACTIVE_TREE", err.Error())
	case errors.Is(err, domain.ErrInsufficientFee):
		writeError(w, http.StatusPaymentRequired, "INSUFFICIENT_FEE", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", fallback)
	}
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error: ErrorDetail{Code: code, Message: message},
	})
}
