// Package transport provides HTTP handlers for the analyzer domain.
package transport

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/holiman/uint256"

	"github.com/ledgerlens/ledgerlens/internal/analyzer/domain"
	"github.com/ledgerlens/ledgerlens/internal/gas"
	"github.com/ledgerlens/ledgerlens/internal/observability/metrics"
	"github.com/ledgerlens/ledgerlens/internal/validation"
)

// Service is the analyzer domain interface the transport depends on.
type Service interface {
	Analyze(ctx context.Context, addr common.Address) (*domain.Analysis, error)
	BasicInfo(ctx context.Context, addr common.Address) (*domain.BasicInfo, error)
	DeploymentCost(codeSize, gasPrice uint64) (*uint256.Int, error)
	HasFunction(ctx context.Context, addr common.Address, selector [4]byte) (bool, error)
	EstimateGas(ctx context.Context, addr common.Address, selector [4]byte, callData []byte) (*domain.GasEstimate, error)
}

// Handler handles HTTP requests for the analyzer.
type Handler struct {
	svc    Service
	prices gas.PriceSource
}

// NewHandler creates a new analyzer HTTP handler. The price source fills
// in the oracle gas price when a cost request omits one.
func NewHandler(svc Service, prices gas.PriceSource) *Handler {
	return &Handler{svc: svc, prices: prices}
}

// RegisterRoutes registers all analyzer routes on a chi router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/analyze", h.handleAnalyze)
	r.Get("/accounts/{address}", h.handleBasicInfo)
	r.Get("/accounts/{address}/has-function", h.handleHasFunction)
	r.Post("/deployment-cost", h.handleDeploymentCost)
	r.Post("/estimate-gas", h.handleEstimateGas)
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON")
		return
	}

	addr, err := validation.ParseAddress(req.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ADDRESS", err.Error())
		return
	}

	analysis, err := h.svc.Analyze(r.Context(), addr)
	if err != nil {
		metrics.Analyze("error")
		switch {
		case errors.Is(err, domain.ErrInvalidAddress):
			writeError(w, http.StatusBadRequest, "INVALID_ADDRESS", err.Error())
		case errors.Is(err, domain.ErrOverflow):
			writeError(w, http.StatusUnprocessableEntity, "OVERFLOW", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to analyze account")
		}
		return
	}

	metrics.Analyze("ok")
	writeJSON(w, http.StatusOK, AnalyzeResponse{
		Address:                strings.ToLower(analysis.Address.Hex()),
		IsContract:             analysis.IsContract,
		CodeSize:               int64(analysis.CodeSize),
		ContractSize:           int64(analysis.ContractSize),
		EstimatedDeploymentGas: analysis.EstimatedDeploymentGas.Dec(),
		GasPrice:               analysis.GasPrice,
	})
}

func (h *Handler) handleBasicInfo(w http.ResponseWriter, r *http.Request) {
	addr, err := validation.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ADDRESS", err.Error())
		return
	}

	info, err := h.svc.BasicInfo(r.Context(), addr)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to read account")
		return
	}

	writeJSON(w, http.StatusOK, BasicInfoResponse{
		Address:    strings.ToLower(info.Address.Hex()),
		CodeSize:   int64(info.CodeSize),
		Balance:    info.Balance.Dec(),
		IsContract: info.IsContract,
	})
}

func (h *Handler) handleHasFunction(w http.ResponseWriter, r *http.Request) {
	addr, err := validation.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ADDRESS", err.Error())
		return
	}

	selector, err := validation.ParseSelector(r.URL.Query().Get("selector"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	ok, err := h.svc.HasFunction(r.Context(), addr, selector)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to check function")
		return
	}

	writeJSON(w, http.StatusOK, HasFunctionResponse{
		Address:     strings.ToLower(addr.Hex()),
		Selector:    "0x" + hex.EncodeToString(selector[:]),
		HasFunction: ok,
	})
}

func (h *Handler) handleDeploymentCost(w http.ResponseWriter, r *http.Request) {
	var req DeploymentCostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON")
		return
	}

	gasPrice := req.GasPrice
	if gasPrice == 0 {
		gasPrice = h.prices.GasPrice()
	}

	cost, err := h.svc.DeploymentCost(req.CodeSize, gasPrice)
	if err != nil {
		if errors.Is(err, domain.ErrOverflow) {
			writeError(w, http.StatusUnprocessableEntity, "OVERFLOW", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to compute cost")
		return
	}

	writeJSON(w, http.StatusOK, DeploymentCostResponse{
		CodeSize: req.CodeSize,
		GasPrice: gasPrice,
		Cost:     cost.Dec(),
	})
}

func (h *Handler) handleEstimateGas(w http.ResponseWriter, r *http.Request) {
	var req EstimateGasRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON")
		return
	}

	addr, err := validation.ParseAddress(req.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ADDRESS", err.Error())
		return
	}

	selector, err := validation.ParseSelector(req.Selector)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	callData, err := validation.ParseCallData(req.CallData)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	est, err := h.svc.EstimateGas(r.Context(), addr, selector, callData)
	if err != nil {
		metrics.GasEstimate("error", "error")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to estimate gas")
		return
	}

	outcome := "ok"
	if !est.Success {
		outcome = "revert"
	}
	metrics.GasEstimate("ok", outcome)

	writeJSON(w, http.StatusOK, EstimateGasResponse{
		Success:  est.Success,
		GasUsed:  est.GasUsed,
		GasPrice: est.GasPrice,
	})
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
