package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlens/ledgerlens/internal/analyzer/domain"
	"github.com/ledgerlens/ledgerlens/internal/gas"
)

// mockService implements Service for testing
type mockService struct {
	codeSizes map[common.Address]uint64
	balances  map[common.Address]string
}

func newMockService() *mockService {
	return &mockService{
		codeSizes: make(map[common.Address]uint64),
		balances:  make(map[common.Address]string),
	}
}

func (m *mockService) Analyze(ctx context.Context, addr common.Address) (*domain.Analysis, error) {
	if addr == (common.Address{}) {
		return nil, domain.ErrInvalidAddress
	}
	size := m.codeSizes[addr]
	cost := uint256.NewInt(0)
	if size > 0 {
		cost, _ = gas.DeploymentCost(size, 1_000_000_000)
	}
	return &domain.Analysis{
		Address:                addr,
		IsContract:             size > 0,
		CodeSize:               size,
		ContractSize:           size,
		EstimatedDeploymentGas: cost,
		GasPrice:               1_000_000_000,
	}, nil
}

func (m *mockService) BasicInfo(ctx context.Context, addr common.Address) (*domain.BasicInfo, error) {
	balance := uint256.NewInt(0)
	if b, ok := m.balances[addr]; ok {
		balance, _ = uint256.FromDecimal(b)
	}
	size := m.codeSizes[addr]
	return &domain.BasicInfo{
		Address:    addr,
		CodeSize:   size,
		Balance:    balance,
		IsContract: size > 0,
	}, nil
}

func (m *mockService) DeploymentCost(codeSize, gasPrice uint64) (*uint256.Int, error) {
	return gas.DeploymentCost(codeSize, gasPrice)
}

func (m *mockService) HasFunction(ctx context.Context, addr common.Address, selector [4]byte) (bool, error) {
	return m.codeSizes[addr] > 0, nil
}

func (m *mockService) EstimateGas(ctx context.Context, addr common.Address, selector [4]byte, callData []byte) (*domain.GasEstimate, error) {
	success := !(selector == ([4]byte{}) && len(callData) > 0 && m.codeSizes[addr] > 0)
	return &domain.GasEstimate{Success: success, GasUsed: 21064, GasPrice: 1_000_000_000}, nil
}

type staticPrice uint64

func (p staticPrice) GasPrice() uint64 { return uint64(p) }

func setupRouter(svc Service) *chi.Mux {
	r := chi.NewRouter()
	h := NewHandler(svc, staticPrice(1_000_000_000))
	r.Route("/analyzer", func(r chi.Router) {
		h.RegisterRoutes(r)
	})
	return r
}

const (
	testContract = "0x1111111111111111111111111111111111111111"
	testEOA      = "0x2222222222222222222222222222222222222222"
)

func TestHandler_Analyze(t *testing.T) {
	svc := newMockService()
	svc.codeSizes[common.HexToAddress(testContract)] = 100
	router := setupRouter(svc)

	t.Run("contract", func(t *testing.T) {
		body, _ := json.Marshal(AnalyzeRequest{Address: testContract})
		req := httptest.NewRequest("POST", "/analyzer/analyze", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp AnalyzeResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, testContract, resp.Address)
		assert.True(t, resp.IsContract)
		assert.Equal(t, int64(100), resp.CodeSize)
		assert.Equal(t, "41000000000000", resp.EstimatedDeploymentGas)
	})

	t.Run("malformed address", func(t *testing.T) {
		body, _ := json.Marshal(AnalyzeRequest{Address: "0x1234"})
		req := httptest.NewRequest("POST", "/analyzer/analyze", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assertErrorCode(t, rec, "INVALID_ADDRESS")
	})

	t.Run("zero address", func(t *testing.T) {
		body, _ := json.Marshal(AnalyzeRequest{Address: "0x0000000000000000000000000000000000000000"})
		req := httptest.NewRequest("POST", "/analyzer/analyze", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assertErrorCode(t, rec, "INVALID_ADDRESS")
	})

	t.Run("invalid json", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/analyzer/analyze", bytes.NewReader([]byte("{")))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_BasicInfo(t *testing.T) {
	svc := newMockService()
	svc.codeSizes[common.HexToAddress(testContract)] = 64
	svc.balances[common.HexToAddress(testContract)] = "1000000000000000000"
	router := setupRouter(svc)

	t.Run("existing account", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/analyzer/accounts/"+testContract, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp BasicInfoResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, int64(64), resp.CodeSize)
		assert.Equal(t, "1000000000000000000", resp.Balance)
		assert.True(t, resp.IsContract)
	})

	t.Run("malformed address", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/analyzer/accounts/nothex", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_HasFunction(t *testing.T) {
	svc := newMockService()
	svc.codeSizes[common.HexToAddress(testContract)] = 10
	router := setupRouter(svc)

	t.Run("contract has function", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/analyzer/accounts/"+testContract+"/has-function?selector=0xa9059cbb", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp HasFunctionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.HasFunction)
		assert.Equal(t, "0xa9059cbb", resp.Selector)
	})

	t.Run("eoa has no functions", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/analyzer/accounts/"+testEOA+"/has-function?selector=0xa9059cbb", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp HasFunctionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.False(t, resp.HasFunction)
	})

	t.Run("missing selector", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/analyzer/accounts/"+testContract+"/has-function", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_DeploymentCost(t *testing.T) {
	router := setupRouter(newMockService())

	t.Run("explicit gas price", func(t *testing.T) {
		body, _ := json.Marshal(DeploymentCostRequest{CodeSize: 100, GasPrice: 2})
		req := httptest.NewRequest("POST", "/analyzer/deployment-cost", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp DeploymentCostResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, uint64(2), resp.GasPrice)
		// (21000 + 100*200) * 2
		assert.Equal(t, "82000", resp.Cost)
	})

	t.Run("omitted gas price uses oracle", func(t *testing.T) {
		body, _ := json.Marshal(DeploymentCostRequest{CodeSize: 100})
		req := httptest.NewRequest("POST", "/analyzer/deployment-cost", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp DeploymentCostResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, uint64(1_000_000_000), resp.GasPrice)
	})

	t.Run("overflow", func(t *testing.T) {
		body, _ := json.Marshal(DeploymentCostRequest{CodeSize: ^uint64(0), GasPrice: 1})
		req := httptest.NewRequest("POST", "/analyzer/deployment-cost", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assertErrorCode(t, rec, "OVERFLOW")
	})
}

func TestHandler_EstimateGas(t *testing.T) {
	svc := newMockService()
	svc.codeSizes[common.HexToAddress(testContract)] = 10
	router := setupRouter(svc)

	t.Run("success", func(t *testing.T) {
		body, _ := json.Marshal(EstimateGasRequest{Address: testContract, Selector: "0xa9059cbb"})
		req := httptest.NewRequest("POST", "/analyzer/estimate-gas", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp EstimateGasResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, uint64(21064), resp.GasUsed)
	})

	t.Run("invalid selector", func(t *testing.T) {
		body, _ := json.Marshal(EstimateGasRequest{Address: testContract, Selector: "0xzz"})
		req := httptest.NewRequest("POST", "/analyzer/estimate-gas", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid call data", func(t *testing.T) {
		body, _ := json.Marshal(EstimateGasRequest{Address: testContract, Selector: "0xa9059cbb", CallData: "0xzz"})
		req := httptest.NewRequest("POST", "/analyzer/estimate-gas", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func assertErrorCode(t *testing.T, rec *httptest.ResponseRecorder, code string) {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, code, resp.Error.Code)
}
