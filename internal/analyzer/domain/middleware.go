package domain

import (
	"context"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// loggingService is the interface required for logging middleware.
type loggingService interface {
	Analyze(ctx context.Context, addr common.Address) (*Analysis, error)
	BasicInfo(ctx context.Context, addr common.Address) (*BasicInfo, error)
	DeploymentCost(codeSize, gasPrice uint64) (*uint256.Int, error)
	HasFunction(ctx context.Context, addr common.Address, selector [4]byte) (bool, error)
	EstimateGas(ctx context.Context, addr common.Address, selector [4]byte, callData []byte) (*GasEstimate, error)
}

// LoggingMiddleware returns a service middleware that logs all operations.
func LoggingMiddleware(logger *slog.Logger) func(loggingService) *loggingMiddleware {
	return func(next loggingService) *loggingMiddleware {
		return &loggingMiddleware{
			next:   next,
			logger: logger,
		}
	}
}

type loggingMiddleware struct {
	next   loggingService
	logger *slog.Logger
}

func (m *loggingMiddleware) Analyze(ctx context.Context, addr common.Address) (*Analysis, error) {
	start := time.Now()
	analysis, err := m.next.Analyze(ctx, addr)
	m.logger.Info("Analyze",
		"address", addr.Hex(),
		"duration", time.Since(start),
		"error", err,
	)
	return analysis, err
}

func (m *loggingMiddleware) BasicInfo(ctx context.Context, addr common.Address) (*BasicInfo, error) {
	start := time.Now()
	info, err := m.next.BasicInfo(ctx, addr)
	m.logger.Debug("BasicInfo",
		"address", addr.Hex(),
		"duration", time.Since(start),
		"error", err,
	)
	return info, err
}

func (m *loggingMiddleware) DeploymentCost(codeSize, gasPrice uint64) (*uint256.Int, error) {
	return m.next.DeploymentCost(codeSize, gasPrice)
}

func (m *loggingMiddleware) HasFunction(ctx context.Context, addr common.Address, selector [4]byte) (bool, error) {
	start := time.Now()
	ok, err := m.next.HasFunction(ctx, addr, selector)
	m.logger.Debug("HasFunction",
		"address", addr.Hex(),
		"duration", time.Since(start),
		"error", err,
	)
	return ok, err
}

func (m *loggingMiddleware) EstimateGas(ctx context.Context, addr common.Address, selector [4]byte, callData []byte) (*GasEstimate, error) {
	start := time.Now()
	est, err := m.next.EstimateGas(ctx, addr, selector, callData)
	m.logger.Info("EstimateGas",
		"address", addr.Hex(),
		"callDataBytes", len(callData),
		"duration", time.Since(start),
		"error", err,
	)
	return est, err
}
