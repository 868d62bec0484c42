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
	AddTree(ctx context.Context, caller common.Address, root common.Hash, description string, listSize uint64, payment *uint256.Int) error
	RemoveTree(ctx context.Context, caller common.Address, root common.Hash) error
	UpdateDescription(ctx context.Context, caller common.Address, root common.Hash, newDescription string) error
	IsRootValid(ctx context.Context, root common.Hash) (bool, error)
	TreeInfo(ctx context.Context, root common.Hash) (*TreeRecord, error)
	PlatformFee(ctx context.Context) (*FeeState, error)
	IsNewcomer(ctx context.Context, addr common.Address) (bool, error)
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

func (m *loggingMiddleware) AddTree(ctx context.Context, caller common.Address, root common.Hash, description string, listSize uint64, payment *uint256.Int) error {
	start := time.Now()
	err := m.next.AddTree(ctx, caller, root, description, listSize, payment)
	m.logger.Info("AddTree",
		"root", root.Hex(),
		"caller", caller.Hex(),
		"listSize", listSize,
		"duration", time.Since(start),
		"error", err,
	)
	return err
}

func (m *loggingMiddleware) RemoveTree(ctx context.Context, caller common.Address, root common.Hash) error {
	start := time.Now()
	err := m.next.RemoveTree(ctx, caller, root)
	m.logger.Info("RemoveTree",
		"root", root.Hex(),
		"caller", caller.Hex(),
		"duration", time.Since(start),
		"error", err,
	)
	return err
}

func (m *loggingMiddleware) UpdateDescription(ctx context.Context, caller common.Address, root common.Hash, newDescription string) error {
	start := time.Now()
	err := m.next.UpdateDescription(ctx, caller, root, newDescription)
	m.logger.Info("UpdateDescription",
		"root", root.Hex(),
		"caller", caller.Hex(),
		"duration", time.Since(start),
		"error", err,
	)
	return err
}

func (m *loggingMiddleware) IsRootValid(ctx context.Context, root common.Hash) (bool, error) {
	valid, err := m.next.IsRootValid(ctx, root)
	m.logger.Debug("IsRootValid", "root", root.Hex(), "valid", valid, "error", err)
	return valid, err
}

func (m *loggingMiddleware) TreeInfo(ctx context.Context, root common.Hash) (*TreeRecord, error) {
	rec, err := m.next.TreeInfo(ctx, root)
	m.logger.Debug("TreeInfo", "root", root.Hex(), "error", err)
	return rec, err
}

func (m *loggingMiddleware) PlatformFee(ctx context.Context) (*FeeState, error) {
	return m.next.PlatformFee(ctx)
}

func (m *loggingMiddleware) IsNewcomer(ctx context.Context, addr common.Address) (bool, error) {
	return m.next.IsNewcomer(ctx, addr)
}
