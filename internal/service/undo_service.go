package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campus-hq/timetable-api/internal/models"
	"github.com/campus-hq/timetable-api/pkg/config"
	appErrors "github.com/campus-hq/timetable-api/pkg/errors"
)

// UndoApplier executes the inverse of a recorded mutation.
type UndoApplier interface {
	ApplyInverse(ctx context.Context, op models.UndoOperation) error
}

type undoRecord struct {
	op    models.UndoOperation
	timer *time.Timer
}

// UndoService keeps a process-local registry of pending reversible mutations.
// Each record owns exactly one expiry timer; the explicit Execute path and the
// timer race on the same id and whichever takes the record first wins.
type UndoService struct {
	applier  UndoApplier
	cfg      config.UndoConfig
	logger   *zap.Logger
	onExpire func(op models.UndoOperation)

	mu      sync.Mutex
	pending map[string]*undoRecord
}

// NewUndoService constructs an independent registry. Tests and multi-tenant
// callers can hold separate instances; there is no package-level state.
func NewUndoService(applier UndoApplier, cfg config.UndoConfig, logger *zap.Logger) *UndoService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxPending <= 0 {
		cfg.MaxPending = 1000
	}
	return &UndoService{
		applier: applier,
		cfg:     cfg,
		logger:  logger,
		pending: make(map[string]*undoRecord),
	}
}

// OnExpire installs a hook invoked after an operation lapses unexecuted.
func (s *UndoService) OnExpire(fn func(op models.UndoOperation)) {
	s.onExpire = fn
}

// Register stores a pending operation and starts its expiry timer. It returns
// immediately; expiry happens on the timer goroutine.
func (s *UndoService) Register(entityType string, entityIDs []string, kind models.UndoKind, inverseData []byte, description string) (string, error) {
	now := time.Now().UTC()
	op := models.UndoOperation{
		ID:          uuid.NewString(),
		EntityType:  entityType,
		EntityIDs:   entityIDs,
		Kind:        kind,
		InverseData: inverseData,
		Description: description,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.cfg.Timeout),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) >= s.cfg.MaxPending {
		return "", appErrors.Clone(appErrors.ErrInternal, "undo registry is full")
	}
	record := &undoRecord{op: op}
	record.timer = time.AfterFunc(s.cfg.Timeout, func() { s.expire(op.ID) })
	s.pending[op.ID] = record

	s.logger.Sugar().Debugw("undo operation registered",
		"operation_id", op.ID, "entity", entityType, "kind", kind, "expires_at", op.ExpiresAt)
	return op.ID, nil
}

// Execute applies the inverse mutation for a pending operation. The record is
// taken atomically before the inverse runs, so a racing expiry (or a second
// Execute) becomes a no-op and the inverse is never applied twice.
func (s *UndoService) Execute(ctx context.Context, operationID string) (string, error) {
	record, ok := s.take(operationID)
	if !ok {
		return "", appErrors.Clone(appErrors.ErrUndoNotFound, "nothing to undo: operation unknown or expired")
	}
	record.timer.Stop()

	if err := s.applier.ApplyInverse(ctx, record.op); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply undo")
	}

	s.logger.Sugar().Infow("undo operation executed", "operation_id", operationID, "kind", record.op.Kind)
	return fmt.Sprintf("reverted: %s", record.op.Description), nil
}

// RemainingTime returns the seconds left before the operation expires,
// clamped to zero. Unknown ids report zero.
func (s *UndoService) RemainingTime(operationID string) float64 {
	s.mu.Lock()
	record, ok := s.pending[operationID]
	s.mu.Unlock()
	if !ok {
		return 0
	}
	remaining := time.Until(record.op.ExpiresAt).Seconds()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// PendingCount reports registry occupancy for observability.
func (s *UndoService) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Shutdown stops all timers without applying anything.
func (s *UndoService) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, record := range s.pending {
		record.timer.Stop()
		delete(s.pending, id)
	}
}

// take removes and returns the record under the registry lock. This is the
// atomic claim both Execute and expiry go through.
func (s *UndoService) take(operationID string) (*undoRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.pending[operationID]
	if ok {
		delete(s.pending, operationID)
	}
	return record, ok
}

func (s *UndoService) expire(operationID string) {
	if record, ok := s.take(operationID); ok {
		s.logger.Sugar().Debugw("undo operation expired", "operation_id", operationID, "kind", record.op.Kind)
		if s.onExpire != nil {
			s.onExpire(record.op)
		}
	}
}
