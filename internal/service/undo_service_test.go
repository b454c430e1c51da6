package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-hq/timetable-api/internal/models"
	"github.com/campus-hq/timetable-api/pkg/config"
	appErrors "github.com/campus-hq/timetable-api/pkg/errors"
)

type mockApplier struct {
	mu      sync.Mutex
	applied []models.UndoOperation
	err     error
}

func (m *mockApplier) ApplyInverse(ctx context.Context, op models.UndoOperation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.applied = append(m.applied, op)
	return nil
}

func (m *mockApplier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.applied)
}

func TestUndoRegisterAndExecute(t *testing.T) {
	applier := &mockApplier{}
	svc := NewUndoService(applier, config.UndoConfig{Timeout: time.Minute}, nil)
	defer svc.Shutdown()

	id, err := svc.Register("scheduled_entry", []string{"e1", "e2"}, models.UndoCreate, nil, "creation of 2 schedule entries")
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.Equal(t, 1, svc.PendingCount())
	assert.Greater(t, svc.RemainingTime(id), 0.0)

	message, err := svc.Execute(context.Background(), id)
	require.NoError(t, err)
	assert.Contains(t, message, "reverted")
	assert.Equal(t, 1, applier.count())
	assert.Equal(t, []string{"e1", "e2"}, applier.applied[0].EntityIDs)
	assert.Equal(t, 0, svc.PendingCount())
}

func TestUndoExecuteTwiceFails(t *testing.T) {
	applier := &mockApplier{}
	svc := NewUndoService(applier, config.UndoConfig{Timeout: time.Minute}, nil)
	defer svc.Shutdown()

	id, err := svc.Register("scheduled_entry", []string{"e1"}, models.UndoDelete, nil, "deletion")
	require.NoError(t, err)

	_, err = svc.Execute(context.Background(), id)
	require.NoError(t, err)

	_, err = svc.Execute(context.Background(), id)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUndoNotFound.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 1, applier.count())
}

func TestUndoUnknownIDFails(t *testing.T) {
	svc := NewUndoService(&mockApplier{}, config.UndoConfig{Timeout: time.Minute}, nil)
	defer svc.Shutdown()

	_, err := svc.Execute(context.Background(), "no-such-op")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUndoNotFound.Code, appErrors.FromError(err).Code)
}

func TestUndoExpiresAfterTimeout(t *testing.T) {
	applier := &mockApplier{}
	expired := make(chan models.UndoOperation, 1)
	svc := NewUndoService(applier, config.UndoConfig{Timeout: 20 * time.Millisecond}, nil)
	svc.OnExpire(func(op models.UndoOperation) { expired <- op })
	defer svc.Shutdown()

	id, err := svc.Register("scheduled_entry", []string{"e1"}, models.UndoCreate, nil, "creation")
	require.NoError(t, err)

	select {
	case op := <-expired:
		assert.Equal(t, id, op.ID)
	case <-time.After(time.Second):
		t.Fatal("operation never expired")
	}

	_, err = svc.Execute(context.Background(), id)
	require.Error(t, err)
	assert.Equal(t, 0, applier.count())
	assert.Equal(t, 0.0, svc.RemainingTime(id))
}

func TestUndoExecuteStopsExpiryTimer(t *testing.T) {
	applier := &mockApplier{}
	svc := NewUndoService(applier, config.UndoConfig{Timeout: 30 * time.Millisecond}, nil)
	defer svc.Shutdown()

	id, err := svc.Register("scheduled_entry", []string{"e1"}, models.UndoUpdate, []byte(`{}`), "update")
	require.NoError(t, err)

	_, err = svc.Execute(context.Background(), id)
	require.NoError(t, err)

	// Waiting past the original deadline must not trigger a second apply.
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, applier.count())
}

func TestUndoRegistryFull(t *testing.T) {
	svc := NewUndoService(&mockApplier{}, config.UndoConfig{Timeout: time.Minute, MaxPending: 2}, nil)
	defer svc.Shutdown()

	_, err := svc.Register("scheduled_entry", []string{"a"}, models.UndoCreate, nil, "a")
	require.NoError(t, err)
	_, err = svc.Register("scheduled_entry", []string{"b"}, models.UndoCreate, nil, "b")
	require.NoError(t, err)

	_, err = svc.Register("scheduled_entry", []string{"c"}, models.UndoCreate, nil, "c")
	require.Error(t, err)
}

func TestUndoApplierFailureSurfaces(t *testing.T) {
	applier := &mockApplier{err: errors.New("db down")}
	svc := NewUndoService(applier, config.UndoConfig{Timeout: time.Minute}, nil)
	defer svc.Shutdown()

	id, err := svc.Register("scheduled_entry", []string{"e1"}, models.UndoCreate, nil, "creation")
	require.NoError(t, err)

	_, err = svc.Execute(context.Background(), id)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
