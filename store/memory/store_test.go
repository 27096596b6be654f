package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/getpup/pupsourcing-projections"
	"github.com/getpup/pupsourcing-projections/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordTransition_AssignsIDAndTimestamp(t *testing.T) {
	s := New()
	ctx := context.Background()

	before := time.Now()
	got, err := s.RecordTransition(ctx, store.Transition{
		CorrelationID: "run-1",
		From:          projections.SubsystemStateReady,
		To:            projections.SubsystemStateStarting,
	})
	after := time.Now()

	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	assert.False(t, got.OccurredAt.Before(before))
	assert.False(t, got.OccurredAt.After(after))
	assert.Equal(t, 1, s.Len())
}

func TestRecordTransition_PreservesProvidedFields(t *testing.T) {
	s := New()
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	got, err := s.RecordTransition(context.Background(), store.Transition{
		ID:         "t-1",
		To:         projections.SubsystemStateReady,
		OccurredAt: at,
	})

	require.NoError(t, err)
	assert.Equal(t, "t-1", got.ID)
	assert.Equal(t, at, got.OccurredAt)
}

func TestRecordTransition_RejectsMissingTarget(t *testing.T) {
	s := New()

	_, err := s.RecordTransition(context.Background(), store.Transition{CorrelationID: "run-1"})

	assert.ErrorIs(t, err, store.ErrInvalidTransition)
	assert.Equal(t, 0, s.Len())
}

func TestListTransitions_FiltersByCorrelationInOrder(t *testing.T) {
	s := New()
	ctx := context.Background()
	steps := []store.Transition{
		{CorrelationID: "run-1", From: projections.SubsystemStateReady, To: projections.SubsystemStateStarting},
		{CorrelationID: "run-2", From: projections.SubsystemStateStopped, To: projections.SubsystemStateStarting},
		{CorrelationID: "run-1", From: projections.SubsystemStateStarting, To: projections.SubsystemStateStarted},
	}
	for _, step := range steps {
		_, err := s.RecordTransition(ctx, step)
		require.NoError(t, err)
	}

	got, err := s.ListTransitions(ctx, "run-1")

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, projections.SubsystemStateStarting, got[0].To)
	assert.Equal(t, projections.SubsystemStateStarted, got[1].To)
}

func TestListTransitions_UnknownCorrelationReturnsEmpty(t *testing.T) {
	s := New()

	got, err := s.ListTransitions(context.Background(), "missing")

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestLatestTransition(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.LatestTransition(ctx)
	assert.ErrorIs(t, err, projections.ErrTransitionNotFound)

	_, err = s.RecordTransition(ctx, store.Transition{To: projections.SubsystemStateReady})
	require.NoError(t, err)
	_, err = s.RecordTransition(ctx, store.Transition{CorrelationID: "run-1", To: projections.SubsystemStateStarting})
	require.NoError(t, err)

	latest, err := s.LatestTransition(ctx)
	require.NoError(t, err)
	assert.Equal(t, projections.SubsystemStateStarting, latest.To)
}

func TestStore_ConcurrentRecords(t *testing.T) {
	s := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.RecordTransition(ctx, store.Transition{CorrelationID: "run-1", To: projections.SubsystemStateStarted})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.ListTransitions(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, got, 20)
}
