package matching

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/MikeSquared-Agency/Matchmaker/internal/store"
	"github.com/MikeSquared-Agency/Matchmaker/internal/store/memstore"
)

func TestBroadcastFollowsInputOrder(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	e := newTestEngine(t, zap.New(core))

	exact, near := exactShop(), closeShop()
	// broadcast does not filter, so an inactive manufacturer is still listed
	inactive := unrelatedShop()
	inactive.IsActive = false
	src := memstore.New(exact, near, inactive)

	missing := uuid.New()
	order := machiningOrder()
	manifest, err := e.Broadcast(context.Background(), src, order, []uuid.UUID{near.ID, missing, inactive.ID, exact.ID})
	require.NoError(t, err)

	assert.Equal(t, order.ID, manifest.OrderID)
	assert.True(t, manifest.CreatedAt.Equal(testNow))
	require.Len(t, manifest.Manufacturers, 3)
	assert.Equal(t, 3, manifest.ExpectedResponses)

	assert.Equal(t, near.ID, manifest.Manufacturers[0].ManufacturerID)
	assert.Equal(t, inactive.ID, manifest.Manufacturers[1].ManufacturerID)
	assert.Equal(t, exact.ID, manifest.Manufacturers[2].ManufacturerID)
	assert.Equal(t, "Close", manifest.Manufacturers[0].BusinessName)

	for _, entry := range manifest.Manufacturers {
		assert.GreaterOrEqual(t, entry.Score, 0.0)
		assert.LessOrEqual(t, entry.Score, 1.0)
	}
	assert.Greater(t, manifest.Manufacturers[2].Score, manifest.Manufacturers[1].Score)

	notFound := logs.FilterMessage("broadcast target not found").All()
	require.Len(t, notFound, 1)
	assert.Equal(t, missing.String(), notFound[0].ContextMap()["manufacturer_id"])
}

func TestBroadcastEmptyList(t *testing.T) {
	e := newTestEngine(t, nil)
	manifest, err := e.Broadcast(context.Background(), memstore.New(exactShop()), machiningOrder(), nil)
	require.NoError(t, err)
	assert.NotNil(t, manifest.Manufacturers)
	assert.Empty(t, manifest.Manufacturers)
	assert.Zero(t, manifest.ExpectedResponses)
}

func TestBroadcastLeadTime(t *testing.T) {
	e := newTestEngine(t, nil)
	m := exactShop()
	m.StandardLeadTimeDays = intPtr(20)
	m.CapacityUtilizationPct = float64Ptr(95)

	manifest, err := e.Broadcast(context.Background(), memstore.New(m), machiningOrder(), []uuid.UUID{m.ID})
	require.NoError(t, err)
	require.Len(t, manifest.Manufacturers, 1)
	require.NotNil(t, manifest.Manufacturers[0].EstimatedLeadTimeDays)
	assert.Equal(t, 26, *manifest.Manufacturers[0].EstimatedLeadTimeDays)
}

func TestBroadcastSourceError(t *testing.T) {
	e := newTestEngine(t, nil)
	boom := errors.New("timeout")
	src := &fakeSource{get: func([]uuid.UUID) ([]*store.Manufacturer, error) { return nil, boom }}

	_, err := e.Broadcast(context.Background(), src, machiningOrder(), []uuid.UUID{uuid.New()})
	assert.ErrorIs(t, err, boom)

	var me *MatchError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, StageBroadcast, me.Stage)
}

func TestBroadcastNilOrder(t *testing.T) {
	e := newTestEngine(t, nil)
	_, err := e.Broadcast(context.Background(), memstore.New(), nil, nil)
	assert.ErrorIs(t, err, ErrNilOrder)
}
