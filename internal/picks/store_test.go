package picks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddsmith/picks-engine/internal/models"
)

func TestStore_ReadBeforeWrite(t *testing.T) {
	s := NewStore()
	_, ok := s.Read()
	assert.False(t, ok)
}

func TestStore_WriteThenRead(t *testing.T) {
	s := NewStore()
	written := models.PicksSnapshot{
		BestBets:    []models.RankedPick{{ID: "p1", Tier: models.TierLock}},
		LastUpdated: time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC),
	}
	s.Write(written)

	snap, ok := s.Read()
	require.True(t, ok)
	assert.Equal(t, written.LastUpdated, snap.LastUpdated)
	require.Len(t, snap.BestBets, 1)
	assert.Equal(t, "p1", snap.BestBets[0].ID)
}

func TestStore_Clear(t *testing.T) {
	s := NewStore()
	s.Write(models.PicksSnapshot{LastUpdated: time.Now()})
	s.Clear()

	snap, ok := s.Read()
	assert.False(t, ok)
	assert.True(t, snap.LastUpdated.IsZero())
}
