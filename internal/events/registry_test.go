package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Decode(t *testing.T) {
	r := ImportEvents()

	original := &ImportConflicted{
		BaseEvent:  NewBaseEvent(EventImportConflicted, EntityFile, 0),
		BatchID:    "b1",
		Source:     "/import/game.bin",
		Dest:       "/library/conflicts/game.bin",
		Candidates: []string{"psx", "segacd", "saturn"},
		Reason:     "ambiguous system",
	}
	payload, err := json.Marshal(original)
	require.NoError(t, err)

	e, err := r.Decode(RawEvent{EventType: EventImportConflicted, Payload: string(payload)})
	require.NoError(t, err)

	got, ok := e.(*ImportConflicted)
	require.True(t, ok)
	assert.Equal(t, original.Candidates, got.Candidates)
	assert.Equal(t, EventImportConflicted, got.EventType())
}

func TestRegistry_DecodeFromLog(t *testing.T) {
	log := NewEventLog(setupTestDB(t))
	_, err := log.Append(&BatchCompleted{
		BaseEvent:  NewBaseEvent(EventBatchCompleted, EntityBatch, 0),
		BatchID:    "b2",
		Committed:  3,
		Conflicted: 1,
	})
	require.NoError(t, err)

	rows, err := log.Recent(EventBatchCompleted, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	e, err := ImportEvents().Decode(rows[0])
	require.NoError(t, err)
	done, ok := e.(*BatchCompleted)
	require.True(t, ok)
	assert.Equal(t, "b2", done.BatchID)
	assert.Equal(t, 3, done.Committed)
	assert.Equal(t, 1, done.Conflicted)
}

func TestRegistry_UnknownType(t *testing.T) {
	_, err := ImportEvents().Decode(RawEvent{EventType: "nope", Payload: "{}"})
	assert.ErrorIs(t, err, ErrUnknownEvent)
}

func TestRegistry_BadPayload(t *testing.T) {
	_, err := ImportEvents().Decode(RawEvent{EventType: EventBatchStarted, Payload: "{"})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnknownEvent)
}

func TestRegistry_Types(t *testing.T) {
	r := ImportEvents()
	types := r.Types()
	assert.Len(t, types, 6)
	assert.IsNonDecreasing(t, types)
	assert.True(t, r.Known(EventCatalogChanged))
	assert.False(t, r.Known("test.created"))
}
