package audit

import (
	"context"
	"testing"

	"github.com/fentz26/nextask/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	entries []models.PDREntry
}

func (r *recordingSink) WritePDR(_ context.Context, action, inputsHash, outcome, taskID, details string) (*models.PDREntry, error) {
	e := models.PDREntry{
		ID:         "pdr-1",
		Action:     action,
		InputsHash: inputsHash,
		Outcome:    outcome,
		TaskID:     taskID,
		Details:    details,
	}
	r.entries = append(r.entries, e)
	return &e, nil
}

func TestRecordHashesInputs(t *testing.T) {
	sink := &recordingSink{}
	w := NewPDRWriter(sink)

	inputs := map[string]interface{}{"tag": "master", "skip": 1}
	entry, err := w.Record(context.Background(), ActionTaskNext, inputs, OutcomeFound, "1.2", "offset 1")
	require.NoError(t, err)

	assert.Equal(t, ActionTaskNext, entry.Action)
	assert.Equal(t, "1.2", entry.TaskID)
	assert.Len(t, entry.InputsHash, 64)
	assert.Equal(t, HashInputs(inputs), entry.InputsHash)
	require.Len(t, sink.entries, 1)
}

func TestHashInputs(t *testing.T) {
	a := HashInputs(map[string]int{"skip": 0})
	b := HashInputs(map[string]int{"skip": 0})
	c := HashInputs(map[string]int{"skip": 1})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, "hash_error", HashInputs(make(chan int)))
}
