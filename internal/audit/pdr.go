// Package audit provides PDR (Process Decision Record) writing for nextask.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/fentz26/nextask/internal/models"
)

// Actions recorded by the control plane.
const (
	ActionTaskCreate     = "task.create"
	ActionSubtaskCreate  = "task.subtask"
	ActionTaskStatus     = "task.status"
	ActionTaskDepend     = "task.depend"
	ActionTaskUndepend   = "task.undepend"
	ActionTaskDelete     = "task.delete"
	ActionTaskNext       = "task.next"
	ActionTaskImport     = "task.import"
	OutcomeSuccess       = "success"
	OutcomeFailure       = "failure"
	OutcomeFound         = "found"
	OutcomeNoneAvailable = "none_available"
)

// Sink persists decision records. *store.Store satisfies it.
type Sink interface {
	WritePDR(ctx context.Context, action, inputsHash, outcome, taskID, details string) (*models.PDREntry, error)
}

// PDRWriter writes Process Decision Records for audit trails.
type PDRWriter struct {
	sink Sink
}

// NewPDRWriter creates a new PDR writer.
func NewPDRWriter(s Sink) *PDRWriter {
	return &PDRWriter{sink: s}
}

// Record writes a PDR entry for a state-mutating or selection action.
func (w *PDRWriter) Record(ctx context.Context, action string, inputs interface{}, outcome, taskID, details string) (*models.PDREntry, error) {
	return w.sink.WritePDR(ctx, action, HashInputs(inputs), outcome, taskID, details)
}

// HashInputs returns the hex SHA-256 of the JSON encoding of inputs.
func HashInputs(inputs interface{}) string {
	data, err := json.Marshal(inputs)
	if err != nil {
		return "hash_error"
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
