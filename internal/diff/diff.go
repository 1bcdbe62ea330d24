// Package diff turns successive observations into a low-bandwidth patch
// stream. Patches are RFC 6902 operation sequences computed over the
// serialized form of the observations; applying a patch to the previous
// serialized observation reproduces the current one exactly.
package diff

import (
	"fmt"

	"github.com/vizier-sh/vizier/internal/schema"
	"github.com/wI2L/jsondiff"
)

// Envelope wraps a structural patch with the current observation's timing.
type Envelope struct {
	TS          float64        `json:"ts"`
	MonotonicMS int64          `json:"monotonic_ms"`
	Patch       jsondiff.Patch `json:"patch"`
}

// CreateEnvelope computes the structural patch from previous to current.
// Pure: inputs are never mutated and identical inputs always yield the same
// operation sequence (depth-first, serialization field order). An error here
// indicates an implementation defect, not a runtime condition; both inputs
// are plain data structures that always serialize.
func CreateEnvelope(previous, current *schema.Observation) (*Envelope, error) {
	patch, err := jsondiff.Compare(previous, current)
	if err != nil {
		return nil, fmt.Errorf("diff observations: %w", err)
	}

	if patch == nil {
		patch = jsondiff.Patch{}
	}

	return &Envelope{
		TS:          current.TS,
		MonotonicMS: current.MonotonicMS,
		Patch:       patch,
	}, nil
}
