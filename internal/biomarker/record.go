package biomarker

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// RangePolicy controls what happens when a value falls outside its plausible
// band. Missing fields and non-finite values are always hard failures.
type RangePolicy string

const (
	// PolicyWarn logs implausible values and accepts the record.
	PolicyWarn RangePolicy = "warn"
	// PolicyReject fails validation when any value is implausible.
	PolicyReject RangePolicy = "reject"
)

// MissingFieldError reports every required field absent from the input.
type MissingFieldError struct {
	Fields []string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Fields, ", "))
}

// InvalidTypeError reports a value that is not a finite number.
type InvalidTypeError struct {
	Field string
	Value string
}

func (e *InvalidTypeError) Error() string {
	return fmt.Sprintf("field %s: value %q is not a finite number", e.Field, e.Value)
}

// OutOfRangeError reports values outside their plausible band. It is only
// returned under PolicyReject; under PolicyWarn the record is accepted.
type OutOfRangeError struct {
	Fields []string
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("values out of plausible range: %s", strings.Join(e.Fields, ", "))
}

// Record is a validated set of the 22 voice-biomarker measurements, stored in
// canonical field order. Records are immutable after construction.
type Record struct {
	values [FieldCount]float64
}

// FromMap validates a raw field→value mapping and returns a Record. Unknown
// keys are ignored. Fails with MissingFieldError or InvalidTypeError, and
// with OutOfRangeError when policy is PolicyReject.
func FromMap(raw map[string]float64, policy RangePolicy) (Record, error) {
	var rec Record

	// Scan every field before failing: the missing set must be reported in
	// full even when other fields carry non-finite values.
	var (
		missing []string
		invalid *InvalidTypeError
	)
	for i, name := range FieldNames {
		v, ok := raw[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			if invalid == nil {
				invalid = &InvalidTypeError{Field: name, Value: fmt.Sprintf("%v", v)}
			}
			continue
		}
		rec.values[i] = v
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return Record{}, &MissingFieldError{Fields: missing}
	}
	if invalid != nil {
		return Record{}, invalid
	}

	if outside := rec.outOfRange(); len(outside) > 0 {
		if policy == PolicyReject {
			return Record{}, &OutOfRangeError{Fields: outside}
		}
		log.Warn().Strs("fields", outside).Msg("biomarker values outside plausible range")
	}

	return rec, nil
}

func (r Record) outOfRange() []string {
	var outside []string
	for i, name := range FieldNames {
		band, ok := PlausibleRanges[name]
		if !ok {
			continue
		}
		if r.values[i] < band.Min || r.values[i] > band.Max {
			outside = append(outside, name)
		}
	}
	return outside
}

// Get returns the value of a named field.
func (r Record) Get(name string) (float64, bool) {
	i := FieldIndex(name)
	if i < 0 {
		return 0, false
	}
	return r.values[i], true
}

// Values returns the measurements as a slice in canonical field order.
func (r Record) Values() []float64 {
	out := make([]float64, FieldCount)
	copy(out, r.values[:])
	return out
}

// Map returns the record as a field→value mapping.
func (r Record) Map() map[string]float64 {
	m := make(map[string]float64, FieldCount)
	for i, name := range FieldNames {
		m[name] = r.values[i]
	}
	return m
}
