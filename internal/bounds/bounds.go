// Package bounds validates emulator parameter proposals against the
// validity region declared by a backend: a fixed box per parameter, an
// opaque predicate, or no constraint at all.
package bounds

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

var (
	ErrInvalidConfiguration = errors.New("invalid bounds configuration")
	ErrOutOfBounds          = errors.New("proposal out of bounds")
)

// CheckFunc validates a proposal mapping and returns an error on violation.
type CheckFunc func(proposal map[string]float64) error

// Kind discriminates the three bounds variants. The variant is fixed at
// construction and never changes for the lifetime of a Bounds value.
type Kind int

const (
	Unbounded Kind = iota
	BoxKind
	PredicateKind
)

// Range is an inclusive [Low, High] interval for one parameter.
type Range struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Bounds is a tagged union over the three variants. The zero value is
// unconstrained and checking it is a no-op.
type Bounds struct {
	kind      Kind
	box       map[string]Range
	predicate CheckFunc
}

// Unconstrained returns the no-check sentinel variant.
func Unconstrained() Bounds {
	return Bounds{kind: Unbounded}
}

// NewPredicate wraps a caller-supplied check function. Validation semantics
// are fully delegated to fn; the box form is not introspectable.
func NewPredicate(fn CheckFunc) (Bounds, error) {
	if fn == nil {
		return Bounds{}, fmt.Errorf("%w: nil predicate", ErrInvalidConfiguration)
	}
	return Bounds{kind: PredicateKind, predicate: fn}, nil
}

// NewBox builds a box variant from per-parameter ranges. Every range must
// satisfy Low <= High; violations fail here, never at check time.
func NewBox(box map[string]Range) (Bounds, error) {
	if box == nil {
		return Bounds{}, fmt.Errorf("%w: nil box", ErrInvalidConfiguration)
	}
	stored := make(map[string]Range, len(box))
	for name, r := range box {
		if r.Low > r.High {
			return Bounds{}, fmt.Errorf("%w: %s has low %v > high %v",
				ErrInvalidConfiguration, name, r.Low, r.High)
		}
		stored[name] = r
	}
	return Bounds{kind: BoxKind, box: stored}, nil
}

func (b Bounds) Kind() Kind { return b.kind }

// IsUnconstrained reports whether checking this Bounds is a no-op.
func (b Bounds) IsUnconstrained() bool { return b.kind == Unbounded }

// Box returns a copy of the box ranges, or nil for the other variants.
func (b Bounds) Box() map[string]Range {
	if b.kind != BoxKind {
		return nil
	}
	out := make(map[string]Range, len(b.box))
	for name, r := range b.box {
		out[name] = r
	}
	return out
}

// Check validates a proposal against the active variant.
//
// Box: every key present in both the box and the proposal must lie inside
// its [Low, High] range; keys absent from the proposal are skipped.
// Predicate: delegates unchanged. Unconstrained: no-op.
func (b Bounds) Check(proposal map[string]float64) error {
	switch b.kind {
	case Unbounded:
		return nil
	case PredicateKind:
		return b.predicate(proposal)
	case BoxKind:
		for _, name := range sortedKeys(b.box) {
			value, ok := proposal[name]
			if !ok {
				continue
			}
			r := b.box[name]
			if value < r.Low || value > r.High {
				return fmt.Errorf("%w: %s=%v outside [%v, %v]",
					ErrOutOfBounds, name, value, r.Low, r.High)
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown variant %d", ErrInvalidConfiguration, b.kind)
	}
}

// String renders the box variant as a JSON object keyed by parameter name,
// re-parseable by ParseBox. The other variants render as fixed sentinels.
func (b Bounds) String() string {
	switch b.kind {
	case BoxKind:
		data, err := json.Marshal(b.box)
		if err != nil {
			return fmt.Sprintf("box<unencodable: %v>", err)
		}
		return string(data)
	case PredicateKind:
		return "predicate"
	default:
		return "unconstrained"
	}
}

// ParseBox reconstructs a box variant from its String form.
// ParseBox(b.String()) is Equal to b for every box b.
func ParseBox(text string) (Bounds, error) {
	var box map[string]Range
	if err := json.Unmarshal([]byte(text), &box); err != nil {
		return Bounds{}, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	return NewBox(box)
}

// Equal reports structural equality. Predicate variants compare equal only
// when unconstrained-ness and kind match; function identity is not inspected.
func (b Bounds) Equal(other Bounds) bool {
	if b.kind != other.kind {
		return false
	}
	if b.kind != BoxKind {
		return true
	}
	if len(b.box) != len(other.box) {
		return false
	}
	for name, r := range b.box {
		if other.box[name] != r {
			return false
		}
	}
	return true
}

func sortedKeys(box map[string]Range) []string {
	names := make([]string, 0, len(box))
	for name := range box {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
