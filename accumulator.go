package accrue

// Kind tags the variant of an Accumulator. Callers dispatch on Kind only when
// constructing accumulators, never when merging them.
type Kind int

const (
	// ValueKind wraps a scalar combined with a named operator
	ValueKind Kind = iota
	// SetKind holds a set of hashable items, combined by union
	SetKind
	// DictKind maps keys to nested Accumulators, combined key-wise
	DictKind
	// DefaultDictKind is a DictKind which materializes missing keys from a factory
	DefaultDictKind
	// ColumnKind holds a 1-D sequence of primitives, combined by concatenation
	ColumnKind
)

var kindNames = [...]string{
	ValueKind:       "value",
	SetKind:         "set",
	DictKind:        "dict",
	DefaultDictKind: "defaultdict",
	ColumnKind:      "column",
}

// String returns the name of this Kind
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// An Accumulator is a mergeable container for partial results. The result of
// processing a single Chunk is an Accumulator, and the executor combines these
// into a single running total as Chunks complete.
//
// Combine must be associative, and commutative for every Kind other than
// ColumnKind (whose concatenation order is the order of merging).
// Combining with Identity() must leave the receiver unchanged.
//
// Combine mutates the receiver in place and never modifies its argument.
// Callers that need the pre-merge value must Clone it first, and must not
// share a receiver between goroutines.
type Accumulator interface {
	Kind() Kind                  // Kind returns the variant tag of this Accumulator
	Identity() Accumulator       // Identity returns a fresh zero value with the same shape
	Combine(o Accumulator) error // Combine merges o into this Accumulator
	Clone() Accumulator          // Clone returns a deep copy of this Accumulator
}
