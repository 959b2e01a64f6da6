package citation

import "slices"

// Order is the deduplicated, first-appearance sequence of every key cited
// in a document. The zero Order is empty.
type Order struct {
	keys  []string
	index map[string]int
}

// NewOrder builds an Order from key lists in document order.
func NewOrder(lists ...[]string) Order {
	o := Order{index: make(map[string]int)}
	for _, keys := range lists {
		for _, k := range keys {
			o.add(k)
		}
	}
	return o
}

func (o *Order) add(key string) {
	if _, ok := o.index[key]; ok {
		return
	}
	o.index[key] = len(o.keys)
	o.keys = append(o.keys, key)
}

// Index returns key's 0-based position, or Unresolved if it is not cited.
func (o Order) Index(key string) int {
	if i, ok := o.index[key]; ok {
		return i
	}
	return Unresolved
}

// Contains reports whether key is cited.
func (o Order) Contains(key string) bool {
	_, ok := o.index[key]
	return ok
}

// Len returns the number of distinct keys.
func (o Order) Len() int {
	return len(o.keys)
}

// Keys returns a copy of the ordered keys.
func (o Order) Keys() []string {
	return slices.Clone(o.keys)
}

// Equal reports whether two orders hold the same keys in the same sequence.
func (o Order) Equal(other Order) bool {
	return slices.Equal(o.keys, other.keys)
}
