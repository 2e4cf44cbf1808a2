package room

import "errors"

var (
	ErrAlreadyContributed = errors.New("already contributed")
	ErrQuorumFired        = errors.New("quorum already fired")
)

// Quorum collects at most one contribution per key and fires once when it
// holds as many contributions as the roster has members. After firing it
// refuses contributions until Reset.
type Quorum[K comparable, V any] struct {
	keys   []K
	values map[K]V
	fired  bool
}

func NewQuorum[K comparable, V any]() *Quorum[K, V] {
	return &Quorum[K, V]{values: make(map[K]V)}
}

func (q *Quorum[K, V]) Contribute(key K, value V) error {
	if q.fired {
		return ErrQuorumFired
	}
	if _, ok := q.values[key]; ok {
		return ErrAlreadyContributed
	}
	q.keys = append(q.keys, key)
	q.values[key] = value
	return nil
}

func (q *Quorum[K, V]) Has(key K) bool {
	_, ok := q.values[key]
	return ok
}

// Withdraw drops a contribution, used when a member leaves.
func (q *Quorum[K, V]) Withdraw(key K) {
	if _, ok := q.values[key]; !ok {
		return
	}
	delete(q.values, key)
	for i, k := range q.keys {
		if k == key {
			q.keys = append(q.keys[:i], q.keys[i+1:]...)
			break
		}
	}
}

// TryFire reports true exactly once per round, when the contributions cover
// rosterSize members. The values come back in contribution order.
func (q *Quorum[K, V]) TryFire(rosterSize int) ([]V, bool) {
	if q.fired || rosterSize <= 0 || len(q.keys) < rosterSize {
		return nil, false
	}
	q.fired = true
	values := make([]V, 0, len(q.keys))
	for _, k := range q.keys {
		values = append(values, q.values[k])
	}
	return values, true
}

func (q *Quorum[K, V]) Fired() bool {
	return q.fired
}

func (q *Quorum[K, V]) Len() int {
	return len(q.keys)
}

func (q *Quorum[K, V]) Reset() {
	q.keys = nil
	q.values = make(map[K]V)
	q.fired = false
}
