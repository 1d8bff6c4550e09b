package util

/*
PriorityQueue is a simple heap-based priority queue ordered by a caller-supplied
less function. It implements heap.Interface; use it through container/heap. We
use it to execute streaming merges over executor nodes.
*/

////////////////////////////////////////////////////////////////////////////////

// PriorityQueue is a heap of items of type T.
type PriorityQueue[T any] struct {
	items []T
	less  func(a, b T) bool
}

// NewPriorityQueue returns an empty priority queue.
func NewPriorityQueue[T any](less func(a, b T) bool) *PriorityQueue[T] {
	return &PriorityQueue[T]{less: less}
}

func (pq *PriorityQueue[T]) Len() int {
	return len(pq.items)
}

func (pq *PriorityQueue[T]) Less(i, j int) bool {
	return pq.less(pq.items[i], pq.items[j])
}

func (pq *PriorityQueue[T]) Swap(i, j int) {
	pq.items[i], pq.items[j] = pq.items[j], pq.items[i]
}

func (pq *PriorityQueue[T]) Push(item any) {
	value, ok := item.(T)
	if !ok {
		panic("invalid type")
	}
	pq.items = append(pq.items, value)
}

func (pq *PriorityQueue[T]) Pop() any {
	n := len(pq.items)
	item := pq.items[n-1]
	var zero T
	pq.items[n-1] = zero
	pq.items = pq.items[:n-1]
	return item
}
