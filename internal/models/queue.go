package models

// Queue is a FIFO backed by a slice. It is not safe for concurrent use.
type Queue[T any] []T

func (wq *Queue[T]) Len() int { return len(*wq) }

// Pop removes and returns the oldest element. It panics on an empty queue.
func (wq *Queue[T]) Pop() T {
	old := *wq
	x := old[0]
	var zero T
	old[0] = zero
	*wq = old[1:]
	return x
}

func (wq *Queue[T]) Push(t T) {
	*wq = append(*wq, t)
}

// Drain removes and returns every element in FIFO order.
func (wq *Queue[T]) Drain() []T {
	items := *wq
	*wq = nil
	return items
}
