package asm

// Stack is a LIFO.
type Stack[T any] struct {
	Data []T
}

func (s *Stack[T]) Push(value T) {
	s.Data = append(s.Data, value)
}

func (s *Stack[T]) Pop() (value T, ok bool) {
	value, ok = s.Peek()
	if ok {
		var zero T
		s.Data[len(s.Data)-1] = zero
		s.Data = s.Data[:len(s.Data)-1]
	}
	return
}

func (s *Stack[T]) Empty() bool {
	return len(s.Data) == 0
}

// Truncate pops entries until at most n remain.
func (s *Stack[T]) Truncate(n int) {
	if n < 0 || n >= len(s.Data) {
		return
	}
	clear(s.Data[n:])
	s.Data = s.Data[:n]
}

func (s *Stack[T]) Len() int {
	return len(s.Data)
}

func (s *Stack[T]) Peek() (value T, ok bool) {
	if s.Empty() {
		return
	}

	return s.Data[len(s.Data)-1], true
}

func (s *Stack[T]) Reset() {
	clear(s.Data)
	s.Data = s.Data[:0]
}
