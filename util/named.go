package util

import "fmt"

// Named associates a name with a value.
type Named[T any] struct {
	Name  string `json:"name"`
	Value T      `json:"type"`
}

func (n Named[T]) String() string {
	return fmt.Sprintf("%s %v", n.Name, n.Value)
}

// NewNamed constructs a Named value.
func NewNamed[T any](name string, data T) Named[T] {
	return Named[T]{Name: name, Value: data}
}
