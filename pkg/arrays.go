package shower

import "golang.org/x/exp/constraints"

type number interface {
	constraints.Integer | constraints.Float
}

func zero[T number](s []T) {
	for i := range s {
		s[i] = 0
	}
}

func copyOf[T number](s []T) []T {
	if s == nil {
		return nil
	}
	c := make([]T, len(s))
	copy(c, s)
	return c
}
