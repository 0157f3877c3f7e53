package containers

import "fmt"

// MapFn returns the result of fn applied to every item of set, in order. The
// returned slice is never nil.
func MapFn[S ~[]E, E any, T any](set S, fn func(E) T) []T {
	res := make([]T, 0, len(set))
	for _, item := range set {
		res = append(res, fn(item))
	}
	return res
}

// Filter returns the items of set for which keep returns true.
func Filter[S ~[]E, E any](set S, keep func(E) bool) S {
	res := make(S, 0, len(set))
	for _, item := range set {
		if keep(item) {
			res = append(res, item)
		}
	}
	return res
}

func StringerStr[T fmt.Stringer](i T) string { return i.String() }

// StrMapper converts a list of Stringers into their string forms.
func StrMapper[S ~[]E, E fmt.Stringer](set S) []string {
	return MapFn(set, StringerStr[E])
}
