package util

import (
	"sort"

	"golang.org/x/exp/constraints"
)

func ContainsString(s []string, e string) bool {
	for _, a := range s {
		if a == e {
			return true
		}
	}
	return false
}

func sortSlice[T constraints.Ordered](s []T) {
	sort.Slice(s, func(i, j int) bool {
		return s[i] < s[j]
	})
}

func SortedKeys[T constraints.Ordered, K any](input map[T]K) []T {
	result := make([]T, 0, len(input))
	for k := range input {
		result = append(result, k)
	}
	sortSlice(result)
	return result
}

// SortedValues returns the values of the given map, sorted ascending
func SortedValues[K comparable, T constraints.Ordered](input map[K]T) []T {
	result := make([]T, 0, len(input))
	for _, v := range input {
		result = append(result, v)
	}
	sortSlice(result)
	return result
}
