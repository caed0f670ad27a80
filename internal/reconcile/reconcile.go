// Package reconcile computes how a set of devices has to change to match freshly discovered devices.
// Devices are matched by their hardware identity only, labels and configuration may differ.
package reconcile

import (
	"golang.org/x/exp/constraints"
	"golang.org/x/exp/slices"
)

type Identifiable interface {
	GetHwId() string
}

type Replacement[K constraints.Ordered, T Identifiable] struct {
	// OldKey is the key of the device in the current set that is replaced
	OldKey K
	New    T
}

type Plan[K constraints.Ordered, T Identifiable] struct {
	// Inserts are devices whose hardware id is unknown to the current set
	Inserts []T
	// Replaces are devices that match a device of the current set and differ from it
	Replaces []Replacement[K, T]
	// Duplicates are incoming devices whose hardware id was already seen earlier in the same batch
	Duplicates []T
}

func (p Plan[K, T]) Empty() bool {
	return len(p.Inserts) <= 0 && len(p.Replaces) <= 0
}

// Merge plans the merge of incoming into current. A matching device is only replaced if
// replaceOnMatch is set and equal (if given) reports a difference.
// The first occurrence of a hardware id in incoming wins.
func Merge[K constraints.Ordered, T Identifiable](
	current map[K]T,
	incoming []T,
	replaceOnMatch bool,
	equal func(old T, new T) bool,
) (plan Plan[K, T]) {
	byHwId := make(map[string]K, len(current))
	for _, key := range sortedKeys(current) {
		hwId := current[key].GetHwId()
		if _, exists := byHwId[hwId]; !exists {
			byHwId[hwId] = key
		}
	}

	seen := map[string]bool{}
	for _, device := range incoming {
		hwId := device.GetHwId()
		if seen[hwId] {
			plan.Duplicates = append(plan.Duplicates, device)
			continue
		}
		seen[hwId] = true

		key, exists := byHwId[hwId]
		if !exists {
			plan.Inserts = append(plan.Inserts, device)
			continue
		}
		if !replaceOnMatch {
			continue
		}
		if equal != nil && equal(current[key], device) {
			continue
		}
		plan.Replaces = append(plan.Replaces, Replacement[K, T]{OldKey: key, New: device})
	}

	return plan
}

// Stale returns the keys of all current devices whose hardware id is part of none of the given sources
func Stale[K constraints.Ordered, T Identifiable](current map[K]T, sources ...[]T) []K {
	known := map[string]bool{}
	for _, source := range sources {
		for _, device := range source {
			known[device.GetHwId()] = true
		}
	}

	var result []K
	for _, key := range sortedKeys(current) {
		if !known[current[key].GetHwId()] {
			result = append(result, key)
		}
	}
	return result
}

func sortedKeys[K constraints.Ordered, T any](m map[K]T) []K {
	keys := make([]K, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}
