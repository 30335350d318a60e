package service

import (
	"fmt"
	"slices"
	"strings"
)

// uniqueIDs returns ids sorted ascending with duplicates removed
func uniqueIDs(ids []int64) []int64 {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}

// formatIDs renders ids for audit details, e.g. "[3,5]"
func formatIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func int64Ptr(v int64) *int64 {
	return &v
}
