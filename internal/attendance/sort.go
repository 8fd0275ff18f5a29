package attendance

import (
	"sort"
	"strings"

	"rushweb/internal/rushclient"
)

// SortKey is a column of the session attendance table.
type SortKey string

const (
	SortByName       SortKey = "name"
	SortByGeneration SortKey = "generation"
	SortByJoinedAt   SortKey = "joined_at"
)

// ParseSortKey returns the key named s, or false.
func ParseSortKey(s string) (SortKey, bool) {
	switch k := SortKey(s); k {
	case SortByName, SortByGeneration, SortByJoinedAt:
		return k, true
	}
	return "", false
}

// Order is a sort direction.
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// Opposite flips the direction.
func (o Order) Opposite() Order {
	if o == Desc {
		return Asc
	}
	return Desc
}

// SortState remembers a direction for every key and which key is active.
// The zero value sorts by name ascending.
type SortState struct {
	Active     SortKey
	Name       Order
	Generation Order
	JoinedAt   Order
}

// DefaultSort sorts by name with every key ascending.
func DefaultSort() SortState {
	return SortState{Active: SortByName, Name: Asc, Generation: Asc, JoinedAt: Asc}
}

func (s SortState) normalized() SortState {
	if s.Active == "" {
		s.Active = SortByName
	}
	if s.Name == "" {
		s.Name = Asc
	}
	if s.Generation == "" {
		s.Generation = Asc
	}
	if s.JoinedAt == "" {
		s.JoinedAt = Asc
	}
	return s
}

// OrderOf returns the remembered direction of key.
func (s SortState) OrderOf(key SortKey) Order {
	s = s.normalized()
	switch key {
	case SortByGeneration:
		return s.Generation
	case SortByJoinedAt:
		return s.JoinedAt
	default:
		return s.Name
	}
}

// Toggle flips the direction of key and makes it active. Other keys keep theirs.
func (s SortState) Toggle(key SortKey) SortState {
	s = s.normalized()
	switch key {
	case SortByName:
		s.Name = s.Name.Opposite()
	case SortByGeneration:
		s.Generation = s.Generation.Opposite()
	case SortByJoinedAt:
		s.JoinedAt = s.JoinedAt.Opposite()
	default:
		return s
	}
	s.Active = key
	return s
}

// Sort returns a copy of attendances ordered by the active key.
// Ties keep their input order.
func (s SortState) Sort(attendances []rushclient.Attendance) []rushclient.Attendance {
	s = s.normalized()
	out := make([]rushclient.Attendance, len(attendances))
	copy(out, attendances)

	var cmp func(a, b rushclient.Attendance) int
	switch s.Active {
	case SortByGeneration:
		cmp = func(a, b rushclient.Attendance) int { return compareFloat(a.UserGeneration, b.UserGeneration) }
	case SortByJoinedAt:
		cmp = func(a, b rushclient.Attendance) int { return a.UserJoinedAt.Compare(b.UserJoinedAt) }
	default:
		cmp = func(a, b rushclient.Attendance) int { return strings.Compare(a.UserExternalName, b.UserExternalName) }
	}
	desc := s.OrderOf(s.Active) == Desc

	sort.SliceStable(out, func(i, j int) bool {
		c := cmp(out[i], out[j])
		if desc {
			return c > 0
		}
		return c < 0
	})
	return out
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
