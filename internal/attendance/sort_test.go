package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"rushweb/internal/rushclient"
)

func submission(name string, generation float64, joinedMinute int) rushclient.Attendance {
	return rushclient.Attendance{
		ID:               name,
		UserExternalName: name,
		UserGeneration:   generation,
		UserJoinedAt:     time.Date(2024, 1, 6, 10, joinedMinute, 0, 0, time.UTC),
	}
}

func names(attendances []rushclient.Attendance) []string {
	out := make([]string, len(attendances))
	for i, a := range attendances {
		out[i] = a.UserExternalName
	}
	return out
}

var submissions = []rushclient.Attendance{
	submission("다", 9, 3),
	submission("가", 10, 1),
	submission("나", 9.5, 2),
}

func TestDefaultSortIsNameAscending(t *testing.T) {
	assert.Equal(t, []string{"가", "나", "다"}, names(DefaultSort().Sort(submissions)))
	assert.Equal(t, []string{"가", "나", "다"}, names(SortState{}.Sort(submissions)))
}

func TestToggleFlipsActiveKey(t *testing.T) {
	s := DefaultSort().Toggle(SortByName)
	assert.Equal(t, SortByName, s.Active)
	assert.Equal(t, Desc, s.Name)
	assert.Equal(t, []string{"다", "나", "가"}, names(s.Sort(submissions)))

	s = s.Toggle(SortByName)
	assert.Equal(t, Asc, s.Name)
}

func TestToggleActivatesOtherKeyWithoutResettingOrders(t *testing.T) {
	s := DefaultSort().Toggle(SortByName) // name desc
	s = s.Toggle(SortByGeneration)        // generation desc, active

	assert.Equal(t, SortByGeneration, s.Active)
	assert.Equal(t, Desc, s.Generation)
	assert.Equal(t, Desc, s.Name, "inactive key keeps its order")
	assert.Equal(t, Asc, s.JoinedAt)
	assert.Equal(t, []string{"가", "나", "다"}, names(s.Sort(submissions)))

	s = s.Toggle(SortByName) // back to name, flipped to asc
	assert.Equal(t, Asc, s.Name)
	assert.Equal(t, Desc, s.Generation)
}

func TestSortByJoinedAt(t *testing.T) {
	s := DefaultSort().Toggle(SortByJoinedAt) // first toggle flips asc to desc
	assert.Equal(t, []string{"다", "나", "가"}, names(s.Sort(submissions)))
	assert.Equal(t, []string{"가", "나", "다"}, names(s.Toggle(SortByJoinedAt).Sort(submissions)))
}

func TestSortDoesNotMutateInput(t *testing.T) {
	in := append([]rushclient.Attendance(nil), submissions...)
	_ = DefaultSort().Sort(in)
	assert.Equal(t, submissions, in)
}

func TestToggleUnknownKeyIsNoop(t *testing.T) {
	s := DefaultSort()
	assert.Equal(t, s, s.Toggle("email"))

	_, ok := ParseSortKey("email")
	assert.False(t, ok)
	k, ok := ParseSortKey("joined_at")
	assert.True(t, ok)
	assert.Equal(t, SortByJoinedAt, k)
}
