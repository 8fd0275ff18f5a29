// Package attendance shapes attendance records into the tables shown and exported by the site.
package attendance

import (
	"strconv"
	"time"

	"rushweb/internal/datefmt"
	"rushweb/internal/rushclient"
)

// Column is one session of the half-year matrix.
type Column struct {
	SessionID string
	Name      string
	StartedAt time.Time
}

// Title is the grid header, e.g. "456회 정기 세션 (2024/01/06)".
func (c Column) Title(f datefmt.Formatter) string {
	return c.Name + " (" + f.Date(c.StartedAt) + ")"
}

// Cell is the score of one user for one session.
type Cell struct {
	Score    int
	Attended bool
}

// String renders an attended cell as its score and a missing one as blank.
func (c Cell) String() string {
	if !c.Attended {
		return ""
	}
	return strconv.Itoa(c.Score)
}

// Row is one user of the matrix.
type Row struct {
	UserID     string
	Name       string
	Generation float64
	Total      int
	Cells      []Cell
}

// Matrix is the half-year attendance table: users down, sessions across.
type Matrix struct {
	Columns []Column
	Rows    []Row
}

// BuildMatrix builds the matrix keeping the order of users and sessions.
// Attended cells hold the session score, with non-positive scores counted as zero.
// Attendances of unknown users or sessions are ignored.
func BuildMatrix(users []rushclient.HalfYearUser, sessions []rushclient.HalfYearSession, attendances []rushclient.Attendance) Matrix {
	m := Matrix{
		Columns: make([]Column, len(sessions)),
		Rows:    make([]Row, len(users)),
	}

	col := make(map[string]int, len(sessions))
	for i, s := range sessions {
		m.Columns[i] = Column{SessionID: s.ID, Name: s.Name, StartedAt: s.StartedAt}
		col[s.ID] = i
	}
	row := make(map[string]int, len(users))
	for i, u := range users {
		m.Rows[i] = Row{
			UserID:     u.ID,
			Name:       u.Name,
			Generation: u.Generation,
			Cells:      make([]Cell, len(sessions)),
		}
		row[u.ID] = i
	}

	for _, a := range attendances {
		r, ok := row[a.UserID]
		if !ok {
			continue
		}
		c, ok := col[a.SessionID]
		if !ok {
			continue
		}
		cell := &m.Rows[r].Cells[c]
		if cell.Attended {
			continue
		}
		cell.Attended = true
		cell.Score = max(a.SessionScore, 0)
		m.Rows[r].Total += cell.Score
	}
	return m
}

// TotalScore sums the session scores of attendances.
func TotalScore(attendances []rushclient.Attendance) int {
	total := 0
	for _, a := range attendances {
		total += a.SessionScore
	}
	return total
}

// FormatGeneration renders a cohort number without trailing zeros: 9, 9.5.
func FormatGeneration(g float64) string {
	return strconv.FormatFloat(g, 'f', -1, 64)
}
