// Package datefmt formats timestamps the way RU:SH pages display them.
package datefmt

import (
	"fmt"
	"strconv"
	"time"
	_ "time/tzdata"
)

// DefaultLocation is used when no display location was configured.
var DefaultLocation = mustLoad("Asia/Seoul")

var koreanWeekdays = [...]string{"일", "월", "화", "수", "목", "금", "토"}

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("KST", 9*60*60)
	}
	return loc
}

// Formatter renders times in a fixed display location.
type Formatter struct {
	loc *time.Location
}

// New returns a formatter for loc. A nil loc means DefaultLocation.
func New(loc *time.Location) Formatter {
	if loc == nil {
		loc = DefaultLocation
	}
	return Formatter{loc: loc}
}

// Location returns the display location.
func (f Formatter) Location() *time.Location {
	if f.loc == nil {
		return DefaultLocation
	}
	return f.loc
}

func (f Formatter) in(t time.Time) time.Time {
	return t.In(f.Location())
}

// Korean renders "2024년 1월 1일 0시 12분". Numerals are not zero padded.
func (f Formatter) Korean(t time.Time) string {
	t = f.in(t)
	return fmt.Sprintf("%d년 %d월 %d일 %d시 %d분", t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute())
}

// Slash renders "2024/01/01 00:12".
func (f Formatter) Slash(t time.Time) string {
	return f.in(t).Format("2006/01/02 15:04")
}

// SlashSeconds renders "2024/01/01 00:12:05".
func (f Formatter) SlashSeconds(t time.Time) string {
	return f.in(t).Format("2006/01/02 15:04:05")
}

// SlashWithDay renders "2024/01/01(월) 00:12".
func (f Formatter) SlashWithDay(t time.Time) string {
	t = f.in(t)
	return t.Format("2006/01/02") + "(" + koreanWeekdays[t.Weekday()] + ") " + t.Format("15:04")
}

// Date renders "2024/01/01".
func (f Formatter) Date(t time.Time) string {
	return f.in(t).Format("2006/01/02")
}

// MonthOrdinal renders "January 1st".
func (f Formatter) MonthOrdinal(t time.Time) string {
	t = f.in(t)
	return t.Month().String() + " " + Ordinal(t.Day())
}

// Ordinal appends the English ordinal suffix to n: 1st, 2nd, 3rd, 4th, 11th, 21st.
func Ordinal(n int) string {
	suffix := "th"
	if v := n % 100; v < 11 || v > 13 {
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return strconv.Itoa(n) + suffix
}
