package web

import (
	"net/url"

	"rushweb/internal/attendance"
)

// The session attendance table keeps its sort state in the query string:
// sort names the active key and each key carries its own remembered order.
const sortParam = "sort"

var sortColumns = []struct {
	Key   attendance.SortKey
	Label string
}{
	{attendance.SortByName, "이름"},
	{attendance.SortByGeneration, "기수"},
	{attendance.SortByJoinedAt, "제출 시간"},
}

func parseOrder(v string) attendance.Order {
	if attendance.Order(v) == attendance.Desc {
		return attendance.Desc
	}
	return attendance.Asc
}

func parseSort(q url.Values) attendance.SortState {
	s := attendance.DefaultSort()
	if key, ok := attendance.ParseSortKey(q.Get(sortParam)); ok {
		s.Active = key
	}
	s.Name = parseOrder(q.Get(string(attendance.SortByName)))
	s.Generation = parseOrder(q.Get(string(attendance.SortByGeneration)))
	s.JoinedAt = parseOrder(q.Get(string(attendance.SortByJoinedAt)))
	return s
}

func sortQuery(s attendance.SortState) url.Values {
	q := url.Values{}
	q.Set(sortParam, string(s.Active))
	for _, col := range sortColumns {
		q.Set(string(col.Key), string(s.OrderOf(col.Key)))
	}
	return q
}

// sortHeader is one clickable column header.
type sortHeader struct {
	Label  string
	Href   string
	Active bool
	Order  attendance.Order
}

func sortHeaders(path string, s attendance.SortState) []sortHeader {
	headers := make([]sortHeader, 0, len(sortColumns))
	for _, col := range sortColumns {
		headers = append(headers, sortHeader{
			Label:  col.Label,
			Href:   path + "?" + sortQuery(s.Toggle(col.Key)).Encode(),
			Active: s.Active == col.Key,
			Order:  s.OrderOf(col.Key),
		})
	}
	return headers
}
