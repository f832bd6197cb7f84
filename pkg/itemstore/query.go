package itemstore

import (
	"net/url"
	"strconv"
	"strings"
)

// Filter operators understood by the store.
const (
	OpEq = "_eq"
	OpGt = "_gt"
)

// Predicate compares one field against a value.
type Predicate struct {
	Field string
	Op    string
	Value string
}

func Eq(field, value string) Predicate { return Predicate{Field: field, Op: OpEq, Value: value} }

func Gt(field, value string) Predicate { return Predicate{Field: field, Op: OpGt, Value: value} }

// Query narrows a list request. Zero Limit means the store default.
type Query struct {
	Filter []Predicate
	Sort   []string
	Limit  int
}

// Encode renders the query string, e.g. filter[status][_eq]=published&sort=date_created.
func (q Query) Encode() string {
	v := url.Values{}
	for _, p := range q.Filter {
		v.Add("filter["+p.Field+"]["+p.Op+"]", p.Value)
	}
	if len(q.Sort) > 0 {
		v.Set("sort", strings.Join(q.Sort, ","))
	}
	if q.Limit != 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v.Encode()
}
