package inmemdb

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/trezcool/kodi/core"
)

type (
	loader interface {
		load(id string, data []byte) error
		len() int
	}

	table[T any] struct {
		kind      string
		rows      map[string]T
		cloneFn   func(T) T
		marshal   func(T) ([]byte, error)
		unmarshal func([]byte) (T, error)
	}

	// comparators compare two rows on a field, for ordering.
	comparators[T any] map[string]func(a, b T) int
)

func newTable[T any](kind string, clone func(T) T) *table[T] {
	return &table[T]{
		kind:      kind,
		rows:      make(map[string]T),
		cloneFn:   clone,
		marshal:   jsonMarshal[T],
		unmarshal: jsonUnmarshal[T],
	}
}

func (t *table[T]) withCodec(marshal func(T) ([]byte, error), unmarshal func([]byte) (T, error)) *table[T] {
	t.marshal = marshal
	t.unmarshal = unmarshal
	return t
}

func (t *table[T]) clone(row T) T {
	if t.cloneFn == nil {
		return row
	}
	return t.cloneFn(row)
}

func (t *table[T]) load(id string, data []byte) error {
	row, err := t.unmarshal(data)
	if err != nil {
		return err
	}
	t.rows[id] = row
	return nil
}

func (t *table[T]) len() int {
	return len(t.rows)
}

func (t *table[T]) get(id string) (T, bool) {
	row, ok := t.rows[id]
	if !ok {
		return row, false
	}
	return t.clone(row), true
}

func (t *table[T]) has(id string) bool {
	_, ok := t.rows[id]
	return ok
}

// filter returns copies of the rows matching `match` (all rows if nil).
func (t *table[T]) filter(match func(T) bool) []T {
	res := make([]T, 0)
	for _, row := range t.rows {
		if match == nil || match(row) {
			res = append(res, t.clone(row))
		}
	}
	return res
}

// sortRows orders rows by `orderings`, then by `defaults`. Unknown fields are ignored.
func sortRows[T any](rows []T, cmps comparators[T], orderings []core.DBOrdering, defaults ...core.DBOrdering) {
	orderings = append(append([]core.DBOrdering{}, orderings...), defaults...)
	slices.SortStableFunc(rows, func(a, b T) int {
		for _, ord := range orderings {
			compare, ok := cmps[ord.Field]
			if !ok {
				continue
			}
			if c := compare(a, b); c != 0 {
				if !ord.Ascending {
					return -c
				}
				return c
			}
		}
		return 0
	})
}

func byString[T any](get func(T) string) func(a, b T) int {
	return func(a, b T) int {
		return strings.Compare(strings.ToLower(get(a)), strings.ToLower(get(b)))
	}
}

func byTime[T any](get func(T) time.Time) func(a, b T) int {
	return func(a, b T) int {
		return get(a).Compare(get(b))
	}
}

func byNumber[T any, N cmp.Ordered](get func(T) N) func(a, b T) int {
	return func(a, b T) int {
		return cmp.Compare(get(a), get(b))
	}
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append(make([]string, 0, len(s)), s...)
}

func inRange(t, from, to time.Time) bool {
	return core.Period{From: from, To: to}.Contains(t)
}
