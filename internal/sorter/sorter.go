// Package sorter orders a dataset's columns so that any column whose rule
// references another column by name (`@column_name`) is generated after the
// column it references. It is a direct topological sort (Kahn's algorithm)
// over the column-reference graph, grounded on the original service's
// sort_columns_by_dependency.
package sorter

import (
	"regexp"

	"github.com/corvid-labs/rowgen/internal/model"
	"github.com/corvid-labs/rowgen/internal/rgerrors"
)

// columnRefPattern matches a bare @name reference inside a column's rule
// text. It intentionally matches the same shape prompt substitution uses
// for column references, since a rule that doesn't reference a real column
// name is simply not a dependency edge.
var columnRefPattern = regexp.MustCompile(`@(\w+)`)

// ByDependency returns columns in an order where every column appears after
// all columns its rule text references by name. Columns with no
// dependencies keep their relative input order. Returns rgerrors with
// KindCycle if the dependency graph has a cycle; the error carries the
// names of the columns that never reached zero in-degree.
func ByDependency(columns []model.Column) ([]model.Column, error) {
	n := len(columns)
	if n == 0 {
		return columns, nil
	}

	nameToIndex := make(map[string]int, n)
	for i, c := range columns {
		nameToIndex[c.Name] = i
	}

	// dependents[i] = indices of columns that depend on column i (must run
	// after i). inDegree[i] = number of distinct columns i itself depends on.
	dependents := make([][]int, n)
	inDegree := make([]int, n)

	for i, c := range columns {
		seen := make(map[int]bool)
		for _, m := range columnRefPattern.FindAllStringSubmatch(c.Rules, -1) {
			depName := m[1]
			depIndex, ok := nameToIndex[depName]
			if !ok || depIndex == i || seen[depIndex] {
				continue
			}
			seen[depIndex] = true
			dependents[depIndex] = append(dependents[depIndex], i)
			inDegree[i]++
		}
	}

	queue := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if inDegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	sortedIndices := make([]int, 0, n)
	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]
		sortedIndices = append(sortedIndices, idx)
		for _, dep := range dependents[idx] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(sortedIndices) != n {
		remaining := make([]string, 0, n-len(sortedIndices))
		inSorted := make(map[int]bool, len(sortedIndices))
		for _, idx := range sortedIndices {
			inSorted[idx] = true
		}
		for i, c := range columns {
			if !inSorted[i] {
				remaining = append(remaining, c.Name)
			}
		}
		return nil, rgerrors.Wrap(rgerrors.KindCycle, "cyclic column dependency", cycleColumns(remaining))
	}

	out := make([]model.Column, n)
	for i, idx := range sortedIndices {
		out[i] = columns[idx]
	}
	return out, nil
}

// cycleColumns carries the offending column names for debugging without
// changing how callers detect a cycle (they match on rgerrors.KindCycle).
type cycleColumns []string

func (c cycleColumns) Error() string {
	s := "columns involved: "
	for i, name := range c {
		if i > 0 {
			s += ", "
		}
		s += name
	}
	return s
}
