package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvid-labs/rowgen/internal/model"
	"github.com/corvid-labs/rowgen/internal/prng"
)

func TestAssemble_RangeRandom_InBounds(t *testing.T) {
	target := model.Column{ID: 1, Name: "age", Type: model.ColumnInt, Rules: "age is @RANDOM_INT_18_65"}
	src := prng.New(42)

	for i := 0; i < 200; i++ {
		got := Assemble(target, []model.Column{target}, nil, src)
		ruleLine := extractRuleLine(t, got)
		n := extractTrailingInt(t, ruleLine)
		assert.GreaterOrEqual(t, n, int64(18))
		assert.LessOrEqual(t, n, int64(65))
	}
}

func TestAssemble_SingleRandom_Exclusive(t *testing.T) {
	target := model.Column{ID: 1, Name: "dice", Type: model.ColumnInt, Rules: "roll is @RANDOM_INT_6"}
	src := prng.New(7)

	for i := 0; i < 200; i++ {
		got := Assemble(target, []model.Column{target}, nil, src)
		ruleLine := extractRuleLine(t, got)
		n := extractTrailingInt(t, ruleLine)
		assert.GreaterOrEqual(t, n, int64(0))
		assert.Less(t, n, int64(6))
	}
}

func TestAssemble_RangeBeforeSingle(t *testing.T) {
	// If the single pattern ran first it would consume "@RANDOM_INT_3" out of
	// "@RANDOM_INT_3_7" and leave a dangling "_7" in the rule.
	target := model.Column{ID: 1, Name: "n", Type: model.ColumnInt, Rules: "@RANDOM_INT_3_7"}
	src := prng.New(1)

	got := Assemble(target, []model.Column{target}, nil, src)
	ruleLine := extractRuleLine(t, got)
	assert.NotContains(t, ruleLine, "_7")
	assert.NotContains(t, ruleLine, "RANDOM_INT")
}

func TestAssemble_ColumnReference(t *testing.T) {
	first := model.Column{ID: 1, Name: "first_name", Type: model.ColumnText}
	full := model.Column{ID: 2, Name: "full_name", Type: model.ColumnText, Rules: "combine @first_name with a last name"}
	prior := []model.RowData{{ColumnID: "1", Value: "Ada"}}

	src := prng.New(1)
	got := Assemble(full, []model.Column{first, full}, prior, src)
	assert.Contains(t, got, "combine Ada with a last name")
}

func TestAssemble_ColumnReference_MissingPriorCellIsEmpty(t *testing.T) {
	full := model.Column{ID: 2, Name: "full_name", Type: model.ColumnText, Rules: "combine @first_name with a last name"}
	src := prng.New(1)

	got := Assemble(full, []model.Column{full}, nil, src)
	assert.Contains(t, got, "combine  with a last name")
}

func TestAssemble_JSONFormatHint(t *testing.T) {
	target := model.Column{ID: 1, Name: "address", Type: model.ColumnJSON, TypeDetails: "{street, city, zip}", Rules: "a US address"}
	src := prng.New(1)

	got := Assemble(target, []model.Column{target}, nil, src)
	assert.Contains(t, got, `Generate a well formatted JSON structure, structure details: {street, city, zip} value for column "address".`)
}

func TestAssemble_NonJSONFormatHintIsRawTypeTag(t *testing.T) {
	target := model.Column{ID: 1, Name: "age", Type: model.ColumnInt, Rules: "an age"}
	src := prng.New(1)

	got := Assemble(target, []model.Column{target}, nil, src)
	assert.Contains(t, got, `Generate a INT value for column "age".`)
}

func extractRuleLine(t *testing.T, prompt string) string {
	t.Helper()
	for _, line := range strings.Split(prompt, "\n") {
		if strings.HasPrefix(line, "Rule: ") {
			return line
		}
	}
	require.Fail(t, "no Rule: line found", prompt)
	return ""
}

func extractTrailingInt(t *testing.T, line string) int64 {
	t.Helper()
	fields := strings.Fields(line)
	last := fields[len(fields)-1]
	var n int64
	var neg bool
	for i, r := range last {
		if i == 0 && r == '-' {
			neg = true
			continue
		}
		if r < '0' || r > '9' {
			require.Failf(t, "not a trailing integer", "line=%q", line)
		}
		n = n*10 + int64(r-'0')
	}
	if neg {
		n = -n
	}
	return n
}
