// Package prompt assembles the chat-template prompt fed to the inference
// engine for a single cell: substituting random-value and column-reference
// tokens into a column's rule, then filling the fixed template, grounded on
// the original service's prepare_prompt and cell_prompt_template.
package prompt

import (
	"strconv"
	"strings"

	"regexp"

	"github.com/corvid-labs/rowgen/internal/model"
	"github.com/corvid-labs/rowgen/internal/prng"
)

// rangeRandomPattern matches @RANDOM_INT_<a>_<b>. It must be applied before
// singleRandomPattern or the single form would consume "@RANDOM_INT_3" out
// of "@RANDOM_INT_3_7" and leave a dangling "_7" in the rule.
var rangeRandomPattern = regexp.MustCompile(`@RANDOM_INT_(-?\d+)_(-?\d+)`)

// singleRandomPattern matches @RANDOM_INT_<n>, applied only after range
// substitution has removed every range-form occurrence.
var singleRandomPattern = regexp.MustCompile(`@RANDOM_INT_(-?\d+)`)

// columnRefPattern matches a bare @name reference, applied last so it never
// captures a RANDOM_INT token.
var columnRefPattern = regexp.MustCompile(`@(\w+)`)

// template is the exact literal chat template spec.md §6 requires.
const template = "<|begin_of_text|><|start_header_id|>system<|end_header_id|>\n" +
	"You are a data generator. You must respond with ONLY the requested value. No explanations, no code, no markdown, no extra text.<|eot_id|>\n" +
	"\n" +
	"<|start_header_id|>user<|end_header_id|>\n" +
	"Generate a {format} value for column \"{column_name}\".\n" +
	"\n" +
	"Rule: {column_rule}\n" +
	"\n" +
	"CRITICAL:\n" +
	"- If the rule references other values from the same record, your response MUST be logically consistent with those values\n" +
	"- Reply with a SINGLE LINE only - no newlines, no extra content\n" +
	"- Output ONLY the raw value, nothing else\n" +
	"\n" +
	"<|eot_id|>\n" +
	"\n" +
	"<|start_header_id|>assistant<|end_header_id|>"

// Assemble builds the full prompt for target, given every column in the
// dataset (for id-to-name resolution) and the row's already-generated cells.
func Assemble(target model.Column, allColumns []model.Column, priorData []model.RowData, src prng.Source) string {
	rule := substituteRandoms(target.Rules, src)
	rule = substituteColumnRefs(rule, allColumns, priorData)

	return strings.NewReplacer(
		"{format}", formatHint(target),
		"{column_name}", target.Name,
		"{column_rule}", rule,
	).Replace(template)
}

func substituteRandoms(rule string, src prng.Source) string {
	rule = rangeRandomPattern.ReplaceAllStringFunc(rule, func(match string) string {
		groups := rangeRandomPattern.FindStringSubmatch(match)
		a := parseIntDefault(groups[1], 0)
		b := parseIntDefault(groups[2], 0)
		return strconv.FormatInt(src.RangeInt(a, b), 10)
	})

	rule = singleRandomPattern.ReplaceAllStringFunc(rule, func(match string) string {
		groups := singleRandomPattern.FindStringSubmatch(match)
		n := parseIntDefault(groups[1], 1)
		return strconv.FormatInt(src.IntN(n), 10)
	})

	return rule
}

func substituteColumnRefs(rule string, allColumns []model.Column, priorData []model.RowData) string {
	idToName := make(map[string]string, len(allColumns))
	for _, c := range allColumns {
		idToName[strconv.FormatInt(c.ID, 10)] = c.Name
	}

	nameToValue := make(map[string]string, len(priorData))
	for _, d := range priorData {
		if name, ok := idToName[d.ColumnID]; ok {
			nameToValue[name] = d.Value
		}
	}

	return columnRefPattern.ReplaceAllStringFunc(rule, func(match string) string {
		name := match[1:]
		return nameToValue[name]
	})
}

func formatHint(c model.Column) string {
	if c.Type == model.ColumnJSON {
		return "well formatted JSON structure, structure details: " + c.TypeDetails
	}
	return string(c.Type)
}

func parseIntDefault(s string, def int64) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return def
	}
	return v
}
