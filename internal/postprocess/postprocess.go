// Package postprocess turns a raw model completion into the stored cell
// value for each column type, grounded on the original service's
// generate_text/generate_integer/generate_float/generate_bool/generate_json.
package postprocess

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/yosuke-furukawa/json5/encoding/json5"

	"github.com/corvid-labs/rowgen/internal/model"
	"github.com/corvid-labs/rowgen/internal/rgerrors"
)

// Apply dispatches raw model output to the cleanup routine for colType.
// Scalar types never fail — they degrade to a type default. Only JSON can
// return an error, per spec.md §7's propagation rule.
func Apply(colType model.ColumnType, raw string) (string, error) {
	switch colType {
	case model.ColumnInt:
		return GenerateInt(raw), nil
	case model.ColumnFloat:
		return GenerateFloat(raw), nil
	case model.ColumnBool:
		return GenerateBool(raw), nil
	case model.ColumnJSON:
		return GenerateJSON(raw)
	default:
		return CleanTextArtifacts(raw), nil
	}
}

// CleanTextArtifacts strips the chat-completion noise a small local model
// tends to emit around a raw value: code fences, stray escaped quotes,
// trailing newlines, and a single layer of wrapping quotes.
func CleanTextArtifacts(s string) string {
	s = strings.TrimSpace(s)
	s = trimAllPrefix(s, "```")
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	s = trimAllPrefix(s, `\"`)
	s = strings.TrimLeftFunc(s, unicode.IsSpace)

	if idx := strings.Index(s, "```"); idx > 0 {
		s = s[:idx]
	}

	for {
		before := len(s)
		s = trimAllSuffix(s, "```")
		s = trimAllSuffix(s, `\"`)
		s = trimAllSuffix(s, `\n`)
		s = strings.TrimRight(s, "\n")
		s = trimAllSuffix(s, `\r`)
		s = strings.TrimRight(s, "\r")
		if len(s) == before {
			break
		}
	}

	return unwrapQuotes(s)
}

func trimAllPrefix(s, prefix string) string {
	for strings.HasPrefix(s, prefix) {
		s = s[len(prefix):]
	}
	return s
}

func trimAllSuffix(s, suffix string) string {
	for strings.HasSuffix(s, suffix) {
		s = s[:len(s)-len(suffix)]
	}
	return s
}

func unwrapQuotes(s string) string {
	startsDouble := strings.HasPrefix(s, `"`)
	endsDouble := strings.HasSuffix(s, `"`)
	if startsDouble && endsDouble && len(s) >= 2 {
		return strings.TrimSpace(s[1 : len(s)-1])
	}

	startsSingle := strings.HasPrefix(s, "'")
	endsSingle := strings.HasSuffix(s, "'")
	if startsSingle && endsSingle && len(s) >= 2 {
		return strings.TrimSpace(s[1 : len(s)-1])
	}

	switch {
	case startsDouble && !endsDouble:
		return strings.TrimSpace(s[1:])
	case endsDouble && !startsDouble:
		return strings.TrimSpace(s[:len(s)-1])
	case startsSingle && !endsSingle:
		return strings.TrimSpace(s[1:])
	case endsSingle && !startsSingle:
		return strings.TrimSpace(s[:len(s)-1])
	}
	return s
}

// GenerateInt extracts the leading run of digit/./-/+ characters and parses
// it as a float before rounding, matching the original's "parse as f64,
// round to i64" behavior. Any failure degrades to 0.
func GenerateInt(raw string) string {
	f, ok := leadingFloat(raw)
	if !ok {
		return "0"
	}
	return strconv.FormatInt(int64(math.Round(f)), 10)
}

// GenerateFloat extracts the leading numeric run and parses it as a float.
// Any failure degrades to 0.0.
func GenerateFloat(raw string) string {
	f, ok := leadingFloat(raw)
	if !ok {
		return "0"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func leadingFloat(raw string) (float64, bool) {
	end := 0
	for end < len(raw) {
		c := raw[end]
		if (c >= '0' && c <= '9') || c == '.' || c == '-' || c == '+' {
			end++
			continue
		}
		break
	}
	if end == 0 {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw[:end], 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// GenerateBool parses a trimmed response as a strict "true"/"false"
// literal, defaulting to false on anything else.
func GenerateBool(raw string) string {
	if strings.TrimSpace(raw) == "true" {
		return "true"
	}
	return "false"
}

// GenerateJSON extracts the first bracketed structure from raw, repairs an
// unbalanced tail by appending the missing closers, and decodes it
// permissively (trailing commas, unquoted keys, single-quoted strings) via
// json5 before re-encoding to canonical JSON for storage. It is the one
// postprocess path that can fail; a failure here fails the generation
// session per spec.md §7.
func GenerateJSON(raw string) (string, error) {
	body, err := extractJSONBody(raw)
	if err != nil {
		return "", err
	}

	var v interface{}
	if err := json5.Unmarshal([]byte(body), &v); err != nil {
		return "", rgerrors.Wrap(rgerrors.KindParse, "json5 decode failed", err)
	}

	out, err := json.Marshal(v)
	if err != nil {
		return "", rgerrors.Wrap(rgerrors.KindParse, "json encode failed", err)
	}
	return string(out), nil
}

func extractJSONBody(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	openIdx := -1
	var closeChar byte
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '{':
			openIdx, closeChar = i, '}'
		case '[':
			openIdx, closeChar = i, ']'
		}
		if openIdx != -1 {
			break
		}
	}
	if openIdx == -1 {
		return "", rgerrors.New(rgerrors.KindParse, "no JSON structure found in response")
	}

	openChar := text[openIdx]
	body := text[openIdx:]
	if closeIdx := strings.LastIndexByte(text, closeChar); closeIdx > openIdx {
		body = text[openIdx : closeIdx+1]
	}

	return repairBalance(body, openChar, closeChar), nil
}

// repairBalance counts openers vs. closers of the identified bracket kind
// and fixes a truncated or over-closed structure: missing closers are
// appended, missing openers are prepended, matching spec's "append missing
// closers (balance > 0) or prepend missing openers (balance < 0)" rule.
func repairBalance(body string, openChar, closeChar byte) string {
	balance := strings.Count(body, string(openChar)) - strings.Count(body, string(closeChar))
	switch {
	case balance > 0:
		return body + strings.Repeat(string(closeChar), balance)
	case balance < 0:
		return strings.Repeat(string(openChar), -balance) + body
	default:
		return body
	}
}
