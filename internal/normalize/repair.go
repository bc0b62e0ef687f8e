package normalize

import (
	"regexp"
	"strings"
)

// Repair regexes. Order matters: fences are stripped before the payload is
// bounded, and quoting is fixed before trailing commas are removed so the
// comma pass sees canonical delimiters.
var (
	fenceRe         = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")
	singleQuoteKey  = regexp.MustCompile(`(^|[{,\s])'([A-Za-z0-9_ -]+)'(\s*:)`)
	trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)
)

// stripFences removes markdown code fences, keeping the fenced payload when
// one exists.
func stripFences(raw string) string {
	if m := fenceRe.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	return strings.ReplaceAll(raw, "```", "")
}

// boundPayload trims surrounding prose by bounding the JSON substring.
// Objects are preferred; a bare array is accepted when no object is present.
func boundPayload(s string) (string, bool) {
	objStart := strings.Index(s, "{")
	objEnd := strings.LastIndex(s, "}")
	arrStart := strings.Index(s, "[")
	arrEnd := strings.LastIndex(s, "]")

	// A bare array wins only when it opens before any object does.
	if arrStart != -1 && arrEnd > arrStart && (objStart == -1 || arrStart < objStart) {
		return s[arrStart : arrEnd+1], true
	}
	if objStart != -1 && objEnd > objStart {
		return s[objStart : objEnd+1], true
	}
	return "", false
}

// repairJSON applies targeted fixes for the defects providers commonly
// produce: single-quoted keys, trailing commas, and unescaped control
// characters inside string literals.
func repairJSON(s string) string {
	s = singleQuoteKey.ReplaceAllString(s, `$1"$2"$3`)
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	return escapeControlChars(s)
}

// escapeControlChars escapes raw control characters that appear inside JSON
// string literals. Providers routinely emit literal newlines in description
// fields, which encoding/json rejects.
func escapeControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	escaped := false
	for _, r := range s {
		if escaped {
			b.WriteRune(r)
			escaped = false
			continue
		}
		switch {
		case inString && r == '\\':
			b.WriteRune(r)
			escaped = true
		case r == '"':
			inString = !inString
			b.WriteRune(r)
		case inString && r == '\n':
			b.WriteString(`\n`)
		case inString && r == '\r':
			b.WriteString(`\r`)
		case inString && r == '\t':
			b.WriteString(`\t`)
		case inString && r < 0x20:
			// Drop other control characters outright.
		default:
			b.WriteRune(r)
		}
	}

	return b.String()
}
