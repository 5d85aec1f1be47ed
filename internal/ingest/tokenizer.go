package ingest

import "strings"

// Tokenize splits one CSV line into raw fields.
//
// Commas separate fields only outside quote mode. A double quote toggles quote
// mode and is not copied into the field; there is no escaping of the next
// character. The result always has at least one field, so an empty line
// yields [""].
//
// A line with an odd number of quotes ends with quote mode still on. The
// fields produced in that case are unspecified, but Tokenize never fails.
func Tokenize(line string) []string {
	fields := make([]string, 0, strings.Count(line, ",")+1)

	var current strings.Builder
	inQuotes := false

	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			fields = append(fields, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}

	return append(fields, current.String())
}
