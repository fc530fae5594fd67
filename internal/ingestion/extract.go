package ingestion

import (
	"strings"
)

// Extract finds the first `"field":` in record and returns the string value
// that follows it. Backslash escapes \n, \t and \r become control
// characters; any other escaped character is kept literally. A field that
// is missing, or whose value is not a string, is reported as absent.
func Extract(record, field string) (string, bool) {
	key := `"` + field + `":`
	pos := strings.Index(record, key)
	if pos < 0 {
		return "", false
	}
	rest := strings.TrimLeft(record[pos+len(key):], " \t\r\n")
	if !strings.HasPrefix(rest, `"`) {
		return "", false
	}
	rest = rest[1:]

	var sb strings.Builder
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		if c == '"' {
			break
		}
		if c == '\\' && i+1 < len(rest) {
			i++
			switch rest[i] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			default:
				sb.WriteByte(rest[i])
			}
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String(), true
}

// ParseRecord extracts the three indexer fields from one input line.
func ParseRecord(line string) Record {
	var rec Record
	rec.HTML, rec.HasHTML = Extract(line, FieldHTML)
	rec.URL, _ = Extract(line, FieldURL)
	rec.ExternalID, _ = Extract(line, FieldExternalID)
	return rec
}
