// Package ingestion reads the line-delimited document records fed to the
// indexer. Each record is a JSON-like object exposing three string fields;
// they are located with a deliberately naive scanner rather than a full JSON
// decode, so slightly malformed crawler output is still accepted.
package ingestion

// Field names looked up in every record.
const (
	FieldHTML       = "html_content"
	FieldURL        = "url"
	FieldExternalID = "$oid"
)

// Record is the part of an input line the indexer cares about. HasHTML is
// false when the record carried no html_content field at all, as opposed
// to an empty one.
type Record struct {
	HTML       string `json:"html_content"`
	URL        string `json:"url"`
	ExternalID string `json:"external_id"`
	HasHTML    bool   `json:"-"`
}
