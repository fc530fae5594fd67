// Package validator decides whether an ingestion record can become a
// document and returns per-field error details when it cannot.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/errors"
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	var parts []string
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return apperrors.ErrInvalidRecord
}

// ValidateRecord rejects records without html_content. URL and external id
// are optional and stored byte for byte, whatever their length or encoding.
func ValidateRecord(rec *ingestion.Record) error {
	errs := make(map[string]string)
	if !rec.HasHTML {
		errs[ingestion.FieldHTML] = "field is required"
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
