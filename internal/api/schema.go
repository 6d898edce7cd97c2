package api

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidDocument is returned when a document does not match the statistics schema.
var ErrInvalidDocument = errors.New("invalid checkpoint statistics document")

//go:embed schema/statistics.schema.json
var statisticsSchema []byte

// Schema returns the JSON schema of the Statistics document.
func Schema() []byte {
	out := make([]byte, len(statisticsSchema))
	copy(out, statisticsSchema)

	return out
}

// ValidateDocument checks a JSON-encoded Statistics document against the schema.
// Every violation is reported, joined into one error wrapping ErrInvalidDocument.
func ValidateDocument(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(statisticsSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if result.Valid() {
		return nil
	}

	violations := make([]error, 0, len(result.Errors()))

	for _, verr := range result.Errors() {
		violations = append(violations, fmt.Errorf("%s: %s", verr.Field(), verr.Description()))
	}

	return fmt.Errorf("%w: %w", ErrInvalidDocument, errors.Join(violations...))
}
