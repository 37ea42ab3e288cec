package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"github.com/go-playground/validator/v10"

	"github.com/genovault/genovault/internal/apperr"
)

var validate = validator.New()

// DecodeStrict parses a JSON request body into dst, rejecting unknown fields
// and validating the result before anything reaches the database.
func DecodeStrict(body []byte, dst interface{}) error {
	const op = "store.DecodeStrict"

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return apperr.Invalid(op, "malformed request body: %v", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return apperr.Invalid(op, "request body contains trailing data")
	}

	if err := validate.Struct(dst); err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) && len(invalid) > 0 {
			field := invalid[0]
			return apperr.Invalid(op, "field %q fails validation rule %q", field.Field(), field.Tag())
		}

		return apperr.Invalid(op, "request body fails validation: %v", err)
	}

	return nil
}
