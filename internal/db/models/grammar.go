package models

import (
	"regexp"
	"strings"

	"github.com/genovault/genovault/internal/apperr"
)

// ReservedGroupPrefix is the bucket-name prefix reserved for result buckets.
// A group code starting with it would collide with another group's
// results-{code} bucket.
const ReservedGroupPrefix = "results-"

var (
	groupCodeRx           = regexp.MustCompile(`^[a-z0-9-]{3,}$`)
	familyCodenameRx      = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	participantCodenameRx = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
)

// ValidateGroupCode enforces the group-code grammar: lowercase alphanumerics
// plus '-', length at least 3, not starting with the reserved prefix.
func ValidateGroupCode(op, code string) error {
	if !groupCodeRx.MatchString(code) {
		return apperr.Invalid(op, "group code %q must be at least 3 lowercase alphanumeric or '-' characters", code)
	}

	if strings.HasPrefix(code, ReservedGroupPrefix) {
		return apperr.Invalid(op, "group code %q must not start with %q", code, ReservedGroupPrefix)
	}

	return nil
}

// ValidateFamilyCodename enforces the family codename grammar.
func ValidateFamilyCodename(op, codename string) error {
	if !familyCodenameRx.MatchString(codename) {
		return apperr.Invalid(op, "family codename %q must be alphanumerics, '-' or '_'", codename)
	}

	return nil
}

// ValidateParticipantCodename enforces the participant codename grammar:
// the family alphabet plus '.', and not all dots.
func ValidateParticipantCodename(op, codename string) error {
	if !participantCodenameRx.MatchString(codename) {
		return apperr.Invalid(op, "participant codename %q must be alphanumerics, '-', '_' or '.'", codename)
	}

	if strings.Trim(codename, ".") == "" {
		return apperr.Invalid(op, "participant codename %q must not be all dots", codename)
	}

	return nil
}
