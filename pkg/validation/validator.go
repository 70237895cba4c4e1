package validation

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/dd0wney/cluso-graphview/pkg/visualization"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// MaxRecords caps a single relation load
	MaxRecords = 10000

	// Relation kinds are upper-case identifiers such as DEPENDS_ON
	kindPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)
	// Entity ids are opaque but must be printable and free of slashes so
	// they can travel in URL paths
	idPattern = regexp.MustCompile(`^[^/\s]+$`)
)

func init() {
	validate = validator.New()
}

// ValidateRecord validates a single relation record
func ValidateRecord(rec *visualization.RelationRecord) error {
	if rec == nil {
		return errors.New("relation record cannot be nil")
	}

	if err := validate.Struct(rec); err != nil {
		return formatValidationError(err)
	}

	if !kindPattern.MatchString(rec.Kind) {
		return fmt.Errorf("Kind: %q contains invalid characters (letters, digits and underscore only)", rec.Kind)
	}

	for _, side := range []struct {
		name string
		id   string
	}{{"Source", rec.Source.ID}, {"Target", rec.Target.ID}} {
		if err := ValidateNodeID(side.id); err != nil {
			return fmt.Errorf("%s: %w", side.name, err)
		}
	}

	return nil
}

// RecordError reports why a record at a given input position was rejected
type RecordError struct {
	Index int
	ID    string
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d (%s): %v", e.Index, e.ID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// FilterRecords returns the records that pass ValidateRecord, in input
// order, and one RecordError per rejected record.
func FilterRecords(records []visualization.RelationRecord) ([]visualization.RelationRecord, []*RecordError) {
	valid := make([]visualization.RelationRecord, 0, len(records))
	var rejected []*RecordError

	for i := range records {
		if err := ValidateRecord(&records[i]); err != nil {
			rejected = append(rejected, &RecordError{Index: i, ID: records[i].ID, Err: err})
			continue
		}
		valid = append(valid, records[i])
	}
	return valid, rejected
}

// ValidateRecordCount checks the size of a relation load
func ValidateRecordCount(n int) error {
	if n > MaxRecords {
		return fmt.Errorf("relation count must not exceed %d, got %d", MaxRecords, n)
	}
	return nil
}

// ValidateNodeID validates an entity id
func ValidateNodeID(id string) error {
	if id == "" {
		return errors.New("entity id cannot be empty")
	}
	if err := validate.Var(id, "max=128"); err != nil {
		return fmt.Errorf("entity id exceeds maximum length of 128 characters")
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("entity id %q contains whitespace or '/'", id)
	}
	return nil
}

// ValidateStruct checks the validate tags of v, such as an inbound session
// message
func ValidateStruct(v any) error {
	return formatValidationError(validate.Struct(v))
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// Report the first failure only
	for _, e := range validationErrs {
		field := e.Namespace()
		param := e.Param()

		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "oneof":
			return fmt.Errorf("%s: must be one of %s", field, param)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
		}
	}

	return err
}
