package metadata

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate = validator.New()

// ValidateEntity checks an entity record before it is persisted.
//
// Struct tags cover required fields and enumerations; the remaining rules
// relate fields to each other and are checked by hand.
func ValidateEntity(e *Entity) error {
	if e == nil {
		return NewInvalidArgumentError("entity is nil")
	}

	if err := validate.Struct(e); err != nil {
		return formatValidationError(err)
	}

	if e.InTrash != (e.DeletedAt != nil) {
		return NewInvalidArgumentError("deleted_at must be set iff in_trash (in_trash=%v)", e.InTrash)
	}

	if e.IsFolder() && (e.ContentRef != "" || e.ContentURL != "" || e.SizeBytes != 0) {
		return NewInvalidArgumentError("folder %q cannot carry content attributes", e.Name)
	}

	if e.ParentID != "" && e.ParentID == e.ID {
		return NewInvalidArgumentError("entity %s cannot be its own parent", e.ID)
	}

	return nil
}

// formatValidationError converts validator errors into StoreErrors.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok && len(validationErrs) > 0 {
		e := validationErrs[0]
		return &StoreError{
			Code:    ErrInvalidArgument,
			Message: fmt.Sprintf("%s: validation failed on '%s' tag (value: %v)", e.Namespace(), e.Tag(), e.Value()),
		}
	}
	return &StoreError{Code: ErrInvalidArgument, Message: "invalid entity", Err: err}
}
