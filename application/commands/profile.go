package commands

import (
	"io"

	pkgerrors "neuronote/pkg/errors"
)

// UpdateProfilePhotoCommand stores a new avatar for the caller
type UpdateProfilePhotoCommand struct {
	UserID string    `validate:"required"`
	Photo  io.Reader `validate:"-"`
}

func (c UpdateProfilePhotoCommand) Validate() error {
	if err := validate(c); err != nil {
		return err
	}
	if c.Photo == nil {
		return pkgerrors.NewValidationError("photo is required")
	}
	return nil
}
