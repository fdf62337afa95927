package registration

import (
	"net/http"

	commonerrors "github.com/AlibekovAA/registration-board/internal/common/errors"
)

var (
	ErrClosed = commonerrors.NewDomainError(
		"CONTROLLER_CLOSED",
		commonerrors.CategoryInternal,
		http.StatusGone,
		"registration session is closed",
	)

	ErrAlreadyInitialized = commonerrors.NewDomainError(
		"CONTROLLER_ALREADY_INITIALIZED",
		commonerrors.CategoryInternal,
		http.StatusConflict,
		"registration session already initialized",
	)
)

// errorMessage is the text shown next to the form or the list. Validation
// errors keep their cause so the user learns which field is wrong.
func errorMessage(err error) string {
	de, ok := commonerrors.InnermostDomainError(err)
	if !ok {
		return err.Error()
	}
	if de.Category() == commonerrors.CategoryValidation {
		return de.Error()
	}
	return de.Message()
}
