package handlers

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	appErrors "github.com/charlesng35/authflow/pkg/errors"
	"github.com/charlesng35/authflow/pkg/response"
	appValidator "github.com/charlesng35/authflow/pkg/validator"
)

// bindAndValidate binds the JSON payload into dest and runs struct validation rules.
// An empty body binds to the zero value so missing fields surface as validation errors.
// When validation fails, an error response is automatically written and false is returned.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return false
	}

	if err := appValidator.ValidateStruct(dest); err != nil {
		response.Error(c, appErrors.NewValidation(formatValidationError(err)))
		return false
	}

	return true
}

// formatValidationError turns rule failures into the client message. A payload
// missing several fields gets the generic validation message instead of a list.
func formatValidationError(err error) string {
	var fe appValidator.FieldErrors
	if !errors.As(err, &fe) || len(fe) == 0 {
		return ""
	}
	if len(fe) > 1 && fe.AllMissing() {
		return ""
	}
	return fe.Error()
}
