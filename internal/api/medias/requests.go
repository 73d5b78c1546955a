package medias

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type (
	// SearchRequest is the body accepted by the 'search' action. Page and
	// PageSize are pointers so that an omitted field (defaulted) can be told
	// apart from an explicit zero (rejected).
	SearchRequest struct {
		Keyword  string `json:"keyword" validate:"required"`
		Page     *int   `json:"page" validate:"omitempty,gte=1"`
		PageSize *int   `json:"pageSize" validate:"omitempty,gte=1,lte=50"`
	}

	// InfoRequest is the body accepted by the 'info' action.
	InfoRequest struct {
		URL string `json:"url" validate:"required,url"`
	}

	// DownloadRequest is the body accepted by the 'download' action. It is
	// schema-identical to InfoRequest but kept distinct as the two actions
	// are expected to diverge once download orchestration exists.
	DownloadRequest struct {
		URL string `json:"url" validate:"required,url"`
	}

	// ValidationDetail is a single field-level validation failure, reported
	// using the field's JSON name.
	ValidationDetail struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	}
)

// NewValidate constructs the validator used by the media controller. Field
// names in validation errors are reported using their JSON tag so that the
// details in a 400 response match the request document the client sent.
func NewValidate() *validator.Validate {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}

		return name
	})

	return validate
}

// newValidationDetails converts validator failures into the field-level
// details attached to a 400 response.
func newValidationDetails(fieldErrors validator.ValidationErrors) []ValidationDetail {
	details := make([]ValidationDetail, 0, len(fieldErrors))
	for _, fieldError := range fieldErrors {
		details = append(details, ValidationDetail{
			Field:   fieldError.Field(),
			Message: describeFieldError(fieldError),
		})
	}

	return details
}

func describeFieldError(fieldError validator.FieldError) string {
	switch fieldError.Tag() {
	case "required":
		return fmt.Sprintf("'%s' is required", fieldError.Field())
	case "url":
		return fmt.Sprintf("'%s' must be a valid URL", fieldError.Field())
	case "gte":
		return fmt.Sprintf("'%s' must be at least %s", fieldError.Field(), fieldError.Param())
	case "lte":
		return fmt.Sprintf("'%s' must be at most %s", fieldError.Field(), fieldError.Param())
	default:
		return fmt.Sprintf("'%s' failed '%s' validation", fieldError.Field(), fieldError.Tag())
	}
}
