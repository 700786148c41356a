package student

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/schooldesk/core"
)

var (
	datetimeTag  = "datetime"
	datetimeText = "date must be formatted as YYYY-MM-DD"

	nefieldTag  = "nefield"
	nefieldText = "classes must be different"
)

// InitValidators registers the translations used by the student inputs.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterCustomTranslation(validate, translator, datetimeTag, datetimeText, true)
	core.RegisterCustomTranslation(validate, translator, nefieldTag, nefieldText, true)
}
