package ledger

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/schooldesk/core"
)

var (
	monthsTag  = "months"
	monthsText = "months must be distinct calendar month names"
)

// InitValidators registers the ledger validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(monthsTag, monthsValidation)
	core.RegisterCustomTranslation(validate, translator, monthsTag, monthsText)
}

// monthsValidation checks a []string holds distinct english month names.
func monthsValidation(fl validator.FieldLevel) bool {
	months, ok := fl.Field().Interface().([]string)
	if !ok {
		return false
	}
	seen := make(map[string]bool, len(months))
	for _, m := range months {
		cm := CanonicalMonth(m)
		if !isMonth(cm) || seen[cm] {
			return false
		}
		seen[cm] = true
	}
	return true
}

func isMonth(m string) bool {
	for mo := time.January; mo <= time.December; mo++ {
		if mo.String() == m {
			return true
		}
	}
	return false
}
