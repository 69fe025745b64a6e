package tenant

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kodi/core"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterEnum(validate, translator, "screeningcheck", ScreeningChecks...)
	core.RegisterEnum(validate, translator, "screeningstatus", ScreeningStatuses...)
}
