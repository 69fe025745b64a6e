package maintenance

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kodi/core"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterEnum(validate, translator, "priority", Priorities...)
	core.RegisterEnum(validate, translator, "requeststatus", Statuses...)
	core.RegisterEnum(validate, translator, "requestcategory", Categories...)
	core.RegisterEnum(validate, translator, "trade", Trades...)
}
