package property

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kodi/core"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterEnum(validate, translator, "propertytype", Types...)
	core.RegisterEnum(validate, translator, "unitstatus", UnitStatuses...)
	core.RegisterEnum(validate, translator, "marketplace", Marketplaces...)
}
