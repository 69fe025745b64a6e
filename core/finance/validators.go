package finance

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kodi/core"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterEnum(validate, translator, "txtype", Types...)
	core.RegisterEnum(validate, translator, "txcategory", Categories...)
	core.RegisterEnum(validate, translator, "rentstatus", RentStatuses...)
	core.RegisterEnum(validate, translator, "paymentmethod", PaymentMethods...)
}
