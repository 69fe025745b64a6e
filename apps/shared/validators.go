// Package shared holds the setup shared by the API and the admin CLI.
package shared

import (
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kodi/core"
	"github.com/trezcool/kodi/core/document"
	"github.com/trezcool/kodi/core/finance"
	"github.com/trezcool/kodi/core/maintenance"
	"github.com/trezcool/kodi/core/property"
	"github.com/trezcool/kodi/core/tenant"
	"github.com/trezcool/kodi/core/user"
)

// NewTranslator returns the english translator used for validation messages.
func NewTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// NewValidator returns a validator knowing every custom tag of every domain, with english messages.
func NewValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	property.InitValidators(validate, translator)
	tenant.InitValidators(validate, translator)
	maintenance.InitValidators(validate, translator)
	finance.InitValidators(validate, translator)
	document.InitValidators(validate, translator)
	return validate
}
