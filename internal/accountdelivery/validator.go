package accountdelivery

import (
	"github.com/go-petr/bank-ledger/internal/domain"
	"github.com/go-playground/validator/v10"
)

// ValidAccountStatus validates whether the status is a known account status.
var ValidAccountStatus validator.Func = func(fl validator.FieldLevel) bool {
	if s, ok := fl.Field().Interface().(string); ok {
		return domain.AccountStatus(s).Valid()
	}
	return false
}
