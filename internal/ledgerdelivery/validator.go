package ledgerdelivery

import (
	"github.com/go-petr/bank-ledger/internal/domain"
	"github.com/go-playground/validator/v10"
)

// ValidAmount validates whether the field is a positive money amount with at most 2 decimal places.
var ValidAmount validator.Func = func(fl validator.FieldLevel) bool {
	if a, ok := fl.Field().Interface().(string); ok {
		_, err := domain.NormalizeAmount(a)
		return err == nil
	}
	return false
}
