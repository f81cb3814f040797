package middleware

import (
	"errors"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/vouge2017/ethio-farm-connect-sub000/internal/phone"
)

// RegisterValidators adds the custom binding tags to gin's validator:
//
//	ethphone  an Ethiopian mobile number in any accepted local form
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected binding validator engine")
	}
	return v.RegisterValidation("ethphone", func(fl validator.FieldLevel) bool {
		return phone.Validate(fl.Field().String())
	})
}
