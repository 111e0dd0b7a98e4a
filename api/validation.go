package api

import (
	"regexp"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// E.164-ish: optional +, 7 to 15 digits
var phoneRe = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

var validationOnce sync.Once

// registerValidations adds custom binding rules to gin's validator engine.
func registerValidations() {
	validationOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
				return phoneRe.MatchString(fl.Field().String())
			})
		}
	})
}
