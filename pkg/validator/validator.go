package validator

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"wallet-gas/internal/model"
)

var validate *validator.Validate

// Init 注册自定义校验规则
// fee_tier: 字符串必须是合法的档位标识
func Init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		validate = v
		_ = validate.RegisterValidation("fee_tier", func(fl validator.FieldLevel) bool {
			_, err := model.ParseFeeTier(fl.Field().String())
			return err == nil
		})
	}
}

// GetErrorMsg translates validation errors into user-friendly messages
func GetErrorMsg(err error) string {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		var errMsgs []string
		for _, e := range validationErrors {
			field := e.Field()
			tag := e.Tag()
			param := e.Param()

			switch tag {
			case "required":
				errMsgs = append(errMsgs, fmt.Sprintf("%s is required", field))
			case "min":
				errMsgs = append(errMsgs, fmt.Sprintf("%s must be at least %s", field, param))
			case "oneof":
				errMsgs = append(errMsgs, fmt.Sprintf("%s must be one of [%s]", field, param))
			case "eth_addr":
				errMsgs = append(errMsgs, fmt.Sprintf("%s is not an address", field))
			case "fee_tier":
				errMsgs = append(errMsgs, fmt.Sprintf("%s is not a fee tier", field))
			default:
				errMsgs = append(errMsgs, fmt.Sprintf("%s failed validation (%s)", field, tag))
			}
		}
		return strings.Join(errMsgs, "; ")
	}
	return err.Error()
}
