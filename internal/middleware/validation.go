package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/yigit/saffron/internal/app/models/dto"
	"github.com/yigit/saffron/internal/pkg/validation"
)

// RegisterValidators installs the custom validation tags on gin's binding engine
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected binding validator engine")
	}
	return validation.Register(v)
}

// BindJSON binds the request body into obj and writes a 400 response when that fails.
// It reports whether the handler may continue.
func BindJSON(c *gin.Context, obj interface{}) bool {
	return bindWith(c, obj, c.ShouldBindJSON)
}

// BindQuery binds query parameters into obj like BindJSON
func BindQuery(c *gin.Context, obj interface{}) bool {
	return bindWith(c, obj, c.ShouldBindQuery)
}

func bindWith(c *gin.Context, obj interface{}, bind func(interface{}) error) bool {
	err := bind(obj)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		AbortWithError(c, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Validation failed", validation.FieldMessages(verrs))
		return false
	}
	AbortWithError(c, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Invalid request format", err.Error())
	return false
}
