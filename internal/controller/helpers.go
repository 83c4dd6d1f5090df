package controller

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// bindAndValidate hace el bind del JSON y corre los tags validate. No escribe la
// respuesta: cada handler decide qué revelar del error.
func bindAndValidate(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return fmt.Errorf("json inválido: %w", err)
	}
	return validate.Struct(req)
}

// invalidFields resume los tags que fallaron por campo, para el log.
func invalidFields(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return fields
}
