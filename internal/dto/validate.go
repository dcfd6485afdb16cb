package dto

import "github.com/go-playground/validator/v10"

var validate = validator.New()

// Validate runs struct-tag validation on a request body
func Validate(s any) error {
	return validate.Struct(s)
}
