package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string
	Rule    string
	Param   string
	Message string
}

// BindForm binds a submitted form into out. On failure it returns field
// errors keyed by form field name, ready for the template.
func BindForm(ctx *gin.Context, out interface{}) (map[string]string, bool) {
	err := ctx.ShouldBind(out)

	if err != nil {
		return fieldErrorMap(parseBindError(err, out)), false
	}

	return nil, true
}

func fieldErrorMap(fields []FieldError) map[string]string {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		if _, seen := out[f.Field]; seen {
			continue
		}
		out[f.Field] = f.Message
	}
	return out
}

func parseBindError(err error, out interface{}) []FieldError {
	rootType := baseStructType(out)

	// validator errors (struct bind tags)

	var validatorError validator.ValidationErrors

	if errors.As(err, &validatorError) {
		fields := make([]FieldError, 0, len(validatorError))

		for _, fieldError := range validatorError {
			field := formPathFromValidatorError(rootType, fieldError)
			rule := fieldError.Tag()
			param := fieldError.Param()

			if rule == "eqfield" && rootType != nil {
				if sf, ok := rootType.FieldByName(param); ok {
					param = formNameFromStructField(sf)
				}
			}

			fields = append(fields, FieldError{
				Field:   field,
				Rule:    rule,
				Param:   param,
				Message: validationMessage(rule, param),
			})
		}
		return fields
	}

	// in the event of a type mismatch (e.g. "abc" for an id)

	var numError *strconv.NumError

	if errors.As(err, &numError) {
		return []FieldError{{Field: "form", Rule: "type", Message: "contains an invalid value"}}
	}

	// final fallback if the error could not be deciphered
	return []FieldError{{Field: "form", Rule: "invalid", Message: err.Error()}}
}

func baseStructType(v interface{}) reflect.Type {
	t := reflect.TypeOf(v)

	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t != nil && t.Kind() == reflect.Struct {
		return t
	}

	return nil
}

func formPathFromValidatorError(rootType reflect.Type, fieldError validator.FieldError) string {
	if rootType != nil {
		if sf, ok := rootType.FieldByName(fieldError.StructField()); ok {
			return formNameFromStructField(sf)
		}
	}

	return fieldError.Field()
}

func formNameFromStructField(sf reflect.StructField) string {
	tag := sf.Tag.Get("form")
	if tag == "" {
		return sf.Name
	}

	name, _, _ := strings.Cut(tag, ",")
	if name == "" || name == "-" {
		return sf.Name
	}

	return name
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	case "len":
		return "must be exactly " + param
	case "eqfield":
		return "must match " + param
	case "url":
		return "must be a valid URL"
	case "username":
		return "usernames must have only letters, numbers, dots or underscores"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}
