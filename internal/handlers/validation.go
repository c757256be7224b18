package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"filevault/internal/apperr"
)

var tagNamesOnce sync.Once

// registerValidatorTagNames makes validation errors report the JSON field
// name instead of the Go struct field.
func registerValidatorTagNames() {
	tagNamesOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
			if name == "-" || name == "" {
				return field.Name
			}
			return name
		})
	})
}

// bindError turns a gin binding failure on obj into a field-keyed
// validation error.
func bindError(c *gin.Context, obj any, err error) *apperr.Error {
	var (
		verrs   validator.ValidationErrors
		typeErr *json.UnmarshalTypeError
		numErr  *strconv.NumError
		syntax  *json.SyntaxError
	)
	switch {
	case errors.As(err, &verrs):
		fields := make(map[string][]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = append(fields[fe.Field()], fieldMessage(fe))
		}
		return apperr.ValidationFields(fields)
	case errors.As(err, &typeErr):
		return apperr.FieldValidation(typeErr.Field, typeMessage(typeErr.Type.Kind()))
	case errors.As(err, &numErr):
		return apperr.FieldValidation(numericField(c, obj, numErr.Num), typeMessage(reflect.Int))
	case errors.As(err, &syntax), errors.Is(err, io.ErrUnexpectedEOF):
		return apperr.Validation(fmt.Sprintf("JSON parse error - %s", err.Error()))
	case errors.Is(err, io.EOF):
		return apperr.Validation("No data provided")
	default:
		return apperr.Validation(err.Error())
	}
}

// numericField finds the numeric form field of obj whose submitted value is
// num. Form binding errors carry only the offending text, not the field.
func numericField(c *gin.Context, obj any, num string) string {
	t := reflect.TypeOf(obj)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return apperr.NonField
	}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		kind := field.Type.Kind()
		if kind == reflect.Pointer {
			kind = field.Type.Elem().Kind()
		}
		formName, _, _ := strings.Cut(field.Tag.Get("form"), ",")
		if formName == "" || formName == "-" || !isNumber(kind) {
			continue
		}
		if c.PostForm(formName) != num && c.Query(formName) != num {
			continue
		}
		if name, _, _ := strings.Cut(field.Tag.Get("json"), ","); name != "" && name != "-" {
			return name
		}
		return formName
	}
	return apperr.NonField
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "max":
		if isNumber(fe.Kind()) {
			return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
		}
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "min":
		if isNumber(fe.Kind()) {
			return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
		}
		return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
	default:
		return fmt.Sprintf("Failed on the '%s' rule.", fe.Tag())
	}
}

func typeMessage(kind reflect.Kind) string {
	if isNumber(kind) {
		return "A valid integer is required."
	}
	return "Not a valid string."
}

func isNumber(kind reflect.Kind) bool {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
