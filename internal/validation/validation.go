// Package validation owns the single input validator used by every entry point:
// REST bodies (through gin's binding hook), realtime event payloads, and configuration.
package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/ayushanand27/xhire/internal/domain"
)

var (
	once     sync.Once
	instance *validator.Validate
)

// Validator returns the shared, fully configured validator.
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(jsonFieldName)
		mustRegister(v, "notblank", notBlank)
		mustRegister(v, "room_role", func(fl validator.FieldLevel) bool {
			return domain.Role(fl.Field().String()).Valid()
		})
		mustRegister(v, "room_type", func(fl validator.FieldLevel) bool {
			return domain.RoomType(fl.Field().String()).Valid()
		})
		mustRegister(v, "activity_type", func(fl validator.FieldLevel) bool {
			return domain.ActivityType(fl.Field().String()).Valid()
		})
		mustRegister(v, "permission_key", func(fl validator.FieldLevel) bool {
			key := fl.Field().String()
			for _, allowed := range domain.PermissionKeys {
				if key == allowed {
					return true
				}
			}
			return false
		})
		instance = v
	})
	return instance
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic("validation: register " + tag + ": " + err.Error())
	}
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}

func notBlank(fl validator.FieldLevel) bool {
	field := fl.Field()
	switch field.Kind() {
	case reflect.String:
		return strings.TrimSpace(field.String()) != ""
	case reflect.Slice, reflect.Map, reflect.Array:
		return field.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !field.IsNil()
	}
	return !field.IsZero()
}

// Struct validates a struct (or pointer to one).
func Struct(s any) error {
	return Validator().Struct(s)
}

// PermissionPatch checks that a wire-format permission patch is non-empty and only
// uses allow-listed keys.
func PermissionPatch(patch map[string]bool) error {
	return Validator().Var(patch, "min=1,dive,keys,permission_key,endkeys")
}

// Describe renders a validation error as "field: rule" pairs for client-facing messages.
// Non-validation errors are returned unchanged.
func Describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		if field == "" {
			field = "value"
		}
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		parts = append(parts, field+": "+rule)
	}
	return strings.Join(parts, "; ")
}

// ginValidator plugs the shared validator into gin's ShouldBind* helpers.
type ginValidator struct{}

func (ginValidator) ValidateStruct(obj any) error {
	if obj == nil {
		return nil
	}
	value := reflect.ValueOf(obj)
	for value.Kind() == reflect.Pointer {
		if value.IsNil() {
			return nil
		}
		value = value.Elem()
	}
	if value.Kind() != reflect.Struct {
		return nil
	}
	return Validator().Struct(obj)
}

func (ginValidator) Engine() any { return Validator() }

// InstallGin makes gin bind with the shared validator and its `validate` tags.
func InstallGin() {
	binding.Validator = ginValidator{}
}
