package form

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/erp/console/internal/domain/entity"
	"github.com/erp/console/internal/domain/filter"
)

// FieldError is one invalid input.
type FieldError struct {
	Field   string
	Label   string
	Message string
}

// ValidationErrors is returned by Submit when local validation fails.
// No request is sent in that case.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fe.Label+": "+fe.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Field returns the error for field, if any.
func (v ValidationErrors) Field(name string) (FieldError, bool) {
	for _, fe := range v {
		if fe.Field == name {
			return fe, true
		}
	}
	return FieldError{}, false
}

const tagNonNegativeDecimal = "nonneg_decimal"

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation(tagNonNegativeDecimal, func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(strings.TrimSpace(fl.Field().String()))
		return err == nil && !d.IsNegative()
	})
	return v
}

// rulesFor returns the validator tag for a field.
func rulesFor(f entity.Field) string {
	var tags []string
	if f.Required {
		tags = append(tags, "required")
	} else {
		tags = append(tags, "omitempty")
	}
	switch f.Kind {
	case entity.KindDecimal:
		tags = append(tags, tagNonNegativeDecimal)
	case entity.KindInteger, entity.KindReference:
		tags = append(tags, "number")
	case entity.KindEmail:
		tags = append(tags, "email")
	case entity.KindDate:
		tags = append(tags, "datetime="+filter.DateLayout)
	case entity.KindBool:
		tags = append(tags, "boolean")
	}
	if len(f.Options) > 0 {
		tags = append(tags, "oneof="+strings.Join(f.Options, " "))
	}
	return strings.Join(tags, ",")
}

func (c *Controller) validate(values map[string]string) ValidationErrors {
	var errs ValidationErrors
	for _, f := range c.schema.Fields {
		if c.schema.IsDerived(f.Name) {
			continue
		}
		value := strings.TrimSpace(values[f.Name])
		if f.Kind == entity.KindSecret && c.mode == ModeEdit && value == "" {
			continue
		}
		err := c.validator.Var(value, rulesFor(f))
		if err == nil {
			continue
		}
		fe := FieldError{Field: f.Name, Label: labelOf(f), Message: "Invalid value"}
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe.Message = message(verrs[0], f)
		}
		errs = append(errs, fe)
	}
	return errs
}

func message(e validator.FieldError, f entity.Field) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case tagNonNegativeDecimal:
		return "Must be a non-negative number"
	case "number":
		if f.Kind == entity.KindReference {
			return "Must be a record id"
		}
		return "Must be a non-negative whole number"
	case "datetime":
		return "Must be a date (YYYY-MM-DD)"
	case "boolean":
		return "Must be true or false"
	case "oneof":
		return "Must be one of: " + strings.Join(f.Options, ", ")
	default:
		return "Invalid value"
	}
}

func labelOf(f entity.Field) string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}
