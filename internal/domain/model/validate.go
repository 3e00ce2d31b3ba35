package model

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator checks lead records against their struct tags and cross-field rules.
type Validator struct {
	v *validator.Validate
}

// NewValidator returns a Validator with the lead rules registered.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(leadActivityOrder, LeadRecord{})
	return &Validator{v: v}
}

// Lead validates lead, returning a *ValidationError listing each violated field.
func (val *Validator) Lead(lead LeadRecord) error {
	err := val.v.Struct(lead)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{LeadID: lead.LeadID, Fields: []FieldError{{Field: "lead", Rule: err.Error()}}}
	}
	out := &ValidationError{LeadID: lead.LeadID}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Rule: fe.Tag()})
	}
	return out
}

func leadActivityOrder(sl validator.StructLevel) {
	lead, ok := sl.Current().Interface().(LeadRecord)
	if !ok {
		return
	}
	if lead.CreatedAt.IsZero() || lead.LastActivityAt.IsZero() {
		return
	}
	if lead.LastActivityAt.Before(lead.CreatedAt) {
		sl.ReportError(lead.LastActivityAt, "last_activity_at", "LastActivityAt", "gte_created_at", "")
	}
}
