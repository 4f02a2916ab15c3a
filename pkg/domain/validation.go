package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Validate checks struct tags and variant payloads of a record.
func Validate(r Record) error {
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return NewInvalidValue(r.Entity(), fe.Field(), describeTag(fe))
		}
		return NewInvalidValue(r.Entity(), "", err.Error())
	}
	switch v := r.(type) {
	case Algorithm:
		return checkVariant(EntityAlgorithm, v.Kind, v.Quantum != nil)
	case Implementation:
		return checkVariant(EntityImplementation, v.Kind, v.Quantum != nil)
	case ProblemType:
		if v.ParentProblemTypeID != nil && v.ID != "" && *v.ParentProblemTypeID == v.ID {
			return NewInvalidValue(EntityProblemType, "parent_problem_type_id", "must not reference itself")
		}
	case AlgorithmRelation:
		if v.SourceAlgorithmID == v.TargetAlgorithmID {
			return NewInvalidValue(EntityAlgorithmRelation, "target_algorithm_id", "must differ from source")
		}
	}
	return nil
}

func checkVariant(kind EntityType, ck ComputationKind, hasPayload bool) error {
	switch {
	case ck.RequiresQuantumDetails() && !hasPayload:
		return NewInvalidValue(kind, "quantum", fmt.Sprintf("required for %s kind", ck))
	case !ck.RequiresQuantumDetails() && hasPayload:
		return NewInvalidValue(kind, "quantum", fmt.Sprintf("not allowed for %s kind", ck))
	}
	return nil
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "url":
		return "must be a URL"
	default:
		return fmt.Sprintf("failed %s", fe.Tag())
	}
}

// ValidatePropertyValue checks a property value against the declared data type.
func ValidatePropertyValue(dataType PropertyDataType, value string) error {
	switch dataType {
	case DataTypeInteger:
		if _, err := strconv.ParseInt(value, 10, 64); err != nil {
			return NewInvalidValue(EntityComputeResourceProperty, "value", fmt.Sprintf("%q is not an integer", value))
		}
	case DataTypeFloat:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return NewInvalidValue(EntityComputeResourceProperty, "value", fmt.Sprintf("%q is not a float", value))
		}
	case DataTypeString:
	default:
		return NewInvalidValue(EntityComputeResourcePropertyType, "data_type", fmt.Sprintf("unknown data type %q", dataType))
	}
	return nil
}
