package graph

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/matzehuels/pipecheck/pkg/errors"
)

// validate is the validator instance for pipeline requests.
// Field names in errors are reported by their JSON names.
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

// Validate checks the structural requirements of a decoded pipeline: both
// lists present and every node carrying an id. It does not check edges
// against nodes; the checker handles unknown endpoints itself.
//
// The returned error has code INVALID_INPUT and names the first offending
// field, for example "nodes[2].id is required".
func Validate(p *Pipeline) error {
	if p == nil {
		return errors.New(errors.ErrCodeInvalidInput, "pipeline is required")
	}
	err := validate.Struct(p)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid pipeline")
	}
	return errors.New(errors.ErrCodeInvalidInput, "%s", describe(verrs[0]))
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	default:
		return fmt.Sprintf("%s failed %q validation", field, fe.Tag())
	}
}
