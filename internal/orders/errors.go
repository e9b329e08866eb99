package orders

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	ErrNotFound      = errors.New("orders: order not found")
	ErrClaimConflict = errors.New("orders: order already claimed")
	ErrNotAuthorized = errors.New("orders: order claimed by another worker")
	ErrNotClaimed    = errors.New("orders: order is not claimed")
	ErrValidation    = errors.New("orders: validation failed")
)

// ValidationError lists the intake fields that failed validation.
// It matches ErrValidation via errors.Is.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("orders: invalid fields: %s", strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validate checks the required intake fields.
func (in *OrderInput) Validate() error {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		})
	})

	in.Origin = strings.TrimSpace(in.Origin)
	in.Destination = strings.TrimSpace(in.Destination)

	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	ve := &ValidationError{}
	for _, fe := range verrs {
		ve.Fields = append(ve.Fields, fmt.Sprintf("%s(%s)", fe.Field(), fe.Tag()))
	}
	return ve
}
