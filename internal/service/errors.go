package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation            = errors.New("validation")
	ErrNotFound              = errors.New("not found")
	ErrEmptyCart             = errors.New("empty cart")
	ErrPaymentDeclined       = errors.New("payment declined")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)

// UnknownProductsError names exactly which item ids failed product
// validation, so the caller can act on the list.
type UnknownProductsError struct {
	Missing []string
}

func (e *UnknownProductsError) Error() string {
	return fmt.Sprintf("unknown products: %s", strings.Join(e.Missing, ", "))
}

func (e *UnknownProductsError) Unwrap() error {
	return ErrValidation
}
