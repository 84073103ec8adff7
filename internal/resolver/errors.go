package resolver

import (
	"errors"
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/hmans/speako/internal/predicate"
)

var (
	ErrUnknownType  = errors.New("unknown type")
	ErrNotDeletable = errors.New("type is not deletable")
)

// UnknownTypeError reports an operation on a type the resolver does not serve.
type UnknownTypeError struct {
	TypeName string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown type %q", e.TypeName)
}

// Is reports whether target is ErrUnknownType.
func (e *UnknownTypeError) Is(target error) bool {
	return target == ErrUnknownType
}

// Error codes set in the "code" extension of field errors.
const (
	CodeUnknownType                = "UNKNOWN_TYPE"
	CodeMalformedPredicate         = "MALFORMED_PREDICATE"
	CodeUnsupportedNestedPredicate = "UNSUPPORTED_NESTED_PREDICATE"
	CodeNotDeletable               = "NOT_DELETABLE"
	CodeInternal                   = "INTERNAL"
)

// Code returns the error code for err.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrUnknownType):
		return CodeUnknownType
	case errors.Is(err, predicate.ErrMalformedPredicate):
		return CodeMalformedPredicate
	case errors.Is(err, predicate.ErrUnsupportedNestedPredicate):
		return CodeUnsupportedNestedPredicate
	case errors.Is(err, ErrNotDeletable):
		return CodeNotDeletable
	default:
		return CodeInternal
	}
}

// FieldError wraps err as the failed resolution of field, with its code in
// the error extensions. It returns nil if err is nil.
func FieldError(field string, err error) *gqlerror.Error {
	if err == nil {
		return nil
	}
	var gerr *gqlerror.Error
	if errors.As(err, &gerr) {
		return gerr
	}

	gerr = gqlerror.WrapPath(ast.Path{ast.PathName(field)}, err)
	gerr.Extensions = map[string]interface{}{
		"code": Code(err),
	}
	return gerr
}
