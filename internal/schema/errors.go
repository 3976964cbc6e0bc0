package schema

import (
	"errors"
	"fmt"
)

// Kind - класс прикладной ошибки движка.
type Kind string

const (
	KindValidation  Kind = "validation_error"
	KindDuplicate   Kind = "duplicate_name"
	KindNotFound    Kind = "not_found"
	KindUnavailable Kind = "unavailable" // бэкенд хранения недоступен (сеть, пул соединений)
)

// Error - прикладная ошибка с полем, к которому она относится (если есть).
type Error struct {
	Kind    Kind
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is позволяет писать errors.Is(err, schema.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Field == ""
}

// Сентинелы для errors.Is: сравнивается только Kind.
var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrDuplicateName = &Error{Kind: KindDuplicate}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrUnavailable   = &Error{Kind: KindUnavailable}
)

func Validation(field, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: fmt.Sprintf(format, args...)}
}

func Duplicate(format string, args ...any) *Error {
	return &Error{Kind: KindDuplicate, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func TableNotFound(table string) *Error {
	return &Error{Kind: KindNotFound, Field: "table_name", Message: fmt.Sprintf("table %q not found", table)}
}

func Unavailable(err error) *Error {
	return &Error{Kind: KindUnavailable, Message: "storage backend unavailable", Err: err}
}

// KindOf возвращает Kind прикладной ошибки или "" для прочих.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
