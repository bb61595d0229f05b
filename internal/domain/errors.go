package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound возвращается, когда запись отсутствует в хранилище или кэше.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists возвращается при нарушении уникальности.
	ErrAlreadyExists = errors.New("already exists")
)

// PlatformErrorKind классифицирует ошибки платформы.
type PlatformErrorKind int

const (
	// PlatformTransient: временная ошибка, можно повторить.
	PlatformTransient PlatformErrorKind = iota + 1
	// PlatformForbidden: пользователь не запускал бота или заблокировал его.
	PlatformForbidden
	// PlatformNotFound: сообщение или чат отсутствует.
	PlatformNotFound
	// PlatformFatal: прочие ошибки.
	PlatformFatal
)

func (k PlatformErrorKind) String() string {
	switch k {
	case PlatformTransient:
		return "transient"
	case PlatformForbidden:
		return "forbidden"
	case PlatformNotFound:
		return "not_found"
	default:
		return "fatal"
	}
}

// PlatformError — ошибка вызова платформы.
type PlatformError struct {
	Kind PlatformErrorKind
	Op   string
	Err  error
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("platform %s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *PlatformError) Unwrap() error {
	return e.Err
}

// PlatformKind возвращает класс ошибки платформы или 0, если это не ошибка платформы.
func PlatformKind(err error) PlatformErrorKind {
	var perr *PlatformError
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return 0
}

// IsForbidden сообщает, что пользователь недоступен для бота.
func IsForbidden(err error) bool {
	return PlatformKind(err) == PlatformForbidden
}

// IsNotFound сообщает, что объект на платформе или в хранилище отсутствует.
func IsNotFound(err error) bool {
	return PlatformKind(err) == PlatformNotFound || errors.Is(err, ErrNotFound)
}

// IgnoreNotFound превращает NotFound в успех.
func IgnoreNotFound(err error) error {
	if err != nil && IsNotFound(err) {
		return nil
	}
	return err
}
