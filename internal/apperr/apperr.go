package apperr

import (
	"errors"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
)

type Kind int

const (
	Internal Kind = iota
	Validation
	NotFound
	Conflict
	Unauthorized
	Forbidden
)

// GenericMessage iç hatalarda kullanıcıya gösterilen mesaj
const GenericMessage = "İşlem sırasında hata oluştu. Tekrar deneyin."

// Error servislerin döndürdüğü, kullanıcıya gösterilebilir hata
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Validationf(format string, args ...any) *Error {
	return New(Validation, fmt.Sprintf(format, args...))
}

func NotFoundf(format string, args ...any) *Error {
	return New(NotFound, fmt.Sprintf(format, args...))
}

func Conflictf(format string, args ...any) *Error {
	return New(Conflict, fmt.Sprintf(format, args...))
}

// Wrap apperr olmayan hatayı Internal olarak sarar; zaten apperr ise dokunmaz.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	if msg == "" {
		msg = GenericMessage
	}
	return &Error{Kind: Internal, Message: msg, Err: err}
}

func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Internal
}

func Is(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}

func Status(kind Kind) int {
	switch kind {
	case Validation:
		return fiber.StatusBadRequest
	case NotFound:
		return fiber.StatusNotFound
	case Conflict:
		return fiber.StatusConflict
	case Unauthorized:
		return fiber.StatusUnauthorized
	case Forbidden:
		return fiber.StatusForbidden
	}
	return fiber.StatusInternalServerError
}

// Fiber servis hatasını ErrorHandler'ın anladığı *fiber.Error'a çevirir.
// Internal hataların asıl sebebi loglanır, kullanıcıya sadece mesaj döner.
func Fiber(err error) error {
	if err == nil {
		return nil
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe
	}
	var ae *Error
	if !errors.As(err, &ae) {
		log.Printf("Beklenmeyen hata: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, GenericMessage)
	}
	if ae.Kind == Internal && ae.Err != nil {
		log.Printf("%s (sebep: %v)", ae.Message, ae.Err)
	}
	return fiber.NewError(Status(ae.Kind), ae.Message)
}
