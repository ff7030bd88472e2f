package errs

import (
	stderrors "errors"

	"github.com/pkg/errors"
)

// Kind — класс ошибки, от него зависит реакция движка:
// transient ретраится следующим тиком, credential валит только аккаунт,
// persistence ретраится на уровне пула.
type Kind int

const (
	KindUnknown Kind = iota
	KindTransient
	KindRejection
	KindDataIntegrity
	KindCredential
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindRejection:
		return "rejection"
	case KindDataIntegrity:
		return "data_integrity"
	case KindCredential:
		return "credential"
	case KindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

type kindError struct {
	kind Kind
	err  error
}

func (e *kindError) Error() string { return e.err.Error() }
func (e *kindError) Unwrap() error { return e.err }

func wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: kind, err: errors.Wrap(err, msg)}
}

func Transient(err error, msg string) error     { return wrap(KindTransient, err, msg) }
func Rejection(err error, msg string) error     { return wrap(KindRejection, err, msg) }
func DataIntegrity(err error, msg string) error { return wrap(KindDataIntegrity, err, msg) }
func Credential(err error, msg string) error    { return wrap(KindCredential, err, msg) }
func Persistence(err error, msg string) error   { return wrap(KindPersistence, err, msg) }

func Transientf(format string, args ...any) error {
	return &kindError{kind: KindTransient, err: errors.Errorf(format, args...)}
}

func Rejectionf(format string, args ...any) error {
	return &kindError{kind: KindRejection, err: errors.Errorf(format, args...)}
}

func DataIntegrityf(format string, args ...any) error {
	return &kindError{kind: KindDataIntegrity, err: errors.Errorf(format, args...)}
}

func Credentialf(format string, args ...any) error {
	return &kindError{kind: KindCredential, err: errors.Errorf(format, args...)}
}

// KindOf достаёт класс из цепочки; KindUnknown если не размечено.
func KindOf(err error) Kind {
	var ke *kindError
	if stderrors.As(err, &ke) {
		return ke.kind
	}
	return KindUnknown
}

func IsTransient(err error) bool  { return KindOf(err) == KindTransient }
func IsCredential(err error) bool { return KindOf(err) == KindCredential }
