package wire

import "fmt"

// Kind is the stable integer error code carried in a reply frame's status
// field and mapped onto an HTTP status by the HTTP transport.
type Kind uint32

const (
	KindOK Kind = 0

	KindInvalidCommand          Kind = 1
	KindInvalidFormat           Kind = 2
	KindUnauthenticated         Kind = 3
	KindUnauthorized            Kind = 4
	KindStreamNotFound          Kind = 5
	KindStreamAlreadyExists     Kind = 6
	KindTopicNotFound           Kind = 7
	KindTopicAlreadyExists      Kind = 8
	KindPartitionNotFound       Kind = 9
	KindConsumerGroupNotFound   Kind = 10
	KindConsumerGroupExists     Kind = 11
	KindOffsetOutOfRange        Kind = 12
	KindIOError                 Kind = 13
	KindChecksumMismatch        Kind = 14
	KindResourceNameInvalid     Kind = 15
	KindUserNotFound            Kind = 16
	KindInvalidCredentials      Kind = 17
)

// Error is the typed error returned by the engine and converted into a
// status frame (binary transports) or an HTTP status (HTTP transport) by
// the dispatcher/transport boundary.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("wire: error kind %d", e.Kind)
	}
	return e.Message
}

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: err.Error()}
}

// As extracts a *Error from any error, defaulting unrecognized errors to
// KindIOError so the wire layer always has a status to send.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	if werr, ok := err.(*Error); ok {
		return werr
	}
	return &Error{Kind: KindIOError, Message: err.Error()}
}
