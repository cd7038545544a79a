package payment

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// Kind is the closed set of payment failure kinds.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindDuplicatePayment
	KindStudentNotFound
	KindClassNotFound
	KindStudentNotEnrolled
	KindInvalidAmount
	KindPermissionDenied
	KindUnauthenticated
	KindTransport
	KindInFlight
)

// TagPaymentNotFound is reported when deleting an unknown payment. It has no Kind of its own.
const TagPaymentNotFound = "PAYMENT_NOT_FOUND"

var (
	kindNames = map[Kind]string{
		KindUnknown:            "unknown",
		KindValidation:         "validation",
		KindDuplicatePayment:   "duplicate_payment",
		KindStudentNotFound:    "student_not_found",
		KindClassNotFound:      "class_not_found",
		KindStudentNotEnrolled: "student_not_enrolled",
		KindInvalidAmount:      "invalid_amount",
		KindPermissionDenied:   "permission_denied",
		KindUnauthenticated:    "unauthenticated",
		KindTransport:          "transport",
		KindInFlight:           "in_flight",
	}

	wireTags = map[Kind]string{
		KindValidation:         "VALIDATION_ERROR",
		KindDuplicatePayment:   "DUPLICATE_PAYMENT",
		KindStudentNotFound:    "STUDENT_NOT_FOUND",
		KindClassNotFound:      "CLASS_NOT_FOUND",
		KindStudentNotEnrolled: "STUDENT_NOT_ENROLLED",
		KindInvalidAmount:      "INVALID_AMOUNT",
		KindPermissionDenied:   "PERMISSION_DENIED",
		KindUnauthenticated:    "UNAUTHENTICATED",
	}

	userMessages = map[Kind]string{
		KindValidation:         "Some payment details are missing or invalid.",
		KindDuplicatePayment:   "A payment for this student, class and month has already been recorded.",
		KindStudentNotFound:    "This student no longer exists.",
		KindClassNotFound:      "One of the classes no longer exists.",
		KindStudentNotEnrolled: "The student is not enrolled in the class being paid for.",
		KindInvalidAmount:      "The payment amount is not acceptable.",
		KindPermissionDenied:   "You are not allowed to record payments.",
		KindUnauthenticated:    "Your session has expired, please sign in again.",
		KindTransport:          "The server could not be reached. Check the payment list before submitting again.",
		KindInFlight:           "A payment for this student is already being submitted.",
	}
)

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

// WireTag returns the `errorType` of the kind, "" for kinds never sent by the backend.
func (k Kind) WireTag() string {
	return wireTags[k]
}

// Error is a classified payment failure.
type Error struct {
	Kind    Kind
	Tag     string            // errorType as sent on the wire
	Message string            // detail, or the backend supplied message
	Fields  map[string]string // per-field validation messages
	Err     error
}

func NewError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Tag: kind.WireTag(), Message: msg}
}

// FromWire translates a backend error body.
func FromWire(tag, msg string) *Error {
	for kind, t := range wireTags {
		if t == tag {
			return &Error{Kind: kind, Tag: tag, Message: msg}
		}
	}
	return &Error{Kind: KindUnknown, Tag: tag, Message: msg}
}

// PaymentNotFound returns the error reported when deleting an unknown payment.
func PaymentNotFound(id string) *Error {
	return &Error{Kind: KindUnknown, Tag: TagPaymentNotFound, Message: fmt.Sprintf("payment %s not found", id)}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.UserMessage()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage is the human readable text shown for the error.
// Unknown kinds fall back to the backend message.
func (e *Error) UserMessage() string {
	if e.Kind == KindUnknown {
		if e.Message != "" {
			return e.Message
		}
		return "The payment could not be processed."
	}
	return userMessages[e.Kind]
}

// Body returns the wire representation of the error.
func (e *Error) Body() ErrorBody {
	tag := e.Tag
	if tag == "" {
		tag = e.Kind.WireTag()
	}
	msg := e.Message
	if msg == "" {
		msg = e.UserMessage()
	}
	return ErrorBody{ErrorType: tag, Message: msg, Fields: e.Fields}
}

// Classify returns err as an *Error. Errors without structured meaning are transport errors.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var pErr *Error
	if errors.As(err, &pErr) {
		return pErr
	}
	return &Error{Kind: KindTransport, Err: err}
}

// KindOf returns the kind of err, KindUnknown for nil.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	return Classify(err).Kind
}

// IsCancelled reports whether err comes from an abandoned call.
func IsCancelled(err error) bool {
	cause := errors.Cause(err)
	return cause == context.Canceled || cause == context.DeadlineExceeded
}
