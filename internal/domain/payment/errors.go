package payment

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNetwork            Kind = "network"
	KindVerificationFailed Kind = "verification_failed"
	KindDeclined           Kind = "declined"
	KindGateway            Kind = "gateway"
	KindUnknown            Kind = "unknown"
)

// Common codes returned to clients. Provider codes are mapped onto these and
// only survive in Error.Details.
const (
	CodeNetwork             = "PAYMENT_NETWORK_ERROR"
	CodeTimeout             = "PAYMENT_TIMEOUT"
	CodeAmountMismatch      = "PAYMENT_AMOUNT_MISMATCH"
	CodeOrderMismatch       = "PAYMENT_ORDER_MISMATCH"
	CodeNotApproved         = "PAYMENT_NOT_APPROVED"
	CodeEntryNotFound       = "PAYMENT_NOT_FOUND"
	CodeEntryClosed         = "PAYMENT_ALREADY_CLOSED"
	CodeProviderMismatch    = "PAYMENT_PROVIDER_MISMATCH"
	CodeOrderNotPayable     = "PAYMENT_ORDER_NOT_PAYABLE"
	CodeOrderAlreadyPaid    = "PAYMENT_ORDER_ALREADY_PAID"
	CodeDeclined            = "PAYMENT_DECLINED"
	CodeCancelled           = "PAYMENT_CANCELLED"
	CodeInsufficientFunds   = "PAYMENT_INSUFFICIENT_FUNDS"
	CodeCardRejected        = "PAYMENT_CARD_REJECTED"
	CodeLimitExceeded       = "PAYMENT_LIMIT_EXCEEDED"
	CodeExpired             = "PAYMENT_EXPIRED"
	CodeDuplicate           = "PAYMENT_DUPLICATE"
	CodeGateway             = "PAYMENT_GATEWAY_ERROR"
	CodeInvalidRequest      = "PAYMENT_INVALID_REQUEST"
	CodeProviderUnavailable = "PAYMENT_PROVIDER_UNAVAILABLE"
	CodeNotConfigured       = "PROVIDER_NOT_CONFIGURED"
	CodeUnknown             = "PAYMENT_UNKNOWN_ERROR"
)

// Error is the uniform payment failure. Details may hold provider specific
// values such as the raw provider code.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("payment %s (%s): %s: %v", e.Kind, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("payment %s (%s): %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage is the curated, non-technical text shown to payers.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindNetwork:
		return "결제사와 통신 중 문제가 발생했습니다. 잠시 후 다시 시도해 주세요."
	case KindVerificationFailed:
		return "결제 정보 확인에 실패했습니다. 고객센터로 문의해 주세요."
	case KindDeclined:
		if e.Code == CodeCancelled {
			return "결제가 취소되었습니다."
		}
		return "결제가 승인되지 않았습니다. 다른 결제 수단을 이용해 주세요."
	case KindGateway:
		return "결제 서비스를 일시적으로 이용할 수 없습니다."
	default:
		return "결제 처리 중 알 수 없는 오류가 발생했습니다."
	}
}

func NewError(kind Kind, code, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// AsError extracts a payment Error. Anything else is wrapped into the
// unknown bucket so callers always get a code.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	return NewError(KindUnknown, CodeUnknown, "unexpected payment failure", err)
}

func IsKind(err error, kind Kind) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == kind
}
