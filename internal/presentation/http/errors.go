package httppresentation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Zhima-Mochi/travelshop/internal/application"
	domainInventory "github.com/Zhima-Mochi/travelshop/internal/domain/inventory"
	domainOrder "github.com/Zhima-Mochi/travelshop/internal/domain/order"
	domainPayment "github.com/Zhima-Mochi/travelshop/internal/domain/payment"
	"github.com/Zhima-Mochi/travelshop/internal/observability"
	"github.com/Zhima-Mochi/travelshop/internal/observability/logctx"
)

const (
	msgBadRequest   = "요청 정보가 올바르지 않습니다."
	msgUnauthorized = "로그인이 필요합니다."
	msgForbidden    = "접근 권한이 없습니다."
	msgNotFound     = "요청한 정보를 찾을 수 없습니다."
	msgConflict     = "다른 요청과 충돌했습니다. 잠시 후 다시 시도해 주세요."
	msgSoldOut      = "재고가 부족하여 예약할 수 없습니다."
	msgRateLimited  = "요청이 너무 많습니다. 잠시 후 다시 시도해 주세요."
	msgTimeout      = "요청 시간이 초과되었습니다."
	msgInternal     = "서버 오류가 발생했습니다. 잠시 후 다시 시도해 주세요."
)

// problem is the HTTP shape of an error: status, stable code and the
// localized message shown to users.
type problem struct {
	status  int
	code    string
	message string
}

func classify(err error) problem {
	switch {
	case errors.Is(err, application.ErrUnauthenticated):
		return problem{http.StatusUnauthorized, "UNAUTHORIZED", msgUnauthorized}
	case errors.Is(err, application.ErrPermission):
		return problem{http.StatusForbidden, "FORBIDDEN", msgForbidden}
	// a failed reservation may wrap inventory.ErrNotFound; it is still a 409
	case errors.Is(err, domainOrder.ErrInventoryUnavailable),
		errors.Is(err, domainInventory.ErrInsufficientStock):
		return problem{http.StatusConflict, "INVENTORY_UNAVAILABLE", msgSoldOut}
	case errors.Is(err, domainOrder.ErrNotFound),
		errors.Is(err, domainInventory.ErrNotFound),
		errors.Is(err, domainPayment.ErrNotFound):
		return problem{http.StatusNotFound, "NOT_FOUND", msgNotFound}
	case errors.Is(err, domainOrder.ErrConflict),
		errors.Is(err, domainPayment.ErrConflict):
		return problem{http.StatusConflict, "CONFLICT", msgConflict}
	case errors.Is(err, application.ErrValidation),
		errors.Is(err, domainOrder.ErrInvalidTransition),
		errors.Is(err, domainOrder.ErrInvalidStatus),
		errors.Is(err, domainOrder.ErrInvalidQuantity),
		errors.Is(err, domainOrder.ErrInvalidAmount),
		errors.Is(err, domainInventory.ErrInvalidQuantity):
		return problem{http.StatusBadRequest, "INVALID_REQUEST", msgBadRequest}
	case errors.Is(err, context.DeadlineExceeded):
		return problem{http.StatusGatewayTimeout, "TIMEOUT", msgTimeout}
	default:
		return problem{http.StatusInternalServerError, "INTERNAL_ERROR", msgInternal}
	}
}

func paymentStatus(kind domainPayment.Kind) int {
	switch kind {
	case domainPayment.KindVerificationFailed, domainPayment.KindDeclined:
		return http.StatusBadRequest
	case domainPayment.KindNetwork:
		return http.StatusGatewayTimeout
	case domainPayment.KindGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code,omitempty"`
	Detail string `json:"detail,omitempty"`
}

type paymentErrorResponse struct {
	Success bool           `json:"success"`
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Detail  string         `json:"detail,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeDomainError answers {error} with a fixed localized message. The
// underlying error text is included only in dev.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	p := classify(err)
	h.logFailure(r, p.status, err)
	body := errorResponse{Error: p.message, Code: p.code}
	if h.dev {
		body.Detail = err.Error()
	}
	writeJSON(w, p.status, body)
}

// writePaymentError answers {success:false, error, code}. Payment errors
// carry their curated message; everything else is classified as usual.
func (h *Handler) writePaymentError(w http.ResponseWriter, r *http.Request, err error) {
	var body paymentErrorResponse
	var status int

	var pe *domainPayment.Error
	if errors.As(err, &pe) {
		status = paymentStatus(pe.Kind)
		body = paymentErrorResponse{Error: pe.UserMessage(), Code: pe.Code}
		if h.dev {
			body.Details = pe.Details
		}
	} else {
		p := classify(err)
		status = p.status
		body = paymentErrorResponse{Error: p.message, Code: p.code}
	}
	h.logFailure(r, status, err)
	if h.dev {
		body.Detail = err.Error()
	}
	writeJSON(w, status, body)
}

func (h *Handler) logFailure(r *http.Request, status int, err error) {
	logger := logctx.FromOr(r.Context(), h.log)
	fields := []observability.Field{
		observability.F("route", routeFromContext(r.Context())),
		observability.F("status", status),
		observability.F("error", err.Error()),
	}
	if status >= http.StatusInternalServerError {
		logger.Error("http_request_failed", fields...)
		return
	}
	logger.Warn("http_request_rejected", fields...)
}
