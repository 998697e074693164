package httppresentation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/Zhima-Mochi/travelshop/internal/application"
	domainInventory "github.com/Zhima-Mochi/travelshop/internal/domain/inventory"
	domainOrder "github.com/Zhima-Mochi/travelshop/internal/domain/order"
	domainPayment "github.com/Zhima-Mochi/travelshop/internal/domain/payment"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{application.ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHORIZED"},
		{application.Permission("nope"), http.StatusForbidden, "FORBIDDEN"},
		{fmt.Errorf("%w: jeju (not found): %w", domainOrder.ErrInventoryUnavailable, domainInventory.ErrNotFound), http.StatusConflict, "INVENTORY_UNAVAILABLE"},
		{domainInventory.ErrInsufficientStock, http.StatusConflict, "INVENTORY_UNAVAILABLE"},
		{fmt.Errorf("load: %w", domainOrder.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{domainPayment.ErrConflict, http.StatusConflict, "CONFLICT"},
		{domainOrder.ErrInvalidTransition, http.StatusBadRequest, "INVALID_REQUEST"},
		{application.Validation("bad"), http.StatusBadRequest, "INVALID_REQUEST"},
		{context.DeadlineExceeded, http.StatusGatewayTimeout, "TIMEOUT"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		p := classify(tt.err)
		assert.Equal(t, tt.status, p.status, tt.err.Error())
		assert.Equal(t, tt.code, p.code, tt.err.Error())
		assert.NotEmpty(t, p.message)
	}
}

func TestPaymentStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, paymentStatus(domainPayment.KindVerificationFailed))
	assert.Equal(t, http.StatusBadRequest, paymentStatus(domainPayment.KindDeclined))
	assert.Equal(t, http.StatusGatewayTimeout, paymentStatus(domainPayment.KindNetwork))
	assert.Equal(t, http.StatusBadGateway, paymentStatus(domainPayment.KindGateway))
	assert.Equal(t, http.StatusInternalServerError, paymentStatus(domainPayment.KindUnknown))
}
