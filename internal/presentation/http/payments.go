package httppresentation

import (
	"net/http"

	"github.com/Zhima-Mochi/travelshop/internal/application"
	appPayment "github.com/Zhima-Mochi/travelshop/internal/application/payment"
	domainOrder "github.com/Zhima-Mochi/travelshop/internal/domain/order"

	"github.com/go-chi/chi/v5"
)

type initiatePaymentRequest struct {
	OrderID string `json:"orderId"`
	BaseURL string `json:"baseUrl"`
}

type initiatePaymentData struct {
	PaymentID     string `json:"paymentId"`
	TransactionID string `json:"transactionId"`
	RedirectURL   string `json:"redirectUrl"`
	MobileURL     string `json:"mobileUrl,omitempty"`
	AppURL        string `json:"appUrl,omitempty"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
}

type confirmPaymentData struct {
	PaymentID        string             `json:"paymentId"`
	OrderID          string             `json:"orderId"`
	OrderNumber      string             `json:"orderNumber,omitempty"`
	TransactionID    string             `json:"transactionId"`
	Amount           int64              `json:"amount"`
	Currency         string             `json:"currency"`
	Method           string             `json:"method,omitempty"`
	OrderStatus      domainOrder.Status `json:"orderStatus,omitempty"`
	AlreadyProcessed bool               `json:"alreadyProcessed"`
}

type paymentResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

func (h *Handler) handleInitiatePayment(w http.ResponseWriter, r *http.Request) {
	actor := actorOf(r)
	if !actor.Authenticated() {
		h.writePaymentError(w, r, application.ErrUnauthenticated)
		return
	}
	var req initiatePaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writePaymentError(w, r, err)
		return
	}
	if req.BaseURL == "" {
		req.BaseURL = requestOrigin(r)
	}

	res, err := h.uc.InitiatePayment.Execute(r.Context(), appPayment.InitiatePaymentInput{
		Actor:    actor,
		Provider: chi.URLParam(r, "provider"),
		OrderID:  req.OrderID,
		BaseURL:  req.BaseURL,
	})
	if err != nil {
		h.writePaymentError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paymentResponse{Success: true, Data: initiatePaymentData{
		PaymentID:     res.PaymentID,
		TransactionID: res.TransactionID,
		RedirectURL:   res.RedirectURL,
		MobileURL:     res.MobileURL,
		AppURL:        res.AppURL,
		Amount:        res.Amount,
		Currency:      res.Currency,
	}})
}

// handleConfirmPayment is the provider redirect target. It needs no session:
// the payment id in the query is checked against the ledger instead.
func (h *Handler) handleConfirmPayment(w http.ResponseWriter, r *http.Request) {
	res, err := h.uc.ConfirmPayment.Execute(r.Context(), appPayment.ConfirmPaymentInput{
		Provider: chi.URLParam(r, "provider"),
		Query:    r.URL.Query(),
	})
	if err != nil {
		h.writePaymentError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paymentResponse{Success: true, Data: confirmPaymentData{
		PaymentID:        res.PaymentID,
		OrderID:          res.OrderID,
		OrderNumber:      res.OrderNumber,
		TransactionID:    res.TransactionID,
		Amount:           res.Amount,
		Currency:         res.Currency,
		Method:           res.Method,
		OrderStatus:      res.OrderStatus,
		AlreadyProcessed: res.AlreadyProcessed,
	}})
}

func requestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p == "http" || p == "https" {
		scheme = p
	}
	host := r.Host
	if fh := r.Header.Get("X-Forwarded-Host"); fh != "" {
		host = fh
	}
	return scheme + "://" + host
}
