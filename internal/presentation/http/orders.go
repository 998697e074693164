package httppresentation

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Zhima-Mochi/travelshop/internal/application"
	appOrder "github.com/Zhima-Mochi/travelshop/internal/application/order"
	domainOrder "github.com/Zhima-Mochi/travelshop/internal/domain/order"

	"github.com/go-chi/chi/v5"
)

const dateLayout = "2006-01-02"

// jsonDate accepts "2006-01-02" or RFC 3339.
type jsonDate struct{ time.Time }

func (d *jsonDate) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	t, err := parseDate(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t.UTC(), nil
}

type travelDateRequest struct {
	Start jsonDate `json:"start"`
	End   jsonDate `json:"end"`
}

type travelerCountsRequest struct {
	Adult  int `json:"adult"`
	Child  int `json:"child"`
	Infant int `json:"infant"`
}

type travelerPricesRequest struct {
	Adult  int64 `json:"adult"`
	Child  int64 `json:"child"`
	Infant int64 `json:"infant"`
}

type orderItemRequest struct {
	ProductID   string                 `json:"productId"`
	InventoryID string                 `json:"inventoryId"`
	Title       string                 `json:"title"`
	Price       int64                  `json:"price"`
	Quantity    int                    `json:"quantity"`
	TravelDate  *travelDateRequest     `json:"travelDate"`
	Travelers   *travelerCountsRequest `json:"travelers"`
	Prices      *travelerPricesRequest `json:"prices"`
}

type ordererRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type travelerRequest struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Phone     string `json:"phone"`
	BirthDate string `json:"birthDate"`
}

type createOrderRequest struct {
	Items           []orderItemRequest `json:"items"`
	Orderer         ordererRequest     `json:"orderer"`
	Travelers       []travelerRequest  `json:"travelers"`
	PaymentMethod   string             `json:"paymentMethod"`
	SpecialRequests string             `json:"specialRequests"`
	Total           *int64             `json:"total"`
}

type createOrderResponse struct {
	ID          string             `json:"id"`
	OrderNumber string             `json:"orderNumber"`
	Status      domainOrder.Status `json:"status"`
	Total       int64              `json:"total"`
	Currency    string             `json:"currency"`
}

func (req createOrderRequest) toInput(actor application.Actor) appOrder.CreateOrderInput {
	in := appOrder.CreateOrderInput{
		Actor: actor,
		Orderer: appOrder.Orderer{
			Name:    req.Orderer.Name,
			Email:   req.Orderer.Email,
			Phone:   req.Orderer.Phone,
			Address: req.Orderer.Address,
		},
		PaymentMethod:   req.PaymentMethod,
		SpecialRequests: req.SpecialRequests,
		Total:           req.Total,
	}
	for _, it := range req.Items {
		li := domainOrder.LineItem{
			ProductID:   it.ProductID,
			InventoryID: it.InventoryID,
			Title:       it.Title,
			UnitPrice:   it.Price,
			Quantity:    it.Quantity,
		}
		if it.TravelDate != nil {
			li.Travel = &domainOrder.DateRange{Start: it.TravelDate.Start.Time, End: it.TravelDate.End.Time}
		}
		if it.Travelers != nil {
			li.Travelers = &domainOrder.TravelerCounts{Adult: it.Travelers.Adult, Child: it.Travelers.Child, Infant: it.Travelers.Infant}
		}
		if it.Prices != nil {
			li.Prices = &domainOrder.TravelerPrices{Adult: it.Prices.Adult, Child: it.Prices.Child, Infant: it.Prices.Infant}
		}
		in.Items = append(in.Items, li)
	}
	for _, t := range req.Travelers {
		typ := domainOrder.TravelerType(strings.ToLower(t.Type))
		if typ == "" {
			typ = domainOrder.TravelerAdult
		}
		in.Travelers = append(in.Travelers, domainOrder.Traveler{Name: t.Name, Type: typ, Phone: t.Phone, BirthDate: t.BirthDate})
	}
	return in
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	result, err := h.uc.CreateOrder.Execute(r.Context(), req.toInput(actorOf(r)))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, createOrderResponse{
		ID:          result.OrderID,
		OrderNumber: result.OrderNumber,
		Status:      result.Status,
		Total:       result.Total,
		Currency:    result.Currency,
	})
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.uc.ListOrders.Execute(r.Context(), appOrder.ListOrdersInput{Actor: actorOf(r)})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": toOrderViews(orders)})
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	actor := actorOf(r)
	if !actor.Authenticated() {
		h.writeDomainError(w, r, application.ErrUnauthenticated)
		return
	}
	o, err := h.uc.GetOrder.Execute(r.Context(), appOrder.GetOrderInput{Actor: actor, OrderID: chi.URLParam(r, "id")})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(o))
}

type updateStatusRequest struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
	Note    string `json:"note"`
}

type updateStatusResponse struct {
	Order         orderView `json:"order"`
	Changed       bool      `json:"changed"`
	RestockErrors []string  `json:"restockErrors,omitempty"`
}

// handleUpdateStatus serves PATCH /api/orders/{id}: customers may cancel
// their own pending or confirmed orders, administrators follow the table.
func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.updateStatus(w, r, chi.URLParam(r, "id"), req)
}

// handleAdminUpdateStatus serves PATCH /api/orders with the id in the body.
func (h *Handler) handleAdminUpdateStatus(w http.ResponseWriter, r *http.Request) {
	if err := requireAdmin(actorOf(r)); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	var req updateStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.updateStatus(w, r, req.OrderID, req)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request, orderID string, req updateStatusRequest) {
	actor := actorOf(r)
	if !actor.Authenticated() {
		h.writeDomainError(w, r, application.ErrUnauthenticated)
		return
	}
	res, err := h.uc.UpdateStatus.Execute(r.Context(), appOrder.UpdateStatusInput{
		Actor:   actor,
		OrderID: orderID,
		Status:  req.Status,
		Note:    req.Note,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	body := updateStatusResponse{Order: toOrderView(res.Order), Changed: res.Changed}
	for _, e := range res.RestockErrors {
		body.RestockErrors = append(body.RestockErrors, e.Error())
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *Handler) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	actor := actorOf(r)
	if !actor.Authenticated() {
		h.writeDomainError(w, r, application.ErrUnauthenticated)
		return
	}
	if err := h.uc.DeleteOrder.Execute(r.Context(), appOrder.DeleteOrderInput{Actor: actor, OrderID: chi.URLParam(r, "id")}); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

type bulkUpdateRequest struct {
	OrderIDs []string `json:"orderIds"`
	Status   string   `json:"status"`
	Note     string   `json:"note"`
}

type bulkError struct {
	ID    string `json:"id"`
	Error string `json:"error"`
	Code  string `json:"code"`
}

type bulkUpdateResponse struct {
	Updated []string    `json:"updated"`
	Errors  []bulkError `json:"errors"`
}

func (h *Handler) handleBulkUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req bulkUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	actor := actorOf(r)
	if !actor.Authenticated() {
		h.writeDomainError(w, r, application.ErrUnauthenticated)
		return
	}
	res, err := h.uc.BulkUpdateStatus.Execute(r.Context(), appOrder.BulkUpdateStatusInput{
		Actor:    actor,
		OrderIDs: req.OrderIDs,
		Status:   req.Status,
		Note:     req.Note,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	body := bulkUpdateResponse{Updated: res.Updated, Errors: make([]bulkError, 0, len(res.Errors))}
	for _, e := range res.Errors {
		p := classify(e.Err)
		msg := p.message
		if h.dev {
			msg = e.Err.Error()
		}
		body.Errors = append(body.Errors, bulkError{ID: e.OrderID, Error: msg, Code: p.code})
	}
	writeJSON(w, http.StatusOK, body)
}

type adminListResponse struct {
	Orders     []orderView `json:"orders"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"totalPages"`
}

func (h *Handler) handleAdminListOrders(w http.ResponseWriter, r *http.Request) {
	actor := actorOf(r)
	if !actor.Authenticated() {
		h.writeDomainError(w, r, application.ErrUnauthenticated)
		return
	}
	filter, err := parseListFilter(r)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	res, err := h.uc.ListAdminOrders.Execute(r.Context(), appOrder.ListAdminOrdersInput{Actor: actor, Filter: filter})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	pages := 0
	if res.Limit > 0 {
		pages = (res.Total + res.Limit - 1) / res.Limit
	}
	writeJSON(w, http.StatusOK, adminListResponse{
		Orders:     toOrderViews(res.Orders),
		Total:      res.Total,
		Page:       res.Page,
		Limit:      res.Limit,
		TotalPages: pages,
	})
}

// parseListFilter reads the admin list query. The date "to" bound is
// inclusive of the whole day.
func parseListFilter(r *http.Request) (domainOrder.ListFilter, error) {
	q := r.URL.Query()
	var f domainOrder.ListFilter

	for _, raw := range q["status"] {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				f.Statuses = append(f.Statuses, domainOrder.Status(s))
			}
		}
	}
	if v := q.Get("from"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return f, application.Validation(err.Error())
		}
		f.CreatedFrom = t
	}
	if v := q.Get("to"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return f, application.Validation(err.Error())
		}
		if len(v) == len(dateLayout) {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		f.CreatedTo = t
	}
	ints := []struct {
		key string
		dst *int64
	}{{"minAmount", &f.MinTotal}, {"maxAmount", &f.MaxTotal}}
	for _, it := range ints {
		if v := q.Get(it.key); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil || n < 0 {
				return f, application.Validation(it.key + " must be a non-negative integer")
			}
			*it.dst = n
		}
	}
	for key, dst := range map[string]*int{"page": &f.Page, "limit": &f.Limit} {
		if v := q.Get(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return f, application.Validation(key + " must be an integer")
			}
			*dst = n
		}
	}
	f.PaymentMethod = q.Get("paymentMethod")
	f.PaymentStatus = domainOrder.PaymentStatus(q.Get("paymentStatus"))
	f.ProductID = q.Get("productId")
	f.Search = q.Get("q")
	if f.Search == "" {
		f.Search = q.Get("search")
	}
	if v := q.Get("sort"); v != "" {
		f.Sort = domainOrder.SortKey(v)
		f.Desc = strings.EqualFold(q.Get("order"), "desc")
	}
	return f, nil
}

func requireAdmin(a application.Actor) error {
	if !a.Authenticated() {
		return application.ErrUnauthenticated
	}
	if !a.IsAdmin() {
		return application.Permission("administrator role required")
	}
	return nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return application.Validation("request body too large")
		}
		return application.Validation("malformed json: " + err.Error())
	}
	return nil
}
