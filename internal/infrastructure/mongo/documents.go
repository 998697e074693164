package mongo

import (
	"time"

	dominventory "github.com/Zhima-Mochi/travelshop/internal/domain/inventory"
	domorder "github.com/Zhima-Mochi/travelshop/internal/domain/order"
	dompayment "github.com/Zhima-Mochi/travelshop/internal/domain/payment"
)

type customerDoc struct {
	UserID  string `bson:"userId"`
	Name    string `bson:"name"`
	Email   string `bson:"email"`
	Phone   string `bson:"phone,omitempty"`
	Address string `bson:"address,omitempty"`
}

type travelerDoc struct {
	Name      string `bson:"name"`
	Type      string `bson:"type"`
	Phone     string `bson:"phone,omitempty"`
	BirthDate string `bson:"birthDate,omitempty"`
}

type countsDoc struct {
	Adult  int `bson:"adult"`
	Child  int `bson:"child"`
	Infant int `bson:"infant"`
}

type pricesDoc struct {
	Adult  int64 `bson:"adult"`
	Child  int64 `bson:"child"`
	Infant int64 `bson:"infant"`
}

type rangeDoc struct {
	Start time.Time `bson:"start"`
	End   time.Time `bson:"end"`
}

type itemDoc struct {
	ProductID   string     `bson:"productId"`
	InventoryID string     `bson:"inventoryId,omitempty"`
	Title       string     `bson:"title"`
	UnitPrice   int64      `bson:"unitPrice"`
	Quantity    int        `bson:"quantity"`
	Travel      *rangeDoc  `bson:"travel,omitempty"`
	Travelers   *countsDoc `bson:"travelers,omitempty"`
	Prices      *pricesDoc `bson:"prices,omitempty"`
	Reserved    int        `bson:"reserved"`
}

type paymentDoc struct {
	Method         string     `bson:"method,omitempty"`
	Provider       string     `bson:"provider,omitempty"`
	PaymentID      string     `bson:"paymentId,omitempty"`
	TransactionID  string     `bson:"transactionId,omitempty"`
	Status         string     `bson:"status"`
	VerifiedAmount int64      `bson:"verifiedAmount,omitempty"`
	ApprovedAt     *time.Time `bson:"approvedAt,omitempty"`
	FailureCode    string     `bson:"failureCode,omitempty"`
}

type historyDoc struct {
	Status string    `bson:"status"`
	At     time.Time `bson:"at"`
	Note   string    `bson:"note,omitempty"`
	Actor  string    `bson:"actor,omitempty"`
}

type orderDoc struct {
	ID              string        `bson:"_id"`
	Number          string        `bson:"orderNumber"`
	Status          string        `bson:"status"`
	Total           int64         `bson:"total"`
	Currency        string        `bson:"currency"`
	Customer        customerDoc   `bson:"customer"`
	Items           []itemDoc     `bson:"items"`
	Travelers       []travelerDoc `bson:"travelers"`
	SpecialRequests string        `bson:"specialRequests,omitempty"`
	Payment         paymentDoc    `bson:"payment"`
	History         []historyDoc  `bson:"history"`
	Version         int64         `bson:"version"`
	CreatedAt       time.Time     `bson:"createdAt"`
	UpdatedAt       time.Time     `bson:"updatedAt"`
}

func toOrderDoc(o *domorder.Order) orderDoc {
	d := orderDoc{
		ID:       o.ID,
		Number:   o.Number,
		Status:   string(o.Status),
		Total:    o.Total,
		Currency: o.Currency,
		Customer: customerDoc{
			UserID:  o.Customer.UserID,
			Name:    o.Customer.Name,
			Email:   o.Customer.Email,
			Phone:   o.Customer.Phone,
			Address: o.Customer.Address,
		},
		Items:           make([]itemDoc, 0, len(o.Items)),
		Travelers:       make([]travelerDoc, 0, len(o.Travelers)),
		SpecialRequests: o.SpecialRequests,
		Payment: paymentDoc{
			Method:         o.Payment.Method,
			Provider:       o.Payment.Provider,
			PaymentID:      o.Payment.PaymentID,
			TransactionID:  o.Payment.TransactionID,
			Status:         string(o.Payment.Status),
			VerifiedAmount: o.Payment.VerifiedAmount,
			ApprovedAt:     o.Payment.ApprovedAt,
			FailureCode:    o.Payment.FailureCode,
		},
		History:   make([]historyDoc, 0, len(o.History)),
		Version:   o.Version,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
	for _, it := range o.Items {
		id := itemDoc{
			ProductID:   it.ProductID,
			InventoryID: it.InventoryID,
			Title:       it.Title,
			UnitPrice:   it.UnitPrice,
			Quantity:    it.Quantity,
			Reserved:    it.Reserved,
		}
		if it.Travel != nil {
			id.Travel = &rangeDoc{Start: it.Travel.Start, End: it.Travel.End}
		}
		if it.Travelers != nil {
			id.Travelers = &countsDoc{Adult: it.Travelers.Adult, Child: it.Travelers.Child, Infant: it.Travelers.Infant}
		}
		if it.Prices != nil {
			id.Prices = &pricesDoc{Adult: it.Prices.Adult, Child: it.Prices.Child, Infant: it.Prices.Infant}
		}
		d.Items = append(d.Items, id)
	}
	for _, t := range o.Travelers {
		d.Travelers = append(d.Travelers, travelerDoc{Name: t.Name, Type: string(t.Type), Phone: t.Phone, BirthDate: t.BirthDate})
	}
	for _, h := range o.History {
		d.History = append(d.History, historyDoc{Status: string(h.Status), At: h.At, Note: h.Note, Actor: h.Actor})
	}
	return d
}

func (d orderDoc) toDomain() *domorder.Order {
	o := &domorder.Order{
		ID:       d.ID,
		Number:   d.Number,
		Status:   domorder.Status(d.Status),
		Total:    d.Total,
		Currency: d.Currency,
		Customer: domorder.Customer{
			UserID:  d.Customer.UserID,
			Name:    d.Customer.Name,
			Email:   d.Customer.Email,
			Phone:   d.Customer.Phone,
			Address: d.Customer.Address,
		},
		SpecialRequests: d.SpecialRequests,
		Payment: domorder.Payment{
			Method:         d.Payment.Method,
			Provider:       d.Payment.Provider,
			PaymentID:      d.Payment.PaymentID,
			TransactionID:  d.Payment.TransactionID,
			Status:         domorder.PaymentStatus(d.Payment.Status),
			VerifiedAmount: d.Payment.VerifiedAmount,
			ApprovedAt:     utcPtr(d.Payment.ApprovedAt),
			FailureCode:    d.Payment.FailureCode,
		},
		Version:   d.Version,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
	for _, it := range d.Items {
		li := domorder.LineItem{
			ProductID:   it.ProductID,
			InventoryID: it.InventoryID,
			Title:       it.Title,
			UnitPrice:   it.UnitPrice,
			Quantity:    it.Quantity,
			Reserved:    it.Reserved,
		}
		if it.Travel != nil {
			li.Travel = &domorder.DateRange{Start: it.Travel.Start.UTC(), End: it.Travel.End.UTC()}
		}
		if it.Travelers != nil {
			li.Travelers = &domorder.TravelerCounts{Adult: it.Travelers.Adult, Child: it.Travelers.Child, Infant: it.Travelers.Infant}
		}
		if it.Prices != nil {
			li.Prices = &domorder.TravelerPrices{Adult: it.Prices.Adult, Child: it.Prices.Child, Infant: it.Prices.Infant}
		}
		o.Items = append(o.Items, li)
	}
	for _, t := range d.Travelers {
		o.Travelers = append(o.Travelers, domorder.Traveler{Name: t.Name, Type: domorder.TravelerType(t.Type), Phone: t.Phone, BirthDate: t.BirthDate})
	}
	for _, h := range d.History {
		o.History = append(o.History, domorder.HistoryEntry{Status: domorder.Status(h.Status), At: h.At.UTC(), Note: h.Note, Actor: h.Actor})
	}
	return o
}

type callbacksDoc struct {
	SuccessURL string `bson:"successUrl,omitempty"`
	FailURL    string `bson:"failUrl,omitempty"`
	CancelURL  string `bson:"cancelUrl,omitempty"`
}

type entryDoc struct {
	ID              string            `bson:"_id"`
	OrderID         string            `bson:"orderId"`
	UserID          string            `bson:"userId"`
	Amount          int64             `bson:"amount"`
	Currency        string            `bson:"currency"`
	Status          string            `bson:"status"`
	Provider        string            `bson:"provider"`
	ProviderOrderID string            `bson:"providerOrderId,omitempty"`
	TransactionID   string            `bson:"transactionId,omitempty"`
	Callbacks       callbacksDoc      `bson:"callbacks"`
	Metadata        map[string]string `bson:"metadata,omitempty"`
	FailureCode     string            `bson:"failureCode,omitempty"`
	ApprovedAt      *time.Time        `bson:"approvedAt,omitempty"`
	Version         int64             `bson:"version"`
	CreatedAt       time.Time         `bson:"createdAt"`
	UpdatedAt       time.Time         `bson:"updatedAt"`
}

func toEntryDoc(e *dompayment.Entry) entryDoc {
	return entryDoc{
		ID:              e.ID,
		OrderID:         e.OrderID,
		UserID:          e.UserID,
		Amount:          e.Amount,
		Currency:        e.Currency,
		Status:          string(e.Status),
		Provider:        e.Provider,
		ProviderOrderID: e.ProviderOrderID,
		TransactionID:   e.TransactionID,
		Callbacks: callbacksDoc{
			SuccessURL: e.Callbacks.SuccessURL,
			FailURL:    e.Callbacks.FailURL,
			CancelURL:  e.Callbacks.CancelURL,
		},
		Metadata:    e.Metadata,
		FailureCode: e.FailureCode,
		ApprovedAt:  e.ApprovedAt,
		Version:     e.Version,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func (d entryDoc) toDomain() *dompayment.Entry {
	md := make(map[string]string, len(d.Metadata))
	for k, v := range d.Metadata {
		md[k] = v
	}
	return &dompayment.Entry{
		ID:              d.ID,
		OrderID:         d.OrderID,
		UserID:          d.UserID,
		Amount:          d.Amount,
		Currency:        d.Currency,
		Status:          dompayment.Status(d.Status),
		Provider:        d.Provider,
		ProviderOrderID: d.ProviderOrderID,
		TransactionID:   d.TransactionID,
		Callbacks: dompayment.Callbacks{
			SuccessURL: d.Callbacks.SuccessURL,
			FailURL:    d.Callbacks.FailURL,
			CancelURL:  d.Callbacks.CancelURL,
		},
		Metadata:    md,
		FailureCode: d.FailureCode,
		ApprovedAt:  utcPtr(d.ApprovedAt),
		Version:     d.Version,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

type inventoryDoc struct {
	ID        string    `bson:"_id"`
	Stock     int       `bson:"stock"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func (d inventoryDoc) toDomain() *dominventory.Record {
	return &dominventory.Record{ID: d.ID, Stock: d.Stock, UpdatedAt: d.UpdatedAt.UTC()}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
