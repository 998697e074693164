package httppresentation

import (
	"time"

	domainOrder "github.com/Zhima-Mochi/travelshop/internal/domain/order"
)

type lineItemView struct {
	ProductID   string          `json:"productId"`
	InventoryID string          `json:"inventoryId,omitempty"`
	Title       string          `json:"title"`
	Price       int64           `json:"price"`
	Quantity    int             `json:"quantity"`
	Subtotal    int64           `json:"subtotal"`
	TravelDate  *travelDateView `json:"travelDate,omitempty"`
	Travelers   *travelerCounts `json:"travelers,omitempty"`
}

type travelDateView struct {
	Start string `json:"start"`
	End   string `json:"end,omitempty"`
}

type travelerCounts struct {
	Adult  int `json:"adult"`
	Child  int `json:"child"`
	Infant int `json:"infant"`
}

type travelerView struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Phone     string `json:"phone,omitempty"`
	BirthDate string `json:"birthDate,omitempty"`
}

type customerView struct {
	UserID  string `json:"userId"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address,omitempty"`
}

type paymentView struct {
	Method         string     `json:"method,omitempty"`
	Provider       string     `json:"provider,omitempty"`
	PaymentID      string     `json:"paymentId,omitempty"`
	TransactionID  string     `json:"transactionId,omitempty"`
	Status         string     `json:"status"`
	VerifiedAmount int64      `json:"verifiedAmount,omitempty"`
	ApprovedAt     *time.Time `json:"approvedAt,omitempty"`
	FailureCode    string     `json:"failureCode,omitempty"`
}

type historyView struct {
	Status string    `json:"status"`
	At     time.Time `json:"at"`
	Note   string    `json:"note,omitempty"`
	Actor  string    `json:"actor,omitempty"`
}

type orderView struct {
	ID              string         `json:"id"`
	OrderNumber     string         `json:"orderNumber"`
	Status          string         `json:"status"`
	Total           int64          `json:"total"`
	Currency        string         `json:"currency"`
	Customer        customerView   `json:"customer"`
	Items           []lineItemView `json:"items"`
	Travelers       []travelerView `json:"travelers"`
	SpecialRequests string         `json:"specialRequests,omitempty"`
	Payment         paymentView    `json:"payment"`
	History         []historyView  `json:"history"`
	Version         int64          `json:"version"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

func toOrderView(o *domainOrder.Order) orderView {
	v := orderView{
		ID:          o.ID,
		OrderNumber: o.Number,
		Status:      string(o.Status),
		Total:       o.Total,
		Currency:    o.Currency,
		Customer: customerView{
			UserID:  o.Customer.UserID,
			Name:    o.Customer.Name,
			Email:   o.Customer.Email,
			Phone:   o.Customer.Phone,
			Address: o.Customer.Address,
		},
		Items:           make([]lineItemView, 0, len(o.Items)),
		Travelers:       make([]travelerView, 0, len(o.Travelers)),
		SpecialRequests: o.SpecialRequests,
		Payment: paymentView{
			Method:         o.Payment.Method,
			Provider:       o.Payment.Provider,
			PaymentID:      o.Payment.PaymentID,
			TransactionID:  o.Payment.TransactionID,
			Status:         string(o.Payment.Status),
			VerifiedAmount: o.Payment.VerifiedAmount,
			ApprovedAt:     o.Payment.ApprovedAt,
			FailureCode:    o.Payment.FailureCode,
		},
		History:   make([]historyView, 0, len(o.History)),
		Version:   o.Version,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
	for _, it := range o.Items {
		iv := lineItemView{
			ProductID:   it.ProductID,
			InventoryID: it.InventoryID,
			Title:       it.Title,
			Price:       it.UnitPrice,
			Quantity:    it.Units(),
			Subtotal:    it.Subtotal(),
		}
		if it.Travel != nil {
			iv.TravelDate = &travelDateView{Start: it.Travel.Start.Format(dateLayout)}
			if !it.Travel.End.IsZero() {
				iv.TravelDate.End = it.Travel.End.Format(dateLayout)
			}
		}
		if it.Travelers != nil {
			iv.Travelers = &travelerCounts{Adult: it.Travelers.Adult, Child: it.Travelers.Child, Infant: it.Travelers.Infant}
		}
		v.Items = append(v.Items, iv)
	}
	for _, t := range o.Travelers {
		v.Travelers = append(v.Travelers, travelerView{Name: t.Name, Type: string(t.Type), Phone: t.Phone, BirthDate: t.BirthDate})
	}
	for _, h := range o.History {
		v.History = append(v.History, historyView{Status: string(h.Status), At: h.At, Note: h.Note, Actor: h.Actor})
	}
	return v
}

func toOrderViews(orders []*domainOrder.Order) []orderView {
	out := make([]orderView, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderView(o))
	}
	return out
}
