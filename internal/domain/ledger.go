package domain

import (
	"slices"
	"strconv"

	"github.com/shopspring/decimal"
)

// Ledger is the full in-memory state of one account's event finances.
// It carries no behaviour beyond lookups and copy helpers; validation lives
// in the service layer.
type Ledger struct {
	Events            []Event           `json:"events"`
	Products          []Product         `json:"products"`
	Sales             []Sale            `json:"sales"`
	Expenses          []Expense         `json:"expenses"`
	ExpenseCategories []ExpenseCategory `json:"expense_categories"`
	Revenues          []Revenue         `json:"revenues"`
	Notifications     []Notification    `json:"notifications"`
	Templates         []EventTemplate   `json:"templates"`
	TicketInfo        TicketInfo        `json:"ticket_info"`
}

func NewLedger() *Ledger {
	return &Ledger{
		Events:            []Event{},
		Products:          []Product{},
		Sales:             []Sale{},
		Expenses:          []Expense{},
		ExpenseCategories: []ExpenseCategory{},
		Revenues:          []Revenue{},
		Notifications:     []Notification{},
		Templates:         []EventTemplate{},
		TicketInfo:        DefaultTicketInfo(),
	}
}

// NewSeededLedger returns the starting state of a fresh account: the default
// expense buckets, a sample event and a sample template.
func NewSeededLedger() *Ledger {
	l := NewLedger()
	l.Events = []Event{{
		ID:          "1",
		Name:        "Summer Festival",
		Date:        "2024-12-15",
		Location:    "Central Park",
		Attendees:   500,
		Budget:      decimal.NewFromInt(25000),
		Status:      EventStatusActive,
		Priority:    "high",
		Description: "Music festival with a bar and a souvenir shop",
	}}
	for i, name := range []string{"Decoration", "Marketing", "Logistics", "Airfare", "Artist", "Hotel", "Food"} {
		l.ExpenseCategories = append(l.ExpenseCategories, ExpenseCategory{
			ID:    strconv.Itoa(i + 1),
			Name:  name,
			Items: []ExpenseItem{},
		})
	}
	l.Templates = []EventTemplate{{
		ID:              "1",
		Name:            "Music Festival",
		Description:     "Template for music festivals with bar and shop",
		EstimatedBudget: decimal.NewFromInt(25000),
		Categories:      []string{"sound", "food", "security", "marketing"},
		Products: []TemplateProduct{
			{Name: "Beer", Channel: ChannelBar, PurchasePrice: decimal.RequireFromString("3.50"), SalePrice: decimal.RequireFromString("8.00")},
			{Name: "T-shirt", Channel: ChannelShop, PurchasePrice: decimal.RequireFromString("15.00"), SalePrice: decimal.RequireFromString("35.00")},
		},
	}}
	return l
}

// Clone returns a deep copy; mutating the copy never affects l.
func (l *Ledger) Clone() *Ledger {
	out := &Ledger{
		Events:            slices.Clone(l.Events),
		Products:          slices.Clone(l.Products),
		Sales:             slices.Clone(l.Sales),
		Expenses:          slices.Clone(l.Expenses),
		ExpenseCategories: make([]ExpenseCategory, len(l.ExpenseCategories)),
		Revenues:          slices.Clone(l.Revenues),
		Notifications:     slices.Clone(l.Notifications),
		Templates:         make([]EventTemplate, len(l.Templates)),
		TicketInfo:        l.TicketInfo,
	}
	for i, c := range l.ExpenseCategories {
		c.Items = slices.Clone(c.Items)
		out.ExpenseCategories[i] = c
	}
	for i, t := range l.Templates {
		t.Categories = slices.Clone(t.Categories)
		t.Products = slices.Clone(t.Products)
		out.Templates[i] = t
	}
	return out
}

func (l *Ledger) ProductIndex(id string) int {
	return slices.IndexFunc(l.Products, func(p Product) bool { return p.ID == id })
}

func (l *Ledger) Product(id string) (Product, bool) {
	idx := l.ProductIndex(id)
	if idx < 0 {
		return Product{}, false
	}
	return l.Products[idx], true
}

// InsertProduct places p at position, or at the end when position is out of range.
func (l *Ledger) InsertProduct(position int, p Product) {
	if position < 0 || position > len(l.Products) {
		position = len(l.Products)
	}
	l.Products = slices.Insert(l.Products, position, p)
}

// RemoveProduct drops the product and reports the index it occupied.
func (l *Ledger) RemoveProduct(id string) (int, bool) {
	idx := l.ProductIndex(id)
	if idx < 0 {
		return -1, false
	}
	l.Products = slices.Delete(l.Products, idx, idx+1)
	return idx, true
}

func (l *Ledger) ReplaceProduct(p Product) bool {
	idx := l.ProductIndex(p.ID)
	if idx < 0 {
		return false
	}
	l.Products[idx] = p
	return true
}

func (l *Ledger) SaleForProduct(productID string) (Sale, bool) {
	idx := slices.IndexFunc(l.Sales, func(s Sale) bool { return s.ProductID == productID })
	if idx < 0 {
		return Sale{}, false
	}
	return l.Sales[idx], true
}

func (l *Ledger) HasSales(productID string) bool {
	_, ok := l.SaleForProduct(productID)
	return ok
}

// PutSale sets the sale record of productID; a nil sale removes it.
func (l *Ledger) PutSale(productID string, sale *Sale) {
	idx := slices.IndexFunc(l.Sales, func(s Sale) bool { return s.ProductID == productID })
	switch {
	case sale == nil && idx >= 0:
		l.Sales = slices.Delete(l.Sales, idx, idx+1)
	case sale == nil:
	case idx >= 0:
		l.Sales[idx] = *sale
	default:
		l.Sales = append(l.Sales, *sale)
	}
}

func (l *Ledger) ExpenseCategoryIndex(id string) int {
	return slices.IndexFunc(l.ExpenseCategories, func(c ExpenseCategory) bool { return c.ID == id })
}

// ProductsIn lists the products of ch, or every product when ch is empty.
func (l *Ledger) ProductsIn(ch Channel) []Product {
	if ch == "" {
		return l.Products
	}
	out := make([]Product, 0, len(l.Products))
	for _, p := range l.Products {
		if p.Channel == ch {
			out = append(out, p)
		}
	}
	return out
}
