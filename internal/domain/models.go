package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Channel string

const (
	ChannelBar  Channel = "bar"
	ChannelShop Channel = "shop"
)

func (c Channel) Valid() bool {
	return c == ChannelBar || c == ChannelShop
}

type SaleMode string

const (
	ModePackage SaleMode = "package"
	ModeUnit    SaleMode = "unit"
)

func (m SaleMode) Valid() bool {
	return m == ModePackage || m == ModeUnit
}

// Product is one stocked line of either channel. Quantity is fixed at creation
// to PackageQuantity * PackageUnits and Sold never exceeds it.
type Product struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Channel          Channel         `json:"channel"`
	Mode             SaleMode        `json:"mode"`
	PurchasePrice    decimal.Decimal `json:"purchase_price"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	PackagePrice     decimal.Decimal `json:"package_price"`
	PackageUnits     int             `json:"package_units"`
	SalePrice        decimal.Decimal `json:"sale_price"`
	Quantity         int             `json:"quantity"`
	PackageQuantity  int             `json:"package_quantity"`
	Sold             int             `json:"sold"`
	ReturnedPackages int             `json:"returned_packages"`
	RemainingUnits   int             `json:"remaining_units"`
}

// UnitProfit is the margin earned on every unit sold.
func (p Product) UnitProfit() decimal.Decimal {
	return p.SalePrice.Sub(p.PurchasePrice)
}

// KeptPackages is the number of packages that were not handed back to the supplier.
func (p Product) KeptPackages() int {
	return p.PackageQuantity - p.ReturnedPackages
}

// Investment is what the kept packages cost.
func (p Product) Investment() decimal.Decimal {
	return p.PackagePrice.Mul(decimal.NewFromInt(int64(p.KeptPackages())))
}

type ProductCreateRequest struct {
	Name            string              `json:"name"`
	Channel         Channel             `json:"channel"`
	Mode            SaleMode            `json:"mode"`
	PackagePrice    decimal.Decimal     `json:"package_price"`
	PackageUnits    int                 `json:"package_units"`
	PackageQuantity int                 `json:"package_quantity"`
	SalePrice       decimal.Decimal     `json:"sale_price"`
	PurchasePrice   decimal.NullDecimal `json:"purchase_price"`
}

type SaleUpdateRequest struct {
	Sold int `json:"sold"`
}

type ReturnsUpdateRequest struct {
	ReturnedPackages int `json:"returned_packages"`
	RemainingUnits   int `json:"remaining_units"`
}

// Sale is the running sales total of a single product. There is at most one
// per product and it is rewritten in place whenever the sold count changes.
type Sale struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`
	Date      string          `json:"date"`
	Channel   Channel         `json:"channel"`
}

type Expense struct {
	ID          string          `json:"id"`
	EventID     string          `json:"event_id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Date        string          `json:"date"`
	Approved    bool            `json:"approved"`
}

type ExpenseCreateRequest struct {
	EventID     string          `json:"event_id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Approved    bool            `json:"approved"`
}

type Revenue struct {
	ID          string          `json:"id"`
	EventID     string          `json:"event_id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date"`
	Category    string          `json:"category"`
}

type RevenueCreateRequest struct {
	EventID     string          `json:"event_id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
}

type ExpenseItem struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

type ExpenseCategory struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Items    []ExpenseItem `json:"items"`
	Expanded bool          `json:"expanded"`
}

func (c ExpenseCategory) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Amount)
	}
	return total
}

type ExpenseCategoryCreateRequest struct {
	Name string `json:"name"`
}

type ExpenseItemCreateRequest struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

type TicketInfo struct {
	CurrentTicketPrice decimal.Decimal `json:"current_ticket_price"`
	TicketsSold        int             `json:"tickets_sold"`
	EventTotalCost     decimal.Decimal `json:"event_total_cost"`
}

// TicketRevenue is the box office take so far.
func (t TicketInfo) TicketRevenue() decimal.Decimal {
	return t.CurrentTicketPrice.Mul(decimal.NewFromInt(int64(t.TicketsSold)))
}

func DefaultTicketInfo() TicketInfo {
	return TicketInfo{
		CurrentTicketPrice: decimal.NewFromInt(50),
		TicketsSold:        0,
		EventTotalCost:     decimal.NewFromInt(15000),
	}
}

type TicketInfoUpdateRequest struct {
	CurrentTicketPrice *decimal.Decimal `json:"current_ticket_price,omitempty"`
	TicketsSold        *int             `json:"tickets_sold,omitempty"`
	EventTotalCost     *decimal.Decimal `json:"event_total_cost,omitempty"`
}

type NotificationType string

const (
	NotificationWarning NotificationType = "warning"
	NotificationInfo    NotificationType = "info"
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
)

type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
	Read      bool             `json:"read"`
}

type Event struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Date        string          `json:"date"`
	Location    string          `json:"location"`
	Attendees   int             `json:"attendees"`
	Budget      decimal.Decimal `json:"budget"`
	Status      string          `json:"status"`
	Priority    string          `json:"priority"`
	Description string          `json:"description,omitempty"`
}

const (
	EventStatusActive    = "active"
	EventStatusCompleted = "completed"
	EventStatusCancelled = "cancelled"
)

type TemplateProduct struct {
	Name          string          `json:"name"`
	Channel       Channel         `json:"channel"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	SalePrice     decimal.Decimal `json:"sale_price"`
}

type EventTemplate struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Description     string            `json:"description"`
	EstimatedBudget decimal.Decimal   `json:"estimated_budget"`
	Categories      []string          `json:"categories"`
	Products        []TemplateProduct `json:"products"`
}

type UndoKind string

const (
	UndoAddProduct    UndoKind = "add_product"
	UndoDeleteProduct UndoKind = "delete_product"
	UndoUpdateProduct UndoKind = "update_product"
)

// UndoAction is one entry of the product edit history. Product holds the state
// to restore on undo (for add_product it is the created product). Result is the
// post-update state re-applied on redo; SaleBefore and SaleAfter carry the
// product's sale record around an update so both move together.
type UndoAction struct {
	ID          string    `json:"id"`
	Kind        UndoKind  `json:"type"`
	Product     Product   `json:"data"`
	Result      *Product  `json:"result,omitempty"`
	Position    int       `json:"position"`
	SaleBefore  *Sale     `json:"sale_before,omitempty"`
	SaleAfter   *Sale     `json:"sale_after,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`
}

// Clone returns a copy that shares no pointers with a.
func (a UndoAction) Clone() UndoAction {
	out := a
	if a.Result != nil {
		result := *a.Result
		out.Result = &result
	}
	if a.SaleBefore != nil {
		sale := *a.SaleBefore
		out.SaleBefore = &sale
	}
	if a.SaleAfter != nil {
		sale := *a.SaleAfter
		out.SaleAfter = &sale
	}
	return out
}

type HistoryView struct {
	Applied bool         `json:"applied"`
	Action  *UndoAction  `json:"action,omitempty"`
	Undo    []UndoAction `json:"undo"`
	Redo    []UndoAction `json:"redo"`
	CanUndo bool         `json:"can_undo"`
	CanRedo bool         `json:"can_redo"`
}

type ChannelSummary struct {
	Channel      Channel         `json:"channel"`
	Revenue      decimal.Decimal `json:"revenue"`
	Investment   decimal.Decimal `json:"investment"`
	Profit       decimal.Decimal `json:"profit"`
	Margin       decimal.Decimal `json:"margin"`
	GrossRevenue decimal.Decimal `json:"gross_revenue"`
	NetRevenue   decimal.Decimal `json:"net_revenue"`
	Leftover     decimal.Decimal `json:"leftover_value"`
}

type Summary struct {
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	NetProfit     decimal.Decimal `json:"net_profit"`
	ProfitLabel   string          `json:"profit_label"`
	AmountNeeded  decimal.Decimal `json:"amount_needed"`
	TicketRevenue decimal.Decimal `json:"ticket_revenue"`
	GrossRevenue  decimal.Decimal `json:"gross_revenue"`
	NetRevenue    decimal.Decimal `json:"net_revenue"`
	LeftoverValue decimal.Decimal `json:"leftover_value"`
	Bar           ChannelSummary  `json:"bar"`
	Shop          ChannelSummary  `json:"shop"`
}

const (
	ProfitLabelProfit = "profit"
	ProfitLabelOwed   = "amount still owed"
)

type ProductsNeeded struct {
	Bar   int64 `json:"bar"`
	Shop  int64 `json:"shop"`
	Mixed int64 `json:"mixed"`
}

type ProductTarget struct {
	ProductID      string          `json:"product_id"`
	Name           string          `json:"name"`
	Channel        Channel         `json:"channel"`
	SalePrice      decimal.Decimal `json:"sale_price"`
	UnitProfit     decimal.Decimal `json:"unit_profit"`
	NeededQuantity int64           `json:"needed_quantity"`
	NeededRevenue  decimal.Decimal `json:"needed_revenue"`
	NeededProfit   decimal.Decimal `json:"needed_profit"`
}

type MixRecommendation struct {
	AmountNeeded      decimal.Decimal `json:"amount_needed"`
	Weight            int             `json:"weight"`
	Funded            bool            `json:"funded"`
	AverageBarProfit  decimal.Decimal `json:"average_bar_profit"`
	AverageShopProfit decimal.Decimal `json:"average_shop_profit"`
	ProductsNeeded    ProductsNeeded  `json:"products_needed"`
	Targets           []ProductTarget `json:"targets"`
}

type ReportSummary struct {
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	NetProfit     decimal.Decimal `json:"net_profit"`
	BarRevenue    decimal.Decimal `json:"bar_revenue"`
	ShopRevenue   decimal.Decimal `json:"shop_revenue"`
}

type Report struct {
	Summary     ReportSummary `json:"summary"`
	Products    []Product     `json:"products"`
	Sales       []Sale        `json:"sales"`
	Expenses    []Expense     `json:"expenses"`
	Revenues    []Revenue     `json:"revenues"`
	GeneratedAt time.Time     `json:"generated_at"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	AccountID   string `json:"account_id"`
	ExpiresAt   string `json:"expires_at"`
}

// Actor is the authenticated account a request acts for.
type Actor struct {
	AccountID string
}
