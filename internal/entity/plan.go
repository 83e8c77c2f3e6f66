package entity

// DefaultPlanID is used when a conversion does not name a plan.
const DefaultPlanID = "standard"

type Plan struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Currency   string `json:"currency"`
	Interval   string `json:"interval"` // MONTHLY, YEARLY
}
