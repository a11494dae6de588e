package models

// BudgetPeriod defines the time window for a budget policy.
type BudgetPeriod string

const (
	BudgetDaily   BudgetPeriod = "daily"
	BudgetMonthly BudgetPeriod = "monthly"
)

// BudgetPolicy caps research requests per API key per period. Mode narrows
// the policy to one research depth; empty applies to all requests.
type BudgetPolicy struct {
	APIKey      string       `json:"api_key" yaml:"api_key"`
	Mode        ResearchMode `json:"mode,omitempty" yaml:"mode,omitempty"`
	MaxRequests int64        `json:"max_requests" yaml:"max_requests"`
	Period      BudgetPeriod `json:"period" yaml:"period"`
}

// BudgetStatus shows current usage against a policy.
type BudgetStatus struct {
	Policy    BudgetPolicy `json:"policy"`
	Used      int64        `json:"used"`
	Remaining int64        `json:"remaining"`
}
