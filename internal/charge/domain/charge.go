package domain

import "context"

// Policy is one charge_info row: the base amount billed for a type code
// and the surcharge added when the customer pays by card. Amounts are in
// minor currency units.
type Policy struct {
	TypeCode     string
	Amount       int64
	CardUpcharge int64
}

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

const (
	ReasonAccountMissing  = "account missing"
	ReasonNoPaymentMethod = "no payment methods on file"
)

// Outcome is produced once per customer per batch run and never mutated
// afterwards. AmountCharged stays 0 unless the charge succeeded.
type Outcome struct {
	CustomerID    string `json:"customer_id"`
	AmountCharged int64  `json:"amount_charged"`
	ChargeType    string `json:"charge_type"`
	Status        string `json:"status"`
	Reason        string `json:"reason"`
}

// BatchReport is the write-once artifact of one orchestration run.
// Outcomes preserve cohort listing order; ChargedCustomers counts only
// status=success.
type BatchReport struct {
	Outcomes         []Outcome `json:"outcomes"`
	TotalCustomers   int       `json:"total_customers"`
	ChargedCustomers int       `json:"charged_customers"`
}

// Orchestrator runs a charge batch for every customer enrolled under a
// type code. A malformed policy (zero or multiple rows) degrades to an
// empty batch; per-customer failures are isolated into their outcome and
// never abort the run.
type Orchestrator interface {
	RunBatch(ctx context.Context, typeCode string) (BatchReport, error)
}

// Table is the registry table holding charge policies.
const Table = "charge_info"

// PolicyRecord is the persisted shape of a Policy. Rows are managed by
// operators, not by this service; the model exists for schema migration.
type PolicyRecord struct {
	TypeCode     string `gorm:"column:type_code;primaryKey"`
	Amount       int64  `gorm:"column:amount;not null"`
	CardUpcharge int64  `gorm:"column:card_upcharge;not null;default:0"`
}

func (PolicyRecord) TableName() string { return Table }
