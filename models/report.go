package models

import "talentbridge/domain/flags"

// CheckInCounts aggregates the check-in register for reporting.
type CheckInCounts struct {
	Created   int `db:"created" json:"created"`
	Sent      int `db:"sent" json:"sent"`
	Responded int `db:"responded" json:"responded"`
	Flagged   int `db:"flagged" json:"flagged"`
}

// FlagFinancials aggregates fee-recovery figures across all flags.
type FlagFinancials struct {
	TotalOwed      float64   `json:"total_owed"`
	TotalInvoiced  float64   `json:"total_invoiced"`
	TotalCollected float64   `json:"total_collected"`
	InvoiceAmounts []float64 `json:"-"`
}

// EngineReport is the admin-facing summary of the engine's state.
type EngineReport struct {
	ActiveIntroductions int                  `json:"active_introductions"`
	CheckIns            CheckInCounts        `json:"check_ins"`
	ResponseRate        float64              `json:"response_rate"`
	FlagsByStatus       map[flags.Status]int `json:"flags_by_status"`
	Financials          FlagFinancials       `json:"financials"`
	MeanInvoiceAmount   float64              `json:"mean_invoice_amount"`
	MedianInvoiceAmount float64              `json:"median_invoice_amount"`
}

// SchedulerResult summarizes one scheduler pass.
type SchedulerResult struct {
	CheckInsCreated int `json:"check_ins_created"`
	EmailsSent      int `json:"emails_sent"`
}
