// Package reports computes collection and outstanding summaries over the
// fee ledger. Results are cached in redis; concurrent identical requests
// collapse into a single computation.
package reports

// DailyCollection aggregates payments recorded on one calendar day.
type DailyCollection struct {
	Date        string             `json:"date"`
	TotalAmount float64            `json:"total_amount"`
	Count       int64              `json:"count"`
	ByMode      map[string]float64 `json:"by_mode"`
}

// ClassOutstanding aggregates unpaid balances for one class in a year.
type ClassOutstanding struct {
	ClassID     int64   `json:"class_id"`
	ClassName   string  `json:"class_name"`
	Students    int64   `json:"students"`
	TotalFee    float64 `json:"total_fee"`
	TotalPaid   float64 `json:"total_paid"`
	Outstanding float64 `json:"outstanding"`
}
