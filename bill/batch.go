package bill

// BatchSummary reports a month-wide generation run. Every evaluated
// reading is either created or skipped.
type BatchSummary struct {
	Month     string   `json:"month"`
	Evaluated int      `json:"evaluated"`
	Created   int      `json:"created"`
	Skipped   int      `json:"skipped"`
	Errors    []string `json:"errors"`
}
