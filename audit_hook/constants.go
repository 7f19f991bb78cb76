package audithook

// Action constants for audit events.
const (
	// Bill actions
	ActionGenerateBill           = "GENERATE_BILL"
	ActionGenerateBillBatchEntry = "GENERATE_BILL_BATCH_ENTRY"
	ActionGenerateBillFailed     = "GENERATE_BILL_FAILED"
	ActionGenerateBillBatch      = "GENERATE_BILL_BATCH"
	ActionBillReminder           = "BILL_REMINDER"
	ActionBillOverdueReminder    = "BILL_OVERDUE_REMINDER"

	// Payment actions
	ActionRecordPayment = "RECORD_PAYMENT"

	// Wallet actions
	ActionAutoApplyAdvance  = "AUTO_APPLY_ADVANCE"
	ActionApplyAdvance      = "APPLY_ADVANCE"
	ActionAddAdvancePayment = "ADD_ADVANCE_PAYMENT"
)

// Entity type constants for audit events.
const (
	EntityBill     = "BILL"
	EntityPayment  = "PAYMENT"
	EntityCustomer = "CUSTOMER"
	EntityReading  = "METER_READING"
	EntityBatch    = "BILL_BATCH"
)

// Category constants for audit events.
const (
	CategoryBilling  = "billing"
	CategoryPayment  = "payment"
	CategoryWallet   = "wallet"
	CategoryReminder = "reminder"
)

// Severity levels for audit events.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)

// SystemActor is recorded when no actor was supplied.
const SystemActor = "system"
