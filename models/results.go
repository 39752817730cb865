package models

// ExecuteResult is the outcome of a ledger execution
type ExecuteResult struct {
	Success       bool
	TransactionID int64
	NewBalance    int64
	Duplicate     bool
}

// TreasurySpendResult is the outcome of a treasury spend attempt
type TreasurySpendResult struct {
	Success bool
	Balance int64
}

// ReconciliationMismatch describes one user whose balance representations
// disagree
type ReconciliationMismatch struct {
	UserID        int64
	WalletBalance int64
	LegacyBalance int64
	LedgerSum     int64
}

// ReconciliationReport summarizes one reconciliation run
type ReconciliationReport struct {
	UsersChecked int
	Mismatches   []ReconciliationMismatch
	Corrected    int
}
