package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TxnState is the remote system's lifecycle state for a transaction.
type TxnState int

const (
	StateNormal TxnState = iota
	StatePending
	StateSplit
)

// String returns the single-letter tabular encoding ("", "P", "S").
func (s TxnState) String() string {
	switch s {
	case StatePending:
		return "P"
	case StateSplit:
		return "S"
	default:
		return ""
	}
}

// ParseTxnState parses the tabular encoding of a TxnState.
func ParseTxnState(v string) TxnState {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "P":
		return StatePending
	case "S":
		return StateSplit
	default:
		return StateNormal
	}
}

// ClearRecon is the cleared/reconciled flag on a transaction.
type ClearRecon int

const (
	CRNone ClearRecon = iota
	CRCleared
	CRReconciled
)

// String returns the tabular encoding ("", "c", "R").
func (c ClearRecon) String() string {
	switch c {
	case CRCleared:
		return "c"
	case CRReconciled:
		return "R"
	default:
		return ""
	}
}

// ParseClearRecon parses the cleared/reconciled flag. "R" means
// reconciled; any other non-empty value means cleared.
func ParseClearRecon(v string) ClearRecon {
	v = strings.TrimSpace(v)
	if v == "" {
		return CRNone
	}
	if strings.EqualFold(v, "R") {
		return CRReconciled
	}
	return CRCleared
}

// Transaction is one ledger row. Identity within the ledger is RowKey,
// which never changes; ID is the remote system's identifier and is 0
// until the remote system assigns one.
type Transaction struct {
	RowKey           uuid.UUID
	Date             time.Time
	ImportDate       time.Time
	YearMonth        int // year*100 + month
	Account          string
	MintAccount      string // aggregator login that owns this row
	Merchant         string
	OrigMerchantInfo string
	Amount           decimal.Decimal
	OrigAmount       decimal.Decimal // snapshot used to compute split deltas
	Category         string
	CategoryID       int64
	Tags             []string
	TagIDs           []int64
	ClearRecon       ClearRecon
	Memo             string
	Props            *Props // hidden key/value payload carried in the memo
	State            TxnState
	EditStatus       EditStatus
	ID               int64
	ParentID         int64  // non-zero means member of that split group
	Matches          string // transient rule-matcher output, never persisted
}

// YearMonthOf derives the yearMonth key (year*100 + month) for a date.
func YearMonthOf(d time.Time) int {
	return d.Year()*100 + int(d.Month())
}

// IsSplitMember reports whether the row belongs to a split group.
func (t *Transaction) IsSplitMember() bool {
	return t.ParentID != 0
}

// IsDirty reports whether the row has unsaved changes.
func (t *Transaction) IsDirty() bool {
	return t.EditStatus != 0
}

// CloneForSplit copies the fields a new split sibling inherits from the
// row being split.
func (t *Transaction) CloneForSplit() *Transaction {
	return &Transaction{
		Date:        t.Date,
		ImportDate:  t.ImportDate,
		YearMonth:   t.YearMonth,
		Account:     t.Account,
		MintAccount: t.MintAccount,
		Merchant:    t.Merchant,
		Category:    t.Category,
		CategoryID:  t.CategoryID,
		Props:       t.Props,
		State:       StateSplit,
	}
}
