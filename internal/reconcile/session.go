// Package reconcile implements the balance-reconciliation workflow:
// pick the transactions that explain a reported balance change, stamp
// them reconciled, and record a synthetic marker transaction.
package reconcile

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/mojito-dev/mojito/internal/apperr"
	"github.com/mojito-dev/mojito/internal/ledger"
	"github.com/mojito-dev/mojito/internal/model"
)

// Phase is the session state.
type Phase int

const (
	NotStarted Phase = iota
	InProgress
	Completed
)

// Marker transaction constants. The one-cent amount keeps the marker
// visible without disturbing the reconciled balance materially; its
// props payload lets the importer recognize and skip it later.
const (
	markerCategory    = "Financial"
	markerMerchantFmt = "** Reconciled: %s **"
	markerMemoFmt     = "Ending balance: %s"
)

var markerAmount = decimal.New(-1, -2) // -0.01

// Candidate is one selectable line in a reconciliation. A split group
// appears as a single aggregate line referenced by its parent id.
type Candidate struct {
	Date     time.Time
	Merchant string
	Amount   decimal.Decimal
	Split    bool
	TxnID    int64     // parent id when Split, informational otherwise
	RowKey   uuid.UUID // direct rows only
	Marked   bool
}

// Session is a single-use reconciliation workflow over one account.
type Session struct {
	store  *ledger.Store
	editor *ledger.Editor
	log    zerolog.Logger

	phase       Phase
	account     string
	mintAccount string
	endDate     time.Time
	newBalance  decimal.Decimal
	targetDelta decimal.Decimal
	candidates  []*Candidate
}

// NewSession creates a Session in the NotStarted phase.
func NewSession(store *ledger.Store, editor *ledger.Editor, log zerolog.Logger) *Session {
	return &Session{
		store:  store,
		editor: editor,
		log:    log.With().Str("component", "reconcile").Logger(),
	}
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	return s.phase
}

// Start selects the reconciliation candidates for an account: every
// row that is not already reconciled and not pending, with split
// groups folded into one aggregate line each. With no candidates the
// session stays NotStarted.
func (s *Session) Start(account, mintAccount string, prevBalance, newBalance decimal.Decimal, endDate time.Time) error {
	if s.phase != NotStarted {
		return apperr.Validationf("a reconciliation is already in progress; cancel it first")
	}

	s.account = account
	s.mintAccount = mintAccount
	s.endDate = endDate
	s.newBalance = newBalance
	s.targetDelta = newBalance.Sub(prevBalance).Round(2)
	s.candidates = nil

	grouped := make(map[int64]*Candidate)
	for _, t := range s.store.Rows() {
		if t.Account != account {
			continue
		}
		if mintAccount != "" && t.MintAccount != mintAccount {
			continue
		}
		if t.ClearRecon == model.CRReconciled || t.State == model.StatePending {
			continue
		}

		if t.IsSplitMember() {
			agg, ok := grouped[t.ParentID]
			if !ok {
				agg = &Candidate{
					Date:     t.Date,
					Merchant: t.Merchant,
					Split:    true,
					TxnID:    t.ParentID,
				}
				grouped[t.ParentID] = agg
				s.candidates = append(s.candidates, agg)
			}
			agg.Amount = agg.Amount.Add(t.Amount)
			continue
		}

		s.candidates = append(s.candidates, &Candidate{
			Date:     t.Date,
			Merchant: t.Merchant,
			Amount:   t.Amount,
			TxnID:    t.ID,
			RowKey:   t.RowKey,
		})
	}

	if len(s.candidates) == 0 {
		return apperr.Validationf("nothing to reconcile for account %q", account)
	}

	s.phase = InProgress
	s.log.Info().
		Str("account", account).
		Str("target_delta", s.targetDelta.StringFixed(2)).
		Int("candidates", len(s.candidates)).
		Msg("reconciliation started")
	return nil
}

// Candidates returns the candidate lines in date-descending order.
func (s *Session) Candidates() []*Candidate {
	return s.candidates
}

// SetMarked flags or unflags one candidate.
func (s *Session) SetMarked(i int, marked bool) error {
	if s.phase != InProgress {
		return apperr.Validationf("no reconciliation in progress")
	}
	if i < 0 || i >= len(s.candidates) {
		return apperr.Validationf("no reconciliation candidate %d", i)
	}
	s.candidates[i].Marked = marked
	return nil
}

// TargetDelta returns the balance change being reconciled against.
func (s *Session) TargetDelta() decimal.Decimal {
	return s.targetDelta
}

// ReconciledSum returns the signed sum over the marked candidates.
func (s *Session) ReconciledSum() decimal.Decimal {
	sum := decimal.Zero
	for _, c := range s.candidates {
		if c.Marked {
			sum = sum.Add(c.Amount)
		}
	}
	return sum
}

// IsComplete reports whether the marked candidates explain the target
// delta, to the cent.
func (s *Session) IsComplete() bool {
	return cents(s.ReconciledSum()).Equal(cents(s.targetDelta))
}

func cents(d decimal.Decimal) decimal.Decimal {
	return d.Abs().Mul(decimal.NewFromInt(100)).Round(0)
}

// Finish stamps every marked candidate reconciled and inserts the
// balance-marker transaction through the normal new-transaction path.
// All row lookups happen before any mutation; a candidate that has
// vanished from the ledger aborts the whole finish. The session resets
// for reuse afterwards.
func (s *Session) Finish() (*model.Transaction, error) {
	if s.phase != InProgress {
		return nil, apperr.Validationf("no reconciliation in progress")
	}
	if !s.IsComplete() {
		return nil, apperr.Validationf("marked transactions sum to %s but the balance changed by %s",
			s.ReconciledSum().StringFixed(2), s.targetDelta.StringFixed(2))
	}

	var rows []*model.Transaction
	for _, c := range s.candidates {
		if !c.Marked {
			continue
		}
		if c.Split {
			group := s.store.SplitGroup(c.TxnID)
			if len(group) == 0 {
				return nil, apperr.Invariantf("split group %d vanished during reconciliation", c.TxnID)
			}
			rows = append(rows, group...)
			continue
		}
		t, ok := s.store.ByRowKey(c.RowKey)
		if !ok {
			return nil, apperr.Invariantf("transaction %q (%s) vanished during reconciliation",
				c.Merchant, c.Date.Format("2006-01-02"))
		}
		rows = append(rows, t)
	}

	marker := &model.Transaction{
		Date:        s.endDate,
		Account:     s.account,
		MintAccount: s.mintAccount,
		Merchant:    fmt.Sprintf(markerMerchantFmt, s.account),
		Amount:      markerAmount,
		Category:    markerCategory,
		ClearRecon:  model.CRReconciled,
		Memo:        fmt.Sprintf(markerMemoFmt, s.newBalance.StringFixed(2)),
		Props:       model.ReconcileProps(s.newBalance),
	}
	if err := s.editor.InsertNew(marker); err != nil {
		return nil, err
	}

	for _, t := range rows {
		t.ClearRecon = model.CRReconciled
		if err := s.editor.Mark(t, model.EditEdit); err != nil {
			return nil, err
		}
	}

	s.log.Info().
		Str("account", s.account).
		Int("reconciled", len(rows)).
		Str("balance", s.newBalance.StringFixed(2)).
		Msg("reconciliation finished")

	s.phase = Completed
	s.reset()
	return marker, nil
}

// Cancel discards the candidates and resets the session.
func (s *Session) Cancel() {
	s.reset()
}

func (s *Session) reset() {
	s.phase = NotStarted
	s.candidates = nil
	s.account = ""
	s.mintAccount = ""
	s.targetDelta = decimal.Zero
	s.newBalance = decimal.Zero
	s.endDate = time.Time{}
}
