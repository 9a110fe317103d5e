// Package split maintains split-transaction groups: dividing a
// transaction into line items, rebalancing amounts across members,
// reverting members, and re-identifying a group after upload. The one
// invariant everything here protects is that a group's member amounts
// always sum to the amount of the transaction that was first split.
package split

import (
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/mojito-dev/mojito/internal/apperr"
	"github.com/mojito-dev/mojito/internal/ledger"
	"github.com/mojito-dev/mojito/internal/model"
)

// Manager drives split-group bookkeeping over a ledger store.
type Manager struct {
	store  *ledger.Store
	editor *ledger.Editor
	log    zerolog.Logger
}

// NewManager creates a Manager.
func NewManager(store *ledger.Store, editor *ledger.Editor, log zerolog.Logger) *Manager {
	return &Manager{
		store:  store,
		editor: editor,
		log:    log.With().Str("component", "split").Logger(),
	}
}

// BeginSplit reduces a row to newAmount and inserts a sibling carrying
// the remainder. On the first split of a normal row, the row's server
// id becomes the group's parent id and the row itself rejoins the
// group with a temporary id; the remote system re-ids the whole group
// on upload. The new sibling is returned.
func (m *Manager) BeginSplit(row *model.Transaction, newAmount decimal.Decimal) (*model.Transaction, error) {
	newAmount = newAmount.Round(2)
	if row.State == model.StatePending {
		return nil, apperr.Validationf("transaction %q is pending and cannot be split", row.Merchant)
	}
	if newAmount.IsZero() {
		if row.IsSplitMember() {
			return nil, apperr.Validationf("a zero amount removes a split line; remove it instead")
		}
		return nil, apperr.Validationf("a transaction amount cannot be zero")
	}

	splitAmount := row.OrigAmount.Sub(newAmount).Round(2)
	if splitAmount.IsZero() {
		return nil, apperr.Validationf("new amount %s equals the current amount; nothing to split", newAmount.StringFixed(2))
	}

	if !row.IsSplitMember() {
		if row.ID == 0 {
			return nil, apperr.Validationf("transaction %q has not been synced yet and cannot be split", row.Merchant)
		}
		row.ParentID = row.ID
		row.ID = 0
		row.State = model.StateSplit
	}

	row.Amount = newAmount
	row.OrigAmount = newAmount
	if err := m.editor.Mark(row, model.EditSplit); err != nil {
		return nil, err
	}

	sibling := row.CloneForSplit()
	sibling.ParentID = row.ParentID
	sibling.Amount = splitAmount
	sibling.OrigAmount = splitAmount
	if err := m.editor.Mark(sibling, model.EditSplit); err != nil {
		return nil, err
	}
	m.store.Insert(sibling)
	m.store.Sort()

	m.log.Debug().
		Int64("parent_id", row.ParentID).
		Str("kept", newAmount.StringFixed(2)).
		Str("moved", splitAmount.StringFixed(2)).
		Msg("split transaction")
	return sibling, nil
}

// TransferRemainder reduces a split member to newAmount and moves the
// difference onto an existing sibling instead of creating a new line.
// The sibling is marked for both split and edit upload so the change
// survives a later collapse.
func (m *Manager) TransferRemainder(row *model.Transaction, newAmount decimal.Decimal) error {
	newAmount = newAmount.Round(2)
	if !row.IsSplitMember() {
		return apperr.Validationf("transaction %q is not part of a split", row.Merchant)
	}
	if newAmount.IsZero() {
		return apperr.Validationf("a zero amount removes a split line; remove it instead")
	}

	splitAmount := row.OrigAmount.Sub(newAmount).Round(2)
	if splitAmount.IsZero() {
		return nil
	}

	sibling, err := m.siblingOf(row)
	if err != nil {
		return err
	}

	row.Amount = newAmount
	row.OrigAmount = newAmount
	if err := m.editor.Mark(row, model.EditSplit); err != nil {
		return err
	}
	return m.rebalance(sibling, splitAmount)
}

// RemoveSplit deletes a split member, transferring its amount back
// onto a sibling, and collapses the group if only one member remains.
func (m *Manager) RemoveSplit(row *model.Transaction) error {
	if !row.IsSplitMember() {
		return apperr.Validationf("transaction %q is not part of a split", row.Merchant)
	}

	sibling, err := m.siblingOf(row)
	if err != nil {
		return err
	}

	if err := m.rebalance(sibling, row.OrigAmount); err != nil {
		return err
	}
	parentID := row.ParentID
	m.store.Remove(row.RowKey)

	_, err = m.CollapseIfSingleton(parentID)
	return err
}

// CollapseIfSingleton dissolves a split group that has been reduced to
// one member: the survivor leaves the group, takes back the group's
// original server id, and keeps any pending edit marker. It reports
// whether a collapse happened.
func (m *Manager) CollapseIfSingleton(parentID int64) (bool, error) {
	group := m.store.SplitGroup(parentID)
	if len(group) == 0 {
		return false, apperr.Invariantf("split group %d has no members", parentID)
	}
	if len(group) > 1 {
		return false, nil
	}

	t := group[0]
	t.ParentID = 0
	t.State = model.StateNormal
	t.EditStatus = t.EditStatus.Strip(model.EditSplit)
	t.ID = parentID
	m.log.Debug().Int64("txn_id", t.ID).Msg("collapsed singleton split group")
	return true, nil
}

// ReconcileServerIDs applies the ids the remote system assigned to a
// group after a split upload. The response carries the group's parent
// id first, then one id per member; members with a permanent id line
// up with the earlier slots and must match exactly, members with a
// temporary id take the remaining slots in order. Any disagreement is
// a corruption signal. A one-id response acknowledges a dissolved
// group; the survivor's id is restored by CollapseIfSingleton.
func (m *Manager) ReconcileServerIDs(parentID int64, responseIDs []int64) error {
	group := m.store.SplitGroup(parentID)
	if len(group) == 0 {
		return apperr.Invariantf("split group %d has no members", parentID)
	}
	if len(responseIDs) == 0 || responseIDs[0] != parentID {
		return apperr.Invariantf("split group %d: response names parent id %v", parentID, responseIDs)
	}
	if len(group) == 1 && len(responseIDs) == 1 {
		return nil
	}
	if len(group) != len(responseIDs)-1 {
		return apperr.Invariantf("split group %d has %d members but the response carries %d member ids",
			parentID, len(group), len(responseIDs)-1)
	}
	responseIDs = responseIDs[1:]

	ordered := append([]*model.Transaction(nil), group...)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i].ID, ordered[j].ID
		if a == 0 {
			return false
		}
		if b == 0 {
			return true
		}
		return a < b
	})

	// Verify before assigning anything.
	for i, t := range ordered {
		if t.ID != 0 && t.ID != responseIDs[i] {
			return apperr.Invariantf("split group %d: transaction id %d does not match response id %d",
				parentID, t.ID, responseIDs[i])
		}
	}
	for i, t := range ordered {
		if t.ID == 0 {
			t.ID = responseIDs[i]
		}
	}
	return nil
}

func (m *Manager) siblingOf(row *model.Transaction) (*model.Transaction, error) {
	for _, t := range m.store.SplitGroup(row.ParentID) {
		if t.RowKey != row.RowKey {
			return t, nil
		}
	}
	return nil, apperr.Invariantf("split group %d has no sibling to rebalance onto", row.ParentID)
}

func (m *Manager) rebalance(sibling *model.Transaction, amount decimal.Decimal) error {
	sibling.Amount = sibling.Amount.Add(amount).Round(2)
	sibling.OrigAmount = sibling.OrigAmount.Add(amount).Round(2)
	if err := m.editor.Mark(sibling, model.EditSplit); err != nil {
		return err
	}
	return m.editor.Mark(sibling, model.EditEdit)
}
