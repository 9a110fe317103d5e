// Package syncer pushes dirty ledger rows back to the aggregator:
// form construction for each edit kind, the per-login upload loop, and
// response application. Transport is injected; this package only
// builds and interprets the payloads.
package syncer

import (
	"net/url"
	"strconv"

	"github.com/mojito-dev/mojito/internal/apperr"
	"github.com/mojito-dev/mojito/internal/directory"
	"github.com/mojito-dev/mojito/internal/model"
)

// formDateFormat is the date shape the update endpoint expects.
const formDateFormat = "01/02/2006"

// DeleteForm builds the form that deletes one transaction remotely.
func DeleteForm(t *model.Transaction) url.Values {
	form := url.Values{}
	form.Set("task", "delete")
	form.Set("txnId", strconv.FormatInt(t.ID, 10)+":0")
	return form
}

// EditForm builds the form that updates one non-split transaction.
func EditForm(t *model.Transaction, dir *directory.Directory) url.Values {
	form := baseForm(t, dir)
	form.Set("task", "txnEdit")
	form.Set("txnId", strconv.FormatInt(t.ID, 10)+":0")
	form.Set("mtCashSplit", "on")
	form.Set("mtAccount", "")
	form.Set("mtType", "cash")
	return form
}

// NewForm builds the form that creates a transaction remotely. The
// target account must be present in the account-id map.
func NewForm(t *model.Transaction, dir *directory.Directory, accountIDs map[string]int64) (url.Values, error) {
	acctID, ok := accountIDs[t.Account]
	if !ok {
		return nil, apperr.Validationf("account %q not found; unable to determine its account id", t.Account)
	}

	form := baseForm(t, dir)
	form.Set("task", "txnAdd")
	form.Set("txnId", ":0")
	form.Set("mtCashSplitPref", "1")
	form.Set("mtAccount", strconv.FormatInt(acctID, 10))
	form.Set("mtType", "pending-other")
	form.Set("mtIsExpense", strconv.FormatBool(t.Amount.IsNegative()))
	return form, nil
}

// SplitForm builds the form that re-uploads a whole split group. A
// single-member group produces the bare form, which dissolves the
// split remotely.
func SplitForm(parentID int64, group []*model.Transaction) url.Values {
	form := url.Values{}
	form.Set("task", "split")
	form.Set("data", "")
	form.Set("txnId", strconv.FormatInt(parentID, 10)+":0")

	if len(group) < 2 {
		return form
	}
	for i, t := range group {
		suffix := strconv.Itoa(i)
		// Debits are flipped positive for the wire.
		form.Set("amount"+suffix, t.Amount.Neg().String())
		form.Set("category"+suffix, t.Category)
		form.Set("merchant"+suffix, t.Merchant)
		form.Set("txnId"+suffix, strconv.FormatInt(t.ID, 10)+":0")
		form.Set("percentAmount"+suffix, "0")
		form.Set("categoryId"+suffix, strconv.FormatInt(t.CategoryID, 10))
	}
	return form
}

// baseForm carries the fields txnEdit and txnAdd share. The memo goes
// out with any props payload re-embedded, and every known tag is sent
// explicitly as present or absent.
func baseForm(t *model.Transaction, dir *directory.Directory) url.Values {
	form := url.Values{}
	form.Set("cashTxnType", "on")
	form.Set("mtCheckNo", "")
	form.Set("price", "")
	form.Set("symbol", "")
	form.Set("note", model.EmbedProps(t.Memo, t.Props))
	form.Set("isInvestment", "false")
	form.Set("catId", strconv.FormatInt(t.CategoryID, 10))
	form.Set("category", t.Category)
	form.Set("merchant", t.Merchant)
	form.Set("date", t.Date.Format(formDateFormat))
	form.Set("amount", t.Amount.Abs().String())

	for _, tag := range dir.Tags() {
		form.Set("tag"+strconv.FormatInt(tag.ID, 10), "0")
	}
	for _, id := range t.TagIDs {
		form.Set("tag"+strconv.FormatInt(id, 10), "2")
	}
	return form
}
