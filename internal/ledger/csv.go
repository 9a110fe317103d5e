package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mojito-dev/mojito/internal/model"
)

// Header is the CSV header for ledger.csv, the tabular mirror of the
// transaction arena. RowKeys are not persisted; they are minted on
// load.
const Header = "date,edit_status,account,merchant,amount,category,tags,clear_recon,memo,matches,state,mint_account,orig_merchant_info,txn_id,parent_id,category_id,tag_ids,props,year_month,orig_amount,import_date"

const (
	numFields        = 21
	dateFormat       = "2006-01-02"
	listSep          = "|"
	colDate          = 0
	colEditStatus    = 1
	colAccount       = 2
	colMerchant      = 3
	colAmount        = 4
	colCategory      = 5
	colTags          = 6
	colClearRecon    = 7
	colMemo          = 8
	colMatches       = 9
	colState         = 10
	colMintAccount   = 11
	colOrigMerchInfo = 12
	colTxnID         = 13
	colParentID      = 14
	colCategoryID    = 15
	colTagIDs        = 16
	colProps         = 17
	colYearMonth     = 18
	colOrigAmount    = 19
	colImportDate    = 20
)

// ReadTransactions reads all transactions from a ledger.csv reader.
func ReadTransactions(r io.Reader) ([]*model.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading ledger CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	// Skip header row.
	var txns []*model.Transaction
	for i, rec := range records[1:] {
		t, err := UnmarshalTransaction(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		txns = append(txns, t)
	}
	return txns, nil
}

// WriteTransactions writes transactions to a ledger.csv writer
// (including header).
func WriteTransactions(w io.Writer, txns []*model.Transaction) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, t := range txns {
		if err := cw.Write(MarshalTransaction(t)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// MarshalTransaction converts a Transaction to a CSV row ([]string).
func MarshalTransaction(t *model.Transaction) []string {
	row := make([]string, numFields)
	row[colDate] = t.Date.Format(dateFormat)
	row[colEditStatus] = t.EditStatus.String()
	row[colAccount] = t.Account
	row[colMerchant] = t.Merchant
	row[colAmount] = t.Amount.StringFixed(2)
	row[colCategory] = t.Category
	row[colTags] = strings.Join(t.Tags, listSep)
	row[colClearRecon] = t.ClearRecon.String()
	row[colMemo] = t.Memo
	row[colMatches] = t.Matches
	row[colState] = t.State.String()
	row[colMintAccount] = t.MintAccount
	row[colOrigMerchInfo] = t.OrigMerchantInfo
	row[colTxnID] = strconv.FormatInt(t.ID, 10)

	if t.ParentID != 0 {
		row[colParentID] = strconv.FormatInt(t.ParentID, 10)
	}
	if t.CategoryID != 0 {
		row[colCategoryID] = strconv.FormatInt(t.CategoryID, 10)
	}

	ids := make([]string, len(t.TagIDs))
	for i, id := range t.TagIDs {
		ids[i] = strconv.FormatInt(id, 10)
	}
	row[colTagIDs] = strings.Join(ids, listSep)

	if t.Props != nil {
		row[colProps] = t.Props.Raw
	}

	row[colYearMonth] = strconv.Itoa(t.YearMonth)
	row[colOrigAmount] = t.OrigAmount.StringFixed(2)

	if !t.ImportDate.IsZero() {
		row[colImportDate] = t.ImportDate.Format(time.RFC3339)
	}

	return row
}

// UnmarshalTransaction converts a CSV row to a Transaction.
func UnmarshalTransaction(record []string) (*model.Transaction, error) {
	if len(record) != numFields {
		return nil, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	date, err := time.Parse(dateFormat, record[colDate])
	if err != nil {
		return nil, fmt.Errorf("parsing date %q: %w", record[colDate], err)
	}

	status, err := model.ParseEditStatus(record[colEditStatus])
	if err != nil {
		return nil, fmt.Errorf("parsing edit_status: %w", err)
	}

	amount, err := decimal.NewFromString(record[colAmount])
	if err != nil {
		return nil, fmt.Errorf("parsing amount %q: %w", record[colAmount], err)
	}

	id, err := strconv.ParseInt(record[colTxnID], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing txn_id %q: %w", record[colTxnID], err)
	}

	var parentID int64
	if record[colParentID] != "" {
		parentID, err = strconv.ParseInt(record[colParentID], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing parent_id %q: %w", record[colParentID], err)
		}
	}

	var categoryID int64
	if record[colCategoryID] != "" {
		categoryID, err = strconv.ParseInt(record[colCategoryID], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing category_id %q: %w", record[colCategoryID], err)
		}
	}

	var tags []string
	if record[colTags] != "" {
		tags = strings.Split(record[colTags], listSep)
	}

	var tagIDs []int64
	if record[colTagIDs] != "" {
		for _, part := range strings.Split(record[colTagIDs], listSep) {
			tagID, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("parsing tag_ids %q: %w", record[colTagIDs], err)
			}
			tagIDs = append(tagIDs, tagID)
		}
	}

	var props *model.Props
	if record[colProps] != "" {
		props = model.ParseProps(record[colProps])
	}

	var yearMonth int
	if record[colYearMonth] != "" {
		yearMonth, err = strconv.Atoi(record[colYearMonth])
		if err != nil {
			return nil, fmt.Errorf("parsing year_month %q: %w", record[colYearMonth], err)
		}
	}

	var origAmount decimal.Decimal
	if record[colOrigAmount] != "" {
		origAmount, err = decimal.NewFromString(record[colOrigAmount])
		if err != nil {
			return nil, fmt.Errorf("parsing orig_amount %q: %w", record[colOrigAmount], err)
		}
	}

	var importDate time.Time
	if record[colImportDate] != "" {
		importDate, err = time.Parse(time.RFC3339, record[colImportDate])
		if err != nil {
			return nil, fmt.Errorf("parsing import_date %q: %w", record[colImportDate], err)
		}
	}

	return &model.Transaction{
		Date:             date,
		EditStatus:       status,
		Account:          record[colAccount],
		Merchant:         record[colMerchant],
		Amount:           amount,
		Category:         record[colCategory],
		Tags:             tags,
		ClearRecon:       model.ParseClearRecon(record[colClearRecon]),
		Memo:             record[colMemo],
		Matches:          record[colMatches],
		State:            model.ParseTxnState(record[colState]),
		MintAccount:      record[colMintAccount],
		OrigMerchantInfo: record[colOrigMerchInfo],
		ID:               id,
		ParentID:         parentID,
		CategoryID:       categoryID,
		TagIDs:           tagIDs,
		Props:            props,
		YearMonth:        yearMonth,
		OrigAmount:       origAmount,
		ImportDate:       importDate,
	}, nil
}
