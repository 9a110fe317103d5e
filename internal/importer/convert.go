package importer

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/mojito-dev/mojito/internal/directory"
	"github.com/mojito-dev/mojito/internal/model"
)

// Converter turns raw feed transactions into ledger rows.
type Converter struct {
	dir *directory.Directory
	log zerolog.Logger
}

// NewConverter creates a Converter.
func NewConverter(dir *directory.Directory, log zerolog.Logger) *Converter {
	return &Converter{
		dir: dir,
		log: log.With().Str("component", "importer").Logger(),
	}
}

// Convert maps a parsed feed to ledger transactions for one aggregator
// login. Duplicate-flagged and unparseable rows are skipped, debits
// are flipped negative, the reserved cleared/reconciled tags fold into
// the flag, and any props payload hidden in the note is extracted.
func (c *Converter) Convert(feed []FeedTransaction, mintAccount string, now time.Time) []*model.Transaction {
	var txns []*model.Transaction
	for _, f := range feed {
		if f.IsDuplicate {
			continue
		}

		date, err := parseFeedDate(f.Date, now)
		if err != nil {
			c.log.Warn().Int64("id", f.ID).Str("date", f.Date).
				Msg("skipping transaction with unparseable date")
			continue
		}
		amount, err := parseFeedAmount(f.Amount, f.IsDebit)
		if err != nil {
			c.log.Warn().Int64("id", f.ID).Str("amount", f.Amount).
				Msg("skipping transaction with unparseable amount")
			continue
		}

		memo, props := model.SplitMemo(f.Note)

		flag := model.CRNone
		var tags []string
		var tagIDs []int64
		for _, l := range f.Labels {
			switch {
			case l.Name != "" && strings.EqualFold(l.Name, c.dir.ReconciledTag()):
				flag = model.CRReconciled
			case l.Name != "" && strings.EqualFold(l.Name, c.dir.ClearedTag()):
				if flag != model.CRReconciled {
					flag = model.CRCleared
				}
			default:
				tags = append(tags, l.Name)
			}
			tagIDs = append(tagIDs, l.ID)
		}

		state := model.StateNormal
		if f.IsPending && props.Get(model.PropPending) != model.PropPendingSkip {
			state = model.StatePending
		}
		parentID := int64(0)
		if f.IsChild {
			state = model.StateSplit
			parentID = f.PID
		}

		txns = append(txns, &model.Transaction{
			Date:             date,
			ImportDate:       now,
			YearMonth:        model.YearMonthOf(date),
			Account:          f.Account,
			MintAccount:      mintAccount,
			Merchant:         f.Merchant,
			OrigMerchantInfo: f.OMerchant,
			Amount:           amount,
			OrigAmount:       amount,
			Category:         f.Category,
			CategoryID:       f.CategoryID,
			Tags:             tags,
			TagIDs:           tagIDs,
			ClearRecon:       flag,
			Memo:             memo,
			Props:            props,
			State:            state,
			ID:               f.ID,
			ParentID:         parentID,
		})
	}

	c.log.Info().Int("parsed", len(feed)).Int("converted", len(txns)).
		Str("mint_account", mintAccount).Msg("converted feed transactions")
	return txns
}

// feedDateFormats are the date shapes the feed uses for rows from
// earlier years.
var feedDateFormats = []string{"1/2/2006", "1/2/06"}

// parseFeedDate handles both the "M/D/YY" shape and the "Jan 2" shape
// the feed uses for recent rows. A short date whose month lies ahead
// of today belongs to last year.
func parseFeedDate(v string, now time.Time) (time.Time, error) {
	v = strings.TrimSpace(v)
	for _, layout := range feedDateFormats {
		if d, err := time.Parse(layout, v); err == nil {
			return d, nil
		}
	}

	d, err := time.Parse("Jan 2", v)
	if err != nil {
		return time.Time{}, err
	}
	year := now.Year()
	if d.Month() > now.Month() {
		year--
	}
	return time.Date(year, d.Month(), d.Day(), 0, 0, 0, 0, now.Location()), nil
}

// parseFeedAmount strips the currency formatting and applies the debit
// sign.
func parseFeedAmount(v string, isDebit bool) (decimal.Decimal, error) {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "$")
	v = strings.ReplaceAll(v, ",", "")

	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if isDebit {
		d = d.Neg()
	}
	return d, nil
}
