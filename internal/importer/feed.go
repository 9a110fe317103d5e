package importer

import (
	"encoding/json"
	"fmt"
	"io"
)

// FeedTransaction is one raw transaction as the aggregator's feed
// reports it. Amounts are formatted strings and debits carry a
// separate sign flag.
type FeedTransaction struct {
	ID          int64       `json:"id"`
	Date        string      `json:"date"`
	ODate       string      `json:"odate"`
	Account     string      `json:"account"`
	Merchant    string      `json:"merchant"`
	OMerchant   string      `json:"omerchant"`
	Amount      string      `json:"amount"`
	IsDebit     bool        `json:"isDebit"`
	IsDuplicate bool        `json:"isDuplicate"`
	IsPending   bool        `json:"isPending"`
	IsChild     bool        `json:"isChild"`
	PID         int64       `json:"pid"`
	Category    string      `json:"category"`
	CategoryID  int64       `json:"categoryId"`
	Labels      []FeedLabel `json:"labels"`
	Note        string      `json:"note"`
}

// FeedLabel is one tag attached to a feed transaction.
type FeedLabel struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// feedEnvelope is the outer response shape: a "set" array whose
// "transactions" member carries the rows.
type feedEnvelope struct {
	Set []struct {
		ID   string            `json:"id"`
		Data []FeedTransaction `json:"data"`
	} `json:"set"`
}

// FeedParser parses the aggregator's transaction-feed JSON.
type FeedParser struct{}

// Format returns the parser name.
func (p *FeedParser) Format() string { return "feed" }

// Parse reads a feed response and returns its raw transactions.
func (p *FeedParser) Parse(r io.Reader) ([]FeedTransaction, error) {
	var env feedEnvelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil, fmt.Errorf("decoding feed JSON: %w", err)
	}

	for _, set := range env.Set {
		if set.ID == "transactions" {
			return set.Data, nil
		}
	}
	return nil, fmt.Errorf("feed response carries no transactions set")
}
