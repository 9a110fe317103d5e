package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// PropsDelim separates the visible memo text from the hidden property
// payload when both travel in the remote system's note field.
const PropsDelim = ";;"

// Props is an opaque key/value payload attached to a transaction but
// hidden from the memo the user sees. On the wire it rides at the end
// of the memo after PropsDelim; the raw JSON is preserved even when it
// cannot be parsed.
type Props struct {
	Fields map[string]string
	Raw    string
}

// Property keys and values written by the reconciliation workflow.
const (
	PropType        = "type"
	PropBalance     = "balance"
	PropPending     = "pending"
	PropTypeRecon   = "reconcile"
	PropPendingSkip = "ignore"
)

// NewProps builds a Props from a key/value map.
func NewProps(fields map[string]string) *Props {
	raw, err := json.Marshal(fields)
	if err != nil {
		// A map[string]string always marshals.
		panic(err)
	}
	return &Props{Fields: fields, Raw: string(raw)}
}

// ParseProps builds a Props from a raw JSON payload. Unparseable
// payloads keep the raw text and a nil field map.
func ParseProps(raw string) *Props {
	p := &Props{Raw: raw}
	fields := make(map[string]string)
	if err := json.Unmarshal([]byte(raw), &fields); err == nil {
		p.Fields = fields
	}
	return p
}

// Get returns the value for a key, or "" when absent or unparseable.
func (p *Props) Get(key string) string {
	if p == nil || p.Fields == nil {
		return ""
	}
	return p.Fields[key]
}

// ReconcileProps builds the payload recorded on the synthetic
// balancing transaction a reconciliation creates.
func ReconcileProps(balance decimal.Decimal) *Props {
	return NewProps(map[string]string{
		PropBalance: balance.StringFixed(2),
		PropPending: PropPendingSkip,
		PropType:    PropTypeRecon,
	})
}

// EmbedProps appends a property payload to memo text for the wire.
func EmbedProps(memo string, p *Props) string {
	if p == nil || p.Raw == "" {
		return memo
	}
	return fmt.Sprintf("%s\n\n\n%s%s", memo, PropsDelim, p.Raw)
}

// SplitMemo separates memo text from an embedded property payload.
// The props result is nil when the memo carries none.
func SplitMemo(raw string) (memo string, props *Props) {
	i := strings.Index(raw, PropsDelim)
	if i < 0 {
		return raw, nil
	}
	return strings.TrimSpace(raw[:i]), ParseProps(raw[i+len(PropsDelim):])
}
