package sales

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

const (
	quotationSequence   = "quotation"
	quotationPrefix     = "COT-"
	maxNumberingRetries = 3
	quotationNumberKey  = "quotations_number_key"
)

// FormatQuotationNumber renders a sequence value as COT-00042.
// Values wider than five digits are printed in full.
func FormatQuotationNumber(seq int64) string {
	return fmt.Sprintf("%s%05d", quotationPrefix, seq)
}

// ParseQuotationNumber extracts the sequence value from a quotation number.
func ParseQuotationNumber(number string) (int64, bool) {
	digits, ok := strings.CutPrefix(strings.TrimSpace(number), quotationPrefix)
	if !ok || digits == "" {
		return 0, false
	}
	seq, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || seq <= 0 {
		return 0, false
	}
	return seq, true
}

// NumberingTx is the transactional surface used to number quotations.
type NumberingTx interface {
	NextSequence(ctx context.Context, name string) (int64, error)
	SetQuotationNumber(ctx context.Context, quotationID int64, number string) error
}

// AssignQuotationNumber draws the next counter value and stamps it on the quotation.
// A quotation that already carries a number is rejected with ErrConflict.
func AssignQuotationNumber(ctx context.Context, tx NumberingTx, quotationID int64) (string, error) {
	seq, err := tx.NextSequence(ctx, quotationSequence)
	if err != nil {
		return "", fmt.Errorf("sales: next quotation sequence: %w", err)
	}
	number := FormatQuotationNumber(seq)
	if err := tx.SetQuotationNumber(ctx, quotationID, number); err != nil {
		return "", err
	}
	return number, nil
}
