package storage

import (
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
)

// Amounts are stored as TEXT in minor units so SQLite never coerces them
// through floating point.

func decodeAmount(raw string, column string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount in column %s: %w", column, err)
	}
	return d, nil
}

func decodeNullAmount(raw sql.NullString, column string) (*decimal.Decimal, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	d, err := decodeAmount(raw.String, column)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func encodeNullAmount(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}
