package postgres

import (
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/uint128"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

func uint128FromNumeric(src pgtype.Numeric) (uint128.Uint128, error) {
	if !src.Valid {
		return uint128.Uint128{}, nil
	}
	bytes, err := src.MarshalJSON()
	if err != nil {
		return uint128.Uint128{}, errors.WithStack(err)
	}
	result, err := uint128.FromString(string(bytes))
	if err != nil {
		return uint128.Uint128{}, errors.WithStack(err)
	}
	return result, nil
}

func numericFromUint128(src uint128.Uint128) (pgtype.Numeric, error) {
	bytes := []byte(src.String())
	var result pgtype.Numeric
	err := result.UnmarshalJSON(bytes)
	if err != nil {
		return pgtype.Numeric{}, errors.WithStack(err)
	}
	return result, nil
}

func optionalUint128FromNumeric(src pgtype.Numeric) (*uint128.Uint128, error) {
	if !src.Valid {
		return nil, nil
	}
	result, err := uint128FromNumeric(src)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func optionalNumericFromUint128(src *uint128.Uint128) (pgtype.Numeric, error) {
	if src == nil {
		return pgtype.Numeric{}, nil
	}
	return numericFromUint128(*src)
}

func decimalFromNumeric(src pgtype.Numeric) (decimal.Decimal, error) {
	if !src.Valid {
		return decimal.Zero, nil
	}
	bytes, err := src.MarshalJSON()
	if err != nil {
		return decimal.Zero, errors.WithStack(err)
	}
	result, err := decimal.NewFromString(string(bytes))
	if err != nil {
		return decimal.Zero, errors.WithStack(err)
	}
	return result, nil
}

func numericFromDecimal(src decimal.Decimal) (pgtype.Numeric, error) {
	var result pgtype.Numeric
	err := result.UnmarshalJSON([]byte(src.String()))
	if err != nil {
		return pgtype.Numeric{}, errors.WithStack(err)
	}
	return result, nil
}
