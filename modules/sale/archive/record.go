package archive

import (
	"github.com/origins-network/sale-engine/modules/sale/internal/entity"
)

// eventRecord is the parquet row layout for one archived event. Amounts are
// stored as decimal strings to preserve the full 128-bit range.
type eventRecord struct {
	Seq           int64  `parquet:"name=seq, type=INT64"`
	Kind          string `parquet:"name=kind, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	TierID        int64  `parquet:"name=tier_id, type=INT64"`
	Wallet        string `parquet:"name=wallet, type=BYTE_ARRAY, convertedtype=UTF8"`
	DepositAmount string `parquet:"name=deposit_amount, type=BYTE_ARRAY, convertedtype=UTF8"`
	TokenAmount   string `parquet:"name=token_amount, type=BYTE_ARRAY, convertedtype=UTF8"`
	Metadata      string `parquet:"name=metadata, type=BYTE_ARRAY, convertedtype=UTF8"`
	Timestamp     int64  `parquet:"name=timestamp, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
}

func recordFromEvent(e entity.Event) eventRecord {
	record := eventRecord{
		Seq:       int64(e.Seq),
		Kind:      e.Kind,
		TierID:    -1,
		Wallet:    e.Wallet,
		Metadata:  string(e.Metadata),
		Timestamp: e.Timestamp.UnixMilli(),
	}
	if e.TierID != nil {
		record.TierID = int64(*e.TierID)
	}
	if e.DepositAmount != nil {
		record.DepositAmount = e.DepositAmount.String()
	}
	if e.TokenAmount != nil {
		record.TokenAmount = e.TokenAmount.String()
	}
	return record
}
