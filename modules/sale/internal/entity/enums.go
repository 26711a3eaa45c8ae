package entity

// VerificationType selects the eligibility check applied to every purchase
// attempt against a tier. "none" marks an unconfigured tier and always
// rejects.
type VerificationType string

const (
	VerificationNone      VerificationType = "none"
	VerificationEveryone  VerificationType = "everyone"
	VerificationByAddress VerificationType = "by_address"
	VerificationByStake   VerificationType = "by_stake"
)

func (v VerificationType) IsValid() bool {
	switch v {
	case VerificationNone, VerificationEveryone, VerificationByAddress, VerificationByStake:
		return true
	}
	return false
}

func (v VerificationType) String() string {
	return string(v)
}

// TransferType governs how purchased tokens reach the buyer.
type TransferType string

const (
	TransferNone TransferType = "none"
	// TransferUnlocked credits the buyer immediately.
	TransferUnlocked TransferType = "unlocked"
	// TransferWaitedUnlocked routes tokens into the locked fund, releasable in
	// full after the globally configured waited timestamp.
	TransferWaitedUnlocked TransferType = "waited_unlocked"
	// TransferVested routes tokens into the locked fund under linear vesting
	// with the tier's cliff, duration and immediate-unlock basis points.
	TransferVested TransferType = "vested"
	// TransferLocked is vesting with no immediately unlocked portion.
	TransferLocked TransferType = "locked"
)

func (t TransferType) IsValid() bool {
	switch t {
	case TransferNone, TransferUnlocked, TransferWaitedUnlocked, TransferVested, TransferLocked:
		return true
	}
	return false
}

func (t TransferType) String() string {
	return string(t)
}

// SaleEndType specifies how a tier's sale window closes.
type SaleEndType string

const (
	SaleEndNone SaleEndType = "none"
	// SaleEndUntilSupply keeps the tier open until remaining tokens hit zero.
	SaleEndUntilSupply SaleEndType = "until_supply"
	// SaleEndDuration closes the tier a fixed duration after sale start.
	SaleEndDuration SaleEndType = "duration"
	// SaleEndTimestamp closes the tier at a fixed timestamp.
	SaleEndTimestamp SaleEndType = "timestamp"
)

func (s SaleEndType) IsValid() bool {
	switch s {
	case SaleEndNone, SaleEndUntilSupply, SaleEndDuration, SaleEndTimestamp:
		return true
	}
	return false
}

func (s SaleEndType) String() string {
	return string(s)
}

// SaleType selects the settlement policy for a tier.
type SaleType string

const (
	// SaleTypeFCFS settles each purchase immediately, first come first served.
	SaleTypeFCFS SaleType = "fcfs"
	// SaleTypePooled escrows deposits and computes final allocations after the
	// tier closes.
	SaleTypePooled SaleType = "pooled"
)

func (s SaleType) IsValid() bool {
	switch s {
	case SaleTypeFCFS, SaleTypePooled:
		return true
	}
	return false
}

func (s SaleType) String() string {
	return string(s)
}

// DepositAssetNative marks a tier collecting the platform's native currency
// instead of a specific fungible-token contract.
const DepositAssetNative = "native"
