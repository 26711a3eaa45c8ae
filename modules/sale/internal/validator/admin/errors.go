package adminvalidator

const (
	TIER_NOT_FOUND         = "Tier not found."
	TIER_CLOSED            = "Tier already closed."
	SELECTOR_UNSET         = "All tier selectors must be set."
	INVALID_SELECTOR       = "Invalid tier selector."
	INVALID_AMOUNT_BOUNDS  = "Tier minimum amount exceeds maximum."
	INVALID_ALLOCATION     = "Initial allocation must be positive."
	INVALID_RATE           = "Deposit rate must be positive."
	INVALID_UNLOCK_BP      = "Unlock basis points must be below 10000."
	INVALID_SALE_END       = "Invalid sale end configuration."
	INVALID_VEST_DURATION  = "Vesting duration must be positive."
	INVALID_VERIFIER_KEY   = "Invalid verifier public key."
	INVALID_WALLET_ADDRESS = "Invalid wallet address."
	EMPTY_BATCH            = "No tier configs provided."
	ALLOCATION_BELOW_SOLD  = "New allocation below tokens already sold."
	NO_CHECKPOINTS         = "Stake condition requires at least one checkpoint."
	INVALID_STAKE_BOUNDS   = "Stake minimum exceeds maximum."
	SALE_NOT_ENDED         = "Sale has not ended."
	ALREADY_WITHDRAWN      = "Proceeds already withdrawn."
	NO_DEPOSIT_ADDRESS     = "Tier has no deposit address configured."
)
