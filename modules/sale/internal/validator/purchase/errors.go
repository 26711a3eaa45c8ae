package purchasevalidator

const (
	TIER_NOT_FOUND         = "Tier not found."
	TIER_NOT_CONFIGURED    = "Tier is not configured for sale."
	SALE_NOT_OPEN          = "Sale is not open."
	AMOUNT_BELOW_MINIMUM   = "Deposit amount below tier minimum."
	OVER_LIMIT_PER_ADDR    = "Purchase over limit per address."
	INSUFFICIENT_SUPPLY    = "Insufficient remaining token supply."
	NON_INTEGRAL_TOKENS    = "Deposit amount does not convert to a whole token amount."
	TOKEN_AMOUNT_OVERFLOW  = "Token amount out of range."
	ADDRESS_NOT_VERIFIED   = "Address is not verified for this tier."
	STAKE_OUT_OF_RANGE     = "Staked amount outside tier stake condition."
	STAKE_CONDITION_UNSET  = "Tier has no stake condition configured."
	SALE_NOT_ENDED         = "Sale has not ended."
	ALREADY_CLAIMED        = "Escrow already claimed."
	NO_ESCROW              = "No escrowed deposit for this tier."
	NOT_POOLED_TIER        = "Tier is not a pooled sale."
)
