package httphandler

import (
	"github.com/gofiber/fiber/v2"
)

func (h *HttpHandler) Mount(router fiber.Router) error {
	r := router.Group("/sale/v1")

	// signed operations, applied through the ordered log
	r.Post("/tiers", h.SubmitCreateTiers)
	r.Post("/tiers/edit", h.SubmitEditTier)
	r.Post("/tiers/deposit-address", h.SubmitSetTierDeposit)
	r.Post("/tiers/stake-condition", h.SubmitSetStakeCondition)
	r.Post("/tiers/close", h.SubmitCloseTier)
	r.Post("/tiers/withdraw-proceeds", h.SubmitWithdrawProceeds)
	r.Post("/verifiers", h.SubmitAddVerifier)
	r.Post("/verifications", h.SubmitSetAddressVerified)
	r.Post("/purchase", h.SubmitPurchase)
	r.Post("/claim", h.SubmitClaimPooled)

	// queries
	r.Get("/tiers", h.GetTiers)
	r.Get("/tiers/:tierId", h.GetTier)
	r.Get("/ledger", h.GetLedger)
	r.Get("/escrow/:tierId", h.GetEscrow)
	r.Get("/events", h.GetEvents)
	r.Get("/stats", h.GetStats)

	return nil
}
