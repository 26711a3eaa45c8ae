package httphandler

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/origins-network/sale-engine/core/sequencer"
)

type createTiersResult struct {
	TierIDs []uint64 `json:"tierIds"`
	Seq     uint64   `json:"seq"`
}

type createTiersResponse = HttpResponse[createTiersResult]

func (h *HttpHandler) SubmitCreateTiers(ctx *fiber.Ctx) error {
	env, err := parseEnvelope(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	var applied sequencer.Slot
	result, err := h.seq.Submit(ctx.UserContext(), "sale.create_tiers", func(opCtx context.Context, slot sequencer.Slot) (any, error) {
		applied = slot
		return h.processor.CreateTiers(opCtx, slot, env)
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := createTiersResponse{
		Result: &createTiersResult{
			TierIDs: result.([]uint64),
			Seq:     applied.Seq,
		},
	}
	return errors.WithStack(ctx.JSON(resp))
}

func (h *HttpHandler) SubmitEditTier(ctx *fiber.Ctx) error {
	return h.submitAckOnly(ctx, "sale.edit_tier", h.processor.EditTier)
}

func (h *HttpHandler) SubmitSetTierDeposit(ctx *fiber.Ctx) error {
	return h.submitAckOnly(ctx, "sale.set_tier_deposit", h.processor.SetTierDeposit)
}

func (h *HttpHandler) SubmitSetStakeCondition(ctx *fiber.Ctx) error {
	return h.submitAckOnly(ctx, "sale.set_stake_condition", h.processor.SetStakeCondition)
}

func (h *HttpHandler) SubmitCloseTier(ctx *fiber.Ctx) error {
	return h.submitAckOnly(ctx, "sale.close_tier", h.processor.CloseTierEarly)
}

func (h *HttpHandler) SubmitAddVerifier(ctx *fiber.Ctx) error {
	return h.submitAckOnly(ctx, "sale.add_verifier", h.processor.AddVerifier)
}

func (h *HttpHandler) SubmitSetAddressVerified(ctx *fiber.Ctx) error {
	return h.submitAckOnly(ctx, "sale.set_address_verified", h.processor.SetAddressVerified)
}
