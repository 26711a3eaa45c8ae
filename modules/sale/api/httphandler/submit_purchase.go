package httphandler

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/origins-network/sale-engine/core/sequencer"
	"github.com/origins-network/sale-engine/modules/sale/processor"
)

type purchaseResponse = HttpResponse[processor.PurchaseResult]

func (h *HttpHandler) SubmitPurchase(ctx *fiber.Ctx) error {
	env, err := parseEnvelope(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	result, err := h.seq.Submit(ctx.UserContext(), "sale.purchase", func(opCtx context.Context, slot sequencer.Slot) (any, error) {
		return h.processor.Purchase(opCtx, slot, env)
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := purchaseResponse{Result: result.(*processor.PurchaseResult)}
	return errors.WithStack(ctx.JSON(resp))
}

type claimResponse = HttpResponse[processor.ClaimResult]

func (h *HttpHandler) SubmitClaimPooled(ctx *fiber.Ctx) error {
	env, err := parseEnvelope(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	result, err := h.seq.Submit(ctx.UserContext(), "sale.claim_pooled", func(opCtx context.Context, slot sequencer.Slot) (any, error) {
		return h.processor.ClaimPooled(opCtx, slot, env)
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := claimResponse{Result: result.(*processor.ClaimResult)}
	return errors.WithStack(ctx.JSON(resp))
}

type withdrawProceedsResponse = HttpResponse[processor.WithdrawResult]

func (h *HttpHandler) SubmitWithdrawProceeds(ctx *fiber.Ctx) error {
	env, err := parseEnvelope(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	result, err := h.seq.Submit(ctx.UserContext(), "sale.withdraw_proceeds", func(opCtx context.Context, slot sequencer.Slot) (any, error) {
		return h.processor.WithdrawProceeds(opCtx, slot, env)
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := withdrawProceedsResponse{Result: result.(*processor.WithdrawResult)}
	return errors.WithStack(ctx.JSON(resp))
}
