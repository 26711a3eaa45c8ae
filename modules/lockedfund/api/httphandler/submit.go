package httphandler

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/origins-network/sale-engine/core/sequencer"
	"github.com/origins-network/sale-engine/modules/lockedfund/processor"
)

func (h *HttpHandler) SubmitAddAdmin(ctx *fiber.Ctx) error {
	return h.submitAckOnly(ctx, "lockedfund.add_admin", h.processor.AddAdmin)
}

func (h *HttpHandler) SubmitRemoveAdmin(ctx *fiber.Ctx) error {
	return h.submitAckOnly(ctx, "lockedfund.remove_admin", h.processor.RemoveAdmin)
}

func (h *HttpHandler) SubmitChangeVestingRegistry(ctx *fiber.Ctx) error {
	return h.submitAckOnly(ctx, "lockedfund.change_vesting_registry", h.processor.ChangeVestingRegistry)
}

func (h *HttpHandler) SubmitChangeWaitedTimestamp(ctx *fiber.Ctx) error {
	return h.submitAckOnly(ctx, "lockedfund.change_waited_timestamp", h.processor.ChangeWaitedTimestamp)
}

func (h *HttpHandler) SubmitDepositWaitedUnlocked(ctx *fiber.Ctx) error {
	return h.submitAckOnly(ctx, "lockedfund.deposit_waited", h.processor.DepositWaitedUnlocked)
}

func (h *HttpHandler) SubmitDepositVested(ctx *fiber.Ctx) error {
	return h.submitAckOnly(ctx, "lockedfund.deposit_vested", h.processor.DepositVested)
}

type withdrawResponse = HttpResponse[processor.WithdrawResult]

func (h *HttpHandler) SubmitWithdraw(ctx *fiber.Ctx) error {
	env, err := parseEnvelope(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	result, err := h.seq.Submit(ctx.UserContext(), "lockedfund.withdraw", func(opCtx context.Context, slot sequencer.Slot) (any, error) {
		return h.processor.Withdraw(opCtx, slot, env)
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := withdrawResponse{Result: result.(*processor.WithdrawResult)}
	return errors.WithStack(ctx.JSON(resp))
}
