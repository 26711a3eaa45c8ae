package httphandler

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/origins-network/sale-engine/common/errs"
	"github.com/origins-network/sale-engine/core/sequencer"
	"github.com/origins-network/sale-engine/modules/lockedfund/datagateway"
	"github.com/origins-network/sale-engine/modules/lockedfund/processor"
	"github.com/origins-network/sale-engine/modules/lockedfund/protocol"
)

type HttpHandler struct {
	fundDg    datagateway.LockedFundDataGateway
	seq       *sequencer.Sequencer
	processor *processor.Processor
}

func New(fundDg datagateway.LockedFundDataGateway, seq *sequencer.Sequencer, processor *processor.Processor) *HttpHandler {
	return &HttpHandler{
		fundDg:    fundDg,
		seq:       seq,
		processor: processor,
	}
}

type HttpResponse[T any] struct {
	Error  *string `json:"error"`
	Result *T      `json:"result,omitempty"`
}

type submitAck struct {
	Seq uint64 `json:"seq"`
}

type ackOp func(ctx context.Context, slot sequencer.Slot, env *protocol.Envelope) error

func (h *HttpHandler) submitAckOnly(ctx *fiber.Ctx, kind string, op ackOp) error {
	env, err := parseEnvelope(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	var applied sequencer.Slot
	if _, err := h.seq.Submit(ctx.UserContext(), kind, func(opCtx context.Context, slot sequencer.Slot) (any, error) {
		applied = slot
		return nil, op(opCtx, slot, env)
	}); err != nil {
		return errors.WithStack(err)
	}

	resp := HttpResponse[submitAck]{Result: &submitAck{Seq: applied.Seq}}
	return errors.WithStack(ctx.JSON(resp))
}

func parseEnvelope(ctx *fiber.Ctx) (*protocol.Envelope, error) {
	var env protocol.Envelope
	if err := ctx.BodyParser(&env); err != nil {
		return nil, errs.NewPublicError("invalid operation envelope")
	}
	if env.Pubkey == "" || env.Signature == "" || len(env.Payload) == 0 {
		return nil, errs.NewPublicError("operation envelope requires pubkey, signature and payload")
	}
	return &env, nil
}
