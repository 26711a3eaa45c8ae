package httphandler

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/uint128"
	"github.com/gofiber/fiber/v2"
	"github.com/origins-network/sale-engine/modules/sale/internal/entity"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

type getEscrowRequest struct {
	TierID uint64 `params:"tierId"`
}

type escrowEntry struct {
	Wallet        string          `json:"wallet"`
	DepositAmount uint128.Uint128 `json:"depositAmount"`
	Claimed       bool            `json:"claimed"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

type getEscrowResult struct {
	TierID       uint64          `json:"tierId"`
	TotalEscrow  uint128.Uint128 `json:"totalEscrow"`
	List         []escrowEntry   `json:"list"`
	Participants int             `json:"participants"`
}

type getEscrowResponse = HttpResponse[getEscrowResult]

func (h *HttpHandler) GetEscrow(ctx *fiber.Ctx) error {
	var req getEscrowRequest
	if err := ctx.ParamsParser(&req); err != nil {
		return errors.WithStack(err)
	}

	var entries []entity.EscrowEntry
	var total uint128.Uint128
	eg, egctx := errgroup.WithContext(ctx.UserContext())
	eg.Go(func() error {
		var err error
		entries, err = h.saleDg.GetEscrowEntriesByTier(egctx, req.TierID)
		return errors.Wrap(err, "error during GetEscrowEntriesByTier")
	})
	eg.Go(func() error {
		var err error
		total, err = h.saleDg.GetEscrowTotalByTier(egctx, req.TierID)
		return errors.Wrap(err, "error during GetEscrowTotalByTier")
	})
	if err := eg.Wait(); err != nil {
		return errors.WithStack(err)
	}

	resp := getEscrowResponse{
		Result: &getEscrowResult{
			TierID:      req.TierID,
			TotalEscrow: total,
			List: lo.Map(entries, func(e entity.EscrowEntry, _ int) escrowEntry {
				return escrowEntry{
					Wallet:        e.Wallet,
					DepositAmount: e.DepositAmount,
					Claimed:       e.Claimed,
					UpdatedAt:     e.UpdatedAt,
				}
			}),
			Participants: len(entries),
		},
	}
	return errors.WithStack(ctx.JSON(resp))
}
