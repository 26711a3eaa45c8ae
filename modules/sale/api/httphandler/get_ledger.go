package httphandler

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/uint128"
	"github.com/gofiber/fiber/v2"
	"github.com/origins-network/sale-engine/common/errs"
	"github.com/origins-network/sale-engine/modules/sale/internal/entity"
	"github.com/samber/lo"
)

type getLedgerRequest struct {
	Wallet string  `query:"wallet"`
	TierID *uint64 `query:"tierId"`
}

func (r getLedgerRequest) Validate() error {
	if r.Wallet == "" && r.TierID == nil {
		return errs.NewPublicError("Either 'wallet' or 'tierId' is required.")
	}
	return nil
}

type ledgerEntry struct {
	Wallet        string          `json:"wallet"`
	TierID        uint64          `json:"tierId"`
	DepositAmount uint128.Uint128 `json:"depositAmount"`
	TokenAmount   uint128.Uint128 `json:"tokenAmount"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

type getLedgerResult struct {
	List []ledgerEntry `json:"list"`
}

type getLedgerResponse = HttpResponse[getLedgerResult]

func (h *HttpHandler) GetLedger(ctx *fiber.Ctx) error {
	var req getLedgerRequest
	if err := ctx.QueryParser(&req); err != nil {
		return errors.WithStack(err)
	}
	if err := req.Validate(); err != nil {
		return errors.WithStack(err)
	}

	var (
		entries []entity.LedgerEntry
		err     error
	)
	switch {
	case req.Wallet != "" && req.TierID != nil:
		var entry *entity.LedgerEntry
		entry, err = h.saleDg.GetLedgerEntry(ctx.UserContext(), req.Wallet, *req.TierID)
		if entry != nil {
			entries = append(entries, *entry)
		}
	case req.Wallet != "":
		entries, err = h.saleDg.GetLedgerEntriesByWallet(ctx.UserContext(), req.Wallet)
	default:
		entries, err = h.saleDg.GetLedgerEntriesByTier(ctx.UserContext(), *req.TierID)
	}
	if err != nil {
		return errors.Wrap(err, "error during ledger lookup")
	}

	resp := getLedgerResponse{
		Result: &getLedgerResult{
			List: lo.Map(entries, func(e entity.LedgerEntry, _ int) ledgerEntry {
				return ledgerEntry{
					Wallet:        e.Wallet,
					TierID:        e.TierID,
					DepositAmount: e.DepositAmount,
					TokenAmount:   e.TokenAmount,
					UpdatedAt:     e.UpdatedAt,
				}
			}),
		},
	}
	return errors.WithStack(ctx.JSON(resp))
}
