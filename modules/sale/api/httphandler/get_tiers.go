package httphandler

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/uint128"
	"github.com/gofiber/fiber/v2"
	"github.com/origins-network/sale-engine/common/errs"
	"github.com/origins-network/sale-engine/modules/sale/internal/entity"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type tier struct {
	ID                uint64          `json:"id"`
	MinAmount         uint128.Uint128 `json:"minAmount"`
	MaxAmount         uint128.Uint128 `json:"maxAmount"`
	InitialAllocation uint128.Uint128 `json:"initialAllocation"`
	RemainingTokens   uint128.Uint128 `json:"remainingTokens"`
	TotalSold         uint128.Uint128 `json:"totalSold"`
	TotalDeposited    uint128.Uint128 `json:"totalDeposited"`
	SaleStartAt       time.Time       `json:"saleStartAt"`
	SaleEndType       string          `json:"saleEndType"`
	SaleEndDuration   int64           `json:"saleEndDurationSeconds,omitempty"`
	SaleEndAt         *time.Time      `json:"saleEndAt,omitempty"`
	UnlockBP          uint16          `json:"unlockBasisPoints"`
	VestCliff         int64           `json:"vestCliffSeconds,omitempty"`
	VestDuration      int64           `json:"vestDurationSeconds,omitempty"`
	DepositRate       decimal.Decimal `json:"depositRate"`
	DepositAsset      string          `json:"depositAsset,omitempty"`
	DepositAddress    string          `json:"depositAddress,omitempty"`
	VerificationType  string          `json:"verificationType"`
	TransferType      string          `json:"transferType"`
	SaleType          string          `json:"saleType"`
	Closed            bool            `json:"closed"`
	Withdrawn         bool            `json:"withdrawn"`
	ParticipantCount  uint64          `json:"participantCount"`
	Open              bool            `json:"open"`
	Ended             bool            `json:"ended"`
}

func tierFromEntity(t entity.Tier, at time.Time) tier {
	var endAt *time.Time
	if !t.SaleEndAt.IsZero() {
		endAt = &t.SaleEndAt
	}
	return tier{
		ID:                t.ID,
		MinAmount:         t.MinAmount,
		MaxAmount:         t.MaxAmount,
		InitialAllocation: t.InitialAllocation,
		RemainingTokens:   t.RemainingTokens,
		TotalSold:         t.TotalSold,
		TotalDeposited:    t.TotalDeposited,
		SaleStartAt:       t.SaleStartAt,
		SaleEndType:       t.SaleEndType.String(),
		SaleEndDuration:   int64(t.SaleEndDuration / time.Second),
		SaleEndAt:         endAt,
		UnlockBP:          t.UnlockBP,
		VestCliff:         int64(t.VestCliff / time.Second),
		VestDuration:      int64(t.VestDuration / time.Second),
		DepositRate:       t.DepositRate,
		DepositAsset:      t.DepositAsset,
		DepositAddress:    t.DepositAddress,
		VerificationType:  t.VerificationType.String(),
		TransferType:      t.TransferType.String(),
		SaleType:          t.SaleType.String(),
		Closed:            t.Closed,
		Withdrawn:         t.Withdrawn,
		ParticipantCount:  t.ParticipantCount,
		Open:              t.OpenAt(at),
		Ended:             t.EndedAt(at),
	}
}

type getTiersResult struct {
	List []tier `json:"list"`
}

type getTiersResponse = HttpResponse[getTiersResult]

func (h *HttpHandler) GetTiers(ctx *fiber.Ctx) error {
	tiers, err := h.saleDg.GetTiers(ctx.UserContext())
	if err != nil {
		return errors.Wrap(err, "error during GetTiers")
	}

	now := time.Now()
	resp := getTiersResponse{
		Result: &getTiersResult{
			List: lo.Map(tiers, func(t entity.Tier, _ int) tier { return tierFromEntity(t, now) }),
		},
	}
	return errors.WithStack(ctx.JSON(resp))
}

type getTierRequest struct {
	TierID uint64 `params:"tierId"`
}

type getTierResponse = HttpResponse[tier]

func (h *HttpHandler) GetTier(ctx *fiber.Ctx) error {
	var req getTierRequest
	if err := ctx.ParamsParser(&req); err != nil {
		return errors.WithStack(err)
	}

	t, err := h.saleDg.GetTier(ctx.UserContext(), req.TierID)
	if err != nil {
		return errors.Wrap(err, "error during GetTier")
	}
	if t == nil {
		return errs.NewPublicError("Tier not found.")
	}

	resp := getTierResponse{Result: lo.ToPtr(tierFromEntity(*t, time.Now()))}
	return errors.WithStack(ctx.JSON(resp))
}
