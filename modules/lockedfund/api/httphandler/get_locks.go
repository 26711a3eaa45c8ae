package httphandler

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/uint128"
	"github.com/gofiber/fiber/v2"
	"github.com/origins-network/sale-engine/common/errs"
)

type getLocksRequest struct {
	Beneficiary string `query:"beneficiary"`
}

type lock struct {
	ID           uint64          `json:"id"`
	Beneficiary  string          `json:"beneficiary"`
	Kind         string          `json:"kind"`
	Principal    uint128.Uint128 `json:"principal"`
	Withdrawn    uint128.Uint128 `json:"withdrawn"`
	Released     uint128.Uint128 `json:"released"`
	Withdrawable uint128.Uint128 `json:"withdrawable"`
	UnlockBP     uint16          `json:"unlockBasisPoints"`
	Cliff        int64           `json:"cliffSeconds,omitempty"`
	Duration     int64           `json:"durationSeconds,omitempty"`
	StartAt      time.Time       `json:"startAt"`
	SourceRef    string          `json:"sourceRef,omitempty"`
}

type getLocksResult struct {
	Beneficiary string          `json:"beneficiary"`
	List        []lock          `json:"list"`
	Total       uint128.Uint128 `json:"totalWithdrawable"`
}

type getLocksResponse = HttpResponse[getLocksResult]

func (h *HttpHandler) GetLocks(ctx *fiber.Ctx) error {
	var req getLocksRequest
	if err := ctx.QueryParser(&req); err != nil {
		return errors.WithStack(err)
	}
	if req.Beneficiary == "" {
		return errs.NewPublicError("'beneficiary' is required")
	}

	config, err := h.fundDg.GetConfig(ctx.UserContext())
	if err != nil {
		return errors.Wrap(err, "error during GetConfig")
	}
	var waitedAt time.Time
	if config != nil {
		waitedAt = config.WaitedTimestamp
	}

	records, err := h.fundDg.GetLocksByBeneficiary(ctx.UserContext(), req.Beneficiary)
	if err != nil {
		return errors.Wrap(err, "error during GetLocksByBeneficiary")
	}

	now := time.Now()
	total := uint128.Zero
	list := make([]lock, len(records))
	for i, r := range records {
		withdrawable := r.Withdrawable(now, waitedAt)
		total = total.Add(withdrawable)
		list[i] = lock{
			ID:           r.ID,
			Beneficiary:  r.Beneficiary,
			Kind:         r.Kind.String(),
			Principal:    r.Principal,
			Withdrawn:    r.Withdrawn,
			Released:     r.Released(now, waitedAt),
			Withdrawable: withdrawable,
			UnlockBP:     r.UnlockBP,
			Cliff:        int64(r.Cliff / time.Second),
			Duration:     int64(r.Duration / time.Second),
			StartAt:      r.StartAt,
			SourceRef:    r.SourceRef,
		}
	}

	resp := getLocksResponse{
		Result: &getLocksResult{
			Beneficiary: req.Beneficiary,
			List:        list,
			Total:       total,
		},
	}
	return errors.WithStack(ctx.JSON(resp))
}
