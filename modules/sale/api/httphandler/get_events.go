package httphandler

import (
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/uint128"
	"github.com/gofiber/fiber/v2"
	"github.com/origins-network/sale-engine/modules/sale/datagateway"
)

type getEventsRequest struct {
	Wallet   string  `query:"wallet"`
	TierID   *uint64 `query:"tierId"`
	FromSeq  uint64  `query:"fromSeq"`
	FromTime int64   `query:"fromTime"`
	Limit    int32   `query:"limit"`
}

type event struct {
	Seq           uint64           `json:"seq"`
	Kind          string           `json:"kind"`
	TierID        *uint64          `json:"tierId,omitempty"`
	Wallet        string           `json:"wallet,omitempty"`
	DepositAmount *uint128.Uint128 `json:"depositAmount,omitempty"`
	TokenAmount   *uint128.Uint128 `json:"tokenAmount,omitempty"`
	Metadata      json.RawMessage  `json:"metadata,omitempty"`
	Timestamp     time.Time        `json:"timestamp"`
}

type getEventsResult struct {
	List []event `json:"list"`
}

type getEventsResponse = HttpResponse[getEventsResult]

func (h *HttpHandler) GetEvents(ctx *fiber.Ctx) error {
	var req getEventsRequest
	if err := ctx.QueryParser(&req); err != nil {
		return errors.WithStack(err)
	}

	var fromTime time.Time
	if req.FromTime > 0 {
		fromTime = time.Unix(req.FromTime, 0)
	}

	events, err := h.saleDg.GetEvents(ctx.UserContext(), datagateway.GetEventsParams{
		Wallet:   req.Wallet,
		TierID:   req.TierID,
		FromSeq:  req.FromSeq,
		FromTime: fromTime,
		Limit:    req.Limit,
	})
	if err != nil {
		return errors.Wrap(err, "error during GetEvents")
	}

	responses := make([]event, len(events))
	for i, e := range events {
		responses[i] = event{
			Seq:           e.Seq,
			Kind:          e.Kind,
			TierID:        e.TierID,
			Wallet:        e.Wallet,
			DepositAmount: e.DepositAmount,
			TokenAmount:   e.TokenAmount,
			Metadata:      json.RawMessage(e.Metadata),
			Timestamp:     e.Timestamp,
		}
	}

	resp := getEventsResponse{Result: &getEventsResult{List: responses}}
	return errors.WithStack(ctx.JSON(resp))
}

type getStatsResult struct {
	TotalWallets uint64 `json:"totalWallets"`
	TotalTiers   int    `json:"totalTiers"`
}

type getStatsResponse = HttpResponse[getStatsResult]

func (h *HttpHandler) GetStats(ctx *fiber.Ctx) error {
	stats, err := h.saleDg.GetStats(ctx.UserContext())
	if err != nil {
		return errors.Wrap(err, "error during GetStats")
	}
	tiers, err := h.saleDg.GetTiers(ctx.UserContext())
	if err != nil {
		return errors.Wrap(err, "error during GetTiers")
	}

	totalWallets := uint64(0)
	if stats != nil {
		totalWallets = stats.TotalWallets
	}
	resp := getStatsResponse{
		Result: &getStatsResult{
			TotalWallets: totalWallets,
			TotalTiers:   len(tiers),
		},
	}
	return errors.WithStack(ctx.JSON(resp))
}
