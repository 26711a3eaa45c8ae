package httphandler

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/origins-network/sale-engine/modules/lockedfund/internal/entity"
	"github.com/samber/lo"
)

type admin struct {
	Pubkey  string    `json:"pubkey"`
	AddedAt time.Time `json:"addedAt"`
}

type getAdminsResult struct {
	List []admin `json:"list"`
}

type getAdminsResponse = HttpResponse[getAdminsResult]

func (h *HttpHandler) GetAdmins(ctx *fiber.Ctx) error {
	admins, err := h.fundDg.GetAdmins(ctx.UserContext())
	if err != nil {
		return errors.Wrap(err, "error during GetAdmins")
	}

	resp := getAdminsResponse{
		Result: &getAdminsResult{
			List: lo.Map(admins, func(a entity.AdminEntry, _ int) admin {
				return admin{Pubkey: a.Pubkey, AddedAt: a.AddedAt}
			}),
		},
	}
	return errors.WithStack(ctx.JSON(resp))
}

type getConfigResult struct {
	VestingRegistry string     `json:"vestingRegistry,omitempty"`
	WaitedTimestamp *time.Time `json:"waitedTimestamp,omitempty"`
	UpdatedAt       *time.Time `json:"updatedAt,omitempty"`
}

type getConfigResponse = HttpResponse[getConfigResult]

func (h *HttpHandler) GetConfig(ctx *fiber.Ctx) error {
	config, err := h.fundDg.GetConfig(ctx.UserContext())
	if err != nil {
		return errors.Wrap(err, "error during GetConfig")
	}

	result := getConfigResult{}
	if config != nil {
		result.VestingRegistry = config.VestingRegistry
		if !config.WaitedTimestamp.IsZero() {
			result.WaitedTimestamp = &config.WaitedTimestamp
		}
		if !config.UpdatedAt.IsZero() {
			result.UpdatedAt = &config.UpdatedAt
		}
	}

	resp := getConfigResponse{Result: &result}
	return errors.WithStack(ctx.JSON(resp))
}
