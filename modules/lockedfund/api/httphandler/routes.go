package httphandler

import (
	"github.com/gofiber/fiber/v2"
)

func (h *HttpHandler) Mount(router fiber.Router) error {
	r := router.Group("/lockedfund/v1")

	// signed operations, applied through the ordered log
	r.Post("/admins", h.SubmitAddAdmin)
	r.Post("/admins/remove", h.SubmitRemoveAdmin)
	r.Post("/config/vesting-registry", h.SubmitChangeVestingRegistry)
	r.Post("/config/waited-timestamp", h.SubmitChangeWaitedTimestamp)
	r.Post("/deposits/waited", h.SubmitDepositWaitedUnlocked)
	r.Post("/deposits/vested", h.SubmitDepositVested)
	r.Post("/withdraw", h.SubmitWithdraw)

	// queries
	r.Get("/locks", h.GetLocks)
	r.Get("/admins", h.GetAdmins)
	r.Get("/config", h.GetConfig)

	return nil
}
