package middleware

import (
	"context"
	"strings"

	"olivetrace/app"
	"olivetrace/pkg/httperror"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
)

// ParticipantHeader carries the caller's ledger address.
const ParticipantHeader = "X-Participant-Address"

// NewParticipantMiddleware puts the caller's address on the request context.
// When required is false a missing header is allowed, a malformed one never
// is.
func NewParticipantMiddleware(required bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := strings.TrimSpace(c.Get(ParticipantHeader))

		if raw == "" {
			if required {
				return unauthorized(c, "Participant address header is required")
			}
			return c.Next()
		}

		if !common.IsHexAddress(raw) {
			return unauthorized(c, "Participant address header is not a ledger address")
		}

		userCtx := c.UserContext()
		if userCtx == nil {
			userCtx = context.Background()
		}
		c.SetUserContext(app.WithParticipant(userCtx, common.HexToAddress(raw)))

		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx, message string) error {
	err := httperror.Unauthorized(
		"olivetrace.participant.unauthorized",
		message,
		nil,
	)

	return c.Status(err.Status).JSON(fiber.Map{
		"code":    err.Code,
		"message": err.Message,
	})
}
