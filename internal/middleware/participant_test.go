package middleware

import (
	"net/http/httptest"
	"testing"

	"olivetrace/app"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(required bool) *fiber.App {
	a := fiber.New()
	a.Use(NewParticipantMiddleware(required))
	a.Get("/", func(c *fiber.Ctx) error {
		address, ok := app.ParticipantFromContext(c.UserContext())
		if !ok {
			return c.SendString("anonymous")
		}
		return c.SendString(address.Hex())
	})
	return a
}

func TestParticipantMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		required   bool
		header     string
		wantStatus int
	}{
		{"required and present", true, "0x00000000000000000000000000000000000000aa", fiber.StatusOK},
		{"required and missing", true, "", fiber.StatusUnauthorized},
		{"optional and missing", false, "", fiber.StatusOK},
		{"malformed", false, "alice", fiber.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set(ParticipantHeader, tt.header)
			}

			resp, err := newTestApp(tt.required).Test(req)

			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}
