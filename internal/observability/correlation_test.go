package observability

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func newCorrelationApp() *fiber.App {
	app := fiber.New()
	app.Use(CorrelationMiddleware())
	app.Get("/", func(c *fiber.Ctx) error {
		correlationID, ok := CorrelationIDFromContext(c.Context())
		if !ok {
			return fiber.ErrInternalServerError
		}
		return c.SendString(correlationID)
	})
	return app
}

func TestCorrelationMiddleware_HonorsCallerID(t *testing.T) {
	t.Parallel()

	app := newCorrelationApp()

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(CorrelationHeader, "cid-from-caller")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if string(body) != "cid-from-caller" {
		t.Fatalf("handler saw correlation id %q, want %q", body, "cid-from-caller")
	}
	if got := resp.Header.Get(CorrelationHeader); got != "cid-from-caller" {
		t.Fatalf("response header=%q, want the caller's id echoed", got)
	}
}

func TestCorrelationMiddleware_GeneratesID(t *testing.T) {
	t.Parallel()

	app := newCorrelationApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if _, err := uuid.Parse(string(body)); err != nil {
		t.Fatalf("generated id %q is not a uuid: %v", body, err)
	}
	if got := resp.Header.Get(CorrelationHeader); got != string(body) {
		t.Fatalf("response header=%q, want the generated id %q", got, body)
	}
}
