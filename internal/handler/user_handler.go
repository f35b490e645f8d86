package handler

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/openpayroll/batchpay/internal/domain"
	"github.com/openpayroll/batchpay/internal/repository"
	"github.com/openpayroll/batchpay/internal/store"
)

type UserHandler struct {
	users *store.UserStore
}

func NewUserHandler(users *store.UserStore) (*UserHandler, error) {
	if users == nil {
		return nil, fmt.Errorf("user store is required")
	}
	return &UserHandler{users: users}, nil
}

func RegisterUserRoutes(router fiber.Router, users *store.UserStore) error {
	h, err := NewUserHandler(users)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Get("/users", h.ListUsers)
	v1.Post("/users", h.CreateUser)
	v1.Patch("/users/:id", h.UpdateUser)
	v1.Delete("/users/:id", h.DeleteUser)

	return nil
}

type userRequest struct {
	Name          string `json:"name"`
	Wallet        string `json:"wallet"`
	DefaultAmount string `json:"defaultAmount"`
}

type userPatchRequest struct {
	Name          *string `json:"name"`
	Wallet        *string `json:"wallet"`
	DefaultAmount *string `json:"defaultAmount"`
}

type userResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Wallet        string `json:"wallet"`
	DefaultAmount string `json:"defaultAmount,omitempty"`
}

func (h *UserHandler) ListUsers(c *fiber.Ctx) error {
	users := h.users.Items()

	responses := make([]userResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, toUserResponse(user))
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"data": responses})
}

func (h *UserHandler) CreateUser(c *fiber.Ctx) error {
	var req userRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Wallet) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name and wallet are required")
	}

	created, err := h.users.Create(c.Context(), store.CreateUserInput{
		Name:          req.Name,
		Wallet:        req.Wallet,
		DefaultAmount: req.DefaultAmount,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(toUserResponse(*created))
}

func (h *UserHandler) UpdateUser(c *fiber.Ctx) error {
	var req userPatchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	updated, err := h.users.Update(c.Context(), strings.TrimSpace(c.Params("id")), repository.UserPatch{
		Name:          req.Name,
		Wallet:        req.Wallet,
		DefaultAmount: req.DefaultAmount,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusOK).JSON(toUserResponse(*updated))
}

func (h *UserHandler) DeleteUser(c *fiber.Ctx) error {
	if err := h.users.Remove(c.Context(), strings.TrimSpace(c.Params("id"))); err != nil {
		return toHTTPError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func toUserResponse(user domain.User) userResponse {
	return userResponse{
		ID:            user.ID,
		Name:          user.Name,
		Wallet:        user.Wallet,
		DefaultAmount: user.DefaultAmount,
	}
}
