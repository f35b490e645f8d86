package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/openpayroll/batchpay/internal/chain"
	"github.com/openpayroll/batchpay/internal/domain"
)

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrEmptyBatch):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrBatchInFlight):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case chain.IsRejected(err):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	default:
		return err
	}
}
