package serverutils

import (
	"errors"
	"strconv"

	"ai-lifeplan-be/internal/pkg/apierr"
	"ai-lifeplan-be/internal/pkg/logger"
	"ai-lifeplan-be/pkg/interview"

	"github.com/gofiber/fiber/v2"
)

const (
	msgInternal    = "Internal server error"
	msgTryAgain    = "The assistant is busy right now, please try again shortly"
	msgRateLimited = "Too many requests, please try again shortly"
	msgExtraction  = "Could not build a plan from this conversation, please try again"
)

// ErrorHandlerMiddleware turns errors returned by handlers into the response
// envelope with the matching status. Internal details only reach the log.
func ErrorHandlerMiddleware(log logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		return WriteError(ctx, log, err)
	}
}

// WriteError answers ctx according to the kind of err.
func WriteError(ctx *fiber.Ctx, log logger.ILogger, err error) error {
	var (
		reqErr   *RequestValidationError
		valErr   *interview.ValidationError
		rateErr  *interview.RateLimitedError
		upErr    *interview.UpstreamError
		extErr   *interview.ExtractionFailedError
		apiErr   *apierr.Error
		fiberErr *fiber.Error
	)

	switch {
	case errors.As(err, &reqErr):
		return ctx.Status(fiber.StatusBadRequest).JSON(ErrorResponseWithData(fiber.StatusBadRequest, reqErr.Error(), reqErr.Fields))

	case errors.As(err, &valErr):
		return ctx.Status(fiber.StatusBadRequest).JSON(ErrorResponse(fiber.StatusBadRequest, valErr.Error()))

	case errors.As(err, &rateErr):
		seconds := rateErr.ResetInSeconds()
		ctx.Set(fiber.HeaderRetryAfter, strconv.Itoa(seconds))
		return ctx.Status(fiber.StatusTooManyRequests).JSON(ErrorResponseWithData(fiber.StatusTooManyRequests, msgRateLimited, fiber.Map{
			"limit":               rateErr.Limit,
			"retry_after_seconds": seconds,
		}))

	case errors.As(err, &upErr):
		if upErr.Retryable() {
			logError(ctx, log, err, false)
			return ctx.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse(fiber.StatusServiceUnavailable, msgTryAgain))
		}
		logError(ctx, log, err, true)
		return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(fiber.StatusInternalServerError, msgInternal))

	case errors.As(err, &extErr):
		logError(ctx, log, err, false)
		return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(fiber.StatusInternalServerError, msgExtraction))

	case errors.As(err, &apiErr):
		if apiErr.Status >= fiber.StatusInternalServerError {
			logError(ctx, log, err, false)
			return ctx.Status(apiErr.Status).JSON(ErrorResponse(apiErr.Status, msgInternal))
		}
		return ctx.Status(apiErr.Status).JSON(ErrorResponse(apiErr.Status, apiErr.Error()))

	case errors.As(err, &fiberErr):
		return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Code, fiberErr.Message))

	default:
		logError(ctx, log, err, false)
		return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(fiber.StatusInternalServerError, msgInternal))
	}
}

func logError(ctx *fiber.Ctx, log logger.ILogger, err error, alert bool) {
	if log == nil {
		return
	}
	details := map[string]interface{}{
		"method": ctx.Method(),
		"path":   ctx.Path(),
		"error":  err.Error(),
	}
	if userId, ok := ctx.Locals("user_id").(string); ok {
		details["user_id"] = userId
	}
	if alert {
		details["alert"] = true
	}
	log.Error("HTTP", "Request failed", details)
}
