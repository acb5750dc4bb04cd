package controller

import (
	"errors"

	"ai-lifeplan-be/internal/dto"
	"ai-lifeplan-be/internal/pkg/apierr"
	"ai-lifeplan-be/internal/pkg/serverutils"
	"ai-lifeplan-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type InterviewController interface {
	RegisterRoutes(api fiber.Router, jwtMiddleware fiber.Handler)
}

type interviewController struct {
	interviewService service.IInterviewService
}

func NewInterviewController(interviewService service.IInterviewService) InterviewController {
	return &interviewController{
		interviewService: interviewService,
	}
}

func (c *interviewController) RegisterRoutes(api fiber.Router, jwtMiddleware fiber.Handler) {
	h := api.Group("/interview/v1")

	// Public endpoints
	h.Get("/phases", c.Phases)

	// Authenticated endpoints
	plans := h.Group("/plans", jwtMiddleware)
	plans.Post("/", c.CreatePlan)
	plans.Get("/:planId", c.GetPlan)
	plans.Post("/:planId/turn", c.Turn)
	plans.Post("/:planId/extract", c.Extract)
}

// Phases lists the interview phases in order
// @Summary List interview phases
// @Tags Interview
// @Produce json
// @Success 200 {object} []dto.PhaseResponse
// @Router /api/interview/v1/phases [get]
func (c *interviewController) Phases(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Phases retrieved", c.interviewService.Phases()))
}

// CreatePlan starts a new plan at the introduction phase
// @Summary Create plan
// @Tags Interview
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.CreatePlanRequest true "Plan"
// @Success 201 {object} dto.CreatePlanResponse
// @Router /api/interview/v1/plans [post]
func (c *interviewController) CreatePlan(ctx *fiber.Ctx) error {
	userId, err := userIdFrom(ctx)
	if err != nil {
		return err
	}

	var req dto.CreatePlanRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.interviewService.CreatePlan(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Plan created", res))
}

// GetPlan returns a plan with its saved hierarchy
// @Summary Get plan
// @Tags Interview
// @Security BearerAuth
// @Produce json
// @Param planId path string true "Plan ID"
// @Success 200 {object} dto.PlanDetailResponse
// @Router /api/interview/v1/plans/{planId} [get]
func (c *interviewController) GetPlan(ctx *fiber.Ctx) error {
	userId, err := userIdFrom(ctx)
	if err != nil {
		return err
	}
	planId, err := planIdFrom(ctx)
	if err != nil {
		return err
	}

	res, err := c.interviewService.GetPlan(ctx.UserContext(), userId, planId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Plan retrieved", res))
}

// Turn runs one interview turn
// @Summary Interview turn
// @Tags Interview
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param planId path string true "Plan ID"
// @Param request body dto.TurnRequest true "Turn"
// @Success 200 {object} dto.TurnResponse
// @Failure 429 {object} serverutils.BaseResponse[any]
// @Router /api/interview/v1/plans/{planId}/turn [post]
func (c *interviewController) Turn(ctx *fiber.Ctx) error {
	userId, err := userIdFrom(ctx)
	if err != nil {
		return err
	}
	planId, err := planIdFrom(ctx)
	if err != nil {
		return err
	}

	var req dto.TurnRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	req.PlanId = planId
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.interviewService.Turn(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Turn completed", res))
}

// Extract turns a finished transcript into values, goals and tasks
// @Summary Extract plan
// @Tags Interview
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param planId path string true "Plan ID"
// @Param request body dto.ExtractRequest true "Transcript"
// @Success 200 {object} dto.ExtractResponse
// @Router /api/interview/v1/plans/{planId}/extract [post]
func (c *interviewController) Extract(ctx *fiber.Ctx) error {
	userId, err := userIdFrom(ctx)
	if err != nil {
		return err
	}
	planId, err := planIdFrom(ctx)
	if err != nil {
		return err
	}

	var req dto.ExtractRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	req.PlanId = planId
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.interviewService.Extract(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Plan extracted", res))
}

func userIdFrom(ctx *fiber.Ctx) (uuid.UUID, error) {
	raw, _ := ctx.Locals("user_id").(string)
	userId, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apierr.Unauthorized("invalid_user", errors.New("token carries no valid user id"))
	}
	return userId, nil
}

func planIdFrom(ctx *fiber.Ctx) (uuid.UUID, error) {
	planId, err := uuid.Parse(ctx.Params("planId"))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Invalid plan id")
	}
	return planId, nil
}
