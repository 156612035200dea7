package handlers

import (
	"errors"
	"strings"

	"libfraga/internal/adapters/persistence/models"
	"libfraga/internal/adapters/persistence/repositories"
	"libfraga/internal/core/services"
	"libfraga/internal/pkg/pagination"
	"libfraga/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// LoanHandler handles loan lifecycle endpoints
type LoanHandler struct {
	loanService *services.LoanService
	loanRepo    *repositories.LoanRepository
}

// NewLoanHandler creates a new loan handler
func NewLoanHandler(loanService *services.LoanService, loanRepo *repositories.LoanRepository) *LoanHandler {
	return &LoanHandler{
		loanService: loanService,
		loanRepo:    loanRepo,
	}
}

// CheckoutRequest represents checkout request body
type CheckoutRequest struct {
	BookID uint `json:"book_id"`
	UserID uint `json:"user_id"`
}

// Checkout handles book checkout
// @Summary Check out a book
// @Description Lend one copy to a user. Fails when no copy is available or the borrower has overdue loans.
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CheckoutRequest true "Checkout data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /loans [post]
func (h *LoanHandler) Checkout(c *fiber.Ctx) error {
	var req CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.BookID == 0 {
		return response.BadRequest(c, "Book ID is required")
	}
	if req.UserID == 0 {
		return response.BadRequest(c, "User ID is required")
	}

	loan, err := h.loanService.Checkout(c.Context(), req.BookID, req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBookNotFound):
			return response.NotFound(c, "Book not found")
		case errors.Is(err, services.ErrUserNotFoundLoan):
			return response.NotFound(c, "User not found")
		case errors.Is(err, services.ErrNoCopiesAvailable):
			return response.Conflict(c, "No available copies of this book")
		case errors.Is(err, services.ErrBorrowerOverdue):
			return response.Conflict(c, "Borrower has overdue loans")
		default:
			return response.InternalServerError(c, "Failed to check out book")
		}
	}

	return response.Created(c, "Book checked out successfully", fiber.Map{
		"loan": loan.ToResponse(),
	})
}

// Return handles book return
// @Summary Return a book
// @Description Close a loan and return the copy to the pool. Late returns create a fine.
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /loans/{id}/return [post]
func (h *LoanHandler) Return(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return response.BadRequest(c, "Invalid loan ID")
	}

	loan, fine, err := h.loanService.Return(c.Context(), uint(id))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrLoanNotFound):
			return response.NotFound(c, "Loan not found")
		case errors.Is(err, services.ErrLoanAlreadyReturned):
			return response.Conflict(c, "Loan already returned")
		default:
			return response.InternalServerError(c, "Failed to return book")
		}
	}

	data := fiber.Map{
		"loan": loan.ToResponse(),
	}
	if fine != nil {
		data["fine"] = fine
	}

	return response.Success(c, "Book returned successfully", data)
}

// List handles loan listing
// @Summary List loans
// @Description List loans with pagination and optional status filter
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Param status query string false "Filter by status (ACTIVE, RETURNED, OVERDUE)"
// @Success 200 {object} response.Response
// @Router /loans [get]
func (h *LoanHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)
	status := strings.ToUpper(strings.TrimSpace(c.Query("status")))

	switch status {
	case "", models.LoanStatusActive, models.LoanStatusReturned, "OVERDUE":
	default:
		return response.BadRequest(c, "Invalid status filter")
	}

	loans, total, err := h.loanRepo.List(c.Context(), status, params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list loans")
	}

	items := make([]*models.LoanResponse, 0, len(loans))
	for _, loan := range loans {
		items = append(items, loan.ToResponse())
	}

	return response.Success(c, "Loans retrieved successfully", pagination.NewResponse(items, params, total))
}

// Get handles single loan retrieval
// @Summary Get loan
// @Description Get one loan by ID with book, borrower and fine
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /loans/{id} [get]
func (h *LoanHandler) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return response.BadRequest(c, "Invalid loan ID")
	}

	loan, err := h.loanRepo.GetByID(c.Context(), uint(id))
	if err != nil {
		return response.NotFound(c, "Loan not found")
	}

	return response.Success(c, "Loan retrieved successfully", fiber.Map{
		"loan": loan.ToResponse(),
	})
}

// MyLoans handles the borrower's own loan history
// @Summary My loans
// @Description List the authenticated user's loan history, newest first
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /loans/my [get]
func (h *LoanHandler) MyLoans(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	loans, err := h.loanRepo.ListByUser(c.Context(), userID)
	if err != nil {
		return response.InternalServerError(c, "Failed to list loans")
	}

	items := make([]*models.LoanResponse, 0, len(loans))
	for _, loan := range loans {
		items = append(items, loan.ToResponse())
	}

	return response.Success(c, "Loans retrieved successfully", fiber.Map{
		"loans": items,
	})
}

// ListFines handles fine listing
// @Summary List fines
// @Description List fines with pagination and optional paid filter
// @Tags Fines
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Param paid query bool false "Filter by paid flag"
// @Success 200 {object} response.Response
// @Router /fines [get]
func (h *LoanHandler) ListFines(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	var paid *bool
	if raw := c.Query("paid"); raw != "" {
		value := raw == "true" || raw == "1"
		paid = &value
	}

	fines, total, err := h.loanRepo.ListFines(c.Context(), paid, params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list fines")
	}

	return response.Success(c, "Fines retrieved successfully", pagination.NewResponse(fines, params, total))
}

// PayFine handles fine payment
// @Summary Pay fine
// @Description Mark a fine as paid, exactly once
// @Tags Fines
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Fine ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /fines/{id}/pay [post]
func (h *LoanHandler) PayFine(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return response.BadRequest(c, "Invalid fine ID")
	}

	fine, err := h.loanService.PayFine(c.Context(), uint(id))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrFineNotFound):
			return response.NotFound(c, "Fine not found")
		case errors.Is(err, services.ErrFineAlreadyPaid):
			return response.Conflict(c, "Fine already paid")
		default:
			return response.InternalServerError(c, "Failed to pay fine")
		}
	}

	return response.Success(c, "Fine paid successfully", fiber.Map{
		"fine": fine,
	})
}
