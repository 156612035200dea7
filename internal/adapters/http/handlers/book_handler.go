package handlers

import (
	"errors"
	"strings"

	"libfraga/internal/core/services"
	"libfraga/internal/pkg/response"
	"libfraga/internal/pkg/validate"

	"github.com/gofiber/fiber/v2"
)

// BookHandler handles catalog endpoints
type BookHandler struct {
	bookService *services.BookService
}

// NewBookHandler creates a new book handler
func NewBookHandler(bookService *services.BookService) *BookHandler {
	return &BookHandler{bookService: bookService}
}

// Create handles book creation
// @Summary Add book to catalog
// @Description Catalog a new book. A missing or invalid ISBN is replaced with a generated one.
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CreateBookInput true "Book data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /books [post]
func (h *BookHandler) Create(c *fiber.Ctx) error {
	var input services.CreateBookInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	input.Title = strings.TrimSpace(input.Title)
	input.Author = strings.TrimSpace(input.Author)
	input.ISBN = strings.TrimSpace(input.ISBN)

	if err := validate.Struct(&input); err != nil {
		return response.BadRequest(c, err.Error())
	}

	book, err := h.bookService.Create(c.Context(), &input)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrDuplicateISBN):
			return response.Conflict(c, "A book with this ISBN already exists")
		case errors.Is(err, services.ErrInvalidQuantity):
			return response.BadRequest(c, "Quantity cannot be negative")
		default:
			return response.InternalServerError(c, "Failed to create book")
		}
	}

	return response.Created(c, "Book created successfully", fiber.Map{
		"book": book,
	})
}

// List handles book listing
// @Summary List books
// @Description List catalog with pagination and optional title/author search
// @Tags Books
// @Accept json
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Param search query string false "Title or author search"
// @Success 200 {object} response.Response
// @Router /books [get]
func (h *BookHandler) List(c *fiber.Ctx) error {
	input := &services.ListBooksInput{
		Page:   c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", 20),
		Search: strings.TrimSpace(c.Query("search")),
	}

	out, err := h.bookService.List(c.Context(), input)
	if err != nil {
		return response.InternalServerError(c, "Failed to list books")
	}

	return response.Success(c, "Books retrieved successfully", out)
}

// Get handles single book retrieval
// @Summary Get book
// @Description Get one book by ID
// @Tags Books
// @Accept json
// @Produce json
// @Param id path int true "Book ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /books/{id} [get]
func (h *BookHandler) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return response.BadRequest(c, "Invalid book ID")
	}

	book, err := h.bookService.GetByID(c.Context(), uint(id))
	if err != nil {
		if errors.Is(err, services.ErrBookNotFoundSvc) {
			return response.NotFound(c, "Book not found")
		}
		return response.InternalServerError(c, "Failed to get book")
	}

	return response.Success(c, "Book retrieved successfully", fiber.Map{
		"book": book,
	})
}

// Update handles book updates
// @Summary Update book
// @Description Update catalog fields. Quantity cannot drop below copies on loan.
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Param body body services.UpdateBookInput true "Fields to update"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /books/{id} [put]
func (h *BookHandler) Update(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return response.BadRequest(c, "Invalid book ID")
	}

	var input services.UpdateBookInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := validate.Struct(&input); err != nil {
		return response.BadRequest(c, err.Error())
	}

	book, err := h.bookService.Update(c.Context(), uint(id), &input)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBookNotFoundSvc):
			return response.NotFound(c, "Book not found")
		case errors.Is(err, services.ErrInvalidQuantity):
			return response.BadRequest(c, "Quantity cannot be negative")
		case errors.Is(err, services.ErrQuantityBelowLoans):
			return response.Conflict(c, "Quantity cannot drop below copies currently on loan")
		default:
			return response.InternalServerError(c, "Failed to update book")
		}
	}

	return response.Success(c, "Book updated successfully", fiber.Map{
		"book": book,
	})
}

// Delete handles book deletion
// @Summary Delete book
// @Description Remove a book from the catalog. Refused while copies are out on loan.
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /books/{id} [delete]
func (h *BookHandler) Delete(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return response.BadRequest(c, "Invalid book ID")
	}

	if err := h.bookService.Delete(c.Context(), uint(id)); err != nil {
		switch {
		case errors.Is(err, services.ErrBookNotFoundSvc):
			return response.NotFound(c, "Book not found")
		case errors.Is(err, services.ErrBookHasActiveLoans):
			return response.Conflict(c, "Book has copies out on loan")
		default:
			return response.InternalServerError(c, "Failed to delete book")
		}
	}

	return response.Success(c, "Book deleted successfully", nil)
}
