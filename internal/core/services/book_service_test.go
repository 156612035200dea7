package services

import (
	"context"
	"sort"
	"strings"
	"testing"

	"libfraga/internal/adapters/persistence/models"
	"libfraga/internal/pkg/isbn"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// memCatalog is an in-memory BookCatalog
type memCatalog struct {
	books       map[uint]models.Book
	activeLoans map[uint]int64
	nextID      uint
}

func newMemCatalog() *memCatalog {
	return &memCatalog{
		books:       make(map[uint]models.Book),
		activeLoans: make(map[uint]int64),
		nextID:      1,
	}
}

func (c *memCatalog) Create(ctx context.Context, book *models.Book) error {
	book.ID = c.nextID
	c.nextID++
	c.books[book.ID] = *book
	return nil
}

func (c *memCatalog) GetByID(ctx context.Context, id uint) (*models.Book, error) {
	if b, ok := c.books[id]; ok {
		return &b, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (c *memCatalog) ExistsByISBN(ctx context.Context, code string) (bool, error) {
	for _, b := range c.books {
		if b.ISBN == code {
			return true, nil
		}
	}
	return false, nil
}

func (c *memCatalog) List(ctx context.Context, search string, offset, limit int) ([]*models.Book, int64, error) {
	var matched []models.Book
	for _, b := range c.books {
		if search == "" ||
			strings.Contains(strings.ToLower(b.Title), strings.ToLower(search)) ||
			strings.Contains(strings.ToLower(b.Author), strings.ToLower(search)) {
			matched = append(matched, b)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Title < matched[j].Title })

	total := int64(len(matched))
	if offset > len(matched) {
		offset = len(matched)
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}

	out := make([]*models.Book, 0, end-offset)
	for i := offset; i < end; i++ {
		b := matched[i]
		out = append(out, &b)
	}
	return out, total, nil
}

func (c *memCatalog) Update(ctx context.Context, book *models.Book) error {
	if _, ok := c.books[book.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	c.books[book.ID] = *book
	return nil
}

func (c *memCatalog) Delete(ctx context.Context, id uint) error {
	delete(c.books, id)
	return nil
}

func (c *memCatalog) CountActiveLoans(ctx context.Context, bookID uint) (int64, error) {
	return c.activeLoans[bookID], nil
}

// ============================================================
// Create
// ============================================================

func TestCreateBookWithValidISBN(t *testing.T) {
	catalog := newMemCatalog()
	svc := NewBookService(catalog)

	book, err := svc.Create(context.Background(), &CreateBookInput{
		Title:    "Clean Code",
		Author:   "Robert C. Martin",
		ISBN:     "978-0-13-235088-4",
		Quantity: 3,
	})
	require.NoError(t, err)

	assert.Equal(t, "978-0-13-235088-4", book.ISBN)
	assert.Equal(t, 3, book.Quantity)
	assert.Equal(t, 3, book.Available)
}

func TestCreateBookGeneratesISBNWhenMissing(t *testing.T) {
	catalog := newMemCatalog()
	svc := NewBookService(catalog)

	book, err := svc.Create(context.Background(), &CreateBookInput{
		Title:    "Untracked Donation",
		Author:   "Unknown",
		Quantity: 1,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, book.ISBN)
	assert.True(t, isbn.IsValid(book.ISBN))
	assert.True(t, strings.HasPrefix(book.ISBN, "978-"))
}

func TestCreateBookReplacesInvalidISBN(t *testing.T) {
	catalog := newMemCatalog()
	svc := NewBookService(catalog)

	book, err := svc.Create(context.Background(), &CreateBookInput{
		Title:    "Torn Cover",
		Author:   "Unknown",
		ISBN:     "978-0-00-000000-1",
		Quantity: 1,
	})
	require.NoError(t, err)

	assert.NotEqual(t, "978-0-00-000000-1", book.ISBN)
	assert.True(t, isbn.IsValid(book.ISBN))
}

func TestCreateBookDuplicateISBN(t *testing.T) {
	catalog := newMemCatalog()
	svc := NewBookService(catalog)

	_, err := svc.Create(context.Background(), &CreateBookInput{
		Title: "Clean Code", Author: "Robert C. Martin", ISBN: "9780132350884", Quantity: 3,
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), &CreateBookInput{
		Title: "Clean Code (2nd copy batch)", Author: "Robert C. Martin", ISBN: "9780132350884", Quantity: 2,
	})
	assert.ErrorIs(t, err, ErrDuplicateISBN)
}

// ============================================================
// Update
// ============================================================

func TestUpdateBookQuantityAdjustsAvailable(t *testing.T) {
	catalog := newMemCatalog()
	svc := NewBookService(catalog)

	book, err := svc.Create(context.Background(), &CreateBookInput{
		Title: "Refactoring", Author: "Martin Fowler", ISBN: "9780201485677", Quantity: 5,
	})
	require.NoError(t, err)

	// 2 copies out on loan
	catalog.activeLoans[book.ID] = 2
	b := catalog.books[book.ID]
	b.Available = 3
	catalog.books[book.ID] = b

	newQty := 4
	updated, err := svc.Update(context.Background(), book.ID, &UpdateBookInput{Quantity: &newQty})
	require.NoError(t, err)

	assert.Equal(t, 4, updated.Quantity)
	assert.Equal(t, 2, updated.Available)
}

func TestUpdateBookQuantityBelowActiveLoans(t *testing.T) {
	catalog := newMemCatalog()
	svc := NewBookService(catalog)

	book, err := svc.Create(context.Background(), &CreateBookInput{
		Title: "Refactoring", Author: "Martin Fowler", ISBN: "9780201485677", Quantity: 5,
	})
	require.NoError(t, err)

	catalog.activeLoans[book.ID] = 3

	newQty := 2
	_, err = svc.Update(context.Background(), book.ID, &UpdateBookInput{Quantity: &newQty})
	assert.ErrorIs(t, err, ErrQuantityBelowLoans)
}

func TestUpdateBookTitleOnly(t *testing.T) {
	catalog := newMemCatalog()
	svc := NewBookService(catalog)

	book, err := svc.Create(context.Background(), &CreateBookInput{
		Title: "Refactorng", Author: "Martin Fowler", ISBN: "9780201485677", Quantity: 5,
	})
	require.NoError(t, err)

	title := "Refactoring"
	updated, err := svc.Update(context.Background(), book.ID, &UpdateBookInput{Title: &title})
	require.NoError(t, err)

	assert.Equal(t, "Refactoring", updated.Title)
	assert.Equal(t, 5, updated.Quantity)
	assert.Equal(t, 5, updated.Available)
}

func TestUpdateBookNotFound(t *testing.T) {
	svc := NewBookService(newMemCatalog())

	title := "Anything"
	_, err := svc.Update(context.Background(), 999, &UpdateBookInput{Title: &title})
	assert.ErrorIs(t, err, ErrBookNotFoundSvc)
}

// ============================================================
// Delete
// ============================================================

func TestDeleteBookWithActiveLoans(t *testing.T) {
	catalog := newMemCatalog()
	svc := NewBookService(catalog)

	book, err := svc.Create(context.Background(), &CreateBookInput{
		Title: "Design Patterns", Author: "Gamma et al.", ISBN: "9780201633610", Quantity: 2,
	})
	require.NoError(t, err)

	catalog.activeLoans[book.ID] = 1
	err = svc.Delete(context.Background(), book.ID)
	assert.ErrorIs(t, err, ErrBookHasActiveLoans)

	catalog.activeLoans[book.ID] = 0
	err = svc.Delete(context.Background(), book.ID)
	assert.NoError(t, err)

	_, err = svc.GetByID(context.Background(), book.ID)
	assert.ErrorIs(t, err, ErrBookNotFoundSvc)
}

// ============================================================
// List
// ============================================================

func TestListBooksSearchAndPagination(t *testing.T) {
	catalog := newMemCatalog()
	svc := NewBookService(catalog)

	titles := []string{"Clean Code", "Clean Architecture", "Design Patterns"}
	isbns := []string{"9780132350884", "9780134494166", "9780201633610"}
	for i, title := range titles {
		_, err := svc.Create(context.Background(), &CreateBookInput{
			Title: title, Author: "Author", ISBN: isbns[i], Quantity: 1,
		})
		require.NoError(t, err)
	}

	out, err := svc.List(context.Background(), &ListBooksInput{Search: "clean", Page: 1, Limit: 1})
	require.NoError(t, err)

	assert.Equal(t, int64(2), out.Total)
	assert.Equal(t, 2, out.TotalPages)
	require.Len(t, out.Books, 1)
	assert.Equal(t, "Clean Architecture", out.Books[0].Title)
}
