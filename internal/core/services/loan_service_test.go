package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"libfraga/internal/adapters/persistence/models"
	"libfraga/internal/adapters/persistence/repositories"
	"libfraga/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// memLoanStore is an in-memory LoanStore. Atomic serializes callers
// with a mutex and rolls the whole state back when the callback errors,
// matching the all-or-nothing behaviour of the database transaction.
type memLoanStore struct {
	mu     sync.Mutex
	users  map[uint]models.User
	books  map[uint]models.Book
	loans  map[uint]models.Loan
	fines  map[uint]models.Fine
	nextID uint
}

func newMemLoanStore() *memLoanStore {
	return &memLoanStore{
		users:  make(map[uint]models.User),
		books:  make(map[uint]models.Book),
		loans:  make(map[uint]models.Loan),
		fines:  make(map[uint]models.Fine),
		nextID: 1,
	}
}

func (s *memLoanStore) addUser(u models.User) uint {
	u.ID = s.nextID
	s.nextID++
	s.users[u.ID] = u
	return u.ID
}

func (s *memLoanStore) addBook(b models.Book) uint {
	b.ID = s.nextID
	s.nextID++
	s.books[b.ID] = b
	return b.ID
}

func snapshot[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memLoanStore) Atomic(ctx context.Context, fn func(tx repositories.LoanStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, books := snapshot(s.users), snapshot(s.books)
	loans, fines := snapshot(s.loans), snapshot(s.fines)
	nextID := s.nextID

	err := fn(s)
	if err != nil {
		s.users, s.books = users, books
		s.loans, s.fines = loans, fines
		s.nextID = nextID
	}
	return err
}

func (s *memLoanStore) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		return &u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *memLoanStore) FindBookByID(ctx context.Context, id uint) (*models.Book, error) {
	if b, ok := s.books[id]; ok {
		return &b, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *memLoanStore) DecrementAvailable(ctx context.Context, bookID uint) (bool, error) {
	b, ok := s.books[bookID]
	if !ok || b.Available <= 0 {
		return false, nil
	}
	b.Available--
	s.books[bookID] = b
	return true, nil
}

func (s *memLoanStore) IncrementAvailable(ctx context.Context, bookID uint) error {
	b, ok := s.books[bookID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	b.Available++
	s.books[bookID] = b
	return nil
}

func (s *memLoanStore) FindLoanByID(ctx context.Context, id uint) (*models.Loan, error) {
	if l, ok := s.loans[id]; ok {
		return &l, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *memLoanStore) InsertLoan(ctx context.Context, loan *models.Loan) error {
	loan.ID = s.nextID
	s.nextID++
	s.loans[loan.ID] = *loan
	return nil
}

func (s *memLoanStore) MarkLoanReturned(ctx context.Context, loan *models.Loan) error {
	stored, ok := s.loans[loan.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.ReturnDate = loan.ReturnDate
	stored.Status = loan.Status
	s.loans[loan.ID] = stored
	return nil
}

func (s *memLoanStore) InsertFine(ctx context.Context, fine *models.Fine) error {
	fine.ID = s.nextID
	s.nextID++
	s.fines[fine.ID] = *fine
	return nil
}

func (s *memLoanStore) FindFineByID(ctx context.Context, id uint) (*models.Fine, error) {
	if f, ok := s.fines[id]; ok {
		return &f, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *memLoanStore) MarkFinePaid(ctx context.Context, fine *models.Fine) error {
	stored, ok := s.fines[fine.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.Paid = fine.Paid
	stored.PaidAt = fine.PaidAt
	s.fines[fine.ID] = stored
	return nil
}

func (s *memLoanStore) CountActiveOverdueLoans(ctx context.Context, userID uint, now time.Time) (int64, error) {
	var count int64
	for _, l := range s.loans {
		if l.UserID == userID && l.Status == models.LoanStatusActive && l.DueDate.Before(now) {
			count++
		}
	}
	return count, nil
}

// ============================================================
// Test helpers
// ============================================================

func defaultPolicy() config.LoanConfig {
	return config.LoanConfig{
		PeriodDays:            14,
		DailyFineRate:         1.00,
		BlockOverdueBorrowers: true,
	}
}

func newTestLoanService(store repositories.LoanStore, policy config.LoanConfig, now time.Time) *LoanService {
	svc := NewLoanService(store, policy)
	svc.now = func() time.Time { return now }
	return svc
}

func seedStore(t *testing.T) (*memLoanStore, uint, uint) {
	t.Helper()
	store := newMemLoanStore()
	userID := store.addUser(models.User{Name: "Ana Reyes", Email: "ana@example.edu", Role: models.RoleStudent})
	bookID := store.addBook(models.Book{Title: "Clean Code", Author: "Robert C. Martin", ISBN: "9780132350884", Quantity: 2, Available: 2})
	return store, userID, bookID
}

// ============================================================
// Checkout
// ============================================================

func TestCheckoutCreatesActiveLoanAndTakesACopy(t *testing.T) {
	store, userID, bookID := seedStore(t)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	svc := newTestLoanService(store, defaultPolicy(), now)

	loan, err := svc.Checkout(context.Background(), bookID, userID)
	require.NoError(t, err)

	assert.Equal(t, models.LoanStatusActive, loan.Status)
	assert.Equal(t, now, loan.LoanDate)
	assert.Equal(t, now.AddDate(0, 0, 14), loan.DueDate)
	assert.Nil(t, loan.ReturnDate)
	assert.Equal(t, 1, store.books[bookID].Available)
}

func TestCheckoutUnknownBook(t *testing.T) {
	store, userID, _ := seedStore(t)
	svc := newTestLoanService(store, defaultPolicy(), time.Now())

	_, err := svc.Checkout(context.Background(), 999, userID)
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestCheckoutUnknownUser(t *testing.T) {
	store, _, bookID := seedStore(t)
	svc := newTestLoanService(store, defaultPolicy(), time.Now())

	_, err := svc.Checkout(context.Background(), bookID, 999)
	assert.ErrorIs(t, err, ErrUserNotFoundLoan)
}

func TestCheckoutNoCopiesLeavesStateUntouched(t *testing.T) {
	store, userID, _ := seedStore(t)
	emptyID := store.addBook(models.Book{Title: "Refactoring", Author: "Martin Fowler", ISBN: "9780201485677", Quantity: 1, Available: 0})
	svc := newTestLoanService(store, defaultPolicy(), time.Now())

	_, err := svc.Checkout(context.Background(), emptyID, userID)
	assert.ErrorIs(t, err, ErrNoCopiesAvailable)

	assert.Equal(t, 0, store.books[emptyID].Available)
	assert.Empty(t, store.loans)
}

func TestCheckoutBlockedByOverdueLoan(t *testing.T) {
	store, userID, bookID := seedStore(t)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	store.loans[100] = models.Loan{
		ID:       100,
		BookID:   bookID,
		UserID:   userID,
		LoanDate: now.AddDate(0, 0, -30),
		DueDate:  now.AddDate(0, 0, -16),
		Status:   models.LoanStatusActive,
	}

	svc := newTestLoanService(store, defaultPolicy(), now)
	_, err := svc.Checkout(context.Background(), bookID, userID)
	assert.ErrorIs(t, err, ErrBorrowerOverdue)
	assert.Equal(t, 2, store.books[bookID].Available)
}

func TestCheckoutOverduePolicyDisabled(t *testing.T) {
	store, userID, bookID := seedStore(t)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	store.loans[100] = models.Loan{
		ID:       100,
		BookID:   bookID,
		UserID:   userID,
		LoanDate: now.AddDate(0, 0, -30),
		DueDate:  now.AddDate(0, 0, -16),
		Status:   models.LoanStatusActive,
	}

	policy := defaultPolicy()
	policy.BlockOverdueBorrowers = false
	svc := newTestLoanService(store, policy, now)

	_, err := svc.Checkout(context.Background(), bookID, userID)
	assert.NoError(t, err)
}

func TestCheckoutConcurrentLastCopy(t *testing.T) {
	store, userID, _ := seedStore(t)
	bookID := store.addBook(models.Book{Title: "The Go Programming Language", Author: "Donovan", ISBN: "9780134190440", Quantity: 1, Available: 1})
	svc := newTestLoanService(store, defaultPolicy(), time.Now())

	const attempts = 20
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Checkout(context.Background(), bookID, userID)
		}(i)
	}
	wg.Wait()

	var success, noCopies int
	for _, err := range errs {
		switch {
		case err == nil:
			success++
		case err == ErrNoCopiesAvailable:
			noCopies++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, success)
	assert.Equal(t, attempts-1, noCopies)
	assert.Equal(t, 0, store.books[bookID].Available)
}

// ============================================================
// Return
// ============================================================

func TestReturnOnTimeRestoresCopyWithoutFine(t *testing.T) {
	store, userID, bookID := seedStore(t)
	checkoutAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	svc := newTestLoanService(store, defaultPolicy(), checkoutAt)

	loan, err := svc.Checkout(context.Background(), bookID, userID)
	require.NoError(t, err)

	svc.now = func() time.Time { return checkoutAt.AddDate(0, 0, 10) }
	returned, fine, err := svc.Return(context.Background(), loan.ID)
	require.NoError(t, err)

	assert.Equal(t, models.LoanStatusReturned, returned.Status)
	require.NotNil(t, returned.ReturnDate)
	assert.Nil(t, fine)
	assert.Equal(t, 2, store.books[bookID].Available)
	assert.Empty(t, store.fines)
}

func TestReturnLateCreatesFinePerDay(t *testing.T) {
	store, userID, bookID := seedStore(t)
	checkoutAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	svc := newTestLoanService(store, defaultPolicy(), checkoutAt)

	loan, err := svc.Checkout(context.Background(), bookID, userID)
	require.NoError(t, err)

	// 14-day period, returned after 20 days: 6 days late
	svc.now = func() time.Time { return checkoutAt.AddDate(0, 0, 20) }
	_, fine, err := svc.Return(context.Background(), loan.ID)
	require.NoError(t, err)

	require.NotNil(t, fine)
	assert.Equal(t, 6.00, fine.Amount)
	assert.Equal(t, loan.ID, fine.LoanID)
	assert.Equal(t, userID, fine.UserID)
	assert.False(t, fine.Paid)
	assert.Equal(t, 2, store.books[bookID].Available)
}

func TestReturnPartialDayRoundsUp(t *testing.T) {
	store, userID, bookID := seedStore(t)
	checkoutAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	svc := newTestLoanService(store, defaultPolicy(), checkoutAt)

	loan, err := svc.Checkout(context.Background(), bookID, userID)
	require.NoError(t, err)

	// one hour past due still counts as a full day
	svc.now = func() time.Time { return loan.DueDate.Add(time.Hour) }
	_, fine, err := svc.Return(context.Background(), loan.ID)
	require.NoError(t, err)

	require.NotNil(t, fine)
	assert.Equal(t, 1.00, fine.Amount)
}

func TestReturnTwice(t *testing.T) {
	store, userID, bookID := seedStore(t)
	svc := newTestLoanService(store, defaultPolicy(), time.Now())

	loan, err := svc.Checkout(context.Background(), bookID, userID)
	require.NoError(t, err)

	_, _, err = svc.Return(context.Background(), loan.ID)
	require.NoError(t, err)

	_, _, err = svc.Return(context.Background(), loan.ID)
	assert.ErrorIs(t, err, ErrLoanAlreadyReturned)

	// the double return must not hand back a second copy
	assert.Equal(t, 2, store.books[bookID].Available)
}

func TestReturnUnknownLoan(t *testing.T) {
	store, _, _ := seedStore(t)
	svc := newTestLoanService(store, defaultPolicy(), time.Now())

	_, _, err := svc.Return(context.Background(), 999)
	assert.ErrorIs(t, err, ErrLoanNotFound)
}

// ============================================================
// Fines
// ============================================================

func TestPayFineOnce(t *testing.T) {
	store, userID, bookID := seedStore(t)
	checkoutAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	svc := newTestLoanService(store, defaultPolicy(), checkoutAt)

	loan, err := svc.Checkout(context.Background(), bookID, userID)
	require.NoError(t, err)

	svc.now = func() time.Time { return checkoutAt.AddDate(0, 0, 20) }
	_, fine, err := svc.Return(context.Background(), loan.ID)
	require.NoError(t, err)
	require.NotNil(t, fine)

	paid, err := svc.PayFine(context.Background(), fine.ID)
	require.NoError(t, err)
	assert.True(t, paid.Paid)
	require.NotNil(t, paid.PaidAt)
	assert.Equal(t, fine.Amount, paid.Amount)

	_, err = svc.PayFine(context.Background(), fine.ID)
	assert.ErrorIs(t, err, ErrFineAlreadyPaid)
}

func TestPayFineUnknown(t *testing.T) {
	store, _, _ := seedStore(t)
	svc := newTestLoanService(store, defaultPolicy(), time.Now())

	_, err := svc.PayFine(context.Background(), 999)
	assert.ErrorIs(t, err, ErrFineNotFound)
}

// ============================================================
// Overdue accounting
// ============================================================

func TestCountOverdueIgnoresReturnedLoans(t *testing.T) {
	store, userID, bookID := seedStore(t)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	past := now.AddDate(0, 0, -20)
	returnDate := now.AddDate(0, 0, -1)

	store.loans[1] = models.Loan{ID: 1, BookID: bookID, UserID: userID, LoanDate: past, DueDate: past.AddDate(0, 0, 14), Status: models.LoanStatusActive}
	store.loans[2] = models.Loan{ID: 2, BookID: bookID, UserID: userID, LoanDate: past, DueDate: past.AddDate(0, 0, 14), Status: models.LoanStatusReturned, ReturnDate: &returnDate}
	store.loans[3] = models.Loan{ID: 3, BookID: bookID, UserID: userID, LoanDate: now, DueDate: now.AddDate(0, 0, 14), Status: models.LoanStatusActive}

	svc := newTestLoanService(store, defaultPolicy(), now)
	count, err := svc.CountOverdue(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestDaysOverdue(t *testing.T) {
	due := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, daysOverdue(due.Add(-time.Hour), due))
	assert.Equal(t, 0, daysOverdue(due, due))
	assert.Equal(t, 1, daysOverdue(due.Add(time.Minute), due))
	assert.Equal(t, 1, daysOverdue(due.Add(24*time.Hour), due))
	assert.Equal(t, 2, daysOverdue(due.Add(25*time.Hour), due))
	assert.Equal(t, 6, daysOverdue(due.AddDate(0, 0, 6), due))
}
