package config

import (
	"log"

	"libfraga/internal/adapters/persistence/models"
	"libfraga/internal/pkg/password"

	"gorm.io/gorm"
)

// Seeder handles database seeding
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// Run executes all seeders
func (s *Seeder) Run() error {
	log.Println("🌱 Running database seeders...")

	if err := s.seedUsers(); err != nil {
		log.Printf("⚠️ User seeder skipped: %v", err)
	}
	if err := s.seedBooks(); err != nil {
		log.Printf("⚠️ Book seeder skipped: %v", err)
	}

	log.Println("✅ Database seeding completed")
	return nil
}

// seedUsers seeds one account per role.
// Development/testing only; in production, create users through the
// admin registration endpoint.
func (s *Seeder) seedUsers() error {
	var count int64
	s.db.Model(&models.User{}).Count(&count)
	if count > 0 {
		return nil // already seeded
	}

	hashedPassword, err := password.Hash("libfraga123")
	if err != nil {
		return err
	}

	users := []models.User{
		{Name: "Administrador", Email: "admin@libfraga.edu", Password: hashedPassword, Role: models.RoleAdmin, IsActive: true},
		{Name: "Bibliotecário", Email: "librarian@libfraga.edu", Password: hashedPassword, Role: models.RoleLibrarian, IsActive: true},
		{Name: "Aluno Teste", Email: "student@libfraga.edu", Password: hashedPassword, Role: models.RoleStudent, IsActive: true},
	}

	for i := range users {
		if err := s.db.Create(&users[i]).Error; err != nil {
			return err
		}
	}

	log.Printf("✅ Seeded %d users (default password: libfraga123)", len(users))
	return nil
}

// seedBooks seeds a starter catalog. Available always starts at Quantity.
func (s *Seeder) seedBooks() error {
	var count int64
	s.db.Model(&models.Book{}).Count(&count)
	if count > 0 {
		return nil
	}

	books := []models.Book{
		{Title: "Clean Code", Author: "Robert C. Martin", ISBN: "9780132350884", Quantity: 3},
		{Title: "Design Patterns", Author: "Gamma, Helm, Johnson, Vlissides", ISBN: "9780201633610", Quantity: 2},
		{Title: "Refactoring", Author: "Martin Fowler", ISBN: "9780201485677", Quantity: 2},
	}

	for i := range books {
		books[i].Available = books[i].Quantity
		if err := s.db.Create(&books[i]).Error; err != nil {
			return err
		}
	}

	log.Printf("✅ Seeded %d books", len(books))
	return nil
}
