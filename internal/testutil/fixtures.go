package testutil

import (
	"context"
	"database/sql"
	"testing"

	"docflow/internal/models"
	"docflow/internal/repository"
)

// Fixtures holds one user per role plus the reviewer pool
type Fixtures struct {
	DB        *sql.DB
	Users     *repository.UserRepository
	Admin     *models.User
	Board     *models.User
	Bank1     *models.User
	Bank2     *models.User
	Head      *models.User
	Assistant *models.User
	Lawyer    *models.User
	Employee  *models.User
	Author    *models.User
}

// SetupFixtures creates the fixture users
func SetupFixtures(t *testing.T, db *sql.DB) *Fixtures {
	t.Helper()

	f := &Fixtures{
		DB:    db,
		Users: repository.NewUserRepository(db),
	}

	f.Admin = f.CreateUser(t, "admin@bank.uz", "Admin", models.RoleAdmin, "")
	f.Board = f.CreateUser(t, "board@bank.uz", "Board", models.RoleBoshqaruv, "")
	f.Bank1 = f.CreateUser(t, "bank1@bank.uz", "Bank One", models.RoleBankApparati, "")
	f.Bank2 = f.CreateUser(t, "bank2@bank.uz", "Bank Two", models.RoleBankApparati, "")
	f.Head = f.CreateUser(t, "head@bank.uz", "Head", models.RoleTarmoq, "Moliya")
	f.Assistant = f.CreateUser(t, "assistant@bank.uz", "Assistant", models.RoleYordamchi, "")
	f.Lawyer = f.CreateUser(t, "lawyer@bank.uz", "Lawyer", models.RoleReviewer, "Yuridik Departament")
	f.Employee = f.CreateUser(t, "employee@bank.uz", "Employee", models.RoleReviewer, "Moliya")
	f.Author = f.CreateUser(t, "author@bank.uz", "Author", models.RoleReviewer, "IT")

	return f
}

// CreateUser inserts a user with the given role and optional department
func (f *Fixtures) CreateUser(t *testing.T, email, name string, role models.Role, department string) *models.User {
	t.Helper()

	user := &models.User{Email: email, Name: name, Role: role, Department: department}
	if err := f.Users.Create(context.Background(), user); err != nil {
		t.Fatalf("Failed to create user %s: %v", email, err)
	}
	return user
}

// Reviewers returns the users matched by the default reviewer criteria
func (f *Fixtures) Reviewers() []*models.User {
	return []*models.User{f.Bank1, f.Bank2, f.Lawyer}
}
