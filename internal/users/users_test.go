package users

import (
	"errors"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/omlean/opboard/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewStore(db)
}

func TestEnsureDefaultAdmin(t *testing.T) {
	s := openTestStore(t)

	created, err := s.EnsureDefaultAdmin()
	if err != nil {
		t.Fatalf("EnsureDefaultAdmin: %v", err)
	}
	if !created {
		t.Error("first call should seed the admin account")
	}

	admin, err := s.Verify("admin", "admin123")
	if err != nil {
		t.Fatalf("Verify default admin: %v", err)
	}
	if admin.Role != models.RoleAdministrator {
		t.Errorf("admin role = %q, want administrator", admin.Role)
	}

	created, err = s.EnsureDefaultAdmin()
	if err != nil {
		t.Fatalf("second EnsureDefaultAdmin: %v", err)
	}
	if created {
		t.Error("second call must not seed again")
	}
}

func TestEnsureDefaultAdmin_SkipsWhenAccountsExist(t *testing.T) {
	s := openTestStore(t)
	if err := s.Create("jlopez", "secreto", models.RoleWorker, "Corte"); err != nil {
		t.Fatal(err)
	}

	created, err := s.EnsureDefaultAdmin()
	if err != nil {
		t.Fatalf("EnsureDefaultAdmin: %v", err)
	}
	if created {
		t.Error("must not seed admin into a non-empty table")
	}
}

func TestCreateAndVerify(t *testing.T) {
	s := openTestStore(t)

	if err := s.Create("jlopez", "secreto", models.RoleWorker, "Corte"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	account, err := s.Verify("jlopez", "secreto")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if account.Username != "jlopez" || account.Role != models.RoleWorker || account.Stage != "Corte" {
		t.Errorf("account = %+v", account)
	}
	if account.PasswordHash == "secreto" || account.PasswordHash == "" {
		t.Error("password stored without hashing")
	}
	if !strings.HasPrefix(account.PasswordHash, "$2") {
		t.Errorf("hash %q is not bcrypt", account.PasswordHash)
	}
}

func TestVerify_BadCredentials(t *testing.T) {
	s := openTestStore(t)
	if err := s.Create("jlopez", "secreto", models.RoleWorker, ""); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Verify("jlopez", "equivocada"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password = %v, want ErrInvalidCredentials", err)
	}
	if _, err := s.Verify("nadie", "secreto"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user = %v, want ErrInvalidCredentials", err)
	}
}

func TestCreate_DuplicateUsername(t *testing.T) {
	s := openTestStore(t)
	if err := s.Create("jlopez", "secreto", models.RoleWorker, ""); err != nil {
		t.Fatal(err)
	}

	if err := s.Create("jlopez", "otra", models.RolePlanner, ""); err == nil {
		t.Error("duplicate username must fail")
	}
}

func TestUpdate(t *testing.T) {
	s := openTestStore(t)
	if err := s.Create("jlopez", "secreto", models.RoleWorker, "Corte"); err != nil {
		t.Fatal(err)
	}
	accounts, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	id := accounts[0].ID

	// Role-only update keeps password and stage.
	if err := s.Update(id, "", models.RolePlanner, ""); err != nil {
		t.Fatalf("Update role: %v", err)
	}
	account, err := s.Verify("jlopez", "secreto")
	if err != nil {
		t.Fatalf("old password should still verify: %v", err)
	}
	if account.Role != models.RolePlanner {
		t.Errorf("role = %q, want planner", account.Role)
	}
	if account.Stage != "Corte" {
		t.Errorf("stage = %q, want unchanged", account.Stage)
	}

	// Password change invalidates the old one.
	if err := s.Update(id, "nueva", "", ""); err != nil {
		t.Fatalf("Update password: %v", err)
	}
	if _, err := s.Verify("jlopez", "secreto"); !errors.Is(err, ErrInvalidCredentials) {
		t.Error("old password still verifies")
	}
	if _, err := s.Verify("jlopez", "nueva"); err != nil {
		t.Errorf("new password: %v", err)
	}
}

func TestUpdate_UnknownID(t *testing.T) {
	s := openTestStore(t)
	if err := s.Update(999, "", models.RoleWorker, ""); err == nil {
		t.Error("updating a missing account must fail")
	}
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)
	if err := s.Create("jlopez", "secreto", models.RoleWorker, ""); err != nil {
		t.Fatal(err)
	}
	accounts, _ := s.List()

	if err := s.Delete(accounts[0].ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if left, _ := s.List(); len(left) != 0 {
		t.Errorf("len after delete = %d, want 0", len(left))
	}
}

func TestDelete_AdminRefused(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.EnsureDefaultAdmin(); err != nil {
		t.Fatal(err)
	}
	accounts, _ := s.List()

	err := s.Delete(accounts[0].ID)
	if err == nil {
		t.Fatal("deleting admin must fail")
	}
	if !strings.Contains(err.Error(), "admin") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestList_SortedByUsername(t *testing.T) {
	s := openTestStore(t)
	for _, u := range []string{"mgarcia", "aruiz", "jlopez"} {
		if err := s.Create(u, "x12345", models.RoleWorker, ""); err != nil {
			t.Fatal(err)
		}
	}

	accounts, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"aruiz", "jlopez", "mgarcia"}
	for i, w := range want {
		if accounts[i].Username != w {
			t.Errorf("accounts[%d] = %q, want %q", i, accounts[i].Username, w)
		}
	}
}

func TestStageAssignments(t *testing.T) {
	s := openTestStore(t)
	if err := s.Create("jlopez", "secreto", models.RoleWorker, "Corte"); err != nil {
		t.Fatal(err)
	}
	if err := s.Create("mgarcia", "secreto", models.RolePlanner, ""); err != nil {
		t.Fatal(err)
	}

	got, err := s.StageAssignments()
	if err != nil {
		t.Fatalf("StageAssignments: %v", err)
	}
	if got["jlopez"] != "Corte" {
		t.Errorf("jlopez = %q, want Corte", got["jlopez"])
	}
	if got["mgarcia"] != "" {
		t.Errorf("mgarcia = %q, want empty", got["mgarcia"])
	}
}
