package repository

import (
	"errors"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/civicquest/civicquest-api/internal/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}

	// Enable foreign key constraints (SQLite default is off)
	db.Exec("PRAGMA foreign_keys = ON")

	err = db.AutoMigrate(
		&models.User{},
		&models.Progression{},
		&models.UserBadge{},
		&models.UnlockedIsland{},
		&models.PointLedger{},
		&models.ActivityResult{},
		&models.Visit{},
		&models.VisitRollup{},
	)
	if err != nil {
		t.Fatalf("Failed to auto-migrate tables: %v", err)
	}

	return &DB{db}
}

// createTestUser creates a user together with its progression row.
func createTestUser(t *testing.T, db *DB, username string) *models.User {
	t.Helper()

	repo := NewUserRepository(db)
	user := &models.User{Username: username, PasswordHash: "x"}
	if err := repo.Create(user); err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

func TestCreateUser_CreatesProgressionRow(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "alice")

	repo := NewProgressionRepository(db)
	prog, err := repo.GetByUserID(user.ID)
	if err != nil {
		t.Fatalf("GetByUserID failed: %v", err)
	}

	if prog.XP != 0 || prog.TotalXP != 0 || prog.Streak != 0 {
		t.Errorf("expected zeroed progression, got %+v", prog)
	}
	if prog.Level != 1 {
		t.Errorf("expected level 1, got %d", prog.Level)
	}
}

func TestGetByUserID_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProgressionRepository(db)

	_, err := repo.GetByUserID(42)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTransform_PersistsStateAndSideEffects(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "alice")
	repo := NewProgressionRepository(db)

	updated, err := repo.Transform(user.ID, func(prog *models.Progression) (*TransformResult, error) {
		prog.XP += 120
		prog.TotalXP += 120
		prog.Level = 1
		return &TransformResult{
			NewBadges: []string{"first_step"},
			Ledger:    &models.PointLedger{Amount: 120, Reason: models.LedgerActivity},
			Activity:  &models.ActivityResult{Mode: models.ModeStandard, Score: 12, TotalQuestions: 15, XPGained: 120},
		}, nil
	})
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	if updated.XP != 120 {
		t.Errorf("expected XP 120, got %d", updated.XP)
	}
	if !updated.HasBadge("first_step") {
		t.Error("expected badge in returned state")
	}

	// Reload and verify everything was committed.
	prog, err := repo.GetByUserID(user.ID)
	if err != nil {
		t.Fatalf("GetByUserID failed: %v", err)
	}
	if prog.XP != 120 || !prog.HasBadge("first_step") {
		t.Errorf("committed state mismatch: %+v", prog)
	}

	ledger, err := repo.GetLedger(user.ID, 10)
	if err != nil {
		t.Fatalf("GetLedger failed: %v", err)
	}
	if len(ledger) != 1 || ledger[0].Amount != 120 {
		t.Errorf("expected one ledger row of 120, got %+v", ledger)
	}

	var activities []models.ActivityResult
	if err := db.Where("user_id = ?", user.ID).Find(&activities).Error; err != nil {
		t.Fatalf("failed to load activities: %v", err)
	}
	if len(activities) != 1 || activities[0].XPGained != 120 {
		t.Errorf("expected one activity row, got %+v", activities)
	}
}

func TestTransform_ErrorRollsBackEverything(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "alice")
	repo := NewProgressionRepository(db)

	boom := errors.New("boom")
	_, err := repo.Transform(user.ID, func(prog *models.Progression) (*TransformResult, error) {
		prog.XP += 999
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error to surface, got %v", err)
	}

	prog, err := repo.GetByUserID(user.ID)
	if err != nil {
		t.Fatalf("GetByUserID failed: %v", err)
	}
	if prog.XP != 0 {
		t.Errorf("expected rollback, got XP %d", prog.XP)
	}
}

func TestTransform_IslandUnlock(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "alice")
	repo := NewProgressionRepository(db)

	_, err := repo.Transform(user.ID, func(prog *models.Progression) (*TransformResult, error) {
		return &TransformResult{Island: "parliament"}, nil
	})
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	prog, err := repo.GetByUserID(user.ID)
	if err != nil {
		t.Fatalf("GetByUserID failed: %v", err)
	}
	if !prog.OwnsIsland("parliament") {
		t.Error("expected island to be unlocked")
	}
}

func TestTransform_UnknownUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProgressionRepository(db)

	_, err := repo.Transform(42, func(prog *models.Progression) (*TransformResult, error) {
		return nil, nil
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTransform_DuplicateBadgeRejected(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "alice")
	repo := NewProgressionRepository(db)

	award := func() error {
		_, err := repo.Transform(user.ID, func(prog *models.Progression) (*TransformResult, error) {
			return &TransformResult{NewBadges: []string{"first_step"}}, nil
		})
		return err
	}

	if err := award(); err != nil {
		t.Fatalf("first award failed: %v", err)
	}
	if err := award(); err == nil {
		t.Error("expected unique index to reject the duplicate badge")
	}
}

func TestTopByTotalXP(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProgressionRepository(db)

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	for userID, totalXP := range map[uint]int{alice.ID: 900, bob.ID: 2400} {
		xp := totalXP
		if _, err := repo.Transform(userID, func(prog *models.Progression) (*TransformResult, error) {
			prog.TotalXP = xp
			return nil, nil
		}); err != nil {
			t.Fatalf("Transform failed: %v", err)
		}
	}

	top, err := repo.TopByTotalXP(10)
	if err != nil {
		t.Fatalf("TopByTotalXP failed: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(top))
	}
	if top[0].UserID != bob.ID || top[0].User.Username != "bob" {
		t.Errorf("expected bob first with user preloaded, got %+v", top[0])
	}
}

func TestCountActiveStreaks(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProgressionRepository(db)

	for _, u := range []struct {
		name   string
		streak int
	}{{"alice", 5}, {"bob", 1}, {"carol", 2}} {
		user := createTestUser(t, db, u.name)
		streak := u.streak
		if _, err := repo.Transform(user.ID, func(prog *models.Progression) (*TransformResult, error) {
			prog.Streak = streak
			return nil, nil
		}); err != nil {
			t.Fatalf("Transform failed: %v", err)
		}
	}

	count, err := repo.CountActiveStreaks(2)
	if err != nil {
		t.Fatalf("CountActiveStreaks failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 active streaks, got %d", count)
	}
}

func TestGetLedger_NewestFirstAndLimited(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "alice")
	repo := NewProgressionRepository(db)

	amounts := []int{10, -50, 30}
	for i, amount := range amounts {
		entry := models.PointLedger{
			UserID:    user.ID,
			Amount:    amount,
			Reason:    models.LedgerActivity,
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		}
		if err := db.Create(&entry).Error; err != nil {
			t.Fatalf("failed to seed ledger: %v", err)
		}
	}

	entries, err := repo.GetLedger(user.ID, 2)
	if err != nil {
		t.Fatalf("GetLedger failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Amount != 30 {
		t.Errorf("expected newest entry first, got %+v", entries[0])
	}
}

func TestDeleteUser_CascadesProgressionState(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "alice")
	userRepo := NewUserRepository(db)
	progRepo := NewProgressionRepository(db)

	if _, err := progRepo.Transform(user.ID, func(prog *models.Progression) (*TransformResult, error) {
		return &TransformResult{NewBadges: []string{"first_step"}, Island: "parliament"}, nil
	}); err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	if err := userRepo.Delete(user.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := progRepo.GetByUserID(user.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected progression gone, got %v", err)
	}

	var badgeCount int64
	db.Model(&models.UserBadge{}).Where("user_id = ?", user.ID).Count(&badgeCount)
	if badgeCount != 0 {
		t.Errorf("expected badges deleted, found %d", badgeCount)
	}
}
