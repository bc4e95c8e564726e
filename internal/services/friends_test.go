package services

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/myrealm/backend/internal/database"
	"github.com/myrealm/backend/internal/models"
	"gorm.io/gorm"
)

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}

	return db
}

func seedUser(t *testing.T, db *gorm.DB, email, displayName string) *models.User {
	t.Helper()
	user := &models.User{
		Email:        email,
		PasswordHash: "x",
		DisplayName:  displayName,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating user: %v", err)
	}
	return user
}

func TestSendRequestInvariants(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewFriendService(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice@test.com", "Alice")
	bob := seedUser(t, db, "bob@test.com", "Bob")

	t.Run("self request is rejected", func(t *testing.T) {
		if _, err := svc.SendRequest(ctx, alice, alice.ID); !errors.Is(err, ErrSelfRequest) {
			t.Fatalf("expected ErrSelfRequest, got %v", err)
		}
	})

	t.Run("names are denormalized onto the request", func(t *testing.T) {
		request, err := svc.SendRequest(ctx, alice, bob.ID)
		if err != nil {
			t.Fatalf("SendRequest failed: %v", err)
		}
		if request.SenderName != "Alice" || request.ReceiverName != "Bob" {
			t.Fatalf("expected denormalized names, got %q/%q", request.SenderName, request.ReceiverName)
		}
		if request.Status != models.RequestStatusPending {
			t.Fatalf("expected pending status, got %q", request.Status)
		}
	})

	t.Run("at most one pending per pair, either direction", func(t *testing.T) {
		if _, err := svc.SendRequest(ctx, alice, bob.ID); !errors.Is(err, ErrDuplicateRequest) {
			t.Fatalf("expected ErrDuplicateRequest, got %v", err)
		}
		if _, err := svc.SendRequest(ctx, bob, alice.ID); !errors.Is(err, ErrDuplicateRequest) {
			t.Fatalf("expected ErrDuplicateRequest in reverse, got %v", err)
		}
	})
}

func TestAcceptWritesSymmetricRows(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewFriendService(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice@test.com", "Alice")
	bob := seedUser(t, db, "bob@test.com", "Bob")

	request, err := svc.SendRequest(ctx, alice, bob.ID)
	if err != nil {
		t.Fatalf("SendRequest failed: %v", err)
	}

	if _, err := svc.RespondToRequest(ctx, bob, request.ID, models.RequestStatusAccepted); err != nil {
		t.Fatalf("RespondToRequest failed: %v", err)
	}

	for _, pair := range [][2]*models.User{{alice, bob}, {bob, alice}} {
		friends, err := svc.AreFriends(ctx, pair[0].ID, pair[1].ID)
		if err != nil {
			t.Fatalf("AreFriends failed: %v", err)
		}
		if !friends {
			t.Fatalf("expected %s and %s to be friends", pair[0].DisplayName, pair[1].DisplayName)
		}
	}

	t.Run("new request between friends is rejected", func(t *testing.T) {
		if _, err := svc.SendRequest(ctx, alice, bob.ID); !errors.Is(err, ErrAlreadyFriends) {
			t.Fatalf("expected ErrAlreadyFriends, got %v", err)
		}
	})

	t.Run("responding twice hits the closed guard", func(t *testing.T) {
		_, err := svc.RespondToRequest(ctx, bob, request.ID, models.RequestStatusAccepted)
		if !errors.Is(err, ErrRequestClosed) {
			t.Fatalf("expected ErrRequestClosed, got %v", err)
		}
	})
}

func TestDeclineLeavesNoFriendship(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewFriendService(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice@test.com", "Alice")
	bob := seedUser(t, db, "bob@test.com", "Bob")

	request, err := svc.SendRequest(ctx, alice, bob.ID)
	if err != nil {
		t.Fatalf("SendRequest failed: %v", err)
	}

	declined, err := svc.RespondToRequest(ctx, bob, request.ID, models.RequestStatusDeclined)
	if err != nil {
		t.Fatalf("RespondToRequest failed: %v", err)
	}
	if declined.Status != models.RequestStatusDeclined {
		t.Fatalf("expected declined status, got %q", declined.Status)
	}

	friends, err := svc.AreFriends(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("AreFriends failed: %v", err)
	}
	if friends {
		t.Fatalf("expected no friendship after decline")
	}

	// Terminal record does not block a fresh request.
	if _, err := svc.SendRequest(ctx, alice, bob.ID); err != nil {
		t.Fatalf("expected new request after decline, got %v", err)
	}
}

func TestRespondAuthorization(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewFriendService(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice@test.com", "Alice")
	bob := seedUser(t, db, "bob@test.com", "Bob")
	eve := seedUser(t, db, "eve@test.com", "Eve")

	request, err := svc.SendRequest(ctx, alice, bob.ID)
	if err != nil {
		t.Fatalf("SendRequest failed: %v", err)
	}

	if _, err := svc.RespondToRequest(ctx, eve, request.ID, models.RequestStatusAccepted); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized for third party, got %v", err)
	}
	if _, err := svc.RespondToRequest(ctx, alice, request.ID, models.RequestStatusAccepted); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized for sender, got %v", err)
	}
	if _, err := svc.RespondToRequest(ctx, bob, request.ID, models.RequestStatusCancelled); !errors.Is(err, ErrInvalidDecision) {
		t.Fatalf("expected ErrInvalidDecision, got %v", err)
	}
	if _, err := svc.CancelRequest(ctx, bob, request.ID); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized for receiver cancel, got %v", err)
	}
}

func TestRemoveFriendClearsBothSides(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewFriendService(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice@test.com", "Alice")
	bob := seedUser(t, db, "bob@test.com", "Bob")

	request, err := svc.SendRequest(ctx, alice, bob.ID)
	if err != nil {
		t.Fatalf("SendRequest failed: %v", err)
	}
	if _, err := svc.RespondToRequest(ctx, bob, request.ID, models.RequestStatusAccepted); err != nil {
		t.Fatalf("RespondToRequest failed: %v", err)
	}

	if err := svc.RemoveFriend(ctx, bob, alice.ID); err != nil {
		t.Fatalf("RemoveFriend failed: %v", err)
	}

	var rows int64
	db.Model(&models.Friendship{}).Count(&rows)
	if rows != 0 {
		t.Fatalf("expected both friendship rows deleted, got %d", rows)
	}

	var reloaded models.FriendRequest
	if err := db.First(&reloaded, "id = ?", request.ID).Error; err != nil {
		t.Fatalf("failed reloading request: %v", err)
	}
	if reloaded.Status != models.RequestStatusUnfriended {
		t.Fatalf("expected unfriended status, got %q", reloaded.Status)
	}

	if err := svc.RemoveFriend(ctx, bob, alice.ID); !errors.Is(err, ErrNotFriends) {
		t.Fatalf("expected ErrNotFriends on second removal, got %v", err)
	}
}

func TestRelatedUserIDs(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewFriendService(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice@test.com", "Alice")
	bob := seedUser(t, db, "bob@test.com", "Bob")
	carol := seedUser(t, db, "carol@test.com", "Carol")
	seedUser(t, db, "dave@test.com", "Dave")

	request, err := svc.SendRequest(ctx, alice, bob.ID)
	if err != nil {
		t.Fatalf("SendRequest failed: %v", err)
	}
	if _, err := svc.RespondToRequest(ctx, bob, request.ID, models.RequestStatusAccepted); err != nil {
		t.Fatalf("RespondToRequest failed: %v", err)
	}
	if _, err := svc.SendRequest(ctx, carol, alice.ID); err != nil {
		t.Fatalf("SendRequest failed: %v", err)
	}

	ids, err := svc.RelatedUserIDs(ctx, alice.ID)
	if err != nil {
		t.Fatalf("RelatedUserIDs failed: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected bob and carol, got %d ids", len(ids))
	}
	seen := map[string]bool{}
	for _, id := range ids {
		seen[id.String()] = true
	}
	if !seen[bob.ID.String()] || !seen[carol.ID.String()] {
		t.Fatalf("expected bob and carol in related set, got %v", ids)
	}
}
