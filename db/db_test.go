package db

import (
	"testing"
	"time"
)

func setupTestDB(t *testing.T) *DB {
	database, err := New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	if err := database.Initialize(); err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func TestSessionRoundTrip(t *testing.T) {
	database := setupTestDB(t)
	now := time.Now().UTC().Truncate(time.Second)

	row := &SessionRow{
		ID:           "sess1",
		AccessToken:  "tok1",
		RefreshToken: "ref1",
		CreatedAt:    now,
		ExpiresAt:    now.Add(time.Hour),
	}
	if err := database.SaveSession(row); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	got, err := database.GetSession("sess1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got == nil {
		t.Fatal("expected session row, got nil")
	}
	if got.AccessToken != "tok1" || got.RefreshToken != "ref1" {
		t.Errorf("got tokens %q/%q, want tok1/ref1", got.AccessToken, got.RefreshToken)
	}

	// last write wins
	row.AccessToken = "tok2"
	if err := database.SaveSession(row); err != nil {
		t.Fatalf("SaveSession overwrite: %v", err)
	}
	got, _ = database.GetSession("sess1")
	if got.AccessToken != "tok2" {
		t.Errorf("AccessToken = %q after overwrite, want tok2", got.AccessToken)
	}

	if err := database.DeleteSession("sess1"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	got, err = database.GetSession("sess1")
	if err != nil || got != nil {
		t.Errorf("GetSession after delete = %v, %v; want nil, nil", got, err)
	}
}

func TestDeleteExpiredSessions(t *testing.T) {
	database := setupTestDB(t)
	now := time.Now().UTC()

	for _, row := range []*SessionRow{
		{ID: "old", AccessToken: "a", CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)},
		{ID: "live", AccessToken: "b", CreatedAt: now, ExpiresAt: now.Add(time.Hour)},
	} {
		if err := database.SaveSession(row); err != nil {
			t.Fatalf("SaveSession(%s): %v", row.ID, err)
		}
	}

	n, err := database.DeleteExpiredSessions(now)
	if err != nil {
		t.Fatalf("DeleteExpiredSessions: %v", err)
	}
	if n != 1 {
		t.Errorf("removed %d rows, want 1", n)
	}
	if got, _ := database.GetSession("live"); got == nil {
		t.Error("live session was removed")
	}
}
