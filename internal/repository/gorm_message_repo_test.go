package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matchday-app/chat-service/internal/domain"
)

func seedMessage(t *testing.T, repo *GormMessageRepository, roomID, senderID string, at time.Time) *domain.Message {
	t.Helper()
	msg := &domain.Message{
		RoomID:      roomID,
		SenderID:    senderID,
		CipherText:  "deadbeef",
		IV:          "00112233445566778899aabb",
		AuthTag:     "ffeeddccbbaa99887766554433221100",
		DeliveredTo: []string{senderID},
		ReadBy:      []string{senderID},
		CreatedAt:   at,
	}
	if err := repo.Create(context.Background(), msg); err != nil {
		t.Fatalf("seed message: %v", err)
	}
	return msg
}

func TestListNewestFirstWithCursor(t *testing.T) {
	ctx := context.Background()
	repo := NewGormMessageRepository(newTestDB(t))

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 5; i++ {
		msg := seedMessage(t, repo, "r1", "alice", base.Add(time.Duration(i)*time.Minute))
		ids = append(ids, msg.ID)
	}

	page, err := repo.List(ctx, "r1", "bob", 3, time.Time{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(page))
	}
	if page[0].ID != ids[4] || page[2].ID != ids[2] {
		t.Fatal("page should be newest-first")
	}

	older, err := repo.List(ctx, "r1", "bob", 3, page[2].CreatedAt)
	if err != nil {
		t.Fatalf("List with cursor: %v", err)
	}
	if len(older) != 2 || older[0].ID != ids[1] {
		t.Fatalf("cursor page wrong: %v", older)
	}
}

func TestListSinceChronological(t *testing.T) {
	ctx := context.Background()
	repo := NewGormMessageRepository(newTestDB(t))

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 4; i++ {
		msg := seedMessage(t, repo, "r1", "alice", base.Add(time.Duration(i)*time.Minute))
		ids = append(ids, msg.ID)
	}

	msgs, err := repo.ListSince(ctx, "r1", "bob", base.Add(30*time.Second), 10)
	if err != nil {
		t.Fatalf("ListSince: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages after cursor, got %d", len(msgs))
	}
	if msgs[0].ID != ids[1] || msgs[2].ID != ids[3] {
		t.Fatal("sync page should be oldest-first")
	}
}

func TestSoftDeleteHidesForViewerOnly(t *testing.T) {
	ctx := context.Background()
	repo := NewGormMessageRepository(newTestDB(t))

	msg := seedMessage(t, repo, "r1", "alice", time.Now().UTC())

	if err := repo.SoftDelete(ctx, msg.ID, "bob"); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	// Repeating the delete changes nothing.
	if err := repo.SoftDelete(ctx, msg.ID, "bob"); err != nil {
		t.Fatalf("repeated SoftDelete: %v", err)
	}

	bobView, err := repo.List(ctx, "r1", "bob", 10, time.Time{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(bobView) != 0 {
		t.Fatal("soft-deleted message should be hidden from bob")
	}

	aliceView, err := repo.List(ctx, "r1", "alice", 10, time.Time{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(aliceView) != 1 {
		t.Fatal("soft delete must not affect other viewers")
	}
}

func TestHardDeleteLeavesTombstone(t *testing.T) {
	ctx := context.Background()
	repo := NewGormMessageRepository(newTestDB(t))

	msg := seedMessage(t, repo, "r1", "alice", time.Now().UTC())

	if err := repo.HardDelete(ctx, msg.ID); err != nil {
		t.Fatalf("HardDelete: %v", err)
	}
	// Second delete is a no-op success.
	if err := repo.HardDelete(ctx, msg.ID); err != nil {
		t.Fatalf("repeated HardDelete: %v", err)
	}

	got, err := repo.GetByID(ctx, msg.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.IsDeleted {
		t.Fatal("message should be flagged deleted")
	}
	if got.CipherText != "" || got.IV != "" || got.AuthTag != "" || len(got.Media) != 0 {
		t.Fatal("hard delete must clear the envelope and media")
	}

	// Tombstones stay listed.
	view, err := repo.List(ctx, "r1", "bob", 10, time.Time{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(view) != 1 || !view[0].IsDeleted {
		t.Fatal("hard-deleted message should appear as a tombstone")
	}
}

func TestMarkDeliveredIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewGormMessageRepository(newTestDB(t))

	now := time.Now().UTC()
	seedMessage(t, repo, "r1", "alice", now)
	seedMessage(t, repo, "r1", "alice", now.Add(time.Second))
	mine := seedMessage(t, repo, "r1", "bob", now.Add(2*time.Second))

	changed, err := repo.MarkDelivered(ctx, "r1", "bob")
	if err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}
	if changed != 2 {
		t.Fatalf("expected 2 messages marked, got %d", changed)
	}

	changed, err = repo.MarkDelivered(ctx, "r1", "bob")
	if err != nil {
		t.Fatalf("second MarkDelivered: %v", err)
	}
	if changed != 0 {
		t.Fatalf("second pass should change nothing, got %d", changed)
	}

	// Own messages never receive a receipt from their sender twice.
	got, err := repo.GetByID(ctx, mine.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.DeliveredTo) != 1 {
		t.Fatalf("sender's own message should keep its receipt set: %v", got.DeliveredTo)
	}
}

func TestMarkReadImpliesDelivered(t *testing.T) {
	ctx := context.Background()
	repo := NewGormMessageRepository(newTestDB(t))

	msg := seedMessage(t, repo, "r1", "alice", time.Now().UTC())

	changed, err := repo.MarkRead(ctx, "r1", "bob")
	if err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if changed != 1 {
		t.Fatalf("expected 1 message marked, got %d", changed)
	}

	got, err := repo.GetByID(ctx, msg.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !containsString(got.ReadBy, "bob") {
		t.Fatal("bob should be in read_by")
	}
	if !containsString(got.DeliveredTo, "bob") {
		t.Fatal("read must imply delivered")
	}
}

func TestSaveEditRejectsDeleted(t *testing.T) {
	ctx := context.Background()
	repo := NewGormMessageRepository(newTestDB(t))

	msg := seedMessage(t, repo, "r1", "alice", time.Now().UTC())

	if err := repo.SaveEdit(ctx, msg.ID, "cafe", "new-iv", "new-tag"); err != nil {
		t.Fatalf("SaveEdit: %v", err)
	}
	got, _ := repo.GetByID(ctx, msg.ID)
	if !got.Edited || got.CipherText != "cafe" {
		t.Fatalf("edit not applied: %+v", got)
	}

	if err := repo.HardDelete(ctx, msg.ID); err != nil {
		t.Fatal(err)
	}
	if err := repo.SaveEdit(ctx, msg.ID, "beef", "iv", "tag"); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("editing a deleted message should fail with ErrMessageNotFound, got %v", err)
	}
}

func TestLastVisible(t *testing.T) {
	ctx := context.Background()
	repo := NewGormMessageRepository(newTestDB(t))

	if _, err := repo.LastVisible(ctx, "r1", "bob"); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("empty room should yield ErrMessageNotFound, got %v", err)
	}

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seedMessage(t, repo, "r1", "alice", base)
	newest := seedMessage(t, repo, "r1", "alice", base.Add(time.Minute))

	got, err := repo.LastVisible(ctx, "r1", "bob")
	if err != nil {
		t.Fatalf("LastVisible: %v", err)
	}
	if got.ID != newest.ID {
		t.Fatal("LastVisible should return the newest message")
	}

	// Hiding the newest message for bob exposes the previous one.
	if err := repo.SoftDelete(ctx, newest.ID, "bob"); err != nil {
		t.Fatal(err)
	}
	got, err = repo.LastVisible(ctx, "r1", "bob")
	if err != nil {
		t.Fatalf("LastVisible after soft delete: %v", err)
	}
	if got.ID == newest.ID {
		t.Fatal("soft-deleted message must not be the preview")
	}
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
