package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ashureev/coachpad/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "nested", "coach.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndListCallRecords(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	base := time.UnixMilli(1_700_000_000_000)

	records := []*domain.CallRecord{
		{ID: "r1", SessionID: "call-a", Outcome: domain.OutcomeLost, Suggestions: []string{"x"}, Summary: "first", CreatedAt: base},
		{ID: "r2", SessionID: "call-a", Outcome: domain.OutcomeMeetingBooked, Suggestions: []string{"y", "z"}, Summary: "second", CreatedAt: base.Add(time.Minute)},
		{ID: "r3", SessionID: "call-b", Outcome: domain.OutcomeFollowUp, Summary: "other", CreatedAt: base},
	}
	for _, rec := range records {
		if err := s.SaveCallRecord(ctx, rec); err != nil {
			t.Fatalf("save %s: %v", rec.ID, err)
		}
	}

	got, err := s.ListCallRecords(ctx, "call-a", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].ID != "r2" || got[1].ID != "r1" {
		t.Fatalf("expected newest first, got %s, %s", got[0].ID, got[1].ID)
	}
	if got[0].Outcome != domain.OutcomeMeetingBooked || len(got[0].Suggestions) != 2 || got[0].Summary != "second" {
		t.Fatalf("unexpected record %+v", got[0])
	}
	if !got[0].CreatedAt.Equal(base.Add(time.Minute)) {
		t.Fatalf("unexpected created_at %v", got[0].CreatedAt)
	}

	limited, err := s.ListCallRecords(ctx, "call-a", 1)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != "r2" {
		t.Fatalf("expected only newest record, got %+v", limited)
	}

	other, err := s.ListCallRecords(ctx, "call-b", 10)
	if err != nil {
		t.Fatalf("list other: %v", err)
	}
	if len(other) != 1 || other[0].Suggestions == nil || len(other[0].Suggestions) != 0 {
		t.Fatalf("expected empty suggestions slice for call-b, got %+v", other)
	}
}

func TestListCallRecordsEmpty(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	got, err := s.ListCallRecords(context.Background(), "nobody", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", got)
	}
}

func TestSaveCallRecordDuplicateID(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	rec := &domain.CallRecord{ID: "dup", SessionID: "s", Outcome: domain.OutcomeLost, CreatedAt: time.Now()}
	if err := s.SaveCallRecord(context.Background(), rec); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := s.SaveCallRecord(context.Background(), rec); err == nil {
		t.Fatal("expected primary key violation")
	}
}

func TestDeleteCallRecordsBefore(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	old := &domain.CallRecord{ID: "old", SessionID: "s", Outcome: domain.OutcomeLost, CreatedAt: now.Add(-48 * time.Hour)}
	fresh := &domain.CallRecord{ID: "fresh", SessionID: "s", Outcome: domain.OutcomeLost, CreatedAt: now}
	for _, rec := range []*domain.CallRecord{old, fresh} {
		if err := s.SaveCallRecord(ctx, rec); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	deleted, err := s.DeleteCallRecordsBefore(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted, got %d", deleted)
	}

	got, err := s.ListCallRecords(ctx, "s", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ID != "fresh" {
		t.Fatalf("expected only fresh record, got %+v", got)
	}
}

func TestPing(t *testing.T) {
	t.Parallel()

	if err := newTestStore(t).Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
