package journal

import (
	"path/filepath"
	"testing"
	"time"
)

func TestJournalAppendAndRecent(t *testing.T) {
	j, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open journal: %v", err)
	}
	defer func() { _ = j.Close() }()

	ctx := t.Context()
	base := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	first := Record{
		ID:           "6f1c2d2e-0000-4000-8000-000000000001",
		Started:      base,
		Finished:     base.Add(4 * time.Second),
		Outcome:      OutcomeSuccess,
		CommitHash:   "a1b2c3d",
		Message:      "rebuilding site Sat Mar 14",
		FilesChanged: 12,
		StageDurations: map[string]time.Duration{
			"build":   3 * time.Second,
			"publish": time.Second,
		},
	}
	second := Record{
		ID:       "6f1c2d2e-0000-4000-8000-000000000002",
		Started:  base.Add(time.Hour),
		Finished: base.Add(time.Hour + 2*time.Second),
		Outcome:  OutcomeNoop,
	}
	third := Record{
		ID:          "6f1c2d2e-0000-4000-8000-000000000003",
		Started:     base.Add(2 * time.Hour),
		Finished:    base.Add(2*time.Hour + time.Second),
		Outcome:     OutcomeFailed,
		FailedStage: "build",
		Error:       "hugo exited with status 1",
	}

	for _, rec := range []Record{first, second, third} {
		if err := j.Append(ctx, rec); err != nil {
			t.Fatalf("failed to append %s: %v", rec.ID, err)
		}
	}

	recs, err := j.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("failed to query recent records: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].ID != third.ID || recs[1].ID != second.ID {
		t.Errorf("expected newest first, got %s then %s", recs[0].ID, recs[1].ID)
	}
	if recs[0].Outcome != OutcomeFailed || recs[0].FailedStage != "build" {
		t.Errorf("unexpected newest record: %+v", recs[0])
	}
	if recs[0].Error != "hugo exited with status 1" {
		t.Errorf("unexpected error text %q", recs[0].Error)
	}
	if recs[0].StageDurations != nil {
		t.Errorf("expected no stage durations, got %v", recs[0].StageDurations)
	}

	all, err := j.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("failed to query all records: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}

	oldest := all[2]
	if oldest.CommitHash != "a1b2c3d" || oldest.FilesChanged != 12 {
		t.Errorf("unexpected oldest record: %+v", oldest)
	}
	if got := oldest.StageDurations["build"]; got != 3*time.Second {
		t.Errorf("expected 3s build stage, got %v", got)
	}
	if !oldest.Started.Equal(base) {
		t.Errorf("expected start %v, got %v", base, oldest.Started)
	}
	if oldest.Duration() != 4*time.Second {
		t.Errorf("expected 4s duration, got %v", oldest.Duration())
	}
}

func TestJournalLastSuccess(t *testing.T) {
	j, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open journal: %v", err)
	}
	defer func() { _ = j.Close() }()

	ctx := t.Context()

	rec, err := j.LastSuccess(ctx)
	if err != nil {
		t.Fatalf("failed to query empty journal: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil on empty journal, got %+v", rec)
	}

	base := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	records := []Record{
		{
			ID:          "1c000000-0000-4000-8000-000000000001",
			Started:     base,
			Finished:    base.Add(time.Second),
			Outcome:     OutcomeFailed,
			FailedStage: "lint",
			Error:       "2 lint errors",
		},
		{
			ID:           "1c000000-0000-4000-8000-000000000002",
			Started:      base.Add(time.Hour),
			Finished:     base.Add(time.Hour + 5*time.Second),
			Outcome:      OutcomeSuccess,
			CommitHash:   "f00dfeed",
			FilesChanged: 3,
		},
		{
			ID:       "1c000000-0000-4000-8000-000000000003",
			Started:  base.Add(2 * time.Hour),
			Finished: base.Add(2*time.Hour + time.Second),
			Outcome:  OutcomeNoop,
		},
	}
	for _, r := range records {
		if err := j.Append(ctx, r); err != nil {
			t.Fatalf("failed to append %s: %v", r.ID, err)
		}
	}

	last, err := j.LastSuccess(ctx)
	if err != nil {
		t.Fatalf("failed to query last success: %v", err)
	}
	if last == nil {
		t.Fatal("expected a successful deploy")
	}
	if last.ID != records[1].ID {
		t.Errorf("expected %s, got %s", records[1].ID, last.ID)
	}
	if last.CommitHash != "f00dfeed" {
		t.Errorf("expected commit f00dfeed, got %q", last.CommitHash)
	}
}

func TestJournalRejectsBadRecords(t *testing.T) {
	j, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open journal: %v", err)
	}
	defer func() { _ = j.Close() }()

	ctx := t.Context()

	if err := j.Append(ctx, Record{Outcome: OutcomeSuccess}); err == nil {
		t.Fatal("expected error for record without id")
	}

	rec := Record{
		ID:       "dd000000-0000-4000-8000-000000000001",
		Started:  time.Now(),
		Finished: time.Now(),
		Outcome:  OutcomeSuccess,
	}
	if err := j.Append(ctx, rec); err != nil {
		t.Fatalf("failed to append record: %v", err)
	}
	if err := j.Append(ctx, rec); err == nil {
		t.Fatal("expected error for duplicate id")
	}
}

func TestJournalPersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open journal: %v", err)
	}
	rec := Record{
		ID:         "aa000000-0000-4000-8000-000000000001",
		Started:    time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		Finished:   time.Date(2026, 3, 14, 9, 30, 6, 0, time.UTC),
		Outcome:    OutcomeSuccess,
		CommitHash: "cafe1234",
	}
	if err := j.Append(t.Context(), rec); err != nil {
		t.Fatalf("failed to append record: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("failed to close journal: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("failed to reopen journal: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	recs, err := reopened.Recent(t.Context(), 0)
	if err != nil {
		t.Fatalf("failed to query reopened journal: %v", err)
	}
	if len(recs) != 1 || recs[0].CommitHash != "cafe1234" {
		t.Fatalf("expected the stored record back, got %+v", recs)
	}
}
