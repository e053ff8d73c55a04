package runs

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := Open("", discardLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { r.Close() }) //nolint:errcheck
	return r
}

func TestRegistryRoundTrip(t *testing.T) {
	r := openTestRegistry(t)
	ctx := context.Background()

	run := &Run{
		Kind:     KindEncode,
		DataDir:  "/data/debatepedia",
		Split:    "val",
		Mode:     "relevance",
		Examples: 1000,
		GitSHA:   "3f2c1ab",
	}
	if err := r.Create(ctx, run); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if run.ID == "" {
		t.Fatal("Create left run ID empty")
	}
	if run.CreatedAt.IsZero() {
		t.Fatal("Create left CreatedAt zero")
	}

	got, err := r.Get(ctx, run.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Kind != KindEncode || got.Split != "val" || got.Mode != "relevance" {
		t.Errorf("Get returned %+v, want kind/split/mode of created run", got)
	}
	if got.Examples != 1000 || got.GitSHA != "3f2c1ab" || got.DataDir != "/data/debatepedia" {
		t.Errorf("Get returned %+v, want examples/sha/dir of created run", got)
	}
	if got.Metrics != nil {
		t.Errorf("Get returned metrics %v before any were recorded", got.Metrics)
	}
	if diff := got.CreatedAt.Sub(run.CreatedAt); diff < -time.Second || diff > time.Second {
		t.Errorf("CreatedAt round-tripped as %v, want within 1s of %v", got.CreatedAt, run.CreatedAt)
	}

	metrics := map[string]float64{"rouge1": 44.12, "rouge2": 21.5, "bleu": 18.3}
	if err := r.RecordMetrics(ctx, run.ID, metrics); err != nil {
		t.Fatalf("RecordMetrics: %v", err)
	}
	got, err = r.Get(ctx, run.ID)
	if err != nil {
		t.Fatalf("Get after RecordMetrics: %v", err)
	}
	for key, want := range metrics {
		if got.Metrics[key] != want {
			t.Errorf("Metrics[%q] = %v, want %v", key, got.Metrics[key], want)
		}
	}

	if err := r.Delete(ctx, run.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := r.Get(ctx, run.ID); err == nil {
		t.Error("Get succeeded after Delete, want run not found")
	}
	if err := r.Delete(ctx, run.ID); err != nil {
		t.Errorf("Delete missing run: %v", err)
	}
}

func TestRegistryListFilters(t *testing.T) {
	r := openTestRegistry(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seed := []*Run{
		{ID: "run-a", Kind: KindEncode, Split: "val", CreatedAt: base},
		{ID: "run-b", Kind: KindScore, Split: "val", CreatedAt: base.Add(time.Hour)},
		{ID: "run-c", Kind: KindEncode, Split: "test", CreatedAt: base.Add(2 * time.Hour)},
	}
	for _, run := range seed {
		if err := r.Create(ctx, run); err != nil {
			t.Fatalf("Create %s: %v", run.ID, err)
		}
	}

	all, err := r.List(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List returned %d runs, want 3", len(all))
	}
	if all[0].ID != "run-c" || all[2].ID != "run-a" {
		t.Errorf("List order = [%s %s %s], want newest first", all[0].ID, all[1].ID, all[2].ID)
	}

	encodes, err := r.List(ctx, ListFilter{Kind: KindEncode})
	if err != nil {
		t.Fatalf("List kind: %v", err)
	}
	if len(encodes) != 2 {
		t.Errorf("List kind=encode returned %d runs, want 2", len(encodes))
	}

	vals, err := r.List(ctx, ListFilter{Split: "val"})
	if err != nil {
		t.Fatalf("List split: %v", err)
	}
	if len(vals) != 2 {
		t.Errorf("List split=val returned %d runs, want 2", len(vals))
	}

	one, err := r.List(ctx, ListFilter{Limit: 1})
	if err != nil {
		t.Fatalf("List limit: %v", err)
	}
	if len(one) != 1 || one[0].ID != "run-c" {
		t.Errorf("List limit=1 returned %v, want only run-c", one)
	}

	both, err := r.List(ctx, ListFilter{Kind: KindEncode, Split: "test"})
	if err != nil {
		t.Fatalf("List kind+split: %v", err)
	}
	if len(both) != 1 || both[0].ID != "run-c" {
		t.Errorf("List kind+split returned %v, want only run-c", both)
	}
}

func TestRegistryCreateValidation(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	r, err := NewRegistry(db, discardLogger())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	if err := r.Create(context.Background(), nil); err == nil {
		t.Error("Create(nil) succeeded, want error")
	}
	if err := r.Create(context.Background(), &Run{}); err == nil {
		t.Error("Create without kind succeeded, want error")
	}
}

func TestRegistryCreateInsertsRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	r, err := NewRegistry(db, discardLogger())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	mock.ExpectExec("INSERT INTO runs").
		WithArgs(sqlmock.AnyArg(), KindScore, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			256, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	run := &Run{Kind: KindScore, Split: "test", Examples: 256}
	if err := r.Create(context.Background(), run); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRegistryGetDecodesMetrics(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	r, err := NewRegistry(db, discardLogger())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	cols := []string{"id", "kind", "data_dir", "split", "mode", "examples", "git_sha", "metrics", "created_at"}
	mock.ExpectQuery("SELECT (.+) FROM runs WHERE id").
		WithArgs("run-1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("run-1", KindScore, "/data", "val", "standard", 128, "abc123",
				`{"rouge1": 44.12, "bleu": 18.3}`, time.Now()))

	got, err := r.Get(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Metrics["rouge1"] != 44.12 || got.Metrics["bleu"] != 18.3 {
		t.Errorf("Get decoded metrics %v, want rouge1=44.12 bleu=18.3", got.Metrics)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRecordMetricsMissingRun(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	r, err := NewRegistry(db, discardLogger())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	mock.ExpectExec("UPDATE runs SET metrics").
		WithArgs(sqlmock.AnyArg(), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = r.RecordMetrics(context.Background(), "missing", map[string]float64{"rouge1": 1})
	if err == nil || !strings.Contains(err.Error(), "run not found") {
		t.Fatalf("RecordMetrics error = %v, want run not found", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRegistryPruneOlderThan(t *testing.T) {
	r := openTestRegistry(t)
	ctx := context.Background()

	old := &Run{ID: "run-old", Kind: KindEncode, CreatedAt: time.Now().UTC().Add(-48 * time.Hour)}
	recent := &Run{ID: "run-recent", Kind: KindEncode}
	if err := r.Create(ctx, old); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := r.Create(ctx, recent); err != nil {
		t.Fatalf("Create: %v", err)
	}

	pruned, err := r.PruneOlderThan(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("PruneOlderThan: %v", err)
	}
	if pruned != 1 {
		t.Fatalf("pruned = %d, want 1", pruned)
	}
	if _, err := r.Get(ctx, "run-old"); err == nil {
		t.Fatal("expected pruned run to be gone")
	}
	if _, err := r.Get(ctx, "run-recent"); err != nil {
		t.Fatalf("recent run should survive: %v", err)
	}
}
