package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/felixgeelhaar/lulu/internal/config"
	"github.com/felixgeelhaar/lulu/internal/domain"
	"github.com/felixgeelhaar/lulu/internal/storage/sqlite"
)

// useTempDatabase points the configuration at a fresh sqlite file
func useTempDatabase(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cli.db")
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", path)
	t.Setenv("DEBUG", "true")
	t.Setenv("RABBITMQ_URL", "")
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	want := []string{"migrate", "seed", "stats", "mcp", "usage-worker"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestMigrateCmd(t *testing.T) {
	useTempDatabase(t)

	out, err := execute(t, "migrate")
	if err != nil {
		t.Fatalf("migrate error = %v", err)
	}
	if !strings.Contains(out, "sqlite database is up to date") {
		t.Errorf("output = %q", out)
	}
}

func TestSeedCmd(t *testing.T) {
	dbPath := useTempDatabase(t)

	seedPath := filepath.Join(t.TempDir(), "seed.yaml")
	seed := `temas:
  - id: 1
    nombre: Python básico
    subtemas:
      - id: 10
        nombre: Variables
        descripcion: Tipos y asignación
      - nombre: Bucles
        contenido_detalle: for y while
`
	if err := os.WriteFile(seedPath, []byte(seed), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "seed", seedPath)
	if err != nil {
		t.Fatalf("seed error = %v", err)
	}
	if !strings.Contains(out, "Seeded 1 topics and 2 subtopics") {
		t.Errorf("output = %q", out)
	}

	// Seeding again updates rows with ids in place
	if _, err := execute(t, "seed", seedPath); err != nil {
		t.Fatalf("second seed error = %v", err)
	}

	db, err := sqlite.Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	store := sqlite.NewStore(db)
	defer store.Close()

	sub, err := store.GetSubtopic(context.Background(), 10)
	if err != nil {
		t.Fatalf("GetSubtopic() error = %v", err)
	}
	if sub.Name != "Variables" || sub.TopicName() != "Python básico" {
		t.Errorf("subtopic = %+v", sub)
	}
}

func TestSeedCmd_RequiresFile(t *testing.T) {
	if _, err := execute(t, "seed"); err == nil {
		t.Error("seed without a file should fail")
	}
}

func TestSeedContent(t *testing.T) {
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "seed.db"))
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Migrate(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	store := sqlite.NewStore(db)
	defer store.Close()

	topics, subs, err := seedContent(context.Background(), store, &config.Seed{Topics: []config.SeedTopic{
		{Name: "Estructuras", Subtopics: []config.SeedSubtopic{{Name: "Listas"}}},
		{Name: "Funciones"},
	}})
	if err != nil {
		t.Fatalf("seedContent() error = %v", err)
	}
	if topics != 2 || subs != 1 {
		t.Errorf("seeded %d topics, %d subtopics", topics, subs)
	}
}

func TestStatsCmd(t *testing.T) {
	dbPath := useTempDatabase(t)

	out, err := execute(t, "stats")
	if err != nil {
		t.Fatalf("stats error = %v", err)
	}
	if !strings.Contains(out, "No requests recorded.") {
		t.Errorf("empty output = %q", out)
	}

	db, err := sqlite.Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	store := sqlite.NewStore(db)
	rec := domain.UsageRecord{Kind: domain.KindChat, EstimatedTokens: 50, LatencyMS: 200}
	if err := store.RecordUsage(context.Background(), rec); err != nil {
		t.Fatal(err)
	}
	rec.CacheHit = true
	if err := store.RecordUsage(context.Background(), rec); err != nil {
		t.Fatal(err)
	}
	store.Close()

	out, err = execute(t, "stats", "--days", "7")
	if err != nil {
		t.Fatalf("stats error = %v", err)
	}
	if !strings.Contains(out, "Last 7 days") || !strings.Contains(out, "chat") || !strings.Contains(out, "50.0%") {
		t.Errorf("output = %q", out)
	}
}

func TestPrintTotals(t *testing.T) {
	var buf bytes.Buffer
	err := printTotals(&buf, []domain.UsageTotal{
		{Kind: domain.KindCodeValidation, Requests: 4, CacheHits: 1, EstimatedTokens: 1500, AvgLatencyMS: 820},
		{Kind: domain.KindChat, Requests: 6, CacheHits: 0, EstimatedTokens: 300, AvgLatencyMS: 410},
	})
	if err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"code_validation", "25.0%", "TOTAL", "1800", "820ms"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestUsageWorkerCmd_RequiresQueue(t *testing.T) {
	useTempDatabase(t)

	_, err := execute(t, "usage-worker")
	if err == nil || !strings.Contains(err.Error(), "RABBITMQ_URL") {
		t.Errorf("usage-worker error = %v", err)
	}
}
