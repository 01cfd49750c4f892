package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"weekplan/internal/config"
)

const sampleICS = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:holiday-1\r\n" +
	"DTSTAMP:20230101T000000Z\r\n" +
	"DTSTART;VALUE=DATE:20230102\r\n" +
	"DTEND;VALUE=DATE:20230103\r\n" +
	"SUMMARY:Bank holiday\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

// writeConfig points data_dir at a temp dir so runs never touch $HOME.
func writeConfig(t *testing.T, seed bool) string {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.SeedDemo = seed
	cfg.LogLevel = "error"
	path := filepath.Join(dir, "config.yaml")
	if err := config.Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := New("test")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestHelpListsCommands(t *testing.T) {
	out, err := run(t, "--help")
	if err != nil {
		t.Fatalf("help: %v", err)
	}
	for _, name := range []string{"serve", "day", "week", "import-ics", "export-ics"} {
		if !strings.Contains(out, name) {
			t.Errorf("help missing %q:\n%s", name, out)
		}
	}
}

func TestDayShowsSeededContent(t *testing.T) {
	path := writeConfig(t, true)
	out, err := run(t, "--config", path, "day")
	if err != nil {
		t.Fatalf("day: %v", err)
	}
	if !strings.Contains(out, "Standup") || !strings.Contains(out, "Plan user interviews") {
		t.Errorf("day output:\n%s", out)
	}

	// The seed is saved on first run and not repeated.
	out, err = run(t, "--config", path, "--json", "tasks")
	if err != nil {
		t.Fatalf("tasks: %v", err)
	}
	if n := strings.Count(out, "Plan user interviews"); n != 1 {
		t.Errorf("seeded task appears %d times:\n%s", n, out)
	}
}

func TestDayRejectsBadDate(t *testing.T) {
	path := writeConfig(t, false)
	if _, err := run(t, "--config", path, "day", "next-tuesday"); err == nil {
		t.Error("expected error for bad date")
	}
	if _, err := run(t, "--config", path, "week", "soon"); err == nil {
		t.Error("expected error for bad offset")
	}
}

func TestImportThenWeekAndExport(t *testing.T) {
	path := writeConfig(t, false)
	file := filepath.Join(t.TempDir(), "holidays.ics")
	if err := os.WriteFile(file, []byte(sampleICS), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "--config", path, "--json", "import-ics", file, "--id", "holidays", "--provider", "apple")
	if err != nil {
		t.Fatalf("import-ics: %v", err)
	}
	var stats struct{ Created int }
	if err := json.Unmarshal([]byte(out), &stats); err != nil || stats.Created != 1 {
		t.Fatalf("stats = %q, %v", out, err)
	}

	out, err = run(t, "--config", path, "export-ics")
	if err != nil {
		t.Fatalf("export-ics: %v", err)
	}
	if !strings.Contains(out, "SUMMARY:Bank holiday") {
		t.Errorf("export:\n%s", out)
	}

	// Re-import with the same id replaces instead of duplicating.
	if _, err := run(t, "--config", path, "import-ics", file, "--id", "holidays"); err != nil {
		t.Fatal(err)
	}
	out, err = run(t, "--config", path, "export-ics")
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(out, "BEGIN:VEVENT"); n != 1 {
		t.Errorf("%d events after re-import", n)
	}
}

func TestWeekOffsetDoesNotPersist(t *testing.T) {
	path := writeConfig(t, false)
	first, err := run(t, "--config", path, "--json", "week", "1")
	if err != nil {
		t.Fatal(err)
	}
	second, err := run(t, "--config", path, "--json", "week", "1")
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("week offset should be relative to the saved week every time")
	}
}
