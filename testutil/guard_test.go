package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPredicates(t *testing.T) {
	cases := []struct {
		name string
		pred func(string) bool
		in   string
		want bool
	}{
		{"internal", InternalImportForbidden, "qcatlas/internal/core", true},
		{"internal root", InternalImportForbidden, "internal/core", true},
		{"public", InternalImportForbidden, "qcatlas/pkg/domain", false},
		{"pgx", DriverImportForbidden, "github.com/jackc/pgx/v5/stdlib", true},
		{"sqlite", DriverImportForbidden, "modernc.org/sqlite", true},
		{"aws", DriverImportForbidden, "github.com/aws/aws-sdk-go-v2/service/s3", true},
		{"database/sql", DriverImportForbidden, "database/sql", true},
		{"database/sql/driver", DriverImportForbidden, "database/sql/driver", true},
		{"sqlite lookalike", DriverImportForbidden, "modernc.org/sqlitex", false},
		{"cobra", CLIImportForbidden, "github.com/spf13/cobra", true},
		{"zap", CLIImportForbidden, "go.uber.org/zap", false},
		{"combined", AnyOf(CLIImportForbidden, DriverImportForbidden), "modernc.org/sqlite", true},
		{"combined miss", AnyOf(CLIImportForbidden, DriverImportForbidden), "fmt", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.pred(tc.in); got != tc.want {
				t.Fatalf("predicate(%q)=%v want %v", tc.in, got, tc.want)
			}
		})
	}
}

func writePackage(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, src := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	return dir
}

type recordingT struct {
	msg string
}

func (r *recordingT) Fatalf(format string, _ ...any) { r.msg = format }

func TestDirectImportViolations(t *testing.T) {
	dir := writePackage(t, map[string]string{
		"x.go":      "package tmp\nimport (\n\t\"fmt\"\n\t\"modernc.org/sqlite\"\n)\nvar _ = fmt.Sprint\nvar _ sqlite.Driver\n",
		"x_test.go": "package tmp\nimport \"github.com/jackc/pgx/v5\"\n",
		"notes.txt": "import \"github.com/aws/aws-sdk-go-v2\"",
	})
	viols, err := directImportViolations(dir, DriverImportForbidden)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || !strings.HasPrefix(viols[0], "modernc.org/sqlite") {
		t.Fatalf("expected only the non-test sqlite import, got %v", viols)
	}

	rec := &recordingT{}
	failIfViolations(rec, "drivers", viols)
	if rec.msg == "" {
		t.Fatalf("expected failure to be reported")
	}
	rec = &recordingT{}
	failIfViolations(rec, "drivers", nil)
	if rec.msg != "" {
		t.Fatalf("expected no failure")
	}
}

func TestAssertNoDirectImportsClean(t *testing.T) {
	dir := writePackage(t, map[string]string{"x.go": "package tmp\nimport \"fmt\"\nfunc X() { fmt.Println(1) }\n"})
	AssertNoDirectImports(t, dir, InternalImportForbidden, "none")
}

func TestDirectImportViolationsMissingDir(t *testing.T) {
	if _, err := directImportViolations(filepath.Join(t.TempDir(), "missing"), InternalImportForbidden); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}
