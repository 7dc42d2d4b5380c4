package migrate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestSplitStatements(t *testing.T) {
	script := `
create table a (id text);
create table b (id text);
`
	stmts := splitStatements(script)
	var nonEmpty []string
	for _, s := range stmts {
		if strings.TrimSpace(s) != "" {
			nonEmpty = append(nonEmpty, s)
		}
	}
	if len(nonEmpty) != 2 {
		t.Fatalf("statements = %d, want 2", len(nonEmpty))
	}
}

func TestSplitStatementsDollarQuoting(t *testing.T) {
	script := `create function f() returns trigger as $$ begin return new; end; $$ language plpgsql;`
	stmts := splitStatements(script)
	var nonEmpty []string
	for _, s := range stmts {
		if strings.TrimSpace(s) != "" {
			nonEmpty = append(nonEmpty, s)
		}
	}
	if len(nonEmpty) != 1 {
		t.Fatalf("statements = %d, want 1 (body must not be split)", len(nonEmpty))
	}
	if !strings.Contains(nonEmpty[0], "end;") {
		t.Fatalf("function body mangled: %q", nonEmpty[0])
	}
}

func TestUpSkipsApplied(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	write("0001_init.up.sql", "create table tenants (id text primary key);")
	write("0002_users.up.sql", "create table users (id text primary key);")

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("create table if not exists schema_history").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select name from schema_history").
		WithArgs(kindMigration).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("0001_init.up.sql"))

	// only the second file runs
	mock.ExpectBegin()
	mock.ExpectExec("create table users").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectExec("insert into schema_history").
		WithArgs(kindMigration, "0002_users.up.sql", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	runner := NewRunner(db, dir, "")
	if err := runner.Up(context.Background()); err != nil {
		t.Fatalf("Up: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDownRequiresHistory(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("create table if not exists schema_history").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select name from schema_history").
		WithArgs(kindMigration).
		WillReturnRows(sqlmock.NewRows([]string{"name"}))

	runner := NewRunner(db, t.TempDir(), "")
	if err := runner.Down(context.Background()); err == nil {
		t.Fatal("Down succeeded with empty history")
	}
}
