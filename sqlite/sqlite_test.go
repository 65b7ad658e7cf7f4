package sqlite

import (
	"context"
	"testing"

	"github.com/egtann/schema"
	"github.com/pkg/errors"
)

func TestLedgerTableDefinition(t *testing.T) {
	b := NewBuilder("")
	b.Increments("id")
	b.String("migration", 255).Required().Unique()
	b.Integer("batch").Required()

	exp := `"id" INTEGER PRIMARY KEY AUTOINCREMENT, ` +
		`"migration" VARCHAR(255) NOT NULL UNIQUE, "batch" INTEGER NOT NULL`
	if got := b.SQL(); got != exp {
		t.Fatalf("expected\n\t%s\ngot\n\t%s", exp, got)
	}
	if n := len(b.Definition().Members()); n != 3 {
		t.Fatalf("expected 3 members, got %d", n)
	}
}

func TestNoOpModifiers(t *testing.T) {
	b := NewBuilder("NOCASE")
	b.TableComment("ignored")
	b.String("name", 20).Unsigned().Comment("ignored").After("id")
	b.Enum("level", "a", "b").Default("a")

	exp := `"name" VARCHAR(20) COLLATE NOCASE, ` +
		`"level" TEXT CHECK ("level" IN ('a', 'b')) DEFAULT 'a'`
	if got := b.SQL(); got != exp {
		t.Fatalf("expected\n\t%s\ngot\n\t%s", exp, got)
	}
}

func TestAlterSQLSplitsMembers(t *testing.T) {
	b := NewBuilder("")
	b.AddColumns()
	b.Integer("age").Required().Default(0)
	b.Text("bio").Nullable()

	stmts := b.AlterSQL("users")
	exp := []string{
		`ALTER TABLE "users" ADD COLUMN "age" INTEGER NOT NULL DEFAULT '0'`,
		`ALTER TABLE "users" ADD COLUMN "bio" TEXT NULL`,
	}
	if len(stmts) != len(exp) {
		t.Fatalf("expected %d statements, got %d", len(exp), len(stmts))
	}
	for i := range exp {
		if stmts[i] != exp[i] {
			t.Fatalf("expected\n\t%s\ngot\n\t%s", exp[i], stmts[i])
		}
	}
}

func TestCreateInsertTruncate(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	err := db.Create(ctx, "users", func(t schema.TableBuilder) {
		t.Increments("id")
		t.String("email", 100).Required().Unique()
		t.Boolean("active").Default(true)
	})
	check(t, err)

	ok, err := db.TableExists(ctx, "users")
	check(t, err)
	if !ok {
		t.Fatal("expected users to exist")
	}

	row := schema.Row{{Column: "email", Value: "a@example.com"}}
	check(t, db.Insert(ctx, "users", row))
	err = db.Insert(ctx, "users", row)
	if !db.IsDuplicate(err) {
		t.Fatalf("expected duplicate, got %v", err)
	}

	var n int
	check(t, db.DB.Get(&n, `SELECT COUNT(*) FROM users WHERE active = 1`))
	if n != 1 {
		t.Fatalf("expected 1 row, got %d", n)
	}

	check(t, db.Truncate(ctx, "users"))
	check(t, db.DB.Get(&n, `SELECT COUNT(*) FROM users`))
	if n != 0 {
		t.Fatalf("expected 0 rows, got %d", n)
	}

	check(t, db.Drop(ctx, "users"))
	ok, err = db.TableExists(ctx, "users")
	check(t, err)
	if ok {
		t.Fatal("expected users to be dropped")
	}
}

func TestAlter(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	err := db.Create(ctx, "users", func(t schema.TableBuilder) {
		t.Increments("id")
	})
	check(t, err)

	err = db.Alter(ctx, "users", func(t schema.TableBuilder) {
		t.AddColumns()
		t.String("name", 50).Nullable()
		t.Integer("age").Default(0)
	})
	check(t, err)
	check(t, db.Insert(ctx, "users", schema.Row{{Column: "name", Value: "a"}}))

	err = db.Alter(ctx, "users", func(t schema.TableBuilder) {
		t.ModifyColumns().Text("name")
	})
	if !errors.Is(err, schema.ErrUnsupported) {
		t.Fatalf("expected unsupported, got %v", err)
	}
	err = db.DropForeignKey(ctx, "users", "fk")
	if !errors.Is(err, schema.ErrUnsupported) {
		t.Fatalf("expected unsupported, got %v", err)
	}
}

func TestForeignKeyChecks(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	err := db.Create(ctx, "teams", func(t schema.TableBuilder) {
		t.Increments("id")
	})
	check(t, err)
	err = db.Create(ctx, "players", func(t schema.TableBuilder) {
		t.Increments("id")
		t.Integer("team_id")
		t.Foreign(schema.ForeignKey{
			Name:       "players_team_id_foreign",
			Column:     "team_id",
			References: "id",
			On:         "teams",
		})
	})
	check(t, err)

	row := schema.Row{{Column: "team_id", Value: 7}}
	if err = db.Insert(ctx, "players", row); err == nil {
		t.Fatal("expected foreign key violation")
	}

	check(t, db.SetForeignKeyChecks(ctx, false))
	check(t, db.Insert(ctx, "players", row))
	check(t, db.SetForeignKeyChecks(ctx, true))
}

func TestIsMissingTable(t *testing.T) {
	db := newDB(t)

	_, err := db.Query(context.Background(), `SELECT * FROM nope`)
	if !db.IsMissingTable(err) {
		t.Fatalf("expected missing table, got %v", err)
	}
	if db.IsMissingTable(nil) {
		t.Fatal("nil is not a missing table")
	}
}

func check(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func newDB(t *testing.T) *DB {
	t.Helper()
	db := New(schema.Config{
		Driver:    schema.DriverSQLite,
		Database:  ":memory:",
		SQLDriver: "sqlite",
	})
	check(t, db.Open())
	t.Cleanup(func() { db.Close() })
	return db
}

func TestAddUniqueColumn(t *testing.T) {
	b := NewBuilder("")
	b.Unique()
	b.AddColumns().String("email", 100).Nullable().Unique()

	exp := []string{
		`ALTER TABLE "users" ADD COLUMN "email" VARCHAR(100) NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS "users_email_unique" ON "users" ("email")`,
	}
	stmts := b.AlterSQL("users")
	if len(stmts) != len(exp) {
		t.Fatalf("expected %d statements, got %q", len(exp), stmts)
	}
	for i := range exp {
		if stmts[i] != exp[i] {
			t.Fatalf("expected\n\t%s\ngot\n\t%s", exp[i], stmts[i])
		}
	}

	db := newDB(t)
	ctx := context.Background()
	check(t, db.Create(ctx, "users", func(t schema.TableBuilder) {
		t.Increments("id")
	}))
	check(t, db.Alter(ctx, "users", func(t schema.TableBuilder) {
		t.AddColumns().String("email", 100).Nullable().Unique()
	}))
	row := schema.Row{{Column: "email", Value: "a@example.com"}}
	check(t, db.Insert(ctx, "users", row))
	if err := db.Insert(ctx, "users", row); !db.IsDuplicate(err) {
		t.Fatalf("expected duplicate, got %v", err)
	}
}
