package sqldump

import (
	"reflect"
	"testing"
)

func TestExtract(t *testing.T) {
	t.Parallel()

	t.Run("columns and tuples", func(t *testing.T) {
		dump := "INSERT INTO `users` (`id`, `Name`, EMAIL) VALUES (1, 'Ann', 'a@x.com'), (2, 'Bob', NULL);"
		blk, ok := Extract(dump, "users")
		if !ok {
			t.Fatalf("Extract: no match")
		}
		if want := []string{"id", "name", "email"}; !reflect.DeepEqual(blk.Columns, want) {
			t.Fatalf("columns: got %#v want %#v", blk.Columns, want)
		}
		if len(blk.Tuples) != 2 {
			t.Fatalf("tuples: got %d want 2", len(blk.Tuples))
		}
		want := []Value{{S: "2"}, {S: "Bob"}, {Null: true}}
		if !reflect.DeepEqual(blk.Tuples[1].Values, want) {
			t.Fatalf("second tuple: got %#v want %#v", blk.Tuples[1].Values, want)
		}
	})

	t.Run("case insensitive table match", func(t *testing.T) {
		dump := "insert into Users values (1, 'Ann');"
		blk, ok := Extract(dump, "users")
		if !ok || len(blk.Tuples) != 1 {
			t.Fatalf("Extract: ok=%v tuples=%d", ok, len(blk.Tuples))
		}
		if blk.Columns != nil {
			t.Fatalf("columns: got %#v want nil", blk.Columns)
		}
	})

	t.Run("statements for same table merge in order", func(t *testing.T) {
		dump := `INSERT INTO users (id) VALUES (1);
INSERT INTO payments (id) VALUES (9);
INSERT INTO users (id) VALUES (2), (3);`
		blk, ok := Extract(dump, "users")
		if !ok {
			t.Fatalf("Extract: no match")
		}
		if blk.Statements != 2 {
			t.Fatalf("statements: got %d want 2", blk.Statements)
		}
		var ids []string
		for _, tp := range blk.Tuples {
			ids = append(ids, tp.Values[0].S)
		}
		if want := []string{"1", "2", "3"}; !reflect.DeepEqual(ids, want) {
			t.Fatalf("ids: got %#v want %#v", ids, want)
		}
	})

	t.Run("schema qualified names match on last segment", func(t *testing.T) {
		dump := "INSERT INTO `gymdb`.`users` (id) VALUES (7);"
		blk, ok := Extract(dump, "users")
		if !ok || len(blk.Tuples) != 1 {
			t.Fatalf("Extract: ok=%v tuples=%d", ok, len(blk.Tuples))
		}
	})

	t.Run("semicolon inside string does not end statement", func(t *testing.T) {
		dump := "INSERT INTO users (id, note) VALUES (1, 'a;b');INSERT INTO users (id, note) VALUES (2, 'c');"
		blk, _ := Extract(dump, "users")
		if len(blk.Tuples) != 2 {
			t.Fatalf("tuples: got %d want 2", len(blk.Tuples))
		}
		if got := blk.Tuples[0].Values[1].S; got != "a;b" {
			t.Fatalf("note: got %q want %q", got, "a;b")
		}
	})

	t.Run("missing terminator tolerated", func(t *testing.T) {
		dump := "INSERT INTO users (id) VALUES (5), (6)"
		blk, ok := Extract(dump, "users")
		if !ok || len(blk.Tuples) != 2 {
			t.Fatalf("Extract: ok=%v tuples=%d", ok, len(blk.Tuples))
		}
	})

	t.Run("insert ignore accepted", func(t *testing.T) {
		dump := "INSERT IGNORE INTO users (id) VALUES (8);"
		blk, ok := Extract(dump, "users")
		if !ok || len(blk.Tuples) != 1 {
			t.Fatalf("Extract: ok=%v tuples=%d", ok, len(blk.Tuples))
		}
	})

	t.Run("no match", func(t *testing.T) {
		dump := "INSERT INTO users (id) VALUES (1);"
		if _, ok := Extract(dump, "payments"); ok {
			t.Fatalf("Extract: matched a table that is not present")
		}
	})

	t.Run("insert select skipped", func(t *testing.T) {
		dump := "INSERT INTO users SELECT * FROM old_users; INSERT INTO users (id) VALUES (1);"
		blk, ok := Extract(dump, "users")
		if !ok || len(blk.Tuples) != 1 {
			t.Fatalf("Extract: ok=%v tuples=%d", ok, len(blk.Tuples))
		}
	})
}

func TestExtractFirst(t *testing.T) {
	t.Parallel()

	dump := `INSERT INTO subscriptions (user_id, status) VALUES (1, 'paid');
INSERT INTO memberships (user_id, status) VALUES (2, 'paid');`

	blk, ok := ExtractFirst(dump, "payments", "subscriptions", "memberships")
	if !ok {
		t.Fatalf("ExtractFirst: no match")
	}
	if blk.Table != "subscriptions" {
		t.Fatalf("table: got %q want %q (first variant with a match wins)", blk.Table, "subscriptions")
	}

	if _, ok := ExtractFirst(dump, "payments", "transactions"); ok {
		t.Fatalf("ExtractFirst: matched with no candidate present")
	}
}

func TestTables(t *testing.T) {
	t.Parallel()

	dump := "INSERT INTO `users` (id) VALUES (1);\n" +
		"INSERT INTO payments (id) VALUES (2);\n" +
		"INSERT INTO users (id) VALUES (3);\n" +
		"INSERT INTO `gym`.`trainers` (id) VALUES (4);"

	got := Tables(dump)
	want := []string{"users", "payments", "gym.trainers"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tables: got %#v want %#v", got, want)
	}
}
