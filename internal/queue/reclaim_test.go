package queue

import "testing"

func TestReclaimUpdateSQLGeneratesOnePlaceholderPairPerRow(t *testing.T) {
	rows := []struct{ queueName, messageID string }{
		{"orders", "m1"},
		{"orders", "m2"},
		{"emails", "m3"},
	}
	sql, args := reclaimUpdateSQL(rows)

	wantArgs := []any{"orders", "m1", "orders", "m2", "emails", "m3"}
	if len(args) != len(wantArgs) {
		t.Fatalf("got %d args, want %d", len(args), len(wantArgs))
	}
	for i, want := range wantArgs {
		if args[i] != want {
			t.Fatalf("arg[%d] = %v, want %v", i, args[i], want)
		}
	}

	for _, placeholder := range []string{"$1", "$2", "$3", "$4", "$5", "$6"} {
		if !containsSubstring(sql, placeholder) {
			t.Fatalf("sql %q missing placeholder %q", sql, placeholder)
		}
	}
}

func containsSubstring(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
