package cli

import (
	"bytes"
	"path/filepath"
	"testing"
)

// executeCommand runs a command with the given args and captures output.
func executeCommand(args ...string) (string, error) {
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestRootHelp(t *testing.T) {
	_, err := executeCommand("--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGlobalFlags(t *testing.T) {
	root := NewRootCmd()

	if root.PersistentFlags().Lookup("db") == nil {
		t.Fatal("expected --db flag to exist")
	}
	if root.PersistentFlags().Lookup("config") == nil {
		t.Fatal("expected --config flag to exist")
	}
}

func TestUnknownCommand(t *testing.T) {
	if _, err := executeCommand("bogus"); err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func TestAddUserAndVisits(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	flagDB = dbPath
	t.Cleanup(func() { flagDB = "" })

	if _, err := executeCommand("--db", dbPath, "adduser", "alice", "--password", "hunter2!", "--days", "mon,tue"); err != nil {
		t.Fatalf("adduser: %v", err)
	}

	// Duplicate usernames are rejected.
	if _, err := executeCommand("--db", dbPath, "adduser", "alice", "--password", "again"); err == nil {
		t.Fatal("expected error for duplicate username")
	}

	// Missing password is rejected.
	if _, err := executeCommand("--db", dbPath, "adduser", "bob"); err == nil {
		t.Fatal("expected error without --password")
	}

	if _, err := executeCommand("--db", dbPath, "visits", "alice"); err != nil {
		t.Fatalf("visits: %v", err)
	}
	if _, err := executeCommand("--db", dbPath, "visits", "nobody"); err == nil {
		t.Fatal("expected error for unknown user")
	}
}
