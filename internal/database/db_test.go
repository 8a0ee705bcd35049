package database

import (
	"os"
	"slices"
	"strings"
	"testing"
)

func TestMissingTables(t *testing.T) {
	if got := missingTables(RequiredTables); len(got) != 0 {
		t.Errorf("missingTables(all) = %v, want none", got)
	}

	got := missingTables([]string{"users", "groups"})
	want := []string{"identities", "group_members", "photos"}
	if !slices.Equal(got, want) {
		t.Errorf("missingTables() = %v, want %v", got, want)
	}
}

func TestRequiredTables_CreatedByMigrations(t *testing.T) {
	data, err := os.ReadFile("migrations/000001_init.up.sql")
	if err != nil {
		t.Fatalf("ReadFile returned error: %v", err)
	}
	for _, table := range RequiredTables {
		if !strings.Contains(string(data), "CREATE TABLE IF NOT EXISTS "+table+" (") {
			t.Errorf("migration does not create %s", table)
		}
	}
}
