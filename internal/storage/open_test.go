package storage

import (
	"errors"
	"testing"

	"github.com/julianstephens/nutrilog/internal/storage/postgres"
	"github.com/julianstephens/nutrilog/internal/storage/sqlite"
)

func TestIsPostgres(t *testing.T) {
	tests := []struct {
		target   string
		expected bool
	}{
		{"postgres://user@localhost/nutrilog", true},
		{"postgresql://localhost/nutrilog", true},
		{"host=localhost dbname=nutrilog user=me", true},
		{"dbname=nutrilog", true},
		{"HOST=db.internal port=5432", true},
		{"~/.config/nutrilog/nutrilog.db", false},
		{"/tmp/nutrilog.db", false},
		{"data/host.db", false},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			if got := IsPostgres(tt.target); got != tt.expected {
				t.Errorf("IsPostgres(%q) = %v, want %v", tt.target, got, tt.expected)
			}
		})
	}
}

func TestNewRoutesKeyValueStringsToPostgres(t *testing.T) {
	provider, err := New("host=localhost dbname=nutrilog user=me")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, ok := provider.(*postgres.Store); !ok {
		t.Errorf("New returned %T, want *postgres.Store", provider)
	}

	_, err = New("host=localhost dbname=nutrilog user=me password=hunter2")
	if !errors.Is(err, postgres.ErrEmbeddedCredentials) {
		t.Error("New should refuse a key=value string with a password")
	}
}

func TestNewTrustedRoutesKeyValueStringsToPostgres(t *testing.T) {
	provider := NewTrusted("host=localhost dbname=nutrilog user=me password=hunter2")
	if _, ok := provider.(*sqlite.Store); ok {
		t.Fatalf("NewTrusted treated a connection string as a SQLite path")
	}
	if _, ok := provider.(*postgres.Store); !ok {
		t.Errorf("NewTrusted returned %T, want *postgres.Store", provider)
	}
}

func TestNewUsesSQLiteForPaths(t *testing.T) {
	provider, err := New("/tmp/nutrilog.db")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, ok := provider.(*sqlite.Store); !ok {
		t.Errorf("New returned %T, want *sqlite.Store", provider)
	}
}
