package kv

import (
	"context"
	"errors"
	"testing"

	"github.com/newthinker/pairdash/internal/core"
)

func TestGetJSON_RoundTrip(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	in := map[string]any{"connected": true}
	if err := PutJSON(ctx, s, "connection", in); err != nil {
		t.Fatalf("PutJSON: %v", err)
	}

	var out struct {
		Connected bool `json:"connected"`
	}
	if err := GetJSON(ctx, s, "connection", &out); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if !out.Connected {
		t.Error("expected connected=true")
	}
}

func TestGetJSON_Corrupt(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	s.Put(ctx, "connection", []byte("{not json"))

	var out map[string]any
	err := GetJSON(ctx, s, "connection", &out)
	if !errors.Is(err, core.ErrStorageCorrupt) {
		t.Errorf("expected STORAGE_CORRUPT, got %v", err)
	}
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default memory", Config{}, false},
		{"localfs", Config{Type: "localfs", Path: t.TempDir()}, false},
		{"localfs without path", Config{Type: "localfs"}, true},
		{"sqlite without dsn", Config{Type: "sqlite"}, true},
		{"s3 without bucket", Config{Type: "s3"}, true},
		{"unknown", Config{Type: "redis"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Open() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
