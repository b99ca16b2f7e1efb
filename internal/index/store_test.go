package index

import (
	"testing"
	"time"
)

func TestNewQdrantStore(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{
			name: "url with port",
			url:  "http://localhost:6333",
		},
		{
			name: "url without port",
			url:  "http://qdrant.internal",
		},
		{
			name:    "invalid url",
			url:     "://bad",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewQdrantStore(tt.url, "work_items", 1536, "WebApp")
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if store.collection != "work_items" {
				t.Errorf("expected collection 'work_items', got %q", store.collection)
			}
			if store.vectorSize != 1536 {
				t.Errorf("expected vector size 1536, got %d", store.vectorSize)
			}
		})
	}
}

func TestMetadataTimeFormat(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 500, time.UTC)
	formatted := ts.Format(metadataTimeFormat)
	if formatted != "2026-03-01T12:00:00.000000Z" {
		t.Errorf("unexpected formatted time %q", formatted)
	}

	parsed, err := time.Parse(metadataTimeFormat, formatted)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if !parsed.Equal(ts.Truncate(time.Microsecond)) {
		t.Errorf("expected %v, got %v", ts.Truncate(time.Microsecond), parsed)
	}
}
