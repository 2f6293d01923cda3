package ipfix

import (
	"context"
	"path/filepath"
	"testing"
)

func TestPersistentCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "templates.yaml")

	first := NewPersistentCache("test", path)
	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start on missing file: %v", err)
	}

	tmpl := Template{
		Key:    TemplateKey{ObservationDomainId: 1, TemplateId: 256},
		Fields: []FieldSpecifier{{InformationElementId: 8, Length: 4}},
	}
	outcome, err := first.UpdateWith(ctx, tmpl)
	if err != nil {
		t.Fatal(err)
	}
	if outcome != Addition {
		t.Fatalf("got outcome %v, want Addition", outcome)
	}

	if err := first.Close(ctx); err != nil {
		t.Fatal(err)
	}

	second := NewPersistentCache("test", path)
	if err := second.Start(ctx); err != nil {
		t.Fatal(err)
	}

	got, ok, err := second.Get(ctx, tmpl.Key)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected template restored from disk")
	}
	if !got.EqualDefinition(tmpl) {
		t.Fatalf("got %+v, want %+v", got, tmpl)
	}
}

func TestPersistentCacheMissingFileIsNotAnError(t *testing.T) {
	c := NewPersistentCache("test", filepath.Join(t.TempDir(), "absent.yaml"))
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("missing file should not error, got %v", err)
	}
}
