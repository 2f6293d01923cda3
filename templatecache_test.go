package ipfix

import (
	"context"
	"testing"
)

func dummyField() FieldSpecifier {
	return FieldSpecifier{InformationElementId: 210, Length: 4}
}

func TestEphemeralCacheNormalCase(t *testing.T) {
	ctx := context.Background()
	c := NewEphemeralCache()

	tmpl := Template{
		Key:    TemplateKey{ObservationDomainId: 0, TemplateId: 256},
		Fields: []FieldSpecifier{dummyField()},
	}

	outcome, err := c.UpdateWith(ctx, tmpl)
	if err != nil || outcome != Addition {
		t.Fatalf("got %v, %v, want Addition", outcome, err)
	}
	got, ok, _ := c.Get(ctx, tmpl.Key)
	if !ok || !got.EqualDefinition(tmpl) {
		t.Fatalf("expected cached template to match, got %+v", got)
	}

	// identical redefinition
	outcome, err = c.UpdateWith(ctx, tmpl)
	if err != nil || outcome != Redefinition {
		t.Fatalf("got %v, %v, want Redefinition", outcome, err)
	}

	// withdrawal (field count 0)
	withdrawal := Template{Key: tmpl.Key}
	outcome, err = c.UpdateWith(ctx, withdrawal)
	if err != nil || outcome != Withdrawal {
		t.Fatalf("got %v, %v, want Withdrawal", outcome, err)
	}
	if _, ok, _ := c.Get(ctx, tmpl.Key); ok {
		t.Fatal("expected template gone after withdrawal")
	}
}

func TestEphemeralCacheSpuriousWithdrawal(t *testing.T) {
	ctx := context.Background()
	c := NewEphemeralCache()

	withdrawal := Template{Key: TemplateKey{ObservationDomainId: 0, TemplateId: 256}}
	outcome, err := c.UpdateWith(ctx, withdrawal)
	if err != nil || outcome != WithdrawalUnknown {
		t.Fatalf("got %v, %v, want WithdrawalUnknown", outcome, err)
	}
}

func TestEphemeralCacheConflictingRedefinitionEvicts(t *testing.T) {
	ctx := context.Background()
	c := NewEphemeralCache()

	key := TemplateKey{ObservationDomainId: 0, TemplateId: 256}
	first := Template{Key: key, Fields: []FieldSpecifier{{InformationElementId: 8, Length: 4}}}
	second := Template{Key: key, Fields: []FieldSpecifier{{InformationElementId: 12, Length: 4}}}

	if _, err := c.UpdateWith(ctx, first); err != nil {
		t.Fatal(err)
	}
	outcome, err := c.UpdateWith(ctx, second)
	if err != nil || outcome != RedefinitionDifferent {
		t.Fatalf("got %v, %v, want RedefinitionDifferent", outcome, err)
	}
	if _, ok, _ := c.Get(ctx, key); ok {
		t.Fatal("expected both conflicting templates evicted")
	}
}

func TestEphemeralCachePanicsOnSubDataTemplateId(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for template id < 256")
		}
	}()
	c := NewEphemeralCache()
	_, _ = c.UpdateWith(context.Background(), Template{Key: TemplateKey{TemplateId: 0}})
}

func TestEphemeralCacheObservationDomainScoping(t *testing.T) {
	ctx := context.Background()
	c := NewEphemeralCache()

	a := Template{Key: TemplateKey{ObservationDomainId: 1, TemplateId: 256}, Fields: []FieldSpecifier{dummyField()}}
	b := Template{Key: TemplateKey{ObservationDomainId: 2, TemplateId: 256}, Fields: []FieldSpecifier{{InformationElementId: 8, Length: 4}}}

	if _, err := c.UpdateWith(ctx, a); err != nil {
		t.Fatal(err)
	}
	if _, err := c.UpdateWith(ctx, b); err != nil {
		t.Fatal(err)
	}

	got, ok, _ := c.Get(ctx, a.Key)
	if !ok || !got.EqualDefinition(a) {
		t.Fatal("observation domain 1's template was clobbered by domain 2's")
	}
}
