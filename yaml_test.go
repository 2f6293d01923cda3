package ipfix

import (
	"bytes"
	"testing"
	"time"
)

func TestTemplateYAMLRoundTrip(t *testing.T) {
	templates := map[TemplateKey]Template{
		{ObservationDomainId: 1, TemplateId: 256}: {
			Key:       TemplateKey{ObservationDomainId: 1, TemplateId: 256},
			Fields:    []FieldSpecifier{{InformationElementId: 8, Length: 4}, {InformationElementId: 12, Length: 4}},
			CreatedAt: time.Now().Truncate(time.Second),
		},
		{ObservationDomainId: 1, TemplateId: 257}: {
			Key:             TemplateKey{ObservationDomainId: 1, TemplateId: 257},
			ScopeFieldCount: 1,
			Fields:          []FieldSpecifier{{InformationElementId: 145, Length: 2}, {InformationElementId: 1, Length: 8}},
			CreatedAt:       time.Now().Truncate(time.Second),
		},
	}

	var buf bytes.Buffer
	if err := writeTemplateYAML(&buf, toExport("snapshot", templates)); err != nil {
		t.Fatal(err)
	}

	exp, err := readTemplateYAML(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if exp.Name != "snapshot" {
		t.Fatalf("got name %q", exp.Name)
	}

	got := fromExport(exp)
	if len(got) != len(templates) {
		t.Fatalf("got %d templates, want %d", len(got), len(templates))
	}
	for key, want := range templates {
		tmpl, ok := got[key]
		if !ok {
			t.Fatalf("missing template %+v", key)
		}
		if !tmpl.EqualDefinition(want) {
			t.Fatalf("got %+v, want %+v", tmpl, want)
		}
	}
}

func TestReadTemplateYAMLRejectsUnknownFields(t *testing.T) {
	src := bytes.NewBufferString("name: bad\nbogusField: true\ntemplates: []\n")
	if _, err := readTemplateYAML(src); err == nil {
		t.Fatal("expected unknown field to be rejected")
	}
}
