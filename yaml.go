package ipfix

import (
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// templateExport is the on-disk shape the persistent cache reads and
// writes: a named, timestamped snapshot of every template a cache held at
// the time it was dumped.
type templateExport struct {
	Name       string             `yaml:"name"`
	ExportedAt time.Time          `yaml:"exportedAt"`
	Templates  []exportedTemplate `yaml:"templates"`
}

type exportedTemplate struct {
	ObservationDomainId uint32           `yaml:"observationDomainId"`
	TemplateId          uint16           `yaml:"templateId"`
	ScopeFieldCount     uint16           `yaml:"scopeFieldCount,omitempty"`
	Fields              []FieldSpecifier `yaml:"fields"`
	CreatedAt           time.Time        `yaml:"createdAt"`
}

func toExport(name string, templates map[TemplateKey]Template) templateExport {
	out := templateExport{Name: name, ExportedAt: time.Now()}
	for key, tmpl := range templates {
		out.Templates = append(out.Templates, exportedTemplate{
			ObservationDomainId: key.ObservationDomainId,
			TemplateId:          key.TemplateId,
			ScopeFieldCount:     tmpl.ScopeFieldCount,
			Fields:              tmpl.Fields,
			CreatedAt:           tmpl.CreatedAt,
		})
	}
	return out
}

func fromExport(exp templateExport) map[TemplateKey]Template {
	out := make(map[TemplateKey]Template, len(exp.Templates))
	for _, et := range exp.Templates {
		key := TemplateKey{ObservationDomainId: et.ObservationDomainId, TemplateId: et.TemplateId}
		out[key] = Template{
			Key:             key,
			ScopeFieldCount: et.ScopeFieldCount,
			Fields:          et.Fields,
			CreatedAt:       et.CreatedAt,
		}
	}
	return out
}

func readTemplateYAML(r io.Reader) (templateExport, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var exp templateExport
	if err := dec.Decode(&exp); err != nil {
		return templateExport{}, err
	}
	return exp, nil
}

func writeTemplateYAML(w io.Writer, exp templateExport) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(exp); err != nil {
		return err
	}
	return enc.Close()
}
