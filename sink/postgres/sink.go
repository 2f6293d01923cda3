// Package postgres is an ipfix.Sink that persists decoded records into
// a Postgres flows table via pgx.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/flowlens/ipfixcore"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Sink writes every accepted record as one row: the observation domain
// and template id it was decoded against, and its field values rendered
// to JSON via ipfix.Value's Render hooks (Value.Render/MarshalJSON),
// keyed by information element id the same way DataRecord.Map is.
type Sink struct {
	pool  *pgxpool.Pool
	table string
}

var _ ipfix.Sink = (*Sink)(nil)

// New returns a Sink that inserts into table (must already exist; see
// Schema for the expected shape).
func New(pool *pgxpool.Pool, table string) *Sink {
	return &Sink{pool: pool, table: table}
}

// Schema is the DDL this sink's rows expect. Collectord callers run it
// once at startup; it is not applied automatically so operators keep
// control over partitioning/indexing choices on what can be a very
// high-volume table.
const Schema = `
CREATE TABLE IF NOT EXISTS %s (
	id                    bigserial PRIMARY KEY,
	observation_domain_id bigint      NOT NULL,
	template_id           integer     NOT NULL,
	received_at           timestamptz NOT NULL DEFAULT now(),
	fields                jsonb       NOT NULL
)`

func (s *Sink) Accept(ctx context.Context, rec ipfix.Record) error {
	fields := make(map[string]any, len(rec.Data.Fields))
	for id, v := range rec.Data.Map() {
		fields[fmt.Sprintf("%d", id)] = v.Render()
	}
	body, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("rendering record fields as json: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (observation_domain_id, template_id, fields) VALUES ($1, $2, $3)`, s.table),
		rec.Template.Key.ObservationDomainId, rec.Template.Key.TemplateId, body,
	)
	if err != nil {
		return fmt.Errorf("inserting decoded record: %w", err)
	}
	return nil
}
