package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/korzhov-lab/microscan/internal/core/domain"
)

// Projector mirrors completed extraction records into a taxonomy graph:
// organisms, the documents that mention them and their resistance
// descriptors. Projection is best-effort enrichment; callers treat errors
// as non-fatal.
type Projector struct {
	driver neo4j.DriverWithContext
}

func New(ctx context.Context, uri, user, password string) (*Projector, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}
	return &Projector{driver: driver}, nil
}

func (p *Projector) Close(ctx context.Context) error {
	return p.driver.Close(ctx)
}

const projectEntityQuery = `
MERGE (o:Organism {genus: $genus, species: $species})
MERGE (d:Document {record_id: $record_id})
SET d.file_name = $file_name, d.processed_at = $processed_at
MERGE (o)-[m:MENTIONED_IN]->(d)
SET m.strain = $strain, m.confidence = $confidence
FOREACH (r IN $resistance |
	MERGE (res:Resistance {name: r})
	MERGE (o)-[:RESISTANT_TO]->(res)
)
`

func (p *Projector) ProjectRecord(ctx context.Context, record domain.ExtractionRecord) error {
	session := p.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, entity := range record.Entities {
			if entity.Genus == "" && entity.Species == "" {
				continue
			}
			params := map[string]any{
				"genus":        entity.Genus,
				"species":      entity.Species,
				"strain":       entity.Strain,
				"resistance":   entity.Resistance,
				"record_id":    record.ID,
				"file_name":    record.FileName,
				"processed_at": record.ProcessedAt.Format("2006-01-02T15:04:05Z07:00"),
				"confidence":   confidenceValue(entity.Confidence),
			}
			if _, err := tx.Run(ctx, projectEntityQuery, params); err != nil {
				return nil, fmt.Errorf("project entity %s: %w", entity.ID, err)
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("project record %s: %w", record.ID, err)
	}
	return nil
}

func confidenceValue(confidence *float64) any {
	if confidence == nil {
		return nil
	}
	return *confidence
}
