package domain

import "strings"

// MicrobialEntity is one recognized biological/clinical fact extracted
// from a document. Only ID is guaranteed; every other field may be absent.
type MicrobialEntity struct {
	ID               string   `json:"id"`
	Genus            string   `json:"genus,omitempty"`
	Species          string   `json:"species,omitempty"`
	Subspecies       string   `json:"subspecies,omitempty"`
	Serovar          string   `json:"serovar,omitempty"`
	Strain           string   `json:"strain,omitempty"`
	MLSTSequenceType string   `json:"mlst_st,omitempty"`
	TaxonomyID       string   `json:"taxonomy_id,omitempty"`
	Source           string   `json:"source,omitempty"`
	Resistance       []string `json:"resistance"`
	Pathogenicity    string   `json:"pathogenicity,omitempty"`
	Context          string   `json:"context,omitempty"`
	Confidence       *float64 `json:"confidence,omitempty"`
}

// ExtractionSummary is a derived aggregate over one entity list. It is
// always recomputed from the entities, never trusted from the model.
type ExtractionSummary struct {
	OrganismCount      int      `json:"organism_count"`
	UniqueSpecies      int      `json:"unique_species"`
	ResistanceCount    int      `json:"resistance_count"`
	SourceCount        int      `json:"source_count"`
	PathogenicityCount int      `json:"pathogenicity_count"`
	KeyFindings        []string `json:"key_findings"`
}

const (
	maxKeyFindings = 5

	// UnidentifiedFinding labels an entity that carries no usable
	// genus/species/strain parts.
	UnidentifiedFinding = "Unidentified organism"
)

func ComputeSummary(entities []MicrobialEntity) ExtractionSummary {
	summary := ExtractionSummary{
		OrganismCount: len(entities),
		KeyFindings:   []string{},
	}

	seenSpecies := make(map[string]struct{})
	for _, entity := range entities {
		name := strings.TrimSpace(entity.Genus + " " + entity.Species)
		if name != "" {
			seenSpecies[name] = struct{}{}
		}
		summary.ResistanceCount += len(entity.Resistance)
		if entity.Source != "" {
			summary.SourceCount++
		}
		if entity.Pathogenicity != "" {
			summary.PathogenicityCount++
		}
		if len(summary.KeyFindings) < maxKeyFindings {
			summary.KeyFindings = append(summary.KeyFindings, keyFinding(entity))
		}
	}
	summary.UniqueSpecies = len(seenSpecies)

	return summary
}

func keyFinding(entity MicrobialEntity) string {
	parts := make([]string, 0, 3)
	for _, part := range []string{entity.Genus, entity.Species, entity.Strain} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return UnidentifiedFinding
	}
	return strings.Join(parts, " ")
}
