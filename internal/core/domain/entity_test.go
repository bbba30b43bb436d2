package domain

import (
	"reflect"
	"testing"
)

func TestComputeSummaryCountsAndFindings(t *testing.T) {
	entities := []MicrobialEntity{
		{
			Genus:         "Salmonella",
			Species:       "enterica",
			Strain:        "S-2041",
			Source:        "poultry",
			Resistance:    []string{"ampicillin", "tetracycline"},
			Pathogenicity: "pathogenic",
		},
		{
			Genus:      "Salmonella",
			Species:    "enterica",
			Resistance: []string{},
		},
		{
			Genus:      "Listeria",
			Species:    "monocytogenes",
			Source:     "dairy",
			Resistance: []string{"penicillin"},
		},
	}

	summary := ComputeSummary(entities)

	if summary.OrganismCount != 3 {
		t.Errorf("organism_count = %d, want 3", summary.OrganismCount)
	}
	if summary.UniqueSpecies != 2 {
		t.Errorf("unique_species = %d, want 2", summary.UniqueSpecies)
	}
	if summary.ResistanceCount != 3 {
		t.Errorf("resistance_count = %d, want 3", summary.ResistanceCount)
	}
	if summary.SourceCount != 2 {
		t.Errorf("source_count = %d, want 2", summary.SourceCount)
	}
	if summary.PathogenicityCount != 1 {
		t.Errorf("pathogenicity_count = %d, want 1", summary.PathogenicityCount)
	}

	wantFindings := []string{
		"Salmonella enterica S-2041",
		"Salmonella enterica",
		"Listeria monocytogenes",
	}
	if !reflect.DeepEqual(summary.KeyFindings, wantFindings) {
		t.Errorf("key_findings = %v, want %v", summary.KeyFindings, wantFindings)
	}
}

func TestComputeSummaryCapsKeyFindings(t *testing.T) {
	entities := make([]MicrobialEntity, 8)
	for i := range entities {
		entities[i] = MicrobialEntity{Genus: "Escherichia", Species: "coli"}
	}

	summary := ComputeSummary(entities)

	if len(summary.KeyFindings) != maxKeyFindings {
		t.Fatalf("key_findings length = %d, want %d", len(summary.KeyFindings), maxKeyFindings)
	}
	if summary.OrganismCount != 8 {
		t.Errorf("organism_count = %d, want 8", summary.OrganismCount)
	}
	if summary.UniqueSpecies != 1 {
		t.Errorf("unique_species = %d, want 1", summary.UniqueSpecies)
	}
}

func TestComputeSummaryUnidentifiedPlaceholder(t *testing.T) {
	summary := ComputeSummary([]MicrobialEntity{
		{Source: "soil sample", Resistance: []string{}},
	})

	if len(summary.KeyFindings) != 1 || summary.KeyFindings[0] != UnidentifiedFinding {
		t.Fatalf("key_findings = %v, want [%q]", summary.KeyFindings, UnidentifiedFinding)
	}
	if summary.UniqueSpecies != 0 {
		t.Errorf("unique_species = %d, want 0", summary.UniqueSpecies)
	}
}

func TestComputeSummaryGenusOnlySpecies(t *testing.T) {
	// A genus without a species still counts as one distinct name.
	summary := ComputeSummary([]MicrobialEntity{
		{Genus: "Campylobacter", Resistance: []string{}},
		{Genus: "Campylobacter", Species: "jejuni", Resistance: []string{}},
	})

	if summary.UniqueSpecies != 2 {
		t.Errorf("unique_species = %d, want 2", summary.UniqueSpecies)
	}
}

func TestComputeSummaryEmpty(t *testing.T) {
	summary := ComputeSummary(nil)

	if summary.OrganismCount != 0 || summary.UniqueSpecies != 0 {
		t.Errorf("unexpected counts: %+v", summary)
	}
	if summary.KeyFindings == nil || len(summary.KeyFindings) != 0 {
		t.Errorf("key_findings = %v, want empty non-nil list", summary.KeyFindings)
	}
}
