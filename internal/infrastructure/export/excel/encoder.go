package excel

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/korzhov-lab/microscan/internal/core/domain"
)

const (
	entitiesSheet = "Entities"
	summarySheet  = "Summary"
)

var entityHeaders = []string{
	"Genus", "Species", "Subspecies", "Serovar", "Strain", "MLST ST",
	"Taxonomy ID", "Source", "Resistance", "Pathogenicity", "Context", "Confidence",
}

// Encoder renders an extraction record as an XLSX workbook with one row
// per entity plus a summary sheet.
type Encoder struct{}

func NewEncoder() *Encoder {
	return &Encoder{}
}

func (e *Encoder) EncodeRecord(record domain.ExtractionRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(entitiesSheet)
	if err != nil {
		return nil, fmt.Errorf("create entities sheet: %w", err)
	}
	f.SetActiveSheet(index)

	for col, header := range entityHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(entitiesSheet, cell, header); err != nil {
			return nil, fmt.Errorf("write header %s: %w", header, err)
		}
	}

	for rowIdx, entity := range record.Entities {
		values := []any{
			entity.Genus, entity.Species, entity.Subspecies, entity.Serovar,
			entity.Strain, entity.MLSTSequenceType, entity.TaxonomyID, entity.Source,
			strings.Join(entity.Resistance, "; "), entity.Pathogenicity, entity.Context,
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, rowIdx+2)
			if err := f.SetCellValue(entitiesSheet, cell, value); err != nil {
				return nil, fmt.Errorf("write entity row %d: %w", rowIdx+2, err)
			}
		}
		if entity.Confidence != nil {
			cell, _ := excelize.CoordinatesToCellName(len(values)+1, rowIdx+2)
			if err := f.SetCellValue(entitiesSheet, cell, *entity.Confidence); err != nil {
				return nil, fmt.Errorf("write confidence row %d: %w", rowIdx+2, err)
			}
		}
	}

	if err := writeSummary(f, record); err != nil {
		return nil, err
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSummary(f *excelize.File, record domain.ExtractionRecord) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}

	rows := [][]any{
		{"File", record.FileName},
		{"Processed at", record.ProcessedAt.Format("2006-01-02 15:04:05")},
		{"Duration (ms)", record.DurationMs},
		{"Organisms", record.Summary.OrganismCount},
		{"Unique species", record.Summary.UniqueSpecies},
		{"Resistance markers", record.Summary.ResistanceCount},
		{"With source", record.Summary.SourceCount},
		{"With pathogenicity", record.Summary.PathogenicityCount},
		{"Key findings", strings.Join(record.Summary.KeyFindings, "; ")},
	}
	for rowIdx, row := range rows {
		for col, value := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, rowIdx+1)
			if err := f.SetCellValue(summarySheet, cell, value); err != nil {
				return fmt.Errorf("write summary row %d: %w", rowIdx+1, err)
			}
		}
	}
	return nil
}
