package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/korzhov-lab/microscan/internal/core/domain"
	"github.com/korzhov-lab/microscan/internal/core/ports"
)

// exportSuffix is appended to every export artifact name after the
// original ".pdf" extension is stripped.
const exportSuffix = "_microscan"

// csvHeader is the fixed 12-column layout, one row per entity.
var csvHeader = []string{
	"genus", "species", "subspecies", "serovar", "strain", "mlst_st",
	"taxonomy_id", "source", "resistance", "pathogenicity", "context", "confidence",
}

// ExportService serializes stored records into downloadable artifacts.
type ExportService struct {
	history *HistoryStore
	sheets  ports.SpreadsheetEncoder
}

func NewExportService(history *HistoryStore, sheets ports.SpreadsheetEncoder) *ExportService {
	return &ExportService{history: history, sheets: sheets}
}

func (s *ExportService) Export(ctx context.Context, recordID, format string) (domain.ExportArtifact, error) {
	record, err := s.history.RecordByID(ctx, recordID)
	if err != nil {
		return domain.ExportArtifact{}, err
	}

	switch format {
	case "json":
		data, err := EncodeRecordJSON(record)
		if err != nil {
			return domain.ExportArtifact{}, fmt.Errorf("encode record json: %w", err)
		}
		return domain.ExportArtifact{
			FileName:    ExportFileName(record.FileName, "json"),
			ContentType: "application/json",
			Data:        data,
		}, nil
	case "csv":
		return domain.ExportArtifact{
			FileName:    ExportFileName(record.FileName, "csv"),
			ContentType: "text/csv",
			Data:        EncodeRecordCSV(record),
		}, nil
	case "xlsx":
		data, err := s.sheets.EncodeRecord(record)
		if err != nil {
			return domain.ExportArtifact{}, fmt.Errorf("encode record xlsx: %w", err)
		}
		return domain.ExportArtifact{
			FileName:    ExportFileName(record.FileName, "xlsx"),
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        data,
		}, nil
	default:
		return domain.ExportArtifact{}, domain.WrapError(domain.ErrInvalidInput, "export record",
			fmt.Errorf("unsupported format %q", format))
	}
}

// ExportFileName strips a trailing ".pdf" (case-insensitive) from the
// original file name and appends the product suffix plus extension.
func ExportFileName(original, ext string) string {
	base := original
	if strings.HasSuffix(strings.ToLower(base), ".pdf") {
		base = base[:len(base)-len(".pdf")]
	}
	return base + exportSuffix + "." + ext
}

// EncodeRecordJSON renders the full record pretty-printed with two-space
// indentation.
func EncodeRecordJSON(record domain.ExtractionRecord) ([]byte, error) {
	return json.MarshalIndent(record, "", "  ")
}

// EncodeRecordCSV flattens the record's entities into the fixed table.
// Resistance cells join elements with "; " and are always quoted; other
// cells double internal quotes first and are wrapped only when they
// contain a comma or newline; absent scalars render as empty cells.
func EncodeRecordCSV(record domain.ExtractionRecord) []byte {
	var b strings.Builder
	b.WriteString(strings.Join(csvHeader, ","))
	b.WriteString("\n")

	for _, entity := range record.Entities {
		cells := []string{
			csvScalarCell(entity.Genus),
			csvScalarCell(entity.Species),
			csvScalarCell(entity.Subspecies),
			csvScalarCell(entity.Serovar),
			csvScalarCell(entity.Strain),
			csvScalarCell(entity.MLSTSequenceType),
			csvScalarCell(entity.TaxonomyID),
			csvScalarCell(entity.Source),
			csvListCell(entity.Resistance),
			csvScalarCell(entity.Pathogenicity),
			csvScalarCell(entity.Context),
			csvConfidenceCell(entity.Confidence),
		}
		b.WriteString(strings.Join(cells, ","))
		b.WriteString("\n")
	}
	return []byte(b.String())
}

func csvScalarCell(value string) string {
	if value == "" {
		return ""
	}
	escaped := strings.ReplaceAll(value, `"`, `""`)
	if strings.ContainsAny(value, ",\n") {
		return `"` + escaped + `"`
	}
	return escaped
}

func csvListCell(values []string) string {
	joined := strings.Join(values, "; ")
	return `"` + strings.ReplaceAll(joined, `"`, `""`) + `"`
}

func csvConfidenceCell(confidence *float64) string {
	if confidence == nil {
		return ""
	}
	return strconv.FormatFloat(*confidence, 'g', -1, 64)
}
