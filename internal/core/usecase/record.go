package usecase

import (
	"time"

	"github.com/google/uuid"

	"github.com/korzhov-lab/microscan/internal/core/domain"
)

// rawTextPreviewChars is counted in Unicode scalar units, not bytes.
const rawTextPreviewChars = 600

// BuildRecord assembles an immutable extraction record from already
// validated inputs. Duration is finishedAt-startedAt; callers guarantee
// ordering and a negative duration is deliberately not clamped here.
func BuildRecord(
	fileName string,
	fileSize int64,
	startedAt, finishedAt time.Time,
	entities []domain.MicrobialEntity,
	rawText string,
) domain.ExtractionRecord {
	return domain.ExtractionRecord{
		ID:             uuid.NewString(),
		FileName:       fileName,
		FileSize:       fileSize,
		ProcessedAt:    finishedAt,
		DurationMs:     finishedAt.Sub(startedAt).Milliseconds(),
		Summary:        domain.ComputeSummary(entities),
		Entities:       entities,
		RawTextPreview: truncateRunes(rawText, rawTextPreviewChars),
	}
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
