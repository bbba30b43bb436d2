package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/korzhov-lab/microscan/internal/core/domain"
	"github.com/korzhov-lab/microscan/internal/core/ports"
)

// Extractor pulls plain text out of stored PDF documents. Pages are
// processed strictly in ascending order and separated by a literal
// page-number marker; any decode error is fatal for that document only.
type Extractor struct {
	storage ports.ObjectStorage
}

func NewExtractor(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Extract(ctx context.Context, doc *domain.Document) (string, error) {
	reader, err := e.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return "", fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read source document: %w", err)
	}

	text, err := ExtractText(raw)
	if err != nil {
		return "", fmt.Errorf("decode pdf %s: %w", doc.Filename, err)
	}
	return text, nil
}

// ExtractText decodes the binary PDF content into one text blob with
// [Page N] markers between pages and surrounding whitespace trimmed.
func ExtractText(content []byte) (string, error) {
	if len(content) == 0 {
		return "", fmt.Errorf("empty pdf content")
	}

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var b strings.Builder
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract page %d: %w", pageNum, err)
		}
		b.WriteString(pageMarker(pageNum))
		b.WriteString(pageText)
	}
	return strings.TrimSpace(b.String()), nil
}

func pageMarker(pageNum int) string {
	return fmt.Sprintf("\n[Page %d]\n", pageNum)
}
