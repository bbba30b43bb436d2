package usecase

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/korzhov-lab/microscan/internal/core/domain"
)

// entityStringFields are coerced the same way: trimmed when present,
// absent/null stays absent.
var entityStringFields = []struct {
	key    string
	assign func(*domain.MicrobialEntity, string)
}{
	{"genus", func(e *domain.MicrobialEntity, v string) { e.Genus = v }},
	{"species", func(e *domain.MicrobialEntity, v string) { e.Species = v }},
	{"subspecies", func(e *domain.MicrobialEntity, v string) { e.Subspecies = v }},
	{"serovar", func(e *domain.MicrobialEntity, v string) { e.Serovar = v }},
	{"strain", func(e *domain.MicrobialEntity, v string) { e.Strain = v }},
	{"mlst_st", func(e *domain.MicrobialEntity, v string) { e.MLSTSequenceType = v }},
	{"source", func(e *domain.MicrobialEntity, v string) { e.Source = v }},
	{"pathogenicity", func(e *domain.MicrobialEntity, v string) { e.Pathogenicity = v }},
}

// NormalizeEntities validates and coerces the model's untrusted JSON into
// typed entities. Validation is all-or-nothing at the document level: any
// malformed entity fails the whole response, nothing is silently dropped.
// The summary block from the model is accepted but discarded; summaries are
// always recomputed by the record builder. Each surviving entity gets a
// freshly generated id, never one from the input.
func NormalizeEntities(raw []byte) ([]domain.MicrobialEntity, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, domain.WrapError(domain.ErrValidation, "parse model response", err)
	}

	rawEntities, present := doc["entities"]
	if !present || rawEntities == nil {
		return []domain.MicrobialEntity{}, nil
	}
	list, ok := rawEntities.([]any)
	if !ok {
		return nil, domain.WrapError(domain.ErrValidation, "normalize entities",
			errors.New("field entities is not a list"))
	}

	entities := make([]domain.MicrobialEntity, 0, len(list))
	for i, item := range list {
		entity, err := normalizeEntity(item)
		if err != nil {
			return nil, domain.WrapError(domain.ErrValidation, "normalize entities",
				fmt.Errorf("entity %d: %w", i, err))
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

func normalizeEntity(item any) (domain.MicrobialEntity, error) {
	obj, ok := item.(map[string]any)
	if !ok {
		return domain.MicrobialEntity{}, errors.New("not an object")
	}

	entity := domain.MicrobialEntity{
		ID:         uuid.NewString(),
		Resistance: []string{},
	}

	for _, field := range entityStringFields {
		value, err := stringField(obj, field.key)
		if err != nil {
			return domain.MicrobialEntity{}, err
		}
		field.assign(&entity, value)
	}

	taxonomyID, err := taxonomyIDField(obj)
	if err != nil {
		return domain.MicrobialEntity{}, err
	}
	entity.TaxonomyID = taxonomyID

	resistance, err := resistanceField(obj)
	if err != nil {
		return domain.MicrobialEntity{}, err
	}
	entity.Resistance = resistance

	snippet, err := contextField(obj)
	if err != nil {
		return domain.MicrobialEntity{}, err
	}
	entity.Context = snippet

	confidence, err := confidenceField(obj)
	if err != nil {
		return domain.MicrobialEntity{}, err
	}
	entity.Confidence = confidence

	// The optional free-text note field is accepted but discarded, as are
	// any unknown extra fields.
	return entity, nil
}

func stringField(obj map[string]any, key string) (string, error) {
	value, present := obj[key]
	if !present || value == nil {
		return "", nil
	}
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("field %s: expected string, got %T", key, value)
	}
	return strings.TrimSpace(s), nil
}

func taxonomyIDField(obj map[string]any) (string, error) {
	value, present := obj["taxonomy_id"]
	if !present || value == nil {
		return "", nil
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v), nil
	case json.Number:
		return v.String(), nil
	default:
		return "", fmt.Errorf("field taxonomy_id: expected string or number, got %T", value)
	}
}

func resistanceField(obj map[string]any) ([]string, error) {
	value, present := obj["resistance"]
	if !present || value == nil {
		return []string{}, nil
	}
	switch v := value.(type) {
	case string:
		if v == "" {
			return []string{}, nil
		}
		return []string{v}, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, elem := range v {
			if elem == nil {
				continue
			}
			s, ok := elem.(string)
			if !ok {
				return nil, fmt.Errorf("field resistance: expected string element, got %T", elem)
			}
			if s == "" {
				continue
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("field resistance: expected string or list, got %T", value)
	}
}

func contextField(obj map[string]any) (string, error) {
	value, present := obj["context"]
	if !present || value == nil {
		return "", nil
	}
	ctxObj, ok := value.(map[string]any)
	if !ok {
		return "", fmt.Errorf("field context: expected object with snippet, got %T", value)
	}
	snippet, ok := ctxObj["snippet"].(string)
	if !ok {
		return "", errors.New("field context: snippet is missing or not a string")
	}
	return snippet, nil
}

func confidenceField(obj map[string]any) (*float64, error) {
	value, present := obj["confidence"]
	if !present || value == nil {
		return nil, nil
	}
	num, ok := value.(json.Number)
	if !ok {
		return nil, fmt.Errorf("field confidence: expected number, got %T", value)
	}
	f, err := num.Float64()
	if err != nil {
		return nil, fmt.Errorf("field confidence: %w", err)
	}
	if f < 0 || f > 1 {
		return nil, fmt.Errorf("field confidence: %v outside [0,1]", f)
	}
	return &f, nil
}
