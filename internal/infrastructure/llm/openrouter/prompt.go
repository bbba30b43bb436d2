package openrouter

// buildExtractionPrompt embeds the full document text under a fixed
// instruction describing the exact JSON shape the normalizer accepts.
func buildExtractionPrompt(text string) string {
	return `You are a microbiology literature curator.
Extract every microbial entity mentioned in the document below.
Return strict JSON object with this shape:
{
  "entities": [
    {
      "genus": string or null,
      "species": string or null,
      "subspecies": string or null,
      "serovar": string or null,
      "strain": string or null,
      "mlst_st": string or null,
      "taxonomy_id": string or null,
      "source": string or null,
      "resistance": array of strings,
      "pathogenicity": string or null,
      "context": {"snippet": string} or null,
      "confidence": number between 0 and 1,
      "note": string or null
    }
  ],
  "summary": {"key_findings": array of strings}
}
No markdown, no extra keys, no prose outside the JSON object.

Document:
` + text
}
