package diag

import "encoding/json"

// jsonSpan and jsonDiagnostic mirror Diagnostic/Span in a stable wire shape,
// independent of internal field names, so external collaborators (LSP,
// registry) don't break when Diagnostic or Span are refactored.
type jsonSpan struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	File  string `json:"file"`
}

type jsonDiagnostic struct {
	Code      string     `json:"code"`
	Severity  string     `json:"severity"`
	Message   string     `json:"message"`
	Primary   jsonSpan   `json:"primary_span"`
	Secondary []jsonSpan `json:"secondary_spans"`
	Help      *string    `json:"help,omitempty"`
}

func toJSONSpan(s Span) jsonSpan {
	return jsonSpan{Start: s.Start, End: s.End, File: s.File}
}

// MarshalJSON encodes a Diagnostic to the external wire contract.
func (d *Diagnostic) MarshalJSON() ([]byte, error) {
	jd := jsonDiagnostic{
		Code:     d.Code,
		Severity: d.Severity.String(),
		Message:  d.Message,
		Primary:  toJSONSpan(d.Primary),
	}
	for _, s := range d.Secondary {
		jd.Secondary = append(jd.Secondary, toJSONSpan(s))
	}
	if d.Help != "" {
		help := d.Help
		jd.Help = &help
	}
	return json.Marshal(jd)
}

// EncodeList renders a diagnostic list as a JSON array, the shape the LSP
// adapter and registry service both consume.
func EncodeList(list List) ([]byte, error) {
	return json.Marshal(list)
}
