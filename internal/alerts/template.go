package alerts

import (
	"bytes"
	"errors"
	"text/template"
)

const DefaultTemplate = `[Reading Anomaly]
Metering Point: {{.MeteringPoint}}
Timestamp: {{.Timestamp}}
Source: {{.Source}}
Value: {{.ValueKWh}} kWh
Baseline: {{.MeanKWh}} kWh (stddev {{.StdDevKWh}})
Z-Score: {{.ZScore}}
Suggestion: {{.Suggestion}}`

// TemplateData provides fields for rendering alert content.
type TemplateData struct {
	MeteringPoint string
	Timestamp     string
	Source        string
	ValueKWh      string
	MeanKWh       string
	StdDevKWh     string
	ZScore        string
	Suggestion    string
}

// Template renders alert content.
type Template struct {
	tpl *template.Template
}

// NewTemplate parses an alert template, falling back to DefaultTemplate.
func NewTemplate(tpl string) (*Template, error) {
	if tpl == "" {
		tpl = DefaultTemplate
	}
	parsed, err := template.New("reading-alert").Parse(tpl)
	if err != nil {
		return nil, err
	}
	return &Template{tpl: parsed}, nil
}

// Render applies the template to data.
func (t *Template) Render(data TemplateData) (string, error) {
	if t == nil || t.tpl == nil {
		return "", errors.New("alert template: nil")
	}
	var buf bytes.Buffer
	if err := t.tpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
