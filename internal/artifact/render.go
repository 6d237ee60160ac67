package artifact

import (
	"bytes"
	"fmt"
	"text/template"
)

var artifactTemplate = template.Must(template.New("algorithm").Parse(`xGoals Algorithm Version {{.Version}}
Generated on: {{.GeneratedAt.Format "2006-01-02 15:04:05"}}

Formula: {{.Formula}}
{{- with .Description}}
  {{.}}
{{- end}}

Parameters:
  home_weight   {{printf "%.2f" .Parameters.HomeWeight}}
  away_weight   {{printf "%.2f" .Parameters.AwayWeight}}
  off_weight    {{printf "%.2f" .Parameters.OffWeight}}
  def_weight    {{printf "%.2f" .Parameters.DefWeight}}
  league_factor {{printf "%.2f" .Parameters.LeagueFactor}}

Evaluation:
  average error {{printf "%.4f" .AvgError}}
  accuracy      {{printf "%.2f" .Accuracy}}%
  matches       {{.Scored}}
{{- with .Session}}
  session       {{.}}{{if $.Iteration}} iteration {{$.Iteration}}{{end}}
{{- end}}
`))

// Render formats rec as the human-readable algorithm description
func Render(rec Record) (string, error) {
	var buf bytes.Buffer
	if err := artifactTemplate.Execute(&buf, rec); err != nil {
		return "", fmt.Errorf("render algorithm v%s: %w", rec.Version, err)
	}
	return buf.String(), nil
}
