package knowledge

import (
	"fmt"
	"strings"
)

// NoResultsText is returned when a search finds nothing.
const NoResultsText = "No se encontró información relevante."

var titles = map[string]string{
	"atencion_asociado": "Atención al Asociado",
	"nominas":           "Nóminas",
	"vivienda":          "Vivienda",
	"credito":           "Crédito",
	"convenios":         "Convenios",
	"tesoreria":         "Tesorería",
	"contabilidad":      "Contabilidad",
	"cartera":           "Cartera",
	"certificados":      "Certificados",
}

// Title returns the display name of a department.
func Title(department string) string {
	if t, ok := titles[department]; ok {
		return t
	}

	return department
}

// Format renders results with their source for the model.
func Format(department string, results []Result) string {
	if len(results) == 0 {
		return NoResultsText
	}

	parts := make([]string, 0, len(results))

	for _, r := range results {
		header := "Fuente: " + Title(department)
		if r.Heading != "" {
			header += ", Sección: " + r.Heading
		}

		parts = append(parts, fmt.Sprintf("[%s]\n%s", header, r.Content))
	}

	return strings.Join(parts, "\n\n---\n\n")
}
