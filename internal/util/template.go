package util

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"unicode"
	"unicode/utf8"
)

var templateFuncs = template.FuncMap{
	"default": func(fallback, val any) any {
		if val == nil || val == "" {
			return fallback
		}

		return val
	},
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
	"title": Title,
	"join": func(sep string, items []any) string {
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = fmt.Sprint(item)
		}

		return strings.Join(parts, sep)
	},
	"money": FormatMoney,
}

// RenderTemplate renders text with text/template and data. It renders both
// system prompts and certificate bodies, so output is never HTML-escaped.
// Text without "{{" is returned unchanged.
func RenderTemplate(text string, data map[string]any) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}

	tmpl, err := template.New("text").Funcs(templateFuncs).Parse(text)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// Title capitalizes every word of s, e.g. "juan PÉREZ" as "Juan Pérez".
func Title(s string) string {
	words := strings.Fields(s)

	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
	}

	return strings.Join(words, " ")
}

// FormatMoney renders an amount in Colombian peso notation, e.g. 1234567.5 as
// "$1.234.568".
func FormatMoney(amount float64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}

	digits := fmt.Sprintf("%.0f", amount)

	var sb strings.Builder

	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			sb.WriteByte('.')
		}

		sb.WriteRune(r)
	}

	if neg {
		return "-$" + sb.String()
	}

	return "$" + sb.String()
}
