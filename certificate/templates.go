package certificate

const header = `COOTRADECUN
Cooperativa de Trabajadores de Cundinamarca
NIT: 800.123.456-7

{{ .title }}
`

const footer = `
Fecha de expedición: {{ .issued }}
Código de verificación: {{ .reference }}

Calle 100 #10-20, Bogotá D.C. | (601) 555-0100 | www.cootradecun.com
`

var defaultTemplates = map[Kind]string{
	KindTributario: header + `Año gravable {{ .year }}

Nombre completo: {{ .name }}
Número de cédula: {{ .cedula }}

CONCEPTO                              VALOR
Ingresos laborales                    {{ money .labor_income }}
Aportes fondo de pensiones (AFP)    - {{ money .pension }}
Aportes a salud (EPS)               - {{ money .health }}
Aportes a la cooperativa            - {{ money .coop }}
Retención en la fuente              - {{ money .withholding }}

VALOR NETO CERTIFICADO                {{ money .net }}

Este certificado es válido para efectos de la declaración de renta del año gravable {{ .year }}.
` + footer,

	KindAportes: header + `
La Cooperativa de Trabajadores de Cundinamarca certifica que {{ .name }}, identificado(a) con cédula {{ .cedula }},
se encuentra afiliado(a) desde {{ .since }} con estado {{ upper .status }}.

Saldo de aportes: {{ money .balance }}
Estado de aportes: {{ if .up_to_date }}AL DÍA{{ else }}PENDIENTE{{ end }}

Este certificado se expide a solicitud del interesado para los fines que estime convenientes.
` + footer,

	KindPazYSalvo: header + `
La Cooperativa de Trabajadores de Cundinamarca hace constar que {{ .name }}, identificado(a) con cédula {{ .cedula }},
se encuentra a paz y salvo por todo concepto con la cooperativa a la fecha de expedición.
` + footer,
}
