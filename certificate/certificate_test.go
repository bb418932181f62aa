package certificate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/coopdesk/artifact"
)

func newTestGenerator(store *artifact.InMemoryStore) *TemplateGenerator {
	return NewTemplateGenerator(SampleLedger(), store, func(o *GeneratorOptions) {
		o.Now = func() time.Time { return time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) }
		o.NewReference = func() (string, error) { return "CERT-TEST000001", nil }
	})
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"tributario", KindTributario},
		{" APORTES ", KindAportes},
		{"Paz y salvo", KindPazYSalvo},
		{"paz-y-salvo", KindPazYSalvo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseKind("afiliacion_vip")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestTemplateGenerator_Tributario(t *testing.T) {
	store := artifact.NewInMemoryStore()
	gen := newTestGenerator(store)

	cert, err := gen.Generate(context.Background(), Request{SessionID: "s1", Cedula: "12345678", Kind: KindTributario})
	require.NoError(t, err)

	assert.Equal(t, "CERT-TEST000001", cert.Reference)
	assert.Equal(t, "artifact://s1/certificado_tributario_12345678_cert-test000001.txt", cert.URI)
	assert.Contains(t, cert.Body, "CERTIFICADO TRIBUTARIO")
	assert.Contains(t, cert.Body, "Año gravable 2025")
	assert.Contains(t, cert.Body, "Juan Pérez García")
	assert.Contains(t, cert.Body, "$48.000.000")
	assert.Contains(t, cert.Body, "$41.110.000")

	sessionID, id, err := artifact.ParseURI(cert.URI)
	require.NoError(t, err)

	data, err := store.Get(context.Background(), sessionID, id)
	require.NoError(t, err)
	assert.Equal(t, cert.Body, string(data))
}

func TestTemplateGenerator_Aportes(t *testing.T) {
	gen := newTestGenerator(artifact.NewInMemoryStore())

	cert, err := gen.Generate(context.Background(), Request{SessionID: "s1", Cedula: "87654321", Kind: KindAportes})
	require.NoError(t, err)

	assert.Contains(t, cert.Body, "CERTIFICADO DE APORTES")
	assert.Contains(t, cert.Body, "$22.500.000")
	assert.Contains(t, cert.Body, "AL DÍA")
	assert.Contains(t, cert.Body, "ACTIVO")
}

func TestTemplateGenerator_PazYSalvo(t *testing.T) {
	store := artifact.NewInMemoryStore()
	gen := newTestGenerator(store)

	cert, err := gen.Generate(context.Background(), Request{SessionID: "s1", Cedula: "12345678", Kind: KindPazYSalvo})
	require.NoError(t, err)
	assert.Contains(t, cert.Body, "PAZ Y SALVO")

	_, err = gen.Generate(context.Background(), Request{SessionID: "s2", Cedula: "87654321", Kind: KindPazYSalvo})
	require.ErrorIs(t, err, ErrNotEligible)
	assert.Contains(t, err.Error(), "$4.300.000")

	ids, err := store.List(context.Background(), "s2")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestTemplateGenerator_Errors(t *testing.T) {
	gen := newTestGenerator(artifact.NewInMemoryStore())

	_, err := gen.Generate(context.Background(), Request{SessionID: "s1", Cedula: "00000000", Kind: KindAportes})
	assert.ErrorIs(t, err, ErrAssociateNotFound)

	_, err = gen.Generate(context.Background(), Request{SessionID: "s1", Cedula: "12345678", Kind: "afiliacion"})
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestTemplateGenerator_CustomTemplate(t *testing.T) {
	gen := NewTemplateGenerator(SampleLedger(), artifact.NewInMemoryStore(), func(o *GeneratorOptions) {
		o.Templates = map[Kind]string{KindAportes: "{{ .name }} / {{ .reference }}"}
		o.NewReference = func() (string, error) { return "R1", nil }
	})

	cert, err := gen.Generate(context.Background(), Request{SessionID: "s1", Cedula: "12345678", Kind: KindAportes})
	require.NoError(t, err)
	assert.Equal(t, "Juan Pérez García / R1", cert.Body)
}

func TestTemplateGenerator_DefaultReference(t *testing.T) {
	gen := NewTemplateGenerator(SampleLedger(), artifact.NewInMemoryStore())

	a, err := gen.Generate(context.Background(), Request{SessionID: "s1", Cedula: "12345678", Kind: KindAportes})
	require.NoError(t, err)

	b, err := gen.Generate(context.Background(), Request{SessionID: "s1", Cedula: "12345678", Kind: KindAportes})
	require.NoError(t, err)

	assert.Regexp(t, `^CERT-[0-9A-Z]{10}$`, a.Reference)
	assert.NotEqual(t, a.Reference, b.Reference)
}
