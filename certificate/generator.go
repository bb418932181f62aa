package certificate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/hupe1980/coopdesk/artifact"
	"github.com/hupe1980/coopdesk/core"
	"github.com/hupe1980/coopdesk/internal/util"
	"github.com/hupe1980/coopdesk/logging"
)

// ErrNotEligible is returned when the associate does not meet the conditions
// of the requested certificate.
var ErrNotEligible = errors.New("associate not eligible for certificate")

const referenceAlphabet = "0123456789ABCDEFGHJKLMNPQRSTUVWXYZ"

// Request describes a certificate to issue.
type Request struct {
	SessionID string
	Cedula    string
	Kind      Kind
}

// Certificate is an issued document.
type Certificate struct {
	Reference string    `json:"reference"`
	Kind      Kind      `json:"kind"`
	Cedula    string    `json:"cedula"`
	URI       string    `json:"uri"`
	Body      string    `json:"-"`
	IssuedAt  time.Time `json:"issued_at"`
}

// Generator issues certificates.
type Generator interface {
	Generate(ctx context.Context, req Request) (Certificate, error)
}

// GeneratorOptions configures a TemplateGenerator.
type GeneratorOptions struct {
	// Templates overrides the text/template body of individual kinds.
	Templates map[Kind]string
	Logger    logging.Logger
	Now       func() time.Time
	// NewReference returns the verification code printed on the document.
	NewReference func() (string, error)
}

// TemplateGenerator renders plain-text certificates and stores them in an
// artifact store under the requesting session.
type TemplateGenerator struct {
	ledger    Ledger
	store     core.ArtifactStore
	templates map[Kind]string
	logger    logging.Logger
	now       func() time.Time
	newRef    func() (string, error)
}

// NewTemplateGenerator creates a generator backed by ledger and store.
func NewTemplateGenerator(ledger Ledger, store core.ArtifactStore, optFns ...func(o *GeneratorOptions)) *TemplateGenerator {
	opts := GeneratorOptions{
		Now: func() time.Time { return time.Now().UTC() },
		NewReference: func() (string, error) {
			id, err := gonanoid.Generate(referenceAlphabet, 10)
			if err != nil {
				return "", err
			}

			return "CERT-" + id, nil
		},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	templates := make(map[Kind]string, len(defaultTemplates))
	for k, t := range defaultTemplates {
		templates[k] = t
	}

	for k, t := range opts.Templates {
		templates[k] = t
	}

	return &TemplateGenerator{
		ledger:    ledger,
		store:     store,
		templates: templates,
		logger:    logging.OrNoOp(opts.Logger),
		now:       opts.Now,
		newRef:    opts.NewReference,
	}
}

// Generate implements Generator.
func (g *TemplateGenerator) Generate(ctx context.Context, req Request) (Certificate, error) {
	tmpl, ok := g.templates[req.Kind]
	if !ok {
		return Certificate{}, fmt.Errorf("%w: %q", ErrUnknownKind, req.Kind)
	}

	assoc, err := g.ledger.Associate(ctx, req.Cedula)
	if err != nil {
		return Certificate{}, err
	}

	if req.Kind == KindPazYSalvo && (assoc.OutstandingDebt > 0 || !assoc.ContributionsUpToDate) {
		return Certificate{}, fmt.Errorf("%w: saldo pendiente de %s", ErrNotEligible, util.FormatMoney(assoc.OutstandingDebt))
	}

	ref, err := g.newRef()
	if err != nil {
		return Certificate{}, fmt.Errorf("certificate reference: %w", err)
	}

	issued := g.now()

	body, err := util.RenderTemplate(tmpl, templateData(req.Kind, assoc, ref, issued))
	if err != nil {
		return Certificate{}, fmt.Errorf("render %s certificate: %w", req.Kind, err)
	}

	artifactID := fmt.Sprintf("certificado_%s_%s_%s.txt", req.Kind, req.Cedula, strings.ToLower(ref))

	if err := g.store.Save(ctx, req.SessionID, artifactID, []byte(body)); err != nil {
		return Certificate{}, fmt.Errorf("store certificate: %w", err)
	}

	cert := Certificate{
		Reference: ref,
		Kind:      req.Kind,
		Cedula:    req.Cedula,
		URI:       artifact.URI(req.SessionID, artifactID),
		Body:      body,
		IssuedAt:  issued,
	}

	g.logger.Info(
		"certificate.issued",
		"session", req.SessionID,
		"kind", string(req.Kind),
		"reference", ref,
		"uri", cert.URI,
	)

	return cert, nil
}

func templateData(kind Kind, a Associate, ref string, issued time.Time) map[string]any {
	return map[string]any{
		"title":        kind.Title(),
		"reference":    ref,
		"issued":       issued.Format("2006-01-02"),
		"year":         issued.Year() - 1,
		"name":         a.Name,
		"cedula":       a.Cedula,
		"status":       a.Status,
		"since":        a.Since,
		"up_to_date":   a.ContributionsUpToDate,
		"balance":      a.ContributionBalance,
		"labor_income": a.LaborIncome,
		"pension":      a.PensionContributions,
		"health":       a.HealthContributions,
		"coop":         a.CoopContributions,
		"withholding":  a.WithholdingTax,
		"net":          a.NetCertified(),
	}
}
