package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/coopdesk/certificate"
	"github.com/hupe1980/coopdesk/logging"
	"github.com/hupe1980/coopdesk/session"
)

// Options configures a Gate.
type Options struct {
	// Locks serializes operations on the same key. Share it between gates of
	// one process; configure a distributed locker for several processes.
	Locks       *session.Locks
	CountryCode string
	Logger      logging.Logger
	Now         func() time.Time
}

// Gate runs the request/verify/issue flow.
type Gate struct {
	store       RecordStore
	directory   Directory
	verifier    Verifier
	generator   certificate.Generator
	locks       *session.Locks
	countryCode string
	logger      logging.Logger
	now         func() time.Time
}

// NewGate creates a Gate.
func NewGate(store RecordStore, directory Directory, verifier Verifier, generator certificate.Generator, optFns ...func(o *Options)) *Gate {
	opts := Options{
		CountryCode: DefaultCountryCode,
		Now:         func() time.Time { return time.Now().UTC() },
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Locks == nil {
		opts.Locks = session.NewLocks()
	}

	return &Gate{
		store:       store,
		directory:   directory,
		verifier:    verifier,
		generator:   generator,
		locks:       opts.Locks,
		countryCode: opts.CountryCode,
		logger:      logging.OrNoOp(opts.Logger),
		now:         opts.Now,
	}
}

func (g *Gate) withLock(ctx context.Context, key Key, fn func(context.Context) error) error {
	return g.locks.WithLock(ctx, "otp:"+key.String(), fn)
}

// RequestCode starts a verification for key, replacing any earlier one, and
// sends a code to the associate's contact. It returns the masked contact.
// When delivery fails the record is removed again.
func (g *Gate) RequestCode(ctx context.Context, key Key) (string, error) {
	var masked string

	err := g.withLock(ctx, key, func(ctx context.Context) error {
		raw, err := g.directory.Contact(ctx, key.Cedula)
		if err != nil {
			return err
		}

		contact := FormatPhone(raw, g.countryCode)
		masked = MaskContact(contact)

		if err := g.store.Put(ctx, key, Record{Contact: contact, CreatedAt: g.now()}); err != nil {
			return err
		}

		if err := g.verifier.Send(ctx, contact); err != nil {
			if derr := g.store.Delete(context.WithoutCancel(ctx), key); derr != nil {
				g.logger.Error("verification.record.cleanup_failed", "session", key.SessionID, "error", derr)
			}

			g.logger.Warn("verification.code.send_failed", "session", key.SessionID, "contact", masked, "error", err)

			return fmt.Errorf("%w: %w", ErrSendFailed, err)
		}

		g.logger.Info("verification.code.sent", "session", key.SessionID, "contact", masked)

		return nil
	})

	return masked, err
}

// VerifyCode checks code for the pending request of key. A wrong code leaves
// the request pending.
func (g *Gate) VerifyCode(ctx context.Context, key Key, code string) error {
	return g.withLock(ctx, key, func(ctx context.Context) error {
		rec, err := g.load(ctx, key)
		if err != nil {
			return err
		}

		ok, err := g.verifier.Check(ctx, rec.Contact, code)
		if err != nil {
			return fmt.Errorf("check verification code: %w", err)
		}

		if !ok {
			g.logger.Info("verification.code.rejected", "session", key.SessionID)
			return ErrVerificationRejected
		}

		rec.Verified = true
		if err := g.store.Put(ctx, key, rec); err != nil {
			return err
		}

		g.logger.Info("verification.code.accepted", "session", key.SessionID)

		return nil
	})
}

// Issue generates a certificate for a verified key and consumes the
// verification. A failed generation keeps the verification for a retry. A
// failure to consume the record is logged, and the certificate is still
// returned.
func (g *Gate) Issue(ctx context.Context, key Key, kind certificate.Kind) (certificate.Certificate, error) {
	var cert certificate.Certificate

	err := g.withLock(ctx, key, func(ctx context.Context) error {
		rec, err := g.load(ctx, key)
		if errors.Is(err, ErrNoPendingRequest) || (err == nil && !rec.Verified) {
			return ErrNotVerified
		}

		if err != nil {
			return err
		}

		cert, err = g.generator.Generate(ctx, certificate.Request{SessionID: key.SessionID, Cedula: key.Cedula, Kind: kind})
		if err != nil {
			g.logger.Warn("verification.issue.failed", "session", key.SessionID, "kind", string(kind), "error", err)
			return fmt.Errorf("%w: %w", ErrGenerationFailed, err)
		}

		// The certificate exists now; the caller must receive it even when
		// consuming the record fails.
		if err := g.store.Delete(context.WithoutCancel(ctx), key); err != nil {
			g.logger.Error("verification.issue.consume_failed", "session", key.SessionID, "reference", cert.Reference, "error", err)
		}

		g.logger.Info("verification.issue.completed", "session", key.SessionID, "kind", string(kind), "reference", cert.Reference)

		return nil
	})

	return cert, err
}

// Status reports the state of key: "none", "pending" or "verified".
func (g *Gate) Status(ctx context.Context, key Key) (string, error) {
	rec, err := g.load(ctx, key)
	if errors.Is(err, ErrNoPendingRequest) {
		return "none", nil
	}

	if err != nil {
		return "", err
	}

	if rec.Verified {
		return "verified", nil
	}

	return "pending", nil
}

func (g *Gate) load(ctx context.Context, key Key) (Record, error) {
	rec, err := g.store.Get(ctx, key)
	if errors.Is(err, ErrRecordNotFound) {
		return Record{}, ErrNoPendingRequest
	}

	return rec, err
}
