package verification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/coopdesk/artifact"
	"github.com/hupe1980/coopdesk/certificate"
)

var testNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

type fixture struct {
	gate     *Gate
	store    *MemoryRecordStore
	verifier *MockVerifier
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	store := NewMemoryRecordStore(10*time.Minute, WithClock(func() time.Time { return testNow }))
	verifier := NewMockVerifier("")
	gen := certificate.NewTemplateGenerator(certificate.SampleLedger(), artifact.NewInMemoryStore())
	dir := StaticDirectory{Fallback: "300 123 4567"}

	gate := NewGate(store, dir, verifier, gen, func(o *Options) {
		o.Now = func() time.Time { return testNow }
	})

	return fixture{gate: gate, store: store, verifier: verifier}
}

type mockVerifier struct{ mock.Mock }

func (m *mockVerifier) Send(ctx context.Context, contact string) error {
	return m.Called(ctx, contact).Error(0)
}

func (m *mockVerifier) Check(ctx context.Context, contact, code string) (bool, error) {
	args := m.Called(ctx, contact, code)
	return args.Bool(0), args.Error(1)
}

type failingGenerator struct{ err error }

func (f failingGenerator) Generate(context.Context, certificate.Request) (certificate.Certificate, error) {
	return certificate.Certificate{}, f.err
}

func TestGate_FullFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := Key{SessionID: "s1", Cedula: "12345678"}

	masked, err := f.gate.RequestCode(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "*********4567", masked)
	assert.Equal(t, 1, f.verifier.Sent("+573001234567"))

	status, err := f.gate.Status(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "pending", status)

	require.NoError(t, f.gate.VerifyCode(ctx, key, "123456"))

	status, err = f.gate.Status(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "verified", status)

	cert, err := f.gate.Issue(ctx, key, certificate.KindTributario)
	require.NoError(t, err)
	assert.Contains(t, cert.URI, "artifact://s1/")
	assert.Equal(t, 0, f.store.Len())
}

func TestGate_WrongThenRightCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := Key{SessionID: "s1", Cedula: "12345678"}

	_, err := f.gate.RequestCode(ctx, key)
	require.NoError(t, err)

	err = f.gate.VerifyCode(ctx, key, "000000")
	require.ErrorIs(t, err, ErrVerificationRejected)

	status, err := f.gate.Status(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "pending", status)

	require.NoError(t, f.gate.VerifyCode(ctx, key, "123456"))
}

func TestGate_SingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := Key{SessionID: "s1", Cedula: "12345678"}

	_, err := f.gate.RequestCode(ctx, key)
	require.NoError(t, err)
	require.NoError(t, f.gate.VerifyCode(ctx, key, "123456"))

	_, err = f.gate.Issue(ctx, key, certificate.KindAportes)
	require.NoError(t, err)

	_, err = f.gate.Issue(ctx, key, certificate.KindAportes)
	assert.ErrorIs(t, err, ErrNotVerified)
}

func TestGate_VerifyWithoutRequest(t *testing.T) {
	f := newFixture(t)

	err := f.gate.VerifyCode(context.Background(), Key{SessionID: "s1", Cedula: "12345678"}, "123456")
	assert.ErrorIs(t, err, ErrNoPendingRequest)
}

func TestGate_IssueBeforeVerify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := Key{SessionID: "s1", Cedula: "12345678"}

	_, err := f.gate.Issue(ctx, key, certificate.KindTributario)
	require.ErrorIs(t, err, ErrNotVerified)

	_, err = f.gate.RequestCode(ctx, key)
	require.NoError(t, err)

	_, err = f.gate.Issue(ctx, key, certificate.KindTributario)
	require.ErrorIs(t, err, ErrNotVerified)
	assert.Equal(t, 1, f.store.Len())
}

func TestGate_RecordsAreScopedPerSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.gate.RequestCode(ctx, Key{SessionID: "s1", Cedula: "12345678"})
	require.NoError(t, err)
	require.NoError(t, f.gate.VerifyCode(ctx, Key{SessionID: "s1", Cedula: "12345678"}, "123456"))

	_, err = f.gate.Issue(ctx, Key{SessionID: "s2", Cedula: "12345678"}, certificate.KindTributario)
	assert.ErrorIs(t, err, ErrNotVerified)
}

func TestGate_RequestReplacesVerifiedRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := Key{SessionID: "s1", Cedula: "12345678"}

	_, err := f.gate.RequestCode(ctx, key)
	require.NoError(t, err)
	require.NoError(t, f.gate.VerifyCode(ctx, key, "123456"))

	_, err = f.gate.RequestCode(ctx, key)
	require.NoError(t, err)

	status, err := f.gate.Status(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "pending", status)
}

func TestGate_ExpiredRequest(t *testing.T) {
	now := testNow
	store := NewMemoryRecordStore(5*time.Minute, WithClock(func() time.Time { return now }))
	gen := certificate.NewTemplateGenerator(certificate.SampleLedger(), artifact.NewInMemoryStore())
	gate := NewGate(store, StaticDirectory{Fallback: "3001234567"}, NewMockVerifier(""), gen, func(o *Options) {
		o.Now = func() time.Time { return testNow }
	})

	key := Key{SessionID: "s1", Cedula: "12345678"}

	_, err := gate.RequestCode(context.Background(), key)
	require.NoError(t, err)

	now = testNow.Add(6 * time.Minute)

	err = gate.VerifyCode(context.Background(), key, "123456")
	assert.ErrorIs(t, err, ErrNoPendingRequest)
}

func TestGate_SendFailureRemovesRecord(t *testing.T) {
	store := NewMemoryRecordStore(time.Minute)
	verifier := new(mockVerifier)
	verifier.On("Send", mock.Anything, "+573001234567").Return(errors.New("gateway down")).Once()

	gate := NewGate(store, StaticDirectory{Fallback: "3001234567"}, verifier, failingGenerator{})

	_, err := gate.RequestCode(context.Background(), Key{SessionID: "s1", Cedula: "12345678"})
	require.ErrorIs(t, err, ErrSendFailed)
	assert.Contains(t, err.Error(), "gateway down")
	assert.Equal(t, 0, store.Len())

	verifier.AssertExpectations(t)
}

func TestGate_CheckerError(t *testing.T) {
	store := NewMemoryRecordStore(time.Minute)
	verifier := new(mockVerifier)
	verifier.On("Send", mock.Anything, "+573001234567").Return(nil)
	verifier.On("Check", mock.Anything, "+573001234567", "123456").Return(false, errors.New("timeout"))

	gate := NewGate(store, StaticDirectory{Fallback: "3001234567"}, verifier, failingGenerator{})
	key := Key{SessionID: "s1", Cedula: "12345678"}

	_, err := gate.RequestCode(context.Background(), key)
	require.NoError(t, err)

	err = gate.VerifyCode(context.Background(), key, "123456")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrVerificationRejected)

	verifier.AssertExpectations(t)
}

func TestGate_GenerationFailureKeepsVerification(t *testing.T) {
	store := NewMemoryRecordStore(time.Minute)
	gate := NewGate(store, StaticDirectory{Fallback: "3001234567"}, NewMockVerifier(""), failingGenerator{err: errors.New("disk full")})
	key := Key{SessionID: "s1", Cedula: "12345678"}
	ctx := context.Background()

	_, err := gate.RequestCode(ctx, key)
	require.NoError(t, err)
	require.NoError(t, gate.VerifyCode(ctx, key, "123456"))

	_, err = gate.Issue(ctx, key, certificate.KindTributario)
	require.ErrorIs(t, err, ErrGenerationFailed)

	status, err := gate.Status(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "verified", status)
}

func TestGate_UnknownContact(t *testing.T) {
	gate := NewGate(NewMemoryRecordStore(time.Minute), StaticDirectory{}, NewMockVerifier(""), failingGenerator{})

	_, err := gate.RequestCode(context.Background(), Key{SessionID: "s1", Cedula: "1"})
	assert.ErrorIs(t, err, ErrUnknownContact)
}

func TestGate_ConcurrentIssueIsSingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := Key{SessionID: "s1", Cedula: "12345678"}

	_, err := f.gate.RequestCode(ctx, key)
	require.NoError(t, err)
	require.NoError(t, f.gate.VerifyCode(ctx, key, "123456"))

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		issued int
	)

	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if _, err := f.gate.Issue(ctx, key, certificate.KindAportes); err == nil {
				mu.Lock()
				issued++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, issued)
}

type deleteFailingStore struct {
	*MemoryRecordStore
}

func (deleteFailingStore) Delete(context.Context, Key) error {
	return errors.New("connection reset")
}

func TestGate_IssueReturnsCertificateWhenConsumeFails(t *testing.T) {
	store := deleteFailingStore{NewMemoryRecordStore(time.Minute)}
	gen := certificate.NewTemplateGenerator(certificate.SampleLedger(), artifact.NewInMemoryStore())
	gate := NewGate(store, StaticDirectory{Fallback: "3001234567"}, NewMockVerifier(""), gen)
	key := Key{SessionID: "s1", Cedula: "12345678"}
	ctx := context.Background()

	_, err := gate.RequestCode(ctx, key)
	require.NoError(t, err)
	require.NoError(t, gate.VerifyCode(ctx, key, DefaultMockCode))

	cert, err := gate.Issue(ctx, key, certificate.KindTributario)
	require.NoError(t, err)
	assert.NotEmpty(t, cert.Reference)
}

// cancellingGenerator cancels the caller's context once the certificate is
// generated.
type cancellingGenerator struct {
	certificate.Generator
	cancel context.CancelFunc
}

func (g cancellingGenerator) Generate(ctx context.Context, req certificate.Request) (certificate.Certificate, error) {
	cert, err := g.Generator.Generate(ctx, req)
	g.cancel()

	return cert, err
}

func TestGate_IssueConsumesRecordAfterCancellation(t *testing.T) {
	now := testNow
	store, mr := newRedisRecordStore(t, &now)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gen := cancellingGenerator{
		Generator: certificate.NewTemplateGenerator(certificate.SampleLedger(), artifact.NewInMemoryStore()),
		cancel:    cancel,
	}
	gate := NewGate(store, StaticDirectory{Fallback: "3001234567"}, NewMockVerifier(""), gen, func(o *Options) {
		o.Now = func() time.Time { return testNow }
	})
	key := Key{SessionID: "s1", Cedula: "12345678"}

	_, err := gate.RequestCode(ctx, key)
	require.NoError(t, err)
	require.NoError(t, gate.VerifyCode(ctx, key, DefaultMockCode))

	_, err = gate.Issue(ctx, key, certificate.KindTributario)
	require.NoError(t, err)
	assert.False(t, mr.Exists("coopdesk:otp:s1:12345678"))

	status, err := gate.Status(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "none", status)
}
