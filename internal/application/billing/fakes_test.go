package billing_test

// Dobles en memoria de los puertos de persistencia, almacén binario y WS de
// SUNAT. Respetan los contratos de los puertos (aislamiento por RUC,
// transición condicional de estado) para que los casos de uso se prueben
// contra la misma semántica que las implementaciones reales.

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
	infrasunat "github.com/jhoicas/Facturacion-api/internal/infrastructure/sunat"
)

// ── Documentos ────────────────────────────────────────────────────────────────

type fakeDocumentRepo struct {
	mu    sync.Mutex
	docs  map[string]*entity.Document
	lines map[string][]*entity.DocumentLine
	order []string

	createErr error
}

func newFakeDocumentRepo() *fakeDocumentRepo {
	return &fakeDocumentRepo{
		docs:  make(map[string]*entity.Document),
		lines: make(map[string][]*entity.DocumentLine),
	}
}

func (r *fakeDocumentRepo) Create(_ context.Context, callerRUC string, doc *entity.Document, lines []*entity.DocumentLine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if doc.TenantRUC != callerRUC {
		return fmt.Errorf("%w: el comprobante es de %s", domain.ErrOwnershipViolation, doc.TenantRUC)
	}
	r.docs[doc.ID] = doc
	r.lines[doc.ID] = lines
	r.order = append(r.order, doc.ID)
	return nil
}

func (r *fakeDocumentRepo) GetByID(_ context.Context, tenantRUC, id string) (*entity.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok || doc.TenantRUC != tenantRUC {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

func (r *fakeDocumentRepo) GetByNumber(_ context.Context, tenantRUC, series string, sequence int64) (*entity.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, doc := range r.docs {
		if doc.TenantRUC == tenantRUC && doc.Series == series && doc.Sequence == sequence {
			return doc, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeDocumentRepo) GetLines(_ context.Context, documentID string) ([]*entity.DocumentLine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lines[documentID], nil
}

func (r *fakeDocumentRepo) ListByTenant(_ context.Context, tenantRUC string, limit, offset int) ([]*entity.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Document
	for i := len(r.order) - 1; i >= 0; i-- {
		doc := r.docs[r.order[i]]
		if doc.TenantRUC == tenantRUC {
			out = append(out, doc)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeDocumentRepo) TransitionState(_ context.Context, tenantRUC, id, from, to string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok || doc.TenantRUC != tenantRUC {
		return domain.ErrNotFound
	}
	if doc.State != from {
		return fmt.Errorf("%w: el comprobante está %s, no %s", domain.ErrConflict, doc.State, from)
	}
	doc.State = to
	return nil
}

func (r *fakeDocumentRepo) SetSignedXMLKey(_ context.Context, tenantRUC, id, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok || doc.TenantRUC != tenantRUC {
		return domain.ErrNotFound
	}
	doc.SignedXMLKey = key
	return nil
}

func (r *fakeDocumentRepo) SaveOutcome(_ context.Context, tenantRUC, id, newState string, receipt *entity.Receipt, errLog []entity.TransmissionError) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok || doc.TenantRUC != tenantRUC {
		return domain.ErrNotFound
	}
	doc.State = newState
	doc.Receipt = receipt
	doc.ErrorLog = errLog
	return nil
}

// mustSeed registra un comprobante ya emitido, listo para enviar.
func (r *fakeDocumentRepo) mustSeed(doc *entity.Document, lines []*entity.DocumentLine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.ID] = doc
	r.lines[doc.ID] = lines
	r.order = append(r.order, doc.ID)
}

// ── Correlativos ──────────────────────────────────────────────────────────────

type fakeSequenceRepo struct {
	mu      sync.Mutex
	current map[string]int64
	calls   int
	nextErr error
}

func newFakeSequenceRepo() *fakeSequenceRepo {
	return &fakeSequenceRepo{current: make(map[string]int64)}
}

func (r *fakeSequenceRepo) Next(_ context.Context, tenantRUC, docType, series string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.nextErr != nil {
		return 0, r.nextErr
	}
	key := tenantRUC + "|" + docType + "|" + series
	r.current[key]++
	return r.current[key], nil
}

func (r *fakeSequenceRepo) ListByTenant(_ context.Context, tenantRUC string) ([]*entity.DocumentSequence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.DocumentSequence
	for key, val := range r.current {
		parts := strings.SplitN(key, "|", 3)
		if len(parts) != 3 || parts[0] != tenantRUC {
			continue
		}
		out = append(out, &entity.DocumentSequence{
			TenantRUC:  parts[0],
			DocType:    parts[1],
			Series:     parts[2],
			CurrentVal: val,
		})
	}
	return out, nil
}

// ── Emisores ──────────────────────────────────────────────────────────────────

type fakeTenantRepo struct {
	mu      sync.Mutex
	tenants map[string]*entity.Tenant
}

func newFakeTenantRepo(tenants ...*entity.Tenant) *fakeTenantRepo {
	r := &fakeTenantRepo{tenants: make(map[string]*entity.Tenant)}
	for _, t := range tenants {
		r.tenants[t.RUC] = t
	}
	return r
}

func (r *fakeTenantRepo) Create(_ context.Context, tenant *entity.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tenants[tenant.RUC]; ok {
		return domain.ErrDuplicate
	}
	r.tenants[tenant.RUC] = tenant
	return nil
}

func (r *fakeTenantRepo) GetByRUC(_ context.Context, ruc string) (*entity.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[ruc]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return t, nil
}

func (r *fakeTenantRepo) Update(_ context.Context, tenant *entity.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tenants[tenant.RUC]; !ok {
		return domain.ErrNotFound
	}
	r.tenants[tenant.RUC] = tenant
	return nil
}

func (r *fakeTenantRepo) List(_ context.Context, limit, offset int) ([]*entity.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Tenant
	for _, t := range r.tenants {
		out = append(out, t)
	}
	return out, nil
}

// ── Certificados ──────────────────────────────────────────────────────────────

type fakeCertificateRepo struct {
	mu    sync.Mutex
	certs map[string]*entity.Certificate
}

func newFakeCertificateRepo() *fakeCertificateRepo {
	return &fakeCertificateRepo{certs: make(map[string]*entity.Certificate)}
}

func (r *fakeCertificateRepo) Save(_ context.Context, cert *entity.Certificate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.certs[cert.TenantRUC] = cert
	return nil
}

func (r *fakeCertificateRepo) GetByTenant(_ context.Context, tenantRUC string) (*entity.Certificate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.certs[tenantRUC]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

// ── Almacén binario ───────────────────────────────────────────────────────────

type fakeBlobStore struct {
	mu     sync.Mutex
	blobs  map[string][]byte
	putErr error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: make(map[string][]byte)}
}

func (s *fakeBlobStore) Put(_ context.Context, tenantRUC, key string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	if err := repository.ValidateBlobKey(tenantRUC, key); err != nil {
		return err
	}
	s.blobs[key] = data
	return nil
}

func (s *fakeBlobStore) Get(_ context.Context, tenantRUC, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := repository.ValidateBlobKey(tenantRUC, key); err != nil {
		return nil, err
	}
	data, ok := s.blobs[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

func (s *fakeBlobStore) Exists(_ context.Context, tenantRUC, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := repository.ValidateBlobKey(tenantRUC, key); err != nil {
		return false, err
	}
	_, ok := s.blobs[key]
	return ok, nil
}

func (s *fakeBlobStore) Delete(_ context.Context, tenantRUC, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := repository.ValidateBlobKey(tenantRUC, key); err != nil {
		return err
	}
	delete(s.blobs, key)
	return nil
}

func (s *fakeBlobStore) List(_ context.Context, tenantRUC, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	full := tenantRUC + "/" + prefix
	var out []string
	for key := range s.blobs {
		if len(key) >= len(full) && key[:len(full)] == full {
			out = append(out, key)
		}
	}
	return out, nil
}

func (s *fakeBlobStore) PresignGet(_ context.Context, tenantRUC, key string, _ time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := repository.ValidateBlobKey(tenantRUC, key); err != nil {
		return "", err
	}
	if _, ok := s.blobs[key]; !ok {
		return "", domain.ErrNotFound
	}
	return "https://blobs.test/" + key, nil
}

// ── WS de SUNAT ───────────────────────────────────────────────────────────────

type submitCall struct {
	creds   infrasunat.Credentials
	zipName string
	zipSize int
}

type submitOutcome struct {
	result *infrasunat.SubmitResult
	err    error
}

// fakeSubmitter responde según un guion: una entrada por llamada, la última se
// repite si el guion se queda corto.
type fakeSubmitter struct {
	mu     sync.Mutex
	script []submitOutcome
	calls  []submitCall
}

func (f *fakeSubmitter) Submit(_ context.Context, creds infrasunat.Credentials, zipName string, zipBytes []byte) (*infrasunat.SubmitResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, submitCall{creds: creds, zipName: zipName, zipSize: len(zipBytes)})
	idx := len(f.calls) - 1
	if idx >= len(f.script) {
		idx = len(f.script) - 1
	}
	out := f.script[idx]
	return out.result, out.err
}

// ── Firmador ──────────────────────────────────────────────────────────────────

type fakeSigner struct {
	signed []byte
	err    error
	calls  int
}

func (f *fakeSigner) SignForTenant(_ context.Context, _ *entity.Tenant, xmlBytes []byte) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.signed) > 0 {
		return f.signed, nil
	}
	return append([]byte("<!-- firmado -->"), xmlBytes...), nil
}
