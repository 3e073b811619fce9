package services

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/weldkeeper/internal/common"
	"github.com/dmitrijs2005/weldkeeper/internal/dbx"
	"github.com/dmitrijs2005/weldkeeper/internal/logging"
	"github.com/dmitrijs2005/weldkeeper/internal/server/config"
	"github.com/dmitrijs2005/weldkeeper/internal/server/models"
	"github.com/dmitrijs2005/weldkeeper/internal/server/repositories/certificates"
	"github.com/dmitrijs2005/weldkeeper/internal/server/repositories/files"
	"github.com/dmitrijs2005/weldkeeper/internal/server/repositories/inbox"
	"github.com/dmitrijs2005/weldkeeper/internal/server/repositories/links"
	"github.com/dmitrijs2005/weldkeeper/internal/server/repositories/procedures"
	"github.com/dmitrijs2005/weldkeeper/internal/server/repositories/repomanager"
	_ "modernc.org/sqlite"
)

// memDB backs every fake repository. Repositories ignore the DBTX they are
// bound to; transactions come from a real in-memory sqlite handle.
type memDB struct {
	mu    sync.Mutex
	seq   int
	files map[string]*models.FileRecord
	order map[string]int
	links map[models.FileLink]bool
	inbox map[string]*models.InboxEntry
	certs map[string]*models.Certificate
	procs map[string]*models.Procedure

	fileCreateErr  error
	fileDeleteErr  error
	linkCreateErr  error
	certCreateErr  error
	certDeleteErr  error
	inboxCreateErr error
	inboxCountErr  error
}

func newMemDB() *memDB {
	return &memDB{
		files: map[string]*models.FileRecord{},
		order: map[string]int{},
		links: map[models.FileLink]bool{},
		inbox: map[string]*models.InboxEntry{},
		certs: map[string]*models.Certificate{},
		procs: map[string]*models.Procedure{},
	}
}

type memManager struct{ m *memDB }

func (mm memManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (mm memManager) Files(dbx.DBTX) files.Repository             { return memFiles{mm.m} }
func (mm memManager) Links(dbx.DBTX) links.Repository             { return memLinks{mm.m} }
func (mm memManager) Inbox(dbx.DBTX) inbox.Repository             { return memInbox{mm.m} }
func (mm memManager) Certificates(dbx.DBTX) certificates.Repository {
	return memCerts{mm.m}
}
func (mm memManager) Procedures(dbx.DBTX) procedures.Repository { return memProcs{mm.m} }

var _ repomanager.RepositoryManager = memManager{}

// --- files ---

type memFiles struct{ m *memDB }

func (r memFiles) Create(ctx context.Context, f *models.FileRecord) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.fileCreateErr != nil {
		return r.m.fileCreateErr
	}
	r.m.seq++
	cp := *f
	cp.CreatedAt = time.Unix(int64(r.m.seq), 0)
	f.CreatedAt = cp.CreatedAt
	r.m.files[f.ID] = &cp
	r.m.order[f.ID] = r.m.seq
	return nil
}

func (r memFiles) FindBySHA256(ctx context.Context, digest string) (*models.FileRecord, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var best *models.FileRecord
	for id, f := range r.m.files {
		if f.SHA256 != digest {
			continue
		}
		if best == nil || r.m.order[id] < r.m.order[best.ID] {
			best = f
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (r memFiles) GetByID(ctx context.Context, id string) (*models.FileRecord, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	f, ok := r.m.files[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *f
	return &cp, nil
}

func (r memFiles) Delete(ctx context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.fileDeleteErr != nil {
		return r.m.fileDeleteErr
	}
	delete(r.m.files, id)
	return nil
}

func (r memFiles) Lock(ctx context.Context, id string) error { return nil }

// --- links ---

type memLinks struct{ m *memDB }

func (r memLinks) Create(ctx context.Context, l models.FileLink) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.linkCreateErr != nil {
		return r.m.linkCreateErr
	}
	if _, ok := r.m.files[l.FileID]; !ok {
		return fmt.Errorf("fk violation: file %s", l.FileID)
	}
	r.m.links[l] = true
	return nil
}

func (r memLinks) Delete(ctx context.Context, l models.FileLink) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	delete(r.m.links, l)
	return nil
}

func (r memLinks) DeleteByEntity(ctx context.Context, ref models.EntityRef) ([]string, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var ids []string
	for l := range r.m.links {
		if l.Entity == ref {
			ids = append(ids, l.FileID)
			delete(r.m.links, l)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r memLinks) CountByFile(ctx context.Context, fileID string) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var n int64
	for l := range r.m.links {
		if l.FileID == fileID {
			n++
		}
	}
	return n, nil
}

// --- inbox ---

type memInbox struct{ m *memDB }

func (r memInbox) Create(ctx context.Context, e *models.InboxEntry) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.inboxCreateErr != nil {
		return r.m.inboxCreateErr
	}
	cp := *e
	cp.File = nil
	r.m.inbox[e.ID] = &cp
	return nil
}

func (r memInbox) GetByID(ctx context.Context, id string) (*models.InboxEntry, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	e, ok := r.m.inbox[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *e
	if f, ok := r.m.files[e.FileID]; ok {
		fc := *f
		cp.File = &fc
	}
	return &cp, nil
}

func (r memInbox) List(ctx context.Context, status models.InboxStatus, limit int) ([]*models.InboxEntry, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.InboxEntry
	for _, e := range r.m.inbox {
		if e.Status == status && len(out) < limit {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memInbox) MarkProcessed(ctx context.Context, id string, at time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	e, ok := r.m.inbox[id]
	if !ok || e.Status != models.InboxStatusNew {
		return common.ErrInboxEntryNotNew
	}
	e.Status = models.InboxStatusProcessed
	e.ProcessedAt = &at
	return nil
}

func (r memInbox) MarkError(ctx context.Context, id string, msg string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	e, ok := r.m.inbox[id]
	if !ok || e.Status != models.InboxStatusNew {
		return common.ErrInboxEntryNotNew
	}
	e.Status = models.InboxStatusError
	e.ErrorMessage = msg
	return nil
}

func (r memInbox) Delete(ctx context.Context, id string) (string, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	e, ok := r.m.inbox[id]
	if !ok {
		return "", common.ErrorNotFound
	}
	delete(r.m.inbox, id)
	return e.FileID, nil
}

func (r memInbox) CountNewByFile(ctx context.Context, fileID string) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.inboxCountErr != nil {
		return 0, r.m.inboxCountErr
	}
	var n int64
	for _, e := range r.m.inbox {
		if e.FileID == fileID && e.Status == models.InboxStatusNew {
			n++
		}
	}
	return n, nil
}

// --- certificates ---

type memCerts struct{ m *memDB }

func (r memCerts) Create(ctx context.Context, c *models.Certificate) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.certCreateErr != nil {
		return r.m.certCreateErr
	}
	cp := *c
	r.m.certs[c.ID] = &cp
	return nil
}

func (r memCerts) GetByID(ctx context.Context, id string) (*models.Certificate, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.certs[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *c
	return &cp, nil
}

func (r memCerts) List(ctx context.Context, limit int) ([]*models.Certificate, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.Certificate
	for _, c := range r.m.certs {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (r memCerts) SetFileID(ctx context.Context, id string, fileID *string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.certs[id]
	if !ok {
		return common.ErrorNotFound
	}
	c.FileID = fileID
	return nil
}

func (r memCerts) Delete(ctx context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.certDeleteErr != nil {
		return r.m.certDeleteErr
	}
	if _, ok := r.m.certs[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.m.certs, id)
	return nil
}

// --- procedures ---

type memProcs struct{ m *memDB }

func (r memProcs) Create(ctx context.Context, p *models.Procedure) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	cp := *p
	r.m.procs[p.ID] = &cp
	return nil
}

func (r memProcs) GetByID(ctx context.Context, id string) (*models.Procedure, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.procs[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *p
	return &cp, nil
}

func (r memProcs) List(ctx context.Context, kind string, limit int) ([]*models.Procedure, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.Procedure
	for _, p := range r.m.procs {
		if p.Kind == kind {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r memProcs) SetFileID(ctx context.Context, id string, fileID *string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.procs[id]
	if !ok {
		return common.ErrorNotFound
	}
	p.FileID = fileID
	return nil
}

func (r memProcs) Delete(ctx context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.procs[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.m.procs, id)
	return nil
}

// --- object store ---

type memObjects struct {
	mu        sync.Mutex
	objects   map[string][]byte
	puts      int
	putErr    error
	deleteErr error
}

func newMemObjects() *memObjects {
	return &memObjects{objects: map[string][]byte{}}
}

func (o *memObjects) Bucket() string { return "documents" }

func (o *memObjects) Put(ctx context.Context, key string, body []byte, contentType string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.putErr != nil {
		return o.putErr
	}
	o.puts++
	o.objects[key] = append([]byte(nil), body...)
	return nil
}

func (o *memObjects) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	b, ok := o.objects[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (o *memObjects) Delete(ctx context.Context, key string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.deleteErr != nil {
		return o.deleteErr
	}
	delete(o.objects, key)
	return nil
}

func (o *memObjects) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("https://objects.test/documents/%s?ttl=%d", key, int(ttl.Seconds())), nil
}

// --- fixture ---

type fixture struct {
	mem     *memDB
	objects *memObjects
	files   *FileStore
	certs   *CertificateService
	procs   *ProcedureService
	inbox   *InboxService
}

func newTxDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("sql.Open error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithDB(t, newTxDB(t))
}

func newFixtureWithDB(t *testing.T, db *sql.DB) *fixture {
	t.Helper()
	mem := newMemDB()
	objects := newMemObjects()
	rm := memManager{mem}
	cfg := &config.Config{MaxUploadBytes: 1 << 20, SignedURLTTL: 15 * time.Minute}

	fs := NewFileStore(db, rm, objects, logging.Nop{}, cfg)
	certs := NewCertificateService(db, rm, fs, logging.Nop{})
	procs := NewProcedureService(db, rm, fs, logging.Nop{})
	return &fixture{
		mem:     mem,
		objects: objects,
		files:   fs,
		certs:   certs,
		procs:   procs,
		inbox:   NewInboxService(db, rm, fs, certs, procs, logging.Nop{}),
	}
}

func (f *fixture) fileCount() int {
	f.mem.mu.Lock()
	defer f.mem.mu.Unlock()
	return len(f.mem.files)
}

func (f *fixture) hasFile(id string) bool {
	f.mem.mu.Lock()
	defer f.mem.mu.Unlock()
	_, ok := f.mem.files[id]
	return ok
}

func pdf(body string) []byte {
	return []byte("%PDF-1.7\n" + body + "\n%%EOF\n")
}

func upload(name, body string) *Upload {
	return &Upload{Name: name, Data: pdf(body), MimeType: "application/pdf"}
}
