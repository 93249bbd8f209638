package knowledge

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"sdr_assistant_backend/internal/adapters/storage"
	"sdr_assistant_backend/internal/events"
	"sdr_assistant_backend/internal/knowledge/index"
	"sdr_assistant_backend/internal/scheduler"
	"sdr_assistant_backend/platform/apperr"
	"sdr_assistant_backend/platform/logger"
)

const leadsCSV = "Name,Company,Phone,Notes\n" +
	"Jane Doe,Acme,(415) 555-2671,Wants pipeline automation\n" +
	"Raj Patel,Globex,,Evaluating three vendors\n"

type memObject struct {
	data []byte
	meta map[string]string
}

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string]memObject
	order   []string
	failPut bool
}

func newFakeStorage() *fakeStorage { return &fakeStorage{objects: map[string]memObject{}} }

func (f *fakeStorage) EnsureBucketExists(context.Context, string) error { return nil }

func (f *fakeStorage) UploadFile(_ context.Context, _, folder, fileName, _ string, r io.Reader, _ int64, meta map[string]string) (string, error) {
	if f.failPut {
		return "", errors.New("minio down")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := folder + "/" + fileName
	f.objects[key] = memObject{data: data, meta: meta}
	f.order = append(f.order, key)
	return key, nil
}

func (f *fakeStorage) DownloadFile(_ context.Context, _, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (f *fakeStorage) LatestObject(_ context.Context, _, prefix string) (storage.Object, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.order) - 1; i >= 0; i-- {
		key := f.order[i]
		if obj, ok := f.objects[key]; ok && strings.HasPrefix(key, prefix) {
			return storage.Object{Key: key, Metadata: obj.meta}, true, nil
		}
	}
	return storage.Object{}, false, nil
}

func (f *fakeStorage) DeletePrefix(_ context.Context, _, prefix string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key := range f.objects {
		if strings.HasPrefix(key, prefix) {
			delete(f.objects, key)
		}
	}
	return nil
}

func (f *fakeStorage) ValidateContentType(ct string) error { return storage.ValidateContentType(ct) }
func (f *fakeStorage) ValidateFileSize(n int64) error      { return storage.ValidateFileSize(n, 0) }

type fakeEnqueuer struct {
	payloads []scheduler.RebuildLeadCorpusPayload
	err      error
}

func (f *fakeEnqueuer) EnqueueLeadCorpusRebuild(_ context.Context, p scheduler.RebuildLeadCorpusPayload) error {
	if f.err != nil {
		return f.err
	}
	f.payloads = append(f.payloads, p)
	return nil
}

func newLeadIndex() *index.Index {
	return index.New("leads", index.NewHashEmbedder(), index.LeadSplitter())
}

func csvUpload(columns ...string) UploadInput {
	return UploadInput{
		FileName:        "leads.csv",
		ContentType:     "text/csv",
		Size:            int64(len(leadsCSV)),
		Body:            strings.NewReader(leadsCSV),
		MetadataColumns: columns,
	}
}

func TestUploadLeadCorpus_InlineWithoutStorage(t *testing.T) {
	leads := newLeadIndex()
	bus := events.NewInMemoryBus(logger.New("test"))
	var rebuilt events.LeadCorpusRebuilt
	bus.Subscribe(events.LeadCorpusRebuilt{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		rebuilt = e.(events.LeadCorpusRebuilt)
		return nil
	}))
	svc := NewService(leads, nil, nil, bus, ServiceConfig{PhoneRegion: "US"}, logger.New("test"))

	res, err := svc.UploadLeadCorpus(context.Background(), csvUpload("Name, Company"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	bus.Wait()

	if res.Status != StatusCompleted || res.Chunks != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if rebuilt.Chunks != 2 || rebuilt.Documents != 2 {
		t.Fatalf("expected rebuilt event, got %+v", rebuilt)
	}

	chunks, err := leads.Query(context.Background(), "Acme pipeline automation", 1)
	if err != nil || len(chunks) != 1 {
		t.Fatalf("query: %v %+v", err, chunks)
	}
	if chunks[0].Metadata["Company"] != "Acme" || !strings.Contains(chunks[0].Text, "+14155552671") {
		t.Fatalf("unexpected top chunk %+v", chunks[0])
	}
}

func TestUploadLeadCorpus_QueuedWhenStorageAndQueueConfigured(t *testing.T) {
	store := newFakeStorage()
	queue := &fakeEnqueuer{}
	leads := newLeadIndex()
	svc := NewService(leads, store, queue, nil, ServiceConfig{Bucket: "lead-corpus"}, logger.New("test"))

	res, err := svc.UploadLeadCorpus(context.Background(), csvUpload("Name"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if res.Status != StatusQueued || len(queue.payloads) != 1 {
		t.Fatalf("expected queued job, got %+v / %+v", res, queue.payloads)
	}
	if leads.State() != index.StateUninitialized {
		t.Fatalf("expected index untouched until the job runs, got %s", leads.State())
	}

	if err := svc.RebuildLeadCorpus(context.Background(), queue.payloads[0]); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if leads.Size() != 2 {
		t.Fatalf("expected 2 chunks after job, got %d", leads.Size())
	}
}

func TestUploadLeadCorpus_EnqueueFailureRebuildsInline(t *testing.T) {
	leads := newLeadIndex()
	svc := NewService(leads, newFakeStorage(), &fakeEnqueuer{err: errors.New("redis down")}, nil, ServiceConfig{}, logger.New("test"))

	res, err := svc.UploadLeadCorpus(context.Background(), csvUpload())
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if res.Status != StatusCompleted || leads.Size() != 2 {
		t.Fatalf("expected inline rebuild, got %+v size=%d", res, leads.Size())
	}
}

func TestUploadLeadCorpus_Rejections(t *testing.T) {
	svc := NewService(newLeadIndex(), nil, nil, nil, ServiceConfig{MaxUploadSize: 64}, logger.New("test"))

	_, err := svc.UploadLeadCorpus(context.Background(), UploadInput{FileName: "deck.pptx", Size: 10, Body: strings.NewReader("x")})
	if apperr.GetKind(err) != apperr.KindUnsupported {
		t.Fatalf("expected unsupported, got %v", err)
	}

	_, err = svc.UploadLeadCorpus(context.Background(), UploadInput{FileName: "big.txt", Size: 65, Body: strings.NewReader("x")})
	if apperr.GetKind(err) != apperr.KindTooLarge {
		t.Fatalf("expected too large, got %v", err)
	}

	_, err = svc.UploadLeadCorpus(context.Background(), UploadInput{FileName: "blank.txt", ContentType: "text/plain", Size: 3, Body: strings.NewReader("   ")})
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error for empty corpus, got %v", err)
	}
}

func TestLeadLoader_RestoresLatestUploadWithColumns(t *testing.T) {
	store := newFakeStorage()
	first := NewService(newLeadIndex(), store, &fakeEnqueuer{}, nil, ServiceConfig{}, logger.New("test"))
	if _, err := first.UploadLeadCorpus(context.Background(), csvUpload("Company")); err != nil {
		t.Fatalf("upload: %v", err)
	}

	// A fresh process builds its lead index lazily from storage.
	restarted := NewService(nil, store, nil, nil, ServiceConfig{}, logger.New("test"))
	leads := index.New("leads", index.NewHashEmbedder(), index.LeadSplitter(), index.WithLoader(restarted.LeadLoader()))

	chunks, err := leads.Query(context.Background(), "Globex vendors", 2)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(chunks) != 2 || chunks[0].Metadata["Company"] == "" {
		t.Fatalf("expected restored chunks with metadata, got %+v", chunks)
	}
}

func TestLeadLoader_EmptyWithoutStorage(t *testing.T) {
	svc := NewService(nil, nil, nil, nil, ServiceConfig{}, logger.New("test"))
	docs, err := svc.LeadLoader()(context.Background())
	if err != nil || len(docs) != 0 {
		t.Fatalf("expected empty corpus, got %v %v", docs, err)
	}
}

func TestClearLeadCorpus_RemovesStoredUploads(t *testing.T) {
	store := newFakeStorage()
	leads := newLeadIndex()
	svc := NewService(leads, store, nil, nil, ServiceConfig{}, logger.New("test"))
	if _, err := svc.UploadLeadCorpus(context.Background(), csvUpload()); err != nil {
		t.Fatalf("upload: %v", err)
	}

	if err := svc.ClearLeadCorpus(context.Background()); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if leads.Size() != 0 || leads.State() != index.StateReady {
		t.Fatalf("expected empty ready index, got size=%d state=%s", leads.Size(), leads.State())
	}
	if _, found, _ := store.LatestObject(context.Background(), "", leadCorpusFolder+"/"); found {
		t.Fatal("expected stored uploads to be removed")
	}
}
