package knowledge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"sdr_assistant_backend/internal/adapters/storage"
	"sdr_assistant_backend/internal/events"
	"sdr_assistant_backend/internal/knowledge/index"
	"sdr_assistant_backend/internal/knowledge/loader"
	"sdr_assistant_backend/internal/scheduler"
	"sdr_assistant_backend/platform/apperr"
	"sdr_assistant_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	leadCorpusFolder     = "lead-corpus"
	metaMetadataColumns  = "metadata-columns"
	defaultMaxUploadSize = 20 << 20
)

// LeadIndex is the lead index surface the service drives.
type LeadIndex interface {
	Rebuild(ctx context.Context, docs []index.Document) (int, error)
	Clear(ctx context.Context) error
}

// ServiceConfig holds the knowledge service settings.
type ServiceConfig struct {
	Bucket        string
	PhoneRegion   string
	MaxUploadSize int64
}

// UploadInput is a lead corpus file as received over HTTP.
type UploadInput struct {
	FileName        string
	ContentType     string
	Size            int64
	Body            io.Reader
	MetadataColumns []string
	RequestedBy     string
}

// UploadResult reports whether the rebuild was queued or already applied.
type UploadResult struct {
	JobID    string   `json:"jobId"`
	Status   string   `json:"status"`
	Chunks   int      `json:"chunks,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

const (
	StatusQueued    = "queued"
	StatusCompleted = "completed"
)

// Service manages the lead corpus lifecycle. Storage and queue are optional:
// without storage uploads are indexed straight from the request, without a
// queue stored uploads are indexed inline.
type Service struct {
	leads    LeadIndex
	store    storage.StorageService
	enqueuer scheduler.LeadCorpusEnqueuer
	bus      events.Bus
	cfg      ServiceConfig
	log      *logger.Logger
}

func NewService(leads LeadIndex, store storage.StorageService, enqueuer scheduler.LeadCorpusEnqueuer, bus events.Bus, cfg ServiceConfig, log *logger.Logger) *Service {
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = defaultMaxUploadSize
	}
	return &Service{leads: leads, store: store, enqueuer: enqueuer, bus: bus, cfg: cfg, log: log}
}

// UploadLeadCorpus validates the file and replaces the lead index with it,
// through the job queue when one is configured.
func (s *Service) UploadLeadCorpus(ctx context.Context, in UploadInput) (UploadResult, error) {
	if _, err := loader.DetectFormat(in.FileName); err != nil {
		return UploadResult{}, apperr.Unsupported("only CSV, PDF and TXT files are supported")
	}
	if err := storage.ValidateFileSize(in.Size, s.cfg.MaxUploadSize); err != nil {
		if in.Size <= 0 {
			return UploadResult{}, apperr.Validation(err.Error())
		}
		return UploadResult{}, apperr.TooLarge(err.Error())
	}
	if in.ContentType == "" {
		in.ContentType = "application/octet-stream"
	}
	if err := storage.ValidateContentType(in.ContentType); err != nil {
		return UploadResult{}, apperr.Unsupported(err.Error())
	}

	jobID := uuid.New()
	columns := cleanColumns(in.MetadataColumns)

	if s.store == nil {
		data, err := readLimited(in.Body, s.cfg.MaxUploadSize)
		if err != nil {
			return UploadResult{}, err
		}
		return s.rebuildFrom(ctx, jobID, in.FileName, data, columns)
	}

	key, err := s.store.UploadFile(ctx, s.cfg.Bucket, leadCorpusFolder, in.FileName, in.ContentType, in.Body, in.Size,
		map[string]string{metaMetadataColumns: strings.Join(columns, ",")})
	if err != nil {
		s.log.ExternalCallFailed("minio", "upload", err)
		return UploadResult{}, apperr.Unavailable("could not store the uploaded file")
	}

	payload := scheduler.RebuildLeadCorpusPayload{
		JobID:           jobID.String(),
		ObjectKey:       key,
		FileName:        in.FileName,
		MetadataColumns: columns,
		RequestedBy:     in.RequestedBy,
	}

	if s.enqueuer != nil {
		err := s.enqueuer.EnqueueLeadCorpusRebuild(ctx, payload)
		if err == nil {
			s.log.Info("lead corpus rebuild queued", slog.String("jobId", payload.JobID), slog.String("objectKey", key))
			return UploadResult{JobID: payload.JobID, Status: StatusQueued}, nil
		}
		// The file is stored; index it here rather than fail the upload.
		s.log.ExternalCallFailed("asynq", "enqueue", err)
	}

	data, err := s.download(ctx, key)
	if err != nil {
		return UploadResult{}, err
	}
	return s.rebuildFrom(ctx, jobID, in.FileName, data, columns)
}

// RebuildLeadCorpus runs a queued rebuild job.
func (s *Service) RebuildLeadCorpus(ctx context.Context, payload scheduler.RebuildLeadCorpusPayload) error {
	if s.store == nil {
		return errors.New("object storage not configured")
	}
	jobID, err := uuid.Parse(payload.JobID)
	if err != nil {
		jobID = uuid.New()
	}
	data, err := s.download(ctx, payload.ObjectKey)
	if err != nil {
		return err
	}
	fileName := payload.FileName
	if fileName == "" {
		fileName = payload.ObjectKey
	}
	_, err = s.rebuildFrom(ctx, jobID, fileName, data, payload.MetadataColumns)
	return err
}

// ClearLeadCorpus empties the lead index and removes stored uploads so a
// restart does not bring them back.
func (s *Service) ClearLeadCorpus(ctx context.Context) error {
	if s.store != nil {
		if err := s.store.DeletePrefix(ctx, s.cfg.Bucket, leadCorpusFolder+"/"); err != nil {
			s.log.ExternalCallFailed("minio", "delete_prefix", err)
			return apperr.Unavailable("could not remove stored lead corpus")
		}
	}
	if err := s.leads.Clear(ctx); err != nil {
		return fmt.Errorf("clear lead index: %w", err)
	}
	s.log.Info("lead corpus cleared")
	return nil
}

// LeadLoader builds the lead index on first use from the newest stored
// upload. With no storage or no upload the corpus is empty.
func (s *Service) LeadLoader() index.Loader {
	return StoredLeadLoader(s.store, s.cfg, s.log)
}

// StoredLeadLoader is LeadLoader without a Service, for wiring the lead index
// before the service that drives it exists.
func StoredLeadLoader(store storage.StorageService, cfg ServiceConfig, log *logger.Logger) index.Loader {
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = defaultMaxUploadSize
	}
	return func(ctx context.Context) ([]index.Document, error) {
		if store == nil {
			return nil, nil
		}
		obj, found, err := store.LatestObject(ctx, cfg.Bucket, leadCorpusFolder+"/")
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, nil
		}
		data, err := download(ctx, store, cfg, log, obj.Key)
		if err != nil {
			return nil, err
		}
		res, err := loader.Load(obj.Key, data, loader.Options{
			MetadataColumns: cleanColumns(strings.Split(obj.Meta(metaMetadataColumns), ",")),
			PhoneRegion:     cfg.PhoneRegion,
		})
		if err != nil {
			return nil, err
		}
		log.Info("lead corpus restored", slog.String("objectKey", obj.Key), slog.Int("documents", len(res.Documents)))
		return res.Documents, nil
	}
}

func (s *Service) rebuildFrom(ctx context.Context, jobID uuid.UUID, fileName string, data []byte, columns []string) (UploadResult, error) {
	res, err := loader.Load(fileName, data, loader.Options{MetadataColumns: columns, PhoneRegion: s.cfg.PhoneRegion})
	if err != nil {
		s.publishFailure(ctx, jobID, fileName, err)
		switch {
		case errors.Is(err, loader.ErrUnsupportedFormat):
			return UploadResult{}, apperr.Unsupported(err.Error())
		case errors.Is(err, loader.ErrEmptyCorpus):
			return UploadResult{}, apperr.Validation(err.Error())
		default:
			return UploadResult{}, apperr.Wrap(apperr.KindValidation, "could not read file", err)
		}
	}

	chunks, err := s.leads.Rebuild(ctx, res.Documents)
	if err != nil {
		s.publishFailure(ctx, jobID, fileName, err)
		return UploadResult{}, fmt.Errorf("rebuild lead index: %w", err)
	}

	for _, w := range res.Warnings {
		s.log.Warn("lead corpus warning", slog.String("file", fileName), slog.String("warning", w))
	}
	if s.bus != nil {
		s.bus.Publish(ctx, events.LeadCorpusRebuilt{
			BaseEvent: events.NewBaseEvent(),
			JobID:     jobID,
			Source:    fileName,
			Documents: len(res.Documents),
			Chunks:    chunks,
			Warnings:  res.Warnings,
		})
	}
	return UploadResult{JobID: jobID.String(), Status: StatusCompleted, Chunks: chunks, Warnings: res.Warnings}, nil
}

func (s *Service) publishFailure(ctx context.Context, jobID uuid.UUID, source string, err error) {
	s.log.Error("lead corpus rebuild failed", slog.String("jobId", jobID.String()), slog.String("error", err.Error()))
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, events.LeadCorpusRebuildFailed{
		BaseEvent: events.NewBaseEvent(),
		JobID:     jobID,
		Source:    source,
		Error:     err.Error(),
	})
}

func (s *Service) download(ctx context.Context, key string) ([]byte, error) {
	return download(ctx, s.store, s.cfg, s.log, key)
}

func download(ctx context.Context, store storage.StorageService, cfg ServiceConfig, log *logger.Logger, key string) ([]byte, error) {
	rc, err := store.DownloadFile(ctx, cfg.Bucket, key)
	if err != nil {
		log.ExternalCallFailed("minio", "download", err)
		return nil, apperr.Unavailable("could not read the stored file")
	}
	defer rc.Close()
	return readLimited(rc, cfg.MaxUploadSize)
}

func readLimited(r io.Reader, max int64) ([]byte, error) {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, max+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if n > max {
		return nil, apperr.TooLarge(fmt.Sprintf("file exceeds maximum allowed size of %d bytes", max))
	}
	return buf.Bytes(), nil
}

func cleanColumns(cols []string) []string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		for _, part := range strings.Split(c, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
