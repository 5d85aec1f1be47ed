package core

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/JonMunkholm/equipview/internal/archive"
	"github.com/JonMunkholm/equipview/internal/auth"
	"github.com/JonMunkholm/equipview/internal/equipment"
	"github.com/JonMunkholm/equipview/internal/events"
	"github.com/JonMunkholm/equipview/internal/ingest"
	"github.com/JonMunkholm/equipview/internal/logging"
)

// UploadResult is returned for an accepted upload.
type UploadResult struct {
	Dataset     equipment.Dataset `json:"dataset"`
	Summary     equipment.Summary `json:"summary"`
	SkippedRows int               `json:"skippedRows"`
}

// CheckUpload rejects files that are not .csv, are empty, or exceed the size
// limit.
func (s *Service) CheckUpload(filename string, size int64) error {
	if !strings.EqualFold(filepath.Ext(filename), ".csv") {
		return fmt.Errorf("%s: %w", filename, ErrNotCSV)
	}
	if size == 0 {
		return ingest.ErrEmptyFile
	}
	if size > s.cfg.MaxFileSize {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrFileTooLarge, size, s.cfg.MaxFileSize)
	}
	return nil
}

// Preview parses an upload without persisting anything.
func (s *Service) Preview(ctx context.Context, filename string, data []byte) (*ingest.Result, error) {
	if err := s.CheckUpload(filename, int64(len(data))); err != nil {
		return nil, err
	}

	var res *ingest.Result
	err := s.limiter.Run(ctx, func() error {
		var err error
		res, err = ingest.Parse(data, filename)
		return err
	})
	return res, err
}

// Upload parses a file and ingests it as a new dataset for the session.
// The raw bytes are archived and a dataset.created event is published; both
// are best effort and only logged on failure.
func (s *Service) Upload(ctx context.Context, sess auth.Session, filename string, data []byte) (*UploadResult, error) {
	if !sess.Actor.Authenticated() {
		return nil, ErrUnauthorized
	}
	if err := s.CheckUpload(filename, int64(len(data))); err != nil {
		return nil, err
	}

	client := ClientFromContext(ctx)
	logger := logging.WithFields(ctx,
		"owner_id", sess.Actor.ID,
		"filename", filename,
		"ip", client.IP,
	)

	var result *UploadResult
	err := s.limiter.Run(ctx, func() error {
		uploadCtx, cancel := context.WithTimeout(ctx, s.cfg.UploadTimeout)
		defer cancel()

		start := time.Now()
		res, err := ingest.Parse(data, filename)
		if err != nil {
			logger.Info("upload rejected", "error", err)
			return err
		}

		ds, err := s.Manager(uploadCtx, sess).Ingest(uploadCtx, res)
		if err != nil {
			return err
		}

		logger.Info("upload completed",
			"dataset_id", ds.ID,
			"records", ds.TotalCount,
			"skipped_rows", res.SkippedRows,
			"duration_ms", time.Since(start).Milliseconds(),
		)

		result = &UploadResult{Dataset: ds, Summary: res.Summary, SkippedRows: res.SkippedRows}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ds := result.Dataset
	if err := s.archiver.Put(ctx, archive.Key(ds.OwnerID, ds.ID, ds.Filename), data); err != nil {
		logger.Warn("archive upload failed", "dataset_id", ds.ID, "error", err)
	}
	s.publish(ctx, events.Event{
		Type:       events.DatasetCreated,
		DatasetID:  ds.ID,
		OwnerID:    ds.OwnerID,
		Filename:   ds.Filename,
		TotalCount: ds.TotalCount,
		OccurredAt: ds.CreatedAt,
	})

	return result, nil
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		logging.WithFields(ctx, "dataset_id", e.DatasetID, "event", e.Type).
			Warn("publish event failed", "error", err)
	}
}
