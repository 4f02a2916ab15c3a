package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"

	"qcatlas/internal/blob"
	"qcatlas/pkg/domain"
)

// ErrNoBlobStore is returned by attachment operations when no blob store is configured.
var ErrNoBlobStore = errors.New("no blob store configured")

// AttachmentKey returns the blob key holding the content of a file.
func AttachmentKey(implementationID, fileID string) string {
	return fmt.Sprintf("implementations/%s/files/%s", implementationID, fileID)
}

// AttachFile stores content in the blob store and records a File owned by the implementation.
func (s *Service) AttachFile(ctx context.Context, implementationID, name, mimeType string, content io.Reader) (domain.File, error) {
	var file domain.File
	err := s.run(ctx, query("attach", domain.EntityFile), func(ctx context.Context) (string, error) {
		if s.blobs == nil {
			return "", ErrNoBlobStore
		}
		if name == "" {
			return "", domain.NewInvalidValue(domain.EntityFile, "name", "is required")
		}
		if _, err := s.Resolve(ctx, domain.EntityImplementation, implementationID); err != nil {
			return "", err
		}
		fileID := uuid.NewString()
		key := AttachmentKey(implementationID, fileID)
		info, err := s.blobs.Put(ctx, key, content, blob.PutOptions{
			ContentType: mimeType,
			Metadata:    map[string]string{"implementation_id": implementationID, "name": name},
		})
		if err != nil {
			return fileID, fmt.Errorf("store attachment: %w", err)
		}
		file, _, err = Create(ctx, s, domain.File{
			Base:             domain.Base{ID: fileID},
			ImplementationID: implementationID,
			Name:             name,
			MimeType:         mimeType,
			Size:             info.Size,
			BlobKey:          key,
		})
		if err != nil {
			if _, derr := s.blobs.Delete(ctx, key); derr != nil {
				s.logger.Error("remove orphaned attachment blob", "key", key, "error", derr)
			}
			return fileID, err
		}
		return fileID, nil
	})
	return file, err
}

// FileContent opens the content of a file. The caller closes the reader.
func (s *Service) FileContent(ctx context.Context, fileID string) (domain.File, io.ReadCloser, error) {
	var (
		file domain.File
		rc   io.ReadCloser
	)
	err := s.run(ctx, query("content", domain.EntityFile), func(ctx context.Context) (string, error) {
		if s.blobs == nil {
			return fileID, ErrNoBlobStore
		}
		var err error
		file, err = Get[domain.File](ctx, s, fileID)
		if err != nil {
			return fileID, err
		}
		_, rc, err = s.blobs.Get(ctx, file.BlobKey)
		return fileID, err
	})
	return file, rc, err
}

// FileURL returns a time-limited GET URL for a file's content. Drivers that
// cannot sign URLs report blob.ErrUnsupported.
func (s *Service) FileURL(ctx context.Context, fileID string, expiry time.Duration) (string, error) {
	var signed string
	err := s.run(ctx, query("url", domain.EntityFile), func(ctx context.Context) (string, error) {
		if s.blobs == nil {
			return fileID, ErrNoBlobStore
		}
		file, err := Get[domain.File](ctx, s, fileID)
		if err != nil {
			return fileID, err
		}
		if _, err := s.blobs.Head(ctx, file.BlobKey); err != nil {
			if errors.Is(err, blob.ErrNotFound) {
				return fileID, fmt.Errorf("attachment blob %s: %w", file.BlobKey, domain.NewNotFound(domain.EntityFile, fileID))
			}
			return fileID, err
		}
		signed, err = s.blobs.PresignURL(ctx, file.BlobKey, blob.SignedURLOptions{Method: http.MethodGet, Expiry: expiry})
		return fileID, err
	})
	return signed, err
}

// AttachmentReport compares the File records of an implementation with the
// blobs stored under its attachment prefix.
type AttachmentReport struct {
	ImplementationID string        `json:"implementation_id"`
	Files            []domain.File `json:"files"`

	// Missing holds IDs of files whose content blob is absent.
	Missing []string `json:"missing,omitempty"`

	// Orphaned holds blob keys no File record points at.
	Orphaned []string `json:"orphaned,omitempty"`
}

// Consistent reports whether every file has content and every blob has a file.
func (r AttachmentReport) Consistent() bool {
	return len(r.Missing) == 0 && len(r.Orphaned) == 0
}

// CheckAttachments lists the blobs of an implementation and cross-checks them
// against its File records.
func (s *Service) CheckAttachments(ctx context.Context, implementationID string) (AttachmentReport, error) {
	report := AttachmentReport{ImplementationID: implementationID, Files: []domain.File{}}
	err := s.run(ctx, query("check_attachments", domain.EntityImplementation), func(ctx context.Context) (string, error) {
		if s.blobs == nil {
			return implementationID, ErrNoBlobStore
		}
		if _, err := s.Resolve(ctx, domain.EntityImplementation, implementationID); err != nil {
			return implementationID, err
		}
		err := s.store.View(ctx, func(v domain.TransactionView) error {
			for _, r := range v.List(domain.EntityFile) {
				if f := r.(domain.File); f.ImplementationID == implementationID {
					report.Files = append(report.Files, f)
				}
			}
			return nil
		})
		if err != nil {
			return implementationID, err
		}
		infos, err := s.blobs.List(ctx, AttachmentKey(implementationID, ""))
		if err != nil {
			return implementationID, fmt.Errorf("list attachments: %w", err)
		}
		stored := make(map[string]bool, len(infos))
		for _, info := range infos {
			stored[info.Key] = true
		}
		for _, f := range report.Files {
			if !stored[f.BlobKey] {
				report.Missing = append(report.Missing, f.ID)
			}
			delete(stored, f.BlobKey)
		}
		for key := range stored {
			report.Orphaned = append(report.Orphaned, key)
		}
		sort.Strings(report.Orphaned)
		return implementationID, nil
	})
	return report, err
}
