package kbase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/kbase/core"
	"github.com/poiesic/kbase/parser"
	"github.com/poiesic/kbase/storage"
)

// Batch outcome statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Upload is one file handed to UploadBatch.
type Upload struct {
	Name string
	Body io.Reader
}

// BatchResult summarizes an upload or re-ingest batch. Status is
// StatusSuccess when at least one document made it.
type BatchResult struct {
	Status    string           `json:"status"`
	Message   string           `json:"msg"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Errors    []string         `json:"errors,omitempty"`
	Documents []*core.Document `json:"-"`
}

func (r *BatchResult) fail(name, reason string) {
	r.Failed++
	r.Errors = append(r.Errors, fmt.Sprintf("%s (%s)", name, reason))
}

const (
	reasonParse  = "Gagal Parsing"
	reasonSystem = "System Error"
)

// UploadBatch stores and ingests each upload in turn. A document whose
// ingestion fails is removed together with its file; the rest of the batch
// carries on.
func (s *Service) UploadBatch(ctx context.Context, ownerID core.ID, uploads []Upload) BatchResult {
	var result BatchResult
	for i, up := range uploads {
		name := cleanName(up.Name)
		doc, ok, err := s.uploadOne(ctx, ownerID, name, up.Body)
		switch {
		case err != nil:
			s.logger.Error("upload failed", "owner", ownerID.String(), "file", name, "error", err)
			result.fail(name, reasonSystem)
		case !ok:
			result.fail(name, reasonParse)
		default:
			result.Succeeded++
			result.Documents = append(result.Documents, doc)
		}
		s.report(i+1, len(uploads))
	}

	if result.Succeeded > 0 {
		result.Status = StatusSuccess
		result.Message = fmt.Sprintf("Berhasil memproses %d file.", result.Succeeded)
		if result.Failed > 0 {
			result.Message += fmt.Sprintf(" (Gagal: %d)", result.Failed)
		}
		return result
	}
	result.Status = StatusError
	result.Message = "Gagal semua. Detail: " + strings.Join(result.Errors, ", ")
	return result
}

// uploadOne reports ok=false with a nil error when the file was stored but
// could not be ingested.
func (s *Service) uploadOne(ctx context.Context, ownerID core.ID, name string, body io.Reader) (*core.Document, bool, error) {
	if ownerID == 0 {
		return nil, false, core.ErrMissingOwner
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	now := s.now()
	path, size, err := s.saveFile(name, body)
	if err != nil {
		return nil, false, err
	}

	doc, err := s.stores.Documents.AddDocument(ctx, &core.Document{
		OwnerId:    ownerID,
		Title:      name,
		FilePath:   path,
		Format:     string(parser.FormatFromPath(name)),
		Size:       size,
		UploadedAt: now,
	})
	if err != nil {
		os.Remove(path)
		return nil, false, err
	}

	if !s.pipeline.Ingest(ctx, doc) {
		s.discard(ctx, doc)
		return nil, false, nil
	}

	if _, err := s.stores.Documents.UpdateDocument(ctx, doc); err != nil {
		if _, delErr := storage.Scope(s.vectors, ownerID).Delete(ctx, core.Metadata{core.MetaDocID: doc.Id.String()}); delErr != nil {
			s.logger.Error("removing chunks of unsaved document failed", "doc_id", doc.Id.String(), "error", delErr)
		}
		s.discard(ctx, doc)
		return nil, false, err
	}
	return doc, true, nil
}

// discard removes a document record and its file.
func (s *Service) discard(ctx context.Context, doc *core.Document) {
	if err := s.stores.Documents.DeleteDocument(ctx, doc.Id); err != nil {
		s.logger.Error("deleting document record failed", "doc_id", doc.Id.String(), "error", err)
	}
	if err := os.Remove(doc.FilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Error("deleting upload failed", "path", doc.FilePath, "error", err)
	}
}

// saveFile writes body under media/documents/YYYY/MM, picking a free name.
func (s *Service) saveFile(name string, body io.Reader) (string, int64, error) {
	now := s.now()
	dir := filepath.Join(s.mediaRoot, "documents", now.Format("2006"), now.Format("01"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, err
	}

	f, path, err := createUnique(dir, name)
	if err != nil {
		return "", 0, err
	}
	size, err := io.Copy(f, body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return "", 0, err
	}
	return path, size, nil
}

func createUnique(dir, name string) (*os.File, string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 0; i < 1000; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s_%d%s", stem, i, ext)
		}
		path := filepath.Join(dir, candidate)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return nil, "", err
		}
		return f, path, nil
	}
	return nil, "", fmt.Errorf("%w: %s in %s", ErrNoFreeName, name, dir)
}

// cleanName reduces a client supplied file name to its base name.
func cleanName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if base == "." || base == "/" || base == ".." {
		return "upload"
	}
	return base
}

// Reingest rebuilds the chunks of ownerID's documents, or only of docIDs
// when given. Documents that do not belong to ownerID are skipped.
func (s *Service) Reingest(ctx context.Context, ownerID core.ID, docIDs ...core.ID) BatchResult {
	docs, err := s.ownedDocuments(ctx, ownerID, docIDs)
	if err != nil {
		s.logger.Error("loading documents for reingest failed", "owner", ownerID.String(), "error", err)
		return BatchResult{Status: StatusError, Message: "Gagal memuat dokumen: " + err.Error()}
	}
	if len(docs) == 0 {
		return BatchResult{Status: StatusError, Message: "Tidak ada dokumen untuk di-reingest."}
	}

	var result BatchResult
	for i, doc := range docs {
		s.reingestOne(ctx, doc, &result)
		s.report(i+1, len(docs))
	}

	total := len(docs)
	if result.Succeeded > 0 {
		result.Status = StatusSuccess
		result.Message = fmt.Sprintf("Re-ingest berhasil: %d/%d dokumen.", result.Succeeded, total)
		if result.Failed > 0 {
			shown := result.Errors
			more := ""
			if len(shown) > 5 {
				shown, more = shown[:5], "..."
			}
			result.Message += fmt.Sprintf(" Gagal: %d (%s%s)", result.Failed, strings.Join(shown, ", "), more)
		}
		return result
	}
	result.Status = StatusError
	result.Message = "Gagal re-ingest semua dokumen. Detail: " + strings.Join(result.Errors, ", ")
	return result
}

func (s *Service) reingestOne(ctx context.Context, doc *core.Document, result *BatchResult) {
	if !s.pipeline.Reingest(ctx, doc) {
		result.fail(doc.Title, reasonParse)
		return
	}
	if _, err := s.stores.Documents.UpdateDocument(ctx, doc); err != nil {
		s.logger.Error("saving reingested document failed", "doc_id", doc.Id.String(), "error", err)
		result.fail(doc.Title, reasonSystem)
		return
	}
	result.Succeeded++
	result.Documents = append(result.Documents, doc)
}

func (s *Service) ownedDocuments(ctx context.Context, ownerID core.ID, ids []core.ID) ([]*core.Document, error) {
	if len(ids) == 0 {
		return s.stores.Documents.ListDocuments(ctx, ownerID, 0)
	}
	var docs []*core.Document
	for _, id := range ids {
		doc, err := s.stores.Documents.GetDocument(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if doc.OwnerId == ownerID {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}
