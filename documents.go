package kbase

import (
	"context"

	"github.com/dustin/go-humanize"

	"github.com/poiesic/kbase/core"
)

// DocumentListLimit caps how many documents Documents returns.
const DocumentListLimit = 50

// DocumentInfo is the listing view of one document.
type DocumentInfo struct {
	Id         core.ID `json:"id"`
	Title      string  `json:"title"`
	Embedded   bool    `json:"is_embedded"`
	UploadedAt string  `json:"uploaded_at"`
	SizeBytes  int64   `json:"size_bytes"`
}

// StorageUsage reports how much of the quota the listed documents use.
type StorageUsage struct {
	UsedBytes  int64  `json:"used_bytes"`
	QuotaBytes int64  `json:"quota_bytes"`
	UsedPct    int    `json:"used_pct"`
	UsedHuman  string `json:"used_human"`
	QuotaHuman string `json:"quota_human"`
}

// DocumentsPayload is the document listing with storage usage.
type DocumentsPayload struct {
	Documents []DocumentInfo `json:"documents"`
	Storage   StorageUsage   `json:"storage"`
}

// Documents lists ownerID's newest documents and their storage usage. A
// quota <= 0 uses the service quota.
func (s *Service) Documents(ctx context.Context, ownerID core.ID, quotaBytes int64) (*DocumentsPayload, error) {
	if quotaBytes <= 0 {
		quotaBytes = s.quotaBytes
	}
	docs, err := s.stores.Documents.ListDocuments(ctx, ownerID, DocumentListLimit)
	if err != nil {
		return nil, err
	}

	payload := &DocumentsPayload{Documents: make([]DocumentInfo, 0, len(docs))}
	var total int64
	for _, d := range docs {
		total += d.Size
		payload.Documents = append(payload.Documents, DocumentInfo{
			Id:         d.Id,
			Title:      d.Title,
			Embedded:   d.Embedded,
			UploadedAt: d.UploadedAt.Format("2006-01-02 15:04"),
			SizeBytes:  d.Size,
		})
	}
	payload.Storage = BuildStorageUsage(total, quotaBytes)
	return payload, nil
}

// BuildStorageUsage computes the usage payload. The percentage is truncated
// and capped at 100; a quota below one byte counts as one.
func BuildStorageUsage(usedBytes, quotaBytes int64) StorageUsage {
	quotaBytes = max(quotaBytes, 1)
	usedBytes = max(usedBytes, 0)
	pct := min(100, float64(usedBytes)/float64(quotaBytes)*100)
	return StorageUsage{
		UsedBytes:  usedBytes,
		QuotaBytes: quotaBytes,
		UsedPct:    int(pct),
		UsedHuman:  humanize.IBytes(uint64(usedBytes)),
		QuotaHuman: humanize.IBytes(uint64(quotaBytes)),
	}
}
