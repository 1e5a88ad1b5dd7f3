package kbase

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/kbase/ai"
	"github.com/poiesic/kbase/ai/mock"
	"github.com/poiesic/kbase/core"
)

var fixedNow = time.Date(2025, time.March, 4, 10, 30, 0, 0, time.UTC)

func newTestService(t *testing.T, opts ...Option) (*Service, *mock.MockProvider) {
	t.Helper()
	provider := mock.NewMockProviderWithServices(mock.NewMockEmbedder())
	base := []Option{
		WithProvider(provider),
		WithAIConfig(ai.NewConfig(ai.WithRetryDelay(time.Millisecond))),
		WithMediaRoot(t.TempDir()),
		WithClock(func() time.Time { return fixedNow }),
	}
	svc, err := Open("", append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc, provider
}

func upload(name, content string) Upload {
	return Upload{Name: name, Body: strings.NewReader(content)}
}

func mediaFiles(t *testing.T, root string) []string {
	t.Helper()
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			rel, _ := filepath.Rel(root, path)
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	require.NoError(t, err)
	return files
}

func TestOpen(t *testing.T) {
	t.Run("in-memory needs media root", func(t *testing.T) {
		_, err := Open("", WithProvider(mock.NewMockProvider()))
		assert.ErrorIs(t, err, ErrMediaRootRequired)
	})

	t.Run("on disk", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "kb")
		svc, err := Open(dir, WithProvider(mock.NewMockProvider()))
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "media"), svc.mediaRoot)
		assert.NotNil(t, svc.DocumentRepository())
		assert.NotNil(t, svc.ChatRepository())
		assert.NotNil(t, svc.VectorStore())
		assert.NoError(t, svc.Close())
	})

	t.Run("database path is a file", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "db"), []byte("x"), 0o644))
		_, err := Open(dir, WithProvider(mock.NewMockProvider()))
		assert.Error(t, err)
	})

	t.Run("no candidates", func(t *testing.T) {
		_, err := Open("", WithProvider(mock.NewMockProvider()), WithMediaRoot(t.TempDir()),
			WithAIConfig(ai.NewConfig(ai.WithPrimaryModel(""), ai.WithBackupModels())))
		assert.Error(t, err)
	})
}

func TestUploadBatch_MixedOutcome(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	result := svc.UploadBatch(ctx, 1, []Upload{
		upload("Jadwal Kuliah.txt", "Senin 08:00 Kalkulus ruang A1"),
		upload("laporan.docx", "not supported"),
		upload("kosong.txt", "   "),
	})

	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, "Berhasil memproses 1 file. (Gagal: 2)", result.Message)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, []string{"laporan.docx (Gagal Parsing)", "kosong.txt (Gagal Parsing)"}, result.Errors)
	require.Len(t, result.Documents, 1)

	doc := result.Documents[0]
	assert.True(t, doc.Embedded)
	assert.Equal(t, "Jadwal Kuliah.txt", doc.Title)
	assert.Equal(t, "txt", doc.Format)
	assert.Equal(t, int64(len("Senin 08:00 Kalkulus ruang A1")), doc.Size)

	stored, err := svc.DocumentRepository().GetDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.True(t, stored.Embedded)

	listed, err := svc.DocumentRepository().ListDocuments(ctx, 1, 0)
	require.NoError(t, err)
	assert.Len(t, listed, 1, "failed uploads leave no record")

	assert.Equal(t, []string{"documents/2025/03/Jadwal Kuliah.txt"}, mediaFiles(t, svc.mediaRoot),
		"failed uploads leave no file")
}

func TestUploadBatch_AllFail(t *testing.T) {
	svc, _ := newTestService(t)

	result := svc.UploadBatch(context.Background(), 1, []Upload{
		upload("a.docx", "x"),
		upload("b.csv", "a,b;c\n1\n2,3,4;5;6;7\n"),
	})

	assert.Equal(t, StatusError, result.Status)
	assert.Equal(t, "Gagal semua. Detail: a.docx (Gagal Parsing), b.csv (Gagal Parsing)", result.Message)
	assert.Zero(t, result.Succeeded)
	assert.Empty(t, mediaFiles(t, svc.mediaRoot))
}

func TestUploadBatch_SystemErrors(t *testing.T) {
	svc, _ := newTestService(t)

	result := svc.UploadBatch(context.Background(), 0, []Upload{upload("a.txt", "x")})
	assert.Equal(t, StatusError, result.Status)
	assert.Equal(t, []string{"a.txt (System Error)"}, result.Errors)

	failing := Upload{Name: "b.txt", Body: iotestErrReader{}}
	result = svc.UploadBatch(context.Background(), 1, []Upload{failing})
	assert.Equal(t, []string{"b.txt (System Error)"}, result.Errors)
	assert.Empty(t, mediaFiles(t, svc.mediaRoot))
}

type iotestErrReader struct{}

func (iotestErrReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestUploadBatch_DuplicateNamesGetDistinctFiles(t *testing.T) {
	svc, _ := newTestService(t)

	result := svc.UploadBatch(context.Background(), 1, []Upload{
		upload("../../etc/notes.txt", "first copy"),
		upload(`C:\Users\me\notes.txt`, "second copy"),
	})

	require.Equal(t, 2, result.Succeeded)
	assert.Equal(t, "notes.txt", result.Documents[0].Title)
	assert.Equal(t, "notes.txt", result.Documents[1].Title)
	assert.ElementsMatch(t,
		[]string{"documents/2025/03/notes.txt", "documents/2025/03/notes_1.txt"},
		mediaFiles(t, svc.mediaRoot))
}

func TestAsk_AnswersWithSourcesAndRecordsHistory(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	svc.UploadBatch(ctx, 1, []Upload{upload("jadwal.txt", "Senin 08:00 Kalkulus")})

	reply, err := svc.Ask(ctx, 1, "Jadwal kuliah semester 3")
	require.NoError(t, err)

	assert.Equal(t, "answer from "+ai.DefaultPrimaryModel, reply.Answer)
	assert.Equal(t, []string{"jadwal.txt"}, reply.Sources)
	assert.False(t, reply.Degraded)

	history, err := svc.History(ctx, 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Jadwal kuliah semester 3", history[0].Question)
	assert.Equal(t, reply.Answer, history[0].Answer)
	assert.Equal(t, []string{"jadwal.txt"}, history[0].Sources)
	assert.True(t, history[0].Timestamp.Equal(fixedNow))
}

func TestAsk_TenantIsolation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	svc.UploadBatch(ctx, 1, []Upload{upload("owner-one.txt", "rahasia pemilik satu")})
	svc.UploadBatch(ctx, 2, []Upload{upload("owner-two.txt", "rahasia pemilik dua")})

	reply, err := svc.Ask(ctx, 2, "apa rahasianya?")
	require.NoError(t, err)
	assert.Equal(t, []string{"owner-two.txt"}, reply.Sources)

	history, err := svc.History(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestAsk_DegradedAnswerIsRecorded(t *testing.T) {
	cfg := ai.NewConfig(ai.WithRetryDelay(time.Millisecond))
	svc, provider := newTestService(t, WithAIConfig(cfg))
	for _, c := range cfg.Candidates() {
		provider.GetMockCompleter(c.Model).Fail(errors.New("429 too many requests"))
	}
	ctx := context.Background()
	svc.UploadBatch(ctx, 1, []Upload{upload("jadwal.txt", "Senin 08:00 Kalkulus")})

	reply, err := svc.Ask(ctx, 1, "jadwal senin")
	require.NoError(t, err)

	assert.True(t, reply.Degraded)
	assert.Equal(t, "Maaf, semua server AI sedang sibuk. (Error: 429 too many requests)", reply.Answer)
	assert.Empty(t, reply.Sources)

	history, err := svc.History(ctx, 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, reply.Answer, history[0].Answer)
}

func TestAsk_EmptyQuestion(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Ask(context.Background(), 1, "  ")
	assert.ErrorIs(t, err, core.ErrEmptyContent)
}

func TestReingest(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	empty := svc.Reingest(ctx, 1)
	assert.Equal(t, StatusError, empty.Status)
	assert.Equal(t, "Tidak ada dokumen untuk di-reingest.", empty.Message)

	uploaded := svc.UploadBatch(ctx, 1, []Upload{
		upload("a.txt", "isi dokumen a"),
		upload("b.txt", "isi dokumen b"),
	})
	require.Equal(t, 2, uploaded.Succeeded)
	other := svc.UploadBatch(ctx, 2, []Upload{upload("c.txt", "isi dokumen c")})
	require.Equal(t, 1, other.Succeeded)

	all := svc.Reingest(ctx, 1)
	assert.Equal(t, StatusSuccess, all.Status)
	assert.Equal(t, "Re-ingest berhasil: 2/2 dokumen.", all.Message)
	for _, doc := range all.Documents {
		stored, err := svc.DocumentRepository().GetDocument(ctx, doc.Id)
		require.NoError(t, err)
		assert.Equal(t, 1, stored.Generation)
	}

	foreign := svc.Reingest(ctx, 1, other.Documents[0].Id)
	assert.Equal(t, StatusError, foreign.Status, "another owner's document is not visible")

	one := svc.Reingest(ctx, 1, uploaded.Documents[0].Id, core.ID(9999))
	assert.Equal(t, "Re-ingest berhasil: 1/1 dokumen.", one.Message)
}

func TestReingest_PartialFailure(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	uploaded := svc.UploadBatch(ctx, 1, []Upload{
		upload("ok.txt", "tetap ada"),
		upload("hilang.txt", "akan dihapus"),
	})
	require.Equal(t, 2, uploaded.Succeeded)
	require.NoError(t, os.Remove(uploaded.Documents[1].FilePath))

	result := svc.Reingest(ctx, 1)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, "Re-ingest berhasil: 1/2 dokumen. Gagal: 1 (hilang.txt (Gagal Parsing))", result.Message)

	stored, err := svc.DocumentRepository().GetDocument(ctx, uploaded.Documents[1].Id)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Generation)
}

func TestDocuments(t *testing.T) {
	svc, _ := newTestService(t, WithQuota(1024))
	ctx := context.Background()
	svc.UploadBatch(ctx, 1, []Upload{upload("a.txt", strings.Repeat("x", 512))})

	payload, err := svc.Documents(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, payload.Documents, 1)
	assert.Equal(t, "a.txt", payload.Documents[0].Title)
	assert.True(t, payload.Documents[0].Embedded)
	assert.Equal(t, "2025-03-04 10:30", payload.Documents[0].UploadedAt)
	assert.Equal(t, int64(512), payload.Documents[0].SizeBytes)
	assert.Equal(t, 50, payload.Storage.UsedPct)
	assert.Equal(t, int64(1024), payload.Storage.QuotaBytes)

	other, err := svc.Documents(ctx, 2, 100)
	require.NoError(t, err)
	assert.Empty(t, other.Documents)
	assert.Equal(t, 0, other.Storage.UsedPct)
}

func TestBuildStorageUsage(t *testing.T) {
	tests := []struct {
		name      string
		used      int64
		quota     int64
		wantPct   int
		wantQuota int64
		wantUsedH string
	}{
		{"empty", 0, 10 << 20, 0, 10 << 20, "0 B"},
		{"half", 5 << 20, 10 << 20, 50, 10 << 20, "5.0 MiB"},
		{"truncated", 999, 1000, 99, 1000, "999 B"},
		{"over quota capped", 30 << 20, 10 << 20, 100, 10 << 20, "30 MiB"},
		{"zero quota counts as one byte", 10, 0, 100, 1, "10 B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildStorageUsage(tt.used, tt.quota)
			assert.Equal(t, tt.wantPct, got.UsedPct)
			assert.Equal(t, tt.wantQuota, got.QuotaBytes)
			assert.Equal(t, tt.wantUsedH, got.UsedHuman)
		})
	}
}

func TestCleanName(t *testing.T) {
	tests := map[string]string{
		"notes.txt":              "notes.txt",
		"../../etc/passwd":       "passwd",
		`C:\Users\me\nilai.xlsx`: "nilai.xlsx",
		"":                       "upload",
		"..":                     "upload",
		"/":                      "upload",
	}
	for in, want := range tests {
		assert.Equal(t, want, cleanName(in), in)
	}
}

func TestProgressCallback(t *testing.T) {
	var calls [][2]int
	svc, _ := newTestService(t, WithProgress(func(done, total int) {
		calls = append(calls, [2]int{done, total})
	}))
	ctx := context.Background()

	svc.UploadBatch(ctx, 1, []Upload{upload("a.txt", "satu"), upload("b.docx", "dua")})
	assert.Equal(t, [][2]int{{1, 2}, {2, 2}}, calls)

	calls = nil
	svc.Reingest(ctx, 1)
	assert.Equal(t, [][2]int{{1, 1}}, calls)
}
