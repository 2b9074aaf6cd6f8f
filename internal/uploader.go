package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Uploader delivers trace records to the backend in fixed-size batches.
// Records whose spans carry token usage and bare records travel as separate
// batch streams so the backend schema never branches per record. Every batch
// is an independent unit of failure.
type Uploader struct {
	client    *http.Client
	baseURL   string
	apiKey    string
	workspace string
	batchSize int
	reporter  Reporter
}

// NewUploader creates an uploader from the resolved configuration.
func NewUploader(cfg *Config, reporter Reporter) *Uploader {
	if reporter == nil {
		reporter = LogReporter{}
	}
	return &Uploader{
		client:    &http.Client{Timeout: cfg.UploadTimeout},
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		workspace: cfg.Workspace,
		batchSize: cfg.BatchSize,
		reporter:  reporter,
	}
}

// UploadOutcome summarizes one Upload call. Sessions named in
// FailedSessions had at least one failed batch; their cursors must not
// advance.
type UploadOutcome struct {
	Uploaded       int
	FailedBatches  int
	FailedSessions map[string]struct{}
}

// SessionFailed reports whether any batch containing the session failed.
func (o *UploadOutcome) SessionFailed(sessionID string) bool {
	_, ok := o.FailedSessions[sessionID]
	return ok
}

// Upload sends all records, batch by batch. A failed batch is reported and
// its sessions marked, but unrelated batches still proceed. The context is
// consulted between batches only: shutdown lets the in-flight batch finish.
func (u *Uploader) Upload(ctx context.Context, records []*TraceRecord) *UploadOutcome {
	outcome := &UploadOutcome{FailedSessions: make(map[string]struct{})}

	withUsage, bare := partitionByUsage(records)
	for _, stream := range [][]*TraceRecord{withUsage, bare} {
		for _, batch := range chunkRecords(stream, u.batchSize) {
			if err := ctx.Err(); err != nil {
				u.failBatch(outcome, batch, fmt.Errorf("upload interrupted: %w", err))
				continue
			}
			if err := u.uploadBatch(ctx, batch); err != nil {
				u.failBatch(outcome, batch, err)
				continue
			}
			outcome.Uploaded += len(batch)
		}
	}

	return outcome
}

func (u *Uploader) uploadBatch(ctx context.Context, batch []*TraceRecord) error {
	traces := make([]Trace, 0, len(batch))
	var spans []Span
	for _, record := range batch {
		traces = append(traces, record.Trace)
		spans = append(spans, record.Spans...)
	}

	if err := u.post(ctx, "/v1/private/traces/batch", map[string]any{"traces": traces}, len(traces)); err != nil {
		return err
	}
	if len(spans) > 0 {
		if err := u.post(ctx, "/v1/private/spans/batch", map[string]any{"spans": spans}, len(spans)); err != nil {
			return err
		}
	}
	return nil
}

func (u *Uploader) post(ctx context.Context, path string, payload any, batchSize int) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &UploadError{Endpoint: path, BatchSize: batchSize, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return &UploadError{Endpoint: path, BatchSize: batchSize, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", u.apiKey)
	req.Header.Set("Comet-Workspace", u.workspace)

	resp, err := u.client.Do(req)
	if err != nil {
		return &UploadError{Endpoint: path, BatchSize: batchSize, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &UploadError{
			Endpoint:  path,
			BatchSize: batchSize,
			Status:    resp.StatusCode,
			Err:       fmt.Errorf("batch rejected: %s", bytes.TrimSpace(detail)),
		}
	}
	return nil
}

func (u *Uploader) failBatch(outcome *UploadOutcome, batch []*TraceRecord, err error) {
	outcome.FailedBatches++
	for _, record := range batch {
		outcome.FailedSessions[record.SessionID] = struct{}{}
	}
	u.reporter.Report(err, map[string]string{
		"component":  "uploader",
		"batch_size": fmt.Sprintf("%d", len(batch)),
	})
}

// DryRunUploader logs what would be uploaded without contacting the backend.
// Every record counts as delivered so cursor advancement behaves exactly as a
// real run would, against the caller's throwaway state file.
type DryRunUploader struct{}

func (DryRunUploader) Upload(_ context.Context, records []*TraceRecord) *UploadOutcome {
	for _, record := range records {
		LogInfo("[dry-run] trace %q (%d span(s), session %s)", record.Trace.Name, len(record.Spans), record.SessionID)
	}
	return &UploadOutcome{Uploaded: len(records), FailedSessions: make(map[string]struct{})}
}

func partitionByUsage(records []*TraceRecord) (withUsage, bare []*TraceRecord) {
	for _, record := range records {
		if record.HasUsage {
			withUsage = append(withUsage, record)
		} else {
			bare = append(bare, record)
		}
	}
	return withUsage, bare
}

func chunkRecords(records []*TraceRecord, size int) [][]*TraceRecord {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var chunks [][]*TraceRecord
	for start := 0; start < len(records); start += size {
		end := min(start+size, len(records))
		chunks = append(chunks, records[start:end])
	}
	return chunks
}
