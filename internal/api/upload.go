package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
)

// UploadDocument streams a document artifact to /api/documents/post_document/
// as multipart form data and returns the consumption task uuid the server
// assigns. progress may be nil.
func (c *Client) UploadDocument(ctx context.Context, artifact []byte, meta UploadMeta, progress ProgressFunc) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fileName := meta.FileName
	if fileName == "" {
		fileName = "document.pdf"
	}
	part, err := w.CreateFormFile("document", fileName)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(artifact); err != nil {
		return "", fmt.Errorf("write form file: %w", err)
	}

	if meta.Title != "" {
		if err := w.WriteField("title", meta.Title); err != nil {
			return "", fmt.Errorf("write title field: %w", err)
		}
	}
	for _, id := range meta.Tags {
		if err := w.WriteField("tags", strconv.FormatInt(id, 10)); err != nil {
			return "", fmt.Errorf("write tags field: %w", err)
		}
	}
	optional := map[string]*int64{
		"correspondent":         meta.Correspondent,
		"document_type":         meta.DocumentType,
		"storage_path":          meta.StoragePath,
		"archive_serial_number": meta.ArchiveSerial,
	}
	for field, v := range optional {
		if v != nil {
			if err := w.WriteField(field, strconv.FormatInt(*v, 10)); err != nil {
				return "", fmt.Errorf("write %s field: %w", field, err)
			}
		}
	}
	for _, id := range meta.CustomFieldIDs {
		if err := w.WriteField("custom_fields", strconv.FormatInt(id, 10)); err != nil {
			return "", fmt.Errorf("write custom_fields field: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	total := int64(buf.Len())
	var body io.Reader = &buf
	if progress != nil {
		body = &progressReader{r: &buf, total: total, fn: progress}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/documents/post_document/", body)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.ContentLength = total
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &NetworkError{Op: "upload", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		switch resp.StatusCode {
		case 401, 403:
			return "", &AuthError{StatusCode: resp.StatusCode, Message: serverMessage(raw)}
		default:
			return "", &ClientError{StatusCode: resp.StatusCode, Message: serverMessage(raw)}
		}
	}

	// The server answers with the consumption task uuid as a JSON string.
	taskID := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if taskID == "" {
		return "", &ParseError{Message: "upload response", Err: fmt.Errorf("empty task id")}
	}
	return taskID, nil
}

// DownloadDocument fetches a document's binary content.
func (c *Client) DownloadDocument(ctx context.Context, id int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/api/documents/%d/download/", c.baseURL, id), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: "download", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.statusError(resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: "download", Err: err}
	}
	return data, nil
}

// progressReader reports cumulative bytes read to a callback.
type progressReader struct {
	r     io.Reader
	sent  int64
	total int64
	fn    ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		p.fn(p.sent, p.total)
	}
	return n, err
}
