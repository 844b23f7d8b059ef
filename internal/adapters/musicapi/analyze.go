package musicapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"

	"golang.org/x/oauth2"

	"github.com/ewilliams-labs/tracklens/internal/core/domain"
	"github.com/ewilliams-labs/tracklens/internal/core/ports"
)

// Analyze uploads file as the multipart field "file". A non-empty authToken
// is sent as a bearer credential. The upload is not retried since the backend
// stores each file it receives.
func (c *Client) Analyze(ctx context.Context, file domain.AudioFile, authToken string) (domain.AnalysisResult, error) {
	if !file.Valid() {
		return domain.AnalysisResult{}, domain.ErrNoAudio
	}

	body, contentType, err := encodeUpload(file)
	if err != nil {
		return domain.AnalysisResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/analyze", nil), body)
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("musicapi: failed to create analyze request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if authToken != "" {
		(&oauth2.Token{AccessToken: authToken, TokenType: "Bearer"}).SetAuthHeader(req)
	}

	resp, err := c.http.Send(req)
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("musicapi: analyze request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e errorResponse
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&e)
		return domain.AnalysisResult{}, &ports.AnalysisError{StatusCode: resp.StatusCode, Message: e.Error}
	}

	var ar analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("musicapi: analyze decode error: %w", err)
	}
	return mapAnalysisToDomain(ar), nil
}

func encodeUpload(file domain.AudioFile) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	name := filepath.Base(file.Filename)
	if name == "." || name == string(filepath.Separator) {
		name = "upload"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	ct := file.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	header.Set("Content-Type", ct)

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("musicapi: create form part: %w", err)
	}
	if _, err := io.Copy(part, file.Content); err != nil {
		return nil, "", fmt.Errorf("musicapi: read audio: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("musicapi: close form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
