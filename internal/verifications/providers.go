package verifications

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// OCRProvider extracts raw text from a scanned document
type OCRProvider interface {
	ExtractText(ctx context.Context, document []byte, mimeType string) (string, error)
}

// FaceEngine computes face embeddings and compares a document photo
// against a stored embedding. Compare returns a similarity in [0, 1].
type FaceEngine interface {
	Embed(ctx context.Context, image []byte) ([]byte, error)
	Compare(ctx context.Context, document []byte, embedding []byte) (float64, error)
}

type httpOCRProvider struct {
	url    string
	apiKey string
	client *http.Client
}

// NewHTTPOCRProvider creates an OCR client for an external text
// extraction service. Returns nil when no URL is configured.
func NewHTTPOCRProvider(url, apiKey string) OCRProvider {
	if url == "" {
		return nil
	}
	return &httpOCRProvider{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *httpOCRProvider) ExtractText(ctx context.Context, document []byte, mimeType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url+"/v1/extract", bytes.NewReader(document))
	if err != nil {
		return "", fmt.Errorf("failed to build OCR request: %w", err)
	}
	req.Header.Set("Content-Type", mimeType)
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("OCR request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("OCR provider returned status %d", resp.StatusCode)
	}

	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode OCR response: %w", err)
	}
	return body.Text, nil
}

type httpFaceEngine struct {
	url    string
	apiKey string
	client *http.Client
}

// NewHTTPFaceEngine creates a face comparison client for an external
// biometric service. Returns nil when no URL is configured.
func NewHTTPFaceEngine(url, apiKey string) FaceEngine {
	if url == "" {
		return nil
	}
	return &httpFaceEngine{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

func (e *httpFaceEngine) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode face request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build face request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("face request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("face provider returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode face response: %w", err)
	}
	return nil
}

func (e *httpFaceEngine) Embed(ctx context.Context, image []byte) ([]byte, error) {
	var out struct {
		Embedding string `json:"embedding"`
	}
	payload := map[string]string{"image": base64.StdEncoding.EncodeToString(image)}
	if err := e.post(ctx, "/v1/embed", payload, &out); err != nil {
		return nil, err
	}
	embedding, err := base64.StdEncoding.DecodeString(out.Embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to decode embedding: %w", err)
	}
	return embedding, nil
}

func (e *httpFaceEngine) Compare(ctx context.Context, document []byte, embedding []byte) (float64, error) {
	var out struct {
		Score float64 `json:"score"`
	}
	payload := map[string]string{
		"document":  base64.StdEncoding.EncodeToString(document),
		"embedding": base64.StdEncoding.EncodeToString(embedding),
	}
	if err := e.post(ctx, "/v1/compare", payload, &out); err != nil {
		return 0, err
	}
	return out.Score, nil
}
