// Package backend talks to the learning backend: answering models,
// summaries, image analysis, hosting, emotion detection and speech.
package backend

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"learnshell/internal/domain"
)

const (
	pathResearch      = "/api/research"
	pathLocalResearch = "/api/local_research"
	pathSummarize     = "/api/summarize"
	pathAnalyzeImage  = "/api/analyze-image"
	pathUploadImage   = "/api/upload-image"
	pathDetectEmotion = "/api/detect-emotion"
	pathTextToSpeech  = "/api/text-to-speech"
)

var ErrEmptyResponse = errors.New("backend returned an empty response")

// Config controls the backend HTTP client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Voice   string
	Speed   float64
}

// Client implements the answering, image and speech ports over HTTP.
type Client struct {
	cfg  Config
	http *http.Client
	now  func() time.Time
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8000"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	if cfg.Voice == "" {
		cfg.Voice = "en-US-Standard-A"
	}
	if cfg.Speed <= 0 {
		cfg.Speed = 1.0
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		now:  time.Now,
	}
}

// Answer asks the local or global model. Any mode other than local is
// answered by the global research model.
func (c *Client) Answer(ctx context.Context, mode domain.SearchMode, question string, emotion string) (string, error) {
	path := pathResearch
	if mode == domain.SearchModeLocal {
		path = pathLocalResearch
	}
	if emotion == "" {
		emotion = domain.DefaultEmotion
	}

	var out struct {
		Answer string `json:"answer"`
	}
	err := c.postJSON(ctx, path, map[string]string{
		"question": question,
		"emotion":  emotion,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.Answer, nil
}

func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	var out struct {
		Answer string `json:"answer"`
	}
	if err := c.postJSON(ctx, pathSummarize, map[string]string{"content": text}, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.Answer) == "" {
		return "", fmt.Errorf("%s: %w", pathSummarize, ErrEmptyResponse)
	}
	return out.Answer, nil
}

func (c *Client) AnalyzeImage(ctx context.Context, image []byte) (string, error) {
	var out struct {
		Response string `json:"response"`
	}
	if err := c.postFile(ctx, pathAnalyzeImage, "image.jpg", image, &out); err != nil {
		return "", err
	}
	return out.Response, nil
}

func (c *Client) UploadImage(ctx context.Context, name string, image []byte) (string, error) {
	if name == "" {
		name = "captured-image.jpg"
	}
	var out struct {
		URL string `json:"url"`
	}
	if err := c.postFile(ctx, pathUploadImage, name, image, &out); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", fmt.Errorf("%s: %w", pathUploadImage, ErrEmptyResponse)
	}
	return out.URL, nil
}

func (c *Client) DetectEmotion(ctx context.Context, image []byte) (domain.Emotion, error) {
	var out domain.Emotion
	err := c.postJSON(ctx, pathDetectEmotion, map[string]any{
		"image":     base64.StdEncoding.EncodeToString(image),
		"timestamp": c.now().UnixMilli(),
	}, &out)
	if err != nil {
		return domain.Emotion{}, err
	}
	return out, nil
}

// Synthesize returns WAV audio for text.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	body, err := json.Marshal(map[string]any{
		"text":  text,
		"voice": c.cfg.Voice,
		"speed": c.cfg.Speed,
	})
	if err != nil {
		return nil, err
	}
	audio, err := c.do(ctx, pathTextToSpeech, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%s: %w", pathTextToSpeech, ErrEmptyResponse)
	}
	return audio, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	raw, err := c.do(ctx, path, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	return decode(path, raw, out)
}

func (c *Client) postFile(ctx context.Context, path string, name string, data []byte, out any) error {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return err
	}

	raw, err := c.do(ctx, path, writer.FormDataContentType(), body)
	if err != nil {
		return err
	}
	return decode(path, raw, out)
}

func (c *Client) do(ctx context.Context, path string, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("backend %s: read body: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("backend %s: status %d", path, resp.StatusCode)
	}
	return raw, nil
}

func decode(path string, raw []byte, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("backend %s: decode response: %w", path, err)
	}
	return nil
}
