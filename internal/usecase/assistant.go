package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"learnshell/internal/domain"
	"learnshell/internal/imaging"
	"learnshell/internal/ports"
	"learnshell/internal/speech"
	"learnshell/internal/windows"
)

var (
	ErrNoPendingQuery     = errors.New("no pending query")
	ErrUnknownSearchMode  = errors.New("unknown search mode")
	ErrNoScholarLink      = errors.New("scholar result has no link")
	ErrNothingToSpeak     = errors.New("window has no text to speak")
	ErrEmptyUpload        = errors.New("upload is empty")
	ErrCollaboratorAbsent = errors.New("collaborator not configured")
)

const (
	imageSearchQuery   = "Image search"
	noResponseAnswer   = "No response received"
	scholarFailure     = "Failed to load academic results"
	imageAnalysisError = "Error analyzing image"
	imageSearchFailure = "Failed to load similar images"
)

// AssistantDeps are the remote collaborators behind the workflows. Scholar
// may be nil, in which case answers are shown without academic results.
type AssistantDeps struct {
	Answerer   ports.Answerer
	Summarizer ports.Summarizer
	Analyzer   ports.ImageAnalyzer
	Uploader   ports.ImageUploader
	Emotions   ports.EmotionDetector
	Speech     ports.Synthesizer
	Scholar    ports.ScholarSearcher
	Images     ports.ImageSearcher
	Clipboard  ports.Clipboard
}

// AssistantConfig tunes the workflows.
type AssistantConfig struct {
	ThumbnailWidth int
}

// Assistant drives the learning workflows on top of the window registry.
// Collaborator calls run in the background; their results re-enter the
// registry only while the request that started them is still current.
type Assistant struct {
	windows *windows.Manager
	deps    AssistantDeps
	events  ports.EventSink
	logger  *slog.Logger
	cfg     AssistantConfig

	mu          sync.Mutex
	lastCapture []byte

	wg sync.WaitGroup
}

func NewAssistant(manager *windows.Manager, deps AssistantDeps, events ports.EventSink, logger *slog.Logger, cfg AssistantConfig) *Assistant {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.ThumbnailWidth <= 0 {
		cfg.ThumbnailWidth = imaging.DefaultThumbnailWidth
	}
	return &Assistant{
		windows: manager,
		deps:    deps,
		events:  events,
		logger:  logger,
		cfg:     cfg,
	}
}

// Windows returns the registry the assistant drives.
func (a *Assistant) Windows() *windows.Manager {
	return a.windows
}

// Wait blocks until every background request has finished.
func (a *Assistant) Wait() {
	a.wg.Wait()
}

// SubmitQuery docks the search bar and stores query as the pending query
// awaiting a mode choice. Blank queries are ignored.
func (a *Assistant) SubmitQuery(query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	if search, ok := a.windows.Get(domain.WindowIDSearch); ok && !search.IsMinimized {
		if err := a.windows.Minimize(search.ID); err != nil {
			return err
		}
	}
	return a.windows.UpdateContent(domain.WindowIDSearch, windows.SearchPatch{
		Draft:   lo.ToPtr(""),
		Pending: &query,
	})
}

// PendingQuery returns the query awaiting a mode choice.
func (a *Assistant) PendingQuery() string {
	search, ok := a.windows.Get(domain.WindowIDSearch)
	if !ok {
		return ""
	}
	content, _ := search.Content.(windows.SearchContent)
	return content.Pending
}

// Search answers the pending query with the model for mode. It returns the
// response window id as soon as the window shows its loading state.
func (a *Assistant) Search(ctx context.Context, mode domain.SearchMode) (string, error) {
	if mode != domain.SearchModeLocal && mode != domain.SearchModeGlobal {
		return "", fmt.Errorf("%w: %q", ErrUnknownSearchMode, mode)
	}
	if a.deps.Answerer == nil {
		return "", fmt.Errorf("%w: answerer", ErrCollaboratorAbsent)
	}
	query := a.PendingQuery()
	if query == "" {
		return "", ErrNoPendingQuery
	}

	id := domain.ResponseWindowID(mode)
	token, err := a.windows.Restart(windows.Spec{
		ID:      id,
		Kind:    domain.KindResponse,
		Content: windows.ResponseContent{Query: query, Mode: mode, Loading: true},
	})
	if err != nil {
		return "", err
	}
	a.logger.Info("search started", "window", id, "mode", mode, "token", token)
	a.spawn(func() { a.answer(ctx, id, token, mode, query) })
	return id, nil
}

func (a *Assistant) answer(ctx context.Context, id string, token uint64, mode domain.SearchMode, query string) {
	emotion := a.currentEmotion(ctx)
	if !a.complete(id, token, windows.ResponsePatch{Emotion: &emotion}) {
		return
	}

	answer, err := a.deps.Answerer.Answer(ctx, mode, query, emotion)
	if err != nil {
		a.reportError(domain.ErrorCodeAnswer, err)
		a.complete(id, token, windows.ResponsePatch{
			Answer:  lo.ToPtr(fmt.Sprintf("Error connecting to %s model", mode)),
			Loading: lo.ToPtr(false),
			Error:   lo.ToPtr(err.Error()),
		})
		return
	}
	if strings.TrimSpace(answer) == "" {
		answer = noResponseAnswer
	}

	withScholar := a.deps.Scholar != nil
	if !a.complete(id, token, windows.ResponsePatch{
		Answer:         &answer,
		Loading:        lo.ToPtr(false),
		ScholarLoading: &withScholar,
	}) || !withScholar {
		return
	}

	results, err := a.deps.Scholar.SearchScholar(ctx, query)
	if err != nil {
		a.reportError(domain.ErrorCodeScholar, err)
		a.complete(id, token, windows.ResponsePatch{
			ScholarError:   lo.ToPtr(scholarFailure),
			ScholarLoading: lo.ToPtr(false),
		})
		return
	}
	a.complete(id, token, windows.ResponsePatch{
		Scholar:        &results,
		ScholarLoading: lo.ToPtr(false),
	})
}

// OpenCamera focuses the camera window, creating it on first use.
func (a *Assistant) OpenCamera() (string, error) {
	if camera, ok := a.windows.FindByKind(domain.KindCamera); ok {
		return camera.ID, a.windows.Maximize(camera.ID)
	}
	err := a.windows.Create(windows.Spec{
		ID:      domain.WindowIDCamera,
		Kind:    domain.KindCamera,
		Content: windows.CameraContent{Capturing: true},
	})
	return domain.WindowIDCamera, err
}

// CaptureImage stores a camera still and starts an image search for it. The
// still also becomes the source for emotion detection on later searches.
func (a *Assistant) CaptureImage(ctx context.Context, dataURL string) (string, error) {
	capture, err := imaging.DecodeDataURL(dataURL)
	if err != nil {
		a.reportError(domain.ErrorCodeCamera, err)
		return "", err
	}
	thumbnail, err := imaging.Thumbnail(capture.Data, a.cfg.ThumbnailWidth)
	if err != nil {
		a.reportError(domain.ErrorCodeCamera, err)
		return "", err
	}

	a.mu.Lock()
	a.lastCapture = capture.Data
	a.mu.Unlock()

	if camera, ok := a.windows.FindByKind(domain.KindCamera); ok {
		err := a.windows.UpdateContent(camera.ID, windows.CameraPatch{
			Image:     &dataURL,
			Thumbnail: &thumbnail,
			Capturing: lo.ToPtr(false),
			Error:     lo.ToPtr(""),
		})
		if err != nil && !errors.Is(err, windows.ErrWindowNotFound) {
			return "", err
		}
	}

	id := domain.WindowIDImageResponse
	if existing, ok := a.windows.FindByKind(domain.KindImageResponse); ok {
		id = existing.ID
	}
	token, err := a.windows.Restart(windows.Spec{
		ID:   id,
		Kind: domain.KindImageResponse,
		Content: windows.ResponseContent{
			Query:          imageSearchQuery,
			Image:          dataURL,
			Thumbnail:      thumbnail,
			Loading:        a.deps.Analyzer != nil,
			MatchesLoading: a.deps.Uploader != nil && a.deps.Images != nil,
		},
	})
	if err != nil {
		return "", err
	}

	a.logger.Info("image search started", "window", id, "bytes", len(capture.Data), "token", token)
	if a.deps.Analyzer != nil {
		a.spawn(func() { a.analyzeImage(ctx, id, token, capture) })
	}
	if a.deps.Uploader != nil && a.deps.Images != nil {
		a.spawn(func() { a.searchSimilar(ctx, id, token, capture) })
	}
	return id, nil
}

func (a *Assistant) analyzeImage(ctx context.Context, id string, token uint64, capture imaging.Capture) {
	answer, err := a.deps.Analyzer.AnalyzeImage(ctx, capture.Data)
	if err != nil {
		a.reportError(domain.ErrorCodeAnswer, err)
		a.complete(id, token, windows.ResponsePatch{
			Answer:  lo.ToPtr(imageAnalysisError),
			Loading: lo.ToPtr(false),
			Error:   lo.ToPtr(err.Error()),
		})
		return
	}
	if strings.TrimSpace(answer) == "" {
		answer = noResponseAnswer
	}
	a.complete(id, token, windows.ResponsePatch{Answer: &answer, Loading: lo.ToPtr(false)})
}

func (a *Assistant) searchSimilar(ctx context.Context, id string, token uint64, capture imaging.Capture) {
	fail := func(err error) {
		a.reportError(domain.ErrorCodeImageSearch, err)
		a.complete(id, token, windows.ResponsePatch{
			MatchesError:   lo.ToPtr(imageSearchFailure),
			MatchesLoading: lo.ToPtr(false),
		})
	}

	url, err := a.deps.Uploader.UploadImage(ctx, "captured-"+uuid.NewString()+capture.Extension(), capture.Data)
	if err != nil {
		fail(err)
		return
	}
	if !a.windows.IsCurrent(id, token) {
		a.logger.Debug("image search superseded before lens lookup", "window", id, "token", token)
		return
	}
	matches, err := a.deps.Images.SearchImage(ctx, url)
	if err != nil {
		fail(err)
		return
	}
	a.complete(id, token, windows.ResponsePatch{Matches: &matches, MatchesLoading: lo.ToPtr(false)})
}

// UploadFile hosts a file and shows its URL in the upload window.
func (a *Assistant) UploadFile(ctx context.Context, name string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyUpload
	}
	if a.deps.Uploader == nil {
		return "", fmt.Errorf("%w: uploader", ErrCollaboratorAbsent)
	}

	id := domain.WindowIDUpload
	if existing, ok := a.windows.FindByKind(domain.KindUpload); ok {
		id = existing.ID
	}
	token, err := a.windows.Restart(windows.Spec{
		ID:      id,
		Kind:    domain.KindUpload,
		Content: windows.UploadContent{File: name, Loading: true},
	})
	if err != nil {
		return "", err
	}

	stored := uuid.NewString() + strings.ToLower(filepath.Ext(name))
	a.spawn(func() {
		url, err := a.deps.Uploader.UploadImage(ctx, stored, data)
		if err != nil {
			a.reportError(domain.ErrorCodeUpload, err)
			a.complete(id, token, windows.UploadPatch{Loading: lo.ToPtr(false), Error: lo.ToPtr(err.Error())})
			return
		}
		a.complete(id, token, windows.UploadPatch{URL: &url, Loading: lo.ToPtr(false)})
	})
	return id, nil
}

// OpenScholar opens a paper viewer for result: the PDF viewer when a PDF
// link exists, otherwise the web viewer. Reopening a paper focuses it.
func (a *Assistant) OpenScholar(result domain.ScholarResult) (string, error) {
	kind, url := domain.KindScholarPDF, result.PDFURL
	if url == "" {
		kind, url = domain.KindScholarWeb, result.Link
	}
	if url == "" {
		return "", ErrNoScholarLink
	}

	suffix := result.ID
	if suffix == "" {
		suffix = uuid.NewString()
	}
	id := "scholar-" + suffix
	if existing, ok := a.windows.Get(id); ok && existing.Kind == kind {
		return id, a.windows.Maximize(id)
	}
	err := a.windows.Create(windows.Spec{
		ID:   id,
		Kind: kind,
		Content: windows.ScholarViewContent{
			URL:     url,
			Title:   result.Title,
			Snippet: result.Snippet,
		},
	})
	return id, err
}

// SummarizeScholar condenses the paper shown in window id and stores the
// summary on it.
func (a *Assistant) SummarizeScholar(ctx context.Context, id string) (string, error) {
	if a.deps.Summarizer == nil {
		return "", fmt.Errorf("%w: summarizer", ErrCollaboratorAbsent)
	}
	record, ok := a.windows.Get(id)
	if !ok {
		return "", fmt.Errorf("%w: %q", windows.ErrWindowNotFound, id)
	}
	content, ok := record.Content.(windows.ScholarViewContent)
	if !ok {
		return "", fmt.Errorf("%w: %q is %s", windows.ErrContentMismatch, id, record.Kind)
	}
	if content.Snippet == "" && content.Title == "" {
		return "", ErrNothingToSpeak
	}
	text := fmt.Sprintf("Title: %s\nSnippet: %s", content.Title, content.Snippet)

	summary, err := a.deps.Summarizer.Summarize(ctx, text)
	if err != nil {
		a.reportError(domain.ErrorCodeAnswer, err)
		_ = a.windows.UpdateContent(id, windows.ScholarViewPatch{Error: lo.ToPtr(err.Error())})
		return "", err
	}
	if err := a.windows.UpdateContent(id, windows.ScholarViewPatch{Summary: &summary, Error: lo.ToPtr("")}); err != nil {
		return "", err
	}
	return summary, nil
}

// Speak synthesizes the readable text of window id.
func (a *Assistant) Speak(ctx context.Context, id string) (domain.SpeechResult, error) {
	if a.deps.Speech == nil {
		return domain.SpeechResult{}, fmt.Errorf("%w: speech", ErrCollaboratorAbsent)
	}
	text, err := a.readableText(id)
	if err != nil {
		return domain.SpeechResult{}, err
	}
	clean := speech.StripMarkdown(text)
	if clean == "" {
		return domain.SpeechResult{}, ErrNothingToSpeak
	}

	audio, err := a.deps.Speech.Synthesize(ctx, clean)
	if err != nil {
		a.reportError(domain.ErrorCodeSpeech, err)
		return domain.SpeechResult{}, err
	}
	result, err := speech.Prepare(clean, audio)
	if err != nil {
		a.reportError(domain.ErrorCodeSpeech, err)
		return domain.SpeechResult{}, err
	}
	return result, nil
}

// CopyAnswer puts the readable text of window id on the clipboard.
func (a *Assistant) CopyAnswer(ctx context.Context, id string) error {
	if a.deps.Clipboard == nil {
		return fmt.Errorf("%w: clipboard", ErrCollaboratorAbsent)
	}
	text, err := a.readableText(id)
	if err != nil {
		return err
	}
	if err := a.deps.Clipboard.SetText(ctx, text); err != nil {
		a.reportError(domain.ErrorCodeClipboard, err)
		return err
	}
	return nil
}

func (a *Assistant) readableText(id string) (string, error) {
	record, ok := a.windows.Get(id)
	if !ok {
		return "", fmt.Errorf("%w: %q", windows.ErrWindowNotFound, id)
	}
	var text string
	switch content := record.Content.(type) {
	case windows.ResponseContent:
		text = content.Answer
	case windows.ScholarViewContent:
		text = lo.CoalesceOrEmpty(content.Summary, content.Snippet)
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrNothingToSpeak
	}
	return text, nil
}

func (a *Assistant) currentEmotion(ctx context.Context) string {
	a.mu.Lock()
	capture := a.lastCapture
	a.mu.Unlock()

	if capture == nil || a.deps.Emotions == nil {
		return domain.DefaultEmotion
	}
	emotion, err := a.deps.Emotions.DetectEmotion(ctx, capture)
	if err != nil {
		a.logger.Warn("emotion detection failed", "err", err)
		return domain.DefaultEmotion
	}
	if emotion.Label == "" {
		return domain.DefaultEmotion
	}
	return emotion.Label
}

// complete applies patch while token is current. Stale and orphaned results
// are dropped.
func (a *Assistant) complete(id string, token uint64, patch windows.Patch) bool {
	err := a.windows.UpdateIfCurrent(id, token, patch)
	switch {
	case err == nil:
		return true
	case errors.Is(err, windows.ErrStaleRequest), errors.Is(err, windows.ErrWindowNotFound):
		a.logger.Debug("discarding result", "window", id, "token", token, "err", err)
	default:
		a.logger.Warn("apply result failed", "window", id, "token", token, "err", err)
	}
	return false
}

func (a *Assistant) reportError(code domain.ErrorCode, err error) {
	a.logger.Warn("workflow failed", "code", code, "err", err)
	if a.events != nil {
		a.events.SessionError(code, err.Error())
	}
}

func (a *Assistant) spawn(fn func()) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		fn()
	}()
}
