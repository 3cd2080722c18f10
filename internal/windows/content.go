package windows

import (
	"slices"

	"learnshell/internal/domain"
)

// Content is the kind-specific payload of a window. The manager stores and
// merges it but never interprets it.
type Content interface {
	// Variant names the payload shape, shared by related kinds.
	Variant() Variant
	clone() Content
}

// Patch is a partial update for one content variant. Nil fields keep the
// current value.
type Patch interface {
	Variant() Variant
	apply(Content) Content
}

// Variant names a content shape.
type Variant string

const (
	VariantSearch      Variant = "search"
	VariantResponse    Variant = "response"
	VariantUpload      Variant = "upload"
	VariantCamera      Variant = "camera"
	VariantScholarView Variant = "scholar-view"
)

// VariantFor maps a window kind to the content shape it carries.
func VariantFor(kind domain.WindowKind) Variant {
	switch kind {
	case domain.KindSearch:
		return VariantSearch
	case domain.KindResponse, domain.KindImageResponse:
		return VariantResponse
	case domain.KindUpload:
		return VariantUpload
	case domain.KindCamera:
		return VariantCamera
	case domain.KindScholarWeb, domain.KindScholarPDF:
		return VariantScholarView
	default:
		return ""
	}
}

// EmptyContent returns the zero payload for kind.
func EmptyContent(kind domain.WindowKind) Content {
	switch VariantFor(kind) {
	case VariantSearch:
		return SearchContent{}
	case VariantResponse:
		return ResponseContent{}
	case VariantUpload:
		return UploadContent{}
	case VariantCamera:
		return CameraContent{}
	case VariantScholarView:
		return ScholarViewContent{}
	default:
		return nil
	}
}

// SearchContent backs the permanent search bar.
type SearchContent struct {
	Draft   string `json:"draft,omitempty"`
	Pending string `json:"pending,omitempty"`
}

func (SearchContent) Variant() Variant { return VariantSearch }
func (c SearchContent) clone() Content { return c }

// SearchPatch updates SearchContent.
type SearchPatch struct {
	Draft   *string
	Pending *string
}

func (SearchPatch) Variant() Variant { return VariantSearch }

func (p SearchPatch) apply(current Content) Content {
	c := current.(SearchContent)
	assign(&c.Draft, p.Draft)
	assign(&c.Pending, p.Pending)
	return c
}

// ResponseContent backs text and image answer panels.
type ResponseContent struct {
	Query          string                 `json:"query,omitempty"`
	Mode           domain.SearchMode      `json:"mode,omitempty"`
	Answer         string                 `json:"response"`
	Loading        bool                   `json:"isLoading"`
	Image          string                 `json:"image,omitempty"`
	Thumbnail      string                 `json:"thumbnail,omitempty"`
	Emotion        string                 `json:"emotion,omitempty"`
	Scholar        []domain.ScholarResult `json:"scholarData,omitempty"`
	ScholarLoading bool                   `json:"scholarLoading"`
	ScholarError   string                 `json:"scholarError,omitempty"`
	Matches        []domain.ImageMatch    `json:"matches,omitempty"`
	MatchesLoading bool                   `json:"matchesLoading"`
	MatchesError   string                 `json:"matchesError,omitempty"`
	Error          string                 `json:"error,omitempty"`
}

func (ResponseContent) Variant() Variant { return VariantResponse }

func (c ResponseContent) clone() Content {
	c.Scholar = slices.Clone(c.Scholar)
	c.Matches = slices.Clone(c.Matches)
	return c
}

// ResponsePatch updates ResponseContent.
type ResponsePatch struct {
	Query          *string
	Mode           *domain.SearchMode
	Answer         *string
	Loading        *bool
	Image          *string
	Thumbnail      *string
	Emotion        *string
	Scholar        *[]domain.ScholarResult
	ScholarLoading *bool
	ScholarError   *string
	Matches        *[]domain.ImageMatch
	MatchesLoading *bool
	MatchesError   *string
	Error          *string
}

func (ResponsePatch) Variant() Variant { return VariantResponse }

func (p ResponsePatch) apply(current Content) Content {
	c := current.(ResponseContent)
	assign(&c.Query, p.Query)
	assign(&c.Mode, p.Mode)
	assign(&c.Answer, p.Answer)
	assign(&c.Loading, p.Loading)
	assign(&c.Image, p.Image)
	assign(&c.Thumbnail, p.Thumbnail)
	assign(&c.Emotion, p.Emotion)
	if p.Scholar != nil {
		c.Scholar = slices.Clone(*p.Scholar)
	}
	assign(&c.ScholarLoading, p.ScholarLoading)
	assign(&c.ScholarError, p.ScholarError)
	if p.Matches != nil {
		c.Matches = slices.Clone(*p.Matches)
	}
	assign(&c.MatchesLoading, p.MatchesLoading)
	assign(&c.MatchesError, p.MatchesError)
	assign(&c.Error, p.Error)
	return c
}

// UploadContent backs the file upload panel.
type UploadContent struct {
	File    string `json:"file,omitempty"`
	URL     string `json:"url,omitempty"`
	Loading bool   `json:"isLoading"`
	Error   string `json:"error,omitempty"`
}

func (UploadContent) Variant() Variant { return VariantUpload }
func (c UploadContent) clone() Content { return c }

// UploadPatch updates UploadContent.
type UploadPatch struct {
	File    *string
	URL     *string
	Loading *bool
	Error   *string
}

func (UploadPatch) Variant() Variant { return VariantUpload }

func (p UploadPatch) apply(current Content) Content {
	c := current.(UploadContent)
	assign(&c.File, p.File)
	assign(&c.URL, p.URL)
	assign(&c.Loading, p.Loading)
	assign(&c.Error, p.Error)
	return c
}

// CameraContent backs the live camera panel.
type CameraContent struct {
	Image     string `json:"image,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
	Capturing bool   `json:"capturing"`
	Error     string `json:"error,omitempty"`
}

func (CameraContent) Variant() Variant { return VariantCamera }
func (c CameraContent) clone() Content { return c }

// CameraPatch updates CameraContent.
type CameraPatch struct {
	Image     *string
	Thumbnail *string
	Capturing *bool
	Error     *string
}

func (CameraPatch) Variant() Variant { return VariantCamera }

func (p CameraPatch) apply(current Content) Content {
	c := current.(CameraContent)
	assign(&c.Image, p.Image)
	assign(&c.Thumbnail, p.Thumbnail)
	assign(&c.Capturing, p.Capturing)
	assign(&c.Error, p.Error)
	return c
}

// ScholarViewContent backs the embedded paper viewers.
type ScholarViewContent struct {
	URL     string `json:"url"`
	Title   string `json:"title,omitempty"`
	Snippet string `json:"snippet,omitempty"`
	Summary string `json:"summary,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (ScholarViewContent) Variant() Variant { return VariantScholarView }
func (c ScholarViewContent) clone() Content { return c }

// ScholarViewPatch updates ScholarViewContent.
type ScholarViewPatch struct {
	URL     *string
	Title   *string
	Snippet *string
	Summary *string
	Error   *string
}

func (ScholarViewPatch) Variant() Variant { return VariantScholarView }

func (p ScholarViewPatch) apply(current Content) Content {
	c := current.(ScholarViewContent)
	assign(&c.URL, p.URL)
	assign(&c.Title, p.Title)
	assign(&c.Snippet, p.Snippet)
	assign(&c.Summary, p.Summary)
	assign(&c.Error, p.Error)
	return c
}

func assign[T any](dst *T, value *T) {
	if value != nil {
		*dst = *value
	}
}
