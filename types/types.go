package types

import (
	"errors"
	"fmt"
)

// GenerationRequest is one inbound idea from a chat
type GenerationRequest struct {
	RunID   string `json:"run_id"`
	ChatID  int64  `json:"chat_id"`
	RawIdea string `json:"raw_idea"`
}

// Field is one expected key of a structured response
type Field struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Schema is the ordered list of fields the text model must return
type Schema []Field

// Names returns the field names in declaration order
func (s Schema) Names() []string {
	names := make([]string, 0, len(s))
	for _, f := range s {
		names = append(names, f.Name)
	}
	return names
}

// Has reports whether the schema declares the named field
func (s Schema) Has(name string) bool {
	for _, f := range s {
		if f.Name == name {
			return true
		}
	}
	return false
}

// Well-known structured field names
const (
	FieldImagePrompt = "image_prompt"
	FieldScript      = "script"
	FieldTitle       = "youtube_title"
	FieldStartDate   = "start_date"
	FieldEndDate     = "end_date"
)

// StructuredContent is the validated output of the text stage
type StructuredContent struct {
	Narration   string            `json:"script,omitempty"`
	Title       string            `json:"youtube_title,omitempty"`
	ImagePrompt string            `json:"image_prompt,omitempty"`
	StartDate   string            `json:"start_date,omitempty"`
	EndDate     string            `json:"end_date,omitempty"`
	Fields      map[string]string `json:"fields"`
}

// NewStructuredContent maps raw schema fields onto the typed content
func NewStructuredContent(fields map[string]string) *StructuredContent {
	return &StructuredContent{
		Narration:   fields[FieldScript],
		Title:       fields[FieldTitle],
		ImagePrompt: fields[FieldImagePrompt],
		StartDate:   fields[FieldStartDate],
		EndDate:     fields[FieldEndDate],
		Fields:      fields,
	}
}

// ArtifactKind says what a MediaArtifact holds
type ArtifactKind string

const (
	ArtifactImage ArtifactKind = "image"
	ArtifactVideo ArtifactKind = "video"
)

// MediaArtifact is a temporary file produced during one run
type MediaArtifact struct {
	Kind            ArtifactKind `json:"kind"`
	LocalPath       string       `json:"local_path"`
	DurationSeconds float64      `json:"duration_seconds,omitempty"`
	// Placeholder marks an artifact produced without real media.
	Placeholder bool `json:"placeholder,omitempty"`
}

// Usable reports whether the artifact points at real media
func (a *MediaArtifact) Usable() bool {
	return a != nil && !a.Placeholder && a.LocalPath != ""
}

// State is a pipeline controller state
type State string

const (
	StateIdle            State = "idle"
	StateTextGenerating  State = "text_generating"
	StateImageGenerating State = "image_generating"
	StateAssembling      State = "assembling"
	StateDelivering      State = "delivering"
	StateDone            State = "done"
	StateFailed          State = "failed"
)

// Stage names used in Failure and metrics
type Stage string

const (
	StageConfig   Stage = "config"
	StageText     Stage = "text"
	StageImage    Stage = "image"
	StageAssembly Stage = "assembly"
	StageDelivery Stage = "delivery"
)

// FailureKind is the error taxonomy of a run.
// KindSoftAsset never ends a run; it tags absorbed optional-stage failures in logs.
type FailureKind string

const (
	KindConfig            FailureKind = "config_error"
	KindEmptyResponse     FailureKind = "empty_response"
	KindMalformedResponse FailureKind = "malformed_response"
	KindServiceError      FailureKind = "service_error"
	KindSoftAsset         FailureKind = "soft_asset_failure"
	KindDelivery          FailureKind = "delivery_error"
	KindInternal          FailureKind = "internal_error"
)

// Failure is the terminal state detail of a failed run
type Failure struct {
	Stage  Stage       `json:"stage"`
	Kind   FailureKind `json:"kind"`
	Detail string      `json:"detail"`
	Err    error       `json:"-"`
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s failed (%s): %s", f.Stage, f.Kind, f.Detail)
}

func (f *Failure) Unwrap() error { return f.Err }

// ErrMissingCredentials is returned when no generation client is configured
var ErrMissingCredentials = errors.New("missing credentials")

// SoftFailure is an optional-stage failure that degrades the result instead of ending the run
type SoftFailure struct {
	Stage Stage
	Cause string // timeout | status | io | request | service | encode | empty | panic
	Err   error
}

func (e *SoftFailure) Error() string {
	return fmt.Sprintf("%s soft failure (%s): %v", e.Stage, e.Cause, e.Err)
}

func (e *SoftFailure) Unwrap() error { return e.Err }

// NewSoftFailure wraps err as a soft failure of stage
func NewSoftFailure(stage Stage, cause string, err error) *SoftFailure {
	return &SoftFailure{Stage: stage, Cause: cause, Err: err}
}

// RunResult is what one pipeline run reports back
type RunResult struct {
	RunID     string   `json:"run_id"`
	State     State    `json:"state"`
	Failure   *Failure `json:"failure,omitempty"`
	Delivered string   `json:"delivered,omitempty"` // text | photo | video
	StartedAt string   `json:"started_at"`
	EndedAt   string   `json:"ended_at"`
}
