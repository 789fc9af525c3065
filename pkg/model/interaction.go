package model

import (
	"time"

	"github.com/google/uuid"
)

type InteractionID string

// NewInteractionID generates a new unique InteractionID
func NewInteractionID() InteractionID {
	return InteractionID(uuid.New().String())
}

type InteractionKind string

const (
	InteractionKindCode     InteractionKind = "code"
	InteractionKindText     InteractionKind = "text"
	InteractionKindWorkflow InteractionKind = "workflow"
	InteractionKindVoice    InteractionKind = "voice"
)

// InteractionKinds lists every kind in display order.
var InteractionKinds = []InteractionKind{
	InteractionKindVoice,
	InteractionKindCode,
	InteractionKindWorkflow,
	InteractionKindText,
}

// Validate checks if the kind is valid
func (k InteractionKind) Validate() error {
	switch k {
	case InteractionKindCode, InteractionKindText, InteractionKindWorkflow, InteractionKindVoice:
		return nil
	default:
		return ErrInvalidInteractionKind
	}
}

// Interaction is one recorded exchange between the user and the assistant.
// It is immutable once appended to the store.
type Interaction struct {
	ID        InteractionID       `json:"id"`
	Message   string              `json:"message"`
	Timestamp time.Time           `json:"timestamp"`
	Kind      InteractionKind     `json:"kind"`
	Metadata  InteractionMetadata `json:"metadata,omitempty"`
}

// InteractionDraft is the caller-supplied part of an Interaction. ID and
// Timestamp are assigned by the store.
type InteractionDraft struct {
	Message  string
	Kind     InteractionKind
	Metadata InteractionMetadata
}

// InteractionMetadata is the kind-specific payload attached to an Interaction.
// The set of implementations is closed to this package.
type InteractionMetadata interface {
	// Kind reports which interaction kind the payload belongs to.
	Kind() InteractionKind
	isInteractionMetadata()
}

// VoiceMetadata holds one transcribed voice round-trip.
type VoiceMetadata struct {
	Transcription string `json:"transcription"`
	Response      string `json:"response"`
}

// CodeCompletionMetadata holds a completion produced for existing code.
type CodeCompletionMetadata struct {
	Suggestion CodeSuggestion `json:"suggestion"`
	Language   string         `json:"language"`
}

// CodeGenerationMetadata holds code generated from a natural language prompt.
type CodeGenerationMetadata struct {
	Suggestion CodeSuggestion `json:"suggestion"`
	Prompt     string         `json:"prompt"`
	Language   string         `json:"language"`
}

// CodeAnalysisMetadata holds a review of submitted code.
type CodeAnalysisMetadata struct {
	Analysis string `json:"analysis"`
	Code     string `json:"code"`
	Language string `json:"language"`
}

// WorkflowMetadata records the creation of a workflow task.
type WorkflowMetadata struct {
	WorkflowID WorkflowID `json:"workflow_id"`
	Title      string     `json:"title"`
	Steps      string     `json:"steps"`
}

// TextMetadata holds a free-form chat exchange.
type TextMetadata struct {
	Message  string `json:"message"`
	Response string `json:"response"`
}

func (VoiceMetadata) Kind() InteractionKind          { return InteractionKindVoice }
func (CodeCompletionMetadata) Kind() InteractionKind { return InteractionKindCode }
func (CodeGenerationMetadata) Kind() InteractionKind { return InteractionKindCode }
func (CodeAnalysisMetadata) Kind() InteractionKind   { return InteractionKindCode }
func (WorkflowMetadata) Kind() InteractionKind       { return InteractionKindWorkflow }
func (TextMetadata) Kind() InteractionKind           { return InteractionKindText }

func (VoiceMetadata) isInteractionMetadata()          {}
func (CodeCompletionMetadata) isInteractionMetadata() {}
func (CodeGenerationMetadata) isInteractionMetadata() {}
func (CodeAnalysisMetadata) isInteractionMetadata()   {}
func (WorkflowMetadata) isInteractionMetadata()       {}
func (TextMetadata) isInteractionMetadata()           {}

type SuggestionID string

// NewSuggestionID generates a new unique SuggestionID
func NewSuggestionID() SuggestionID {
	return SuggestionID(uuid.New().String())
}

// CodeSuggestion is a piece of code proposed by the assistant.
type CodeSuggestion struct {
	ID         SuggestionID `json:"id"`
	Code       string       `json:"code"`
	Language   string       `json:"language"`
	Confidence float64      `json:"confidence"`
	Context    string       `json:"context"`
}
