// Package stage models the linear localization pipeline: an ordered
// catalog of stages and a tracker that walks them one at a time.
package stage

import (
	"golang.org/x/text/language"

	"github.com/MimeLyc/chameleon-localizer/internal/locale"
)

type Key string

const (
	KeyUpload     Key = "upload"
	KeyTranscribe Key = "transcribe"
	KeyTranslate  Key = "translate"
	KeyTTS        Key = "tts"
	KeyLipSync    Key = "lipsync"
	KeyText       Key = "text"
	KeyRender     Key = "render"
)

type State string

const (
	StatePending State = "pending"
	StateActive  State = "active"
	StateDone    State = "done"
	StateError   State = "error"
)

// Definition is one static catalog entry.
type Definition struct {
	Key         Key    `json:"key"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Stage is a catalog entry plus its current state.
type Stage struct {
	Definition
	State State `json:"state"`
}

// Set is an ordered, immutable list of stage definitions.
type Set []Definition

// DefaultSet returns the seven-step localization pipeline for the given
// language pair.
func DefaultSet(source, target language.Tag) Set {
	return Set{
		{Key: KeyUpload, Title: "Upload", Description: "Send video to storage/backend"},
		{Key: KeyTranscribe, Title: "Transcribe", Description: "Whisper speech-to-text"},
		{Key: KeyTranslate, Title: "Translate", Description: locale.Pair(source, target)},
		{Key: KeyTTS, Title: "Voice", Description: locale.Name(target) + " TTS voice generation"},
		{Key: KeyLipSync, Title: "Lip Sync", Description: "Wav2Lip alignment"},
		{Key: KeyText, Title: "Text Swap", Description: "Detect + overlay translations"},
		{Key: KeyRender, Title: "Render", Description: "Mux audio + overlays"},
	}
}

// Keys returns the keys in declared order.
func (s Set) Keys() []Key {
	keys := make([]Key, 0, len(s))
	for _, def := range s {
		keys = append(keys, def.Key)
	}
	return keys
}

// Transition is published to subscribers on every state change.
type Transition struct {
	Key  Key   `json:"key"`
	From State `json:"from"`
	To   State `json:"to"`
}
