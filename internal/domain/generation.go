package domain

import "strings"

// InputType selects which generation input variant is populated.
type InputType string

const (
	InputText     InputType = "text"
	InputTextFile InputType = "textFile"
	InputAudio    InputType = "audio"
)

// OutputFormat enumerates supported output container formats.
type OutputFormat string

const (
	OutputMP4  OutputFormat = "video/mp4"
	OutputWebM OutputFormat = "video/webm"
)

// AudioFormat enumerates supported audio input formats.
type AudioFormat string

const (
	AudioWAV AudioFormat = "audio/wav"
	AudioMP3 AudioFormat = "audio/mp3"
	AudioM4A AudioFormat = "audio/m4a"
)

// BackgroundType enumerates supported video background modes.
type BackgroundType string

const (
	BackgroundColor       BackgroundType = "color"
	BackgroundTransparent BackgroundType = "transparent"
	BackgroundImage       BackgroundType = "image"
	BackgroundVideo       BackgroundType = "video"
)

// Background configures the backdrop behind the rendered avatar.
type Background struct {
	Type      BackgroundType
	Color     string
	SourceURL string
}

// GenerationRequest describes one avatar video generation. Exactly one input
// variant is populated, selected by InputType: Text for text, TextFileURL for
// textFile, AudioFileURL (plus AudioFormat) for audio. Text and textFile
// inputs require a voice; audio inputs carry their own.
type GenerationRequest struct {
	InputType    InputType
	Text         string
	TextFileURL  string
	AudioFileURL string
	AudioFormat  AudioFormat
	VoiceID      string
	AvatarID     string
	LocaleCode   string
	OutputFormat OutputFormat
	Background   *Background
}

// Validate checks required fields per input variant and returns a
// *ValidationError naming the first missing one. It applies no defaults.
func (r GenerationRequest) Validate() error {
	if strings.TrimSpace(r.AvatarID) == "" {
		return &ValidationError{Field: "avatarId", Reason: "avatar is required"}
	}
	switch r.InputType {
	case InputText:
		if strings.TrimSpace(r.Text) == "" {
			return &ValidationError{Field: "prompt", Reason: "prompt text is required for text input"}
		}
		if strings.TrimSpace(r.VoiceID) == "" {
			return &ValidationError{Field: "voiceId", Reason: "voice is required for text input"}
		}
	case InputTextFile:
		if strings.TrimSpace(r.TextFileURL) == "" {
			return &ValidationError{Field: "textFileUrl", Reason: "text file url is required for textFile input"}
		}
		if strings.TrimSpace(r.VoiceID) == "" {
			return &ValidationError{Field: "voiceId", Reason: "voice is required for textFile input"}
		}
	case InputAudio:
		if strings.TrimSpace(r.AudioFileURL) == "" {
			return &ValidationError{Field: "audioFileUrl", Reason: "audio file url is required for audio input"}
		}
	default:
		return &ValidationError{Field: "inputType", Reason: "inputType must be text, textFile, or audio"}
	}
	if r.Background != nil {
		switch r.Background.Type {
		case BackgroundColor:
			if r.Background.Color == "" {
				return &ValidationError{Field: "backgroundColor", Reason: "color background requires a color"}
			}
		case BackgroundImage, BackgroundVideo:
			if r.Background.SourceURL == "" {
				return &ValidationError{Field: "backgroundUrl", Reason: "image or video background requires a source url"}
			}
		case BackgroundTransparent:
		default:
			return &ValidationError{Field: "backgroundType", Reason: "unsupported background type"}
		}
	}
	return nil
}
