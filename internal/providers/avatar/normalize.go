package avatar

import (
	"encoding/json"
	"strings"

	"avatarstudio/internal/domain"
)

// The vendor does not guarantee a stable catalog response shape: a bare
// array, a {"data": [...]} envelope, and {"avatars"|"voices": [...]}
// envelopes have all been observed. extractArray accepts the known shapes
// and falls back to an empty result on anything else.
func extractArray(raw []byte, envelopeKeys ...string) []json.RawMessage {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err == nil {
			return items
		}
		return nil
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil
	}
	for _, key := range append([]string{"data"}, envelopeKeys...) {
		inner, ok := envelope[key]
		if !ok {
			continue
		}
		var items []json.RawMessage
		if err := json.Unmarshal(inner, &items); err == nil {
			return items
		}
	}
	return nil
}

type vendorAvatar struct {
	AvatarID      string `json:"avatarId"`
	ID            string `json:"id"`
	DisplayName   string `json:"displayName"`
	Name          string `json:"name"`
	Gender        string `json:"gender"`
	AgeGroup      string `json:"ageGroup"`
	Ethnicity     string `json:"ethnicity"`
	ClothingStyle string `json:"clothingStyle"`
	ThumbnailURLs struct {
		LowRes string `json:"lowRes"`
		HD     string `json:"hd"`
	} `json:"thumbnailUrls"`
}

func normalizeAvatars(raw []byte) []domain.Avatar {
	items := extractArray(raw, "avatars")
	avatars := make([]domain.Avatar, 0, len(items))
	for _, item := range items {
		var v vendorAvatar
		if err := json.Unmarshal(item, &v); err != nil {
			continue
		}
		id := firstNonEmpty(v.AvatarID, v.ID)
		if id == "" {
			continue
		}
		avatars = append(avatars, domain.Avatar{
			ID:           id,
			DisplayName:  firstNonEmpty(v.DisplayName, v.Name, "Unknown Avatar"),
			Description:  joinNonEmpty(v.ClothingStyle, v.AgeGroup, v.Ethnicity),
			ThumbnailURL: firstNonEmpty(v.ThumbnailURLs.LowRes, v.ThumbnailURLs.HD),
			Gender:       firstNonEmpty(strings.ToLower(v.Gender), "unknown"),
			AgeGroup:     firstNonEmpty(v.AgeGroup, "unknown"),
			Ethnicity:    firstNonEmpty(v.Ethnicity, "unknown"),
		})
	}
	return avatars
}

type vendorVoice struct {
	VoiceID     string `json:"voiceId"`
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Name        string `json:"name"`
	Style       string `json:"style"`
	Gender      string `json:"gender"`
	Language    string `json:"language"`
	Accent      string `json:"accent"`
	Region      string `json:"region"`
	SampleURL   string `json:"sampleURL"`
}

func normalizeVoices(raw []byte) []domain.Voice {
	items := extractArray(raw, "voices")
	voices := make([]domain.Voice, 0, len(items))
	for _, item := range items {
		var v vendorVoice
		if err := json.Unmarshal(item, &v); err != nil {
			continue
		}
		id := firstNonEmpty(v.VoiceID, v.ID)
		if id == "" {
			continue
		}
		voices = append(voices, domain.Voice{
			ID:          id,
			DisplayName: firstNonEmpty(v.DisplayName, v.Name, "Unknown Voice"),
			Style:       firstNonEmpty(v.Style, v.Accent, "Standard"),
			Gender:      firstNonEmpty(v.Gender, "unknown"),
			Language:    firstNonEmpty(v.Language, "en-US"),
			Accent:      firstNonEmpty(v.Accent, v.Region, "Standard"),
			SampleURL:   v.SampleURL,
		})
	}
	return voices
}

// normalizeStatus maps heterogeneous vendor status strings onto the four
// internal states. Unrecognized values degrade to processing rather than
// failing, so a vocabulary change on the vendor side cannot break polling.
func normalizeStatus(raw string) domain.JobStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "submitted", "queued", "pending":
		return domain.JobStatusSubmitted
	case "succeeded", "completed", "complete":
		return domain.JobStatusSucceeded
	case "failed", "error":
		return domain.JobStatusFailed
	default:
		return domain.JobStatusProcessing
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func joinNonEmpty(values ...string) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}
