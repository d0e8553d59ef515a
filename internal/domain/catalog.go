package domain

// Avatar is a normalized catalog entry for a presenter the vendor can render.
type Avatar struct {
	ID           string `json:"id"`
	DisplayName  string `json:"name"`
	Description  string `json:"description"`
	ThumbnailURL string `json:"thumbnail"`
	Gender       string `json:"gender"`
	AgeGroup     string `json:"age"`
	Ethnicity    string `json:"ethnicity"`
}

// Voice is a normalized catalog entry for a synthesized narration voice.
type Voice struct {
	ID          string `json:"voiceId"`
	DisplayName string `json:"displayName"`
	Style       string `json:"style"`
	Gender      string `json:"gender"`
	Language    string `json:"language"`
	Accent      string `json:"accent"`
	SampleURL   string `json:"sampleURL,omitempty"`
}
