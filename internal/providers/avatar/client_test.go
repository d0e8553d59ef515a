package avatar

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"avatarstudio/internal/domain"
)

type responseStub struct {
	status int
	body   []byte
}

func (s responseStub) toResponse() *http.Response {
	status := s.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(string(s.body))),
	}
}

// captureTransport stubs the vendor by URL path and records request bodies
// and headers for inspection.
type captureTransport struct {
	responses map[string]responseStub
	calls     map[string]int
	lastBody  []byte
	lastReq   *http.Request
	err       error
}

func newCaptureTransport() *captureTransport {
	return &captureTransport{
		responses: map[string]responseStub{},
		calls:     map[string]int{},
	}
}

func (c *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.calls[req.URL.Path]++
	c.lastReq = req
	if c.err != nil {
		return nil, c.err
	}
	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body.Close()
		c.lastBody = body
	}
	if stub, ok := c.responses[req.URL.Path]; ok {
		return stub.toResponse(), nil
	}
	return responseStub{status: http.StatusNotFound, body: []byte("not found")}.toResponse(), nil
}

func (c *captureTransport) setJSONResponse(path string, payload any) {
	body, _ := json.Marshal(payload)
	c.responses[path] = responseStub{status: http.StatusOK, body: body}
}

func newTestClient(transport *captureTransport) *Client {
	return NewClient(Options{
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		BaseURL:      "https://vendor.test/v1",
		TokenURL:     "https://auth.test/token",
		StatusURL:    "https://vendor.test/status",
		HTTPClient:   &http.Client{Transport: transport},
	})
}

func stubToken(transport *captureTransport) {
	transport.setJSONResponse("/token", map[string]any{
		"access_token": "tok-1",
		"expires_in":   3600,
	})
}

func TestAccessTokenReusesCachedToken(t *testing.T) {
	transport := newCaptureTransport()
	stubToken(transport)
	client := newTestClient(transport)

	ctx := context.Background()
	first, err := client.AccessToken(ctx)
	if err != nil {
		t.Fatalf("first AccessToken: %v", err)
	}
	second, err := client.AccessToken(ctx)
	if err != nil {
		t.Fatalf("second AccessToken: %v", err)
	}
	if first != "tok-1" || second != "tok-1" {
		t.Fatalf("tokens = %q, %q, want tok-1", first, second)
	}
	if transport.calls["/token"] != 1 {
		t.Fatalf("token endpoint called %d times, want 1", transport.calls["/token"])
	}
}

func TestAccessTokenRefreshesExpiredToken(t *testing.T) {
	transport := newCaptureTransport()
	transport.setJSONResponse("/token", map[string]any{
		"access_token": "tok-1",
		"expires_in":   0,
	})
	client := newTestClient(transport)

	ctx := context.Background()
	first, err := client.AccessToken(ctx)
	if err != nil {
		t.Fatalf("first AccessToken: %v", err)
	}
	if first != "tok-1" {
		t.Fatalf("first token = %q, want tok-1", first)
	}

	// The cached token expired immediately, so the next call must perform
	// exactly one new exchange and cache its result.
	transport.setJSONResponse("/token", map[string]any{
		"access_token": "tok-2",
		"expires_in":   3600,
	})
	second, err := client.AccessToken(ctx)
	if err != nil {
		t.Fatalf("second AccessToken: %v", err)
	}
	if second != "tok-2" {
		t.Fatalf("second token = %q, want refreshed tok-2", second)
	}
	if transport.calls["/token"] != 2 {
		t.Fatalf("token endpoint called %d times, want 2", transport.calls["/token"])
	}

	third, err := client.AccessToken(ctx)
	if err != nil {
		t.Fatalf("third AccessToken: %v", err)
	}
	if third != "tok-2" {
		t.Fatalf("third token = %q, want cached tok-2", third)
	}
	if transport.calls["/token"] != 2 {
		t.Fatalf("token endpoint called %d times after cached read, want 2", transport.calls["/token"])
	}
}

func TestAccessTokenMissingCredentials(t *testing.T) {
	transport := newCaptureTransport()
	client := NewClient(Options{HTTPClient: &http.Client{Transport: transport}})

	_, err := client.AccessToken(context.Background())
	var authErr *domain.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("error = %v, want AuthError", err)
	}
	if !errors.Is(err, domain.ErrMissingCredentials) {
		t.Fatalf("error = %v, want wrapped ErrMissingCredentials", err)
	}
	if len(transport.calls) != 0 {
		t.Fatalf("expected no network calls, got %v", transport.calls)
	}
}

func TestAccessTokenExchangeFailure(t *testing.T) {
	transport := newCaptureTransport()
	transport.responses["/token"] = responseStub{status: http.StatusUnauthorized, body: []byte(`{"error":"invalid_client"}`)}
	client := newTestClient(transport)

	_, err := client.AccessToken(context.Background())
	var authErr *domain.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("error = %v, want AuthError", err)
	}
	if authErr.Status != http.StatusUnauthorized {
		t.Fatalf("Status = %d, want %d", authErr.Status, http.StatusUnauthorized)
	}
}

func TestSubmitTextPayload(t *testing.T) {
	transport := newCaptureTransport()
	stubToken(transport)
	transport.setJSONResponse("/v1/generate-avatar", map[string]any{
		"jobId":  "job-1",
		"status": "queued",
	})
	client := newTestClient(transport)

	job, err := client.Submit(context.Background(), domain.GenerationRequest{
		InputType: domain.InputText,
		Text:      "Hello 😀  World!",
		VoiceID:   "voice-1",
		AvatarID:  "avatar-1",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if job.JobID != "job-1" || job.Status != domain.JobStatusSubmitted {
		t.Fatalf("job = %+v", job)
	}

	var payload map[string]any
	if err := json.Unmarshal(transport.lastBody, &payload); err != nil {
		t.Fatalf("decode captured body: %v", err)
	}
	script, ok := payload["script"].(map[string]any)
	if !ok {
		t.Fatalf("payload missing script: %v", payload)
	}
	if script["text"] != "Hello World!" {
		t.Fatalf("script.text = %q, want sanitized %q", script["text"], "Hello World!")
	}
	if script["localeCode"] != "en-US" {
		t.Fatalf("script.localeCode = %q, want default en-US", script["localeCode"])
	}
	output := payload["output"].(map[string]any)
	if output["mediaType"] != "video/mp4" {
		t.Fatalf("output.mediaType = %q, want video/mp4", output["mediaType"])
	}
	if payload["voiceId"] != "voice-1" || payload["avatarId"] != "avatar-1" {
		t.Fatalf("ids = %v / %v", payload["voiceId"], payload["avatarId"])
	}
	if got := transport.lastReq.Header.Get("Authorization"); got != "Bearer tok-1" {
		t.Fatalf("Authorization = %q", got)
	}
	if got := transport.lastReq.Header.Get("x-api-key"); got != "test-client" {
		t.Fatalf("x-api-key = %q", got)
	}
}

func TestSubmitAudioPayloadDefaultsFormat(t *testing.T) {
	transport := newCaptureTransport()
	stubToken(transport)
	transport.setJSONResponse("/v1/generate-avatar", map[string]any{"jobId": "job-2"})
	client := newTestClient(transport)

	_, err := client.Submit(context.Background(), domain.GenerationRequest{
		InputType:    domain.InputAudio,
		AudioFileURL: "https://cdn.test/narration.wav",
		AvatarID:     "avatar-1",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(transport.lastBody, &payload); err != nil {
		t.Fatalf("decode captured body: %v", err)
	}
	audio, ok := payload["audio"].(map[string]any)
	if !ok {
		t.Fatalf("payload missing audio: %v", payload)
	}
	if audio["mediaType"] != "audio/wav" {
		t.Fatalf("audio.mediaType = %q, want audio/wav", audio["mediaType"])
	}
	source := audio["source"].(map[string]any)
	if source["url"] != "https://cdn.test/narration.wav" {
		t.Fatalf("audio.source.url = %q", source["url"])
	}
	if _, ok := payload["script"]; ok {
		t.Fatal("audio submission must not carry a script")
	}
}

func TestSubmitValidationShortCircuits(t *testing.T) {
	transport := newCaptureTransport()
	client := newTestClient(transport)

	_, err := client.Submit(context.Background(), domain.GenerationRequest{
		InputType: domain.InputText,
		Text:      "hello",
		VoiceID:   "voice-1",
	})
	var validation *domain.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if validation.Field != "avatarId" {
		t.Fatalf("Field = %q, want avatarId", validation.Field)
	}
	if len(transport.calls) != 0 {
		t.Fatalf("expected no network calls, got %v", transport.calls)
	}
}

func TestSubmitClassifiesVendorErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind domain.VendorErrorKind
		wantMsg  string
	}{
		{
			name:     "422 with structured message",
			status:   http.StatusUnprocessableEntity,
			body:     `{"error_code":"invalid_script","message":"script too long"}`,
			wantKind: domain.VendorValidation,
			wantMsg:  "script too long",
		},
		{
			name:     "404",
			status:   http.StatusNotFound,
			body:     "no such avatar",
			wantKind: domain.VendorNotFound,
			wantMsg:  "no such avatar",
		},
		{
			name:     "503",
			status:   http.StatusServiceUnavailable,
			body:     "try later",
			wantKind: domain.VendorGeneric,
			wantMsg:  "try later",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			transport := newCaptureTransport()
			stubToken(transport)
			transport.responses["/v1/generate-avatar"] = responseStub{status: tc.status, body: []byte(tc.body)}
			client := newTestClient(transport)

			_, err := client.Submit(context.Background(), domain.GenerationRequest{
				InputType: domain.InputText,
				Text:      "hello",
				VoiceID:   "voice-1",
				AvatarID:  "avatar-1",
			})
			var vendorErr *domain.VendorError
			if !errors.As(err, &vendorErr) {
				t.Fatalf("error = %v, want VendorError", err)
			}
			if vendorErr.Kind != tc.wantKind {
				t.Fatalf("Kind = %q, want %q", vendorErr.Kind, tc.wantKind)
			}
			if vendorErr.Message != tc.wantMsg {
				t.Fatalf("Message = %q, want %q", vendorErr.Message, tc.wantMsg)
			}
		})
	}
}

func TestStatusDowngradesTransientFailures(t *testing.T) {
	transport := newCaptureTransport()
	stubToken(transport)
	transport.responses["/status"] = responseStub{status: http.StatusInternalServerError, body: []byte("boom")}
	client := newTestClient(transport)

	job, err := client.Status(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if job.Status != domain.JobStatusProcessing {
		t.Fatalf("Status = %q, want processing on 5xx", job.Status)
	}
	if job.JobID != "job-1" {
		t.Fatalf("JobID = %q, want job-1", job.JobID)
	}
}

func TestStatusDowngradesTransportError(t *testing.T) {
	transport := newCaptureTransport()
	stubToken(transport)
	client := newTestClient(transport)
	if _, err := client.AccessToken(context.Background()); err != nil {
		t.Fatalf("prime token: %v", err)
	}
	transport.err = errors.New("connection reset")

	job, err := client.Status(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if job.Status != domain.JobStatusProcessing {
		t.Fatalf("Status = %q, want processing on transport error", job.Status)
	}
}

func TestStatusNormalizesTerminalSnapshot(t *testing.T) {
	transport := newCaptureTransport()
	stubToken(transport)
	transport.setJSONResponse("/status", map[string]any{
		"jobId":  "job-1",
		"status": "COMPLETED",
		"output": map[string]any{
			"destination": map[string]any{"url": "https://cdn.test/out.mp4"},
		},
	})
	client := newTestClient(transport)

	job, err := client.Status(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if job.Status != domain.JobStatusSucceeded {
		t.Fatalf("Status = %q, want succeeded", job.Status)
	}
	if job.OutputURL != "https://cdn.test/out.mp4" {
		t.Fatalf("OutputURL = %q", job.OutputURL)
	}
}

func TestStatusRequiresJobID(t *testing.T) {
	client := newTestClient(newCaptureTransport())
	_, err := client.Status(context.Background(), "  ")
	var validation *domain.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if validation.Field != "jobId" {
		t.Fatalf("Field = %q, want jobId", validation.Field)
	}
}

func TestStatusByURLExtractsJobID(t *testing.T) {
	transport := newCaptureTransport()
	stubToken(transport)
	transport.responses["/poll"] = responseStub{status: http.StatusNotFound, body: []byte("warming up")}
	client := newTestClient(transport)

	job, err := client.StatusByURL(context.Background(), "https://vendor.test/poll?jobId=job-9")
	if err != nil {
		t.Fatalf("StatusByURL: %v", err)
	}
	if job.JobID != "job-9" || job.Status != domain.JobStatusProcessing {
		t.Fatalf("job = %+v", job)
	}
}

func TestAvatarsCatalog(t *testing.T) {
	transport := newCaptureTransport()
	stubToken(transport)
	transport.setJSONResponse("/v1/avatars", map[string]any{
		"avatars": []any{
			map[string]any{
				"avatarId":    "av-1",
				"displayName": "Kara",
				"gender":      "Female",
				"thumbnailUrls": map[string]any{
					"lowRes": "https://cdn.test/kara-low.jpg",
				},
			},
			map[string]any{"name": "no id, skipped"},
		},
	})
	client := newTestClient(transport)

	avatars, err := client.Avatars(context.Background())
	if err != nil {
		t.Fatalf("Avatars: %v", err)
	}
	if len(avatars) != 1 {
		t.Fatalf("len = %d, want 1", len(avatars))
	}
	if avatars[0].ID != "av-1" || avatars[0].Gender != "female" {
		t.Fatalf("avatar = %+v", avatars[0])
	}
}

func TestVoicesCatalogErrorSurfaces(t *testing.T) {
	transport := newCaptureTransport()
	stubToken(transport)
	transport.responses["/v1/voices"] = responseStub{status: http.StatusBadGateway, body: []byte("upstream down")}
	client := newTestClient(transport)

	_, err := client.Voices(context.Background())
	var vendorErr *domain.VendorError
	if !errors.As(err, &vendorErr) {
		t.Fatalf("error = %v, want VendorError", err)
	}
}
