package avatar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"avatarstudio/internal/domain"
	"avatarstudio/internal/infra"
)

const (
	defaultBaseURL   = "https://audio-video-api.adobe.io/v1"
	defaultTokenURL  = "https://ims-na1.adobelogin.com/ims/token/v3"
	defaultStatusURL = "https://api.adobe.io/api/adobe-avatar/generate"
	defaultScope     = "openid,AdobeID,firefly_enterprise"
)

// Options configures the avatar generation vendor client.
type Options struct {
	ClientID       string
	ClientSecret   string
	BaseURL        string
	TokenURL       string
	StatusURL      string
	Scope          string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls to the avatar video generation vendor. It is
// stateless per call apart from the shared token cache.
type Client struct {
	clientID     string
	clientSecret string
	baseURL      string
	tokenURL     string
	statusURL    string
	scope        string
	httpClient   *http.Client
	logger       *infra.Logger
	tokens       tokenCache
}

type sourceRef struct {
	URL string `json:"url"`
}

type scriptPayload struct {
	Text       string     `json:"text,omitempty"`
	Source     *sourceRef `json:"source,omitempty"`
	MediaType  string     `json:"mediaType"`
	LocaleCode string     `json:"localeCode"`
}

type audioPayload struct {
	Source     sourceRef `json:"source"`
	MediaType  string    `json:"mediaType"`
	LocaleCode string    `json:"localeCode"`
}

type backgroundPayload struct {
	Type   string     `json:"type"`
	Color  string     `json:"color,omitempty"`
	Source *sourceRef `json:"source,omitempty"`
}

type outputPayload struct {
	MediaType  string             `json:"mediaType"`
	Background *backgroundPayload `json:"background,omitempty"`
}

type generationPayload struct {
	Script   *scriptPayload `json:"script,omitempty"`
	Audio    *audioPayload  `json:"audio,omitempty"`
	VoiceID  string         `json:"voiceId,omitempty"`
	AvatarID string         `json:"avatarId"`
	Output   outputPayload  `json:"output"`
}

type jobResponse struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
	Output *struct {
		Destination struct {
			URL string `json:"url"`
		} `json:"destination"`
	} `json:"output"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type vendorErrorBody struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		clientID:     strings.TrimSpace(opts.ClientID),
		clientSecret: strings.TrimSpace(opts.ClientSecret),
		baseURL:      firstNonEmpty(strings.TrimRight(opts.BaseURL, "/"), defaultBaseURL),
		tokenURL:     firstNonEmpty(opts.TokenURL, defaultTokenURL),
		statusURL:    firstNonEmpty(opts.StatusURL, defaultStatusURL),
		scope:        firstNonEmpty(opts.Scope, defaultScope),
		httpClient:   httpClient,
		logger:       logger,
	}
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.clientID != "" && c.clientSecret != ""
}

// AccessToken returns a bearer token, reusing the cached one while it is
// unexpired. Absent credentials degrade to an AuthError before any network
// call; they never fall back to a silent demo mode.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	if token, ok := c.tokens.Get(time.Now()); ok {
		return token, nil
	}
	if !c.HasCredentials() {
		return "", &domain.AuthError{Err: domain.ErrMissingCredentials}
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("scope", c.scope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", &domain.AuthError{Err: fmt.Errorf("avatar: build token request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &domain.AuthError{Err: fmt.Errorf("avatar: token request: %w", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &domain.AuthError{Err: fmt.Errorf("avatar: read token response: %w", err)}
	}
	if resp.StatusCode >= 300 {
		return "", &domain.AuthError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var decoded tokenResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", &domain.AuthError{Err: fmt.Errorf("avatar: decode token response: %w", err)}
	}
	if decoded.AccessToken == "" {
		return "", &domain.AuthError{Err: fmt.Errorf("avatar: token response missing access_token")}
	}

	c.tokens.Set(decoded.AccessToken, time.Now().Add(time.Duration(decoded.ExpiresIn)*time.Second))
	c.logger.Debug().Int64("expires_in", decoded.ExpiresIn).Msg("avatar: access token refreshed")
	return decoded.AccessToken, nil
}

// Submit sends a generation request and returns the vendor-assigned job.
func (c *Client) Submit(ctx context.Context, genReq domain.GenerationRequest) (*domain.Job, error) {
	if err := genReq.Validate(); err != nil {
		return nil, err
	}
	payload := buildPayload(genReq)

	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("avatar: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate-avatar", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("avatar: build request: %w", err)
	}
	c.setHeaders(req, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("avatar: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("avatar: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, classifySubmitError(resp.StatusCode, raw)
	}

	var decoded jobResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("avatar: decode response: %w", err)
	}
	if decoded.JobID == "" {
		return nil, fmt.Errorf("avatar: response missing job id")
	}

	status := domain.JobStatusSubmitted
	if decoded.Status != "" {
		status = normalizeStatus(decoded.Status)
	}
	job := &domain.Job{JobID: decoded.JobID, Status: status}
	if decoded.Output != nil {
		job.OutputURL = decoded.Output.Destination.URL
	}
	c.logger.Info().Str("job_id", job.JobID).Str("status", string(job.Status)).Msg("avatar: job submitted")
	return job, nil
}

// Status fetches the current snapshot for a job. A non-2xx vendor response
// or transport failure is downgraded to a processing snapshot instead of an
// error: transient 5xx/404 responses during job warm-up are expected and
// must not abort the polling loop.
func (c *Client) Status(ctx context.Context, jobID string) (*domain.Job, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, &domain.ValidationError{Field: "jobId", Reason: "job id is required"}
	}
	endpoint := c.statusURL + "?jobId=" + url.QueryEscape(jobID)
	return c.statusFromURL(ctx, endpoint, jobID), nil
}

// StatusByURL fetches a snapshot using a vendor-provided status URL.
func (c *Client) StatusByURL(ctx context.Context, statusURL string) (*domain.Job, error) {
	if strings.TrimSpace(statusURL) == "" {
		return nil, &domain.ValidationError{Field: "statusUrl", Reason: "status url is required"}
	}
	return c.statusFromURL(ctx, statusURL, jobIDFromStatusURL(statusURL)), nil
}

func (c *Client) statusFromURL(ctx context.Context, endpoint, jobID string) *domain.Job {
	processing := &domain.Job{JobID: jobID, Status: domain.JobStatusProcessing}

	token, err := c.AccessToken(ctx)
	if err != nil {
		c.logger.Debug().Err(err).Str("job_id", jobID).Msg("avatar: status auth failed, treating as processing")
		return processing
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return processing
	}
	c.setHeaders(req, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("job_id", jobID).Msg("avatar: status request failed, treating as processing")
		return processing
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return processing
	}
	if resp.StatusCode >= 300 {
		c.logger.Debug().Int("status_code", resp.StatusCode).Str("job_id", jobID).Msg("avatar: non-2xx status response, treating as processing")
		return processing
	}

	var decoded jobResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return processing
	}
	job := &domain.Job{
		JobID:  firstNonEmpty(decoded.JobID, jobID),
		Status: normalizeStatus(decoded.Status),
	}
	if decoded.Output != nil {
		job.OutputURL = decoded.Output.Destination.URL
	}
	return job
}

// Avatars lists the presenter catalog. Callers should treat an error as an
// empty catalog rather than a failure worth surfacing.
func (c *Client) Avatars(ctx context.Context) ([]domain.Avatar, error) {
	raw, err := c.getJSON(ctx, c.baseURL+"/avatars")
	if err != nil {
		return nil, err
	}
	return normalizeAvatars(raw), nil
}

// Voices lists the narration voice catalog.
func (c *Client) Voices(ctx context.Context) ([]domain.Voice, error) {
	raw, err := c.getJSON(ctx, c.baseURL+"/voices")
	if err != nil {
		return nil, err
	}
	return normalizeVoices(raw), nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string) ([]byte, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("avatar: build request: %w", err)
	}
	c.setHeaders(req, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("avatar: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("avatar: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, &domain.VendorError{Kind: domain.VendorGeneric, Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}
	return raw, nil
}

func (c *Client) setHeaders(req *http.Request, token string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("x-api-key", c.clientID)
}

func buildPayload(req domain.GenerationRequest) generationPayload {
	locale := firstNonEmpty(req.LocaleCode, "en-US")
	output := outputPayload{MediaType: string(firstNonEmptyFormat(req.OutputFormat))}
	if req.Background != nil {
		bg := &backgroundPayload{Type: string(req.Background.Type)}
		switch req.Background.Type {
		case domain.BackgroundColor:
			bg.Color = req.Background.Color
		case domain.BackgroundImage, domain.BackgroundVideo:
			bg.Source = &sourceRef{URL: req.Background.SourceURL}
		}
		output.Background = bg
	}

	payload := generationPayload{AvatarID: req.AvatarID, Output: output}
	switch req.InputType {
	case domain.InputText:
		payload.Script = &scriptPayload{
			Text:       sanitizeText(req.Text),
			MediaType:  "text/plain",
			LocaleCode: locale,
		}
		payload.VoiceID = req.VoiceID
	case domain.InputTextFile:
		payload.Script = &scriptPayload{
			Source:     &sourceRef{URL: req.TextFileURL},
			MediaType:  "text/plain",
			LocaleCode: locale,
		}
		payload.VoiceID = req.VoiceID
	case domain.InputAudio:
		format := req.AudioFormat
		if format == "" {
			format = domain.AudioWAV
		}
		payload.Audio = &audioPayload{
			Source:     sourceRef{URL: req.AudioFileURL},
			MediaType:  string(format),
			LocaleCode: locale,
		}
	}
	return payload
}

func firstNonEmptyFormat(format domain.OutputFormat) domain.OutputFormat {
	if format == "" {
		return domain.OutputMP4
	}
	return format
}

func classifySubmitError(status int, raw []byte) error {
	body := strings.TrimSpace(string(raw))
	switch status {
	case http.StatusUnprocessableEntity:
		message := body
		var detail vendorErrorBody
		if err := json.Unmarshal(raw, &detail); err == nil && detail.Message != "" {
			message = detail.Message
		}
		return &domain.VendorError{Kind: domain.VendorValidation, Status: status, Message: message}
	case http.StatusNotFound:
		return &domain.VendorError{Kind: domain.VendorNotFound, Status: status, Message: body}
	default:
		return &domain.VendorError{Kind: domain.VendorGeneric, Status: status, Message: body}
	}
}

func jobIDFromStatusURL(statusURL string) string {
	parsed, err := url.Parse(statusURL)
	if err != nil {
		return ""
	}
	return parsed.Query().Get("jobId")
}
