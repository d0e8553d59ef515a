package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"avatarstudio/internal/domain"
	"avatarstudio/internal/middleware"
)

type generateRequest struct {
	InputType       string `json:"inputType"`
	Prompt          string `json:"prompt"`
	TextFileURL     string `json:"textFileUrl"`
	AudioFileURL    string `json:"audioFileUrl"`
	AudioFormat     string `json:"audioFormat"`
	VoiceID         string `json:"voiceId"`
	AvatarID        string `json:"avatarId"`
	LocaleCode      string `json:"localeCode"`
	OutputFormat    string `json:"outputFormat"`
	BackgroundType  string `json:"backgroundType"`
	BackgroundColor string `json:"backgroundColor"`
	BackgroundURL   string `json:"backgroundUrl"`
	ProjectID       string `json:"projectId"`
}

type generateResponse struct {
	JobID          string `json:"jobId"`
	Status         string `json:"status"`
	HasCredentials bool   `json:"hasCredentials"`
}

// statusResponse is a job snapshot plus the same credential flag the submit
// response carries, so both generate endpoints share one envelope shape.
type statusResponse struct {
	domain.Job
	HasCredentials bool `json:"hasCredentials"`
}

// GenerateSubmit accepts a generation request, submits it to the vendor and
// starts a background watch. Progress is pushed into the project's
// collaboration room when a projectId is supplied.
func (a *App) GenerateSubmit(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.fail(w, http.StatusBadRequest, "bad_request", "invalid payload", nil)
		return
	}

	genReq := req.toDomain()
	if genReq.LocaleCode == "" {
		genReq.LocaleCode = middleware.LocaleFromContext(r.Context())
	}

	job, err := a.Jobs.Submit(r.Context(), genReq)
	if err != nil {
		a.Logger.Error().Err(err).Str("avatar_id", req.AvatarID).Msg("generation submit failed")
		a.failFor(w, err)
		return
	}

	a.startWatch(job.JobID, req.ProjectID)

	a.json(w, http.StatusOK, generateResponse{
		JobID:          job.JobID,
		Status:         string(job.Status),
		HasCredentials: a.Vendor.HasCredentials(),
	})
}

// GenerateStatus returns the latest snapshot for a job, preferring the
// orchestrator's record and falling back to a direct vendor poll.
func (a *App) GenerateStatus(w http.ResponseWriter, r *http.Request) {
	jobID := strings.TrimSpace(r.URL.Query().Get("jobId"))
	statusURL := strings.TrimSpace(r.URL.Query().Get("statusUrl"))
	if jobID == "" && statusURL == "" {
		a.fail(w, http.StatusBadRequest, "bad_request", "jobId or statusUrl is required", nil)
		return
	}

	if statusURL != "" {
		job, err := a.Vendor.StatusByURL(r.Context(), statusURL)
		if err != nil {
			a.failFor(w, err)
			return
		}
		a.json(w, http.StatusOK, statusResponse{Job: *job, HasCredentials: a.Vendor.HasCredentials()})
		return
	}

	if job, ok := a.Jobs.Job(jobID); ok && job.Status.Terminal() {
		a.json(w, http.StatusOK, statusResponse{Job: job, HasCredentials: a.Vendor.HasCredentials()})
		return
	}

	job, err := a.Vendor.Status(r.Context(), jobID)
	if err != nil {
		a.failFor(w, err)
		return
	}
	a.json(w, http.StatusOK, statusResponse{Job: *job, HasCredentials: a.Vendor.HasCredentials()})
}

func (a *App) startWatch(jobID, projectID string) {
	onUpdate := func(job domain.Job) {
		if projectID == "" || a.Hub == nil {
			return
		}
		a.Hub.Broadcast(projectID, "video-generation-update", map[string]any{
			"jobId":     job.JobID,
			"status":    string(job.Status),
			"outputUrl": job.OutputURL,
		})
	}

	outcome, err := a.Jobs.Watch(a.watchContext(), jobID, onUpdate)
	if err != nil {
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("watch start failed")
		return
	}
	go func() {
		result, ok := <-outcome
		if !ok {
			return
		}
		a.Logger.Info().Str("job_id", jobID).Str("outcome", string(result)).Msg("generation finished")
	}()
}

func (r generateRequest) toDomain() domain.GenerationRequest {
	genReq := domain.GenerationRequest{
		InputType:    domain.InputType(r.InputType),
		Text:         r.Prompt,
		TextFileURL:  r.TextFileURL,
		AudioFileURL: r.AudioFileURL,
		AudioFormat:  domain.AudioFormat(r.AudioFormat),
		VoiceID:      r.VoiceID,
		AvatarID:     r.AvatarID,
		LocaleCode:   r.LocaleCode,
		OutputFormat: domain.OutputFormat(r.OutputFormat),
	}
	if r.BackgroundType != "" {
		genReq.Background = &domain.Background{
			Type:      domain.BackgroundType(r.BackgroundType),
			Color:     r.BackgroundColor,
			SourceURL: r.BackgroundURL,
		}
	}
	return genReq
}
