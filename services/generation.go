package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	appContext "github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"

	"github.com/scaffold-ai/scaffold_api/dto"
	"github.com/scaffold-ai/scaffold_api/model"
	"github.com/scaffold-ai/scaffold_api/shared"
)

// GenerationService is the client for the external AI generation
// backend. Every call runs through a bounded retry: transport
// failures and empty success bodies are retried with linearly
// increasing backoff, while any received HTTP response - success or
// error - is a definitive outcome.
type GenerationService struct {
	appContext.DefaultService

	httpClient  *http.Client
	baseURL     string
	maxAttempts int
	backoffBase time.Duration
}

const GENERATION_SVC = "generation_svc"

func (svc GenerationService) Id() string {
	return GENERATION_SVC
}

func (svc *GenerationService) Configure(ctx *appContext.Context) error {
	svc.baseURL = os.Getenv("GENERATION_API_URL")
	if svc.baseURL == "" {
		svc.baseURL = "http://localhost:8000"
	}
	svc.baseURL = strings.TrimRight(svc.baseURL, "/")

	timeout := 120
	if t := os.Getenv("GENERATION_TIMEOUT_SECONDS"); t != "" {
		if parsed, err := strconv.Atoi(t); err == nil {
			timeout = parsed
		}
	}
	svc.httpClient = &http.Client{
		Timeout: time.Duration(timeout) * time.Second,
	}

	svc.maxAttempts = 3
	if a := os.Getenv("GENERATION_MAX_ATTEMPTS"); a != "" {
		if parsed, err := strconv.Atoi(a); err == nil && parsed > 0 {
			svc.maxAttempts = parsed
		}
	}
	svc.backoffBase = time.Second

	return svc.DefaultService.Configure(ctx)
}

func (svc *GenerationService) Start() error {
	return nil
}

// ==================== OUTLINE ====================

// GenerateOutline sends the uploaded files and URLs for topic
// extraction. When an existing outline is supplied the backend's
// update endpoint is used so it can avoid re-proposing known topics;
// the merge engine still dedups locally either way.
func (svc *GenerationService) GenerateOutline(userID string, files []dto.IngestFile, urls []string, existing *dto.OutlineResponse) (*dto.OutlineResponse, error) {
	path := "/upload_pdfs/"
	if existing != nil && len(existing.Topics) > 0 {
		path = "/update_outline/"
	}

	var out dto.OutlineResponse
	err := svc.postWithRetry("outline", func() (*http.Request, error) {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)

		for _, f := range files {
			part, err := writer.CreateFormFile("files", f.Name)
			if err != nil {
				return nil, err
			}
			if _, err := part.Write(f.Data); err != nil {
				return nil, err
			}
		}
		if len(urls) > 0 {
			if err := writer.WriteField("urls", strings.Join(urls, ",")); err != nil {
				return nil, err
			}
		}
		if err := writer.WriteField("user_id", userID); err != nil {
			return nil, err
		}
		if existing != nil && len(existing.Topics) > 0 {
			raw, err := json.Marshal(existing)
			if err != nil {
				return nil, err
			}
			if err := writer.WriteField("existing_outline", string(raw)); err != nil {
				return nil, err
			}
		}
		if err := writer.Close(); err != nil {
			return nil, err
		}

		req, err := http.NewRequest(http.MethodPost, svc.baseURL+path, bytes.NewReader(body.Bytes()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", writer.FormDataContentType())
		return req, nil
	}, &out, func() bool {
		return out.Topics == nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ==================== LESSON ====================

// GenerateLesson requests the slide deck for one submodule. The
// personalization parameters only affect this first generation; the
// cached result is never invalidated by later profile changes.
func (svc *GenerationService) GenerateLesson(moduleTitle, subModuleTitle string, adaptLevel int, analogy, userID string) (*dto.LessonContentResponse, error) {
	payload := map[string]string{
		"text":    fmt.Sprintf("topic: %s, subtopic: %s", moduleTitle, subModuleTitle),
		"adapt":   strconv.Itoa(adaptLevel),
		"analogy": analogy,
		"user_id": userID,
	}

	var out dto.LessonContentResponse
	err := svc.postJSONWithRetry("lesson", "/tutor", payload, &out, func() bool {
		return len(out.LessonPhases) == 0
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ==================== QUIZ ====================

// GenerateQuiz requests flashcards for one submodule, or for the
// whole module when subModuleTitle is empty.
func (svc *GenerationService) GenerateQuiz(moduleTitle, subModuleTitle, userID string, questionCount int) (*model.Quiz, error) {
	if questionCount <= 0 {
		questionCount = shared.DefaultQuizQuestionCount
	}

	text := fmt.Sprintf("topic: %s", moduleTitle)
	if subModuleTitle != "" {
		text = fmt.Sprintf("topic: %s, subtopic: %s", moduleTitle, subModuleTitle)
	}

	payload := map[string]interface{}{
		"text":           text,
		"user_id":        userID,
		"question_count": questionCount,
	}

	var out model.Quiz
	err := svc.postJSONWithRetry("quiz", "/quizes", payload, &out, func() bool {
		return len(out.Flashcards) == 0
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ==================== CHAT ====================

// Chat sends one free-text message and returns the reply with any
// surrounding quote characters stripped.
func (svc *GenerationService) Chat(text, userID string) (string, error) {
	payload := map[string]string{
		"text":    text,
		"user_id": userID,
	}

	var out dto.ChatbotResponse
	err := svc.postJSONWithRetry("chat", "/chatbot", payload, &out, func() bool {
		return out.Message == ""
	})
	if err != nil {
		return "", err
	}

	return strings.Trim(out.Message, `"'`), nil
}

// ==================== RETRY CORE ====================

func (svc *GenerationService) postJSONWithRetry(operation, path string, payload interface{}, out interface{}, isEmpty func() bool) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return svc.postWithRetry(operation, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, svc.baseURL+path, bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}, out, isEmpty)
}

// postWithRetry drives one logical call. build must produce a fresh
// request per attempt. isEmpty guards against a flaky upstream
// returning an empty 200, which is retried like a transport failure.
func (svc *GenerationService) postWithRetry(operation string, build func() (*http.Request, error), out interface{}, isEmpty func() bool) error {
	var lastErr error

	for attempt := 1; attempt <= svc.maxAttempts; attempt++ {
		if attempt > 1 {
			time.Sleep(svc.backoffBase * time.Duration(attempt-1))
		}

		req, err := build()
		if err != nil {
			return err
		}

		resp, err := svc.httpClient.Do(req)
		if err != nil {
			lastErr = err
			log.WithError(err).WithFields(log.Fields{
				"operation": operation,
				"attempt":   attempt,
			}).Warn("Generation call transport failure")
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			detail := readUpstreamDetail(resp.Body)
			resp.Body.Close()
			generationCallsTotal.WithLabelValues(operation, "upstream_error").Inc()
			log.WithFields(log.Fields{
				"operation": operation,
				"status":    resp.StatusCode,
				"detail":    detail,
			}).Warn("Generation call rejected upstream")
			return shared.NewUpstreamError(resp.StatusCode, detail)
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("malformed response: %w", err)
			continue
		}
		if isEmpty != nil && isEmpty() {
			lastErr = errors.New("empty response from generation service")
			continue
		}

		generationCallsTotal.WithLabelValues(operation, "success").Inc()
		return nil
	}

	generationCallsTotal.WithLabelValues(operation, "unreachable").Inc()
	log.WithError(lastErr).WithField("operation", operation).Error("Generation service unreachable")
	return shared.NewServiceUnavailableError("generation service unreachable")
}

// readUpstreamDetail extracts the FastAPI-style {"detail": ...} error
// message, falling back to the raw body.
func readUpstreamDetail(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(raw) == 0 {
		return ""
	}

	var parsed struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return strings.TrimSpace(string(raw))
}
