package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type Provider interface {
	Name() string
	Ready() bool
	Acquire() bool
	SendSurvey(ctx context.Context, sms SurveySMS) error
}

// HTTPProvider posts the survey SMS to an external provider endpoint; a
// micro circuit breaker shields a flapping provider from the pool.
type HTTPProvider struct {
	name       string
	baseURL    string
	surveyPath string
	client     *http.Client
	br         *MicroBreaker
}

func NewHTTPProvider(
	name, baseURL, surveyPath string,
	timeoutMs, failThreshold, openForMs int,
) *HTTPProvider {
	if timeoutMs <= 0 {
		timeoutMs = 3000
	}

	if failThreshold <= 0 {
		failThreshold = 3
	}

	if openForMs <= 0 {
		openForMs = 15000
	}

	return &HTTPProvider{
		name:       name,
		baseURL:    baseURL,
		surveyPath: surveyPath,
		client:     &http.Client{Timeout: time.Duration(timeoutMs) * time.Millisecond},
		br:         NewMicroBreaker(failThreshold, time.Duration(openForMs)*time.Millisecond),
	}
}

func (p *HTTPProvider) Name() string  { return p.name }
func (p *HTTPProvider) Ready() bool   { return p.br.Ready() }
func (p *HTTPProvider) Acquire() bool { return p.br.TryAcquire() }

func (p *HTTPProvider) SendSurvey(ctx context.Context, sms SurveySMS) error {
	if err := p.post(ctx, p.surveyPath, sms); err != nil {
		p.br.OnFailure()
		return err
	}

	p.br.OnSuccess()

	return nil
}

func (p *HTTPProvider) post(ctx context.Context, path string, sms SurveySMS) error {
	b, _ := json.Marshal(sms)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	res, err := p.client.Do(req)
	if err != nil {
		return err
	}

	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		return fmt.Errorf("provider=%s path=%s status=%d", p.name, path, res.StatusCode)
	}

	return nil
}
