package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"optika/internal"
	"optika/internal/config"
	"optika/internal/util"
)

// Client reads subjective-refraction exams from the external patient
// registry. The registry pages results with a scroll id.
type Client struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *RateLimiter
}

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors"`
	Data    json.RawMessage `json:"data"`
}

type scrollPayload struct {
	Exams    []map[string]any `json:"exams"`
	ScrollID *string          `json:"scrollId"`
	Total    *int             `json:"total"`
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.RegistryTimeoutMs) * time.Millisecond},
		limiter:    NewRateLimiter(cfg.RegistryRateLimitRPS),
	}
}

// GetExamsScrollAll fetches every exam the registry holds for one
// customer.
func (c *Client) GetExamsScrollAll(ctx context.Context, customerID string) ([]internal.SubjectiveExam, error) {
	all := make([]internal.SubjectiveExam, 0)
	seen := map[string]struct{}{}
	var scrollID string

	for {
		query := map[string]string{"customerId": customerID}
		if scrollID != "" {
			query["scrollId"] = scrollID
		}

		body, err := c.fetchJSON(ctx, "exam/scroll", query)
		if err != nil {
			return nil, err
		}

		var payload scrollPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, err
		}

		for _, raw := range payload.Exams {
			exam, err := toExam(customerID, raw)
			if err != nil {
				continue
			}
			all = append(all, exam)
		}

		if payload.ScrollID == nil || *payload.ScrollID == "" || len(payload.Exams) == 0 {
			break
		}
		if _, ok := seen[*payload.ScrollID]; ok {
			break
		}
		seen[*payload.ScrollID] = struct{}{}
		scrollID = *payload.ScrollID
	}

	return all, nil
}

func (c *Client) fetchJSON(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	if err := c.cfg.Require("REGISTRY_API_BASE_URL", c.cfg.RegistryAPIBaseURL); err != nil {
		return nil, err
	}
	if err := c.cfg.Require("REGISTRY_API_TOKEN", c.cfg.RegistryAPIToken); err != nil {
		return nil, err
	}

	baseURL := strings.TrimRight(c.cfg.RegistryAPIBaseURL, "/") + "/"
	u, err := url.Parse(baseURL + endpoint)
	if err != nil {
		return nil, err
	}

	q := u.Query()
	for k, v := range params {
		if strings.TrimSpace(v) != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()

	var lastErr error
	for attempt := 1; attempt <= 5; attempt++ {
		c.limiter.WaitTurn()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.RegistryAPIToken)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < 5 {
				backoff := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
				time.Sleep(backoff)
				lastErr = fmt.Errorf("registry status %d", resp.StatusCode)
				continue
			}
			return nil, fmt.Errorf("registry api error: status=%d body=%s", resp.StatusCode, string(body))
		}

		var apiResp apiResponse
		if err := json.Unmarshal(body, &apiResp); err != nil {
			return nil, err
		}
		if !apiResp.Success {
			return nil, fmt.Errorf("registry api unsuccessful: %s", string(apiResp.Errors))
		}
		return apiResp.Data, nil
	}

	if lastErr == nil {
		lastErr = errors.New("registry request failed")
	}
	return nil, lastErr
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func toExam(customerID string, raw map[string]any) (internal.SubjectiveExam, error) {
	uid, _ := raw["uid"].(string)
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return internal.SubjectiveExam{}, errors.New("empty exam uid")
	}

	exam := internal.SubjectiveExam{
		UID:        uid,
		CustomerID: customerID,
	}
	if at, ok := raw["examAt"].(string); ok {
		exam.ExamAt = strings.TrimSpace(at)
	}
	exam.Right = toEye(raw["right"])
	exam.Left = toEye(raw["left"])
	exam.PDBinocular = toFloatPtr(raw["pd"])
	exam.PDRight = toFloatPtr(raw["pdRight"])
	exam.PDLeft = toFloatPtr(raw["pdLeft"])

	return exam, nil
}

func toEye(v any) internal.SubjectiveEye {
	eye := internal.SubjectiveEye{}
	m, ok := v.(map[string]any)
	if !ok {
		return eye
	}
	eye.Sphere = toFloatPtr(m["sphere"])
	eye.Cylinder = toFloatPtr(m["cylinder"])
	eye.Axis = toIntPtr(m["axis"])
	eye.AddPower = toFloatPtr(m["addPower"])
	eye.Vision = toFloatPtr(m["vision"])
	eye.VisionSign = toStringPtr(m["visionSign"])
	eye.VisionLevel = toStringPtr(m["visionLevel"])
	return eye
}

func toFloatPtr(v any) *float64 {
	switch t := v.(type) {
	case float64:
		return &t
	case int:
		f := float64(t)
		return &f
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return &f
		}
	}
	return nil
}

func toIntPtr(v any) *int {
	switch t := v.(type) {
	case int:
		return &t
	case float64:
		i := int(t)
		return &i
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return util.IntPtr(int(i))
		}
	}
	return nil
}

func toStringPtr(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return util.StringPtr(s)
}
