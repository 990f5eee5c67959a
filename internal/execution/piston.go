package execution

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/isdelr/notebook-be/internal/common"
)

const maxErrorBody = 64 << 10

// PistonClient talks to a Piston-compatible code execution API.
type PistonClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewPistonClient creates a client for baseURL (e.g. https://emkc.org/api/v2/piston).
func NewPistonClient(baseURL string, timeout time.Duration) *PistonClient {
	return &PistonClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type pistonFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type pistonRequest struct {
	Language string       `json:"language"`
	Version  string       `json:"version"`
	Files    []pistonFile `json:"files"`
	Stdin    string       `json:"stdin"`
}

// StageOutput is the output of one stage (compile or run) of an execution.
type StageOutput struct {
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
	Output string `json:"output"`
	Code   *int   `json:"code"`
	Signal string `json:"signal"`
}

// Failed reports whether the stage exited abnormally.
func (s *StageOutput) Failed() bool {
	return s != nil && ((s.Code != nil && *s.Code != 0) || s.Signal != "")
}

// PistonResult is the response of an execute call. Compile is only set for compiled languages.
type PistonResult struct {
	Language string       `json:"language"`
	Version  string       `json:"version"`
	Run      StageOutput  `json:"run"`
	Compile  *StageOutput `json:"compile,omitempty"`
}

// Runtimes lists the installed runtimes.
func (c *PistonClient) Runtimes(ctx context.Context) ([]Runtime, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/runtimes", nil)
	if err != nil {
		return nil, err
	}

	var runtimes []Runtime
	if err := c.do(req, "Piston runtimes", &runtimes); err != nil {
		return nil, err
	}
	return runtimes, nil
}

// Execute runs code as a single file named main.<language>.
func (c *PistonClient) Execute(ctx context.Context, language, version, code, stdin string) (PistonResult, error) {
	body, err := json.Marshal(pistonRequest{
		Language: language,
		Version:  version,
		Files:    []pistonFile{{Name: "main." + language, Content: code}},
		Stdin:    stdin,
	})
	if err != nil {
		return PistonResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/execute", bytes.NewReader(body))
	if err != nil {
		return PistonResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var result PistonResult
	if err := c.do(req, "Piston", &result); err != nil {
		return PistonResult{}, err
	}
	return result, nil
}

func (c *PistonClient) do(req *http.Request, service string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &common.UpstreamError{Service: service, StatusCode: resp.StatusCode, Body: string(body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", service, err)
	}
	return nil
}
