// Package piston runs code through a Piston execution API.
package piston

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ayushanand27/xhire/internal/service"
)

// DefaultURL is the public Piston endpoint.
const DefaultURL = "https://emkc.org/api/v2/piston/execute"

const (
	noOutput        = "No output"
	maxResponseBody = 1 << 20
)

var extensions = map[string]string{
	"javascript": "js",
	"js":         "js",
	"python":     "py",
	"java":       "java",
	"cpp":        "cpp",
	"c":          "c",
	"csharp":     "cs",
	"ruby":       "rb",
	"go":         "go",
	"rust":       "rs",
	"php":        "php",
	"typescript": "ts",
	"tsx":        "tsx",
}

// FileName is the source file name Piston receives for language.
func FileName(language string) string {
	lang := strings.ToLower(language)
	if ext, ok := extensions[lang]; ok {
		return "main." + ext
	}
	return "main." + lang
}

type file struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type executeRequest struct {
	Language string `json:"language"`
	Version  string `json:"version"`
	Files    []file `json:"files"`
}

type stage struct {
	Stdout string  `json:"stdout"`
	Stderr string  `json:"stderr"`
	Output string  `json:"output"`
	Code   *int    `json:"code"`
	Signal *string `json:"signal"`
}

type executeResponse struct {
	Language string `json:"language"`
	Version  string `json:"version"`
	Run      stage  `json:"run"`
	Compile  *stage `json:"compile,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Client implements service.CodeExecutor.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient targets url (DefaultURL when empty). timeout bounds each HTTP exchange.
func NewClient(url string, timeout time.Duration) *Client {
	if url == "" {
		url = DefaultURL
	}
	return &Client{url: url, httpClient: &http.Client{Timeout: timeout}}
}

var _ service.CodeExecutor = (*Client)(nil)

func (c *Client) Execute(ctx context.Context, req service.ExecutionRequest) (*service.ExecutionResult, error) {
	body, err := json.Marshal(executeRequest{
		Language: req.Language,
		Version:  "*",
		Files:    []file{{Name: FileName(req.Language), Content: req.Code}},
	})
	if err != nil {
		return nil, fmt.Errorf("piston: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("piston: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("piston: execute: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("piston: read response: %w", err)
	}
	var out executeResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("piston: decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("piston: status %d: %s", resp.StatusCode, out.Message)
	}

	result := &service.ExecutionResult{
		Output:   firstNonEmpty(out.Run.Stdout, out.Run.Stderr, noOutput),
		Stderr:   out.Run.Stderr,
		Language: out.Language,
		Version:  out.Version,
		Duration: time.Since(start),
	}
	if out.Compile != nil && out.Compile.Code != nil && *out.Compile.Code != 0 {
		result.Output = firstNonEmpty(out.Compile.Stderr, out.Compile.Output, noOutput)
		result.Stderr = out.Compile.Stderr
		result.ExitCode = *out.Compile.Code
		return result, nil
	}
	if out.Run.Code != nil {
		result.ExitCode = *out.Run.Code
	}
	return result, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
