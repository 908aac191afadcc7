package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// apiError mirrors the tablescout API error detail.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// profilesResponse mirrors GET /api/v1/profiles.
type profilesResponse struct {
	Profiles []struct {
		Name        string   `json:"name"`
		Description string   `json:"description"`
		URL         string   `json:"url"`
		Columns     []string `json:"columns"`
		TargetCount int      `json:"target_count"`
		MaxPages    int      `json:"max_pages"`
	} `json:"profiles"`
	Error *apiError `json:"error"`
}

// runResponse mirrors the tablescout run API response.
type runResponse struct {
	ID      string `json:"id"`
	Profile string `json:"profile"`
	Status  string `json:"status"`
	Stage   string `json:"stage"`
	Cached  bool   `json:"cached"`
	State   struct {
		Page    int    `json:"page"`
		Records int    `json:"records"`
		Stop    string `json:"stop"`
	} `json:"state"`
	Records []json.RawMessage `json:"records"`
	File    string            `json:"file"`
	Summary *struct {
		Text string `json:"text"`
	} `json:"summary"`
	Error *apiError `json:"error"`
}

func main() {
	apiURL := os.Getenv("TABLESCOUT_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("TABLESCOUT_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "TABLESCOUT_API_KEY is required")
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"tablescout",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	listProfilesTool := mcp.NewTool("list_profiles",
		mcp.WithDescription("List the sites tablescout can scrape. Each profile names a paginated web table and its columns."),
	)
	s.AddTool(listProfilesTool, handleListProfiles(apiURL, apiKey))

	runProfileTool := mcp.NewTool("run_profile",
		mcp.WithDescription("Scrape a profile's table across its pages with a headless browser and save it as a spreadsheet. Returns the run ID, or the records when wait is true."),
		mcp.WithString("profile",
			mcp.Required(),
			mcp.Description("Profile name, as returned by list_profiles"),
		),
		mcp.WithBoolean("wait",
			mcp.Description("Wait for the run to finish and return its records (default: true)"),
		),
		mcp.WithNumber("max_age_ms",
			mcp.Description("Reuse a finished run younger than this many milliseconds instead of scraping again (default: 0)"),
		),
	)
	s.AddTool(runProfileTool, handleRunProfile(apiURL, apiKey))

	getRunTool := mcp.NewTool("get_run",
		mcp.WithDescription("Get the status and, once finished, the records of a run started with run_profile."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Run ID returned by run_profile"),
		),
	)
	s.AddTool(getRunTool, handleGetRun(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiDo sends a request to the tablescout API and returns the response body.
func apiDo(ctx context.Context, client *http.Client, method, apiURL, apiKey, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-API-Key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// pollRun polls a run until its status is no longer "running" or ctx is
// cancelled.
func pollRun(ctx context.Context, client *http.Client, apiURL, apiKey, id string) (*runResponse, error) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			body, err := apiDo(ctx, client, http.MethodGet, apiURL, apiKey, "/api/v1/runs/"+id, nil)
			if err != nil {
				return nil, fmt.Errorf("poll request failed: %w", err)
			}
			var run runResponse
			if err := json.Unmarshal(body, &run); err != nil {
				return nil, fmt.Errorf("parse poll status: %w", err)
			}
			if run.Error != nil && run.ID == "" {
				return nil, fmt.Errorf("[%s] %s", run.Error.Code, run.Error.Message)
			}
			if run.Status != "running" {
				return &run, nil
			}
		}
	}
}

func handleListProfiles(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 30 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		body, err := apiDo(ctx, client, http.MethodGet, apiURL, apiKey, "/api/v1/profiles", nil)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var resp profilesResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if resp.Error != nil {
			return mcp.NewToolResultError(fmt.Sprintf("[%s] %s", resp.Error.Code, resp.Error.Message)), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "%d profiles:\n\n", len(resp.Profiles))
		for _, p := range resp.Profiles {
			fmt.Fprintf(&sb, "- %s: %s\n  url: %s\n  columns: %s\n  target %d records, at most %d pages\n",
				p.Name, p.Description, p.URL, strings.Join(p.Columns, ", "), p.TargetCount, p.MaxPages)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleRunProfile(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 60 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := request.RequireString("profile")
		if err != nil {
			return mcp.NewToolResultError("profile is required"), nil
		}
		wait := request.GetBool("wait", true)

		payload := map[string]any{"profile": name}
		if maxAge := request.GetInt("max_age_ms", 0); maxAge > 0 {
			payload["max_age_ms"] = maxAge
		}

		body, err := apiDo(ctx, client, http.MethodPost, apiURL, apiKey, "/api/v1/runs", payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("run request failed: %v", err)), nil
		}

		var run runResponse
		if err := json.Unmarshal(body, &run); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse run response: %v", err)), nil
		}
		if run.ID == "" {
			msg := "run creation failed"
			if run.Error != nil {
				msg = fmt.Sprintf("[%s] %s", run.Error.Code, run.Error.Message)
			}
			return mcp.NewToolResultError(msg), nil
		}

		if !wait || run.Status != "running" {
			return formatRun(&run), nil
		}

		done, err := pollRun(ctx, client, apiURL, apiKey, run.ID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("polling run %s failed: %v", run.ID, err)), nil
		}
		return formatRun(done), nil
	}
}

func handleGetRun(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 30 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError("id is required"), nil
		}

		body, err := apiDo(ctx, client, http.MethodGet, apiURL, apiKey, "/api/v1/runs/"+id, nil)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		var run runResponse
		if err := json.Unmarshal(body, &run); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse run response: %v", err)), nil
		}
		if run.ID == "" && run.Error != nil {
			return mcp.NewToolResultError(fmt.Sprintf("[%s] %s", run.Error.Code, run.Error.Message)), nil
		}
		return formatRun(&run), nil
	}
}

// formatRun renders a run as a short header followed by its records, one
// JSON object per line.
func formatRun(run *runResponse) *mcp.CallToolResult {
	if run.Status == "failed" {
		msg := fmt.Sprintf("Run %s (%s) failed", run.ID, run.Profile)
		if run.Error != nil {
			msg += fmt.Sprintf(": [%s] %s", run.Error.Code, run.Error.Message)
		}
		return mcp.NewToolResultError(msg)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Run %s (%s): %s", run.ID, run.Profile, run.Status)
	if run.Cached {
		sb.WriteString(" (cached)")
	}
	fmt.Fprintf(&sb, "\nPages: %d, records: %d", run.State.Page, run.State.Records)
	if run.State.Stop != "" {
		fmt.Fprintf(&sb, ", stopped: %s", run.State.Stop)
	}
	if run.Stage != "" {
		fmt.Fprintf(&sb, "\nStage: %s", run.Stage)
	}
	if run.File != "" {
		fmt.Fprintf(&sb, "\nSpreadsheet: %s", run.File)
	}
	if run.Summary != nil {
		fmt.Fprintf(&sb, "\n\nSummary:\n%s", run.Summary.Text)
	}
	if len(run.Records) > 0 {
		sb.WriteString("\n\nRecords:\n")
		for _, r := range run.Records {
			sb.Write(r)
			sb.WriteByte('\n')
		}
	}
	return mcp.NewToolResultText(sb.String())
}
