package main

import (
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
	"github.com/use-agent/wakscord-crawler/models"
)

func main() {
	apiURL := os.Getenv("WAKSCORD_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:5000"
	}

	s := server.NewMCPServer(
		"wakscord-crawler",
		"0.1.0",
		server.WithToolCapabilities(false),
	)

	getWeatherTool := mcp.NewTool("get_weather",
		mcp.WithDescription("Render the upstream weather page in a headless browser and return the current weather cards (name, state, description)."),
		mcp.WithString("format",
			mcp.Description("Output format: 'text' (default, one line per card) or 'json' (raw API response)"),
			mcp.Enum("text", "json"),
		),
	)
	s.AddTool(getWeatherTool, handleGetWeather(apiURL))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleGetWeather(apiURL string) server.ToolHandlerFunc {
	// Navigation timeout plus settle time, with headroom.
	client := &http.Client{Timeout: 90 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		format := request.GetString("format", "text")

		body, status, err := apiGet(ctx, client, apiURL+"/api/v1/weather")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("weather request failed: %v", err)), nil
		}

		if status != http.StatusOK {
			var errResp models.ErrorResponse
			if jsonErr := json.Unmarshal(body, &errResp); jsonErr == nil && errResp.Message != "" {
				return mcp.NewToolResultError(fmt.Sprintf("[%s] %s", errResp.Error, errResp.Message)), nil
			}
			return mcp.NewToolResultError(fmt.Sprintf("weather request failed with HTTP %d", status)), nil
		}

		if format == "json" {
			return mcp.NewToolResultText(string(body)), nil
		}

		var weather models.WeatherResponse
		if err := json.Unmarshal(body, &weather); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse weather response: %v", err)), nil
		}
		return mcp.NewToolResultText(formatWeather(&weather)), nil
	}
}

// formatWeather renders one "name: state, description" line per card.
func formatWeather(w *models.WeatherResponse) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Source: %s\nFetched: %s\n\n", w.SourceURL, w.Timestamp)
	if len(w.Items) == 0 {
		sb.WriteString("No weather cards found.")
		return sb.String()
	}
	for _, item := range w.Items {
		fmt.Fprintf(&sb, "%s: %s, %s\n", item.Name, item.State, item.Description)
	}
	return sb.String()
}

// apiGet issues a GET to the crawler service and returns body and status.
func apiGet(ctx context.Context, client *http.Client, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, nil
}
