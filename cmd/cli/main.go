package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
)

func main() {
	api := os.Getenv("API_BASE")
	if api == "" {
		api = "http://localhost:8080"
	}
	key := os.Getenv("ADMIN_API_KEY")
	if key == "" {
		fmt.Println("Set ADMIN_API_KEY first (registration goes through admin routes).")
		return
	}

	reader := bufio.NewReader(os.Stdin)

	fmt.Print("Project name (e.g., my-blog): ")
	name, _ := reader.ReadString('\n')
	name = strings.TrimSpace(name)
	if name == "" {
		fmt.Println("Project name is required.")
		return
	}

	var project struct {
		ID string `json:"id"`
	}
	if err := post(api+"/api/projects", key, map[string]string{"name": name}, &project); err != nil {
		fmt.Println("Error creating project:", err)
		return
	}
	fmt.Println("Project created:", project.ID)

	fmt.Print("Enter a site URL to monitor (e.g., https://example.com): ")
	raw, _ := reader.ReadString('\n')
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	if _, err := url.ParseRequestURI(raw); err != nil {
		fmt.Println("Invalid URL.")
		return
	}

	var added struct {
		Website struct {
			ID  string `json:"id"`
			URL string `json:"url"`
		} `json:"website"`
		Check struct {
			Up         bool     `json:"up"`
			StatusCode *int     `json:"status_code"`
			LatencyMS  *float64 `json:"latency_ms"`
		} `json:"check"`
	}
	if err := post(api+"/api/projects/"+project.ID+"/websites", key, map[string]string{"url": raw}, &added); err != nil {
		fmt.Println("Error adding website:", err)
		return
	}

	fmt.Println("Added:", added.Website.URL)
	switch {
	case added.Check.Up && added.Check.LatencyMS != nil:
		fmt.Printf("First check: UP (%.0f ms)\n", *added.Check.LatencyMS)
	case added.Check.Up:
		fmt.Println("First check: UP")
	case added.Check.StatusCode != nil:
		fmt.Printf("First check: DOWN (HTTP %d)\n", *added.Check.StatusCode)
	default:
		fmt.Println("First check: DOWN (no response)")
	}
	fmt.Println("It will be probed on the project's cadence from now on.")
}

func post(u, key string, payload, out any) error {
	body, _ := json.Marshal(payload)
	req, err := http.NewRequest(http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", key)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("API returned status: %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
