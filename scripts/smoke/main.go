// Command smoke probes a running timetable API and verifies that every
// configured endpoint answers with the expected status and a well-formed
// response envelope. Intended for post-deploy checks; exits non-zero when a
// critical target fails.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type target struct {
	Method       string `json:"method"`
	Path         string `json:"path"`
	ExpectStatus int    `json:"expect_status"`
	Critical     bool   `json:"critical"`
}

type config struct {
	Targets []target `json:"targets"`
}

type probe struct {
	Target     target
	Status     int
	StatusOK   bool
	EnvelopeOK bool
	Duration   time.Duration
	Err        error
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error json.RawMessage `json:"error"`
}

func main() {
	var (
		baseURL     string
		targetsPath string
		timeout     time.Duration
	)

	flag.StringVar(&baseURL, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&targetsPath, "targets", filepath.Join("scripts", "smoke", "targets.json"), "Path to JSON targets file")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	targets, err := loadTargets(targetsPath)
	if err != nil {
		log.Fatalf("failed to load targets: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	var (
		probes   []probe
		breaking int
		warnings int
	)

	for _, t := range targets {
		p := probeTarget(client, baseURL, t)
		if p.Err != nil || !p.StatusOK || !p.EnvelopeOK {
			if t.Critical {
				breaking++
			} else {
				warnings++
			}
		}
		probes = append(probes, p)
	}

	printReport(probes)

	fmt.Printf("Critical failures: %d, Warnings: %d\n", breaking, warnings)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadTargets(path string) ([]target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return cfg.Targets, nil
}

func probeTarget(client *http.Client, base string, tgt target) probe {
	p := probe{Target: tgt}

	method := strings.ToUpper(strings.TrimSpace(tgt.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := tgt.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	url := strings.TrimRight(base, "/") + path

	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		p.Err = err
		return p
	}

	start := time.Now()
	resp, err := client.Do(req)
	p.Duration = time.Since(start)
	if err != nil {
		p.Err = err
		return p
	}
	defer resp.Body.Close()

	p.Status = resp.StatusCode
	want := tgt.ExpectStatus
	if want == 0 {
		want = http.StatusOK
	}
	p.StatusOK = p.Status == want

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		p.Err = fmt.Errorf("read body: %w", err)
		return p
	}
	p.EnvelopeOK = envelopeWellFormed(resp.Header.Get("Content-Type"), resp.StatusCode, body)
	return p
}

// envelopeWellFormed accepts non-JSON payloads (exports, metrics) as-is and
// requires JSON error responses to carry the standard error envelope.
func envelopeWellFormed(contentType string, status int, body []byte) bool {
	if !strings.Contains(contentType, "application/json") {
		return true
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return false
	}
	if status >= 400 {
		return len(env.Error) > 0
	}
	return true
}

func printReport(probes []probe) {
	fmt.Println("Timetable API Smoke Report")
	fmt.Println("==========================")
	for _, p := range probes {
		status := "OK"
		if p.Err != nil {
			status = "ERROR"
		} else if !p.StatusOK || !p.EnvelopeOK {
			status = "FAIL"
		}
		fmt.Printf("[%s] %s %s\n", status, p.Target.Method, p.Target.Path)
		fmt.Printf("  Status: %d (%s)\n", p.Status, p.Duration)
		if p.Err != nil {
			fmt.Printf("  Error: %v\n", p.Err)
		} else {
			fmt.Printf("  Status match: %t | Envelope: %t | Critical: %t\n", p.StatusOK, p.EnvelopeOK, p.Target.Critical)
		}
	}
}
