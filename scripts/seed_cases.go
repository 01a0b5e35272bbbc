// seed_cases.go uploads a debt CSV to a running Collector API.
//
// Usage:
//
//	go run scripts/seed_cases.go -csv debts.csv -api http://localhost:8700 -user admin -password secret
//
// Without -csv the built-in demo portfolio is uploaded.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/Collector/internal/ingest"
)

type loginResponse struct {
	AccessToken string `json:"access_token"`
}

type uploadResponse struct {
	BatchID        string `json:"batch_id"`
	CasesProcessed int    `json:"cases_processed"`
	CasesRejected  int    `json:"cases_rejected"`
	Errors         []struct {
		Line   int    `json:"line"`
		Field  string `json:"field"`
		Reason string `json:"reason"`
	} `json:"errors"`
}

func main() {
	csvPath := flag.String("csv", "", "path to CSV file (default: demo portfolio)")
	apiURL := flag.String("api", "http://localhost:8700", "Collector API base URL")
	username := flag.String("user", "admin", "admin username")
	password := flag.String("password", os.Getenv("COLLECTOR_ADMIN_PASSWORD"), "admin password")
	dryRun := flag.Bool("dry-run", false, "parse and score locally without uploading")
	flag.Parse()

	data := []byte(ingest.SeedCSV())
	if *csvPath != "" {
		var err error
		if data, err = os.ReadFile(*csvPath); err != nil {
			log.Fatalf("read csv: %v", err)
		}
	}

	if *dryRun {
		res, err := ingest.Parse(bytes.NewReader(data), 1, time.Now().UTC())
		if err != nil {
			log.Fatalf("parse csv: %v", err)
		}
		for _, c := range res.Cases {
			fmt.Printf("[%d] %s amount=%s propensity=%d -> %s\n", c.ID, c.CustomerID, c.Amount, c.Propensity, c.AssignedTo)
		}
		for _, e := range res.Errors {
			fmt.Printf("rejected: %v\n", e)
		}
		return
	}

	client := &http.Client{Timeout: 30 * time.Second}
	base := strings.TrimRight(*apiURL, "/")

	token, err := login(client, base, *username, *password)
	if err != nil {
		log.Fatalf("login: %v", err)
	}

	req, err := http.NewRequest("POST", base+"/api/v1/cases/upload", bytes.NewReader(data))
	if err != nil {
		log.Fatalf("build upload request: %v", err)
	}
	req.Header.Set("Content-Type", "text/csv")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("upload: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		log.Fatalf("upload: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		log.Fatalf("decode upload response: %v", err)
	}
	for _, e := range out.Errors {
		log.Printf("rejected line %d: %s %s", e.Line, e.Field, e.Reason)
	}
	log.Printf("done: batch %s, %d created, %d rejected", out.BatchID, out.CasesProcessed, out.CasesRejected)
}

func login(client *http.Client, base, username, password string) (string, error) {
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := client.Post(base+"/api/v1/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return "", err
	}
	return lr.AccessToken, nil
}
