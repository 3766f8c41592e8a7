// Command smoke walks a running instance through a tournament registration and the admin
// endpoints. Base URL and admin credentials come from the environment.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
)

var client = &http.Client{Timeout: 15 * time.Second}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func prettyPrint(body []byte) {
	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		fmt.Println(string(body))
		return
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func sendRequest(baseURL, method, url, token string, body interface{}) (*http.Response, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, nil, err
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, baseURL+url, bodyReader)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp, respBody, err
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func step(title string) {
	color.Yellow("\n" + title)
}

func report(resp *http.Response, body []byte, err error) *envelope {
	if err != nil {
		color.Red("Failed: %v", err)
		return nil
	}
	if resp.StatusCode >= 400 {
		color.Red("Status: %s", resp.Status)
	} else {
		color.Green("Status: %s", resp.Status)
	}
	prettyPrint(body)

	var env envelope
	if json.Unmarshal(body, &env) != nil {
		return nil
	}
	return &env
}

func main() {
	baseURL := env("API_BASE_URL", "http://localhost:5000/api")
	username := env("ADMIN_USERNAME", "admin")
	password := os.Getenv("ADMIN_PASSWORD")

	color.Cyan("🚀 Registration API smoke test against %s\n", baseURL)

	// Unique per run so the duplicate guard does not trip on reruns.
	now := time.Now()
	suffix := now.Format("150405")
	registration := map[string]interface{}{
		"playerFirstName":    "Smoke",
		"playerLastName":     "Test" + suffix,
		"dateOfBirth":        "2012-05-01",
		"gender":             "male",
		"playingPositions":   []string{"CM"},
		"mobileNumber":       fmt.Sprintf("050%07d", now.UnixNano()%10000000),
		"email":              "smoke+" + suffix + "@example.com",
		"preferredLocations": []string{"saadiyat"},
		"academyClub":        "Atomics",
		"divisionLastSeason": "U13 Division 1",
		"strengthWeakness":   "Strong passing range, working on aerial duels.",
		"trialDate":          now.AddDate(0, 0, 7).Format("2006-01-02"),
		"paymentAmount":      0,
	}

	step("[PUBLIC] 1. Create tournament registration")
	created := report(sendRequest(baseURL, http.MethodPost, "/tournament-registrations", "", registration))

	var registrationID string
	if created != nil && created.Success {
		var data struct {
			Id string `json:"id"`
		}
		_ = json.Unmarshal(created.Data, &data)
		registrationID = data.Id
	}

	if registrationID != "" {
		step("[PUBLIC] 2. Fetch registration")
		report(sendRequest(baseURL, http.MethodGet, "/tournament-registrations/"+registrationID, "", nil))

		step("[PUBLIC] 3. Resubmit, expecting the duplicate guard")
		report(sendRequest(baseURL, http.MethodPost, "/tournament-registrations", "", registration))
	} else {
		color.Red("\n[SKIP] Fetch skipped (no id returned from create)")
	}

	if password == "" {
		color.Red("\n[SKIP] Admin steps skipped (ADMIN_PASSWORD not set)")
		color.Cyan("\n✅ Smoke sequence complete")
		return
	}

	step("[ADMIN] 4. Login")
	login := report(sendRequest(baseURL, http.MethodPost, "/admin/login", "", map[string]string{
		"username": username,
		"password": password,
	}))
	var token string
	if login != nil && login.Success {
		var data struct {
			AccessToken string `json:"accessToken"`
		}
		_ = json.Unmarshal(login.Data, &data)
		token = data.AccessToken
	}
	if token == "" {
		color.Red("\n[SKIP] Admin steps skipped (login failed)")
		return
	}

	step("[ADMIN] 5. Statistics")
	report(sendRequest(baseURL, http.MethodGet, "/tournament-registrations/stats", token, nil))

	step("[ADMIN] 6. List pending registrations")
	report(sendRequest(baseURL, http.MethodGet, "/tournament-registrations?status=pending&limit=5", token, nil))

	if registrationID != "" {
		step("[ADMIN] 7. Cleanup: delete smoke registration")
		report(sendRequest(baseURL, http.MethodDelete, "/tournament-registrations/"+registrationID, token, nil))
	}

	color.Cyan("\n✅ Smoke sequence complete")
}
