// Package main runs a demo WebSocket client for plan progress events.
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/gorilla/websocket"
)

const demoDay = `{"planDate":"2026-03-02","timeLimitMs":5000,"workers":2,
 "rep":{"name":"demo","startLocation":{"name":"Office","lat":40.7128,"lng":-74.006},
        "workingHours":{"start":"09:00","end":"17:00"},"maxDistanceKm":150,"maxTravelHours":4},
 "clients":[
  {"id":"A","name":"Alpha","lat":40.7306,"lng":-73.9352,"windowStart":"09:30","windowEnd":"12:00","serviceMinutes":30},
  {"id":"B","name":"Bravo","lat":40.6782,"lng":-73.9442,"windowStart":"10:00","windowEnd":"15:00","serviceMinutes":45},
  {"id":"C","name":"Charlie","lat":40.7831,"lng":-73.9712,"windowStart":"13:00","windowEnd":"17:00","serviceMinutes":30}]}`

type wsEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := "http://localhost:" + port

	// Start an async optimization
	req, _ := http.NewRequest(http.MethodPost, base+"/v1/optimize?async=true", strings.NewReader(demoDay))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Role", "admin")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	var accepted struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		log.Fatal(err)
	}
	if accepted.ID == "" {
		log.Fatalf("no plan id returned (status %d)", resp.StatusCode)
	}
	log.Printf("Plan ID: %s", accepted.ID)

	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/plans/" + accepted.ID + "/events/ws"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	// The server closes the stream once the plan is done or failed.
	for {
		var evt wsEvent
		if err := c.ReadJSON(&evt); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				log.Printf("read: %v", err)
			}
			return
		}
		log.Printf("WS <- %s: %s", evt.Type, string(evt.Data))
	}
}
