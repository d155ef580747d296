package main

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"
)

type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type TranscriptionResponse struct {
	Text        string    `json:"text"`
	Language    string    `json:"language"`
	Segments    []Segment `json:"segments"`
	ProcessedAt time.Time `json:"processed_at"`
}

func transcribeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Parse multipart form
	err := r.ParseMultipartForm(32 << 20) // 32 MB
	if err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	language := r.FormValue("language")
	model := r.FormValue("model")
	initialPrompt := r.FormValue("initial_prompt")

	// Get audio file
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Error getting audio file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	// Read file content to get size
	audioData, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Error reading audio file", http.StatusInternalServerError)
		return
	}

	log.Printf("🎤 TRANSCRIPTION REQUEST RECEIVED:")
	log.Printf("    Filename: %s", header.Filename)
	log.Printf("    Audio Size: %d bytes", len(audioData))
	log.Printf("    Language: %s", language)
	log.Printf("    Model: %s", model)
	log.Printf("    Initial Prompt: %s", initialPrompt)

	// Simulate processing time
	time.Sleep(200 * time.Millisecond)

	// Create fake transcription with filler words and a mid-recording gap,
	// the shape a real practice recording produces
	segments := []Segment{
		{Start: 0.0, End: 3.2, Text: "So, um, today I want to talk about my weekend"},
		{Start: 4.8, End: 8.1, Text: "Basically, we went hiking and, like, the weather was great"},
		{Start: 9.5, End: 12.0, Text: "I think I would, uh, definitely go again"},
	}

	fullText := ""
	for i, s := range segments {
		if i > 0 {
			fullText += " "
		}
		fullText += s.Text
	}

	response := TranscriptionResponse{
		Text:        fullText,
		Language:    "en",
		Segments:    segments,
		ProcessedAt: time.Now(),
	}

	// Send JSON response
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)

	log.Printf("✅ TRANSCRIPTION RESPONSE SENT: %d segments", len(response.Segments))
	log.Println("---")
}

func main() {
	http.HandleFunc("/transcribe", transcribeHandler)

	port := ":9000"
	log.Printf("🚀 Test Transcription Server starting on port %s", port)
	log.Printf("📡 Endpoint: http://localhost%s/transcribe", port)
	log.Println("💡 Update your config to use: http://localhost:9000/transcribe")

	if err := http.ListenAndServe(port, nil); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}
