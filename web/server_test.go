package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/bookvoice/internal/jobs"
	"github.com/dgnsrekt/bookvoice/internal/pdf/pdftest"
	"github.com/dgnsrekt/bookvoice/internal/tts"
	"github.com/gorilla/websocket"
)

// mp3Engine returns its input labelled as MP3 so no ffmpeg is needed.
type mp3Engine struct{}

func (mp3Engine) Synthesize(ctx context.Context, text string) (tts.Audio, error) {
	if err := ctx.Err(); err != nil {
		return tts.Audio{}, err
	}
	return tts.Audio{Data: []byte("ID3" + text), Format: tts.FormatMP3}, nil
}
func (mp3Engine) Info() tts.EngineInfo { return tts.EngineInfo{Name: "mp3", Format: tts.FormatMP3} }
func (mp3Engine) Validate() error      { return nil }
func (mp3Engine) Close() error         { return nil }

type testServer struct {
	*Server
	url    string
	client *http.Client
	out    string
}

func newTestServer(t *testing.T, env Config) *testServer {
	t.Helper()

	cfg := tts.DefaultConfig()
	cfg.Engine = tts.EngineMock
	cfg.TempDir = t.TempDir()

	out := t.TempDir()
	s, err := New(Options{
		TTS:       cfg,
		OutputDir: out,
		NewEngine: func(context.Context, tts.Config) (tts.Engine, error) { return mp3Engine{}, nil },
		Env:       env,
	})
	if err != nil {
		t.Fatal(err)
	}

	ts := httptest.NewServer(s.Handler())
	jar, _ := cookiejar.New(nil)
	t.Cleanup(func() {
		ts.Close()
		_ = s.Shutdown(context.Background())
	})
	return &testServer{Server: s, url: ts.URL, client: &http.Client{Jar: jar}, out: out}
}

func (ts *testServer) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := ts.client.Get(ts.url + path)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close() //nolint:errcheck
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func (ts *testServer) post(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := ts.client.PostForm(ts.url+path, form)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close() //nolint:errcheck
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func (ts *testServer) upload(t *testing.T, path, filename string, data []byte) (*http.Response, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write(data)
	_ = mw.Close()

	resp, err := ts.client.Post(ts.url+path, mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close() //nolint:errcheck
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

// loadBook uploads a two chapter PDF and extracts it.
func (ts *testServer) loadBook(t *testing.T) {
	t.Helper()
	data := pdftest.Build("Chapter 1 Alpha begins", "more of alpha", "Chapter 2 Beta follows")
	if resp, body := ts.upload(t, "/pdf", "My Book.pdf", data); resp.StatusCode != http.StatusOK {
		t.Fatalf("PDF upload: %d %s", resp.StatusCode, body)
	}
	resp, body := ts.post(t, "/extract", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("extract: %d %s", resp.StatusCode, body)
	}
	if !strings.Contains(body, "Generate 2 Chapter(s)") {
		t.Fatalf("expected both chapters selected:\n%s", body)
	}
}

func (ts *testServer) waitJob(t *testing.T, id string) jobs.Job {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		_, body := ts.get(t, "/jobs/"+id)
		var job jobs.Job
		if err := json.Unmarshal([]byte(body), &job); err != nil {
			t.Fatalf("decoding job: %v: %s", err, body)
		}
		if job.State.Terminal() {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", id)
	return jobs.Job{}
}

func TestIndex(t *testing.T) {
	ts := newTestServer(t, Config{})

	resp, body := ts.get(t, "/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(body, ts.out) {
		t.Error("page should show the output directory")
	}
	if !strings.Contains(body, "Mock (test tones)") {
		t.Error("page should list the engines")
	}
	u, _ := url.Parse(ts.url)
	if len(ts.client.Jar.Cookies(u)) == 0 {
		t.Error("expected a session cookie")
	}

	if resp, _ := ts.get(t, "/nope"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown path status = %d", resp.StatusCode)
	}
}

func TestSettings(t *testing.T) {
	tests := []struct {
		name   string
		before url.Values
		form   url.Values
		status int
		voice  string
	}{
		{"edge with fuzzy voice", url.Values{"engine": {"edge"}}, url.Values{"engine": {"edge-tts"}, "voice": {"guy"}}, http.StatusOK, "en-US-GuyNeural"},
		{"piper rate", nil, url.Values{"engine": {"piper"}, "rate": {"200"}}, http.StatusOK, ""},
		{"rate out of range", nil, url.Values{"engine": {"piper"}, "rate": {"400"}}, http.StatusBadRequest, ""},
		{"rate not a number", nil, url.Values{"engine": {"piper"}, "rate": {"fast"}}, http.StatusBadRequest, ""},
		{"unknown engine", nil, url.Values{"engine": {"espeak"}}, http.StatusBadRequest, ""},
		{"no engine", nil, url.Values{}, http.StatusBadRequest, ""},
		{"bad voice", url.Values{"engine": {"gtts"}}, url.Values{"engine": {"gtts"}, "voice": {"zz"}}, http.StatusBadRequest, ""},
		{"gtts to polly", url.Values{"engine": {"gtts"}}, url.Values{"engine": {"polly"}, "voice": {"en"}}, http.StatusOK, "Joanna"},
		{"edge to gtts", url.Values{"engine": {"edge"}}, url.Values{"engine": {"gtts"}, "voice": {"en-US-AriaNeural"}}, http.StatusOK, "en"},
		{"edge to polly", url.Values{"engine": {"edge"}}, url.Values{"engine": {"polly"}, "voice": {"en-US-AriaNeural"}}, http.StatusOK, "Joanna"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, Config{})
			if tt.before != nil {
				if resp, body := ts.post(t, "/settings", tt.before); resp.StatusCode != http.StatusOK {
					t.Fatalf("setup status = %d: %s", resp.StatusCode, body)
				}
			}
			resp, body := ts.post(t, "/settings", tt.form)
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d: %s", resp.StatusCode, tt.status, body)
			}
			if tt.voice != "" && !strings.Contains(body, `value="`+tt.voice+`" selected`) {
				t.Errorf("voice %q should be selected", tt.voice)
			}
		})
	}

	ts := newTestServer(t, Config{})
	_, body := ts.post(t, "/settings", url.Values{"engine": {"edge"}, "voice_match": {"on"}})
	if !strings.Contains(body, `action="/voice"`) {
		t.Error("voice sample upload should be offered when matching is on")
	}
	if strings.Contains(body, `name="rate"`) {
		t.Error("edge has no rate setting")
	}

	_, body = ts.post(t, "/settings", url.Values{"engine": {"polly"}, "rate": {"200"}})
	if !strings.Contains(body, `name="rate"`) || !strings.Contains(body, `value="200"`) {
		t.Error("polly rate should be shown and kept")
	}
}

func TestUploads(t *testing.T) {
	ts := newTestServer(t, Config{})

	if resp, _ := ts.upload(t, "/pdf", "notes.txt", []byte("hello")); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("non-PDF upload status = %d", resp.StatusCode)
	}
	if resp, _ := ts.post(t, "/extract", nil); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("extract without PDF status = %d", resp.StatusCode)
	}
	if resp, _ := ts.upload(t, "/voice", "me.wav", []byte("RIFF")); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("voice upload without matching status = %d", resp.StatusCode)
	}

	ts.post(t, "/settings", url.Values{"engine": {"mock"}, "voice_match": {"on"}})
	if resp, _ := ts.upload(t, "/voice", "me.ogg", []byte("OggS")); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("ogg sample status = %d", resp.StatusCode)
	}
	resp, body := ts.upload(t, "/voice", "me.WAV", []byte("RIFF"))
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "Sample uploaded") {
		t.Errorf("voice upload failed: %d", resp.StatusCode)
	}

	bad := []byte("not really a pdf")
	ts.upload(t, "/pdf", "broken.pdf", bad)
	if resp, _ := ts.post(t, "/extract", nil); resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("broken PDF extract status = %d", resp.StatusCode)
	}
}

func TestUploadTooLarge(t *testing.T) {
	ts := newTestServer(t, Config{MaxUploadMB: 1})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "big.pdf")
	_, _ = fw.Write(make([]byte, 2<<20))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/pdf", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestChapterSelection(t *testing.T) {
	ts := newTestServer(t, Config{})
	ts.loadBook(t)

	_, body := ts.get(t, "/")
	for _, want := range []string{"Chapter 1 (", "Chapter 2 (", "chars)"} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}

	_, body = ts.post(t, "/chapters/select", url.Values{"action": {"none"}})
	if !strings.Contains(body, "Generate 0 Chapter(s)") {
		t.Error("deselect all should leave nothing selected")
	}
	if resp, _ := ts.post(t, "/generate", nil); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("generate with nothing selected status = %d", resp.StatusCode)
	}

	_, body = ts.post(t, "/chapters/select", url.Values{"toggle": {"1"}})
	if !strings.Contains(body, "Generate 1 Chapter(s)") {
		t.Error("toggle should select one chapter")
	}
	_, body = ts.post(t, "/chapters/select", url.Values{"action": {"all"}})
	if !strings.Contains(body, "Generate 2 Chapter(s)") {
		t.Error("select all should select both chapters")
	}

	if resp, _ := ts.post(t, "/chapters/select", url.Values{"toggle": {"9"}}); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("out of range toggle status = %d", resp.StatusCode)
	}
	if resp, _ := ts.post(t, "/chapters/select", url.Values{"action": {"some"}}); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown action status = %d", resp.StatusCode)
	}
}

func submitJSON(t *testing.T, ts *testServer) jobs.Job {
	t.Helper()
	req, _ := http.NewRequest(http.MethodPost, ts.url+"/generate", nil)
	req.Header.Set("Accept", "application/json")
	resp, err := ts.client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("generate status = %d: %s", resp.StatusCode, body)
	}
	var job jobs.Job
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		t.Fatal(err)
	}
	return job
}

func TestGenerateAndDownload(t *testing.T) {
	ts := newTestServer(t, Config{})
	ts.loadBook(t)

	// Only the second chapter, so no merge is needed.
	ts.post(t, "/chapters/select", url.Values{"action": {"none"}})
	ts.post(t, "/chapters/select", url.Values{"toggle": {"1"}})

	job := ts.waitJob(t, submitJSON(t, ts).ID)
	if job.State != jobs.StateDone {
		t.Fatalf("job ended %s: %s", job.State, job.Err)
	}
	if len(job.Files) != 1 || job.Files[0].Title != "Chapter 2" {
		t.Fatalf("files = %+v", job.Files)
	}

	saved := filepath.Base(job.Files[0].SavedPath)
	if !strings.HasPrefix(saved, "My Book_Chapter_2_") {
		t.Errorf("saved as %s", saved)
	}
	if _, err := os.Stat(filepath.Join(ts.out, "My Book_manifest.yaml")); err != nil {
		t.Errorf("manifest missing: %v", err)
	}

	resp, body := ts.get(t, "/files/0")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("download status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "audio/mpeg" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.HasPrefix(body, "ID3") || !strings.Contains(body, "Beta") {
		t.Errorf("unexpected audio %q", body)
	}

	if resp, _ := ts.get(t, "/files/1"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing file status = %d", resp.StatusCode)
	}
	if resp, _ := ts.get(t, "/files/complete"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("single file job should have no merged download, got %d", resp.StatusCode)
	}

	_, page := ts.get(t, "/")
	if !strings.Contains(page, "Download Chapter 2") {
		t.Error("single chapter download link missing")
	}

	if resp, _ := ts.get(t, "/jobs/unknown"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown job status = %d", resp.StatusCode)
	}
}

func TestJobSocket(t *testing.T) {
	ts := newTestServer(t, Config{})
	ts.loadBook(t)
	job := submitJSON(t, ts)

	wsURL := "ws" + strings.TrimPrefix(ts.url, "http") + "/jobs/" + job.ID + "/ws"
	dialer := websocket.Dialer{Jar: ts.client.Jar}
	conn, _, err := dialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close() //nolint:errcheck
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))

	var last jobs.Update
	for {
		var u jobs.Update
		if err := conn.ReadJSON(&u); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				t.Fatalf("read: %v", err)
			}
			break
		}
		last = u
	}
	if last.ID != job.ID || !last.State.Terminal() {
		t.Errorf("last update %+v", last)
	}

	if _, resp, err := dialer.Dial(strings.Replace(wsURL, job.ID, "missing", 1), nil); err == nil || resp.StatusCode != http.StatusNotFound {
		t.Error("expected 404 for unknown job socket")
	}
}

func TestJobsBelongToSession(t *testing.T) {
	ts := newTestServer(t, Config{})
	ts.loadBook(t)
	job := submitJSON(t, ts)

	jar, _ := cookiejar.New(nil)
	other := &testServer{Server: ts.Server, url: ts.url, client: &http.Client{Jar: jar}, out: ts.out}

	tests := []struct {
		name string
		do   func(t *testing.T) *http.Response
	}{
		{"status", func(t *testing.T) *http.Response { resp, _ := other.get(t, "/jobs/"+job.ID); return resp }},
		{"cancel", func(t *testing.T) *http.Response { resp, _ := other.post(t, "/jobs/"+job.ID+"/cancel", nil); return resp }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if resp := tt.do(t); resp.StatusCode != http.StatusNotFound {
				t.Errorf("status = %d, want 404", resp.StatusCode)
			}
		})
	}

	wsURL := "ws" + strings.TrimPrefix(ts.url, "http") + "/jobs/" + job.ID + "/ws"
	dialer := websocket.Dialer{Jar: jar}
	if _, resp, err := dialer.Dial(wsURL, nil); err == nil || resp.StatusCode != http.StatusNotFound {
		t.Error("another session should not see the job socket")
	}

	if done := ts.waitJob(t, job.ID); done.State != jobs.StateDone {
		t.Errorf("owner's job ended %s: %s", done.State, done.Err)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t, Config{})

	if resp, body := ts.get(t, "/healthz"); resp.StatusCode != http.StatusOK || body != "ok" {
		t.Errorf("healthz = %d %q", resp.StatusCode, body)
	}
	ts.get(t, "/")
	_, body := ts.get(t, "/metrics")
	if !strings.Contains(body, "bookvoice_http_requests_total") {
		t.Error("metrics should include request counts")
	}
}

func TestWithSettings(t *testing.T) {
	base := tts.DefaultConfig()
	tests := []struct {
		settings Settings
		check    func(tts.Config) bool
	}{
		{Settings{Engine: tts.EngineEdge, Voice: "en-US-GuyNeural"}, func(c tts.Config) bool { return c.Edge.Voice == "en-US-GuyNeural" }},
		{Settings{Engine: tts.EngineGTTS, Voice: "fr"}, func(c tts.Config) bool { return c.GTTS.Language == "fr" }},
		{Settings{Engine: tts.EnginePolly, Voice: "Amy"}, func(c tts.Config) bool { return c.Polly.Voice == "Amy" }},
		{Settings{Engine: tts.EngineGoogle, Voice: "fr-FR-Standard-A"}, func(c tts.Config) bool { return c.Google.VoiceName == "fr-FR-Standard-A" }},
		{Settings{Engine: tts.EngineOffline, Rate: 220}, func(c tts.Config) bool { return c.Piper.Rate == 220 }},
		{Settings{Engine: tts.EnginePolly, Rate: 160}, func(c tts.Config) bool { return c.Polly.Rate == 160 && c.Piper.Rate == tts.DefaultRate }},
		{Settings{Engine: tts.EngineGoogle, Rate: 240}, func(c tts.Config) bool { return c.Google.Rate == 240 }},
		{Settings{Engine: tts.EngineEdge}, func(c tts.Config) bool { return c.Edge.Voice == tts.DefaultEdgeVoice }},
	}
	for _, tt := range tests {
		cfg := withSettings(base, tt.settings)
		if cfg.Engine != tt.settings.Engine || !tt.check(cfg) {
			t.Errorf("withSettings(%+v) = %+v", tt.settings, cfg)
		}
		if got := voiceOf(cfg); tt.settings.Voice != "" && got != tt.settings.Voice {
			t.Errorf("voiceOf = %q, want %q", got, tt.settings.Voice)
		}
	}
}
