package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/bookvoice/internal/book"
	"github.com/dgnsrekt/bookvoice/internal/convert"
	"github.com/dgnsrekt/bookvoice/internal/jobs"
	"github.com/dgnsrekt/bookvoice/internal/pdf"
	"github.com/dgnsrekt/bookvoice/internal/tts"
	"github.com/dgnsrekt/bookvoice/internal/tts/engines"
)

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.get(w, r)

	engine, err := tts.ValidateEngineSelection(r.FormValue("engine"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	st := Settings{Engine: engine, VoiceMatch: r.FormValue("voice_match") != ""}

	sess.mu.Lock()
	previous := sess.settings.Engine
	sess.mu.Unlock()

	// The voice list on the page belongs to the engine shown before this
	// submit; after a switch it is meaningless for the new engine.
	if engine == previous {
		st.Voice, err = tts.ResolveVoice(engine, strings.TrimSpace(r.FormValue("voice")))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	defaults := withSettings(s.ttsDefaults(), Settings{Engine: engine})
	if st.Voice == "" {
		st.Voice = voiceOf(defaults)
	}

	st.Rate = rateOf(defaults)
	if v := r.FormValue("rate"); v != "" {
		rate, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "rate must be a number", http.StatusBadRequest)
			return
		}
		if err := tts.ValidateRate(rate); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if rateOf(defaults) > 0 {
			st.Rate = rate
		}
	}

	sess.mu.Lock()
	sess.settings = st
	sess.mu.Unlock()

	log.Debug("settings saved", "session", sess.id, "engine", st.Engine, "voice", st.Voice)
	redirectHome(w, r)
}

// saveUpload stores the multipart "file" field in a temp file when its
// extension is one of exts. It returns the temp path and the client's file
// name.
func (s *Server) saveUpload(w http.ResponseWriter, r *http.Request, exts ...string) (string, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.Env.maxUploadBytes())

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, fmt.Sprintf("upload exceeds %d MB", s.opts.Env.MaxUploadMB), http.StatusRequestEntityTooLarge)
			return "", "", false
		}
		http.Error(w, "missing file upload", http.StatusBadRequest)
		return "", "", false
	}
	defer file.Close() //nolint:errcheck

	ext := strings.ToLower(filepath.Ext(header.Filename))
	allowed := false
	for _, e := range exts {
		allowed = allowed || ext == e
	}
	if !allowed {
		http.Error(w, fmt.Sprintf("unsupported file type %q, expected %s", ext, strings.Join(exts, " or ")), http.StatusBadRequest)
		return "", "", false
	}

	tmp, err := os.CreateTemp(s.opts.TTS.TempDir, "upload-*"+ext)
	if err != nil {
		http.Error(w, "unable to store upload", http.StatusInternalServerError)
		return "", "", false
	}
	if _, err := io.Copy(tmp, file); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		http.Error(w, "unable to store upload", http.StatusInternalServerError)
		return "", "", false
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		http.Error(w, "unable to store upload", http.StatusInternalServerError)
		return "", "", false
	}
	return tmp.Name(), header.Filename, true
}

func (s *Server) handleVoiceUpload(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.get(w, r)

	sess.mu.Lock()
	matching := sess.settings.VoiceMatch
	sess.mu.Unlock()
	if !matching {
		http.Error(w, "enable voice matching before uploading a sample", http.StatusBadRequest)
		return
	}

	path, name, ok := s.saveUpload(w, r, ".mp3", ".wav")
	if !ok {
		return
	}

	sess.mu.Lock()
	replaceFile(&sess.voiceSample, path)
	sess.mu.Unlock()

	log.Info("voice sample uploaded", "session", sess.id, "file", name)
	redirectHome(w, r)
}

func (s *Server) handlePDFUpload(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.get(w, r)

	path, name, ok := s.saveUpload(w, r, ".pdf")
	if !ok {
		return
	}

	sess.mu.Lock()
	replaceFile(&sess.pdfPath, path)
	sess.pdfName = name
	sess.chapters = nil
	sess.selection.Clear()
	sess.mu.Unlock()

	log.Info("PDF uploaded", "session", sess.id, "file", name)
	redirectHome(w, r)
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.get(w, r)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.pdfPath == "" {
		http.Error(w, "upload a PDF first", http.StatusBadRequest)
		return
	}

	doc, err := pdf.ExtractFile(sess.pdfPath)
	if err != nil {
		log.Error("extraction failed", "file", sess.pdfName, "err", err)
		http.Error(w, "Failed to process PDF: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	sess.chapters = book.SplitChapters(doc.Pages)
	sess.selection.SelectAll(len(sess.chapters))

	log.Info("chapters extracted", "file", sess.pdfName, "pages", len(doc.Pages), "chapters", len(sess.chapters))
	redirectHome(w, r)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.get(w, r)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	switch action := r.FormValue("action"); {
	case action == "all":
		sess.selection.SelectAll(len(sess.chapters))
	case action == "none":
		sess.selection.Clear()
	case r.FormValue("toggle") != "":
		i, err := strconv.Atoi(r.FormValue("toggle"))
		if err != nil || i < 0 || i >= len(sess.chapters) {
			http.Error(w, "no such chapter", http.StatusBadRequest)
			return
		}
		sess.selection.Toggle(i)
	default:
		http.Error(w, "unknown selection action", http.StatusBadRequest)
		return
	}
	redirectHome(w, r)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.get(w, r)

	sess.mu.Lock()
	chapters := book.Select(sess.chapters, sess.selection.Indices())
	settings := sess.settings
	sample := ""
	if settings.VoiceMatch {
		sample = sess.voiceSample
	}
	base := book.BaseName(sess.pdfName)
	sess.mu.Unlock()

	if len(chapters) == 0 {
		http.Error(w, "Please select at least one chapter", http.StatusBadRequest)
		return
	}

	cfg := withSettings(s.ttsDefaults(), settings)
	if result := tts.ValidateEngine(cfg.Engine, cfg); !result.Available {
		msg := result.Error.Error()
		if result.Guidance != "" {
			msg += "\n\n" + result.Guidance
		}
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	// The sample must outlive a later upload replacing it.
	if sample != "" {
		copied, err := copyTemp(s.opts.TTS.TempDir, sample)
		if err != nil {
			log.Warn("voice sample unavailable, matching disabled", "err", err)
			sample = ""
		} else {
			sample = copied
		}
	}

	job, err := s.queue.Submit(s.conversionTask(cfg, chapters, base, sample))
	if err != nil {
		if sample != "" {
			_ = os.Remove(sample)
		}
		status := http.StatusInternalServerError
		if errors.Is(err, jobs.ErrQueueFull) || errors.Is(err, jobs.ErrQueueClosed) {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, err.Error(), status)
		return
	}

	sess.mu.Lock()
	sess.jobID = job.ID
	sess.mu.Unlock()

	log.Info("generation queued", "job", job.ID, "engine", cfg.Engine, "chapters", len(chapters))

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		writeJSON(w, http.StatusAccepted, job)
		return
	}
	redirectHome(w, r)
}

// conversionTask converts chapters with a fresh engine, merges them when
// there is more than one file and writes the manifest.
func (s *Server) conversionTask(cfg tts.Config, chapters []book.Chapter, base, sample string) jobs.Task {
	return func(ctx context.Context, report convert.Progress) (jobs.Result, error) {
		if sample != "" {
			defer os.Remove(sample) //nolint:errcheck
		}

		engine, err := s.opts.NewEngine(ctx, cfg)
		if err != nil {
			return jobs.Result{}, err
		}
		defer engine.Close() //nolint:errcheck
		engine = engines.Wrap(engine, s.opts.Cache)

		conv, err := convert.New(convert.Options{
			Engine:      engine,
			ChunkSize:   s.opts.ChunkSize,
			OutputDir:   s.opts.OutputDir,
			BaseName:    base,
			VoiceSample: sample,
			TempDir:     cfg.TempDir,
		})
		if err != nil {
			return jobs.Result{}, err
		}
		defer conv.Close() //nolint:errcheck

		res, err := conv.Run(ctx, chapters, report)
		return jobs.Result{Files: res.Files, Complete: res.Complete}, err
	}
}

func copyTemp(dir, src string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close() //nolint:errcheck

	out, err := os.CreateTemp(dir, "sample-*"+filepath.Ext(src))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(out.Name())
		return "", err
	}
	return out.Name(), out.Close()
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.sessions.get(w, r).ownsJob(id) {
		http.NotFound(w, r)
		return
	}
	job, ok := s.queue.Get(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.sessions.get(w, r).ownsJob(id) {
		http.NotFound(w, r)
		return
	}
	if err := s.queue.Cancel(id); err != nil {
		http.NotFound(w, r)
		return
	}
	redirectHome(w, r)
}

// sessionJob returns the last job started from this session, if still known.
func (s *Server) sessionJob(sess *session) (jobs.Job, bool) {
	sess.mu.Lock()
	id := sess.jobID
	sess.mu.Unlock()
	if id == "" {
		return jobs.Job{}, false
	}
	return s.queue.Get(id)
}

func (s *Server) handleChapterDownload(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.get(w, r)
	job, ok := s.sessionJob(sess)
	if !ok {
		http.NotFound(w, r)
		return
	}
	n, err := strconv.Atoi(r.PathValue("n"))
	if err != nil || n < 0 || n >= len(job.Files) {
		http.NotFound(w, r)
		return
	}
	serveAudio(w, r, job.Files[n].SavedPath)
}

func (s *Server) handleCompleteDownload(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.get(w, r)
	job, ok := s.sessionJob(sess)
	if !ok || job.Complete == "" {
		http.NotFound(w, r)
		return
	}
	serveAudio(w, r, job.Complete)
}

func serveAudio(w http.ResponseWriter, r *http.Request, path string) {
	f, err := os.Open(path)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close() //nolint:errcheck

	info, err := f.Stat()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeContent(w, r, filepath.Base(path), info.ModTime(), f)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("unable to encode response", "err", err)
	}
}
