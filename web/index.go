package web

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/bookvoice/internal/jobs"
	"github.com/dgnsrekt/bookvoice/internal/tts"
)

type engineOption struct {
	Value    tts.EngineType
	Label    string
	Selected bool
}

type chapterView struct {
	Index    int
	Title    string
	Chars    int
	Selected bool
}

type fileView struct {
	Index int
	Title string
	Name  string
	Size  int64
}

type indexView struct {
	OutputDir string

	Settings      Settings
	Engines       []engineOption
	Voices        []string
	RateMin       int
	RateMax       int
	ShowRate      bool
	HasSample     bool
	PDFName       string
	Chapters      []chapterView
	SelectedCount int

	Job      *jobs.Job
	Files    []fileView
	Complete string
}

// GenerateLabel is the text of the generate button.
func (v indexView) GenerateLabel() string {
	return fmt.Sprintf("Generate %d Chapter(s)", v.SelectedCount)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.get(w, r)

	sess.mu.Lock()
	view := indexView{
		OutputDir: s.opts.OutputDir,
		Settings:  sess.settings,
		RateMin:   tts.MinRate,
		RateMax:   tts.MaxRate,
		ShowRate:  sess.settings.Rate > 0,
		HasSample: sess.voiceSample != "",
		PDFName:   sess.pdfName,
	}
	for _, c := range sess.chapters {
		selected := sess.selection.Contains(c.Index)
		view.Chapters = append(view.Chapters, chapterView{
			Index:    c.Index,
			Title:    c.Title,
			Chars:    c.Chars(),
			Selected: selected,
		})
		if selected {
			view.SelectedCount++
		}
	}
	sess.mu.Unlock()

	for _, e := range tts.EngineTypes {
		view.Engines = append(view.Engines, engineOption{Value: e, Label: e.Label(), Selected: e == view.Settings.Engine})
	}
	view.Voices = tts.VoicesFor(view.Settings.Engine)

	if job, ok := s.sessionJob(sess); ok {
		view.Job = &job
		for i, f := range job.Files {
			fv := fileView{Index: i, Title: f.Title, Name: baseName(f.SavedPath)}
			if info, err := os.Stat(f.SavedPath); err == nil {
				fv.Size = info.Size()
			}
			view.Files = append(view.Files, fv)
		}
		view.Complete = baseName(job.Complete)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, "index.html", view); err != nil {
		log.Error("unable to render page", "err", err)
	}
}

func baseName(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Base(path)
}
