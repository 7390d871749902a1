package web

import (
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/bookvoice/internal/book"
	"github.com/dgnsrekt/bookvoice/internal/tts"
	"github.com/google/uuid"
)

const sessionCookie = "bookvoice_session"

// Settings are the choices made in the settings panel.
type Settings struct {
	Engine tts.EngineType

	// Voice is the engine's voice, or its language for gTTS.
	Voice string

	// Rate is the speech rate in words per minute, for engines that take one.
	Rate int

	VoiceMatch bool
}

// session is the state of one browser.
type session struct {
	mu sync.Mutex

	id       string
	lastSeen time.Time
	settings Settings

	pdfName string
	pdfPath string

	chapters  []book.Chapter
	selection *book.Selection

	voiceSample string

	jobID string
}

// replaceFile swaps *slot for path and removes the file it held.
func replaceFile(slot *string, path string) {
	if *slot != "" && *slot != path {
		if err := os.Remove(*slot); err != nil && !os.IsNotExist(err) {
			log.Warn("unable to remove upload", "path", *slot, "err", err)
		}
	}
	*slot = path
}

// ownsJob reports whether id is the job this session started last.
func (s *session) ownsJob(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return id != "" && s.jobID == id
}

func (s *session) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	replaceFile(&s.pdfPath, "")
	replaceFile(&s.voiceSample, "")
}

// sessionStore keeps sessions in memory, keyed by the cookie value.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
	defaults func() Settings
	now      func() time.Time
}

func newSessionStore(ttl time.Duration, defaults func() Settings) *sessionStore {
	return &sessionStore{
		sessions: make(map[string]*session),
		ttl:      ttl,
		defaults: defaults,
		now:      time.Now,
	}
}

// get returns the request's session, creating one and setting the cookie
// when there is none.
func (st *sessionStore) get(w http.ResponseWriter, r *http.Request) *session {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.now()
	if c, err := r.Cookie(sessionCookie); err == nil {
		if s, ok := st.sessions[c.Value]; ok {
			s.lastSeen = now
			return s
		}
	}

	st.expireLocked(now)

	s := &session{
		id:        uuid.NewString(),
		lastSeen:  now,
		settings:  st.defaults(),
		selection: book.NewSelection(0),
	}
	st.sessions[s.id] = s
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    s.id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	log.Debug("session created", "id", s.id)
	return s
}

func (st *sessionStore) expireLocked(now time.Time) {
	if st.ttl <= 0 {
		return
	}
	for id, s := range st.sessions {
		if now.Sub(s.lastSeen) > st.ttl {
			s.release()
			delete(st.sessions, id)
			log.Debug("session expired", "id", id)
		}
	}
}

// closeAll removes every session and its uploads.
func (st *sessionStore) closeAll() {
	st.mu.Lock()
	defer st.mu.Unlock()
	for id, s := range st.sessions {
		s.release()
		delete(st.sessions, id)
	}
}
