package api

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Kirito123l/emission-agent/pkg/stream"
)

// storedMessage is one persisted turn in a session.
type storedMessage struct {
	Role         string               `json:"role"`
	Content      string               `json:"content"`
	DataType     string               `json:"data_type,omitempty"`
	ChartData    *stream.ChartPayload `json:"chart_data,omitempty"`
	TableData    *stream.TablePayload `json:"table_data,omitempty"`
	FileID       string               `json:"file_id,omitempty"`
	DownloadFile *stream.DownloadFile `json:"download_file,omitempty"`
	MessageID    string               `json:"message_id,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
}

// storedSession is one conversation owned by a user.
type storedSession struct {
	ID        string
	UserID    string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
	Messages  []storedMessage
}

// storedFile is a generated result file available for download.
type storedFile struct {
	ID       string
	UserID   string
	Filename string
	Data     []byte
}

// store is the in-memory backing state, scoped per user ID.
type store struct {
	mu       sync.RWMutex
	sessions map[string]*storedSession
	files    map[string]*storedFile
}

func newStore() *store {
	return &store{
		sessions: make(map[string]*storedSession),
		files:    make(map[string]*storedFile),
	}
}

func (st *store) createSession(userID string) *storedSession {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := time.Now().UTC()
	sess := &storedSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     "New conversation",
		CreatedAt: now,
		UpdatedAt: now,
	}
	st.sessions[sess.ID] = sess
	return sess
}

// session returns the user's session by ID, or nil when it does not exist
// or belongs to someone else.
func (st *store) session(userID, sessionID string) *storedSession {
	st.mu.RLock()
	defer st.mu.RUnlock()

	sess, ok := st.sessions[sessionID]
	if !ok || sess.UserID != userID {
		return nil
	}
	return sess
}

// listSessions returns the user's sessions, most recently updated first.
func (st *store) listSessions(userID string) []*storedSession {
	st.mu.RLock()
	defer st.mu.RUnlock()

	var out []*storedSession
	for _, sess := range st.sessions {
		if sess.UserID == userID {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// appendMessages adds turns to a session and retitles it from the first
// user message.
func (st *store) appendMessages(sess *storedSession, msgs ...storedMessage) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if len(sess.Messages) == 0 {
		for _, m := range msgs {
			if m.Role == "user" && m.Content != "" {
				sess.Title = titleFrom(m.Content)
				break
			}
		}
	}

	sess.Messages = append(sess.Messages, msgs...)
	sess.UpdatedAt = time.Now().UTC()
}

func (st *store) renameSession(userID, sessionID, title string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	sess, ok := st.sessions[sessionID]
	if !ok || sess.UserID != userID {
		return false
	}
	sess.Title = title
	sess.UpdatedAt = time.Now().UTC()
	return true
}

func (st *store) deleteSession(userID, sessionID string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	sess, ok := st.sessions[sessionID]
	if !ok || sess.UserID != userID {
		return false
	}
	delete(st.sessions, sessionID)
	return true
}

func (st *store) putFile(userID, filename string, data []byte) *storedFile {
	st.mu.Lock()
	defer st.mu.Unlock()

	f := &storedFile{
		ID:       uuid.NewString(),
		UserID:   userID,
		Filename: filename,
		Data:     data,
	}
	st.files[f.ID] = f
	return f
}

func (st *store) file(userID, fileID string) *storedFile {
	st.mu.RLock()
	defer st.mu.RUnlock()

	f, ok := st.files[fileID]
	if !ok || f.UserID != userID {
		return nil
	}
	return f
}

func (st *store) fileByName(userID, filename string) *storedFile {
	st.mu.RLock()
	defer st.mu.RUnlock()

	for _, f := range st.files {
		if f.UserID == userID && f.Filename == filename {
			return f
		}
	}
	return nil
}
