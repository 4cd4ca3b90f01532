package main

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/pkg/errors"
)

// sqlStore keeps session values in the sessions table. The cookie only
// carries the signed session id.
type sqlStore struct {
	db      *sql.DB
	codecs  []securecookie.Codec
	values  securecookie.GobEncoder
	Options *sessions.Options
}

var _ sessions.Store = (*sqlStore)(nil)

func newSQLStore(db *sql.DB, cfg SessionConfig) *sqlStore {
	codecs := securecookie.CodecsFromPairs([]byte(cfg.SecretKey))
	for _, c := range codecs {
		if sc, ok := c.(*securecookie.SecureCookie); ok {
			sc.MaxAge(cfg.MaxAgeSeconds)
		}
	}
	return &sqlStore{
		db:     db,
		codecs: codecs,
		Options: &sessions.Options{
			Path:     "/",
			MaxAge:   cfg.MaxAgeSeconds,
			HttpOnly: true,
			Secure:   cfg.Secure,
			SameSite: http.SameSiteLaxMode,
		},
	}
}

// Get returns the session cached in the request registry, loading it on
// first use.
func (s *sqlStore) Get(r *http.Request, name string) (*sessions.Session, error) {
	return sessions.GetRegistry(r).Get(s, name)
}

// New loads the session referenced by the request cookie. A missing,
// tampered or expired cookie yields a fresh empty session.
func (s *sqlStore) New(r *http.Request, name string) (*sessions.Session, error) {
	session := sessions.NewSession(s, name)
	opts := *s.Options
	session.Options = &opts
	session.IsNew = true

	c, err := r.Cookie(name)
	if err != nil {
		return session, nil
	}
	var id string
	if err := securecookie.DecodeMulti(name, c.Value, &id, s.codecs...); err != nil {
		return session, nil
	}

	var data []byte
	err = s.db.QueryRowContext(r.Context(),
		"SELECT data FROM sessions WHERE id = ? AND expires_at > ?", id, time.Now().UTC()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return session, nil
	}
	if err != nil {
		return session, errors.Wrap(err, "load session")
	}
	if err := s.values.Deserialize(data, &session.Values); err != nil {
		return session, errors.Wrap(err, "decode session")
	}
	session.ID = id
	session.IsNew = false
	return session, nil
}

// Save writes the session row and cookie. A negative MaxAge deletes both.
func (s *sqlStore) Save(r *http.Request, w http.ResponseWriter, session *sessions.Session) error {
	if session.Options.MaxAge < 0 {
		if session.ID != "" {
			if _, err := s.db.ExecContext(r.Context(), "DELETE FROM sessions WHERE id = ?", session.ID); err != nil {
				return errors.Wrap(err, "delete session")
			}
		}
		http.SetCookie(w, sessions.NewCookie(session.Name(), "", session.Options))
		return nil
	}

	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	data, err := s.values.Serialize(session.Values)
	if err != nil {
		return errors.Wrap(err, "encode session")
	}
	expires := time.Now().Add(time.Duration(session.Options.MaxAge) * time.Second).UTC()
	_, err = s.db.ExecContext(r.Context(), `
		INSERT INTO sessions (id, data, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, expires_at = excluded.expires_at`,
		session.ID, data, expires)
	if err != nil {
		return errors.Wrap(err, "save session")
	}

	encoded, err := securecookie.EncodeMulti(session.Name(), session.ID, s.codecs...)
	if err != nil {
		return errors.Wrap(err, "sign session cookie")
	}
	http.SetCookie(w, sessions.NewCookie(session.Name(), encoded, session.Options))
	return nil
}

// renew drops the stored session and gives it a new id, so a session
// issued before login cannot be reused after it.
func (s *sqlStore) renew(r *http.Request, session *sessions.Session) error {
	if session.ID != "" {
		if _, err := s.db.ExecContext(r.Context(), "DELETE FROM sessions WHERE id = ?", session.ID); err != nil {
			return errors.Wrap(err, "delete session")
		}
	}
	session.ID = ""
	session.Values = map[interface{}]interface{}{}
	return nil
}
