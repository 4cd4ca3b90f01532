package main

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// App holds everything a request handler needs.
type App struct {
	cfg   *Config
	log   *logrus.Logger
	store *sqlStore
	auth  *authService
	chat  *chatService
	views views
}

func newApp(cfg *Config, log *logrus.Logger, db *sql.DB) (*App, error) {
	v, err := loadViews()
	if err != nil {
		return nil, err
	}
	return &App{
		cfg:   cfg,
		log:   log,
		store: newSQLStore(db, cfg.Session),
		auth:  newAuthService(db),
		chat:  newChatService(db, cfg.Chat.MaxMessageLength),
		views: v,
	}, nil
}

func (a *App) router() *mux.Router {
	r := mux.NewRouter()
	r.Use(a.recoverPanics, a.logRequests, a.loadIdentity)

	r.HandleFunc("/", a.homeHandler).Methods(http.MethodGet)
	r.HandleFunc("/register", a.registerHandler).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/login", a.loginHandler).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/logout", a.logoutHandler).Methods(http.MethodGet)

	r.HandleFunc("/chat", a.requireLogin(a.chatHandler)).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/update/{id:[0-9]+}", a.requireLogin(a.updateHandler)).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/delete/{id:[0-9]+}", a.requireLogin(a.deleteHandler)).Methods(http.MethodGet)
	return r
}

// loadIdentity attaches the session user, if any, to the request context.
func (a *App) loadIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := a.store.Get(r, a.cfg.Session.CookieName)
		if err != nil {
			a.log.WithError(err).Warn("session lookup failed")
		}
		if session != nil {
			if id, ok := identityFromSession(session.Values); ok {
				r = r.WithContext(withIdentity(r.Context(), id))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// requireLogin redirects anonymous requests to the login form.
func (a *App) requireLogin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := requireSession(r.Context()); err != nil {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next(w, r)
	}
}

// GET /
func (a *App) homeHandler(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/login", http.StatusFound)
}

// GET + POST /register
func (a *App) registerHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		a.render(w, r, "register.html", nil)
		return
	}

	username := r.FormValue("username")
	if _, err := a.auth.register(r.Context(), username, r.FormValue("password")); err != nil {
		a.fail(w, r, err)
		return
	}
	a.log.WithField("username", username).Info("user registered")
	http.Redirect(w, r, "/login", http.StatusFound)
}

// GET + POST /login
func (a *App) loginHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		a.render(w, r, "login.html", nil)
		return
	}

	id, err := a.auth.login(r.Context(), r.FormValue("username"), r.FormValue("password"))
	if err != nil {
		a.fail(w, r, err)
		return
	}

	session, _ := a.store.Get(r, a.cfg.Session.CookieName)
	if err := a.store.renew(r, session); err != nil {
		a.fail(w, r, storageError("There was an issue logging you in", err))
		return
	}
	session.Values["user_id"] = id.UserID
	session.Values["username"] = id.Username
	if err := session.Save(r, w); err != nil {
		a.fail(w, r, storageError("There was an issue logging you in", err))
		return
	}
	http.Redirect(w, r, "/chat", http.StatusFound)
}

// GET /logout
func (a *App) logoutHandler(w http.ResponseWriter, r *http.Request) {
	session, _ := a.store.Get(r, a.cfg.Session.CookieName)
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		a.log.WithError(err).Warn("logout: session not removed")
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

// GET + POST /chat
func (a *App) chatHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := requireSession(r.Context())

	if r.Method == http.MethodPost {
		if _, err := a.chat.postMessage(r.Context(), userID, r.FormValue("content")); err != nil {
			a.fail(w, r, err)
			return
		}
		http.Redirect(w, r, "/chat", http.StatusFound)
		return
	}

	messages, err := a.chat.listMessages(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	items := make([]map[string]interface{}, 0, len(messages))
	for _, m := range messages {
		items = append(items, messageView(m, userID))
	}
	a.render(w, r, "chat.html", map[string]interface{}{
		"messages":   items,
		"max_length": a.cfg.Chat.MaxMessageLength,
	})
}

// GET + POST /update/{id}
func (a *App) updateHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := requireSession(r.Context())
	id := messageID(r)

	if r.Method == http.MethodPost {
		if err := a.chat.updateMessage(r.Context(), userID, id, r.FormValue("content")); err != nil {
			a.fail(w, r, err)
			return
		}
		http.Redirect(w, r, "/chat", http.StatusFound)
		return
	}

	msg, err := a.chat.getMessage(r.Context(), userID, id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.render(w, r, "update.html", map[string]interface{}{
		"msg":        map[string]interface{}{"ID": msg.ID, "Content": msg.Content},
		"max_length": a.cfg.Chat.MaxMessageLength,
	})
}

// GET /delete/{id}
func (a *App) deleteHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := requireSession(r.Context())
	if err := a.chat.deleteMessage(r.Context(), userID, messageID(r)); err != nil {
		a.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/chat", http.StatusFound)
}

// messageID parses the {id} path variable. The route pattern guarantees
// digits; values that overflow int64 map to 0, which matches no message.
func messageID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}
