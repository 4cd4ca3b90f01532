package main

import (
	"context"
	"embed"
	"io/fs"
	"net/http"
	"path"
	"time"

	"github.com/nikolalohinski/gonja/v2"
	"github.com/nikolalohinski/gonja/v2/exec"
	"github.com/pkg/errors"
)

// --- Identity helpers ---

type identityKey struct{}

func withIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func identityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// identityFromSession reads the user stored in the session at login.
func identityFromSession(values map[interface{}]interface{}) (Identity, bool) {
	userID, ok := values["user_id"].(int64)
	if !ok {
		return Identity{}, false
	}
	username, _ := values["username"].(string)
	return Identity{UserID: userID, Username: username}, true
}

// --- Template helpers ---

//go:embed templates/*.html
var templateFS embed.FS

type views map[string]*exec.Template

func loadViews() (views, error) {
	names, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	v := views{}
	for _, name := range names {
		src, err := templateFS.ReadFile(name)
		if err != nil {
			return nil, errors.Wrapf(err, "read template %s", name)
		}
		tpl, err := gonja.FromBytes(src)
		if err != nil {
			return nil, errors.Wrapf(err, "parse template %s", name)
		}
		v[path.Base(name)] = tpl
	}
	return v, nil
}

func datetimeformat(t time.Time) string {
	return t.Local().Format("2006-01-02 @ 15:04")
}

// messageView flattens a message for the chat template.
func messageView(m Message, viewer int64) map[string]interface{} {
	return map[string]interface{}{
		"ID":      m.ID,
		"Author":  m.Author,
		"Content": m.Content,
		"Created": datetimeformat(m.CreatedAt),
		"Own":     m.UserID == viewer,
	}
}

func (a *App) render(w http.ResponseWriter, r *http.Request, name string, data map[string]interface{}) {
	tpl, ok := a.views[name]
	if !ok {
		a.log.WithField("template", name).Error("unknown template")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if data == nil {
		data = map[string]interface{}{}
	}
	if id, ok := identityFrom(r.Context()); ok {
		data["username"] = id.Username
	}

	out, err := tpl.ExecuteToString(exec.NewContext(data))
	if err != nil {
		a.log.WithError(err).WithField("template", name).Error("render failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(out))
}

// fail writes err as a plain-text response. Storage failures are logged.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		a.log.WithError(err).WithField("path", r.URL.Path).Error("request failed")
	}
	http.Error(w, userText(err), status)
}
