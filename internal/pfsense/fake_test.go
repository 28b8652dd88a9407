package pfsense

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

const (
	fakeToken    = "sid:0123456789abcdef,1760400000"
	fakeUsername = "admin"
	fakePassword = "pfsense"
	fakeSession  = "PHPSESSID"
	fakeFilename = "config-fw.localdomain-20261014120000.xml"
)

// fakeFirewall mimics the parts of the pfSense GUI the client talks to.
type fakeFirewall struct {
	mu              sync.Mutex
	requests        map[string]int
	lastForm        map[string]string
	lastFileName    string
	lastFileContent string
	restoreStatus   int
}

func newFakeFirewall(t *testing.T) (*fakeFirewall, *httptest.Server) {
	t.Helper()
	fw := &fakeFirewall{requests: map[string]int{}, restoreStatus: http.StatusOK}
	server := httptest.NewServer(fw)
	t.Cleanup(server.Close)
	return fw, server
}

func (f *fakeFirewall) count(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[method+" "+path]
}

func (f *fakeFirewall) form() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastForm
}

func (f *fakeFirewall) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests[r.Method+" "+r.URL.Path]++
	f.mu.Unlock()

	loggedIn := false
	if cookie, err := r.Cookie(fakeSession); err == nil && cookie.Value == "valid" {
		loggedIn = true
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == LoginPath:
		if loggedIn {
			writePage(w, "<h1>Dashboard</h1>")
			return
		}
		writeLoginPage(w)

	case r.Method == http.MethodPost && r.URL.Path == LoginPath:
		values := f.record(r)
		if values[csrfFieldName] != fakeToken ||
			values["usernamefld"] != fakeUsername ||
			values["passwordfld"] != fakePassword {
			writeLoginPage(w)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: fakeSession, Value: "valid", Path: "/"})
		http.Redirect(w, r, LoginPath, http.StatusFound)

	case r.URL.Path == BackupPath && !loggedIn:
		writeLoginPage(w)

	case r.Method == http.MethodGet && r.URL.Path == BackupPath:
		writePage(w, "<h1>Backup &amp; Restore</h1>")

	case r.Method == http.MethodPost && r.URL.Path == BackupPath:
		values := f.record(r)
		if values[csrfFieldName] != fakeToken {
			http.Error(w, "csrf check failed", http.StatusForbidden)
			return
		}
		if _, ok := values["download"]; ok {
			w.Header().Set("Content-Disposition", "attachment; filename="+fakeFilename)
			w.Header().Set("Content-Type", "application/octet-stream")
			_, _ = fmt.Fprintf(w, "<encrypted password=%q/>", values["encrypt_password"])
			return
		}
		w.WriteHeader(f.restoreStatus)
		writePage(w, "The configuration area has been restored.")

	default:
		http.NotFound(w, r)
	}
}

func (f *fakeFirewall) record(r *http.Request) map[string]string {
	values := map[string]string{}
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		return values
	}
	for name, v := range r.MultipartForm.Value {
		values[name] = v[0]
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastForm = values
	f.lastFileName = ""
	f.lastFileContent = ""
	for name, headers := range r.MultipartForm.File {
		values[name] = ""
		f.lastFileName = headers[0].Filename
		file, err := headers[0].Open()
		if err != nil {
			continue
		}
		content, _ := io.ReadAll(file)
		_ = file.Close()
		f.lastFileContent = string(content)
	}
	return values
}

func writeLoginPage(w http.ResponseWriter) {
	writePage(w, `<input type="text" name="usernamefld" id="usernamefld"/>`+
		`<input type="password" name="passwordfld" id="passwordfld"/>`)
}

func writePage(w http.ResponseWriter, content string) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
	_, _ = fmt.Fprintf(w,
		"<html><body><form><input type='hidden' name='__csrf_magic' value=\"%s\" />%s</form></body></html>",
		fakeToken, content)
}
