// Package views renders the server-side HTML pages from embedded templates.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/patric-chuzhbe/tinyapp/internal/models"
	"github.com/patric-chuzhbe/tinyapp/internal/user"
)

// Page names.
const (
	URLsIndex = "urls_index"
	URLsNew   = "urls_new"
	URLsShow  = "urls_show"
	Register  = "register"
	Login     = "login"
)

const layoutFile = "templates/layout.html"

//go:embed templates/*.html
var templatesFS embed.FS

// Page is the data every template receives. User is nil for anonymous visitors.
type Page struct {
	User *user.User
	URLs []models.UserURL
	URL  models.UserURL
}

// Renderer holds one parsed template set per page, each combined with the shared layout.
type Renderer struct {
	pages map[string]*template.Template
}

// New parses all pages.
func New() (*Renderer, error) {
	renderer := &Renderer{
		pages: map[string]*template.Template{},
	}

	for _, name := range []string{URLsIndex, URLsNew, URLsShow, Register, Login} {
		page, err := template.ParseFS(templatesFS, layoutFile, "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("in internal/views/views.go/New(): error while `template.ParseFS()` calling for %q: %w", name, err)
		}
		renderer.pages[name] = page
	}

	return renderer, nil
}

// Render executes the named page and writes it with the given status. Nothing is written
// if execution fails, so the caller can still answer with an error status.
func (r *Renderer) Render(response http.ResponseWriter, status int, name string, data Page) error {
	page, found := r.pages[name]
	if !found {
		return fmt.Errorf("in internal/views/views.go/Render(): unknown page %q", name)
	}

	var buf bytes.Buffer
	if err := page.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("in internal/views/views.go/Render(): error while `page.ExecuteTemplate()` calling: %w", err)
	}

	response.Header().Set("Content-Type", "text/html; charset=utf-8")
	response.WriteHeader(status)
	_, err := buf.WriteTo(response)

	return err
}
