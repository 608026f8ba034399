package web

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/dibs/internal/domain/role"
	"github.com/geocoder89/dibs/internal/domain/user"
)

//go:embed templates
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var permissions = map[string]role.Permission{
	"read":    role.PermRead,
	"comment": role.PermComment,
	"create":  role.PermCreate,
	"delete":  role.PermDelete,
	"admin":   role.PermAdmin,
}

var functions = template.FuncMap{
	"can": func(u *user.User, name string) bool {
		p, ok := permissions[name]
		return ok && u.Can(p)
	},
	"formatDate": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("02 Jan 2006, 15:04")
	},
	"lines": func(s string) []string {
		return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	},
}

// Templates parses every page. Pages are addressed by their define name,
// for example "lists/show".
func Templates() (*template.Template, error) {
	return template.New("").Funcs(functions).ParseFS(templateFS,
		"templates/*.html",
		"templates/*/*.html",
	)
}

// Static serves the bundled stylesheet.
func Static() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}
