package router

import (
	"fmt"
	"html/template"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"agora/internal/models"
	"agora/internal/utils"

	"github.com/gin-contrib/multitemplate"
)

// Views maps each render name to its file under views/.
var Views = []string{
	"discussion/list.html",
	"discussion/detail.html",
	"discussion/ask.html",
	"search.html",
	"auth/login.html",
	"error.html",
}

// FuncMap holds the helpers available to every template.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"dict": func(values ...any) (map[string]any, error) {
			if len(values)%2 != 0 {
				return nil, fmt.Errorf("invalid dict call")
			}
			dict := make(map[string]any, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict keys must be strings")
				}
				dict[key] = values[i+1]
			}
			return dict, nil
		},
		"timeAgo":       utils.TimeAgo,
		"formatCount":   utils.FormatCount,
		"markdown":      utils.RenderMarkdown,
		"excerpt":       utils.Excerpt,
		"authorName":    AuthorName,
		"avatarInitial": AvatarInitial,
		"upvoted":       func(s models.VoteState) bool { return s == models.Upvoted },
		"downvoted":     func(s models.VoteState) bool { return s == models.Downvoted },
	}
}

// AuthorName falls back to "Anonymous" when the author has no profile.
func AuthorName(p *models.Profile) string {
	if name := p.Name(); name != "" {
		return name
	}
	return "Anonymous"
}

// AvatarInitial is the glyph shown in place of a missing avatar image.
func AvatarInitial(p *models.Profile) string {
	name := p.Name()
	if name == "" {
		return "?"
	}
	r, _ := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r))
}

// LoadTemplates builds one template set per view: layouts, includes and components,
// then the view itself.
func LoadTemplates(templatesDir string) (r multitemplate.Renderer, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("parse templates: %v", rec)
		}
	}()

	var shared []string
	for _, dir := range []string{"layouts", "includes", "components"} {
		files, err := filepath.Glob(filepath.Join(templatesDir, dir, "*.html"))
		if err != nil {
			return nil, err
		}
		shared = append(shared, files...)
	}
	if len(shared) == 0 || !strings.HasSuffix(shared[0], "base.html") {
		return nil, fmt.Errorf("no base layout in %s", templatesDir)
	}

	renderer := multitemplate.NewRenderer()
	funcs := FuncMap()
	for _, view := range Views {
		files := append(append([]string{}, shared...), filepath.Join(templatesDir, "views", view))
		renderer.AddFromFilesFuncs(view, funcs, files...)
	}
	return renderer, nil
}
