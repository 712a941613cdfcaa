package pipeline

import (
	"bytes"
	"io/fs"
	"path"
	"sort"
	"strings"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
)

// Funcs available to every prompt template
var templateFuncs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
	"orDefault": func(def, s string) string {
		if strings.TrimSpace(s) == "" {
			return def
		}
		return s
	},
	"oneLine": func(s string) string {
		return strings.Join(strings.Fields(s), " ")
	},
	// cell escapes text for a single Markdown table cell
	"cell": func(s string) string {
		s = strings.Join(strings.Fields(s), " ")
		return strings.ReplaceAll(s, "|", `\|`)
	},
}

// ParseTemplate parses the prompt template name from fsys together with
// any shared templates it includes. Missing map keys fail binding instead
// of rendering "<no value>".
func ParseTemplate(fsys fs.FS, name string, shared ...string) (*template.Template, error) {
	tmpl, err := template.New(path.Base(name)).
		Option("missingkey=error").
		Funcs(templateFuncs).
		ParseFS(fsys, append([]string{name}, shared...)...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse prompt template", goerr.V("template", name))
	}
	return tmpl, nil
}

// Bind renders tmpl with data. It is a pure projection: the same data always
// yields the same text, and data is never modified.
func Bind(tmpl *template.Template, data any) (string, error) {
	if tmpl == nil {
		return "", goerr.Wrap(ErrBinding, "template is nil")
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", goerr.Wrap(ErrBinding, "failed to execute prompt template",
			goerr.V("template", tmpl.Name()),
			goerr.V("error", err.Error()),
		)
	}
	return buf.String(), nil
}

// RequireFields returns ErrBinding naming the first empty entry of fields.
// Flows use it to guard list entries before they reach a repeated fragment.
func RequireFields(path string, fields map[string]string) error {
	for _, name := range sortedKeys(fields) {
		if strings.TrimSpace(fields[name]) == "" {
			return goerr.Wrap(ErrBinding, "required field is empty",
				goerr.V(ValuePath, path+"/"+name),
			)
		}
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
