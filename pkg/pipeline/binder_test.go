package pipeline_test

import (
	"testing"
	"testing/fstest"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/safetydocs/pkg/pipeline"
)

func TestBind(t *testing.T) {
	fsys := fstest.MapFS{
		"row.md": {Data: []byte(`{{range $i, $r := .Rows}}{{inc $i}}. {{cell $r.Name}} ({{orDefault "n/a" $r.Note}})
{{end}}`)},
		"strict.md": {Data: []byte(`Hello {{.name}} from {{.org}}`)},
	}

	type row struct {
		Name string
		Note string
	}
	data := struct{ Rows []row }{
		Rows: []row{
			{Name: "Scaffold | tower", Note: ""},
			{Name: "Excavation\n  works", Note: "shored"},
		},
	}

	t.Run("renders rows in order and escapes table cells", func(t *testing.T) {
		tmpl, err := pipeline.ParseTemplate(fsys, "row.md")
		gt.NoError(t, err).Required()

		text, err := pipeline.Bind(tmpl, data)
		gt.NoError(t, err).Required()
		gt.Value(t, text).Equal("1. Scaffold \\| tower (n/a)\n2. Excavation works (shored)\n")
	})

	t.Run("binding twice is byte-identical", func(t *testing.T) {
		tmpl, err := pipeline.ParseTemplate(fsys, "row.md")
		gt.NoError(t, err).Required()

		first, err := pipeline.Bind(tmpl, data)
		gt.NoError(t, err).Required()
		second, err := pipeline.Bind(tmpl, data)
		gt.NoError(t, err).Required()
		gt.Value(t, second).Equal(first)
	})

	t.Run("missing key is a binding error", func(t *testing.T) {
		tmpl, err := pipeline.ParseTemplate(fsys, "strict.md")
		gt.NoError(t, err).Required()

		_, err = pipeline.Bind(tmpl, map[string]string{"name": "Sam"})
		gt.Error(t, err).Is(pipeline.ErrBinding)
		gt.Value(t, pipeline.Classify(err)).Equal(pipeline.KindBinding)
	})

	t.Run("nil template", func(t *testing.T) {
		_, err := pipeline.Bind(nil, data)
		gt.Error(t, err).Is(pipeline.ErrBinding)
	})

	t.Run("unknown template file", func(t *testing.T) {
		_, err := pipeline.ParseTemplate(fsys, "missing.md")
		gt.Value(t, err).NotNil()
	})
}

func TestRequireFields(t *testing.T) {
	gt.NoError(t, pipeline.RequireFields("/hazards/0", map[string]string{
		"hazard":          "Noise",
		"personsAffected": "Operators",
	}))

	err := pipeline.RequireFields("/hazards/2", map[string]string{
		"hazard":          "Noise",
		"personsAffected": " ",
		"controlMeasures": "",
	})
	gt.Error(t, err).Is(pipeline.ErrBinding)
	gt.Value(t, pipeline.DetailOf(err).Path).Equal("/hazards/2/controlMeasures")
}
