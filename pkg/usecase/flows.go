package usecase

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/safetydocs/pkg/domain/interfaces"
	"github.com/secmon-lab/safetydocs/pkg/domain/model"
	"github.com/secmon-lab/safetydocs/pkg/domain/types"
	"github.com/secmon-lab/safetydocs/pkg/pipeline"
)

//go:embed prompt/*.md
var promptFS embed.FS

const sharedPrompt = "prompt/common.md"

// promptData is what every document template binds. Request holds the typed
// request of the flow; Hazards is only set for HIRA.
type promptData struct {
	DocumentType types.DocumentType
	Header       model.DocumentHeader
	GeneratedAt  string
	Language     string
	Organization string
	References   []*model.Reference
	Request      any
	Hazards      []model.RatedHazard
	Article      *model.Article
}

// documentOutput carries the header alongside the result so that a saved
// document can be titled without decoding the request again
type documentOutput struct {
	Result *model.GenerationResult
	Header model.DocumentHeader
}

// documentRunner is the part of pipeline.Flow that does not depend on the
// request type, so that every document flow fits one map
type documentRunner interface {
	Run(ctx context.Context, p *pipeline.Pipeline, env pipeline.Env, raw []byte) (*documentOutput, error)
	Render(ctx context.Context, p *pipeline.Pipeline, env pipeline.Env, raw []byte) (string, error)
	Check(p *pipeline.Pipeline, raw []byte) error
}

// flowDeps are the collaborators Prepare steps may call
type flowDeps struct {
	references interfaces.ReferenceStore
	articles   interfaces.ArticleFetcher
}

type flowSet struct {
	documents map[types.DocumentType]documentRunner
	hazards   *pipeline.Flow[model.HazardSuggestionRequest, *promptData, *model.HazardSuggestionResult]
}

// workspaceKey carries the workspace of a run to Prepare steps
type workspaceKey struct{}

func withWorkspace(ctx context.Context, entry *model.WorkspaceEntry) context.Context {
	return context.WithValue(ctx, workspaceKey{}, entry)
}

func workspaceFrom(ctx context.Context) *model.WorkspaceEntry {
	entry, _ := ctx.Value(workspaceKey{}).(*model.WorkspaceEntry)
	return entry
}

func newFlowSet(registry *pipeline.SchemaRegistry, deps *flowDeps) (*flowSet, error) {
	set := &flowSet{documents: make(map[types.DocumentType]documentRunner)}

	type documentFlowDef struct {
		docType types.DocumentType
		field   string
		build   func(base documentBase) documentRunner
	}

	defs := []documentFlowDef{
		{types.DocumentTypeHIRA, "hiraDocument", func(b documentBase) documentRunner {
			return newDocumentFlow(b, deps, func(in model.HIRARequest) model.DocumentHeader { return in.Header() },
				func(data *promptData, in model.HIRARequest) error {
					rated, err := model.RateHazards(in.Hazards)
					if err != nil {
						return goerr.Wrap(pipeline.ErrSchemaViolation, "invalid hazard rating",
							goerr.V(pipeline.ValueConstraint, err.Error()))
					}
					data.Hazards = rated
					return nil
				},
				guardHazards, verifyHazardTriples)
		}},
		{types.DocumentTypeSHEPlan, "shePlanDocument", func(b documentBase) documentRunner {
			return newDocumentFlow(b, deps, func(in model.SHEPlanRequest) model.DocumentHeader { return in.Header() }, nil, nil, nil)
		}},
		{types.DocumentTypeMethodStatement, "methodStatement", func(b documentBase) documentRunner {
			return newDocumentFlow(b, deps, func(in model.MethodStatementRequest) model.DocumentHeader { return in.Header() }, nil, nil, nil)
		}},
		{types.DocumentTypeSafeWorkProcedure, "safeWorkProcedure", func(b documentBase) documentRunner {
			return newDocumentFlow(b, deps, func(in model.SafeWorkProcedureRequest) model.DocumentHeader { return in.Header() }, nil, nil, nil)
		}},
		{types.DocumentTypeRiskAssessment, "riskAssessmentDocument", func(b documentBase) documentRunner {
			return newDocumentFlow(b, deps, func(in model.RiskAssessmentRequest) model.DocumentHeader { return in.Header() }, nil, nil, nil)
		}},
		{types.DocumentTypeArticleScrape, "articleSummary", func(b documentBase) documentRunner {
			return newArticleFlow(b, deps)
		}},
	}

	for _, def := range defs {
		base, err := newDocumentBase(registry, def.docType, def.field)
		if err != nil {
			return nil, err
		}
		set.documents[def.docType] = def.build(base)
	}

	hazards, err := newHazardSuggestionFlow(registry, deps)
	if err != nil {
		return nil, err
	}
	set.hazards = hazards

	return set, nil
}

// documentBase is the schema and template wiring shared by document flows
type documentBase struct {
	docType  types.DocumentType
	output   pipeline.OutputSpec
	template *template.Template
}

func newDocumentBase(registry *pipeline.SchemaRegistry, docType types.DocumentType, field string) (documentBase, error) {
	output, err := registry.OutputSpec(docType.String()+".output", field)
	if err != nil {
		return documentBase{}, goerr.Wrap(err, "failed to build output spec", goerr.V("document_type", docType))
	}
	tmpl, err := parsePrompt(docType.String())
	if err != nil {
		return documentBase{}, err
	}
	return documentBase{docType: docType, output: output, template: tmpl}, nil
}

func parsePrompt(name string) (*template.Template, error) {
	tmpl, err := pipeline.ParseTemplate(promptFS, "prompt/"+name+".md", sharedPrompt)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load prompt", goerr.V("prompt", name))
	}
	return tmpl, nil
}

func newDocumentFlow[In any](
	base documentBase,
	deps *flowDeps,
	header func(In) model.DocumentHeader,
	compute func(data *promptData, in In) error,
	guard func(data *promptData) error,
	verify func(data *promptData, out *documentOutput) error,
) *pipeline.Flow[In, *promptData, *documentOutput] {
	return &pipeline.Flow[In, *promptData, *documentOutput]{
		Name:        base.docType.String(),
		InputSchema: base.docType.String() + ".input",
		Output:      base.output,
		Template:    base.template,
		Prepare: func(ctx context.Context, env pipeline.Env, in In) (*promptData, error) {
			h := header(in)
			refs, err := deps.resolveReferences(ctx, h.ReferenceIDs)
			if err != nil {
				return nil, err
			}

			data := &promptData{
				DocumentType: base.docType,
				Header:       h,
				GeneratedAt:  env.Date(),
				Language:     env.Language,
				Organization: h.OrganizationName,
				References:   refs,
				Request:      in,
			}
			if compute != nil {
				if err := compute(data, in); err != nil {
					return nil, err
				}
			}
			return data, nil
		},
		Guard: guard,
		Result: func(data *promptData, out pipeline.Output) (*documentOutput, error) {
			text, err := out.Text()
			if err != nil {
				return nil, err
			}
			return &documentOutput{
				Result: &model.GenerationResult{
					DocumentType: base.docType,
					Field:        base.output.Field,
					Document:     text,
				},
				Header: data.Header,
			}, nil
		},
		Verify: verify,
	}
}

func newArticleFlow(base documentBase, deps *flowDeps) *pipeline.Flow[model.ArticleScrapeRequest, *promptData, *documentOutput] {
	flow := newDocumentFlow(base, deps,
		func(in model.ArticleScrapeRequest) model.DocumentHeader { return model.DocumentHeader{} },
		nil, nil, nil,
	)

	flow.Prepare = func(ctx context.Context, env pipeline.Env, in model.ArticleScrapeRequest) (*promptData, error) {
		if deps.articles == nil {
			return nil, goerr.Wrap(ErrFeatureNotConfigured, "article fetching is not configured")
		}
		article, err := deps.articles.Fetch(ctx, in.URL)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to fetch article", goerr.V("url", in.URL))
		}

		entry := workspaceFrom(ctx)
		var org string
		if entry != nil {
			org = entry.Organization
		}

		title := article.Title
		if title == "" {
			title = in.URL
		}

		return &promptData{
			DocumentType: base.docType,
			Header: model.DocumentHeader{
				OrganizationName: org,
				Title:            title,
				ReviewDate:       env.Date(),
			},
			GeneratedAt:  env.Date(),
			Language:     env.Language,
			Organization: org,
			Request:      in,
			Article:      article,
		}, nil
	}

	return flow
}

func newHazardSuggestionFlow(registry *pipeline.SchemaRegistry, deps *flowDeps) (*pipeline.Flow[model.HazardSuggestionRequest, *promptData, *model.HazardSuggestionResult], error) {
	output, err := registry.OutputSpec("hazard_suggestion.output", "")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build output spec", goerr.V("document_type", types.DocumentTypeHazardSuggestion))
	}
	tmpl, err := parsePrompt(types.DocumentTypeHazardSuggestion.String())
	if err != nil {
		return nil, err
	}

	return &pipeline.Flow[model.HazardSuggestionRequest, *promptData, *model.HazardSuggestionResult]{
		Name:        types.DocumentTypeHazardSuggestion.String(),
		InputSchema: "hazard_suggestion.input",
		Output:      output,
		Template:    tmpl,
		Prepare: func(ctx context.Context, env pipeline.Env, in model.HazardSuggestionRequest) (*promptData, error) {
			var org string
			if entry := workspaceFrom(ctx); entry != nil {
				org = entry.Organization
			}
			return &promptData{
				DocumentType: types.DocumentTypeHazardSuggestion,
				Header:       model.DocumentHeader{Title: in.Title},
				GeneratedAt:  env.Date(),
				Language:     env.Language,
				Organization: org,
				Request:      in,
			}, nil
		},
		Result: func(data *promptData, out pipeline.Output) (*model.HazardSuggestionResult, error) {
			var result model.HazardSuggestionResult
			if err := out.Decode(&result); err != nil {
				return nil, err
			}
			if len(result.Hazards) > model.MaxHazardSuggestions {
				return nil, goerr.Wrap(pipeline.ErrOutputSchemaViolation, "too many hazard suggestions",
					goerr.V("count", len(result.Hazards)))
			}
			return &result, nil
		},
	}, nil
}

func (d *flowDeps) resolveReferences(ctx context.Context, ids []string) ([]*model.Reference, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if d.references == nil {
		return nil, goerr.Wrap(pipeline.ErrSchemaViolation, "reference material is not configured",
			goerr.V(pipeline.ValuePath, "/referenceIds"),
			goerr.V(pipeline.ValueConstraint, "reference store unavailable"),
		)
	}

	var wsID string
	if entry := workspaceFrom(ctx); entry != nil {
		wsID = entry.Workspace.ID
	}

	refs := make([]*model.Reference, 0, len(ids))
	for i, id := range ids {
		ref, err := d.references.Get(ctx, wsID, model.ReferenceID(id))
		if err != nil {
			if isNotFound(err) {
				return nil, goerr.Wrap(pipeline.ErrSchemaViolation, "reference not found",
					goerr.V(pipeline.ValuePath, fmt.Sprintf("/referenceIds/%d", i)),
					goerr.V(pipeline.ValueConstraint, "unknown reference "+id),
				)
			}
			return nil, goerr.Wrap(err, "failed to load reference", goerr.V("reference_id", id))
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func guardHazards(data *promptData) error {
	for i, h := range data.Hazards {
		if err := pipeline.RequireFields(fmt.Sprintf("/hazards/%d", i), map[string]string{
			"hazard":          h.Hazard,
			"personsAffected": h.PersonsAffected,
			"controlMeasures": h.ControlMeasures,
		}); err != nil {
			return err
		}
	}
	return nil
}

// verifyHazardTriples requires each hazard's computed initial and residual
// L-S-R triples on one row, initial first, with rows in hazard order
func verifyHazardTriples(data *promptData, out *documentOutput) error {
	lines := strings.Split(out.Result.Document, "\n")
	next := 0
	for i, h := range data.Hazards {
		initial, residual := h.Initial.Triple(), h.Residual.Triple()
		field, expected := "initial", initial

		row := -1
		for j := next; j < len(lines); j++ {
			pos := strings.Index(lines[j], initial)
			if pos < 0 {
				continue
			}
			field, expected = "residual", residual
			if strings.Contains(lines[j][pos+len(initial):], residual) {
				row = j
				break
			}
		}
		if row < 0 {
			return goerr.Wrap(pipeline.ErrRiskMismatch, "generated document does not carry the computed rating",
				goerr.V(pipeline.ValuePath, fmt.Sprintf("/hazards/%d/%s", i, field)),
				goerr.V(pipeline.ValueConstraint, "expected "+expected),
			)
		}
		next = row + 1
	}
	return nil
}
