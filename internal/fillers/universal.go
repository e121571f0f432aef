package fillers

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/auto-applier/internal/browser"
	"github.com/jonathan/auto-applier/internal/types"
)

// Per-step interaction timeouts. A timeout fails the step, not the run.
const (
	fieldTimeout  = 10 * time.Second
	submitTimeout = 20 * time.Second
)

// submitSelectors are tried in order when clicking the final submit control.
var submitSelectors = []string{
	"button[type='submit']",
	"input[type='submit']",
	"#submit_app",
	"button[data-qa='btn-submit']",
	".application-form button.postings-btn",
}

// Universal is the fallback strategy: it discovers form fields from the
// rendered HTML with generic heuristics and fills whatever it can map.
// It handles any page with a form, which makes it the safety net for
// custom career sites and unregistered vendors.
type Universal struct {
	mapper *FieldMapper
	opts   Options
}

// NewUniversal creates the fallback strategy.
func NewUniversal(mapper *FieldMapper, opts Options) *Universal {
	return &Universal{mapper: mapper, opts: opts}
}

// Name implements Filler.
func (u *Universal) Name() string { return "universal" }

// CanHandle reports whether the page contains any form at all.
func (u *Universal) CanHandle(ctx context.Context, page browser.Page) bool {
	html, err := page.Content(ctx)
	if err != nil {
		return false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}
	return doc.Find("form").Length() > 0
}

// Fill implements Filler using generic field discovery.
func (u *Universal) Fill(ctx context.Context, page browser.Page, job *types.Job, app *types.Application) (bool, error) {
	return fillDiscoveredForm(ctx, page, job, app, u.mapper, u.opts, "form")
}

// fillDiscoveredForm walks the fields of the first form matching
// formSelector, answering each through the mapper and typing the
// answers into the live page. Shared by the universal and vendor
// strategies.
func fillDiscoveredForm(ctx context.Context, page browser.Page, job *types.Job, app *types.Application, mapper *FieldMapper, opts Options, formSelector string) (bool, error) {
	html, err := page.Content(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to read page for form discovery: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false, fmt.Errorf("failed to parse page HTML: %w", err)
	}

	form := doc.Find(formSelector).First()
	if form.Length() == 0 {
		return false, nil
	}

	filled := 0
	form.Find("input, textarea, select").Each(func(_ int, sel *goquery.Selection) {
		field := describeField(form, sel)
		if field == nil {
			return
		}

		if field.kind == types.QuestionFile {
			if opts.ResumePath == "" {
				return
			}
			if err := page.SetFiles(ctx, field.selector, opts.ResumePath, fieldTimeout); err != nil {
				log.Printf("[FILL] resume upload failed: %v", err)
				return
			}
			app.ResumeUploaded = true
			app.AddLog("uploaded_resume", field.selector)
			filled++
			return
		}

		q := app.AddQuestion(types.ApplicationQuestion{
			FieldName: field.name,
			Text:      field.label,
			Kind:      field.kind,
			Required:  field.required,
			Options:   field.options,
		})
		mapper.Answer(ctx, q, job)
		if !q.Answered {
			return
		}

		if err := page.Fill(ctx, field.selector, q.Answer, fieldTimeout); err != nil {
			// A single stubborn widget should not sink the run; flag it
			// and keep going.
			log.Printf("[FILL] could not fill %q: %v", field.label, err)
			q.Answered = false
			q.NeedsReview = true
			q.ReviewReason = "field could not be filled automatically"
			return
		}
		app.AddLog("filled_field", field.label)
		filled++
	})

	if filled == 0 {
		return false, nil
	}

	if opts.Submit && len(app.QuestionsNeedingReview()) == 0 {
		if clickFirst(ctx, page, submitSelectors, submitTimeout) {
			app.AddLog("clicked_submit", "")
		} else {
			return false, fmt.Errorf("form filled but no submit control found")
		}
	}
	return true, nil
}

// formField is one fillable control discovered in the page HTML.
type formField struct {
	selector string
	name     string
	label    string
	kind     types.QuestionKind
	required bool
	options  []string
}

// describeField extracts what we need to fill one control, or nil for
// controls that are not fillable (hidden inputs, buttons, unnameable
// nodes).
func describeField(form, sel *goquery.Selection) *formField {
	tag := goquery.NodeName(sel)
	inputType, _ := sel.Attr("type")
	inputType = strings.ToLower(inputType)

	switch tag {
	case "input":
		switch inputType {
		case "hidden", "submit", "button", "image", "reset":
			return nil
		}
	case "select", "textarea":
		// always fillable
	default:
		return nil
	}

	id, _ := sel.Attr("id")
	name, _ := sel.Attr("name")

	var selector string
	switch {
	case id != "":
		selector = "#" + id
	case name != "":
		selector = fmt.Sprintf("%s[name=%q]", tag, name)
	default:
		return nil
	}

	field := &formField{
		selector: selector,
		name:     name,
		kind:     fieldKind(tag, inputType),
		label:    fieldLabel(form, sel, id, name),
	}
	_, field.required = sel.Attr("required")

	if tag == "select" {
		sel.Find("option").Each(func(_ int, opt *goquery.Selection) {
			if text := strings.TrimSpace(opt.Text()); text != "" {
				field.options = append(field.options, text)
			}
		})
	}
	return field
}

func fieldKind(tag, inputType string) types.QuestionKind {
	switch tag {
	case "textarea":
		return types.QuestionTextarea
	case "select":
		return types.QuestionSelect
	}
	switch inputType {
	case "file":
		return types.QuestionFile
	case "radio":
		return types.QuestionRadio
	case "checkbox":
		return types.QuestionCheckbox
	default:
		return types.QuestionText
	}
}

// fieldLabel finds human-readable text for a control: explicit label,
// aria-label, placeholder, then a humanized name attribute.
func fieldLabel(form, sel *goquery.Selection, id, name string) string {
	if id != "" {
		if label := form.Find(fmt.Sprintf("label[for=%q]", id)); label.Length() > 0 {
			if text := strings.TrimSpace(label.First().Text()); text != "" {
				return text
			}
		}
	}
	if aria, ok := sel.Attr("aria-label"); ok && strings.TrimSpace(aria) != "" {
		return strings.TrimSpace(aria)
	}
	if placeholder, ok := sel.Attr("placeholder"); ok && strings.TrimSpace(placeholder) != "" {
		return strings.TrimSpace(placeholder)
	}
	if parent := sel.ParentsFiltered("label").First(); parent.Length() > 0 {
		if text := strings.TrimSpace(parent.Text()); text != "" {
			return text
		}
	}
	return humanizeName(name)
}

// humanizeName turns "first_name" / "firstName" style attributes into
// readable labels the mapper can match on.
func humanizeName(name string) string {
	if name == "" {
		return ""
	}
	s := strings.NewReplacer("_", " ", "-", " ", "[", " ", "]", " ").Replace(name)
	var out strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			out.WriteByte(' ')
		}
		out.WriteRune(r)
	}
	return strings.Join(strings.Fields(strings.ToLower(out.String())), " ")
}

// clickFirst clicks the first selector that works, returning whether
// any click succeeded.
func clickFirst(ctx context.Context, page browser.Page, selectors []string, timeout time.Duration) bool {
	for _, sel := range selectors {
		if err := page.Click(ctx, sel, timeout); err == nil {
			return true
		}
	}
	return false
}
