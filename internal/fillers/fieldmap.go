package fillers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/jonathan/auto-applier/internal/applicant"
	"github.com/jonathan/auto-applier/internal/llm"
	"github.com/jonathan/auto-applier/internal/types"
)

// reviewTopics always gate for human review regardless of how
// confidently an answer could be produced.
var reviewTopics = []string{"salary", "compensation", "visa", "sponsorship", "clearance"}

// answerSchema validates the JSON shape the LLM must return for
// free-text questions.
const answerSchema = `{
	"type": "object",
	"required": ["answer", "confident"],
	"properties": {
		"answer": {"type": "string", "minLength": 1},
		"confident": {"type": "boolean"}
	}
}`

type llmAnswer struct {
	Answer    string `json:"answer"`
	Confident bool   `json:"confident"`
}

// FieldMapper resolves form questions to answers: deterministic profile
// lookups first, the applicant's canned answers second, LLM generation
// last. It never invents answers for gated topics.
type FieldMapper struct {
	profile *applicant.Applicant
	client  llm.Client
	schema  *gojsonschema.Schema
}

// NewFieldMapper builds a mapper for the profile. client may be nil.
func NewFieldMapper(profile *applicant.Applicant, client llm.Client) *FieldMapper {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(answerSchema))
	if err != nil {
		// The schema is a compile-time constant; failing to parse it is
		// a programming error.
		panic(fmt.Sprintf("invalid answer schema: %v", err))
	}
	return &FieldMapper{profile: profile, client: client, schema: schema}
}

// Lookup resolves a field label to a profile value deterministically.
func (m *FieldMapper) Lookup(label string) (string, bool) {
	l := strings.ToLower(strings.TrimSpace(label))
	p := m.profile

	switch {
	case containsAny(l, "first name", "given name"):
		return p.FirstName, true
	case containsAny(l, "last name", "family name", "surname"):
		return p.LastName, true
	case containsAny(l, "full name", "your name", "legal name"):
		return p.FullName(), true
	case containsAny(l, "email", "e-mail"):
		return p.Email, true
	case containsAny(l, "phone", "mobile", "telephone"):
		return p.Phone, true
	case containsAny(l, "linkedin"):
		return p.LinkedIn, p.LinkedIn != ""
	case containsAny(l, "github"):
		return p.GitHub, p.GitHub != ""
	case containsAny(l, "portfolio", "website", "personal site"):
		return p.Portfolio, p.Portfolio != ""
	case containsAny(l, "city"):
		return p.Address.City, p.Address.City != ""
	case containsAny(l, "state", "province"):
		return p.Address.State, p.Address.State != ""
	case containsAny(l, "zip", "postal"):
		return p.Address.Zip, p.Address.Zip != ""
	case containsAny(l, "country"):
		return p.Address.Country, p.Address.Country != ""
	case containsAny(l, "location", "address"):
		return p.Address.CityState(), p.Address.CityState() != ""
	case containsAny(l, "current company", "current employer"):
		return p.CurrentCompany, p.CurrentCompany != ""
	case containsAny(l, "current title", "job title"):
		return p.CurrentTitle, p.CurrentTitle != ""
	case containsAny(l, "years of experience", "years experience"):
		if p.YearsOfExperience > 0 {
			return fmt.Sprintf("%d", p.YearsOfExperience), true
		}
		return "", false
	case containsAny(l, "start date", "available", "notice period"):
		return p.StartAvailability, p.StartAvailability != ""
	case containsAny(l, "gender"):
		return p.EEO.Gender, p.EEO.Gender != ""
	case containsAny(l, "ethnicity", "race"):
		return p.EEO.Ethnicity, p.EEO.Ethnicity != ""
	case containsAny(l, "veteran"):
		return p.EEO.VeteranStatus, p.EEO.VeteranStatus != ""
	case containsAny(l, "disability"):
		return p.EEO.DisabilityStatus, p.EEO.DisabilityStatus != ""
	}

	// Canned answers matched by substring, longest fragment first
	// would be overkill; first hit wins.
	for fragment, answer := range p.CustomAnswers {
		if strings.Contains(l, strings.ToLower(fragment)) {
			return answer, true
		}
	}
	return "", false
}

// Answer resolves one question in place: it sets Answer, Answered,
// AnsweredBy, and the review flag. Gated topics and unanswerable
// questions are flagged rather than guessed.
func (m *FieldMapper) Answer(ctx context.Context, q *types.ApplicationQuestion, job *types.Job) {
	if topic := gatedTopic(q.Text); topic != "" {
		q.NeedsReview = true
		q.ReviewReason = fmt.Sprintf("question touches %q, always reviewed by a human", topic)
		return
	}

	if value, ok := m.Lookup(q.Text); ok && value != "" {
		q.Answer = value
		q.Answered = true
		q.AnsweredBy = types.AnsweredAuto
		return
	}

	// Work authorization yes/no questions are deterministic too.
	if answer, ok := m.workAuthAnswer(q.Text); ok {
		q.Answer = answer
		q.Answered = true
		q.AnsweredBy = types.AnsweredAuto
		return
	}

	if m.client == nil {
		if q.Required {
			q.NeedsReview = true
			q.ReviewReason = "no profile mapping and no LLM available"
		}
		return
	}

	answer, err := m.generate(ctx, q, job)
	switch {
	case errors.Is(err, llm.ErrRateLimited):
		q.NeedsReview = true
		q.ReviewReason = "LLM rate limited"
	case err != nil:
		log.Printf("[FILL] LLM answer failed for %q: %v", q.Text, err)
		q.NeedsReview = true
		q.ReviewReason = "LLM answer failed"
	case answer == "":
		q.NeedsReview = true
		q.ReviewReason = "LLM not confident in generated answer"
	default:
		q.Answer = answer
		q.Answered = true
		q.AnsweredBy = types.AnsweredLLM
	}
}

func (m *FieldMapper) workAuthAnswer(text string) (string, bool) {
	l := strings.ToLower(text)
	if containsAny(l, "authorized to work", "legally authorized", "work authorization") {
		if m.profile.WorkAuth.AuthorizedUS {
			return "Yes", true
		}
		return "No", true
	}
	if containsAny(l, "relocat") {
		if m.profile.WillingToRelocate {
			return "Yes", true
		}
		return "No", true
	}
	return "", false
}

func (m *FieldMapper) generate(ctx context.Context, q *types.ApplicationQuestion, job *types.Job) (string, error) {
	var options string
	if len(q.Options) > 0 {
		options = fmt.Sprintf("\nChoose exactly one of these options: %s", strings.Join(q.Options, "; "))
	}

	prompt := fmt.Sprintf(
		`You are helping a candidate fill a job application form.
Candidate background: %s
Job: %s at %s

Answer the following application question on the candidate's behalf.
Keep it under 120 words, first person, no preamble.%s

Question: %s

Respond with JSON only: {"answer": "<your answer>", "confident": <true|false>}.
Set "confident" to false if the question needs information you do not have.`,
		m.profile.Summary, job.Title, job.Company, options, q.Text,
	)

	raw, err := m.client.Generate(ctx, prompt, 512, 0.4)
	if err != nil {
		return "", err
	}

	cleaned := llm.CleanJSONBlock(raw)
	result, err := m.schema.Validate(gojsonschema.NewStringLoader(cleaned))
	if err != nil || !result.Valid() {
		return "", fmt.Errorf("LLM answer failed schema validation")
	}

	var parsed llmAnswer
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return "", fmt.Errorf("failed to decode LLM answer: %w", err)
	}
	if !parsed.Confident {
		return "", nil
	}
	return strings.TrimSpace(parsed.Answer), nil
}

func gatedTopic(text string) string {
	l := strings.ToLower(text)
	for _, topic := range reviewTopics {
		if strings.Contains(l, topic) {
			return topic
		}
	}
	return ""
}

func containsAny(s string, fragments ...string) bool {
	for _, f := range fragments {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}
