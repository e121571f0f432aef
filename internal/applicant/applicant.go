// Package applicant loads and validates the applicant profile used to
// answer application form questions.
package applicant

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Address is the applicant's mailing address.
type Address struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Zip     string `json:"zip,omitempty"`
	Country string `json:"country,omitempty"`
}

// CityState returns "City, State" for location fields.
func (a Address) CityState() string {
	parts := make([]string, 0, 2)
	if a.City != "" {
		parts = append(parts, a.City)
	}
	if a.State != "" {
		parts = append(parts, a.State)
	}
	return strings.Join(parts, ", ")
}

// WorkAuthorization captures visa and sponsorship answers.
type WorkAuthorization struct {
	AuthorizedUS        bool   `json:"authorized_us"`
	RequiresSponsorship bool   `json:"requires_sponsorship"`
	VisaStatus          string `json:"visa_status,omitempty"`
	Clearance           string `json:"clearance,omitempty"`
}

// EEOAnswers are the voluntary self-identification answers. Defaults
// decline to answer.
type EEOAnswers struct {
	Gender           string `json:"gender,omitempty"`
	Ethnicity        string `json:"ethnicity,omitempty"`
	VeteranStatus    string `json:"veteran_status,omitempty"`
	DisabilityStatus string `json:"disability_status,omitempty"`
}

// Applicant is the profile consumed by the field mapper when filling
// application forms.
type Applicant struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required"`

	Address Address `json:"address"`

	LinkedIn  string `json:"linkedin,omitempty" validate:"omitempty,url"`
	GitHub    string `json:"github,omitempty" validate:"omitempty,url"`
	Portfolio string `json:"portfolio,omitempty" validate:"omitempty,url"`

	ResumePath string `json:"resume_path,omitempty"`

	WorkAuth WorkAuthorization `json:"work_authorization"`
	EEO      EEOAnswers        `json:"eeo"`

	YearsOfExperience int    `json:"years_of_experience,omitempty"`
	CurrentTitle      string `json:"current_title,omitempty"`
	CurrentCompany    string `json:"current_company,omitempty"`
	SalaryExpectation string `json:"salary_expectation,omitempty"`
	StartAvailability string `json:"start_availability,omitempty"`
	WillingToRelocate bool   `json:"willing_to_relocate,omitempty"`

	// CustomAnswers maps lowercase question fragments to canned
	// answers, checked before any generated answer.
	CustomAnswers map[string]string `json:"custom_answers,omitempty"`

	// Summary is a short background blurb given to the LLM as context
	// for free-text questions.
	Summary string `json:"summary,omitempty"`
}

// FullName returns the applicant's display name.
func (a *Applicant) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// Load reads and validates an applicant profile from a JSON file.
func Load(path string) (*Applicant, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile %s: %w", path, err)
	}

	var app Applicant
	if err := json.Unmarshal(data, &app); err != nil {
		return nil, fmt.Errorf("failed to parse profile JSON: %w", err)
	}

	if err := validator.New().Struct(&app); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}

	if app.Address.Country == "" {
		app.Address.Country = "United States"
	}
	return &app, nil
}
