package sites

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/apperr"
)

// Template is the starting layout a site is generated from.
type Template string

const (
	TemplateEcommerce Template = "ecommerce"
	TemplatePortfolio Template = "portfolio"
	TemplateService   Template = "service"
)

func (t Template) Valid() bool {
	switch t {
	case TemplateEcommerce, TemplatePortfolio, TemplateService:
		return true
	}
	return false
}

// Step is a page of the creation wizard.
type Step int

const (
	StepBasics Step = iota + 1
	StepContact
	StepAppearance
)

// Steps lists the wizard pages in order.
var Steps = []Step{StepBasics, StepContact, StepAppearance}

// Wizard collects everything the creation wizard asks for.
type Wizard struct {
	Name         string   `json:"name"`
	Template     Template `json:"template"`
	Description  string   `json:"description,omitempty"`
	ContactEmail string   `json:"contact_email,omitempty"`
	Phone        string   `json:"phone,omitempty"`
	PrimaryColor string   `json:"primary_color"`
	Currency     string   `json:"currency,omitempty"`
	Sections     []string `json:"sections,omitempty"`
}

var (
	colorPattern    = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
	phonePattern    = regexp.MustCompile(`^\+?[0-9 ]{7,20}$`)
	currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

	ErrUnknownStep = apperr.Validation("invalid_step", "unknown wizard step")
)

func invalid(field, msg string) error {
	return apperr.Validation("invalid_"+field, msg)
}

// Normalize trims free-text fields and canonicalizes codes.
func (w Wizard) Normalize() Wizard {
	w.Name = strings.TrimSpace(w.Name)
	w.Template = Template(strings.ToLower(strings.TrimSpace(string(w.Template))))
	w.Description = strings.TrimSpace(w.Description)
	w.ContactEmail = strings.TrimSpace(w.ContactEmail)
	w.Phone = strings.TrimSpace(w.Phone)
	w.PrimaryColor = strings.ToLower(strings.TrimSpace(w.PrimaryColor))
	w.Currency = strings.ToUpper(strings.TrimSpace(w.Currency))
	sections := w.Sections[:0:0]
	for _, s := range w.Sections {
		if s = strings.TrimSpace(s); s != "" {
			sections = append(sections, s)
		}
	}
	w.Sections = sections
	return w
}

// ValidateStep checks only the fields owned by step. Template-specific rules
// apply when the template is already chosen.
func (w Wizard) ValidateStep(step Step) error {
	w = w.Normalize()
	switch step {
	case StepBasics:
		if n := utf8.RuneCountInString(w.Name); n < 2 || n > 60 {
			return invalid("name", "name must be between 2 and 60 characters")
		}
		if !w.Template.Valid() {
			return invalid("template", "template must be ecommerce, portfolio or service")
		}
		if utf8.RuneCountInString(w.Description) > 300 {
			return invalid("description", "description must be at most 300 characters")
		}
	case StepContact:
		if w.ContactEmail == "" && w.Phone == "" {
			return invalid("contact", "a contact email or phone number is required")
		}
		if w.ContactEmail != "" {
			if addr, err := mail.ParseAddress(w.ContactEmail); err != nil || addr.Address != w.ContactEmail {
				return invalid("contact_email", "contact_email is not a valid address")
			}
		}
		if w.Phone != "" && !phonePattern.MatchString(w.Phone) {
			return invalid("phone", "phone must contain 7 to 20 digits")
		}
		if w.Template == TemplateService && w.Phone == "" {
			return invalid("phone", "service sites need a phone number")
		}
	case StepAppearance:
		if !colorPattern.MatchString(w.PrimaryColor) {
			return invalid("primary_color", "primary_color must look like #1a2b3c")
		}
		if w.Template == TemplateEcommerce && !currencyPattern.MatchString(w.Currency) {
			return invalid("currency", "online shops need a 3-letter currency code")
		}
		if w.Template == TemplatePortfolio && len(w.Sections) == 0 {
			return invalid("sections", "portfolios need at least one section")
		}
		if len(w.Sections) > 12 {
			return invalid("sections", "at most 12 sections are allowed")
		}
	default:
		return ErrUnknownStep
	}
	return nil
}

// Validate runs every step in order and returns the first failure.
func (w Wizard) Validate() error {
	for _, step := range Steps {
		if err := w.ValidateStep(step); err != nil {
			return err
		}
	}
	return nil
}
