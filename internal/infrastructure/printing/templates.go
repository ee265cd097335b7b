package printing

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"
	_ "time/tzdata" // Europe/London must resolve in distroless images

	"github.com/shopspring/decimal"
	"github.com/tempcover/backend/internal/domain/policy"
	"github.com/tempcover/backend/internal/domain/vehicle"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

//go:embed templates/*.html
var templateFS embed.FS

var templateFiles = map[policy.DocumentKind]string{
	policy.DocumentKindCertificate: "templates/certificate.html",
	policy.DocumentKindProposal:    "templates/statement_of_fact.html",
}

// Insurer details printed on every document
type Insurer struct {
	Name        string
	Underwriter string
	Address     string
	Phone       string
	Email       string
}

// DefaultInsurer is used when no other insurer is configured
var DefaultInsurer = Insurer{
	Name:        "TempCover",
	Underwriter: "TempCover Underwriting Ltd",
	Address:     "1 Temple Way, Bristol BS1 6HG",
	Phone:       "0330 000 0000",
	Email:       "support@tempcover.example",
}

type templateView struct {
	policy.DocumentData
	Insurer Insurer
}

// TemplateSet renders the HTML for each document kind
type TemplateSet struct {
	templates map[policy.DocumentKind]*template.Template
	insurer   Insurer
	location  *time.Location
}

// TemplateSetOption configures a TemplateSet
type TemplateSetOption func(*TemplateSet)

// WithInsurer overrides the insurer block
func WithInsurer(insurer Insurer) TemplateSetOption {
	return func(s *TemplateSet) {
		s.insurer = insurer
	}
}

// NewTemplateSet parses the embedded templates. It panics on a malformed
// template since they ship with the binary.
func NewTemplateSet(opts ...TemplateSetOption) *TemplateSet {
	loc, err := time.LoadLocation("Europe/London")
	if err != nil {
		loc = time.UTC
	}

	s := &TemplateSet{
		templates: make(map[policy.DocumentKind]*template.Template, len(templateFiles)),
		insurer:   DefaultInsurer,
		location:  loc,
	}
	for _, opt := range opts {
		opt(s)
	}

	funcs := s.funcMap()
	for kind, file := range templateFiles {
		s.templates[kind] = template.Must(template.New(file).Funcs(funcs).ParseFS(templateFS, file, "templates/layout.html"))
	}
	return s
}

// Render executes the template for kind
func (s *TemplateSet) Render(kind policy.DocumentKind, data policy.DocumentData) (string, error) {
	tmpl, ok := s.templates[kind]
	if !ok {
		return "", NewRenderError(ErrCodeUnknownKind, fmt.Sprintf("no template for document kind %q", kind), nil)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "document", templateView{DocumentData: data, Insurer: s.insurer}); err != nil {
		return "", NewRenderError(ErrCodeTemplateFailed, "failed to execute template", err)
	}
	return buf.String(), nil
}

func (s *TemplateSet) funcMap() template.FuncMap {
	return template.FuncMap{
		"money": formatMoney,
		"date": func(t time.Time) string {
			return formatDate(t, s.location)
		},
		"datetime": func(t time.Time) string {
			return formatDateTime(t, s.location)
		},
		"title":    titleCase,
		"make":     vehicle.DisplayMake,
		"upper":    strings.ToUpper,
		"duration": formatDuration,
		"dob":      formatDateOfBirth,
		"licence":  formatLicenceType,
	}
}

var currencySymbols = map[string]string{
	"GBP": "£",
	"EUR": "€",
	"USD": "$",
}

// formatMoney renders minor units as a price, e.g. (123456, "GBP") -> "£1,234.56"
func formatMoney(pence int64, currency string) string {
	d := decimal.New(pence, -2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	amount := message.NewPrinter(language.BritishEnglish).Sprint(number.Decimal(d.InexactFloat64(), number.Scale(2)))

	code := strings.ToUpper(currency)
	if code == "" {
		code = policy.DefaultCurrency
	}
	symbol, ok := currencySymbols[code]
	if !ok {
		return sign + amount + " " + code
	}
	return sign + symbol + amount
}

func formatDate(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(loc).Format("2 January 2006")
}

func formatDateTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(loc).Format("15:04 on 2 January 2006 (MST)")
}

// formatDateOfBirth turns 1990-05-01 into 1 May 1990, passing anything else through
func formatDateOfBirth(s string) string {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return s
	}
	return t.Format("2 January 2006")
}

func titleCase(s string) string {
	return cases.Title(language.BritishEnglish).String(strings.ToLower(s))
}

var licenceLabels = map[string]string{
	"FULL_UK":        "Full UK",
	"PROVISIONAL_UK": "Provisional UK",
	"EU":             "EU",
	"INTERNATIONAL":  "International",
}

func formatLicenceType(s string) string {
	if label, ok := licenceLabels[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return label
	}
	return titleCase(strings.ReplaceAll(s, "_", " "))
}

// formatDuration renders a cover length as days and hours, e.g. "1 day 3 hours"
func formatDuration(ms int64) string {
	if ms <= 0 {
		return ""
	}
	// Whole minutes, rounded half up, in integer milliseconds so large values cannot overflow.
	minutesTotal := ms / 60000
	if ms%60000 >= 30000 {
		minutesTotal++
	}

	days := minutesTotal / (24 * 60)
	hours := (minutesTotal / 60) % 24
	minutes := minutesTotal % 60

	var parts []string
	if days > 0 {
		parts = append(parts, plural(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	return strings.Join(parts, " ")
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
