package patient

import (
	"regexp"
	"strings"
	"time"

	"github.com/nyaruka/phonenumbers"

	"github.com/shorouk/radiology/internal/platform/apperr"
)

const (
	GenderMale   = "Male"
	GenderFemale = "Female"

	dateLayout = "2006-01-02"
)

var ssnPattern = regexp.MustCompile(`^\d{14}$`)

// Patient maps to the patients table. SSN is the 14-digit national id and
// the primary key; it never changes after creation.
type Patient struct {
	SSN                      string    `json:"ssn"`
	FullName                 string    `json:"full_name"`
	MobileNumber             *string   `json:"mobile_number,omitempty"`
	MedicalNumber            string    `json:"medical_number"`
	DateOfBirth              time.Time `json:"date_of_birth"`
	Gender                   string    `json:"gender"`
	Address                  *string   `json:"address,omitempty"`
	EmergencyContactName     *string   `json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone    *string   `json:"emergency_contact_phone,omitempty"`
	EmergencyContactRelation *string   `json:"emergency_contact_relation,omitempty"`
	CreatedAt                time.Time `json:"created_at"`
	UpdatedAt                time.Time `json:"updated_at"`
}

// MaskedSSN replaces all but the last four digits with '*'.
func (p *Patient) MaskedSSN() string {
	if len(p.SSN) < 4 {
		return p.SSN
	}
	return strings.Repeat("*", len(p.SSN)-4) + p.SSN[len(p.SSN)-4:]
}

// Age in whole years at now.
func (p *Patient) Age(now time.Time) int {
	years := now.Year() - p.DateOfBirth.Year()
	if now.Month() < p.DateOfBirth.Month() ||
		(now.Month() == p.DateOfBirth.Month() && now.Day() < p.DateOfBirth.Day()) {
		years--
	}
	return years
}

func (p *Patient) Initials() string {
	var b strings.Builder
	for _, part := range strings.Fields(p.FullName) {
		b.WriteString(strings.ToUpper(string([]rune(part)[0])))
	}
	return b.String()
}

func (p *Patient) DisplayGender() string {
	if p.Gender == "" {
		return "Not specified"
	}
	return p.Gender
}

// View is the JSON shape returned to clients: the row plus derived fields.
type View struct {
	*Patient
	Age          int    `json:"age"`
	MaskedSSN    string `json:"masked_ssn"`
	Initials     string `json:"initials"`
	FormattedDOB string `json:"formatted_dob"`
}

func NewView(p *Patient, now time.Time) View {
	return View{
		Patient:      p,
		Age:          p.Age(now),
		MaskedSSN:    p.MaskedSSN(),
		Initials:     p.Initials(),
		FormattedDOB: p.DateOfBirth.Format(dateLayout),
	}
}

// Input is the create/update payload, bound from a form post or JSON.
type Input struct {
	SSN                      string `json:"ssn" form:"ssn"`
	FullName                 string `json:"full_name" form:"full_name"`
	MobileNumber             string `json:"mobile_number" form:"mobile_number"`
	MedicalNumber            string `json:"medical_number" form:"medical_number"`
	DateOfBirth              string `json:"date_of_birth" form:"date_of_birth"`
	Gender                   string `json:"gender" form:"gender"`
	Address                  string `json:"address" form:"address"`
	EmergencyContactName     string `json:"emergency_contact_name" form:"emergency_contact_name"`
	EmergencyContactPhone    string `json:"emergency_contact_phone" form:"emergency_contact_phone"`
	EmergencyContactRelation string `json:"emergency_contact_relation" form:"emergency_contact_relation"`
}

// ValidSSN reports whether ssn is exactly 14 digits.
func ValidSSN(ssn string) bool {
	return ssnPattern.MatchString(ssn)
}

// ToPatient validates the input and builds a Patient. Phone numbers are
// normalised to E.164 when they are valid for region and kept as entered
// otherwise. All problems are reported together.
func (in Input) ToPatient(now time.Time, region string) (*Patient, error) {
	var problems []string

	ssn := strings.TrimSpace(in.SSN)
	if !ValidSSN(ssn) {
		problems = append(problems, "Valid 14-digit SSN is required")
	}
	name := strings.TrimSpace(in.FullName)
	if len([]rune(name)) < 2 {
		problems = append(problems, "Full name must be at least 2 characters long")
	}
	medical := strings.TrimSpace(in.MedicalNumber)
	if len([]rune(medical)) < 3 {
		problems = append(problems, "Medical number must be at least 3 characters long")
	}
	dob, err := time.Parse(dateLayout, strings.TrimSpace(in.DateOfBirth))
	if err != nil || dob.After(now) || now.Year()-dob.Year() > 150 {
		problems = append(problems, "Valid date of birth is required")
	}
	if in.Gender != GenderMale && in.Gender != GenderFemale {
		problems = append(problems, "Valid gender is required")
	}

	mobile, ok := normalizePhone(in.MobileNumber, region)
	if !ok {
		problems = append(problems, "Mobile number must have at least 10 digits")
	}
	emergencyPhone, ok := normalizePhone(in.EmergencyContactPhone, region)
	if !ok {
		problems = append(problems, "Emergency contact phone must have at least 10 digits")
	}

	if len(problems) > 0 {
		return nil, apperr.Validation("%s", strings.Join(problems, "; "))
	}

	return &Patient{
		SSN:                      ssn,
		FullName:                 name,
		MobileNumber:             mobile,
		MedicalNumber:            medical,
		DateOfBirth:              dob,
		Gender:                   in.Gender,
		Address:                  optional(in.Address),
		EmergencyContactName:     optional(in.EmergencyContactName),
		EmergencyContactPhone:    emergencyPhone,
		EmergencyContactRelation: optional(in.EmergencyContactRelation),
	}, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// normalizePhone returns nil for an empty number and false when the number
// has fewer than ten digits.
func normalizePhone(raw, region string) (*string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	digits := 0
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits < 10 {
		return nil, false
	}
	if num, err := phonenumbers.Parse(raw, region); err == nil && phonenumbers.IsValidNumber(num) {
		e164 := phonenumbers.Format(num, phonenumbers.E164)
		return &e164, true
	}
	return &raw, true
}

// ListFilter narrows the admin patient list. DateFrom/DateTo apply to the
// registration date.
type ListFilter struct {
	Search   string
	Gender   string
	DateFrom *time.Time
	DateTo   *time.Time
}

// Summary is the typeahead row.
type Summary struct {
	SSN           string `json:"ssn"`
	FullName      string `json:"full_name"`
	MedicalNumber string `json:"medical_number"`
}
