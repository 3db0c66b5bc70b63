// Package validation checks extracted KTP fields against the formats used on
// the physical card. Every validator takes a bypass flag: when set the check
// is skipped, mirroring the lenient mode of the upload endpoint.
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Nengock/katepeh/internal/domain"
)

var (
	nikRe        = regexp.MustCompile(`^\d{16}$`)
	nameRe       = regexp.MustCompile(`^[A-Z\s\.\,\'\-]+$`)
	birthPlaceRe = regexp.MustCompile(`^[A-Z\s\.]+$`)
	rtRwRe       = regexp.MustCompile(`RT\.?\s*\d{1,3}(/|\.|\s+)RW\.?\s*\d{1,3}`)
)

const dateLayout = "02-01-2006"

// ValidateNIK checks the 16-digit NIK including its administrative prefix:
// province 11-94, regency 01-99, district 01-99.
func ValidateNIK(nik string, bypass bool) bool {
	if bypass {
		return true
	}
	if !nikRe.MatchString(nik) {
		return false
	}
	province, _ := strconv.Atoi(nik[0:2])
	if province < 11 || province > 94 {
		return false
	}
	regency, _ := strconv.Atoi(nik[2:4])
	if regency < 1 || regency > 99 {
		return false
	}
	district, _ := strconv.Atoi(nik[4:6])
	if district < 1 || district > 99 {
		return false
	}
	return true
}

func ValidateName(name string, bypass bool) bool {
	if bypass {
		return true
	}
	if len(name) < 2 || name != strings.ToUpper(name) {
		return false
	}
	return nameRe.MatchString(name)
}

// ValidateDate accepts DD-MM-YYYY with a year between 1900 and the current
// year.
func ValidateDate(dateStr string, bypass bool) bool {
	if bypass {
		return true
	}
	t, err := time.Parse(dateLayout, dateStr)
	if err != nil {
		return false
	}
	year := t.Year()
	return year >= 1900 && year <= time.Now().Year()
}

func ValidateBirthPlace(birthPlace string, bypass bool) bool {
	if bypass {
		return true
	}
	if len(birthPlace) < 2 || birthPlace != strings.ToUpper(birthPlace) {
		return false
	}
	return birthPlaceRe.MatchString(birthPlace)
}

// ValidateAddress requires an uppercase address carrying RT/RW information.
func ValidateAddress(address string, bypass bool) bool {
	if bypass {
		return true
	}
	if len(address) < 5 || address != strings.ToUpper(address) {
		return false
	}
	return rtRwRe.MatchString(address)
}

func ValidateGender(gender string, bypass bool) bool {
	if bypass {
		return true
	}
	return gender == string(domain.GenderMale) || gender == string(domain.GenderFemale)
}

func ValidateReligion(religion string, bypass bool) bool {
	if bypass || religion == "" {
		return true
	}
	switch domain.Religion(religion) {
	case domain.ReligionIslam, domain.ReligionKristen, domain.ReligionKatolik,
		domain.ReligionHindu, domain.ReligionBuddha, domain.ReligionKonghucu:
		return true
	}
	return false
}

func ValidateMaritalStatus(status string, bypass bool) bool {
	if bypass || status == "" {
		return true
	}
	switch domain.MaritalStatus(status) {
	case domain.MaritalSingle, domain.MaritalMarried, domain.MaritalDivorced, domain.MaritalWidowed:
		return true
	}
	return false
}

func ValidateBloodType(bloodType string, bypass bool) bool {
	if bypass || bloodType == "" {
		return true
	}
	switch domain.BloodType(bloodType) {
	case domain.BloodTypeA, domain.BloodTypeB, domain.BloodTypeAB,
		domain.BloodTypeO, domain.BloodTypeUnknown:
		return true
	}
	return false
}

func ValidateNationality(nationality string, bypass bool) bool {
	if bypass || nationality == "" {
		return true
	}
	return nationality == string(domain.NationalityWNI) || nationality == string(domain.NationalityWNA)
}

func ValidateOccupation(occupation string, bypass bool) bool {
	if bypass || occupation == "" {
		return true
	}
	return occupation == strings.ToUpper(occupation)
}

// ValidateValidUntil accepts SEUMUR HIDUP (lifetime validity) or a future
// date in DD-MM-YYYY format.
func ValidateValidUntil(validUntil string, bypass bool) bool {
	if bypass || validUntil == "" {
		return true
	}
	if validUntil == "SEUMUR HIDUP" {
		return true
	}
	t, err := time.Parse(dateLayout, validUntil)
	if err != nil {
		return false
	}
	return t.After(time.Now())
}

// BuildRecord assembles a KTPRecord from extracted fields and validates every
// field unless bypass is set. Nationality defaults to WNI, matching the card
// itself.
func BuildRecord(fields map[string]string, bypass bool) (*domain.KTPRecord, error) {
	nationality := fields["nationality"]
	if nationality == "" {
		nationality = string(domain.NationalityWNI)
	}

	checks := []struct {
		field string
		ok    bool
		msg   string
	}{
		{"nik", ValidateNIK(fields["nik"], bypass), "NIK must be exactly 16 digits"},
		{"name", ValidateName(fields["name"], bypass), "name must contain only uppercase letters, spaces, and allowed punctuation"},
		{"birth_place", ValidateBirthPlace(fields["birth_place"], bypass), "birth place must be in uppercase letters"},
		{"birth_date", ValidateDate(fields["birth_date"], bypass), "birth date must be in DD-MM-YYYY format"},
		{"gender", ValidateGender(fields["gender"], bypass), "gender must be either LAKI-LAKI or PEREMPUAN"},
		{"address", ValidateAddress(fields["address"], bypass), "address must be in uppercase and contain RT/RW information"},
		{"blood_type", ValidateBloodType(fields["blood_type"], bypass), "invalid blood type"},
		{"religion", ValidateReligion(fields["religion"], bypass), "invalid religion value"},
		{"marital_status", ValidateMaritalStatus(fields["marital_status"], bypass), "invalid marital status"},
		{"occupation", ValidateOccupation(fields["occupation"], bypass), "occupation must be in uppercase letters"},
		{"nationality", ValidateNationality(nationality, bypass), "nationality must be either WNI or WNA"},
		{"valid_until", ValidateValidUntil(fields["valid_until"], bypass), "valid until must be either SEUMUR HIDUP or a future date in DD-MM-YYYY format"},
	}
	for _, c := range checks {
		if !c.ok {
			return nil, domain.NewValidationError(fmt.Sprintf("invalid %s: %s", c.field, c.msg))
		}
	}

	return &domain.KTPRecord{
		NIK:           fields["nik"],
		Name:          fields["name"],
		BirthPlace:    fields["birth_place"],
		BirthDate:     fields["birth_date"],
		Gender:        domain.Gender(fields["gender"]),
		Address:       fields["address"],
		BloodType:     domain.BloodType(fields["blood_type"]),
		Religion:      domain.Religion(fields["religion"]),
		MaritalStatus: domain.MaritalStatus(fields["marital_status"]),
		Occupation:    fields["occupation"],
		Nationality:   domain.Nationality(nationality),
		ValidUntil:    fields["valid_until"],
	}, nil
}
