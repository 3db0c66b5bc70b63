package recognition

import (
	"regexp"
	"sort"
	"strings"

	"github.com/Nengock/katepeh/internal/domain"
)

var (
	nik16Re = regexp.MustCompile(`\d{16}`)

	// Date patterns tried in order; the two-digit year form resolves the
	// century with the >50 rule.
	dateFullDashRe  = regexp.MustCompile(`(\d{2})-(\d{2})-(\d{4})`)
	dateFullSlashRe = regexp.MustCompile(`(\d{2})/(\d{2})/(\d{4})`)
	dateShortRe     = regexp.MustCompile(`(\d{2})-(\d{2})-(\d{2})\b`)

	genderRe   = regexp.MustCompile(`LAKI-?LAKI|PEREMPUAN`)
	golDarahRe = regexp.MustCompile(`GOL\.?\s*DARAH\s*[:\-]?\s*(AB|A|B|O|-)`)
)

// fieldLabels maps the printed KTP label to the record field it introduces.
// Longer labels are matched first so "GOL. DARAH" wins over "GOL".
var fieldLabels = []struct {
	label string
	field string
}{
	{"TEMPAT/TGL LAHIR", "birth"},
	{"TEMPAT / TGL LAHIR", "birth"},
	{"TEMPAT TGL LAHIR", "birth"},
	{"STATUS PERKAWINAN", "marital_status"},
	{"KEWARGANEGARAAN", "nationality"},
	{"BERLAKU HINGGA", "valid_until"},
	{"JENIS KELAMIN", "gender"},
	{"GOLONGAN DARAH", "blood_type"},
	{"GOL. DARAH", "blood_type"},
	{"GOL DARAH", "blood_type"},
	{"PEKERJAAN", "occupation"},
	{"KEL/DESA", "village"},
	{"KEL / DESA", "village"},
	{"KELURAHAN", "village"},
	{"KECAMATAN", "district"},
	{"ALAMAT", "address"},
	{"RT/RW", "rt_rw"},
	{"AGAMA", "religion"},
	{"NAMA", "name"},
	{"NIK", "nik"},
}

var requiredFields = []string{"nik", "name", "birth_place", "birth_date", "gender", "address"}

// KTPExtractor turns OCR text regions into named card fields. It pairs each
// printed label with the text following it on the same line and falls back to
// pattern matching (16-digit NIK, date shapes, gender literals) for anything
// the label pass misses.
type KTPExtractor struct{}

func NewKTPExtractor() *KTPExtractor {
	return &KTPExtractor{}
}

func (e *KTPExtractor) ExtractInformation(regions []domain.TextRegion) (map[string]string, error) {
	lines := flattenLines(regions)
	fields := make(map[string]string)

	for _, line := range lines {
		e.applyLine(fields, line)
	}
	e.applyFallbacks(fields, lines)
	e.postProcess(fields)

	return fields, nil
}

// applyLine matches one OCR line against the known labels and records its
// value. A line can carry two labeled fields (Jenis Kelamin ... Gol. Darah).
func (e *KTPExtractor) applyLine(fields map[string]string, line string) {
	upper := strings.ToUpper(line)

	for _, fl := range fieldLabels {
		idx := strings.Index(upper, fl.label)
		if idx != 0 {
			continue
		}
		value := strings.TrimSpace(line[idx+len(fl.label):])
		value = strings.TrimLeft(value, ":- ")
		value = strings.TrimSpace(value)

		switch fl.field {
		case "birth":
			place, date := splitBirth(value)
			setIfEmpty(fields, "birth_place", place)
			setIfEmpty(fields, "birth_date", date)
		case "gender":
			// Blood type shares this line on the physical card.
			if m := golDarahRe.FindStringSubmatch(strings.ToUpper(value)); m != nil {
				setIfEmpty(fields, "blood_type", m[1])
			}
			if m := genderRe.FindString(strings.ToUpper(value)); m != "" {
				setIfEmpty(fields, "gender", strings.Replace(m, "LAKILAKI", "LAKI-LAKI", 1))
			}
		default:
			setIfEmpty(fields, fl.field, value)
		}
		return
	}
}

// applyFallbacks fills required fields that carried no label, scanning the
// raw lines for unambiguous shapes.
func (e *KTPExtractor) applyFallbacks(fields map[string]string, lines []string) {
	if fields["nik"] == "" || len(onlyDigits(fields["nik"])) != 16 {
		for _, line := range lines {
			compact := strings.ReplaceAll(line, " ", "")
			if m := nik16Re.FindString(compact); m != "" {
				fields["nik"] = m
				break
			}
		}
	}
	if fields["birth_date"] == "" {
		for _, line := range lines {
			if d := normalizeDate(line); d != "" {
				fields["birth_date"] = d
				break
			}
		}
	}
	if fields["gender"] == "" {
		for _, line := range lines {
			if m := genderRe.FindString(strings.ToUpper(line)); m != "" {
				fields["gender"] = strings.Replace(m, "LAKILAKI", "LAKI-LAKI", 1)
				break
			}
		}
	}
}

// postProcess normalizes field shapes and merges the address components,
// then guarantees every required key exists.
func (e *KTPExtractor) postProcess(fields map[string]string) {
	if v, ok := fields["nik"]; ok {
		fields["nik"] = onlyDigits(v)
	}
	for _, f := range []string{"name", "birth_place", "religion", "occupation", "marital_status", "nationality", "gender", "blood_type"} {
		if v, ok := fields[f]; ok {
			fields[f] = strings.Join(strings.Fields(strings.ToUpper(v)), " ")
		}
	}
	if v, ok := fields["birth_date"]; ok {
		if d := normalizeDate(v); d != "" {
			fields["birth_date"] = d
		}
	}
	if v, ok := fields["valid_until"]; ok {
		upper := strings.Join(strings.Fields(strings.ToUpper(v)), " ")
		if upper == "SEUMUR HIDUP" {
			fields["valid_until"] = upper
		} else if d := normalizeDate(v); d != "" {
			fields["valid_until"] = d
		} else {
			fields["valid_until"] = upper
		}
	}

	// Assemble the full address the way it is read aloud: street, RT/RW,
	// then village and district with their prefixes.
	var parts []string
	if v := strings.TrimSpace(fields["address"]); v != "" {
		parts = append(parts, strings.ToUpper(v))
	}
	if v := strings.TrimSpace(fields["rt_rw"]); v != "" {
		if !strings.HasPrefix(strings.ToUpper(v), "RT") {
			v = "RT." + strings.ReplaceAll(v, "/", "/RW.")
		}
		parts = append(parts, strings.ToUpper(v))
	}
	if v := strings.TrimSpace(fields["village"]); v != "" {
		parts = append(parts, "KEL. "+strings.ToUpper(v))
	}
	if v := strings.TrimSpace(fields["district"]); v != "" {
		parts = append(parts, "KEC. "+strings.ToUpper(v))
	}
	if len(parts) > 0 {
		fields["address"] = strings.Join(parts, " ")
	}
	delete(fields, "rt_rw")
	delete(fields, "village")
	delete(fields, "district")

	for _, f := range requiredFields {
		if _, ok := fields[f]; !ok {
			fields[f] = ""
		}
	}
}

// flattenLines orders regions top-to-bottom, left-to-right and splits
// multi-line region text.
func flattenLines(regions []domain.TextRegion) []string {
	sorted := make([]domain.TextRegion, len(regions))
	copy(sorted, regions)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Box.Min.Y != sorted[j].Box.Min.Y {
			return sorted[i].Box.Min.Y < sorted[j].Box.Min.Y
		}
		return sorted[i].Box.Min.X < sorted[j].Box.Min.X
	})

	var lines []string
	for _, r := range sorted {
		for _, line := range strings.Split(r.Text, "\n") {
			line = strings.TrimSpace(line)
			if line != "" {
				lines = append(lines, line)
			}
		}
	}
	return lines
}

// splitBirth separates "JAKARTA, 17-08-1990" into place and date.
func splitBirth(value string) (place, date string) {
	if idx := strings.LastIndex(value, ","); idx >= 0 {
		place = strings.TrimSpace(value[:idx])
		date = normalizeDate(value[idx+1:])
		return place, date
	}
	if d := normalizeDate(value); d != "" {
		place = strings.TrimSpace(dateFullDashRe.ReplaceAllString(
			dateFullSlashRe.ReplaceAllString(value, ""), ""))
		return place, d
	}
	return strings.TrimSpace(value), ""
}

// normalizeDate extracts the first date in the text as DD-MM-YYYY. Two-digit
// years above 50 resolve to the 1900s, the rest to the 2000s.
func normalizeDate(value string) string {
	if m := dateFullDashRe.FindStringSubmatch(value); m != nil {
		return m[1] + "-" + m[2] + "-" + m[3]
	}
	if m := dateFullSlashRe.FindStringSubmatch(value); m != nil {
		return m[1] + "-" + m[2] + "-" + m[3]
	}
	if m := dateShortRe.FindStringSubmatch(value); m != nil {
		year := m[3]
		if year > "50" {
			year = "19" + year
		} else {
			year = "20" + year
		}
		return m[1] + "-" + m[2] + "-" + year
	}
	return ""
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func setIfEmpty(fields map[string]string, key, value string) {
	if value == "" {
		return
	}
	if _, ok := fields[key]; !ok || fields[key] == "" {
		fields[key] = value
	}
}
