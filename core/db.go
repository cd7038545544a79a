package core

import "strings"

// DBOrdering is one `ORDER BY` term.
type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// ParseOrdering parses a comma separated list of fields (eg: "-payment_date,student_id")
// into orderings. Fields not listed in `allowed` are skipped.
func ParseOrdering(raw string, allowed ...string) []DBOrdering {
	if raw == "" {
		return nil
	}
	var ords []DBOrdering
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		for _, a := range allowed {
			if a == field {
				ords = append(ords, DBOrdering{Field: field, Ascending: !descending})
				break
			}
		}
	}
	return ords
}

// FormatOrdering is the inverse of ParseOrdering.
func FormatOrdering(ords []DBOrdering) string {
	fields := make([]string, 0, len(ords))
	for _, ord := range ords {
		if ord.Ascending {
			fields = append(fields, ord.Field)
		} else {
			fields = append(fields, "-"+ord.Field)
		}
	}
	return strings.Join(fields, ",")
}
