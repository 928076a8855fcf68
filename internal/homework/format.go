package homework

import (
	"fmt"
	"strings"
)

// Format renders the status-change notification for rec.
func Format(rec Record, catalog Catalog) (string, error) {
	name := strings.TrimSpace(rec.HomeworkName)
	if name == "" {
		return "", NewError(KindMalformedRecord, "format", ErrMissingName)
	}
	verdict, ok := catalog.Verdict(rec.Status)
	if !ok {
		return "", NewError(KindMalformedRecord, "format", fmt.Errorf("%w (status %q)", ErrMissingVerdict, string(rec.Status)))
	}
	return fmt.Sprintf("Изменился статус проверки работы \"%s\".\n\n%s", name, verdict), nil
}
