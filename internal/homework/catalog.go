package homework

import "sort"

// Status is a review status code as returned by the homework API.
type Status string

const (
	StatusApproved  Status = "approved"
	StatusReviewing Status = "reviewing"
	StatusRejected  Status = "rejected"
)

// Catalog maps known status codes to the verdict text sent to the student.
//
// A Catalog is read-only after construction; copy it with Clone before
// changing anything.
type Catalog map[Status]string

// DefaultCatalog returns the verdicts for the statuses the API is known to emit.
func DefaultCatalog() Catalog {
	return Catalog{
		StatusApproved:  "Работа проверена: ревьюеру всё понравилось. Ура!",
		StatusReviewing: "Работа взята на проверку ревьюером.",
		StatusRejected:  "Работа проверена, в ней нашлись ошибки.",
	}
}

// Verdict returns the verdict text for s.
func (c Catalog) Verdict(s Status) (string, bool) {
	v, ok := c[s]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Known reports whether s is a catalog key.
func (c Catalog) Known(s Status) bool {
	_, ok := c[s]
	return ok
}

// Statuses returns the catalog keys in stable order.
func (c Catalog) Statuses() []Status {
	out := make([]Status, 0, len(c))
	for s := range c {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Clone returns an independent copy of c.
func (c Catalog) Clone() Catalog {
	out := make(Catalog, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
