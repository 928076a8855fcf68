package homework

import "fmt"

// Validate picks the most recent homework from resp.
//
// An absent or empty list is not an error: it yields NoUpdate(). A first
// entry whose status is not in the catalog fails with ErrInvalidStatus.
func Validate(resp Response, catalog Catalog) (Result, error) {
	if len(resp.Homeworks) == 0 {
		return NoUpdate(), nil
	}
	rec := resp.Homeworks[0]
	if !catalog.Known(rec.Status) {
		return Result{}, NewError(KindInvalidStatus, "validate", fmt.Errorf("%w: %q", ErrInvalidStatus, string(rec.Status)))
	}
	return Result{Record: rec, Found: true}, nil
}
