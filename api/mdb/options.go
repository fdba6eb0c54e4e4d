package mdb

type listRequest struct {
	search   string
	pageSize int
	system   string
}

// ListOption narrows a mission database listing.
type ListOption func(*listRequest) error

// WithSearch filters items whose name contains q.
func WithSearch(q string) ListOption {
	return func(r *listRequest) error {
		r.search = q
		return nil
	}
}

// WithSpaceSystem limits the listing to items of a space system.
func WithSpaceSystem(qualifiedName string) ListOption {
	return func(r *listRequest) error {
		r.system = qualifiedName
		return nil
	}
}

// WithPageSize is the number of items fetched per request.
// Note: By default, pages of 200 items are fetched.
func WithPageSize(n int) ListOption {
	return func(r *listRequest) error {
		r.pageSize = n
		return nil
	}
}
