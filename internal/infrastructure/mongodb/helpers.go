package mongodb

// normalizePaging converts a 1-based page into skip/limit, falling back to
// the first page of twenty when the caller passes zero values.
func normalizePaging(page, pageSize int64) (skip, limit int64) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	return (page - 1) * pageSize, pageSize
}
