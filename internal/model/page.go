package model

// Page 分页响应；页码从 1 开始
type Page[T any] struct {
	Data  []T `json:"data"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// TotalPages = ceil(total/limit); zero when limit is not positive.
func (p Page[T]) TotalPages() int {
	if p.Limit <= 0 {
		return 0
	}
	return (p.Total + p.Limit - 1) / p.Limit
}

// HasNext reports whether a further page may be fetched.
func (p Page[T]) HasNext() bool { return p.Page < p.TotalPages() }

// NextPage returns the next page number and whether one exists.
func (p Page[T]) NextPage() (int, bool) {
	if !p.HasNext() {
		return 0, false
	}
	return p.Page + 1, true
}
