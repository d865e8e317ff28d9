package merge

import (
	"fmt"
	"iter"
)

// PaginationError reports a malformed page request.
type PaginationError struct {
	Field string
	Value int
}

func (e *PaginationError) Error() string {
	return fmt.Sprintf("invalid pagination: %s must not be negative, got %d", e.Field, e.Value)
}

// ValidatePagination rejects a negative limit. A negative offset is
// accepted and ignored by the paginator.
func ValidatePagination(offset, limit *int) error {
	if limit != nil && *limit < 0 {
		return &PaginationError{Field: "limit", Value: *limit}
	}
	return nil
}

// QueryPostPaginator applies the stream's own offset and limit.
type QueryPostPaginator struct{}

// PostPaginate returns a stream that skips Meta.Offset rows and then
// yields at most Meta.Limit rows. Nothing is materialised; rows past the
// limit are never read from the source.
func (QueryPostPaginator) PostPaginate(s *MergedQueryDataStream) (*MergedQueryDataStream, error) {
	if err := ValidatePagination(s.Meta.Offset, s.Meta.Limit); err != nil {
		return nil, err
	}
	offset, limit := s.Meta.Offset, s.Meta.Limit
	if (offset == nil || *offset <= 0) && limit == nil {
		return s, nil
	}
	return NewStream(s.Legend, paginate(s.Rows(), offset, limit), s.Meta), nil
}

func paginate[T any](seq iter.Seq[T], offset, limit *int) iter.Seq[T] {
	return func(yield func(T) bool) {
		skip := 0
		if offset != nil && *offset > 0 {
			skip = *offset
		}
		if limit != nil && *limit == 0 {
			return
		}
		taken := 0
		for v := range seq {
			if skip > 0 {
				skip--
				continue
			}
			if !yield(v) {
				return
			}
			taken++
			if limit != nil && taken >= *limit {
				return
			}
		}
	}
}
