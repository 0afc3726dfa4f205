package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/rapidsites/storefront/pkg/errors"
	"github.com/rapidsites/storefront/pkg/pagination"
)

type pageQuery struct {
	Limit  int    `json:"limit" validate:"min=1,max=100"`
	Cursor string `json:"cursor" validate:"max=512"`
}

// PageParams reads ?limit= and ?cursor=. A missing limit means the default
// page size.
func PageParams(r *http.Request) (pagination.Params, error) {
	query := r.URL.Query()
	q := pageQuery{Limit: pagination.DefaultLimit, Cursor: strings.TrimSpace(query.Get("cursor"))}
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return pagination.Params{}, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a number").
				WithDetails(map[string]string{"limit": "must be a number"})
		}
		q.Limit = n
	}
	if err := Struct(q); err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{Limit: q.Limit, Cursor: q.Cursor}, nil
}
