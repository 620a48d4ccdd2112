package api

import "encoding/json"

type (
	// ListParams selects a page of store records. Nil fields are absent
	// and leave the choice to the store
	ListParams struct {
		Limit             *int    `json:"limit,omitempty"`
		ContinuationToken *string `json:"continuationToken,omitempty"`
	}

	// ListResult is a page of store records. ContinuationToken is empty on
	// the last page
	ListResult struct {
		Items             []json.RawMessage `json:"items"`
		ContinuationToken string            `json:"continuationToken,omitempty"`
	}
)

// LimitOr returns the requested limit, or def when none was given
func (p *ListParams) LimitOr(def int) int {
	if p == nil || p.Limit == nil {
		return def
	}
	return *p.Limit
}

// Token returns the continuation token, or an empty string when absent
func (p *ListParams) Token() string {
	if p == nil || p.ContinuationToken == nil {
		return ""
	}
	return *p.ContinuationToken
}
