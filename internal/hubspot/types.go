package hubspot

import "time"

// Object types as they appear in CRM API paths.
const (
	ObjectCompanies = "companies"
	ObjectContacts  = "contacts"
	ObjectMeetings  = "meetings"
)

// Filter operators and sort directions supported by the search API.
const (
	OperatorGTE        = "GTE"
	OperatorLTE        = "LTE"
	DirectionAscending = "ASCENDING"
)

// Filter is a single property comparison inside a filter group.
type Filter struct {
	PropertyName string `json:"propertyName"`
	Operator     string `json:"operator"`
	Value        string `json:"value"`
}

// FilterGroup ANDs its filters together.
type FilterGroup struct {
	Filters []Filter `json:"filters"`
}

// Sort orders search results on a single property.
type Sort struct {
	PropertyName string `json:"propertyName"`
	Direction    string `json:"direction"`
}

// SearchRequest is the body of a CRM object search call.
type SearchRequest struct {
	FilterGroups []FilterGroup `json:"filterGroups,omitempty"`
	Sorts        []Sort        `json:"sorts,omitempty"`
	Properties   []string      `json:"properties,omitempty"`
	Limit        int           `json:"limit"`
	After        string        `json:"after,omitempty"`
}

// Record is a raw CRM entity as returned by the search API. Property
// values arrive loosely typed; nulls decode to empty strings.
type Record struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

// NextPage carries the offset token for the following page.
type NextPage struct {
	After string `json:"after"`
}

// Paging is present on a search response when more pages remain.
type Paging struct {
	Next *NextPage `json:"next"`
}

// SearchResponse is a single page of search results. A nil Paging (or a
// missing next token) signals the end of the traversal.
type SearchResponse struct {
	Total   int      `json:"total"`
	Results []Record `json:"results"`
	Paging  *Paging  `json:"paging"`
}

// ObjectRef identifies a CRM object in association payloads.
type ObjectRef struct {
	ID   string `json:"id"`
	Type string `json:"type,omitempty"`
}

// Association maps a source object to its associated targets.
type Association struct {
	From *ObjectRef  `json:"from"`
	To   []ObjectRef `json:"to"`
}

// TokenResponse is the result of a refresh-token grant.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}
