package search

// Result is a single feed search hit returned to the caller.
type Result struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Snippet   string `json:"snippet"`
	Timestamp int64  `json:"timestamp"`
}

// Query describes a feed search request.
type Query struct {
	Text   string
	Limit  int
	Offset int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search over the feed.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// PostRecord is the data we index for a post.
type PostRecord struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

func nonNil(results []Result) []Result {
	if results == nil {
		return []Result{}
	}
	return results
}
