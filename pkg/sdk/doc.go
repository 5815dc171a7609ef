// Package findex is the Go client for the findex search API.
//
// Create a client, then issue searches:
//
//	client, err := findex.NewClient("http://localhost:8080",
//		findex.WithAPIKey("secret"),
//		findex.WithPrincipal("user-42"),
//	)
//	if err != nil { ... }
//
//	resp, err := client.Search(ctx, findex.SearchRequest{
//		Query:   "coffee receipts last week",
//		Sources: []string{"receipts"},
//		Limit:   20,
//	})
//
// Every request carries a generated X-Request-ID so server logs can be
// correlated with client calls.
package findex
