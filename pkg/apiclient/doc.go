// Package apiclient attaches bearer tokens to outbound API calls.
//
// A Client holds one token for everything sent through it. In browser mode a
// missing or invalidated token is obtained from the bootstrap endpoint, with
// concurrent callers sharing a single in-flight bootstrap. A 401 clears the
// token and retries the request once after a forced refresh; the same
// request failing the same way twice in a row is returned to the caller.
//
//	c := apiclient.New("https://api.example.com/v1",
//		apiclient.WithBootstrapURL("https://ui.example.com/api/user"),
//		apiclient.WithTokenStorage(apiclient.NewMemoryStorage()),
//	)
//	resp, err := c.Do(ctx, &apiclient.Request{Method: http.MethodGet, Path: "/search/query"})
//
// Server-side rendering uses WithServerRendering together with WithToken:
// the held token is attached and the request is sent exactly once.
package apiclient
