package common

type contextKey string

// HttpClientKey carries an *http.Client used for every outbound request made
// with that context.
const HttpClientKey contextKey = "http_client"
