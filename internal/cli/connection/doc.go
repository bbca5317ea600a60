// Package connection talks to a running contact-server over HTTP.
//
// The client keeps a cookie jar so that a token fetched with FetchToken
// and a later Submit share one session, the same way a browser does.
package connection
