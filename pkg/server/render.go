// SPDX-FileCopyrightText: Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"html/template"
	"net/http"
	"net/url"

	"github.com/lanternid/lantern/pkg/logger"
	"github.com/lanternid/lantern/pkg/oauth"
)

var badRequestTemplate = template.Must(template.New("bad-request").Parse(`<!DOCTYPE html>
<html>
<head><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
</body>
</html>
`))

var permissionDeniedTemplate = template.Must(template.New("denied").Parse(`<!DOCTYPE html>
<html>
<head><title>Permission denied</title></head>
<body>
<h1>Permission denied</h1>
<p>You do not have access to this application.</p>
</body>
</html>
`))

// autosubmitTemplate implements form_post delivery: the response fields are
// posted to the relying party by the user's browser. The noscript fallback
// asks for a click.
var autosubmitTemplate = template.Must(template.New("autosubmit").Parse(`<!DOCTYPE html>
<html>
<head><title>{{.Title}}</title></head>
<body onload="document.forms[0].submit()">
<p>{{.Title}}</p>
<form method="post" action="{{.URL}}">
{{range $key, $values := .Fields}}{{range $values}}<input type="hidden" name="{{$key}}" value="{{.}}">
{{end}}{{end}}<noscript><button type="submit">Continue</button></noscript>
</form>
</body>
</html>
`))

// renderBadRequest shows an error page for requests whose redirect URI
// cannot be trusted.
func renderBadRequest(w http.ResponseWriter, title, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusBadRequest)
	err := badRequestTemplate.Execute(w, struct {
		Title   string
		Message string
	}{Title: title, Message: message})
	if err != nil {
		logger.Errorw("failed to render error page", "error", err.Error())
	}
}

func renderPermissionDenied(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	if err := permissionDeniedTemplate.Execute(w, nil); err != nil {
		logger.Errorw("failed to render denied page", "error", err.Error())
	}
}

// renderAutosubmit delivers response fields to the relying party via a
// self-submitting form.
func renderAutosubmit(w http.ResponseWriter, title, action string, fields url.Values) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := autosubmitTemplate.Execute(w, struct {
		Title  string
		URL    string
		Fields url.Values
	}{Title: title, URL: action, Fields: fields})
	if err != nil {
		logger.Errorw("failed to render autosubmit page", "error", err.Error())
	}
}

// writeAuthorizeError delivers an RP-visible error: redirected for query and
// fragment placement, posted back for form_post.
func (s *Server) writeAuthorizeError(w http.ResponseWriter, r *http.Request, authErr *oauth.AuthorizeError) {
	if authErr.EffectiveResponseMode() == oauth.ResponseModeFormPost {
		renderAutosubmit(w, "Redirecting...", authErr.RedirectURI, authErr.Params())
		return
	}
	uri := authErr.CreateURI()
	if uri == "" {
		renderBadRequest(w, authErr.ErrorCode, authErr.Description)
		return
	}
	http.Redirect(w, r, uri, http.StatusFound)
}
