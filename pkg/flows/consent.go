// SPDX-FileCopyrightText: Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

package flows

import (
	"html/template"
	"net/http"

	"github.com/lanternid/lantern/pkg/logger"
)

// ConsentStage asks the user to approve the requested permissions. In
// implicit mode consent is granted without a prompt.
type ConsentStage struct {
	Mode string
}

var _ StageView = (*ConsentStage)(nil)

// consentPage is the data handed to the consent template.
type consentPage struct {
	Title       string
	Header      string
	Permissions []PermissionDescriptor
	Username    string
}

// PermissionDescriptor is one requested permission shown on the consent
// prompt.
type PermissionDescriptor struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Get renders the consent prompt, or passes straight through in implicit
// mode.
func (c *ConsentStage) Get(w http.ResponseWriter, r *http.Request, exec *Execution) {
	if c.Mode == ConsentModeImplicit {
		exec.StageOK(w, r)
		return
	}

	page := consentPage{Username: exec.Session.Username}
	if _, err := exec.Plan.GetContext(ContextTitle, &page.Title); err != nil {
		logger.Warnw("failed to decode flow title", "error", err.Error())
	}
	if _, err := exec.Plan.GetContext(ContextConsentHeader, &page.Header); err != nil {
		logger.Warnw("failed to decode consent header", "error", err.Error())
	}
	if _, err := exec.Plan.GetContext(ContextConsentPermissions, &page.Permissions); err != nil {
		logger.Warnw("failed to decode consent permissions", "error", err.Error())
	}
	if page.Title == "" {
		page.Title = "Authorize"
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := consentTemplate.Execute(w, page); err != nil {
		logger.Errorw("failed to render consent page", "error", err.Error())
	}
}

// Post handles the user's decision. Any value other than an explicit
// approval is treated as a denial.
func (c *ConsentStage) Post(w http.ResponseWriter, r *http.Request, exec *Execution) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	if r.PostForm.Get("action") != "approve" {
		logger.Infow("user denied consent",
			"flow", exec.Plan.FlowSlug,
			"user", exec.Session.Username,
		)
		exec.StageInvalid(w, r)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusForbidden)
		if err := deniedTemplate.Execute(w, nil); err != nil {
			logger.Errorw("failed to render denied page", "error", err.Error())
		}
		return
	}
	exec.StageOK(w, r)
}

// deniedTemplate is shown when the user declines consent.
var deniedTemplate = template.Must(template.New("denied").Parse(`<!DOCTYPE html>
<html>
<head><title>Permission denied</title></head>
<body>
<h1>Permission denied</h1>
<p>You denied the request.</p>
</body>
</html>
`))

var consentTemplate = template.Must(template.New("consent").Parse(`<!DOCTYPE html>
<html>
<head><title>{{.Title}}</title></head>
<body>
<h1>{{if .Header}}{{.Header}}{{else}}Authorize application{{end}}</h1>
{{if .Username}}<p>Signed in as <strong>{{.Username}}</strong></p>{{end}}
{{if .Permissions}}
<p>The application requests the following permissions:</p>
<ul>
{{range .Permissions}}<li><strong>{{.Name}}</strong>{{if .Description}} &mdash; {{.Description}}{{end}}</li>
{{end}}</ul>
{{end}}
<form method="post">
<button type="submit" name="action" value="approve">Continue</button>
<button type="submit" name="action" value="deny">Cancel</button>
</form>
</body>
</html>
`))
