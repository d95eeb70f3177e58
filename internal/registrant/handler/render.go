package handler

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strconv"

	"profreg/internal/registrant/models"
	"profreg/pkg/requestcontext"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	pageForm       = "form.html"
	pageVerify     = "verify.html"
	pageResult     = "result.html"
	pageError      = "error.html"
	pageViewData   = "view_data.html"
	pageMostCommon = "most_common_profession.html"
)

type formView struct {
	Message    string
	Registrant models.Registrant
}

type messageView struct {
	Message string
}

type listingView struct {
	Rows []*models.Registrant
}

type frequencyView struct {
	Professions []models.ProfessionCount
}

// pages holds one template set per page, each paired with the shared layout.
type pages struct {
	byName map[string]*template.Template
}

func mustParsePages() *pages {
	p := &pages{byName: make(map[string]*template.Template)}
	for _, name := range []string{pageForm, pageVerify, pageResult, pageError, pageViewData, pageMostCommon} {
		p.byName[name] = template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/"+name))
	}
	return p
}

// render executes the page into a buffer first so a template failure never
// leaves a half-written response behind.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	var buf bytes.Buffer
	if err := h.pages.byName[page].ExecuteTemplate(&buf, "layout", data); err != nil {
		ctx := r.Context()
		h.logger.ErrorContext(ctx, "failed to render page",
			"request_id", requestcontext.RequestID(ctx),
			"page", page,
			"error", err,
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
