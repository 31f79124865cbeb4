package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vncsmyrnk/gradgate/internal/core/domain"
	"github.com/vncsmyrnk/gradgate/internal/core/ports"
	"github.com/vncsmyrnk/gradgate/internal/export"
)

type AdminHandler struct {
	sync        ports.SyncService
	credentials ports.CredentialService
	dispatch    ports.DispatchService
	admin       ports.AdminService
	location    *time.Location
}

func NewAdminHandler(sync ports.SyncService, credentials ports.CredentialService, dispatch ports.DispatchService, admin ports.AdminService, location *time.Location) *AdminHandler {
	if location == nil {
		location = time.UTC
	}
	return &AdminHandler{
		sync:        sync,
		credentials: credentials,
		dispatch:    dispatch,
		admin:       admin,
		location:    location,
	}
}

type syncRequest struct {
	Since *time.Time `json:"since"`
}

type syncResponse struct {
	Summary *domain.SyncRunSummary `json:"summary,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// Sync godoc
// @Summary      Runs a graduate sync
// @Description  Full sync when since is omitted, incremental otherwise. Incremental runs never deactivate graduates.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Success      200
// @Failure      400,401,403,409,500,503
// @Router       /admin/sync [post]
func (h *AdminHandler) Sync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if !decodeOptionalBody(w, r, &req) {
		return
	}

	var opts domain.SyncOptions
	if req.Since != nil {
		opts.Since = req.Since.UTC()
	}

	summary, err := h.sync.RunSync(r.Context(), opts)
	if err != nil {
		var srcErr *domain.SourceUnavailableError
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, domain.ErrSyncInProgress), errors.Is(err, domain.ErrSyncLeaseLost):
			status = http.StatusConflict
		case errors.As(err, &srcErr):
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, syncResponse{Summary: summary, Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, syncResponse{Summary: summary})
}

func (h *AdminHandler) IssueCredentials(w http.ResponseWriter, r *http.Request) {
	issued, err := h.credentials.IssueMissingCredentials(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"issued": issued, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"issued": issued})
}

func (h *AdminHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	summary, err := h.dispatch.DeliverPending(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"summary": summary, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type resetRequest struct {
	RemoteID   string `json:"remote_id"`
	NationalID string `json:"national_id"`
}

// ResetCheckIns godoc
// @Summary      Resets check-ins
// @Description  Returns checked-in and denied companions to pending, for one graduate (by remote_id or national_id) or for everyone. Tokens are kept.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Success      200
// @Failure      400,401,403,404,500
// @Router       /admin/checkins/reset [post]
func (h *AdminHandler) ResetCheckIns(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !decodeOptionalBody(w, r, &req) {
		return
	}

	remoteID := strings.TrimSpace(req.RemoteID)
	nationalID := strings.TrimSpace(req.NationalID)
	if remoteID != "" && nationalID != "" {
		http.Error(w, "invalid request body: remote_id and national_id are exclusive", http.StatusBadRequest)
		return
	}

	var (
		n   int64
		err error
	)
	if nationalID != "" {
		n, err = h.admin.ResetCheckInsByNationalID(r.Context(), nationalID)
	} else {
		n, err = h.admin.ResetCheckIns(r.Context(), remoteID)
	}
	if err != nil {
		if errors.Is(err, domain.ErrGraduateNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"reset": n})
}

func (h *AdminHandler) Export(w http.ResponseWriter, r *http.Request) {
	rows, err := h.admin.ExportState(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="gradgate-export.csv"`)
	// Headers are already sent; a write error only truncates the body.
	_ = export.WriteCSV(w, rows, h.location)
}

func (h *AdminHandler) ListGraduates(w http.ResponseWriter, r *http.Request) {
	graduates, err := h.admin.ListGraduates(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if graduates == nil {
		graduates = []*domain.Graduate{}
	}
	writeJSON(w, http.StatusOK, graduates)
}

// decodeOptionalBody accepts an empty body as the zero request.
func decodeOptionalBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil {
		return true
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	msg := "invalid request body"
	if strings.Contains(err.Error(), "parsing time") {
		msg = "invalid request body: since must be RFC3339"
	}
	http.Error(w, msg, http.StatusBadRequest)
	return false
}
