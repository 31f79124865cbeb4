package http

import (
	"encoding/json"
	"net/http"

	"github.com/vncsmyrnk/gradgate/internal/core/domain"
	"github.com/vncsmyrnk/gradgate/internal/core/ports"
)

// maxVerifyBody bounds the request body; tokens are short.
const maxVerifyBody = 4 << 10

type VerifyHandler struct {
	service ports.VerificationService
}

func NewVerifyHandler(service ports.VerificationService) *VerifyHandler {
	return &VerifyHandler{
		service: service,
	}
}

type verifyRequest struct {
	Token string `json:"token"`
}

// Verify godoc
// @Summary      Checks a companion in
// @Description  Validates a scanned credential token and consumes it on first use.
// @Tags         verify
// @Accept       json
// @Produce      json
// @Success      200
// @Failure      400,403,404,503
// @Router       /api/verify [post]
func (h *VerifyHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxVerifyBody)).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	v := h.service.Verify(r.Context(), req.Token)
	writeJSON(w, verificationStatus(v.Result), v)
}

func verificationStatus(result domain.VerificationResult) int {
	switch result {
	case domain.ResultGranted, domain.ResultAlreadyUsed:
		return http.StatusOK
	case domain.ResultDenied:
		return http.StatusForbidden
	case domain.ResultNotFound:
		return http.StatusNotFound
	default:
		return http.StatusServiceUnavailable
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
