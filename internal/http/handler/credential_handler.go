package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sandeepkv93/secure-credential-service/internal/credential"
	"github.com/sandeepkv93/secure-credential-service/internal/http/middleware"
	"github.com/sandeepkv93/secure-credential-service/internal/http/response"
	"github.com/sandeepkv93/secure-credential-service/internal/observability"
)

// CredentialService is the subset of credential.Service the HTTP surface uses.
type CredentialService interface {
	CreateOrUpdate(ctx context.Context, actor, userID uint, password string, mode credential.Mode) (credential.Outcome, error)
	SetPassword(ctx context.Context, actor, userID uint, password string) (credential.Outcome, error)
	LoginByUserID(ctx context.Context, userID uint, password string, actualLogin bool) (credential.LoginResult, error)
	LoginByName(ctx context.Context, name, password string, actualLogin bool) (credential.LoginResult, error)
	Destroy(ctx context.Context, actor, userID uint) error
}

type CredentialHandler struct {
	svc CredentialService
}

func NewCredentialHandler(svc CredentialService) *CredentialHandler {
	return &CredentialHandler{svc: svc}
}

type writeCredentialRequest struct {
	Password string `json:"password"`
	Mode     string `json:"mode"`
}

type loginRequest struct {
	UserID    uint   `json:"user_id"`
	Name      string `json:"name"`
	Password  string `json:"password"`
	CheckOnly bool   `json:"check_only"`
}

func (h *CredentialHandler) CreateOrUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserIDParam(w, r)
	if !ok {
		return
	}
	var body writeCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	mode, err := credential.ParseWriteMode(body.Mode)
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid mode", map[string]any{
			"allowed": []string{"create_or_update", "create_only", "update_only"},
		})
		return
	}
	actor := middleware.ActorFromContext(r.Context())
	outcome, err := h.svc.CreateOrUpdate(r.Context(), actor, userID, body.Password, mode)
	h.writeOutcome(w, r, "credential.write", actor, userID, mode, outcome, err)
}

func (h *CredentialHandler) SetPassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserIDParam(w, r)
	if !ok {
		return
	}
	var body writeCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	actor := middleware.ActorFromContext(r.Context())
	outcome, err := h.svc.SetPassword(r.Context(), actor, userID, body.Password)
	h.writeOutcome(w, r, "credential.password.set", actor, userID, credential.ModeUpdateOnly, outcome, err)
}

func (h *CredentialHandler) Destroy(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserIDParam(w, r)
	if !ok {
		return
	}
	actor := middleware.ActorFromContext(r.Context())
	if err := h.svc.Destroy(r.Context(), actor, userID); err != nil {
		if errors.Is(err, credential.ErrUnknownUser) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "user not found", nil)
			return
		}
		slog.ErrorContext(r.Context(), "destroy credential failed", "user_id", userID, "error", err)
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to destroy credential", nil)
		return
	}
	observability.Audit(r.Context(), observability.AuditInput{
		EventName:   "credential.destroyed",
		ActorUserID: actor,
		TargetID:    userID,
		Action:      "destroy",
		Outcome:     "success",
	})
	response.NoContent(w)
}

func (h *CredentialHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if (body.UserID == 0) == (body.Name == "") {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "exactly one of user_id or name is required", nil)
		return
	}

	var (
		res credential.LoginResult
		err error
	)
	if body.UserID != 0 {
		res, err = h.svc.LoginByUserID(r.Context(), body.UserID, body.Password, !body.CheckOnly)
	} else {
		res, err = h.svc.LoginByName(r.Context(), body.Name, body.Password, !body.CheckOnly)
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "login failed", "error", err)
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "login unavailable", nil)
		return
	}

	action := "login"
	if body.CheckOnly {
		action = "check_login"
	}
	if !res.Succeeded {
		observability.Audit(r.Context(), observability.AuditInput{
			EventName: "credential.login",
			TargetID:  res.UserID,
			Action:    action,
			Outcome:   "failure",
			Reason:    res.Failure.String(),
		})
		response.Error(w, r, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid credentials", nil)
		return
	}
	observability.Audit(r.Context(), observability.AuditInput{
		EventName:   "credential.login",
		ActorUserID: res.UserID,
		TargetID:    res.UserID,
		Action:      action,
		Outcome:     "success",
	})
	response.JSON(w, r, http.StatusOK, map[string]any{"user_id": res.UserID, "check_only": body.CheckOnly})
}

func (h *CredentialHandler) writeOutcome(w http.ResponseWriter, r *http.Request, event string, actor, userID uint, mode credential.Mode, outcome credential.Outcome, err error) {
	switch {
	case errors.Is(err, credential.ErrEmptyPassword):
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "password must not be empty", nil)
		return
	case errors.Is(err, credential.ErrInvalidMode):
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid mode", nil)
		return
	case errors.Is(err, credential.ErrUnknownUser):
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "user not found", nil)
		return
	case err != nil:
		slog.ErrorContext(r.Context(), "write credential failed", "user_id", userID, "mode", mode.String(), "error", err)
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to write credential", nil)
		return
	}

	audit := observability.AuditInput{
		EventName:   event,
		ActorUserID: actor,
		TargetID:    userID,
		Action:      mode.String(),
		Outcome:     "success",
	}
	if !outcome.Operation.Mutated() {
		audit.Outcome = "rejected"
		audit.Reason = "mode_not_applicable"
		observability.Audit(r.Context(), audit)
		response.Error(w, r, http.StatusConflict, "CONFLICT", "credential not written for mode", map[string]any{"mode": mode.String()})
		return
	}
	observability.Audit(r.Context(), audit)

	status := http.StatusOK
	if outcome.Operation == credential.OperationCreated {
		status = http.StatusCreated
	}
	response.JSON(w, r, status, map[string]any{"user_id": userID, "operation": outcome.Operation.String()})
}

func parseUserIDParam(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "userID"), 10, 32)
	if err != nil || id == 0 {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid user id", nil)
		return 0, false
	}
	return uint(id), true
}
