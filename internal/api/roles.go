package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/accounthub/internal/audit"
	"github.com/nerrad567/accounthub/internal/auth"
)

type createRoleRequest struct {
	Name string `json:"name"`
}

type updateRoleRequest struct {
	Name string `json:"name"`
}

type assignRoleRequest struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// handleListRoles returns all roles.
func (s *Server) handleListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := s.roles.List(r.Context())
	if err != nil {
		s.logger.Error("list roles failed", "error", err)
		writeFailure(w, http.StatusInternalServerError, "Failed execute task", nil)
		return
	}

	writeSuccess(w, http.StatusOK, "Success listed all role", roles)
}

// handleCreateRole creates a new role. Names are stored uppercased so the
// label space stays flat — "editor" and "EDITOR" are the same role.
func (s *Server) handleCreateRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFormErrors(w, []fieldError{{Type: "body", Detail: "invalid JSON body"}})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeFormErrors(w, []fieldError{{Type: "name", Detail: "Role name is required"}})
		return
	}

	role := &auth.Role{Name: strings.ToUpper(strings.TrimSpace(req.Name))}
	if err := s.roles.Create(r.Context(), role); err != nil {
		s.writeAuthError(w, "Failed create role", err)
		return
	}

	writeSuccess(w, http.StatusOK, fmt.Sprintf("Success created role of %s", role.Name), role)
}

// handleRoleDetail returns one role by ID.
func (s *Server) handleRoleDetail(w http.ResponseWriter, r *http.Request) {
	role, err := s.roles.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeAuthError(w, "Failed get role", err)
		return
	}

	writeSuccess(w, http.StatusOK, fmt.Sprintf("Success get detail of %s", role.Name), role)
}

// handleUpdateRole renames a role.
func (s *Server) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	var req updateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFormErrors(w, []fieldError{{Type: "body", Detail: "invalid JSON body"}})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeFormErrors(w, []fieldError{{Type: "name", Detail: "Role name is required"}})
		return
	}

	id := chi.URLParam(r, "id")
	name := strings.ToUpper(strings.TrimSpace(req.Name))

	if err := s.roles.Update(r.Context(), id, name); err != nil {
		s.writeAuthError(w, "Failed update role", err)
		return
	}

	role, err := s.roles.GetByID(r.Context(), id)
	if err != nil {
		s.writeAuthError(w, "Failed update role", err)
		return
	}

	writeSuccess(w, http.StatusOK, fmt.Sprintf("Success updated role of %s", role.Name), role)
}

// handleDeleteRole removes a role. Fails while any principal still holds it.
func (s *Server) handleDeleteRole(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	role, err := s.roles.GetByID(r.Context(), id)
	if err != nil {
		s.writeAuthError(w, "Failed delete role", err)
		return
	}

	if err := s.roles.Delete(r.Context(), id); err != nil {
		s.writeAuthError(w, "Failed delete role", err)
		return
	}

	writeSuccess(w, http.StatusOK, fmt.Sprintf("Success deleted role of %s", role.Name), role)
}

// handleAssignRole assigns a role to a user by username.
func (s *Server) handleAssignRole(w http.ResponseWriter, r *http.Request) {
	var req assignRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFormErrors(w, []fieldError{{Type: "body", Detail: "invalid JSON body"}})
		return
	}

	var fields []fieldError
	if req.Username == "" {
		fields = append(fields, fieldError{Type: "username", Detail: "Username is required"})
	}
	if req.Role == "" {
		fields = append(fields, fieldError{Type: "role", Detail: "Role is required"})
	}
	if len(fields) > 0 {
		writeFormErrors(w, fields)
		return
	}

	user, err := s.users.GetByUsername(r.Context(), req.Username)
	if err != nil {
		s.writeAuthError(w, "Failed update user", err)
		return
	}

	role, err := s.roles.GetByName(r.Context(), req.Role)
	if err != nil {
		s.writeAuthError(w, "Failed update user", err)
		return
	}

	if err := s.users.SetRole(r.Context(), user.ID, role.ID); err != nil {
		s.writeAuthError(w, "Failed update user", err)
		return
	}

	actor := principalFromContext(r.Context())
	s.auditEvent(r, audit.EventRoleAssigned, actor.ID, user.ID, map[string]any{
		"username": user.Username,
		"role":     role.Name,
	})

	writeSuccess(w, http.StatusCreated, "Success update user", map[string]any{
		"id":       user.ID,
		"username": user.Username,
		"role":     role.Name,
	})
}
