package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/researchtracker/internal/apiclient"
	"github.com/hitoshi/researchtracker/internal/model"
	"github.com/hitoshi/researchtracker/internal/service"
	"github.com/hitoshi/researchtracker/internal/session"
	"github.com/hitoshi/researchtracker/internal/view"
)

// AdminHandler は管理画面のハンドラー。
type AdminHandler struct {
	*pages
	services ServiceProvider
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(p *pages, services ServiceProvider) *AdminHandler {
	return &AdminHandler{pages: p, services: services}
}

// Panel はロール別の統計とユーザー一覧を表示する。
// GET /admin
func (h *AdminHandler) Panel(w http.ResponseWriter, r *http.Request) {
	store := storeFrom(r)
	data := view.AdminData{Roles: model.AllRoles()}

	users, err := h.services.ServicesFor(store).Admin.ListUsers(r.Context(), store.Role())
	if err != nil {
		if h.expired(w, r, err) {
			return
		}
		h.renderWithError(w, r, view.PageAdmin, "Admin Panel", "admin", data,
			apiclient.UserMessage(err, "Failed to load users."))
		return
	}

	data.Users = users
	data.Stats = service.Stats(users)
	h.render(w, r, view.PageAdmin, "Admin Panel", "admin", data)
}

// ChangeRole は対象ユーザーのロールを変更する。
// 対象がADMINの場合は変更のリクエストを送らずに拒否する。
// POST /admin/users/{id}/role
func (h *AdminHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	store := storeFrom(r)
	actor, _ := store.User()
	targetID := chi.URLParam(r, "id")

	newRole, err := model.ParseRole(r.PostFormValue("role"))
	if err != nil {
		h.fail(w, r, err, "Invalid role.", adminPath)
		return
	}

	updated, err := h.services.ServicesFor(store).Admin.ChangeRole(r.Context(), actor, targetID, newRole)
	if err != nil {
		h.fail(w, r, err, "Failed to update role.", adminPath)
		return
	}

	h.logger.Info("user role changed",
		slog.String("actor_id", actor.ID),
		slog.String("target_id", targetID),
		slog.String("role", string(newRole)),
	)
	name := updated.FullName
	if name == "" {
		name = targetID
	}
	h.redirect(w, r, session.FlashSuccess, fmt.Sprintf("Role of %s changed to %s.", name, newRole), adminPath)
}

// DeleteUser は対象ユーザーを削除する。ADMINは削除できない。
// POST /admin/users/{id}/delete
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	store := storeFrom(r)
	actor, _ := store.User()
	targetID := chi.URLParam(r, "id")

	if err := h.services.ServicesFor(store).Admin.DeleteUser(r.Context(), actor, targetID); err != nil {
		h.fail(w, r, err, "Failed to delete user.", adminPath)
		return
	}

	h.logger.Info("user deleted",
		slog.String("actor_id", actor.ID),
		slog.String("target_id", targetID),
	)
	h.redirect(w, r, session.FlashSuccess, "User deleted.", adminPath)
}
