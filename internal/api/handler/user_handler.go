package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/admin-console/internal/core/domain"
	"github.com/99minutos/admin-console/internal/core/ports"
)

// UserHandler handles the admin user-management routes.
type UserHandler struct {
	registry ports.UserRegistry
}

func NewUserHandler(registry ports.UserRegistry) *UserHandler {
	return &UserHandler{registry: registry}
}

type listResult struct {
	list ports.UserList
	err  error
}

// List handles GET /v1/users. A client that disconnects detaches from the
// fetch; the fetch itself still completes and fills the cache.
//
// An If-None-Match carrying a generation that is not stale yields 304.
//
// @Summary      List users
// @Tags         users
// @Produce      json
// @Param        If-None-Match  header    string  false  "ETag of a previous list"
// @Success      200            {object}  listUsersResponse
// @Success      304
// @Failure      401            {object}  errorResponse
// @Failure      403            {object}  errorResponse
// @Failure      503            {object}  errorResponse
// @Router       /v1/users [get]
func (h *UserHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	if gen, ok := parseETag(c.Request().Header.Get("If-None-Match")); ok && !h.registry.Stale(ctx, gen) {
		return c.NoContent(http.StatusNotModified)
	}

	results := make(chan listResult, 1)
	detach := h.registry.ListAsync(ctx, func(l ports.UserList, err error) {
		results <- listResult{list: l, err: err}
	})

	var res listResult
	select {
	case res = <-results:
	case <-ctx.Done():
		detach()
		return ctx.Err()
	}
	if res.err != nil {
		return res.err
	}

	users := make([]userResponse, 0, len(res.list.Users))
	for _, u := range res.list.Users {
		users = append(users, *toUserResponse(u))
	}
	if res.list.Generation > 0 {
		c.Response().Header().Set("ETag", etag(res.list.Generation))
	}
	return c.JSON(http.StatusOK, listUsersResponse{Users: users, Generation: res.list.Generation})
}

// Get handles GET /v1/users/:id.
//
// @Summary      Get a user
// @Tags         users
// @Produce      json
// @Param        id   path      string  true  "User id"
// @Success      200  {object}  userResponse
// @Failure      404  {object}  errorResponse
// @Failure      503  {object}  errorResponse
// @Router       /v1/users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	user, err := h.registry.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	if user == nil {
		return domain.ErrNotFound
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// Create handles POST /v1/users. Roles other than "admin" are stored as "user".
//
// @Summary      Create a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      createUserRequest  true  "New user"
// @Success      201   {object}  userResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /v1/users [post]
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.registry.Save(c.Request().Context(), domain.NewUserInput{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		PhotoURL:    req.PhotoURL,
		Role:        req.Role,
	})
	if err != nil {
		return err
	}

	c.Response().Header().Set(echo.HeaderLocation, "/v1/users/"+user.ID)
	return c.JSON(http.StatusCreated, toUserResponse(user))
}

// UpdateRole handles PATCH /v1/users/:id/role.
//
// @Summary      Change a user's role
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id    path      string             true  "User id"
// @Param        body  body      updateRoleRequest  true  "New role"
// @Success      200   {object}  userResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /v1/users/{id}/role [patch]
func (h *UserHandler) UpdateRole(c echo.Context) error {
	var req updateRoleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	id := c.Param("id")
	if err := h.registry.UpdateRole(ctx, id, req.Role); err != nil {
		return err
	}

	user, err := h.registry.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if user == nil {
		// deleted between the update and the read
		return domain.ErrNotFound
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// Delete handles DELETE /v1/users/:id. Deleting an unknown id succeeds.
//
// @Summary      Delete a user
// @Tags         users
// @Param        id  path  string  true  "User id"
// @Success      204
// @Failure      503  {object}  errorResponse
// @Router       /v1/users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	if err := h.registry.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func etag(generation uint64) string {
	return fmt.Sprintf(`W/"users-%d"`, generation)
}

func parseETag(v string) (uint64, bool) {
	v = strings.TrimPrefix(strings.TrimSpace(v), "W/")
	v = strings.Trim(v, `"`)
	n, err := strconv.ParseUint(strings.TrimPrefix(v, "users-"), 10, 64)
	if err != nil || !strings.HasPrefix(v, "users-") {
		return 0, false
	}
	return n, true
}
