// Package api exposes the account operations over HTTP with fiber.
package api

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/skfsd/go-auth"
	"github.com/skfsd/go-auth/middleware/jwtware"
)

// ErrInvalidBody request body is not the expected JSON
var ErrInvalidBody = auth.NewError(auth.CategoryBadInput, "INVALID_BODY", "Invalid request body.")

// Accounts is the account service as seen by the controller
type Accounts interface {
	Register(ctx context.Context, req auth.RegisterRequest) (*auth.User, error)
	Login(ctx context.Context, email, password string) (*auth.LoginResult, error)
	UpdateProfile(ctx context.Context, actorID string, id uuid.UUID, upd auth.ProfileUpdate) (*auth.User, error)
	ListUsers(ctx context.Context) ([]*auth.User, error)
	DeleteUser(ctx context.Context, actorID string, id uuid.UUID) error
}

var _ Accounts = (*auth.AccountService)(nil)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UsersControllerRoutes struct {
	Register string
	Login    string
	Me       string
	List     string
	Update   string
	Delete   string
}

type UsersController struct {
	Accounts Accounts
	Logger   auth.Logger
	Routes   *UsersControllerRoutes
}

type UsersControllerOption func(*UsersController) *UsersController

func WithLogger(logger auth.Logger) UsersControllerOption {
	return func(uc *UsersController) *UsersController {
		if logger != nil {
			uc.Logger = logger
		}
		return uc
	}
}

func NewUsersController(accounts Accounts, opts ...UsersControllerOption) *UsersController {
	uc := &UsersController{
		Accounts: accounts,
		Logger:   auth.DefaultLogger(),
		Routes: &UsersControllerRoutes{
			Register: "/register",
			Login:    "/login",
			Me:       "/me",
			List:     "/",
			Update:   "/:id",
			Delete:   "/:id",
		},
	}
	for _, opt := range opts {
		if opt != nil {
			uc = opt(uc)
		}
	}
	return uc
}

// RegisterRoutes mounts the users API on r. protect is the authentication
// middleware, role checks are added per route.
func RegisterRoutes(r fiber.Router, uc *UsersController, protect fiber.Handler) {
	r.Post(uc.Routes.Register, uc.Register)
	r.Post(uc.Routes.Login, uc.Login)
	r.Get(uc.Routes.Me, protect, uc.Me)
	r.Get(uc.Routes.List, protect, jwtware.Authorize(auth.RoleAdmin, auth.RoleSupervisor), uc.List)
	r.Patch(uc.Routes.Update, protect, jwtware.SelfOrRoles("id", auth.RoleAdmin), uc.Update)
	r.Delete(uc.Routes.Delete, protect, jwtware.Authorize(auth.RoleAdmin), uc.Delete)
}

func (uc *UsersController) Register(c *fiber.Ctx) error {
	var req auth.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return uc.fail(c, ErrInvalidBody.WithSource(err), "Server error during registration.")
	}

	user, err := uc.Accounts.Register(c.UserContext(), req)
	if err != nil {
		return uc.fail(c, err, "Server error during registration.")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully!",
		"user":    user,
	})
}

func (uc *UsersController) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return uc.fail(c, auth.ErrMissingCredentials.WithSource(err), "Server error during login.")
	}

	res, err := uc.Accounts.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return uc.fail(c, err, "Server error during login.")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Login successful!",
		"token":   res.Token,
		"user":    res.User,
	})
}

// Me returns the record the authentication middleware resolved
func (uc *UsersController) Me(c *fiber.Ctx) error {
	user, ok := jwtware.CurrentUser(c)
	if !ok {
		return uc.fail(c, auth.ErrNoToken, "Server error.")
	}
	return c.Status(fiber.StatusOK).JSON(user.Sanitized())
}

func (uc *UsersController) List(c *fiber.Ctx) error {
	users, err := uc.Accounts.ListUsers(c.UserContext())
	if err != nil {
		return uc.fail(c, err, "Server error.")
	}
	return c.Status(fiber.StatusOK).JSON(users)
}

func (uc *UsersController) Update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uc.fail(c, auth.ErrNotFound.WithSource(err), "Server error during update.")
	}

	upd, err := auth.ParseProfileUpdate(c.Body())
	if err != nil {
		return uc.fail(c, err, "Server error during update.")
	}

	user, err := uc.Accounts.UpdateProfile(c.UserContext(), actorID(c), id, upd)
	if err != nil {
		return uc.fail(c, err, "Server error during update.")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "User updated successfully!",
		"user":    user,
	})
}

func (uc *UsersController) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uc.fail(c, auth.ErrNotFound.WithSource(err), "Server error.")
	}

	if err := uc.Accounts.DeleteUser(c.UserContext(), actorID(c), id); err != nil {
		return uc.fail(c, err, "Server error.")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "User deleted successfully.",
	})
}

// fail renders err as {"message": ...}. Internal errors are logged and
// answered with fallback.
func (uc *UsersController) fail(c *fiber.Ctx, err error, fallback string) error {
	status := auth.HTTPStatus(err)
	if status == fiber.StatusInternalServerError {
		uc.Logger.Error("users api", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return c.Status(status).JSON(fiber.Map{
		"message": auth.PublicMessage(err, fallback),
	})
}

func actorID(c *fiber.Ctx) string {
	if user, ok := jwtware.CurrentUser(c); ok {
		return user.ID.String()
	}
	return ""
}
