package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/platform_jasa/internal/apperr"
	"github.com/Windi-Fikriyansyah/platform_jasa/internal/middleware"
	"github.com/Windi-Fikriyansyah/platform_jasa/internal/models"
	"github.com/Windi-Fikriyansyah/platform_jasa/internal/services/accounts"
	"github.com/Windi-Fikriyansyah/platform_jasa/internal/services/catalog"
	"github.com/Windi-Fikriyansyah/platform_jasa/internal/utils"
)

type AuthHandler struct {
	Accounts     *accounts.Accounts
	JWTSecret    string
	Expires      int
	SecureCookie bool
}

type RegisterReq struct {
	Username  string `json:"username" form:"username"`
	Email     string `json:"email" form:"email"`
	Password  string `json:"password" form:"password"`
	Role      string `json:"role" form:"role"`
	FirstName string `json:"first_name" form:"first_name"`
	LastName  string `json:"last_name" form:"last_name"`

	// either a list of objects or three parallel form arrays
	Services        []catalog.ServiceLine `json:"services" form:"-"`
	ServiceName     []string              `json:"service_name" form:"service_name"`
	ServiceCategory []string              `json:"service_category" form:"service_category"`
	ServicePrice    []string              `json:"service_price" form:"service_price"`
}

// lines zips the parallel arrays; a missing column reads as empty.
func (r RegisterReq) lines() []catalog.ServiceLine {
	out := append([]catalog.ServiceLine(nil), r.Services...)
	n := max(len(r.ServiceName), len(r.ServiceCategory), len(r.ServicePrice))
	at := func(s []string, i int) string {
		if i < len(s) {
			return s[i]
		}
		return ""
	}
	for i := 0; i < n; i++ {
		out = append(out, catalog.ServiceLine{
			Name:     at(r.ServiceName, i),
			Category: at(r.ServiceCategory, i),
			Price:    at(r.ServicePrice, i),
		})
	}
	return out
}

func userView(u *models.User) fiber.Map {
	return fiber.Map{
		"id":           u.ID,
		"username":     u.Username,
		"email":        u.Email,
		"first_name":   u.FirstName,
		"last_name":    u.LastName,
		"full_name":    u.FullName(),
		"phone_number": u.PhoneNumber,
		"address":      u.Address,
		"roles":        u.Roles(),
	}
}

func (h *AuthHandler) setSession(c *fiber.Ctx, u *models.User) error {
	token, err := utils.SignJWT(h.JWTSecret, u.ID.String(), u.Roles(), h.Expires)
	if err != nil {
		return err
	}
	c.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		Secure:   h.SecureCookie,
		SameSite: "Lax",
		MaxAge:   h.Expires * 60,
	})
	return nil
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterReq
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	res, err := h.Accounts.Register(c.UserContext(), accounts.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		Role:      req.Role,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Services:  req.lines(),
	})
	if err != nil {
		return fail(c, err)
	}

	if err := h.setSession(c, res.User); err != nil {
		return fail(c, apperr.Internal(err))
	}

	msg := "Registration successful"
	if res.User.IsProvider && len(res.ServicesCreated) > 0 {
		msg = "Registration successful! Your services have been added."
	}
	return ok(c, fiber.StatusCreated, msg, fiber.Map{
		"user":             userView(res.User),
		"services_created": res.ServicesCreated,
		"services_skipped": res.ServicesSkipped,
	})
}

type LoginReq struct {
	Login    string `json:"login" form:"login"`
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginReq
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	login := strings.TrimSpace(req.Login)
	if login == "" {
		login = strings.TrimSpace(req.Username)
	}
	if login == "" {
		login = strings.TrimSpace(req.Email)
	}

	errs := apperr.FieldErrors{}
	if login == "" {
		errs.Add("login", "Username or email is required")
	}
	if req.Password == "" {
		errs.Add("password", "Password is required")
	}
	if !errs.Empty() {
		return fail(c, apperr.Validation("Validation error", errs))
	}

	u, err := h.Accounts.Authenticate(c.UserContext(), login, req.Password)
	if err != nil {
		return fail(c, err)
	}
	if err := h.setSession(c, u); err != nil {
		return fail(c, apperr.Internal(err))
	}

	return ok(c, fiber.StatusOK, "Welcome back, "+u.Username+"!", fiber.Map{"user": userView(u)})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   h.SecureCookie,
		SameSite: "Lax",
	})

	return ok(c, fiber.StatusOK, "You have been logged out.", nil)
}
