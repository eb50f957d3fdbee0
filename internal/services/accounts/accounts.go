package accounts

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/platform_jasa/internal/apperr"
	"github.com/Windi-Fikriyansyah/platform_jasa/internal/models"
	"github.com/Windi-Fikriyansyah/platform_jasa/internal/services/catalog"
	"github.com/Windi-Fikriyansyah/platform_jasa/internal/utils"
)

var (
	ErrInvalidCredentials = apperr.New(apperr.KindUnauthorized, "invalid username/email or password")
	ErrInactive           = apperr.New(apperr.KindForbidden, "account is not active")
	ErrUserNotFound       = apperr.New(apperr.KindNotFound, "user not found")
)

type Repository interface {
	FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindUserByLogin(ctx context.Context, login string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string, exclude uuid.UUID) (bool, error)
	HasAdmin(ctx context.Context) (bool, error)
	CreateUser(ctx context.Context, u *models.User) error
	SaveProfile(ctx context.Context, u *models.User) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
}

// ServiceCreator stores the service lines a provider submits at sign-up.
type ServiceCreator interface {
	CreateServices(ctx context.Context, provider *models.User, lines []catalog.ServiceLine) ([]models.Service, []catalog.SkippedLine)
}

type Accounts struct {
	repo     Repository
	services ServiceCreator
}

func New(repo Repository, services ServiceCreator) *Accounts {
	return &Accounts{repo: repo, services: services}
}

const minPasswordLen = 8

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type RegisterInput struct {
	Username  string                `json:"username"`
	Email     string                `json:"email"`
	Password  string                `json:"password"`
	Role      string                `json:"role"`
	FirstName string                `json:"first_name"`
	LastName  string                `json:"last_name"`
	Services  []catalog.ServiceLine `json:"services"`
}

type RegisterResult struct {
	User            *models.User          `json:"user"`
	ServicesCreated []models.Service      `json:"services_created"`
	ServicesSkipped []catalog.SkippedLine `json:"services_skipped"`
}

// Register creates a customer or provider. A provider's service lines are
// stored one by one; bad lines are skipped without failing the sign-up.
func (a *Accounts) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	role := strings.ToLower(strings.TrimSpace(in.Role))

	errs := apperr.FieldErrors{}
	switch {
	case username == "":
		errs.Add("username", "Username is required.")
	case len(username) < 3:
		errs.Add("username", "Username must be at least 3 characters long.")
	case len(username) > 150:
		errs.Add("username", "Username must be at most 150 characters long.")
	default:
		taken, err := a.repo.UsernameExists(ctx, username)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if taken {
			errs.Add("username", "A user with that username already exists.")
		}
	}

	switch {
	case email == "":
		errs.Add("email", "Email is required.")
	case !emailRe.MatchString(email):
		errs.Add("email", "Enter a valid email address.")
	default:
		taken, err := a.repo.EmailExists(ctx, email, uuid.Nil)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if taken {
			errs.Add("email", "A user with that email already exists.")
		}
	}

	if in.Password == "" {
		errs.Add("password", "Password is required.")
	} else if len(in.Password) < minPasswordLen {
		errs.Add("password", "Password must be at least 8 characters long.")
	}
	if role != models.RoleCustomer && role != models.RoleProvider {
		errs.Add("role", "Please select a valid role.")
	}
	if !errs.Empty() {
		return nil, apperr.Validation("Validation error", errs)
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	u := &models.User{
		Username:   username,
		Email:      email,
		Password:   hash,
		FirstName:  strings.TrimSpace(in.FirstName),
		LastName:   strings.TrimSpace(in.LastName),
		IsCustomer: role == models.RoleCustomer,
		IsProvider: role == models.RoleProvider,
		IsActive:   true,
	}
	if err := a.repo.CreateUser(ctx, u); err != nil {
		if utils.IsUniqueViolation(err) {
			errs.Add("username", "A user with that username or email already exists.")
			return nil, apperr.Validation("Validation error", errs)
		}
		return nil, apperr.Internal(err)
	}

	res := &RegisterResult{User: u, ServicesCreated: []models.Service{}}
	if u.IsProvider && len(in.Services) > 0 {
		res.ServicesCreated, res.ServicesSkipped = a.services.CreateServices(ctx, u, in.Services)
	}
	log.Info().Str("user_id", u.ID.String()).Str("role", role).Int("services", len(res.ServicesCreated)).Msg("user registered")
	return res, nil
}

// Authenticate accepts a username or an email.
func (a *Accounts) Authenticate(ctx context.Context, login, password string) (*models.User, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		errs := apperr.FieldErrors{}
		if login == "" {
			errs.Add("username", "Username or email is required.")
		}
		if password == "" {
			errs.Add("password", "Password is required.")
		}
		return nil, apperr.Validation("Validation error", errs)
	}

	u, err := a.repo.FindUserByLogin(ctx, login)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !utils.CheckPassword(u.Password, password) {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrInactive
	}
	return u, nil
}

// Actor loads the current user for a token subject.
func (a *Accounts) Actor(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := a.repo.FindUserByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return u, nil
}

type ProfileInput struct {
	FirstName   string `json:"first_name" validate:"max=150"`
	LastName    string `json:"last_name" validate:"max=150"`
	Email       string `json:"email" validate:"required,email"`
	PhoneNumber string `json:"phone_number" validate:"max=15"`
	Address     string `json:"address"`
}

func (a *Accounts) UpdateProfile(ctx context.Context, actor *models.User, in ProfileInput) (*models.User, error) {
	if actor == nil {
		return nil, apperr.New(apperr.KindUnauthorized, "login required")
	}
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	in.Address = strings.TrimSpace(in.Address)

	if errs := utils.ValidateStruct(in); errs != nil {
		return nil, apperr.Validation("Validation error", errs)
	}
	taken, err := a.repo.EmailExists(ctx, in.Email, actor.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if taken {
		errs := apperr.FieldErrors{}
		errs.Add("email", "This email is already in use by another account.")
		return nil, apperr.Validation("Validation error", errs)
	}

	u := *actor
	u.FirstName, u.LastName = in.FirstName, in.LastName
	u.Email, u.PhoneNumber, u.Address = in.Email, in.PhoneNumber, in.Address
	if err := a.repo.SaveProfile(ctx, &u); err != nil {
		return nil, apperr.Internal(err)
	}
	return &u, nil
}

type PasswordInput struct {
	OldPassword     string `json:"old_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (a *Accounts) ChangePassword(ctx context.Context, actor *models.User, in PasswordInput) error {
	if actor == nil {
		return apperr.New(apperr.KindUnauthorized, "login required")
	}
	errs := apperr.FieldErrors{}
	switch {
	case !utils.CheckPassword(actor.Password, in.OldPassword):
		errs.Add("old_password", "Your old password was entered incorrectly.")
	case in.NewPassword == "":
		errs.Add("new_password", "New password is required.")
	case len(in.NewPassword) < minPasswordLen:
		errs.Add("new_password", "New password must be at least 8 characters long.")
	case in.NewPassword != in.ConfirmPassword:
		errs.Add("confirm_password", "New password and confirmation password do not match.")
	}
	if !errs.Empty() {
		return apperr.Validation("Validation error", errs)
	}

	hash, err := utils.HashPassword(in.NewPassword)
	if err != nil {
		return apperr.Internal(err)
	}
	if err := a.repo.UpdatePassword(ctx, actor.ID, hash); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// SignInWithGoogle finds the user by email or creates a customer account
// with an unusable random password.
func (a *Accounts) SignInWithGoogle(ctx context.Context, email, name string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, apperr.New(apperr.KindValidation, "Email not found from Google")
	}

	u, err := a.repo.FindUserByEmail(ctx, email)
	if err == nil {
		if !u.IsActive {
			return nil, ErrInactive
		}
		return u, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Internal(err)
	}

	username, err := a.freeUsername(ctx, strings.SplitN(email, "@", 2)[0])
	if err != nil {
		return nil, apperr.Internal(err)
	}
	hash, err := utils.HashPassword(randomToken(24))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	first, last, _ := strings.Cut(strings.TrimSpace(name), " ")
	u = &models.User{
		Username:   username,
		Email:      email,
		Password:   hash,
		FirstName:  first,
		LastName:   strings.TrimSpace(last),
		IsCustomer: true,
		IsActive:   true,
	}
	if err := a.repo.CreateUser(ctx, u); err != nil {
		return nil, apperr.Internal(err)
	}
	log.Info().Str("user_id", u.ID.String()).Msg("user created via google")
	return u, nil
}

func (a *Accounts) freeUsername(ctx context.Context, base string) (string, error) {
	base = strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '.' || r == '_' || r == '-' {
			return r
		}
		return -1
	}, strings.ToLower(base))
	if len(base) < 3 {
		base = "user" + base
	}
	candidate := base
	for i := 1; i < 100; i++ {
		taken, err := a.repo.UsernameExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%d", base, i)
	}
	return base + "_" + randomToken(6), nil
}

// SeedAdmin creates the administrator account when none exists yet.
func (a *Accounts) SeedAdmin(ctx context.Context, username, email, password string) error {
	if email == "" || password == "" {
		log.Warn().Msg("skipping admin seeding, ADMIN_EMAIL or ADMIN_PASSWORD not set")
		return nil
	}
	exists, err := a.repo.HasAdmin(ctx)
	if err != nil || exists {
		return err
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}
	u := &models.User{
		Username: username,
		Email:    strings.ToLower(email),
		Password: hash,
		IsAdmin:  true,
		IsActive: true,
	}
	if err := a.repo.CreateUser(ctx, u); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	log.Info().Str("email", u.Email).Msg("seeded admin user")
	return nil
}

func randomToken(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
