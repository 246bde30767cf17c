package account

import (
	"fmt"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	router "github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// RegisterAccountRoutes mounts the account endpoints on the app. The
// settings group requires a session; the admin group requires the admin
// role on top.
func RegisterAccountRoutes[T any](app router.Router[T], opts ...AccountControllerOption) {

	controller := NewAccountController(opts...)

	guard := RequireSession(controller.Sessions, controller.renderError)
	admin := RequireAdmin(controller.Sessions, controller.Repo.Users(), controller.renderError)

	app.Post(controller.Routes.PasswordReset, controller.PasswordResetRequest).
		SetName("account.pwd-reset.post")
	app.Post(controller.Routes.PasswordResetConfirm, controller.PasswordResetConfirm).
		SetName("account.pwd-reset-confirm.post")

	app.Post(controller.Routes.SettingsVerify, guard(controller.VerifyPassword)).
		SetName("account.settings-verify.post")
	app.Post(controller.Routes.SettingsEmail, guard(controller.ChangeEmail)).
		SetName("account.settings-email.post")
	app.Post(controller.Routes.SettingsPassword, guard(controller.ChangePassword)).
		SetName("account.settings-password.post")
	app.Post(controller.Routes.SettingsUsername, guard(controller.ChangeUsername)).
		SetName("account.settings-username.post")
	app.Delete(controller.Routes.SettingsAccount, guard(controller.DeleteAccount)).
		SetName("account.settings-account.delete")

	app.Get(controller.Routes.AdminUsers, admin(controller.AdminListUsers)).
		SetName("account.admin-users.get")
	app.Put(controller.Routes.AdminUsersRole, admin(controller.AdminAssignRole)).
		SetName("account.admin-users-role.put")
	app.Delete(controller.Routes.AdminUsers, admin(controller.AdminDeleteUsers)).
		SetName("account.admin-users.delete")
}

type AccountControllerRoutes struct {
	PasswordReset        string
	PasswordResetConfirm string
	SettingsVerify       string
	SettingsEmail        string
	SettingsPassword     string
	SettingsUsername     string
	SettingsAccount      string
	AdminUsers           string
	AdminUsersRole       string
}

type AccountController struct {
	Debug    bool
	Logger   Logger
	Repo     RepositoryManager
	Notifier Notifier
	Activity ActivitySink
	Sessions SessionResolver
	Pricing  PricingConfig
	Routes   *AccountControllerRoutes
}

type AccountControllerOption func(*AccountController) *AccountController

func WithControllerLogger(logger Logger) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Logger = logger
		return c
	}
}

func WithControllerRepo(repo RepositoryManager) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Repo = repo
		return c
	}
}

func WithControllerNotifier(n Notifier) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Notifier = normalizeNotifier(n)
		return c
	}
}

func WithControllerActivitySink(sink ActivitySink) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Activity = normalizeActivitySink(sink)
		return c
	}
}

func WithControllerSessionResolver(resolver SessionResolver) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Sessions = resolver
		return c
	}
}

func WithControllerPricing(pricing PricingConfig) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Pricing = pricing
		return c
	}
}

func WithControllerDebug(debug bool) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Debug = debug
		return c
	}
}

func NewAccountController(opts ...AccountControllerOption) *AccountController {
	c := &AccountController{
		Logger:   defLogger{},
		Notifier: noopNotifier{},
		Activity: noopActivitySink{},
		Pricing:  DefaultPricingConfig,
		Routes: &AccountControllerRoutes{
			PasswordReset:        "/password-reset",
			PasswordResetConfirm: "/password-reset/confirm",
			SettingsVerify:       "/settings/password/verify",
			SettingsEmail:        "/settings/email",
			SettingsPassword:     "/settings/password",
			SettingsUsername:     "/settings/username",
			SettingsAccount:      "/settings/account",
			AdminUsers:           "/admin/users",
			AdminUsersRole:       "/admin/users/role",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in account controller...")
	}

	if c.Sessions == nil {
		panic("Missing SessionResolver in account controller...")
	}

	return c
}

// PasswordResetRequestPayload asks for a reset code by email.
type PasswordResetRequestPayload struct {
	Email string `form:"email" json:"email"`
}

// Validate will run validation rules
func (r PasswordResetRequestPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
	)
}

func (a *AccountController) PasswordResetRequest(ctx router.Context) error {
	payload := new(PasswordResetRequestPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.renderBindError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.renderValidationError(ctx, err)
	}

	if a.Debug {
		fmt.Println("======= PASSWORD RESET ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("=============================")
	}

	handler := NewRequestPasswordResetHandler(a.Repo).
		WithNotifier(a.Notifier).
		WithActivitySink(a.Activity).
		WithLogger(a.Logger)

	req := RequestPasswordResetMessage{Email: payload.Email}

	if err := handler.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("password reset request error: %v", err)
		return a.renderError(ctx, err)
	}

	// same response whether or not the address exists
	return ctx.JSON(fiber.StatusOK, map[string]string{
		"message": "A verification code was sent if the address is registered",
	})
}

// PasswordResetConfirmPayload replaces a password using the current one.
type PasswordResetConfirmPayload struct {
	Email           string `form:"email" json:"email"`
	CurrentPassword string `form:"current_password" json:"current_password"`
	NewPassword     string `form:"new_password" json:"new_password"`
}

// Validate will run validation rules
func (r PasswordResetConfirmPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.CurrentPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(10, 100)),
	)
}

func (a *AccountController) PasswordResetConfirm(ctx router.Context) error {
	payload := new(PasswordResetConfirmPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.renderBindError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.renderValidationError(ctx, err)
	}

	handler := NewResetPasswordHandler(a.Repo).
		WithLogger(a.Logger)

	req := ResetPasswordMessage{
		Email:           payload.Email,
		CurrentPassword: payload.CurrentPassword,
		NewPassword:     payload.NewPassword,
	}

	if err := handler.Execute(ctx.Context(), req); err != nil {
		return a.renderError(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{"success": true})
}

// VerifyPasswordPayload starts a settings mutation by confirming the
// current password.
type VerifyPasswordPayload struct {
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r VerifyPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *AccountController) VerifyPassword(ctx router.Context) error {
	session, ok := SessionFromContext(ctx.Context())
	if !ok {
		return a.renderError(ctx, ErrUnauthorized)
	}

	payload := new(VerifyPasswordPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.renderBindError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.renderValidationError(ctx, err)
	}

	var res *VerifyPasswordResponse

	handler := NewVerifyPasswordHandler(a.Repo).
		WithNotifier(a.Notifier).
		WithActivitySink(a.Activity).
		WithLogger(a.Logger)

	req := VerifyPasswordMessage{
		Session:  session,
		Password: payload.Password,
		OnResponse: func(resp *VerifyPasswordResponse) {
			res = resp
		},
	}

	if err := handler.Execute(ctx.Context(), req); err != nil {
		return a.renderError(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"success":    true,
		"expires_at": res.ExpiresAt,
	})
}

// ChangeEmailPayload carries the target email and verification code.
type ChangeEmailPayload struct {
	Email string `form:"email" json:"email"`
	Code  string `form:"code" json:"code"`
}

// Validate will run validation rules
func (r ChangeEmailPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Code, validation.Required, validation.Length(6, 6), is.Digit),
	)
}

func (a *AccountController) ChangeEmail(ctx router.Context) error {
	session, ok := SessionFromContext(ctx.Context())
	if !ok {
		return a.renderError(ctx, ErrUnauthorized)
	}

	payload := new(ChangeEmailPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.renderBindError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.renderValidationError(ctx, err)
	}

	handler := NewChangeEmailHandler(a.Repo).
		WithNotifier(a.Notifier).
		WithActivitySink(a.Activity).
		WithLogger(a.Logger)

	req := ChangeEmailMessage{
		Session:  session,
		NewEmail: payload.Email,
		Code:     payload.Code,
	}

	if err := handler.Execute(ctx.Context(), req); err != nil {
		return a.renderError(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{"success": true})
}

// ChangePasswordPayload carries the replacement password and code.
type ChangePasswordPayload struct {
	Password string `form:"password" json:"password"`
	Code     string `form:"code" json:"code"`
}

// Validate will run validation rules
func (r ChangePasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(&r.Code, validation.Required, validation.Length(6, 6), is.Digit),
	)
}

func (a *AccountController) ChangePassword(ctx router.Context) error {
	session, ok := SessionFromContext(ctx.Context())
	if !ok {
		return a.renderError(ctx, ErrUnauthorized)
	}

	payload := new(ChangePasswordPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.renderBindError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.renderValidationError(ctx, err)
	}

	handler := NewChangePasswordHandler(a.Repo).
		WithNotifier(a.Notifier).
		WithActivitySink(a.Activity).
		WithLogger(a.Logger)

	req := ChangePasswordMessage{
		Session:  session,
		Password: payload.Password,
		Code:     payload.Code,
	}

	if err := handler.Execute(ctx.Context(), req); err != nil {
		return a.renderError(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{"success": true})
}

// ChangeUsernamePayload carries the new username; the code is optional
// for accounts backed by an external provider.
type ChangeUsernamePayload struct {
	Username string `form:"username" json:"username"`
	Code     string `form:"code" json:"code"`
}

// Validate will run validation rules
func (r ChangeUsernamePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(3, 40)),
		validation.Field(&r.Code, validation.Length(6, 6), is.Digit),
	)
}

func (a *AccountController) ChangeUsername(ctx router.Context) error {
	session, ok := SessionFromContext(ctx.Context())
	if !ok {
		return a.renderError(ctx, ErrUnauthorized)
	}

	payload := new(ChangeUsernamePayload)

	if err := ctx.Bind(payload); err != nil {
		return a.renderBindError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.renderValidationError(ctx, err)
	}

	handler := NewChangeUsernameHandler(a.Repo).
		WithNotifier(a.Notifier).
		WithActivitySink(a.Activity).
		WithLogger(a.Logger)

	req := ChangeUsernameMessage{
		Session:  session,
		Username: payload.Username,
		Code:     payload.Code,
	}

	if err := handler.Execute(ctx.Context(), req); err != nil {
		return a.renderError(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{"success": true})
}

func (a *AccountController) DeleteAccount(ctx router.Context) error {
	session, ok := SessionFromContext(ctx.Context())
	if !ok {
		return a.renderError(ctx, ErrUnauthorized)
	}

	var res *DeleteAccountResponse

	handler := NewDeleteAccountHandler(a.Repo).
		WithNotifier(a.Notifier).
		WithActivitySink(a.Activity).
		WithLogger(a.Logger)

	req := DeleteAccountMessage{
		Session: session,
		OnResponse: func(resp *DeleteAccountResponse) {
			res = resp
		},
	}

	if err := handler.Execute(ctx.Context(), req); err != nil {
		return a.renderError(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"success":  true,
		"redirect": res.Redirect,
	})
}

func (a *AccountController) AdminListUsers(ctx router.Context) error {
	filter := DirectoryFilter{
		Name:      ctx.Query("name", ""),
		ProOnly:   queryFlag(ctx, "pro_only"),
		AdminOnly: queryFlag(ctx, "admin_only"),
	}

	users, err := a.Repo.Users().ListWithSubscriptions(ctx.Context())
	if err != nil {
		a.Logger.Error("admin user listing error: %v", err)
		return a.renderError(ctx, err)
	}

	stats := ComputeDirectoryStats(users, a.Pricing, time.Now())

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"users": filter.Apply(users),
		"stats": stats,
	})
}

// AssignRolePayload reassigns a single user's role.
type AssignRolePayload struct {
	UserID string `form:"user_id" json:"user_id"`
	Role   string `form:"role" json:"role"`
}

// Validate will run validation rules
func (r AssignRolePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.UserID, validation.Required, is.UUID),
		validation.Field(&r.Role, validation.Required),
	)
}

func (a *AccountController) AdminAssignRole(ctx router.Context) error {
	session, ok := SessionFromContext(ctx.Context())
	if !ok {
		return a.renderError(ctx, ErrUnauthorized)
	}

	payload := new(AssignRolePayload)

	if err := ctx.Bind(payload); err != nil {
		return a.renderBindError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.renderValidationError(ctx, err)
	}

	userID, err := uuid.Parse(payload.UserID)
	if err != nil {
		return a.renderValidationError(ctx, err)
	}

	handler := NewModifyRoleHandler(a.Repo).
		WithActivitySink(a.Activity).
		WithLogger(a.Logger)

	req := ModifyRoleMessage{
		Session: session,
		UserID:  userID,
		NewRole: payload.Role,
	}

	if err := handler.Execute(ctx.Context(), req); err != nil {
		return a.renderError(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{"success": true})
}

// DeleteUsersPayload removes the listed users.
type DeleteUsersPayload struct {
	UserIDs []string `form:"user_ids" json:"user_ids"`
}

// Validate will run validation rules
func (r DeleteUsersPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.UserIDs, validation.Each(is.UUID)),
	)
}

func (a *AccountController) AdminDeleteUsers(ctx router.Context) error {
	session, ok := SessionFromContext(ctx.Context())
	if !ok {
		return a.renderError(ctx, ErrUnauthorized)
	}

	payload := new(DeleteUsersPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.renderBindError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.renderValidationError(ctx, err)
	}

	ids := make([]uuid.UUID, 0, len(payload.UserIDs))
	for _, raw := range payload.UserIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return a.renderValidationError(ctx, err)
		}
		ids = append(ids, id)
	}

	handler := NewDeleteUsersHandler(a.Repo).
		WithActivitySink(a.Activity).
		WithLogger(a.Logger)

	req := DeleteUsersMessage{
		Session: session,
		UserIDs: ids,
	}

	if err := handler.Execute(ctx.Context(), req); err != nil {
		return a.renderError(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"success": true,
		"deleted": len(ids),
	})
}

func queryFlag(ctx router.Context, key string) bool {
	raw := ctx.Query(key, "")
	if raw == "" {
		return false
	}

	flag, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return flag
}

func (a *AccountController) renderBindError(ctx router.Context, err error) error {
	a.Logger.Error("payload bind error: %v", err)
	return ctx.JSON(fiber.StatusBadRequest, map[string]any{
		"error": "failed to parse request body",
	})
}

func (a *AccountController) renderValidationError(ctx router.Context, err error) error {
	a.Logger.Error("payload validation error: %v", err)
	return ctx.JSON(fiber.StatusBadRequest, map[string]any{
		"error":      "invalid request payload",
		"validation": FormatValidationErrorToMap(err),
	})
}

// renderError converts rich errors to the uniform JSON error shape.
// Internal detail stays in the logs.
func (a *AccountController) renderError(ctx router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	a.Logger.Info(
		"request error: message=%s category=%s text_code=%s",
		richErr.Message, richErr.Category, richErr.TextCode,
	)

	status := richErr.Code
	if status == 0 {
		status = fiber.StatusInternalServerError
	}

	body := map[string]any{"error": richErr.Message}
	if richErr.TextCode != "" {
		body["text_code"] = richErr.TextCode
	}

	return ctx.JSON(status, body)
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field to message map.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}

	if verrs, ok := err.(validation.Errors); ok {
		for field, ferr := range verrs {
			out[field] = ferr.Error()
		}
		return out
	}

	if err != nil {
		out["error"] = err.Error()
	}

	return out
}
