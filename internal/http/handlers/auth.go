package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/geocoder89/dibs/internal/account"
	"github.com/geocoder89/dibs/internal/domain/user"
	"github.com/geocoder89/dibs/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type Accounts interface {
	Register(ctx context.Context, in account.RegisterInput) (user.User, string, error)
	ResendConfirmation(ctx context.Context, u user.User) (string, error)
	Authenticate(ctx context.Context, email, password string) (user.User, error)
	Confirm(ctx context.Context, u user.User, token string) (user.User, error)
	RequestPasswordReset(ctx context.Context, email string) (user.User, string, bool, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
	RequestEmailChange(ctx context.Context, u user.User, newEmail, password string) (string, error)
	ChangeEmail(ctx context.Context, u user.User, token string) (user.User, error)
	ChangePassword(ctx context.Context, u user.User, oldPassword, newPassword string) error
}

type AuthHandler struct {
	accounts Accounts
}

func NewAuthHandler(accounts Accounts) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

const (
	msgInvalidLogin    = "Invalid email or password."
	msgEmailTaken      = "Email already registered."
	msgUsernameTaken   = "Username already in use."
	msgBadConfirmation = "The confirmation link is invalid or has expired."
)

// safeNext only accepts local paths so the login form cannot bounce users
// to another site.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}
	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" {
		return ""
	}
	return next
}

func (h *AuthHandler) LoginPage(ctx *gin.Context) {
	render(ctx, http.StatusOK, "auth/login", "Login", gin.H{
		"Form": LoginForm{},
		"Next": safeNext(ctx.Query("next")),
	})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var form LoginForm
	next := safeNext(ctx.Query("next"))

	if errs, ok := BindForm(ctx, &form); !ok {
		render(ctx, http.StatusOK, "auth/login", "Login", gin.H{"Form": form, "Errors": errs, "Next": next})
		return
	}

	u, err := h.accounts.Authenticate(ctx.Request.Context(), form.Email, form.Password)
	if err != nil {
		if errors.Is(err, account.ErrInvalidCredentials) {
			middlewares.Flash(ctx, msgInvalidLogin)
			render(ctx, http.StatusOK, "auth/login", "Login", gin.H{"Form": form, "Next": next})
			return
		}
		RespondInternal(ctx, "auth.login_failed", err)
		return
	}

	if err := middlewares.Login(ctx, u, form.RememberMe); err != nil {
		RespondInternal(ctx, "auth.session_failed", err)
		return
	}

	if next == "" {
		next = "/"
	}
	redirect(ctx, next)
}

func (h *AuthHandler) Logout(ctx *gin.Context) {
	if err := middlewares.Logout(ctx); err != nil {
		RespondInternal(ctx, "auth.logout_failed", err)
		return
	}
	flashRedirect(ctx, "You have been logged out.", "/")
}

func (h *AuthHandler) RegisterPage(ctx *gin.Context) {
	render(ctx, http.StatusOK, "auth/register", "Register", gin.H{"Form": RegistrationForm{}})
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var form RegistrationForm

	errs, ok := BindForm(ctx, &form)
	if !ok {
		render(ctx, http.StatusOK, "auth/register", "Register", gin.H{"Form": form, "Errors": errs})
		return
	}

	_, _, err := h.accounts.Register(ctx.Request.Context(), account.RegisterInput{
		Email:    form.Email,
		Username: form.Username,
		Password: form.Password,
	})

	switch {
	case err == nil:
		flashRedirect(ctx, "A confirmation email has been sent to you by email.", "/auth/login")
	case errors.Is(err, user.ErrEmailTaken):
		render(ctx, http.StatusOK, "auth/register", "Register", gin.H{"Form": form, "Errors": map[string]string{"email": msgEmailTaken}})
	case errors.Is(err, user.ErrUsernameTaken):
		render(ctx, http.StatusOK, "auth/register", "Register", gin.H{"Form": form, "Errors": map[string]string{"username": msgUsernameTaken}})
	default:
		RespondInternal(ctx, "auth.register_failed", err)
	}
}

func (h *AuthHandler) Unconfirmed(ctx *gin.Context) {
	u := middlewares.CurrentUser(ctx)
	if u == nil || u.Confirmed {
		redirect(ctx, "/")
		return
	}
	render(ctx, http.StatusOK, "auth/unconfirmed", "Confirm your account", nil)
}

func (h *AuthHandler) Confirm(ctx *gin.Context) {
	u := middlewares.CurrentUser(ctx)
	if u.Confirmed {
		redirect(ctx, "/")
		return
	}

	updated, err := h.accounts.Confirm(ctx.Request.Context(), *u, ctx.Param("token"))
	if err != nil {
		flashRedirect(ctx, msgBadConfirmation, "/")
		return
	}

	middlewares.SetCurrentUser(ctx, updated)
	flashRedirect(ctx, "You have confirmed your account. Thanks!", "/")
}

func (h *AuthHandler) ResendConfirmation(ctx *gin.Context) {
	u := middlewares.CurrentUser(ctx)

	_, err := h.accounts.ResendConfirmation(ctx.Request.Context(), *u)
	switch {
	case err == nil:
		flashRedirect(ctx, "A new confirmation email has been sent to you by email.", "/")
	case errors.Is(err, account.ErrAlreadyConfirmed):
		redirect(ctx, "/")
	default:
		RespondInternal(ctx, "auth.resend_confirmation_failed", err)
	}
}

func (h *AuthHandler) ResetRequestPage(ctx *gin.Context) {
	render(ctx, http.StatusOK, "auth/reset_request", "Password Reset", gin.H{"Form": PasswordResetRequestForm{}})
}

func (h *AuthHandler) ResetRequest(ctx *gin.Context) {
	var form PasswordResetRequestForm

	errs, ok := BindForm(ctx, &form)
	if !ok {
		render(ctx, http.StatusOK, "auth/reset_request", "Password Reset", gin.H{"Form": form, "Errors": errs})
		return
	}

	// same answer whether or not the address is known
	if _, _, _, err := h.accounts.RequestPasswordReset(ctx.Request.Context(), form.Email); err != nil {
		RespondInternal(ctx, "auth.reset_request_failed", err)
		return
	}

	flashRedirect(ctx, "An email with instructions to reset your password has been sent to you.", "/auth/login")
}

func (h *AuthHandler) ResetPage(ctx *gin.Context) {
	render(ctx, http.StatusOK, "auth/reset_password", "Password Reset", gin.H{
		"Form":  PasswordResetForm{},
		"Token": ctx.Param("token"),
	})
}

func (h *AuthHandler) Reset(ctx *gin.Context) {
	var form PasswordResetForm
	token := ctx.Param("token")

	errs, ok := BindForm(ctx, &form)
	if !ok {
		render(ctx, http.StatusOK, "auth/reset_password", "Password Reset", gin.H{"Form": form, "Errors": errs, "Token": token})
		return
	}

	if err := h.accounts.ResetPassword(ctx.Request.Context(), token, form.Password); err != nil {
		flashRedirect(ctx, "The password reset link is invalid or has expired.", "/")
		return
	}

	flashRedirect(ctx, "Your password has been updated.", "/auth/login")
}

func (h *AuthHandler) ChangeEmailPage(ctx *gin.Context) {
	render(ctx, http.StatusOK, "auth/change_email", "Change Email Address", gin.H{"Form": ChangeEmailForm{}})
}

func (h *AuthHandler) ChangeEmailRequest(ctx *gin.Context) {
	var form ChangeEmailForm
	u := middlewares.CurrentUser(ctx)

	errs, ok := BindForm(ctx, &form)
	if !ok {
		render(ctx, http.StatusOK, "auth/change_email", "Change Email Address", gin.H{"Form": form, "Errors": errs})
		return
	}

	_, err := h.accounts.RequestEmailChange(ctx.Request.Context(), *u, form.Email, form.Password)
	switch {
	case err == nil:
		flashRedirect(ctx, "An email with instructions to confirm your new email address has been sent to you.", "/")
	case errors.Is(err, account.ErrInvalidCredentials):
		middlewares.Flash(ctx, msgInvalidLogin)
		render(ctx, http.StatusOK, "auth/change_email", "Change Email Address", gin.H{"Form": form})
	case errors.Is(err, user.ErrEmailTaken):
		render(ctx, http.StatusOK, "auth/change_email", "Change Email Address", gin.H{"Form": form, "Errors": map[string]string{"email": msgEmailTaken}})
	default:
		RespondInternal(ctx, "auth.change_email_request_failed", err)
	}
}

func (h *AuthHandler) ChangeEmail(ctx *gin.Context) {
	u := middlewares.CurrentUser(ctx)

	updated, err := h.accounts.ChangeEmail(ctx.Request.Context(), *u, ctx.Param("token"))
	if err != nil {
		flashRedirect(ctx, "Invalid request.", "/")
		return
	}

	middlewares.SetCurrentUser(ctx, updated)
	flashRedirect(ctx, "Your email address has been updated.", "/")
}

func (h *AuthHandler) ChangePasswordPage(ctx *gin.Context) {
	render(ctx, http.StatusOK, "auth/change_password", "Change Password", gin.H{"Form": ChangePasswordForm{}})
}

func (h *AuthHandler) ChangePassword(ctx *gin.Context) {
	var form ChangePasswordForm
	u := middlewares.CurrentUser(ctx)

	errs, ok := BindForm(ctx, &form)
	if !ok {
		render(ctx, http.StatusOK, "auth/change_password", "Change Password", gin.H{"Form": form, "Errors": errs})
		return
	}

	err := h.accounts.ChangePassword(ctx.Request.Context(), *u, form.OldPassword, form.Password)
	switch {
	case err == nil:
		flashRedirect(ctx, "Your password has been updated.", "/")
	case errors.Is(err, account.ErrInvalidCredentials):
		middlewares.Flash(ctx, "Invalid password.")
		render(ctx, http.StatusOK, "auth/change_password", "Change Password", gin.H{"Form": ChangePasswordForm{}})
	default:
		RespondInternal(ctx, "auth.change_password_failed", err)
	}
}
