package views

import (
	"context"
	"errors"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/talentiave/cms/internal/backend"
	"github.com/talentiave/cms/pkg/logger"
	"github.com/talentiave/cms/pkg/metrics"
)

// AdminHome is where a successful login or registration lands.
const AdminHome = "/admin"

// Messages shown by the auth forms.
const (
	MsgNoPasswordSet     = "This email exists, but no password is set. Please go to register."
	MsgAlreadyRegistered = "User already registered. Please login instead."
	MsgInvalidLogin      = "Invalid email or password."
	MsgResetRequested    = "If an account exists for that email, reset instructions will follow."
)

// AuthKind selects one of the auth forms.
type AuthKind string

// Auth forms.
const (
	LoginForm          AuthKind = "login"
	RegisterForm       AuthKind = "register"
	ForgotPasswordForm AuthKind = "forgot-password"
)

// AuthForm describes how one auth form renders and submits.
type AuthForm struct {
	Kind         AuthKind
	Title        string
	ButtonText   string
	ShowName     bool
	ShowPassword bool
}

// Forms returns the form definition for kind.
func Forms(kind AuthKind) (AuthForm, bool) {
	switch kind {
	case LoginForm:
		return AuthForm{Kind: kind, Title: "Login", ButtonText: "Sign In", ShowPassword: true}, true
	case RegisterForm:
		return AuthForm{Kind: kind, Title: "Register", ButtonText: "Sign Up", ShowName: true, ShowPassword: true}, true
	case ForgotPasswordForm:
		return AuthForm{Kind: kind, Title: "Forgot Password", ButtonText: "Reset Password"}, true
	default:
		return AuthForm{}, false
	}
}

// Path is the console route serving the form.
func (f AuthForm) Path() string { return "/auth/" + string(f.Kind) }

// AuthInput is what the user typed. Password is never echoed back.
type AuthInput struct {
	Name     string
	Email    string
	Password string
}

// Validate applies the form's required fields.
func (f AuthForm) Validate(in AuthInput) error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.When(f.ShowName, validation.Required.Error("Name is required."))),
		validation.Field(&in.Email,
			validation.Required.Error("Email is required."),
			is.EmailFormat.Error("Enter a valid email address."),
		),
		validation.Field(&in.Password, validation.When(f.ShowPassword, validation.Required.Error("Password is required."))),
	)
}

// AuthState is what an auth page renders.
type AuthState struct {
	Form  AuthForm
	Input AuthInput
	Error string
	// Notice is a neutral acknowledgement, used by the forgot-password form.
	Notice string
	// Redirect is set when the submit succeeded.
	Redirect string
}

// AuthPage returns the empty form.
func (v *Views) AuthPage(form AuthForm) AuthState {
	return AuthState{Form: form}
}

// SubmitAuth validates and submits an auth form. Login and registration
// store the returned credential in sess and redirect to AdminHome.
func (v *Views) SubmitAuth(ctx context.Context, sess Session, form AuthForm, in AuthInput) AuthState {
	in.Email = strings.TrimSpace(in.Email)
	state := AuthState{Form: form, Input: AuthInput{Name: in.Name, Email: in.Email}}

	if err := form.Validate(in); err != nil {
		metrics.RecordValidationFailure(string(form.Kind))
		state.Error = firstMessage(err)
		return state
	}

	if form.Kind == ForgotPasswordForm {
		v.log.Info(ctx, "password reset requested", logger.String("email", in.Email))
		metrics.RecordAuthAttempt(string(form.Kind), "requested")
		state.Notice = MsgResetRequested
		return state
	}

	req := backend.AuthRequest{Email: in.Email, Password: in.Password}
	if form.ShowName {
		req.Name = in.Name
	}
	submit := v.api.Login
	if form.Kind == RegisterForm {
		submit = v.api.Register
	}

	token, err := submit(ctx, req)
	if err != nil {
		metrics.RecordAuthAttempt(string(form.Kind), outcome(err))
		v.log.Info(ctx, "auth rejected", logger.String("form", string(form.Kind)), logger.Error(err))
		state.Error = AuthErrorMessage(err)
		return state
	}
	if err := sess.SetCredential(ctx, token); err != nil {
		metrics.RecordAuthAttempt(string(form.Kind), "store_error")
		v.log.Error(ctx, "failed to store credential", logger.Error(err))
		state.Error = backend.DefaultErrorMessage
		return state
	}

	metrics.RecordAuthAttempt(string(form.Kind), "success")
	state.Redirect = AdminHome
	return state
}

// AuthErrorMessage maps a failed login or registration to the text shown
// under the form.
func AuthErrorMessage(err error) string {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Status == http.StatusBadRequest && strings.Contains(apiErr.Message, "no password set"):
			return MsgNoPasswordSet
		case apiErr.Status == http.StatusConflict:
			return MsgAlreadyRegistered
		case apiErr.Status == http.StatusUnauthorized:
			return MsgInvalidLogin
		case apiErr.Message != "":
			return apiErr.Message
		default:
			return backend.DefaultErrorMessage
		}
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return backend.DefaultErrorMessage
}

func outcome(err error) string {
	switch backend.StatusOf(err) {
	case 0:
		return "error"
	case http.StatusUnauthorized:
		return "invalid"
	case http.StatusConflict:
		return "conflict"
	default:
		return "rejected"
	}
}

// firstMessage picks one message from a validation.Errors map in form order.
func firstMessage(err error) string {
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return err.Error()
	}
	for _, field := range []string{"Name", "Email", "Password"} {
		if fe, ok := errs[field]; ok && fe != nil {
			return fe.Error()
		}
	}
	return err.Error()
}
