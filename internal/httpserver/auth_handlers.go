package httpserver

import (
	"net/http"
	"time"

	"pulsegram/internal/security"
	"pulsegram/internal/service"
)

// cookieWriter issues and clears the HTTP-only session cookies.
type cookieWriter struct {
	secure     bool
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func (c cookieWriter) set(w http.ResponseWriter, pair *service.TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     security.AccessTokenCookie,
		Value:    pair.AccessToken,
		Path:     "/",
		MaxAge:   int(c.accessTTL.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     security.RefreshTokenCookie,
		Value:    pair.RefreshToken,
		Path:     "/",
		MaxAge:   int(c.refreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c cookieWriter) clear(w http.ResponseWriter) {
	for _, name := range []string{security.AccessTokenCookie, security.RefreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   c.secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

type registerRequest struct {
	FullName string `json:"fullName"`
	Username string `json:"username"`
	Email    string `json:"email"`
	DOB      string `json:"dob"`
	Password string `json:"password"`
}

func handleRegister(authSvc *service.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if !decodeBody(w, r, &req) {
			return
		}
		user, err := authSvc.Register(r.Context(), service.RegisterInput{
			FullName: req.FullName,
			Username: req.Username,
			Email:    req.Email,
			DOB:      req.DOB,
			Password: req.Password,
		})
		if err != nil {
			respondError(w, err)
			return
		}
		respondData(w, http.StatusCreated, user)
	}
}

func handleVerifyEmail(authSvc *service.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			var req struct {
				Token string `json:"token"`
			}
			if !decodeBody(w, r, &req) {
				return
			}
			token = req.Token
		}
		if err := authSvc.VerifyEmail(r.Context(), token); err != nil {
			respondError(w, err)
			return
		}
		respondMessage(w, http.StatusOK, "email verified")
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func handleLogin(authSvc *service.AuthService, cookies cookieWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if !decodeBody(w, r, &req) {
			return
		}
		user, pair, err := authSvc.Login(r.Context(), service.LoginInput{
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			respondError(w, err)
			return
		}
		cookies.set(w, pair)
		respondData(w, http.StatusOK, user)
	}
}

func handleRefresh(authSvc *service.AuthService, cookies cookieWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(security.RefreshTokenCookie)
		if err != nil || cookie.Value == "" {
			writeJSON(w, http.StatusUnauthorized, envelope{Success: false, Message: "authentication required"})
			return
		}
		user, pair, err := authSvc.Refresh(r.Context(), cookie.Value)
		if err != nil {
			cookies.clear(w)
			respondError(w, err)
			return
		}
		cookies.set(w, pair)
		respondData(w, http.StatusOK, user)
	}
}

func handleLogout(cookies cookieWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookies.clear(w)
		respondMessage(w, http.StatusOK, "logged out")
	}
}

func handleLogoutAll(authSvc *service.AuthService, cookies cookieWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := authSvc.LogoutAll(r.Context(), CurrentUserID(r)); err != nil {
			respondError(w, err)
			return
		}
		cookies.clear(w)
		respondMessage(w, http.StatusOK, "all sessions revoked")
	}
}

func handleMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondData(w, http.StatusOK, CurrentUser(r))
	}
}

func handleForgotPassword(authSvc *service.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email string `json:"email"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		if err := authSvc.ForgotPassword(r.Context(), req.Email); err != nil {
			respondError(w, err)
			return
		}
		// identical answer whether or not the account exists
		respondMessage(w, http.StatusOK, "if that email is registered, a code is on its way")
	}
}

func handleVerifyOTP(authSvc *service.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email string `json:"email"`
			OTP   string `json:"otp"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		resetToken, err := authSvc.VerifyOTP(r.Context(), req.Email, req.OTP)
		if err != nil {
			respondError(w, err)
			return
		}
		respondData(w, http.StatusOK, map[string]string{"resetToken": resetToken})
	}
}

func handleResetPassword(authSvc *service.AuthService, cookies cookieWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Token    string `json:"token"`
			Password string `json:"password"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		if err := authSvc.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
			respondError(w, err)
			return
		}
		cookies.clear(w)
		respondMessage(w, http.StatusOK, "password updated, please log in")
	}
}
