package auth

import "net/http"

// CookieName is the only transport for the credential. Tokens are never read
// from headers or bodies.
const CookieName = "token"

// tokenCookie builds the cookie with the deployment-dependent attributes.
// Production serves the frontend cross-site over HTTPS, so the cookie must be
// Secure with SameSite=None; local development runs over plain HTTP, where
// Strict and non-secure keeps browsers from silently dropping it.
func tokenCookie(value string, maxAge int, production bool) *http.Cookie {
	cookie := &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   production,
		SameSite: http.SameSiteStrictMode,
	}
	if production {
		cookie.SameSite = http.SameSiteNoneMode
	}
	return cookie
}

// SetTokenCookie attaches a freshly issued token to the response.
func SetTokenCookie(w http.ResponseWriter, token string, production bool) {
	http.SetCookie(w, tokenCookie(token, 0, production))
}

// ClearTokenCookie expires the token cookie. The attributes must mirror the
// ones used at issuance or browsers will refuse to clear it.
func ClearTokenCookie(w http.ResponseWriter, production bool) {
	http.SetCookie(w, tokenCookie("", -1, production))
}
