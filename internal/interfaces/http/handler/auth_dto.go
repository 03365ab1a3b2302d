package handler

// LoginRequest is the request body for sign-in
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// VerifyCodeRequest is the request body for MFA code verification
type VerifyCodeRequest struct {
	SessionToken string `json:"sessionToken" binding:"required"`
	Code         string `json:"code" binding:"required,len=6,numeric"`
}

// ResendCodeRequest is the request body for re-sending an MFA code
type ResendCodeRequest struct {
	SessionToken string `json:"sessionToken" binding:"required"`
}

// SetTokenRequest is the request body for the cookie bridge
type SetTokenRequest struct {
	Token    string `json:"token"`
	UserRole string `json:"userRole"`
}

// AuthUserResponse is the account shape returned by the auth endpoints
type AuthUserResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// LoginResponse is the outcome of a sign-in attempt. When requiresMfa is
// true only sessionToken is populated and no cookie has been set.
type LoginResponse struct {
	RequiresMFA  bool              `json:"requiresMfa"`
	SessionToken string            `json:"sessionToken,omitempty"`
	User         *AuthUserResponse `json:"user,omitempty"`
}

// CurrentUserResponse is the confirmed account plus the post-confirmation
// redirect target.
type CurrentUserResponse struct {
	User            AuthUserResponse `json:"user"`
	RedirectTo      string           `json:"redirectTo"`
	RedirectDelayMs int              `json:"redirectDelayMs"`
}
