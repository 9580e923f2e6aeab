package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/taskdeck/taskdeck/internal/auth"
	"github.com/taskdeck/taskdeck/internal/mail"
	"github.com/taskdeck/taskdeck/internal/storage/sqlite"
	"github.com/taskdeck/taskdeck/internal/types"
)

const minPasswordLen = 8

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	switch {
	case req.Name == "":
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	case !strings.Contains(req.Email, "@"):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email"})
		return
	case len(req.Password) < minPasswordLen:
		c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 8 characters"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Printf("failed to hash password: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	rec := sqlite.UserRecord{
		User: types.User{
			ID:    auth.NewUserID(),
			Name:  req.Name,
			Email: req.Email,
		},
		PasswordHash:      hash,
		VerificationToken: auth.NewVerificationToken(),
	}
	if err := s.store.CreateUser(c.Request.Context(), rec); err != nil {
		respondStoreError(c, err)
		return
	}

	if s.seedPath != "" {
		if err := s.store.SeedCategories(c.Request.Context(), rec.ID, s.seedPath); err != nil {
			s.logger.Printf("failed to seed categories for %s: %v", rec.ID, err)
		}
	}

	s.sendVerificationMail(rec.Name, rec.Email, rec.VerificationToken)

	s.issueAuthResponse(c, http.StatusCreated, rec)
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	rec, err := s.store.GetUserByEmail(c.Request.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil || !auth.CheckPassword(rec.PasswordHash, req.Password) {
		// One message for both cases; never reveal which was wrong.
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	s.issueAuthResponse(c, http.StatusOK, rec)
}

func (s *Server) issueAuthResponse(c *gin.Context, status int, rec sqlite.UserRecord) {
	token, err := s.auth.IssueToken(rec.ID)
	if err != nil {
		s.logger.Printf("failed to issue token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"token": token, "user": rec.User})
}

func (s *Server) handleMe(c *gin.Context) {
	rec, err := s.store.GetUserByID(c.Request.Context(), auth.UserID(c))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec.User)
}

func (s *Server) handleChangePassword(c *gin.Context) {
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if len(req.NewPassword) < minPasswordLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 8 characters"})
		return
	}

	rec, err := s.store.GetUserByID(c.Request.Context(), auth.UserID(c))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	if !auth.CheckPassword(rec.PasswordHash, req.CurrentPassword) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "current password is incorrect"})
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		s.logger.Printf("failed to hash password: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if err := s.store.UpdatePasswordHash(c.Request.Context(), rec.ID, hash); err != nil {
		respondStoreError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleVerifyEmail(c *gin.Context) {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}

	if err := s.store.MarkEmailVerified(c.Request.Context(), req.Token); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"verified": true})
}

func (s *Server) handleResendVerification(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}

	rec, err := s.store.GetUserByEmail(c.Request.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil || rec.EmailVerified {
		// Same response either way; the endpoint must not leak which
		// addresses have accounts.
		c.JSON(http.StatusOK, gin.H{"sent": true})
		return
	}

	token := auth.NewVerificationToken()
	if err := s.store.SetVerificationToken(c.Request.Context(), rec.ID, token); err != nil {
		respondStoreError(c, err)
		return
	}
	s.sendVerificationMail(rec.Name, rec.Email, token)

	c.JSON(http.StatusOK, gin.H{"sent": true})
}

// sendVerificationMail delivers asynchronously; a failed send is logged and
// never fails the request.
func (s *Server) sendVerificationMail(name, email, token string) {
	verifyURL := s.verify + "?token=" + token
	subject, body := mail.VerificationBody(name, verifyURL)
	go func() {
		if err := s.mail.Send(email, subject, body); err != nil {
			s.logger.Printf("failed to send verification mail to %s: %v", email, err)
		}
	}()
}
