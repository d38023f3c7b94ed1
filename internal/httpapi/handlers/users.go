package handlers

import (
	"crypto/rand"
	"log"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/dealroom-app/dealroom/internal/auth"
	"github.com/dealroom-app/dealroom/internal/common"
	"github.com/dealroom-app/dealroom/internal/email"
	"github.com/dealroom-app/dealroom/internal/models"
	"github.com/dealroom-app/dealroom/internal/store/rabbitmq"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, gin.H{"pong": true})
}

type sendCaptchaReq struct {
	Email string `json:"email" binding:"required"`
}

func randomDigits(n int) (string, error) {
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		out[i] = byte('0' + d.Int64())
	}
	return string(out), nil
}

func (h *Handler) SendCaptcha(c *gin.Context) {
	var req sendCaptchaReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	code, err := randomDigits(6)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20001, "failed to generate captcha")
		return
	}
	if err := h.Redis.SetCaptcha(c.Request.Context(), req.Email, code); err != nil {
		common.Fail(c, http.StatusInternalServerError, 20001, "redis error")
		return
	}

	h.queueEmail(c, req.Email, "Your verification code",
		"Your verification code is: "+code+"\n\nIt expires in 10 minutes.\n")

	common.OK(c, gin.H{"sent": true})
}

type createUserReq struct {
	Email    string `json:"email"`
	Captcha  string `json:"captcha"`
	Password string `json:"password"`
}

// generate a 11 digit random username
func randomUsername11() (string, error) {
	const letters = "abcdefghijklmnopqrstuvwxyz0123456789"
	out := make([]byte, 11)
	for i := 0; i < 11; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(letters))))
		if err != nil {
			return "", err
		}
		out[i] = letters[n.Int64()]
	}
	return string(out), nil
}

func (h *Handler) CreateUser(c *gin.Context) {
	var req createUserReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if req.Email == "" || req.Password == "" || req.Captcha == "" {
		common.Fail(c, http.StatusBadRequest, 10002, "email, captcha and password required")
		return
	}

	// redis verification
	code, err := h.Redis.GetCaptcha(c.Request.Context(), req.Email)
	if err != nil {
		if err == redis.Nil {
			common.Fail(c, http.StatusBadRequest, 10020, "captcha expired or not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 20001, "redis error")
		return
	}
	if code != req.Captcha {
		common.Fail(c, http.StatusBadRequest, 10021, "invalid captcha")
		return
	}
	_ = h.Redis.DeleteCaptcha(c.Request.Context(), req.Email)

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20002, "failed to hash password")
		return
	}

	// generate username to avoid conflict
	var username string
	for i := 0; i < 5; i++ {
		u, err := randomUsername11()
		if err != nil {
			common.Fail(c, http.StatusInternalServerError, 20004, "failed to generate username")
			return
		}

		var cnt int64
		if err := h.DB.Model(&models.User{}).Where("username = ?", u).Count(&cnt).Error; err != nil {
			common.Fail(c, http.StatusInternalServerError, 20005, "failed to check username")
			return
		}
		if cnt == 0 {
			username = u
			break
		}
	}
	if username == "" {
		common.Fail(c, http.StatusInternalServerError, 20006, "failed to allocate username")
		return
	}

	user := models.User{
		Email:        req.Email,
		Username:     username,
		PasswordHash: hash,
		Role:         "user",
	}
	if err := h.DB.Create(&user).Error; err != nil {
		common.Fail(c, http.StatusBadRequest, 10003, "failed to create user (maybe email already exists)")
		return
	}

	token, err := auth.SignJWT(user.ID, user.Role, h.Cfg.JWTSecret, 24*time.Hour)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20003, "failed to sign token")
		return
	}

	h.queueEmail(c, user.Email, "Welcome to Dealroom — Your account is ready",
		"Hello,\n\n"+
			"Welcome to Dealroom. Your account has been successfully created.\n\n"+
			"Username: "+user.Username+"\n\n"+
			"If you did not request this account, please contact our support immediately.\n\n"+
			"Best regards,\n"+
			"Dealroom\n")

	common.OK(c, gin.H{
		"id":       user.ID,
		"email":    user.Email,
		"username": user.Username,
		"token":    token,
	})
}

// queueEmail hands the mail to the worker via the queue; when the queue is
// unavailable it falls back to direct SMTP in a goroutine so registration
// never fails on mail delivery.
func (h *Handler) queueEmail(c *gin.Context, to, subject, body string) {
	if h.Rabbit != nil {
		msg := rabbitmq.EmailMessage{To: to, Subject: subject, Body: body}
		if err := h.Rabbit.PublishEmail(c.Request.Context(), msg); err == nil {
			return
		}
		log.Printf("email: queue publish failed, falling back to direct send to=%s", to)
	}
	go func() {
		if err := email.SendText(h.SMTPSetting, to, subject, body); err != nil {
			log.Printf("email: direct send failed to=%s err=%v", to, err)
		}
	}()
}

type loginReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	var user models.User
	if err := h.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		common.Fail(c, http.StatusUnauthorized, 40102, "invalid credentials")
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		common.Fail(c, http.StatusUnauthorized, 40102, "invalid credentials")
		return
	}

	token, err := auth.SignJWT(user.ID, user.Role, h.Cfg.JWTSecret, 24*time.Hour)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20003, "failed to sign token")
		return
	}

	common.OK(c, gin.H{
		"id":       user.ID,
		"email":    user.Email,
		"username": user.Username,
		"token":    token,
	})
}

func (h *Handler) Me(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var user models.User
	if err := h.DB.First(&user, uid).Error; err != nil {
		common.Fail(c, http.StatusNotFound, 40401, "user not found")
		return
	}
	common.OK(c, gin.H{
		"id":       user.ID,
		"email":    user.Email,
		"username": user.Username,
		"role":     user.Role,
	})
}

func (h *Handler) GetUserByID(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10004, "invalid user id")
		return
	}

	var user models.User
	if err := h.DB.First(&user, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			common.Fail(c, http.StatusNotFound, 40401, "user not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}

	common.OK(c, gin.H{
		"id":         user.ID,
		"email":      user.Email,
		"created_at": user.CreatedAt,
	})
}
