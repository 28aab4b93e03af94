package http

import "github.com/gin-gonic/gin"

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("", h.snapshot)
	rg.POST("/register", h.register)
	rg.POST("/login", h.login)
	rg.POST("/login/google", h.loginGoogle)
	rg.PUT("/profile", h.updateProfile)
	rg.POST("/signout", h.signOut)
}
