package example

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/donutnomad/repogen/query"
)

// NewFragmentContext 组装运行时上下文，注册全部手写 fragment
// 生成的构造函数从这里按名称取出各 fragment 实现
func NewFragmentContext(db *gorm.DB) *query.FragmentContext {
	return query.NewFragmentContext(db).
		RegisterFragment("UserSearchFragment", NewUserSearchFragmentImpl(db))
}

// UserHandler 基于 UserRepository 的 HTTP 处理器
type UserHandler struct {
	Users UserRepository
}

func NewUserHandler(users UserRepository) *UserHandler {
	return &UserHandler{Users: users}
}

func (h *UserHandler) Register(r *gin.Engine) {
	r.GET("/users/:id", h.getUser)
	r.GET("/users", h.listUsers)
	r.GET("/users/search", h.searchUsers)
	r.DELETE("/users", h.deleteByStatus)
}

func (h *UserHandler) getUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的用户 ID"})
		return
	}
	user, err := h.Users.FindByID(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "用户不存在"})
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) listUsers(c *gin.Context) {
	status := c.DefaultQuery("status", "active")
	users, err := h.Users.FindByStatusOrderByCreatedAtDesc(c.Request.Context(), status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *UserHandler) searchUsers(c *gin.Context) {
	keyword := c.Query("q")
	if keyword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少搜索关键词"})
		return
	}
	users, err := h.Users.SearchByKeyword(c.Request.Context(), keyword)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *UserHandler) deleteByStatus(c *gin.Context) {
	status := c.Query("status")
	if status == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少 status 参数"})
		return
	}
	affected, err := h.Users.DeleteByStatus(c.Request.Context(), status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": affected})
}
