package handler

import (
	"net/http"

	"github.com/LolHubFun/server-vps/internal/evolution"
	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	admin *evolution.Admin
}

func NewAdminHandler(admin *evolution.Admin) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// EmergencyLock 紧急锁定项目
func (h *AdminHandler) EmergencyLock(c *gin.Context) {
	var req struct {
		ContractAddress string `json:"contract_address" binding:"required"`
		Reason          string `json:"reason" binding:"required"`
		Hours           int    `json:"hours"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.admin.EmergencyLock(req.ContractAddress, req.Reason, req.Hours); err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	SuccessResponse(c, http.StatusOK, "项目已紧急锁定", nil)
}

// ManualTrigger 人工触发进化检查
func (h *AdminHandler) ManualTrigger(c *gin.Context) {
	address := c.Param("address")
	if address == "" {
		ErrorResponse(c, http.StatusBadRequest, "无效的合约地址")
		return
	}

	triggered, err := h.admin.ManualTrigger(c.Request.Context(), address)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	SuccessResponse(c, http.StatusOK, "检查完成", gin.H{"triggered": triggered})
}
