package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/LolHubFun/server-vps/internal/logic"
	"github.com/gin-gonic/gin"
)

type ProjectHandler struct {
	projectLogic *logic.ProjectLogic
}

func NewProjectHandler(projectLogic *logic.ProjectLogic) *ProjectHandler {
	return &ProjectHandler{projectLogic: projectLogic}
}

// GetProjects 获取项目列表
func (h *ProjectHandler) GetProjects(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	sortBy := c.DefaultQuery("sort", "created_at")
	mode := c.DefaultQuery("mode", "all")

	list, err := h.projectLogic.ListProjects(c.Request.Context(), page, limit, sortBy, mode)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, list)
}

// GetProject 获取单个项目详情
func (h *ProjectHandler) GetProject(c *gin.Context) {
	address := c.Param("address")
	if address == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的合约地址"})
		return
	}

	detail, err := h.projectLogic.GetProjectDetail(c.Request.Context(), address)
	if err != nil {
		if errors.Is(err, logic.ErrProjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, detail)
}

// GetProjectTrades 获取项目交易历史
func (h *ProjectHandler) GetProjectTrades(c *gin.Context) {
	address := c.Param("address")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	trades, err := h.projectLogic.TradeHistory(c.Request.Context(), address, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

// GetRanking 获取排行榜
func (h *ProjectHandler) GetRanking(c *gin.Context) {
	sortBy := c.DefaultQuery("sort", "market_cap")
	chainId, _ := strconv.ParseInt(c.DefaultQuery("chain_id", "0"), 10, 64)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	projects, err := h.projectLogic.Ranking(c.Request.Context(), sortBy, chainId, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ranking": projects})
}
