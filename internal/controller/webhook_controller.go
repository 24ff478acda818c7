package controller

import (
	"errors"
	"interview_bot_backend/internal/service"
	"interview_bot_backend/internal/util"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"
)

// 单条推送最大1MB，防止外部系统误灌大包
const maxWebhookBody = 1 << 20

// WebhookController 外部系统的作答推送入口
type WebhookController struct {
	WebhookService *service.WebhookService
}

func NewWebhookController(webhookService *service.WebhookService) *WebhookController {
	return &WebhookController{WebhookService: webhookService}
}

// Receive godoc
// @Summary 接收外部作答推送
// @Description 请求体为任意JSON，原样入库供离线分析
// @Tags Webhook
// @Accept  json
// @Produce  json
// @Param   source path string true "来源标识"
// @Success 201 {object} util.Response{data=object} "已接收"
// @Failure 400 {object} util.Response "非法JSON"
// @Router /api/webhooks/{source} [post]
func (c *WebhookController) Receive(ctx *gin.Context) {
	source := ctx.Param("source")

	payload, err := io.ReadAll(io.LimitReader(ctx.Request.Body, maxWebhookBody+1))
	if err != nil {
		util.BadRequest(ctx, "failed to read request body")
		return
	}
	if len(payload) > maxWebhookBody {
		util.Error(ctx, 413, "payload too large")
		return
	}

	submission, err := c.WebhookService.Receive(source, payload)
	if err != nil {
		if errors.Is(err, util.ErrInvalidPayload) {
			util.BadRequest(ctx, "payload must be valid JSON")
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Created(ctx, gin.H{"id": submission.ID})
}

// List godoc
// @Summary 推送记录列表
// @Tags Webhook
// @Produce  json
// @Security ApiKeyAuth
// @Param   page query int false "页码"
// @Param   limit query int false "每页数量"
// @Success 200 {object} util.Response{data=object} "成功"
// @Router /api/admin/submissions [get]
func (c *WebhookController) List(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	list, total, err := c.WebhookService.List(page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{
		"submissions": list,
		"total":       total,
	})
}
