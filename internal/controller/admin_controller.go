package controller

import (
	"errors"
	"interview_bot_backend/internal/model"
	"interview_bot_backend/internal/service"
	"interview_bot_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// AdminController 题库维护，仅admin角色可用
type AdminController struct {
	QuestionBankService *service.QuestionBankService
}

func NewAdminController(bankService *service.QuestionBankService) *AdminController {
	return &AdminController{QuestionBankService: bankService}
}

// GetBank godoc
// @Summary 完整题库
// @Tags 题库管理
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=object} "成功"
// @Router /api/admin/questions [get]
func (c *AdminController) GetBank(ctx *gin.Context) {
	util.Success(ctx, c.QuestionBankService.Bank())
}

// ListQuestions godoc
// @Summary 某场景某等级的题目列表
// @Tags 题库管理
// @Produce  json
// @Security ApiKeyAuth
// @Param   scenario query string true "场景名"
// @Param   level query string true "等级"
// @Success 200 {object} util.Response{data=object} "成功"
// @Failure 400 {object} util.Response "未知场景或等级"
// @Router /api/admin/questions/list [get]
func (c *AdminController) ListQuestions(ctx *gin.Context) {
	scenario := ctx.Query("scenario")
	level := model.Level(ctx.Query("level"))
	if !model.ValidLevel(level) {
		util.BadRequest(ctx, "unknown level")
		return
	}

	questions, err := c.QuestionBankService.List(scenario, level)
	if err != nil {
		if errors.Is(err, util.ErrUnknownScenario) {
			util.BadRequest(ctx, "unknown scenario")
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, gin.H{"questions": questions})
}

// QuestionRequest 新增/修改题目
// swagger:model QuestionRequest
type QuestionRequest struct {
	Scenario string         `json:"scenario" binding:"required"`
	Level    model.Level    `json:"level" binding:"required"`
	Question model.Question `json:"question" binding:"required"`
}

// AddQuestion godoc
// @Summary 新增题目
// @Tags 题库管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body QuestionRequest true "题目"
// @Success 201 {object} util.Response "创建成功"
// @Failure 400 {object} util.Response "题目不合法"
// @Router /api/admin/questions [post]
func (c *AdminController) AddQuestion(ctx *gin.Context) {
	var req QuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if !model.ValidLevel(req.Level) {
		util.BadRequest(ctx, "unknown level")
		return
	}

	if err := c.QuestionBankService.Add(req.Scenario, req.Level, req.Question); err != nil {
		c.respondBankError(ctx, err)
		return
	}
	util.Created(ctx, nil)
}

// UpdateQuestionRequest 修改题目
// swagger:model UpdateQuestionRequest
type UpdateQuestionRequest struct {
	Scenario string         `json:"scenario" binding:"required"`
	Level    model.Level    `json:"level" binding:"required"`
	Index    int            `json:"index"`
	Question model.Question `json:"question" binding:"required"`
}

// UpdateQuestion godoc
// @Summary 修改题目
// @Tags 题库管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body UpdateQuestionRequest true "题目"
// @Success 200 {object} util.Response "成功"
// @Failure 400 {object} util.Response "题目不合法或下标越界"
// @Router /api/admin/questions [put]
func (c *AdminController) UpdateQuestion(ctx *gin.Context) {
	var req UpdateQuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.QuestionBankService.Update(req.Scenario, req.Level, req.Index, req.Question); err != nil {
		c.respondBankError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// DeleteQuestionRequest 删除题目
// swagger:model DeleteQuestionRequest
type DeleteQuestionRequest struct {
	Scenario string      `json:"scenario" binding:"required"`
	Level    model.Level `json:"level" binding:"required"`
	Index    int         `json:"index"`
}

// DeleteQuestion godoc
// @Summary 删除题目
// @Tags 题库管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body DeleteQuestionRequest true "定位信息"
// @Success 200 {object} util.Response "成功"
// @Failure 400 {object} util.Response "下标越界"
// @Router /api/admin/questions [delete]
func (c *AdminController) DeleteQuestion(ctx *gin.Context) {
	var req DeleteQuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.QuestionBankService.Delete(req.Scenario, req.Level, req.Index); err != nil {
		c.respondBankError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// MoveQuestionRequest 调整题目顺序
// swagger:model MoveQuestionRequest
type MoveQuestionRequest struct {
	Scenario string      `json:"scenario" binding:"required"`
	Level    model.Level `json:"level" binding:"required"`
	Index    int         `json:"index"`
	Offset   int         `json:"offset" binding:"required,oneof=-1 1"`
}

// MoveQuestion godoc
// @Summary 上移/下移题目
// @Tags 题库管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body MoveQuestionRequest true "移动信息"
// @Success 200 {object} util.Response "成功"
// @Failure 400 {object} util.Response "下标越界"
// @Router /api/admin/questions/move [post]
func (c *AdminController) MoveQuestion(ctx *gin.Context) {
	var req MoveQuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.QuestionBankService.Move(req.Scenario, req.Level, req.Index, req.Offset); err != nil {
		c.respondBankError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// respondBankError 校验类错误回400，落盘失败回500
func (c *AdminController) respondBankError(ctx *gin.Context, err error) {
	if errors.Is(err, util.ErrQuestionBank) {
		util.BadRequest(ctx, err.Error())
		return
	}
	util.LogInternalError(ctx, err)
}
