package controller

import (
	"errors"
	"fmt"
	"interview_bot_backend/internal/model"
	"interview_bot_backend/internal/service"
	"interview_bot_backend/internal/util"
	"interview_bot_backend/pkg/logger"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type InterviewController struct {
	InterviewService *service.InterviewService
	SpeechService    *service.SpeechService
}

func NewInterviewController(interviewService *service.InterviewService, speechService *service.SpeechService) *InterviewController {
	return &InterviewController{
		InterviewService: interviewService,
		SpeechService:    speechService,
	}
}

// SessionView 返回给前端的会话视图，不携带题目与标准答案
// swagger:model SessionView
type SessionView struct {
	Scenario          string             `json:"scenario"`
	Level             model.Level        `json:"level"`
	State             model.SessionState `json:"state"`
	MaxQuestions      int                `json:"maxQuestions"`
	CurrentQuestion   int                `json:"currentQuestion"`
	IncorrectAttempts int                `json:"incorrectAttempts"`
	Transcript        []model.Turn       `json:"transcript"`
}

func sessionView(s *model.InterviewSession) SessionView {
	return SessionView{
		Scenario:          s.Scenario,
		Level:             s.Level,
		State:             s.State,
		MaxQuestions:      s.MaxQuestions,
		CurrentQuestion:   s.CurrentQuestion,
		IncorrectAttempts: s.IncorrectAttempts,
		Transcript:        s.Transcript,
	}
}

// ResetSessionRequest 开始/重开一场面试
// swagger:model ResetSessionRequest
type ResetSessionRequest struct {
	Scenario     string `json:"scenario" binding:"required"`
	MaxQuestions int    `json:"maxQuestions"`
}

// ResetSession godoc
// @Summary 开始或重开面试会话
// @Description 按用户在该场景的长期进度开启新会话，旧会话被覆盖
// @Tags 面试
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body ResetSessionRequest true "场景与题目数量"
// @Success 200 {object} util.Response{data=SessionView} "成功"
// @Failure 400 {object} util.Response "未知场景或题目数量超出范围"
// @Router /api/interview/session [post]
func (c *InterviewController) ResetSession(ctx *gin.Context) {
	var req ResetSessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	session, err := c.InterviewService.ResetSession(ctx.Request.Context(), claims.UserID, req.Scenario, req.MaxQuestions)
	if err != nil {
		c.respondError(ctx, err)
		return
	}
	util.Success(ctx, sessionView(session))
}

// GetSession godoc
// @Summary 当前会话快照
// @Tags 面试
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=SessionView} "成功"
// @Failure 404 {object} util.Response "没有进行中的会话"
// @Router /api/interview/session [get]
func (c *InterviewController) GetSession(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	session, err := c.InterviewService.Snapshot(ctx.Request.Context(), claims.UserID)
	if err != nil {
		c.respondError(ctx, err)
		return
	}
	util.Success(ctx, sessionView(session))
}

// SubmitAnswerRequest 用户一条发言
// swagger:model SubmitAnswerRequest
type SubmitAnswerRequest struct {
	Text string `json:"text" binding:"required"`
}

// AnswerResponse 判题结果与面试官回复
// swagger:model AnswerResponse
type AnswerResponse struct {
	Verdict *model.Verdict `json:"verdict,omitempty"`
	Reply   string         `json:"reply"`
	Session SessionView    `json:"session"`
	// 语音作答时回传识别出的文本
	Transcription string `json:"transcription,omitempty"`
	// 请求合成时面试官回复的音频地址
	ReplyAudioURL string `json:"replyAudioUrl,omitempty"`
}

// SubmitAnswer godoc
// @Summary 提交一条发言
// @Description 首条发言作为自我介绍不判题；之后每条按当前题目判定。
// @Description 相似度服务不可用时返回503，不产生任何状态变更，可原样重试。
// @Tags 面试
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body SubmitAnswerRequest true "发言内容"
// @Success 200 {object} util.Response{data=AnswerResponse} "成功"
// @Failure 404 {object} util.Response "没有进行中的会话"
// @Failure 409 {object} util.Response "已通关全部等级"
// @Failure 503 {object} util.Response "外部模型服务不可用"
// @Router /api/interview/answer [post]
func (c *InterviewController) SubmitAnswer(ctx *gin.Context) {
	var req SubmitAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	verdict, session, err := c.InterviewService.SubmitAnswer(ctx.Request.Context(), claims.UserID, req.Text)
	if err != nil {
		c.respondError(ctx, err)
		return
	}

	util.Success(ctx, c.answerResponse(verdict, session, ""))
}

// SubmitAudioAnswer godoc
// @Summary 语音作答
// @Description 上传录音，转写后走文本作答同一条流程。
// @Description synthesize=true 时额外合成面试官回复的音频。
// @Tags 面试
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   audio formData file true "音频文件"
// @Param   synthesize query bool false "是否合成回复音频"
// @Success 200 {object} util.Response{data=AnswerResponse} "成功"
// @Failure 400 {object} util.Response "缺少音频文件"
// @Failure 503 {object} util.Response "外部模型服务不可用"
// @Router /api/interview/answer/audio [post]
func (c *InterviewController) SubmitAudioAnswer(ctx *gin.Context) {
	file, err := ctx.FormFile("audio")
	if err != nil {
		util.BadRequest(ctx, "audio file is required")
		return
	}

	tmpPath := filepath.Join(os.TempDir(), fmt.Sprintf("answer-%s%s", uuid.New().String(), filepath.Ext(file.Filename)))
	if err := ctx.SaveUploadedFile(file, tmpPath); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer os.Remove(tmpPath)

	text, err := c.SpeechService.Transcribe(ctx.Request.Context(), tmpPath)
	if err != nil {
		c.respondError(ctx, err)
		return
	}

	claims := util.GetUserFromContext(ctx)
	verdict, session, err := c.InterviewService.SubmitAnswer(ctx.Request.Context(), claims.UserID, text)
	if err != nil {
		c.respondError(ctx, err)
		return
	}

	// 留档原始录音，失败只记日志不影响应答
	if _, err := c.SpeechService.ArchiveRecording(ctx.Request.Context(), tmpPath); err != nil {
		logger.Log.Warn("failed to archive answer recording", zap.Error(err))
	}

	resp := c.answerResponse(verdict, session, text)
	if ctx.Query("synthesize") == "true" && resp.Reply != "" {
		audioURL, err := c.SpeechService.Synthesize(ctx.Request.Context(), resp.Reply)
		if err != nil {
			// 回复文本已经产生且会话已保存，合成失败只降级为纯文本
			c.respondDegraded(ctx, resp)
			return
		}
		resp.ReplyAudioURL = audioURL
	}
	util.Success(ctx, resp)
}

// ExplainStream godoc
// @Summary 流式讲解当前问题
// @Description SSE逐段推送讲解内容。只读会话，不判题、不计连错、不写对话记录。
// @Tags 面试
// @Produce  text/event-stream
// @Security ApiKeyAuth
// @Success 200 {string} string "SSE流"
// @Failure 404 {object} util.Response "没有进行中的会话"
// @Failure 409 {object} util.Response "还没有可讲解的问题"
// @Router /api/interview/explain/stream [get]
func (c *InterviewController) ExplainStream(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	stream, errChan, err := c.InterviewService.ExplainStream(ctx.Request.Context(), claims.UserID)
	if err != nil {
		c.respondError(ctx, err)
		return
	}

	ctx.Header("Content-Type", "text/event-stream")
	ctx.Header("Cache-Control", "no-cache")
	ctx.Header("Connection", "keep-alive")
	ctx.Header("Transfer-Encoding", "chunked")

	for content := range stream {
		ctx.SSEvent("message", content)
		ctx.Writer.Flush()
	}
	if err := <-errChan; err != nil {
		ctx.SSEvent("error", "explanation unavailable, please retry")
		ctx.Writer.Flush()
		return
	}
	ctx.SSEvent("end", "done")
	ctx.Writer.Flush()
}

// ReplySpeech godoc
// @Summary 合成最近一条面试官回复的音频
// @Tags 面试
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=object} "成功"
// @Failure 404 {object} util.Response "没有进行中的会话"
// @Failure 503 {object} util.Response "合成服务不可用"
// @Router /api/interview/reply/speech [post]
func (c *InterviewController) ReplySpeech(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	session, err := c.InterviewService.Snapshot(ctx.Request.Context(), claims.UserID)
	if err != nil {
		c.respondError(ctx, err)
		return
	}

	reply, ok := session.LastAssistantTurn()
	if !ok {
		util.NotFound(ctx)
		return
	}

	audioURL, err := c.SpeechService.Synthesize(ctx.Request.Context(), reply)
	if err != nil {
		c.respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"audioUrl": audioURL})
}

// Scenarios godoc
// @Summary 可选面试场景列表
// @Tags 面试
// @Produce  json
// @Success 200 {object} util.Response{data=object} "成功"
// @Router /api/interview/scenarios [get]
func (c *InterviewController) Scenarios(ctx *gin.Context) {
	util.Success(ctx, gin.H{"scenarios": c.InterviewService.Scenarios()})
}

// Progress godoc
// @Summary 用户各场景的长期进度
// @Tags 面试
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=object} "成功"
// @Router /api/interview/progress [get]
func (c *InterviewController) Progress(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	list, err := c.InterviewService.Progress(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"progress": list})
}

func (c *InterviewController) answerResponse(verdict *model.Verdict, session *model.InterviewSession, transcription string) AnswerResponse {
	reply, _ := session.LastAssistantTurn()
	return AnswerResponse{
		Verdict:       verdict,
		Reply:         reply,
		Session:       sessionView(session),
		Transcription: transcription,
	}
}

func (c *InterviewController) respondDegraded(ctx *gin.Context, resp AnswerResponse) {
	util.Success(ctx, resp)
}

// respondError 把领域错误映射到HTTP状态码
func (c *InterviewController) respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrSessionNotFound):
		util.Error(ctx, 404, "no active interview session, reset first")
	case errors.Is(err, util.ErrUnknownScenario):
		util.BadRequest(ctx, "unknown scenario")
	case errors.Is(err, util.ErrInvalidMaxQuestion):
		util.BadRequest(ctx, "max questions out of range")
	case errors.Is(err, util.ErrSessionComplete):
		util.Error(ctx, 409, "all levels already completed, reset to start over")
	case errors.Is(err, util.ErrNoActiveQuestion):
		util.Error(ctx, 409, "introduce yourself first, there is no question to explain yet")
	case errors.Is(err, util.ErrScoringUnavailable),
		errors.Is(err, util.ErrCompletion),
		errors.Is(err, util.ErrTranscription),
		errors.Is(err, util.ErrSynthesis):
		util.ServiceUnavailable(ctx, "model service temporarily unavailable, please retry")
	default:
		util.LogInternalError(ctx, err)
	}
}
