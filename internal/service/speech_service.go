package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"interview_bot_backend/internal/config"
	"interview_bot_backend/internal/util"
	"interview_bot_backend/pkg/monitoring"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// 转写接口直接接受的扩展名，其余格式先经ffmpeg转码
var transcribableExts = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".m4a":  true,
	".flac": true,
	".ogg":  true,
}

// SpeechService 语音环节：用户录音 → 文本，面试官回复 → 音频。
// 识别与合成都走OpenAI兼容接口。
type SpeechService struct {
	aiConfig     config.AIConfig
	speechConfig config.SpeechConfig
	storage      *StorageService
	client       *http.Client
}

func NewSpeechService(aiCfg config.AIConfig, speechCfg config.SpeechConfig, storage *StorageService) *SpeechService {
	return &SpeechService{
		aiConfig:     aiCfg,
		speechConfig: speechCfg,
		storage:      storage,
		client:       &http.Client{Timeout: 120 * time.Second},
	}
}

// Transcribe 把本地音频文件转写为文本。
// 浏览器常见的webm录音先转成mp3再上传。
func (s *SpeechService) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if !transcribableExts[strings.ToLower(filepath.Ext(audioPath))] {
		converted, err := util.TranscodeToMP3(audioPath)
		if err != nil {
			return "", fmt.Errorf("%w: %v", util.ErrTranscription, err)
		}
		defer os.Remove(converted)
		audioPath = converted
	}

	// 空录音或坏文件在本地就拦下，不浪费一次上游调用
	info, err := util.GetAudioInfo(audioPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", util.ErrTranscription, err)
	}
	if info.Duration <= 0 {
		return "", fmt.Errorf("%w: recording contains no audio", util.ErrTranscription)
	}

	file, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", util.ErrTranscription, err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", err
	}
	writer.WriteField("model", s.speechConfig.STTModel)
	writer.WriteField("response_format", "text")
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.aiConfig.BaseURL+"/audio/transcriptions", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.aiConfig.APIKey)

	start := time.Now()
	resp, err := s.client.Do(req)
	monitoring.ObserveUpstream("stt", start)
	if err != nil {
		return "", fmt.Errorf("%w: %v", util.ErrTranscription, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d: %s", util.ErrTranscription, resp.StatusCode, string(respBody))
	}

	text := strings.TrimSpace(string(respBody))
	if text == "" {
		return "", fmt.Errorf("%w: empty transcription result", util.ErrTranscription)
	}
	return text, nil
}

// ArchiveRecording 把用户的原始录音转存到对象存储，留档复核用
func (s *SpeechService) ArchiveRecording(ctx context.Context, localPath string) (string, error) {
	ext := strings.ToLower(filepath.Ext(localPath))
	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	filename := fmt.Sprintf("answers/%s%s", uuid.New().String(), ext)
	return s.storage.UploadFile(ctx, filename, localPath, contentType)
}

type speechRequest struct {
	Model string `json:"model"`
	Voice string `json:"voice"`
	Input string `json:"input"`
}

// Synthesize 文本合成语音，音频写入存储后返回可访问的URL
func (s *SpeechService) Synthesize(ctx context.Context, text string) (string, error) {
	reqBody := speechRequest{
		Model: s.speechConfig.TTSModel,
		Voice: s.speechConfig.Voice,
		Input: text,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.aiConfig.BaseURL+"/audio/speech", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.aiConfig.APIKey)

	start := time.Now()
	resp, err := s.client.Do(req)
	monitoring.ObserveUpstream("tts", start)
	if err != nil {
		return "", fmt.Errorf("%w: %v", util.ErrSynthesis, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: status %d: %s", util.ErrSynthesis, resp.StatusCode, string(respBody))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", util.ErrSynthesis, err)
	}

	filename := fmt.Sprintf("speech/%s.mp3", uuid.New().String())
	url, err := s.storage.Upload(ctx, filename, bytes.NewReader(audio), int64(len(audio)), "audio/mpeg")
	if err != nil {
		return "", fmt.Errorf("%w: %v", util.ErrSynthesis, err)
	}
	return url, nil
}
