package util

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// AudioInfo 存储音频信息
type AudioInfo struct {
	Duration float64 `json:"duration"` // 音频时长（秒）
	Codec    string  `json:"codec"`
	Format   string  `json:"format"`
	Size     int64   `json:"size"`
}

// GetAudioInfo 使用ffmpeg-go库获取音频元数据
func GetAudioInfo(audioPath string) (*AudioInfo, error) {
	fileInfo, err := os.Stat(audioPath)
	if err != nil {
		return nil, fmt.Errorf("音频文件不存在: %v", err)
	}

	jsonOutput, err := ffmpeg.Probe(audioPath)
	if err != nil {
		return nil, fmt.Errorf("获取音频信息失败: %v", err)
	}

	var result struct {
		Streams []struct {
			CodecType string `json:"codec_type"`
			CodecName string `json:"codec_name"`
		} `json:"streams"`
		Format struct {
			Duration string `json:"duration"`
			Size     string `json:"size"`
			Format   string `json:"format_name"`
		} `json:"format"`
	}

	if err := json.Unmarshal([]byte(jsonOutput), &result); err != nil {
		return nil, fmt.Errorf("解析音频信息失败: %v", err)
	}

	var codec string
	for _, stream := range result.Streams {
		if stream.CodecType == "audio" {
			codec = stream.CodecName
			break
		}
	}

	duration, err := strconv.ParseFloat(result.Format.Duration, 64)
	if err != nil {
		duration = 0
	}

	size, err := strconv.ParseInt(result.Format.Size, 10, 64)
	if err != nil {
		size = fileInfo.Size()
	}

	format := "unknown"
	if len(result.Format.Format) > 0 {
		formatParts := strings.Split(result.Format.Format, ",")
		if len(formatParts) > 0 {
			format = formatParts[0]
		}
	}

	return &AudioInfo{
		Duration: duration,
		Codec:    codec,
		Format:   format,
		Size:     size,
	}, nil
}

// TranscodeToMP3 将浏览器上传的录音（webm/ogg/wav等）转成mp3，
// 转写接口只接受常见格式
func TranscodeToMP3(inputPath string) (string, error) {
	outputPath := strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ".mp3"
	if outputPath == inputPath {
		return inputPath, nil
	}

	err := ffmpeg.Input(inputPath).
		Output(outputPath, ffmpeg.KwArgs{
			"vn":  "",    // 丢弃可能存在的视频流
			"b:a": "64k", // 语音用低码率足够
		}).
		OverWriteOutput().
		Run()
	if err != nil {
		return "", fmt.Errorf("音频转码失败: %v", err)
	}

	return outputPath, nil
}

// GetFFmpegVersion 获取FFmpeg版本信息，用于检查FFmpeg是否正确安装
func GetFFmpegVersion() (string, error) {
	cmd := exec.Command("ffmpeg", "-version", "-hide_banner")
	var out bytes.Buffer
	var errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("获取FFmpeg版本失败，请确保FFmpeg已正确安装: %v, %s", err, errOut.String())
	}

	return out.String(), nil
}
