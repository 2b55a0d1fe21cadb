package commands

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/szuyu2308/Tool-Simulator/utils"
)

// ScreenshotRequest represents a request to take a screenshot
type ScreenshotRequest struct {
	Serial     string `json:"serial"`
	Format     string `json:"format,omitempty"`  // "png" or "jpeg"
	Quality    int    `json:"quality,omitempty"` // 1-100, jpeg only
	OutputPath string `json:"outputPath,omitempty"`
}

// ScreenshotResponse represents screenshot data
type ScreenshotResponse struct {
	Serial string `json:"serial"`
	Format string `json:"format"`
	Path   string `json:"path,omitempty"`
	Data   string `json:"data,omitempty"` // base64, when no output path is given
}

// ScreenshotCommand captures a frame from the target and writes it to the
// requested path, or returns it base64-encoded for "-" and empty paths.
func ScreenshotCommand(req ScreenshotRequest) *CommandResponse {
	target, err := FindTarget(req.Serial)
	if err != nil {
		return NewErrorResponse(err)
	}

	data, err := target.Screenshot()
	if err != nil {
		return NewErrorResponse(fmt.Errorf("capture failed: %w", err))
	}

	format := strings.ToLower(req.Format)
	if format == "" {
		format = "png"
	}

	switch format {
	case "png":
		// screencap already produces png
	case "jpeg", "jpg":
		format = "jpeg"
		img, err := utils.DecodePng(data)
		if err != nil {
			return NewErrorResponse(err)
		}
		quality := req.Quality
		if quality <= 0 || quality > 100 {
			quality = 90
		}
		data, err = utils.EncodeJpeg(img, quality)
		if err != nil {
			return NewErrorResponse(err)
		}
	default:
		return NewErrorResponse(fmt.Errorf("unsupported format %q, expected png or jpeg", req.Format))
	}

	resp := ScreenshotResponse{Serial: target.Serial(), Format: format}

	if req.OutputPath == "" || req.OutputPath == "-" {
		resp.Data = base64.StdEncoding.EncodeToString(data)
		return NewSuccessResponse(resp)
	}

	if err := os.WriteFile(req.OutputPath, data, 0644); err != nil {
		return NewErrorResponse(fmt.Errorf("writing %s: %w", req.OutputPath, err))
	}
	resp.Path = req.OutputPath
	return NewSuccessResponse(resp)
}
