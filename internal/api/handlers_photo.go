package api

import (
	"encoding/base64"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const defaultPhotoMimeType = "image/jpeg"

func (handler *Handler) AnalyzePhoto(c *fiber.Ctx) error {
	if _, ok := currentIdentity(c); !ok {
		return handler.unauthorized(c)
	}

	request := photoRequest{}
	if err := handler.decodeBody(c, &request); err != nil {
		return handler.badBody(c, err)
	}

	image, mimeType, ok := decodeImagePayload(request)
	if !ok {
		return handler.apiError(c, fiber.StatusBadRequest, kindBadRequest, "image_base64")
	}

	guess, err := handler.photos.Analyze(c.UserContext(), image, mimeType)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return success(c, fiber.Map{
		"name":        guess.Name,
		"calories":    guess.Calories,
		"description": guess.Description,
	})
}

// decodeImagePayload accepts plain base64 and data URLs. A data URL media
// type is used when mime_type is omitted.
func decodeImagePayload(request photoRequest) ([]byte, string, bool) {
	encoded := strings.TrimSpace(request.ImageBase64)
	mimeType := strings.TrimSpace(request.MimeType)

	if rest, found := strings.CutPrefix(encoded, "data:"); found {
		header, data, ok := strings.Cut(rest, ",")
		if !ok {
			return nil, "", false
		}
		if mimeType == "" {
			mimeType, _, _ = strings.Cut(header, ";")
		}
		encoded = data
	}
	if mimeType == "" {
		mimeType = defaultPhotoMimeType
	}
	if encoded == "" {
		return nil, "", false
	}

	image, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		image, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(encoded, "="))
		if err != nil {
			return nil, "", false
		}
	}
	if len(image) == 0 {
		return nil, "", false
	}
	return image, mimeType, true
}
