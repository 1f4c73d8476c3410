package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Прямые вызовы MAX API в обход SDK: builder сообщений не умеет несколько
// вложений и callback-клавиатуры, а CDN для изображений отвечает не тем
// JSON, что ожидает SDK.

const (
	maxAPIBase    = "https://platform-api.max.ru"
	maxAPIVersion = "1.2.5"
)

type maxAttachment struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type maxButton struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	Payload string `json:"payload,omitempty"`
	Url     string `json:"url,omitempty"`
	Intent  string `json:"intent,omitempty"`
}

type maxMsgLink struct {
	Type string `json:"type"`
	Mid  string `json:"mid"`
}

func maxRecipientChat(chatID int64) string {
	return fmt.Sprintf("chat_id=%d", chatID)
}

func maxRecipientUser(userID int64) string {
	return fmt.Sprintf("user_id=%d", userID)
}

// uploadPhoto загружает фото (байты или скачанное по URL) и возвращает
// attach-токен для последующей отправки.
func (a *MaxAdapter) uploadPhoto(ctx context.Context, ph Photo, fileName string) (string, error) {
	var reader io.Reader
	if len(ph.Data) > 0 {
		reader = bytes.NewReader(ph.Data)
	} else {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, ph.URL, nil)
		if err != nil {
			return "", err
		}
		resp, err := a.httpClient.Do(req)
		if err != nil {
			return "", fmt.Errorf("download photo: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != 200 {
			return "", fmt.Errorf("photo download status: %d", resp.StatusCode)
		}
		reader = resp.Body
	}

	// 1. Получаем URL и token от MAX API
	apiURL := fmt.Sprintf("%s/uploads?type=image&v=%s", maxAPIBase, maxAPIVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", a.token)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("get upload url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return "", fmt.Errorf("upload endpoint status: %d", resp.StatusCode)
	}

	var endpoint struct {
		Url   string `json:"url"`
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&endpoint); err != nil {
		return "", fmt.Errorf("decode upload endpoint: %w", err)
	}
	slog.Debug("MAX upload endpoint", "url", endpoint.Url)

	// 2. Загружаем файл на CDN (multipart)
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("data", fileName)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, reader); err != nil {
		return "", fmt.Errorf("copy to form: %w", err)
	}
	writer.Close()

	cdnReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.Url, &buf)
	if err != nil {
		return "", fmt.Errorf("create CDN request: %w", err)
	}
	cdnReq.Header.Set("Content-Type", writer.FormDataContentType())

	cdnResp, err := a.httpClient.Do(cdnReq)
	if err != nil {
		return "", fmt.Errorf("upload to CDN: %w", err)
	}
	defer cdnResp.Body.Close()

	cdnBody, _ := io.ReadAll(cdnResp.Body)
	slog.Debug("MAX CDN response", "status", cdnResp.StatusCode)

	// 3. Парсим CDN ответ: для изображений токены лежат в map photos
	var cdnResult struct {
		Photos map[string]struct {
			Token string `json:"token"`
		} `json:"photos"`
		Token string `json:"token"`
	}
	if err := json.Unmarshal(cdnBody, &cdnResult); err == nil {
		for _, photo := range cdnResult.Photos {
			if photo.Token != "" {
				return photo.Token, nil
			}
		}
		if cdnResult.Token != "" {
			return cdnResult.Token, nil
		}
	}
	if endpoint.Token != "" {
		slog.Debug("MAX upload ok (endpoint token)")
		return endpoint.Token, nil
	}
	return "", fmt.Errorf("no token: endpoint and CDN both empty")
}

// sendDirect отправляет сообщение с вложениями напрямую. recipient — готовая
// query-пара chat_id=/user_id=. Возвращает mid отправленного сообщения.
func (a *MaxAdapter) sendDirect(ctx context.Context, recipient, text string, atts []maxAttachment, link *maxMsgLink) (string, error) {
	body := struct {
		Text        string          `json:"text,omitempty"`
		Attachments []maxAttachment `json:"attachments,omitempty"`
		Link        *maxMsgLink     `json:"link,omitempty"`
	}{Text: text, Attachments: atts, Link: link}

	data, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/messages?%s&v=%s", maxAPIBase, recipient, maxAPIVersion)

	// Retry при attachment.not.ready (файл ещё обрабатывается)
	for attempt := 0; attempt < 10; attempt++ {
		if attempt > 0 {
			delay := time.Duration(1+attempt) * time.Second
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
			slog.Warn("MAX retry", "attempt", attempt+1, "maxAttempts", 10)
		}

		respBody, status, err := a.doJSON(ctx, http.MethodPost, url, data)
		if err != nil {
			return "", err
		}

		if status == 200 {
			var result struct {
				Message struct {
					Body struct {
						Mid string `json:"mid"`
					} `json:"body"`
				} `json:"message"`
			}
			if err := json.Unmarshal(respBody, &result); err != nil {
				return "", err
			}
			return result.Message.Body.Mid, nil
		}

		if status == 400 && strings.Contains(string(respBody), "attachment.not.ready") {
			slog.Warn("MAX attachment not ready, waiting")
			continue
		}

		return "", fmt.Errorf("MAX API %d: %s", status, string(respBody))
	}
	return "", fmt.Errorf("MAX attachment not ready after 10 retries")
}

// editDirect заменяет текст и вложения сообщения mid.
func (a *MaxAdapter) editDirect(ctx context.Context, mid, text string, atts []maxAttachment) error {
	body := struct {
		Text        string          `json:"text,omitempty"`
		Attachments []maxAttachment `json:"attachments,omitempty"`
	}{Text: text, Attachments: atts}

	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/messages?message_id=%s&v=%s", maxAPIBase, mid, maxAPIVersion)
	respBody, status, err := a.doJSON(ctx, http.MethodPut, url, data)
	if err != nil {
		return err
	}
	if status != 200 {
		return fmt.Errorf("MAX API %d: %s", status, string(respBody))
	}
	return nil
}

// answerCallback подтверждает нажатие кнопки; best-effort, отказ только логируется.
func (a *MaxAdapter) answerCallback(ctx context.Context, callbackID string) {
	url := fmt.Sprintf("%s/answers?callback_id=%s&v=%s", maxAPIBase, callbackID, maxAPIVersion)
	respBody, status, err := a.doJSON(ctx, http.MethodPost, url, []byte("{}"))
	if err != nil {
		slog.Error("MAX callback ack failed", "err", err)
		return
	}
	if status != 200 {
		slog.Error("MAX callback ack failed", "status", status, "body", string(respBody))
	}
}

func (a *MaxAdapter) doJSON(ctx context.Context, method, url string, data []byte) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", a.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	return respBody, resp.StatusCode, nil
}
