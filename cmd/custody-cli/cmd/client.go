package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// apiResponse 对应服务端统一响应信封
type apiResponse struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

var httpClient = &http.Client{Timeout: 15 * time.Second}

func postJSON(path string, body interface{}) (*apiResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Post(serverAddr+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("无法连接服务端: %w", err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp)
}

func getJSON(path string) (*apiResponse, error) {
	resp, err := httpClient.Get(serverAddr + path)
	if err != nil {
		return nil, fmt.Errorf("无法连接服务端: %w", err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp)
}

func decodeResponse(resp *http.Response) (*apiResponse, error) {
	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}
	return &out, nil
}

// apiError 把非零业务码转成 error，保留服务端原文
func (r *apiResponse) apiError() error {
	if r.Code == 0 {
		return nil
	}
	return fmt.Errorf("%s (code=%d)", r.Msg, r.Code)
}
