package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"trellotoyoutrack/config"
	"trellotoyoutrack/models"
)

// YouTrackClient はYouTrack APIとのやり取りを処理します
// 認証はBearerトークンで行います
type YouTrackClient struct {
	config *config.Config
	client *http.Client
}

// YouTrackProject はYouTrackのプロジェクトを表します
type YouTrackProject struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AgileBoard はYouTrackのアジャイルボードを表します
type AgileBoard struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Projects []YouTrackProject `json:"projects"`
}

// YouTrackUser はYouTrackのユーザーディレクトリエントリを表します
type YouTrackUser struct {
	ID       string `json:"id"`
	Login    string `json:"login"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

// boardColumns はボード列設定エンドポイントのレスポンスを表します
type boardColumns struct {
	ColumnSettings struct {
		Columns []struct {
			Presentation string `json:"presentation"`
			FieldValues  []struct {
				Name string `json:"name"`
			} `json:"fieldValues"`
		} `json:"columns"`
	} `json:"columnSettings"`
}

// issueResponse はイシュー作成エンドポイントのレスポンスを表します
type issueResponse struct {
	IDReadable  string `json:"idReadable"`
	Summary     string `json:"summary"`
	Description string `json:"description"`
}

// NewYouTrackClient は新しいYouTrackクライアントを作成します
func NewYouTrackClient(cfg *config.Config) *YouTrackClient {
	return &YouTrackClient{
		config: cfg,
		client: &http.Client{},
	}
}

// request はBearerトークン付きでリクエストを送信しレスポンスをデコードします
// outがnilまたはレスポンスが空の場合はデコードをスキップします
func (y *YouTrackClient) request(method, endpoint string, params url.Values, payload interface{}, out interface{}) error {
	reqURL := fmt.Sprintf("%s/api%s", y.config.YouTrackURL, endpoint)
	if len(params) > 0 {
		reqURL = fmt.Sprintf("%s?%s", reqURL, params.Encode())
	}

	var body io.Reader
	if payload != nil {
		payloadBytes, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("JSONエンコードエラー: %w", err)
		}
		body = bytes.NewBuffer(payloadBytes)
	}

	req, err := http.NewRequest(method, reqURL, body)
	if err != nil {
		return fmt.Errorf("リクエスト作成エラー: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+y.config.YouTrackAPIToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := y.client.Do(req)
	if err != nil {
		return fmt.Errorf("リクエスト送信エラー: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("YouTrack APIエラー (%d): %s", resp.StatusCode, string(respBody))
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("レスポンス解析エラー: %w", err)
	}
	return nil
}

// CheckAuth はYouTrack認証をチェックします
func (y *YouTrackClient) CheckAuth() error {
	params := url.Values{}
	params.Set("fields", "id,login")

	var me YouTrackUser
	return y.request("GET", "/users/me", params, nil, &me)
}

// GetProjects はYouTrackのプロジェクト一覧を取得します
func (y *YouTrackClient) GetProjects() ([]YouTrackProject, error) {
	params := url.Values{}
	params.Set("fields", "id,name")

	var projects []YouTrackProject
	if err := y.request("GET", "/admin/projects", params, nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// GetAgileBoards はアジャイルボード一覧を取得します
// projectIDが指定された場合、そのプロジェクトに属するボードのみを返します
func (y *YouTrackClient) GetAgileBoards(projectID string) ([]AgileBoard, error) {
	params := url.Values{}
	params.Set("fields", "id,name,projects(id,name)")

	var boards []AgileBoard
	if err := y.request("GET", "/agiles", params, nil, &boards); err != nil {
		return nil, err
	}

	if projectID == "" {
		return boards, nil
	}

	filtered := make([]AgileBoard, 0, len(boards))
	for _, board := range boards {
		for _, p := range board.Projects {
			if p.ID == projectID {
				filtered = append(filtered, board)
				break
			}
		}
	}
	return filtered, nil
}

// GetBoardStates はボードの列名からステート名へのマッピングを取得します
// 各列の最初のフィールド値の名前をその列のステートとします
func (y *YouTrackClient) GetBoardStates(boardID string) (map[string]string, error) {
	params := url.Values{}
	params.Set("fields", "id,name,columnSettings(columns(presentation,fieldValues(name,id,$type),id,isResolved)),projects(id)")

	var board boardColumns
	if err := y.request("GET", fmt.Sprintf("/agiles/%s", boardID), params, nil, &board); err != nil {
		return nil, err
	}

	stateMap := make(map[string]string)
	for _, column := range board.ColumnSettings.Columns {
		for _, fieldValue := range column.FieldValues {
			if fieldValue.Name != "" {
				stateMap[column.Presentation] = fieldValue.Name
				break
			}
		}
	}
	return stateMap, nil
}

// GetUsers はYouTrackのユーザーディレクトリを取得します
func (y *YouTrackClient) GetUsers() ([]YouTrackUser, error) {
	params := url.Values{}
	params.Set("fields", "id,login,fullName,email")

	var users []YouTrackUser
	if err := y.request("GET", "/users", params, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// CreateIssue はYouTrackイシューを作成します
// YouTrackはすべてのフィールドを原子的に設定できないため、ステート以外は後続の更新呼び出しで設定します
func (y *YouTrackClient) CreateIssue(projectID, summary, description string, customFields []FieldUpdate) (*models.CreatedIssue, error) {
	payload := map[string]interface{}{
		"summary": summary,
		"project": map[string]string{"id": projectID},
	}
	if description != "" {
		payload["description"] = description
	}
	if len(customFields) > 0 {
		fields := make([]map[string]interface{}, 0, len(customFields))
		for _, f := range customFields {
			fields = append(fields, f.Payload())
		}
		payload["customFields"] = fields
	}

	params := url.Values{}
	params.Set("fields", "idReadable,summary,description,project(id,name)")
	params.Set("muteUpdateNotifications", "true")

	var result issueResponse
	if err := y.request("POST", "/issues", params, payload, &result); err != nil {
		return nil, err
	}
	if result.IDReadable == "" {
		return nil, fmt.Errorf("イシューIDが見つかりません")
	}

	return &models.CreatedIssue{
		ID:          result.IDReadable,
		Summary:     result.Summary,
		Description: result.Description,
	}, nil
}

// ApplyFieldUpdate はイシューのカスタムフィールドを1つ更新します
func (y *YouTrackClient) ApplyFieldUpdate(issueID string, update FieldUpdate) error {
	payload := map[string]interface{}{
		"customFields": []map[string]interface{}{update.Payload()},
	}
	return y.request("POST", fmt.Sprintf("/issues/%s", issueID), nil, payload, nil)
}

// AddComment はイシューにコメントを追加します
func (y *YouTrackClient) AddComment(issueID, text string) error {
	params := url.Values{}
	params.Set("muteUpdateNotifications", "true")

	payload := map[string]string{"text": text}
	return y.request("POST", fmt.Sprintf("/issues/%s/comments", issueID), params, payload, nil)
}
