package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"trellotoyoutrack/config"
)

// TrelloClient はTrello APIとのやり取りを処理します
// 認証はクエリパラメータのkey/tokenペアで行います
type TrelloClient struct {
	config *config.Config
	client *http.Client
}

// TrelloBoard はボード取得エンドポイントのレスポンスを表します
type TrelloBoard struct {
	ID    string       `json:"id"`
	Name  string       `json:"name"`
	Lists []TrelloList `json:"lists"`
	Cards []TrelloCard `json:"cards"`
}

// TrelloList はボード上のリスト（列）を表します
type TrelloList struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Closed bool   `json:"closed"`
}

// TrelloCard はTrelloのカードを表します
// 詳細取得時のみ添付ファイル・チェックリスト・プラグインデータが埋まります
type TrelloCard struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Desc        string             `json:"desc"`
	Due         string             `json:"due"`
	DueComplete bool               `json:"dueComplete"`
	Closed      bool               `json:"closed"`
	IDList      string             `json:"idList"`
	ShortURL    string             `json:"shortUrl"`
	Labels      []TrelloLabel      `json:"labels"`
	Members     []TrelloMember     `json:"members"`
	Attachments []TrelloAttachment `json:"attachments"`
	Checklists  []TrelloChecklist  `json:"checklists"`
	PluginData  []TrelloPluginData `json:"pluginData"`
}

// TrelloLabel はカードのラベルを表します
type TrelloLabel struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// TrelloMember はカードのメンバーを表します
type TrelloMember struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

// TrelloAttachment はカードの添付ファイルを表します
type TrelloAttachment struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	IsUpload bool   `json:"isUpload"`
}

// TrelloChecklist はカードのチェックリストを表します
type TrelloChecklist struct {
	Name       string            `json:"name"`
	CheckItems []TrelloCheckItem `json:"checkItems"`
}

// TrelloCheckItem はチェックリストの項目を表します
type TrelloCheckItem struct {
	Name  string `json:"name"`
	State string `json:"state"`
}

// TrelloPluginData はPower-Upがカードに付与する拡張データを表します
type TrelloPluginData struct {
	IDPlugin string `json:"idPlugin"`
	Value    string `json:"value"`
}

// TrelloAction はカードのアクティビティ（コメント）を表します
type TrelloAction struct {
	Date          string       `json:"date"`
	MemberCreator TrelloMember `json:"memberCreator"`
	Data          struct {
		Text string `json:"text"`
	} `json:"data"`
}

// NewTrelloClient は新しいTrelloクライアントを作成します
func NewTrelloClient(cfg *config.Config) *TrelloClient {
	return &TrelloClient{
		config: cfg,
		client: &http.Client{},
	}
}

// get は認証パラメータ付きでGETリクエストを送信しレスポンスをデコードします
func (t *TrelloClient) get(endpoint string, params url.Values, out interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("key", t.config.TrelloAPIKey)
	params.Set("token", t.config.TrelloAPIToken)

	reqURL := fmt.Sprintf("%s%s?%s", t.config.TrelloAPIURL, endpoint, params.Encode())

	req, err := http.NewRequest("GET", reqURL, nil)
	if err != nil {
		return fmt.Errorf("リクエスト作成エラー: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("リクエスト送信エラー: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("Trello APIエラー (%d): %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("レスポンス解析エラー: %w", err)
	}
	return nil
}

// CheckAuth はTrello認証をチェックします
func (t *TrelloClient) CheckAuth() error {
	var me TrelloMember
	return t.get("/members/me", nil, &me)
}

// GetBoard はボードのメタデータ（リスト・カード・メンバー）を1回の呼び出しで取得します
func (t *TrelloClient) GetBoard(boardID string) (*TrelloBoard, error) {
	params := url.Values{}
	params.Set("cards", "all")
	params.Set("lists", "all")
	params.Set("members", "all")
	params.Set("fields", "all")
	params.Set("customFields", "true")

	var board TrelloBoard
	if err := t.get(fmt.Sprintf("/boards/%s", boardID), params, &board); err != nil {
		return nil, err
	}
	return &board, nil
}

// GetCardDetails はカードの詳細（添付・チェックリスト・メンバー・プラグインデータ）を取得します
func (t *TrelloClient) GetCardDetails(cardID string) (*TrelloCard, error) {
	params := url.Values{}
	params.Set("attachments", "true")
	params.Set("checklists", "all")
	params.Set("customFieldItems", "true")
	params.Set("members", "true")
	params.Set("pluginData", "true")
	params.Set("actions", "commentCard")
	params.Set("fields", "all")

	var card TrelloCard
	if err := t.get(fmt.Sprintf("/cards/%s", cardID), params, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

// GetCardComments はカードのコメント型アクティビティを取得します
func (t *TrelloClient) GetCardComments(cardID string) ([]TrelloAction, error) {
	params := url.Values{}
	params.Set("filter", "commentCard")

	var actions []TrelloAction
	if err := t.get(fmt.Sprintf("/cards/%s/actions", cardID), params, &actions); err != nil {
		return nil, err
	}
	return actions, nil
}
