package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// Trello API設定
	TrelloAPIKey   string
	TrelloAPIToken string
	TrelloBoardID  string
	TrelloAPIURL   string

	// YouTrack API設定
	YouTrackURL      string
	YouTrackAPIToken string

	// ユーザーマッピングファイル
	UserMappingFile string

	// 担当者が解決できなかった場合のデフォルト担当者メールアドレス（空なら無効）
	DefaultAssigneeEmail string
}

// PriorityMapping はTrello優先度番号からYouTrack優先度名へのマッピングです
var PriorityMapping = map[string]string{
	"1": "Highest",
	"2": "Critical",
	"3": "High",
	"4": "Medium",
	"5": "Low",
}

// DefaultPriority はマッピングにない優先度に対するフォールバックです
const DefaultPriority = "Medium"

// LoadConfig は環境変数から設定を読み込みます
func LoadConfig() (*Config, error) {
	// .envファイルを読み込む
	_ = godotenv.Load()

	config := &Config{
		TrelloAPIKey:         os.Getenv("TRELLO_API_KEY"),
		TrelloAPIToken:       os.Getenv("TRELLO_API_TOKEN"),
		TrelloBoardID:        os.Getenv("TRELLO_BOARD_ID"),
		TrelloAPIURL:         strings.TrimRight(getEnvWithDefault("TRELLO_API_URL", "https://api.trello.com/1"), "/"),
		YouTrackURL:          strings.TrimRight(os.Getenv("YOUTRACK_URL"), "/"),
		YouTrackAPIToken:     os.Getenv("YOUTRACK_API_TOKEN"),
		UserMappingFile:      getEnvWithDefault("USER_MAPPING_FILE", "user_mapping.json"),
		DefaultAssigneeEmail: os.Getenv("DEFAULT_ASSIGNEE_EMAIL"),
	}

	return config, nil
}

// Validate は必須の認証情報が揃っているかを確認します
// 不足している場合は書き込み前に実行を中断するためのエラーを返します
func (c *Config) Validate() error {
	var missing []string

	if c.TrelloAPIKey == "" {
		missing = append(missing, "TRELLO_API_KEY")
	}
	if c.TrelloAPIToken == "" {
		missing = append(missing, "TRELLO_API_TOKEN")
	}
	if c.TrelloBoardID == "" {
		missing = append(missing, "TRELLO_BOARD_ID")
	}
	if c.YouTrackURL == "" {
		missing = append(missing, "YOUTRACK_URL")
	}
	if c.YouTrackAPIToken == "" {
		missing = append(missing, "YOUTRACK_API_TOKEN")
	}

	if len(missing) > 0 {
		return fmt.Errorf("環境変数が不足しています: %s", strings.Join(missing, ", "))
	}
	return nil
}

// デフォルト値付きで環境変数を取得
func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
