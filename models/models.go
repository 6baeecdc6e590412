package models

// CommentSeparator は複数コメントを1つのフィールドに結合する際の区切り文字列です
const CommentSeparator = "\n---\n"

// CardRow はTrelloカード1枚分の中間レコードを表します
// エクスポート時に一度だけ生成され、以後変更されません
type CardRow struct {
	Board            string
	List             string
	CardID           string
	CardName         string
	Description      string
	DueDate          string
	DueComplete      bool
	Labels           string // カンマ区切り
	Priority         string // YouTrack語彙に変換済み
	StoryPoints      string // 整数文字列、未設定なら空
	Members          string
	MemberEmails     string
	MemberUsernames  string
	URL              string
	Archived         bool
	Attachments      string
	Checklists       string
	Comments         string // CommentSeparator区切り
	GitHubPRs        string
	GitHubIssues     string
	GitHubCommits    string
	GoogleDriveFiles string
}

// CreatedIssue はYouTrack側に作成されたイシューを表します
type CreatedIssue struct {
	ID          string
	Summary     string
	Description string
}

// IdentityEntry はユーザーマッピングファイルの1エントリを表します
type IdentityEntry struct {
	TrelloFullName string `json:"trello_fullname"`
	YouTrackEmail  string `json:"youtrack_email"`
}

// StepStatus はインポート更新ステップの結果種別です
type StepStatus string

const (
	// StepOK はステップが成功したことを示します
	StepOK StepStatus = "ok"
	// StepSkipped はステップが適用対象外またはエラーでスキップされたことを示します
	StepSkipped StepStatus = "skipped"
)

// StepResult はインポート更新ステップ1つの結果です
type StepResult struct {
	Step   string
	Status StepStatus
	Reason string
}

// RowResult はカード1枚のインポート結果です
type RowResult struct {
	CardName string
	Issue    *CreatedIssue
	Steps    []StepResult
	Err      error
}

// StateMapping はTrelloリスト名からYouTrackステート名へのマッピングです
// 1回の移行バッチにつきターゲットステートは1つです
type StateMapping map[string]string
