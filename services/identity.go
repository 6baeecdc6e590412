package services

import (
	"encoding/json"
	"os"
	"strings"

	"trellotoyoutrack/api"
	"trellotoyoutrack/models"
	"trellotoyoutrack/utils"
)

// IdentityResolver はTrello側のユーザー識別子（ユーザー名または表示名）を
// YouTrack側のメールアドレス・表示名に解決します
// マッピングテーブルは実行開始時に一度ロードされ、以後読み取り専用です
type IdentityResolver struct {
	// 小文字化した識別子 → エントリ
	entries map[string]models.IdentityEntry
}

// NewIdentityResolver はマッピングテーブルを注入してリゾルバを作成します
func NewIdentityResolver(entries map[string]models.IdentityEntry) *IdentityResolver {
	if entries == nil {
		entries = map[string]models.IdentityEntry{}
	}
	return &IdentityResolver{entries: entries}
}

// LoadIdentityMapping はユーザーマッピングファイルを読み込みます
// ファイルが存在しない・内容が不正な場合は空のマッピングを返します（致命的エラーにはしません）
func LoadIdentityMapping(path string) map[string]models.IdentityEntry {
	entries := map[string]models.IdentityEntry{}

	data, err := os.ReadFile(path)
	if err != nil {
		utils.LogWarn("ユーザーマッピングファイルが読み込めません (%s): %v", path, err)
		return entries
	}

	var raw map[string]models.IdentityEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		utils.LogWarn("ユーザーマッピングファイルの解析に失敗しました (%s): %v", path, err)
		return entries
	}

	// ユーザー名とTrelloフルネームの両方をキーとして登録する（すべて小文字）
	for username, entry := range raw {
		key := strings.ToLower(strings.TrimSpace(username))
		if key != "" {
			entries[key] = entry
		}
		fullName := strings.ToLower(strings.TrimSpace(entry.TrelloFullName))
		if fullName != "" && fullName != key {
			entries[fullName] = entry
		}
	}

	utils.LogInfo("ユーザーマッピングをロードしました: %d 件", len(entries))
	return entries
}

// lookup は識別子を小文字化してエントリを検索します
func (r *IdentityResolver) lookup(identifier string) (models.IdentityEntry, bool) {
	entry, ok := r.entries[strings.ToLower(strings.TrimSpace(identifier))]
	return entry, ok
}

// DisplayName はコメント投稿者の表示名を解決します
// ユーザー名 → フルネームの順にマッピングを検索し、
// どちらも見つからなければ元のフルネーム、それも空なら "Unknown" を返します
func (r *IdentityResolver) DisplayName(username, fullName string) string {
	if username != "" {
		if entry, ok := r.lookup(username); ok && entry.TrelloFullName != "" {
			return entry.TrelloFullName
		}
	}
	if fullName != "" {
		if entry, ok := r.lookup(fullName); ok && entry.TrelloFullName != "" {
			return entry.TrelloFullName
		}
		return fullName
	}
	return "Unknown"
}

// ResolveEmail はTrello識別子をYouTrackメールアドレスに解決します
func (r *IdentityResolver) ResolveEmail(identifier string) (string, bool) {
	entry, ok := r.lookup(identifier)
	if !ok || entry.YouTrackEmail == "" {
		return "", false
	}
	return strings.ToLower(strings.TrimSpace(entry.YouTrackEmail)), true
}

// UserDirectory はYouTrackユーザーディレクトリのメール→ログイン索引です
// 実行ごとに一度だけ構築され、以後変更されません
type UserDirectory struct {
	emailToLogin map[string]string
}

// NewUserDirectory はユーザー一覧から索引を構築します
func NewUserDirectory(users []api.YouTrackUser) *UserDirectory {
	index := make(map[string]string, len(users))
	for _, user := range users {
		if user.Email != "" && user.Login != "" {
			index[strings.ToLower(user.Email)] = user.Login
		}
	}
	return &UserDirectory{emailToLogin: index}
}

// ResolveLogin はメールアドレスからYouTrackログインを解決します
func (d *UserDirectory) ResolveLogin(email string) (string, bool) {
	login, ok := d.emailToLogin[strings.ToLower(strings.TrimSpace(email))]
	return login, ok
}

// ResolveAssigneeLogin はTrello識別子をマッピング経由でYouTrackログインまで解決します
// どちらかのホップが失敗した場合はfalseを返します
func ResolveAssigneeLogin(resolver *IdentityResolver, directory *UserDirectory, identifier string) (string, bool) {
	email, ok := resolver.ResolveEmail(identifier)
	if !ok {
		return "", false
	}
	return directory.ResolveLogin(email)
}
