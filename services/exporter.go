package services

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"trellotoyoutrack/api"
	"trellotoyoutrack/config"
	"trellotoyoutrack/models"
	"trellotoyoutrack/utils"
)

// Power-UpのプラグインID（Trello側で固定）
const (
	cardSizePluginID     = "5cd476e1efce1d2e0cbe53a8"
	cardPriorityPluginID = "5d40dbf16b5f44535df106d1"
)

// Exporter はTrelloからカードデータを取得しCardRowに正規化します
type Exporter struct {
	trello   *api.TrelloClient
	resolver *IdentityResolver
}

// NewExporter は新しいエクスポーターを作成します
func NewExporter(trello *api.TrelloClient, resolver *IdentityResolver) *Exporter {
	return &Exporter{
		trello:   trello,
		resolver: resolver,
	}
}

// ExtractCardIDFromURL は共有URLからカードIDを抽出します
// URLに "/c/" が含まれる場合、その直後から次の "/" までのセグメントを返します
// URLでない入力はそのまま返します（冪等）
func ExtractCardIDFromURL(urlOrID string) string {
	urlOrID = strings.TrimSpace(urlOrID)
	if idx := strings.Index(urlOrID, "/c/"); idx >= 0 {
		cardID := urlOrID[idx+len("/c/"):]
		if slash := strings.Index(cardID, "/"); slash >= 0 {
			cardID = cardID[:slash]
		}
		return cardID
	}
	return urlOrID
}

// MapPriority はTrelloの優先度番号をYouTrackの優先度名に変換します
// マッピングにない値はデフォルト優先度になります
func MapPriority(trelloPriority string) string {
	if name, ok := config.PriorityMapping[strings.TrimSpace(trelloPriority)]; ok {
		return name
	}
	return config.DefaultPriority
}

// FetchCardsByIDs はID（またはURL）のリストからカード詳細を取得します
// 取得に失敗したカードはスキップされ、失敗した入力が返り値で報告されます
func (e *Exporter) FetchCardsByIDs(cardIDsOrURLs []string) (cards []api.TrelloCard, extractedIDs []string, failed []string) {
	for _, item := range cardIDsOrURLs {
		cardID := ExtractCardIDFromURL(item)
		card, err := e.trello.GetCardDetails(cardID)
		if err != nil {
			utils.LogWarn("カード取得失敗: %s (%v)", item, err)
			failed = append(failed, item)
			continue
		}
		cards = append(cards, *card)
		extractedIDs = append(extractedIDs, cardID)
	}
	return cards, extractedIDs, failed
}

// FetchCardsFromList は指定リスト内のアーカイブされていないカードを取得します
func (e *Exporter) FetchCardsFromList(boardID, listName string) ([]api.TrelloCard, error) {
	board, err := e.trello.GetBoard(boardID)
	if err != nil {
		return nil, err
	}

	for _, list := range board.Lists {
		if list.Name != listName {
			continue
		}
		var cards []api.TrelloCard
		for _, card := range board.Cards {
			if card.IDList == list.ID && !card.Closed {
				cards = append(cards, card)
			}
		}
		return cards, nil
	}
	return nil, nil
}

// ListsWithCards はボード上の全リストとそのカード（アーカイブ除く）を取得します
// カードが1枚もないリストは含まれません
func (e *Exporter) ListsWithCards(boardID string) (map[string][]api.TrelloCard, string, error) {
	board, err := e.trello.GetBoard(boardID)
	if err != nil {
		return nil, "", err
	}

	listsWithCards := make(map[string][]api.TrelloCard)
	for _, list := range board.Lists {
		var cards []api.TrelloCard
		for _, card := range board.Cards {
			if card.IDList == list.ID && !card.Closed {
				cards = append(cards, card)
			}
		}
		if len(cards) > 0 {
			listsWithCards[list.Name] = cards
		}
	}
	return listsWithCards, board.Name, nil
}

// BoardName はボード名を取得します
func (e *Exporter) BoardName(boardID string) string {
	board, err := e.trello.GetBoard(boardID)
	if err != nil {
		return "Unknown Board"
	}
	return board.Name
}

// BuildCardRow はカード1枚をCardRowに正規化します
// 詳細取得に失敗した場合はボード一覧の最小データのみで行を構築し、処理を継続します
func (e *Exporter) BuildCardRow(card api.TrelloCard, listName, boardName string) models.CardRow {
	detailed := card
	if d, err := e.trello.GetCardDetails(card.ID); err == nil {
		detailed = *d
	} else {
		utils.LogWarn("カード詳細の取得に失敗しました（最小データで継続）: %s (%v)", card.ID, err)
	}

	var usernames, emails []string
	for _, m := range detailed.Members {
		if m.Username != "" {
			usernames = append(usernames, m.Username)
		}
		if m.Email != "" {
			emails = append(emails, m.Email)
		}
	}

	// コメント取得の失敗はコメントなしとして扱う
	comments, err := e.trello.GetCardComments(card.ID)
	if err != nil {
		comments = nil
	}

	priority := ""
	if raw := pluginValueString(detailed.PluginData, cardPriorityPluginID, "priority"); raw != "" {
		priority = MapPriority(raw)
	}

	storyPoints := ""
	if sp, ok := cardStoryPoints(detailed.PluginData); ok {
		storyPoints = strconv.Itoa(sp)
	}

	buckets := extractLinkBuckets(detailed.Attachments)

	return models.CardRow{
		Board:            boardName,
		List:             listName,
		CardID:           card.ID,
		CardName:         card.Name,
		Description:      card.Desc,
		DueDate:          card.Due,
		DueComplete:      card.DueComplete,
		Labels:           formatLabels(card.Labels),
		Priority:         priority,
		StoryPoints:      storyPoints,
		Members:          formatMembers(detailed.Members),
		MemberEmails:     strings.Join(emails, ", "),
		MemberUsernames:  strings.Join(usernames, ", "),
		URL:              card.ShortURL,
		Archived:         card.Closed,
		Attachments:      formatAttachments(detailed.Attachments),
		Checklists:       formatChecklists(detailed.Checklists),
		Comments:         e.FormatComments(comments),
		GitHubPRs:        buckets.GitHubPRs,
		GitHubIssues:     buckets.GitHubIssues,
		GitHubCommits:    buckets.GitHubCommits,
		GoogleDriveFiles: buckets.GoogleDriveFiles,
	}
}

// FormatComments はコメント一覧を "[投稿者 on 日付]\n本文" 形式に整形し区切り文字列で結合します
// 本文が空のコメントは除外されます
func (e *Exporter) FormatComments(comments []api.TrelloAction) string {
	var formatted []string
	for _, comment := range comments {
		text := comment.Data.Text
		if text == "" {
			continue
		}
		author := e.resolver.DisplayName(comment.MemberCreator.Username, comment.MemberCreator.FullName)
		formatted = append(formatted, fmt.Sprintf("[%s on %s]\n%s", author, comment.Date, text))
	}
	return strings.Join(formatted, models.CommentSeparator)
}

// linkBuckets は外部リンクをカテゴリ別に仕分けた結果です
type linkBuckets struct {
	GitHubPRs        string
	GitHubIssues     string
	GitHubCommits    string
	GoogleDriveFiles string
}

// extractLinkBuckets はアップロード以外の添付URLをカテゴリ別に仕分けます
// 各エントリは "[名前](URL)" 形式になります
// 分類できなかったリンクは行に出力されません
func extractLinkBuckets(attachments []api.TrelloAttachment) linkBuckets {
	var prs, issues, commits, drive []string

	for _, att := range attachments {
		if att.IsUpload || att.URL == "" {
			continue
		}

		link := fmt.Sprintf("[%s](%s)", att.Name, att.URL)
		urlLower := strings.ToLower(att.URL)

		switch {
		case strings.Contains(urlLower, "github.com") && strings.Contains(att.URL, "/pull/"):
			prs = append(prs, link)
		case strings.Contains(urlLower, "github.com") && strings.Contains(att.URL, "/issues/"):
			issues = append(issues, link)
		case strings.Contains(urlLower, "github.com") && strings.Contains(att.URL, "/commit/"):
			commits = append(commits, link)
		case strings.Contains(urlLower, "drive.google.com") || strings.Contains(urlLower, "docs.google.com"):
			drive = append(drive, link)
		}
	}

	return linkBuckets{
		GitHubPRs:        strings.Join(prs, "\n"),
		GitHubIssues:     strings.Join(issues, "\n"),
		GitHubCommits:    strings.Join(commits, "\n"),
		GoogleDriveFiles: strings.Join(drive, "\n"),
	}
}

// formatChecklists はチェックリストをテキストに整形します
func formatChecklists(checklists []api.TrelloChecklist) string {
	if len(checklists) == 0 {
		return ""
	}

	formatted := make([]string, 0, len(checklists))
	for _, checklist := range checklists {
		var b strings.Builder
		b.WriteString(checklist.Name + ":")
		for _, item := range checklist.CheckItems {
			status := "☐"
			if item.State == "complete" {
				status = "✓"
			}
			b.WriteString(fmt.Sprintf("\n  %s %s", status, item.Name))
		}
		formatted = append(formatted, b.String())
	}
	return strings.Join(formatted, "\n\n")
}

// formatAttachments は添付ファイルを "名前: URL" の行に整形します
func formatAttachments(attachments []api.TrelloAttachment) string {
	if len(attachments) == 0 {
		return ""
	}

	lines := make([]string, 0, len(attachments))
	for _, att := range attachments {
		lines = append(lines, fmt.Sprintf("%s: %s", att.Name, att.URL))
	}
	return strings.Join(lines, "\n")
}

// formatMembers はメンバーの表示名をカンマ区切りで結合します
func formatMembers(members []api.TrelloMember) string {
	if len(members) == 0 {
		return ""
	}

	names := make([]string, 0, len(members))
	for _, m := range members {
		if m.FullName != "" {
			names = append(names, m.FullName)
		} else {
			names = append(names, m.Username)
		}
	}
	return strings.Join(names, ", ")
}

// formatLabels はラベル名をカンマ区切りで結合します
func formatLabels(labels []api.TrelloLabel) string {
	if len(labels) == 0 {
		return ""
	}

	names := make([]string, 0, len(labels))
	for _, l := range labels {
		if l.Name != "" {
			names = append(names, l.Name)
		} else {
			names = append(names, l.Color)
		}
	}
	return strings.Join(names, ", ")
}

// pluginValueString は指定プラグインのデータから1キーの値を文字列として取り出します
// データがない・解析できない場合は空文字列を返します（エラーにはしません）
func pluginValueString(pluginData []api.TrelloPluginData, pluginID, key string) string {
	for _, entry := range pluginData {
		if entry.IDPlugin != pluginID || entry.Value == "" {
			continue
		}

		var parsed map[string]interface{}
		if err := json.Unmarshal([]byte(entry.Value), &parsed); err != nil {
			continue
		}

		switch v := parsed[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.Itoa(int(v))
		}
	}
	return ""
}

// cardStoryPoints はカードサイズPower-Upからストーリーポイントを取り出します
// size → points → estimate の順にキーを探し、整数に変換できた最初の値を返します
// 解析失敗・データなしはフィールドなしとして扱います
func cardStoryPoints(pluginData []api.TrelloPluginData) (int, bool) {
	for _, entry := range pluginData {
		if entry.IDPlugin != cardSizePluginID || entry.Value == "" {
			continue
		}

		var parsed map[string]interface{}
		if err := json.Unmarshal([]byte(entry.Value), &parsed); err != nil {
			continue
		}

		for _, key := range []string{"size", "points", "estimate"} {
			switch v := parsed[key].(type) {
			case float64:
				if v != 0 {
					return int(v), true
				}
			case string:
				if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n != 0 {
					return n, true
				}
			}
		}
	}
	return 0, false
}
